package room

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// SlugPattern constrains room identifiers: lowercase alphanumeric plus
// hyphens, 1-64 characters.
var SlugPattern = regexp.MustCompile(`^[a-z0-9-]{1,64}$`)

// FieldError is one schema violation, addressed by a JSON-ish path.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	return e.Path + ": " + e.Message
}

// ValidationError aggregates every schema violation found in a document.
// Validation never stops at the first problem; the editor shows all of them.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "room: validation failed"
	}
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.String()
	}
	return fmt.Sprintf("room: validation failed: %s", strings.Join(msgs, "; "))
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report paths using json tag names, not Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks a room document against the schema. A nil return means the
// document is safe to adapt; any violation blocks further processing.
func Validate(cfg *Config) error {
	var fields []FieldError

	if err := validate.Struct(cfg); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("room: validator: %w", err)
		}
		for _, e := range verrs {
			fields = append(fields, FieldError{
				Path:    fieldPath(e),
				Message: tagMessage(e),
			})
		}
	}

	fields = append(fields, checkDocument(cfg)...)

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// checkDocument covers constraints the tag language can't express.
func checkDocument(cfg *Config) []FieldError {
	var fields []FieldError

	if cfg.ID != "" && !SlugPattern.MatchString(cfg.ID) {
		fields = append(fields, FieldError{
			Path:    "id",
			Message: "must be lowercase alphanumeric with hyphens, 1-64 characters",
		})
	}

	seen := make(map[string]int, len(cfg.Devices))
	for i, d := range cfg.Devices {
		if d.Alias == "" {
			continue
		}
		if prev, dup := seen[d.Alias]; dup {
			fields = append(fields, FieldError{
				Path:    fmt.Sprintf("devices[%d].alias", i),
				Message: fmt.Sprintf("duplicate alias %q (first used by devices[%d])", d.Alias, prev),
			})
			continue
		}
		seen[d.Alias] = i
	}

	for i, f := range cfg.Flows {
		if f.ID == "" {
			fields = append(fields, FieldError{
				Path:    fmt.Sprintf("flows[%d].id", i),
				Message: "field is required",
			})
		}
		if len(f.Path) < 2 {
			fields = append(fields, FieldError{
				Path:    fmt.Sprintf("flows[%d].path", i),
				Message: fmt.Sprintf("needs at least 2 hops, has %d", len(f.Path)),
			})
		}
	}

	for i, p := range cfg.Phases {
		if p.ID == "" {
			fields = append(fields, FieldError{
				Path:    fmt.Sprintf("phases[%d].id", i),
				Message: "field is required",
			})
		}
		for j := range p.Actions {
			if err := p.Actions[j].Validate(); err != nil {
				fields = append(fields, FieldError{
					Path:    fmt.Sprintf("phases[%d].actions[%d]", i, j),
					Message: err.Error(),
				})
			}
		}
	}

	if cfg.Terminal != nil {
		for i := range cfg.Terminal.Firewall {
			if err := cfg.Terminal.Firewall[i].Validate(); err != nil {
				fields = append(fields, FieldError{
					Path:    fmt.Sprintf("terminal.firewall[%d]", i),
					Message: err.Error(),
				})
			}
		}
	}

	return fields
}

// fieldPath turns the validator namespace into a document path:
// "Config.devices[2].alias" -> "devices[2].alias".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func tagMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "field is required"
	case "min":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s", e.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	default:
		return fmt.Sprintf("validation failed (%s)", e.Tag())
	}
}
