package publish

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/netroomlab/netroom/pkg/logging"
	"github.com/netroomlab/netroom/pkg/metrics"
	"github.com/netroomlab/netroom/pkg/room"
)

// BaselineSlug names the reserved template room. Overwriting it requires an
// explicit force flag.
const BaselineSlug = "baseline"

// AssetStore answers whether a referenced model path exists. Checks are
// read-only and independent; the missing list is sorted before reporting so
// the outcome stays deterministic.
type AssetStore interface {
	Exists(path string) bool
}

// Request is one publish attempt: the target room plus the live editor
// layout.
type Request struct {
	Slug   string `json:"slug"`
	Layout Layout `json:"layout"`
	Force  bool   `json:"force,omitempty"`
}

// Result reports a successful publish.
type Result struct {
	Slug           string `json:"slug"`
	DevicesWritten int    `json:"devicesWritten"`
	File           string `json:"file"`
}

// Publisher runs the publish pipeline: a strictly sequential
// read-validate-transform-check-write sequence. It owns no shared mutable
// state; a single-user design-time tool needs no concurrent-writer
// protection.
type Publisher struct {
	store      *room.Store
	assets     AssetStore
	designMode bool
	log        logging.Logger
	metrics    *metrics.Registry
	audit      *Log
}

// NewPublisher creates a Publisher. audit may be nil to skip audit logging;
// reg may be nil in tests.
func NewPublisher(store *room.Store, assets AssetStore, designMode bool, log logging.Logger, reg *metrics.Registry, audit *Log) *Publisher {
	return &Publisher{
		store:      store,
		assets:     assets,
		designMode: designMode,
		log:        log.With(logging.Component("publish")),
		metrics:    reg,
		audit:      audit,
	}
}

// Publish converts the live layout into a canonical device list and merges it
// into the room's source document. Either the whole document is written or
// nothing is.
func (p *Publisher) Publish(req Request) (*Result, error) {
	timer := logging.StartTimer(p.log, "publish finished", logging.Slug(req.Slug))
	start := time.Now()

	res, err := p.publish(req)
	if err != nil {
		timer.EndError(err)
		p.record(req.Slug, 0, time.Since(start), err)
		return nil, err
	}

	timer.End()
	p.record(req.Slug, res.DevicesWritten, time.Since(start), nil)
	return res, nil
}

func (p *Publisher) publish(req Request) (*Result, error) {
	if !p.designMode {
		return nil, &UserInputError{Reason: "publishing is disabled outside design mode"}
	}
	if !room.SlugPattern.MatchString(req.Slug) {
		return nil, &UserInputError{Reason: fmt.Sprintf("invalid slug %q: lowercase alphanumeric and hyphens, 1-64 characters", req.Slug)}
	}
	if req.Slug == BaselineSlug && !req.Force {
		return nil, &UserInputError{Reason: "refusing to overwrite the baseline template without force"}
	}

	entries := placeable(req.Layout)
	if len(entries) == 0 {
		return nil, &UserInputError{Reason: "layout has no placeable entries (all deleted or missing a model)"}
	}

	// Publishing never starts from an invalid base document.
	base, err := p.store.LoadSource(req.Slug)
	if err != nil {
		return nil, err
	}
	if err := room.Validate(base); err != nil {
		return nil, err
	}

	devices := assignDevices(entries)

	if missing := p.missingAssets(devices); len(missing) > 0 {
		return nil, &AssetMissingError{Paths: missing}
	}

	merged := *base
	merged.Devices = devices

	// The merged document failing its own schema means the assembly above is
	// buggy; report it as such, never as a user validation error.
	if err := room.Validate(&merged); err != nil {
		return nil, &InternalError{Err: err}
	}

	if err := p.store.WriteSource(req.Slug, &merged); err != nil {
		return nil, err
	}

	p.log.Info("room published",
		logging.Slug(req.Slug),
		logging.Count(len(devices)),
	)

	return &Result{
		Slug:           req.Slug,
		DevicesWritten: len(devices),
		File:           filepath.Base(p.store.SourcePath(req.Slug)),
	}, nil
}

// missingAssets existence-checks every device's model path, returning the
// full sorted, de-duplicated list of misses.
func (p *Publisher) missingAssets(devices []room.Device) []string {
	seen := make(map[string]bool)
	var missing []string
	for i := range devices {
		path := devices[i].Model
		if seen[path] {
			continue
		}
		seen[path] = true
		if !p.assets.Exists(path) {
			missing = append(missing, path)
		}
	}
	sort.Strings(missing)
	return missing
}

func (p *Publisher) record(slug string, devices int, elapsed time.Duration, err error) {
	status := failureReason(err)
	if status == "" {
		status = "success"
	}
	if p.metrics != nil {
		p.metrics.RecordPublish(status, devices, elapsed)
	}
	if p.audit != nil {
		if aerr := p.audit.Append(slug, devices, status); aerr != nil {
			p.log.Warn("audit append failed", logging.Error(aerr))
		}
	}
}

// failureReason buckets an error for metrics and audit; empty means success.
func failureReason(err error) string {
	if err == nil {
		return ""
	}
	var userErr *UserInputError
	var assetErr *AssetMissingError
	var internalErr *InternalError
	var validationErr *room.ValidationError
	switch {
	case errors.Is(err, room.ErrNotFound):
		return "not_found"
	case errors.As(err, &validationErr):
		return "validation"
	case errors.As(err, &userErr):
		return "user_input"
	case errors.As(err, &assetErr):
		return "asset_missing"
	case errors.As(err, &internalErr):
		return "internal"
	default:
		return "unexpected"
	}
}
