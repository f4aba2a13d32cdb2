package config

import "fmt"

// Validator collects configuration errors through a fluent interface instead
// of failing on the first one.
type Validator struct {
	name   string
	errors []error
}

// NewValidator creates a Validator labeled with the config struct name.
func NewValidator(name string) *Validator {
	return &Validator{name: name}
}

// Required validates that a string field is not empty.
func (v *Validator) Required(field, value string) *Validator {
	if value == "" {
		v.errors = append(v.errors, fmt.Errorf("%s.%s: required field is empty", v.name, field))
	}
	return v
}

// MinLen validates that a string field has at least min characters.
func (v *Validator) MinLen(field, value string, min int) *Validator {
	if len(value) < min {
		v.errors = append(v.errors, fmt.Errorf("%s.%s: must be at least %d characters", v.name, field, min))
	}
	return v
}

// Positive validates that an int field is greater than zero.
func (v *Validator) Positive(field string, value int) *Validator {
	if value <= 0 {
		v.errors = append(v.errors, fmt.Errorf("%s.%s: value %d must be positive", v.name, field, value))
	}
	return v
}

// RangeInt validates that an int field is within [min, max].
func (v *Validator) RangeInt(field string, value, min, max int) *Validator {
	if value < min || value > max {
		v.errors = append(v.errors, fmt.Errorf("%s.%s: value %d is outside range [%d, %d]", v.name, field, value, min, max))
	}
	return v
}

// OneOf validates that a string field is one of the allowed values.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	for _, a := range allowed {
		if value == a {
			return v
		}
	}
	v.errors = append(v.errors, fmt.Errorf("%s.%s: value %q must be one of %v", v.name, field, value, allowed))
	return v
}

// When conditionally applies validations.
func (v *Validator) When(condition bool, validations func(*Validator)) *Validator {
	if condition {
		validations(v)
	}
	return v
}

// Errors returns all collected errors.
func (v *Validator) Errors() []error {
	return v.errors
}

// Validate returns a combined error if any validations failed.
func (v *Validator) Validate() error {
	switch len(v.errors) {
	case 0:
		return nil
	case 1:
		return v.errors[0]
	default:
		return fmt.Errorf("%s validation failed with %d errors: %v", v.name, len(v.errors), v.errors[0])
	}
}
