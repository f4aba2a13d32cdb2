// Package flow sequences a named path of hops one segment at a time,
// publishing segment events on the bus and waiting for external arrival
// acknowledgments before advancing.
package flow

import (
	"fmt"
)

// Speed hints outside this range are clamped before being published.
const (
	MinSpeed = 0.1
	MaxSpeed = 4.0
)

// Style carries rendering hints for a flow's packet animation.
type Style struct {
	Color string  `json:"color,omitempty"`
	Speed float64 `json:"speed,omitempty"`
	Shape string  `json:"shape,omitempty"`
}

// Spec is a static flow definition loaded from the room configuration.
// Path lists hop identifiers; a path of N hops has N-1 segments.
type Spec struct {
	ID    string   `json:"id"`
	Path  []string `json:"path"`
	Style Style    `json:"style,omitempty"`
}

// Validate checks that the spec can actually be played.
func (s *Spec) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("flow: spec has empty id")
	}
	if len(s.Path) < 2 {
		return fmt.Errorf("flow %s: path needs at least 2 hops, has %d", s.ID, len(s.Path))
	}
	return nil
}

// ClampSpeed forces a speed hint into [MinSpeed, MaxSpeed]. A zero hint
// (absent) is returned unchanged so callers can skip publishing it.
func ClampSpeed(speed float64) float64 {
	if speed == 0 {
		return 0
	}
	if speed < MinSpeed {
		return MinSpeed
	}
	if speed > MaxSpeed {
		return MaxSpeed
	}
	return speed
}
