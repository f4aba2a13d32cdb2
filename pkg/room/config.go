// Package room defines the on-disk room document (the authoritative,
// schema-validated representation of a virtual room), its validation, and the
// adapter that reshapes a validated document into what the rendering layer
// consumes.
package room

import (
	"github.com/netroomlab/netroom/pkg/firewall"
	"github.com/netroomlab/netroom/pkg/flow"
	"github.com/netroomlab/netroom/pkg/phase"
)

// Vec3 is a point or size in room space.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Meta carries the room's display identity.
type Meta struct {
	Title   string `json:"title" validate:"required"`
	Summary string `json:"summary,omitempty"`
}

// Camera is the initial camera placement.
type Camera struct {
	Position Vec3    `json:"position"`
	Target   Vec3    `json:"target"`
	FOV      float64 `json:"fov,omitempty" validate:"omitempty,min=10,max=120"`
}

// Environment selects scene-wide theming.
type Environment struct {
	Theme      string `json:"theme,omitempty"`
	Background string `json:"background,omitempty"`
}

// Decor element types accepted by the structure block.
const (
	DecorWall       = "wall"
	DecorWindow     = "window"
	DecorLightPanel = "light-panel"
	DecorFloor      = "floor"
	DecorCeiling    = "ceiling"
	DecorSign       = "sign"
)

// Decor is a non-device scenery element attached to the room structure.
type Decor struct {
	ID       string  `json:"id" validate:"required"`
	Type     string  `json:"type" validate:"required,oneof=wall window light-panel floor ceiling sign"`
	Position Vec3    `json:"position"`
	Size     *Vec3   `json:"size,omitempty"`
	Color    string  `json:"color,omitempty"`
	Visible  *bool   `json:"visible,omitempty"`
	Rotation float64 `json:"rotation,omitempty"`
}

// Structure describes the room box and its decor.
type Structure struct {
	Width      float64 `json:"width" validate:"required,gt=0"`
	Depth      float64 `json:"depth" validate:"required,gt=0"`
	Height     float64 `json:"height" validate:"required,gt=0"`
	WallColor  string  `json:"wallColor,omitempty"`
	FloorColor string  `json:"floorColor,omitempty"`
	Decor      []Decor `json:"decor,omitempty" validate:"dive"`
}

// Device is one placed device model, keyed by its stable alias.
type Device struct {
	Alias    string         `json:"alias" validate:"required"`
	Category string         `json:"category" validate:"required"`
	Model    string         `json:"model,omitempty"`
	Position Vec3           `json:"position"`
	Rotation *Vec3          `json:"rotation,omitempty"`
	Scale    *Vec3          `json:"scale,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// TerminalCommand maps a typed terminal command to the phases it triggers.
type TerminalCommand struct {
	Command string   `json:"command" validate:"required"`
	Phases  []string `json:"phases,omitempty"`
	Output  string   `json:"output,omitempty"`
}

// Terminal configures the in-room text terminal, including the seed firewall
// rule set the terminal exercise starts from.
type Terminal struct {
	Welcome  string            `json:"welcome,omitempty"`
	Commands []TerminalCommand `json:"commands,omitempty" validate:"dive"`
	Firewall []firewall.Rule   `json:"firewall,omitempty"`
}

// Config is the authoritative on-disk room document (schema version 1).
// Two physical variants exist: <slug>.source.json (editable draft) and
// <slug>.final.json (the validated document served to end-users).
type Config struct {
	ID          string         `json:"id" validate:"required"`
	Meta        Meta           `json:"meta"`
	Camera      Camera         `json:"camera"`
	Environment Environment    `json:"environment,omitempty"`
	Structure   Structure      `json:"structure"`
	Devices     []Device       `json:"devices" validate:"dive"`
	Flows       []flow.Spec    `json:"flows,omitempty"`
	Phases      []phase.Spec   `json:"phases,omitempty"`
	Terminal    *Terminal      `json:"terminal,omitempty"`
	Content     map[string]any `json:"content,omitempty"`
}
