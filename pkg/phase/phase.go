// Package phase executes named scripts of scene-level actions: decor
// visibility, HUD text, camera moves and flow playback. Phases run one at a
// time; flow playback is the only suspension point.
package phase

import (
	"fmt"
)

// ActionKind selects which effect an action has.
type ActionKind string

const (
	ActionShowDecor ActionKind = "show-decor"
	ActionHideDecor ActionKind = "hide-decor"
	ActionPlayFlow  ActionKind = "play-flow"
	ActionPauseFlow ActionKind = "pause-flow"
	ActionHUDText   ActionKind = "hud-text"
	ActionCamera    ActionKind = "camera"
)

// Action is one step of a phase script. Exactly the fields relevant to Kind
// are set; the rest stay zero.
type Action struct {
	Kind         ActionKind `json:"kind"`
	Decor        []string   `json:"decor,omitempty"`
	Flow         string     `json:"flow,omitempty"`
	Text         string     `json:"text,omitempty"`
	CameraTarget string     `json:"cameraTarget,omitempty"`
}

// Validate checks that the action names a known kind and carries the field
// that kind needs.
func (a *Action) Validate() error {
	switch a.Kind {
	case ActionShowDecor, ActionHideDecor:
		if len(a.Decor) == 0 {
			return fmt.Errorf("phase: %s action without decor ids", a.Kind)
		}
	case ActionPlayFlow, ActionPauseFlow:
		if a.Flow == "" {
			return fmt.Errorf("phase: %s action without flow id", a.Kind)
		}
	case ActionHUDText:
		if a.Text == "" {
			return fmt.Errorf("phase: hud-text action without text")
		}
	case ActionCamera:
		if a.CameraTarget == "" {
			return fmt.Errorf("phase: camera action without target")
		}
	default:
		return fmt.Errorf("phase: unknown action kind %q", a.Kind)
	}
	return nil
}

// Spec is a static phase definition loaded from the room configuration.
type Spec struct {
	ID      string   `json:"id"`
	Actions []Action `json:"actions"`
}
