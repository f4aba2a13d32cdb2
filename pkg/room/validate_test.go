package room

import (
	"errors"
	"strings"
	"testing"

	"github.com/netroomlab/netroom/pkg/firewall"
	"github.com/netroomlab/netroom/pkg/flow"
	"github.com/netroomlab/netroom/pkg/phase"
)

func validConfig() *Config {
	return &Config{
		ID:   "demo-lab",
		Meta: Meta{Title: "Demo Lab", Summary: "A small teaching room"},
		Camera: Camera{
			Position: Vec3{X: 0, Y: 4, Z: 8},
			Target:   Vec3{},
			FOV:      50,
		},
		Structure: Structure{
			Width:  12,
			Depth:  10,
			Height: 3.5,
			Decor: []Decor{
				{ID: "north-wall", Type: DecorWall, Position: Vec3{Z: -5}},
				{ID: "ceiling-light", Type: DecorLightPanel, Position: Vec3{Y: 3.4}},
			},
		},
		Devices: []Device{
			{Alias: "router1", Category: "router", Model: "/assets/network/router.glb", Position: Vec3{X: 1}},
			{Alias: "dns1", Category: "server", Model: "/assets/servers/rack.glb", Position: Vec3{X: -2}},
		},
		Flows: []flow.Spec{
			{ID: "dns-query", Path: []string{"laptop1", "router1", "dns1"}},
		},
		Phases: []phase.Spec{
			{ID: "intro", Actions: []phase.Action{{Kind: phase.ActionHUDText, Text: "hi"}}},
		},
	}
}

func TestValidateAcceptsValidConfig(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func findField(t *testing.T, err error, path string) *FieldError {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
	for i := range verr.Fields {
		if verr.Fields[i].Path == path {
			return &verr.Fields[i]
		}
	}
	t.Fatalf("no field error for %q in %v", path, verr.Fields)
	return nil
}

func TestValidateMissingRequiredFields(t *testing.T) {
	cfg := validConfig()
	cfg.ID = ""
	cfg.Meta.Title = ""

	err := Validate(cfg)
	findField(t, err, "id")
	fe := findField(t, err, "meta.title")
	if fe.Message != "field is required" {
		t.Errorf("unexpected message: %q", fe.Message)
	}
}

func TestValidateBadSlug(t *testing.T) {
	cfg := validConfig()
	cfg.ID = "Demo Lab!"
	err := Validate(cfg)
	fe := findField(t, err, "id")
	if !strings.Contains(fe.Message, "lowercase") {
		t.Errorf("unexpected message: %q", fe.Message)
	}
}

func TestValidateStructureDimensions(t *testing.T) {
	cfg := validConfig()
	cfg.Structure.Height = 0
	err := Validate(cfg)
	findField(t, err, "structure.height")
}

func TestValidateDecorType(t *testing.T) {
	cfg := validConfig()
	cfg.Structure.Decor[0].Type = "hologram"
	err := Validate(cfg)
	fe := findField(t, err, "structure.decor[0].type")
	if !strings.Contains(fe.Message, "one of") {
		t.Errorf("unexpected message: %q", fe.Message)
	}
}

func TestValidateDuplicateAliases(t *testing.T) {
	cfg := validConfig()
	cfg.Devices = append(cfg.Devices, Device{Alias: "router1", Category: "router"})
	err := Validate(cfg)
	fe := findField(t, err, "devices[2].alias")
	if !strings.Contains(fe.Message, "duplicate") {
		t.Errorf("unexpected message: %q", fe.Message)
	}
}

func TestValidateShortFlowPath(t *testing.T) {
	cfg := validConfig()
	cfg.Flows[0].Path = []string{"laptop1"}
	err := Validate(cfg)
	findField(t, err, "flows[0].path")
}

func TestValidateBadPhaseAction(t *testing.T) {
	cfg := validConfig()
	cfg.Phases[0].Actions = append(cfg.Phases[0].Actions, phase.Action{Kind: "teleport"})
	err := Validate(cfg)
	findField(t, err, "phases[0].actions[1]")
}

func TestValidateTerminalFirewallRules(t *testing.T) {
	cfg := validConfig()
	cfg.Terminal = &Terminal{
		Firewall: []firewall.Rule{
			{ID: "bad", SrcZone: "DMZ", DstZone: firewall.ZoneLAN, Protocol: firewall.ProtocolTCP, Port: 22, Action: firewall.ActionAllow},
		},
	}
	err := Validate(cfg)
	findField(t, err, "terminal.firewall[0]")
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Meta.Title = ""
	cfg.Structure.Width = 0
	cfg.Flows[0].Path = nil

	err := Validate(cfg)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(verr.Fields) < 3 {
		t.Errorf("expected all violations reported, got %v", verr.Fields)
	}
}

func TestValidateCameraFOVRange(t *testing.T) {
	cfg := validConfig()
	cfg.Camera.FOV = 200
	err := Validate(cfg)
	findField(t, err, "camera.fov")

	// Zero FOV means "unset" and is allowed.
	cfg = validConfig()
	cfg.Camera.FOV = 0
	if err := Validate(cfg); err != nil {
		t.Errorf("zero fov must be accepted: %v", err)
	}
}
