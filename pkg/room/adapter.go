package room

import (
	"strings"

	"github.com/netroomlab/netroom/pkg/flow"
	"github.com/netroomlab/netroom/pkg/phase"
)

// Material defaults applied when the structure block leaves colors out.
const (
	DefaultWallColor  = "#e6e3dd"
	DefaultFloorColor = "#b5a286"
)

// Known 3D asset extensions and path namespaces.
const (
	publicPrefix = "/public"
	assetsPrefix = "assets/"
)

// RenderObject is the engine-facing shape of one placed device.
type RenderObject struct {
	ID       string         `json:"id"`
	Model    string         `json:"model"`
	Position Vec3           `json:"position"`
	Rotation *Vec3          `json:"rotation,omitempty"`
	Scale    *Vec3          `json:"scale,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// RoomStructure is the engine-facing structure descriptor.
type RoomStructure struct {
	Width      float64 `json:"width"`
	Depth      float64 `json:"depth"`
	Height     float64 `json:"height"`
	WallColor  string  `json:"wallColor"`
	FloorColor string  `json:"floorColor"`
	Decor      []Decor `json:"decor,omitempty"`
}

// EngineConfig is what the rendering layer consumes: a deterministic
// reshaping of a validated Config. Flows, phases, terminal and content pass
// through untouched.
type EngineConfig struct {
	ID        string         `json:"id"`
	Meta      Meta           `json:"meta"`
	Camera    Camera         `json:"camera"`
	Theme     string         `json:"theme,omitempty"`
	Structure RoomStructure  `json:"structure"`
	Objects   []RenderObject `json:"objects"`
	Flows     []flow.Spec    `json:"flows,omitempty"`
	Phases    []phase.Spec   `json:"phases,omitempty"`
	Terminal  *Terminal      `json:"terminal,omitempty"`
	Content   map[string]any `json:"content,omitempty"`
}

// ToEngineConfig maps a validated room document into the engine-facing shape.
// Callers must validate first; this function assumes a well-formed document.
func ToEngineConfig(cfg *Config) *EngineConfig {
	out := &EngineConfig{
		ID:     cfg.ID,
		Meta:   cfg.Meta,
		Camera: cfg.Camera,
		Theme:  cfg.Environment.Theme,
		Structure: RoomStructure{
			Width:      cfg.Structure.Width,
			Depth:      cfg.Structure.Depth,
			Height:     cfg.Structure.Height,
			WallColor:  defaultColor(cfg.Structure.WallColor, DefaultWallColor),
			FloorColor: defaultColor(cfg.Structure.FloorColor, DefaultFloorColor),
			Decor:      cfg.Structure.Decor,
		},
		Objects:  make([]RenderObject, 0, len(cfg.Devices)),
		Flows:    cfg.Flows,
		Phases:   cfg.Phases,
		Terminal: cfg.Terminal,
		Content:  cfg.Content,
	}

	for _, d := range cfg.Devices {
		meta := make(map[string]any, len(d.Metadata)+1)
		for k, v := range d.Metadata {
			meta[k] = v
		}
		// Category rides along so the renderer can pick gizmos and labels
		// without re-deriving it from the model path.
		meta["category"] = d.Category

		out.Objects = append(out.Objects, RenderObject{
			ID:       d.Alias,
			Model:    NormalizeModelPath(d.Model, d.Category),
			Position: d.Position,
			Rotation: d.Rotation,
			Scale:    d.Scale,
			Metadata: meta,
		})
	}

	return out
}

// NormalizeModelPath reproduces the exact path normalization the renderer
// relies on:
//   - a reserved public-asset prefix is stripped
//   - an already-absolute path is returned as-is
//   - a relative path with a known 3D extension gets a leading slash
//   - a path in the inventory-asset namespace is kept as-is
//   - an empty model falls back to the category name as a hint
func NormalizeModelPath(model, category string) string {
	switch {
	case strings.HasPrefix(model, publicPrefix):
		return strings.TrimPrefix(model, publicPrefix)
	case strings.HasPrefix(model, "/"):
		return model
	case model != "" && hasModelExtension(model):
		return "/" + model
	case strings.HasPrefix(model, assetsPrefix):
		return model
	case model == "":
		return category
	default:
		return model
	}
}

func hasModelExtension(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".glb") || strings.HasSuffix(lower, ".gltf")
}

func defaultColor(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
