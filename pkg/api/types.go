package api

import (
	"github.com/netroomlab/netroom/pkg/firewall"
	"github.com/netroomlab/netroom/pkg/inventory"
	"github.com/netroomlab/netroom/pkg/publish"
	"github.com/netroomlab/netroom/pkg/room"
)

// Every response carries an ok flag so clients can branch without inspecting
// HTTP status codes.

// HealthResponse reports server liveness.
type HealthResponse struct {
	OK         bool   `json:"ok"`
	Status     string `json:"status"`
	Version    string `json:"version"`
	Uptime     string `json:"uptime"`
	DesignMode bool   `json:"designMode"`
}

// RoomResponse carries a render-ready room.
type RoomResponse struct {
	OK   bool               `json:"ok"`
	Room *room.EngineConfig `json:"room"`
}

// PublishResponse reports a successful publish.
type PublishResponse struct {
	OK     bool            `json:"ok"`
	Result *publish.Result `json:"result"`
}

// InventoryResponse lists the discovered assets.
type InventoryResponse struct {
	OK         bool             `json:"ok"`
	Items      []inventory.Item `json:"items"`
	Categories []string         `json:"categories"`
}

// RulesResponse carries the active firewall rule list.
type RulesResponse struct {
	OK    bool            `json:"ok"`
	Rules []firewall.Rule `json:"rules"`
}

// RulesRequest replaces the active firewall rule list.
type RulesRequest struct {
	Rules []firewall.Rule `json:"rules"`
}

// EvaluateResponse carries a firewall decision for one traffic tuple.
type EvaluateResponse struct {
	OK       bool              `json:"ok"`
	Decision firewall.Decision `json:"decision"`
}

// PhaseResponse acknowledges a finished phase run.
type PhaseResponse struct {
	OK     bool     `json:"ok"`
	Phases []string `json:"phases"`
}

// SequenceRequest names the phases to run back to back.
type SequenceRequest struct {
	Phases []string `json:"phases"`
}

// PublishesResponse lists recorded publish attempts.
type PublishesResponse struct {
	OK      bool            `json:"ok"`
	Entries []publish.Entry `json:"entries"`
}

// ErrorResponse is the uniform failure envelope. Details carries field-level
// validation errors; MissingAssets carries the full list of unresolvable
// model paths.
type ErrorResponse struct {
	OK            bool              `json:"ok"`
	Error         string            `json:"error"`
	Details       []room.FieldError `json:"details,omitempty"`
	MissingAssets []string          `json:"missingAssets,omitempty"`
}
