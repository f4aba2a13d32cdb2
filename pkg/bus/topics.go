package bus

// Topic names a channel on the event bus. The names form the wire contract
// between the engine and whatever owns the render loop; renderers key off
// these exact strings.
type Topic string

const (
	TopicFlowSegment        Topic = "flow:segment"
	TopicFlowEnded          Topic = "flow:ended"
	TopicFlowPause          Topic = "flow:pause"
	TopicFlowResume         Topic = "flow:resume"
	TopicFlowStop           Topic = "flow:stop"
	TopicFlowSegmentArrival Topic = "flow:segment-arrival"
	TopicPhaseStarted       Topic = "phase:started"
	TopicPhaseEnded         Topic = "phase:ended"
	TopicPhaseRun           Topic = "phase:run"
	TopicPhaseRunSequence   Topic = "phase:runSequence"
	TopicDecorVisibility    Topic = "decor-visibility"
	TopicHUDText            Topic = "hud:text"
	TopicPhaseCamera        Topic = "phase:camera"
	TopicPacketControl      Topic = "packet-control"
)

// SegmentEvent announces that a flow has started animating one segment.
type SegmentEvent struct {
	Flow  string  `json:"flow"`
	Index int     `json:"index"`
	From  string  `json:"from"`
	To    string  `json:"to"`
	Color string  `json:"color,omitempty"`
	Speed float64 `json:"speed,omitempty"`
}

// FlowEnded is published exactly once per flow run, whether the flow
// completed or was stopped early.
type FlowEnded struct {
	Flow      string `json:"flow"`
	Completed bool   `json:"completed"`
}

// FlowControl targets a named flow with a pause/resume/stop command.
type FlowControl struct {
	Flow string `json:"flow"`
}

// SegmentArrival acknowledges that the packet for a segment reached its hop.
type SegmentArrival struct {
	Flow  string `json:"flow"`
	Index int    `json:"index"`
}

// PhaseLifecycle marks the start or end of a phase run.
type PhaseLifecycle struct {
	Phase string `json:"phase"`
	Error string `json:"error,omitempty"`
}

// PhaseRun requests that a named phase be executed.
type PhaseRun struct {
	Phase string `json:"phase"`
}

// PhaseRunSequence requests sequential execution of several phases.
type PhaseRunSequence struct {
	Phases []string `json:"phases"`
}

// DecorVisibility reveals or conceals a set of decor elements.
type DecorVisibility struct {
	IDs     []string `json:"ids"`
	Visible bool     `json:"visible"`
}

// HUDText carries arbitrary text for the heads-up display.
type HUDText struct {
	Text string `json:"text"`
}

// CameraTarget names a camera position the renderer should move to.
type CameraTarget struct {
	Target string `json:"target"`
}

// PacketControl publishes animation speed hints for a flow's packets.
type PacketControl struct {
	Flow  string  `json:"flow"`
	Speed float64 `json:"speed"`
}
