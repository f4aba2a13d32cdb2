package flow

import (
	"context"
	"fmt"
	"sync"

	"github.com/netroomlab/netroom/pkg/bus"
	"github.com/netroomlab/netroom/pkg/logging"
)

// Runner plays one flow at a time. Between segments it is logically
// suspended: state only moves forward when an arrival acknowledgment for the
// current (flow, segment) pair comes in. Acks for any other pair are ignored,
// which protects against duplicate and out-of-order signals.
type Runner struct {
	specs map[string]Spec
	bus   *bus.Bus
	log   logging.Logger

	mu      sync.Mutex
	current string // active flow id, "" when idle
	segment int
	paused  bool
	done    chan bool
}

// NewRunner creates a Runner over the given flow specs.
func NewRunner(specs []Spec, b *bus.Bus, log logging.Logger) *Runner {
	byID := make(map[string]Spec, len(specs))
	for _, s := range specs {
		byID[s.ID] = s
	}
	return &Runner{
		specs: byID,
		bus:   b,
		log:   log.With(logging.Component("flow")),
	}
}

// Play starts the named flow and returns a completion channel that yields
// exactly one value: true if the flow ran to completion, false if it was
// stopped early. Starting a new flow resets any in-flight one (its pending
// completion resolves as stopped, without an ended event of its own).
func (r *Runner) Play(id string) (<-chan bool, error) {
	spec, ok := r.specs[id]
	if !ok {
		return nil, fmt.Errorf("flow: unknown flow %q", id)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.current != "" {
		r.resolveLocked(false)
	}
	r.current = id
	r.segment = 0
	r.paused = false
	r.done = make(chan bool, 1)
	done := r.done
	r.mu.Unlock()

	r.log.Debug("flow started", logging.Flow(id), logging.Count(len(spec.Path)-1))

	if speed := ClampSpeed(spec.Style.Speed); speed != 0 {
		r.bus.Publish(bus.TopicPacketControl, bus.PacketControl{Flow: id, Speed: speed})
	}
	r.publishSegment(spec, 0)

	return done, nil
}

// Ack acknowledges arrival of the packet for a segment. Only an ack matching
// the active flow id and the current segment index advances the flow; while
// paused, all acks are ignored.
func (r *Runner) Ack(flowID string, segment int) {
	r.mu.Lock()
	if r.current != flowID || r.paused || segment != r.segment {
		r.mu.Unlock()
		return
	}

	spec := r.specs[r.current]
	lastSegment := len(spec.Path) - 2

	if segment >= lastSegment {
		// Final hop reached: the flow is complete.
		id := r.current
		r.resolveLocked(true)
		r.mu.Unlock()
		r.log.Debug("flow completed", logging.Flow(id))
		r.bus.Publish(bus.TopicFlowEnded, bus.FlowEnded{Flow: id, Completed: true})
		return
	}

	r.segment = segment + 1
	next := r.segment
	r.mu.Unlock()

	r.publishSegment(spec, next)
}

// Pause halts segment advancement for the active flow. No-op for any other id.
func (r *Runner) Pause(id string) {
	if r.apply(id, func() { r.paused = true }) {
		r.bus.Publish(bus.TopicFlowPause, bus.FlowControl{Flow: id})
	}
}

// Resume lifts a pause on the active flow. No-op for any other id.
func (r *Runner) Resume(id string) {
	if r.apply(id, func() { r.paused = false }) {
		r.bus.Publish(bus.TopicFlowResume, bus.FlowControl{Flow: id})
	}
}

// Stop ends the active flow immediately: a pause-equivalent halt goes out so
// the renderer freezes the packet, one ended event fires, and the pending
// completion resolves. Safe to call in any state.
func (r *Runner) Stop(id string) {
	r.mu.Lock()
	if r.current != id {
		r.mu.Unlock()
		return
	}
	r.resolveLocked(false)
	r.mu.Unlock()

	r.log.Debug("flow stopped", logging.Flow(id))
	r.bus.Publish(bus.TopicFlowPause, bus.FlowControl{Flow: id})
	r.bus.Publish(bus.TopicFlowEnded, bus.FlowEnded{Flow: id, Completed: false})
}

// Active returns the id of the flow currently playing, or "".
func (r *Runner) Active() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Listen wires the runner to the bus command topics until ctx is cancelled:
// arrival acks, pause, resume and stop all arrive as events. Internal state
// changes from these events do not re-publish the triggering event.
func (r *Runner) Listen(ctx context.Context) error {
	arrivals, err := r.bus.Subscribe(ctx, bus.TopicFlowSegmentArrival)
	if err != nil {
		return err
	}
	stops, err := r.bus.Subscribe(ctx, bus.TopicFlowStop)
	if err != nil {
		return err
	}

	go func() {
		for {
			select {
			case msg, ok := <-arrivals.Channel():
				if !ok {
					return
				}
				if ack, ok := msg.(bus.SegmentArrival); ok {
					r.Ack(ack.Flow, ack.Index)
				}
			case msg, ok := <-stops.Channel():
				if !ok {
					return
				}
				if cmd, ok := msg.(bus.FlowControl); ok {
					r.Stop(cmd.Flow)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// apply runs fn under the lock if id is the active flow.
func (r *Runner) apply(id string, fn func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != id {
		return false
	}
	fn()
	return true
}

// resolveLocked resolves the pending completion exactly once and returns the
// runner to idle. Caller holds the lock.
func (r *Runner) resolveLocked(completed bool) {
	if r.done != nil {
		r.done <- completed
		close(r.done)
		r.done = nil
	}
	r.current = ""
	r.segment = 0
	r.paused = false
}

func (r *Runner) publishSegment(spec Spec, segment int) {
	r.bus.Publish(bus.TopicFlowSegment, bus.SegmentEvent{
		Flow:  spec.ID,
		Index: segment,
		From:  spec.Path[segment],
		To:    spec.Path[segment+1],
		Color: spec.Style.Color,
		Speed: ClampSpeed(spec.Style.Speed),
	})
}
