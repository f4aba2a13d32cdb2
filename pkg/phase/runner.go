package phase

import (
	"context"
	"fmt"
	"sync"

	"github.com/netroomlab/netroom/pkg/bus"
	"github.com/netroomlab/netroom/pkg/flow"
	"github.com/netroomlab/netroom/pkg/logging"
)

// ErrPhaseRunning is returned when Run is called while a phase is in flight.
// Phases are never queued; callers decide whether to retry.
var ErrPhaseRunning = fmt.Errorf("phase: a phase is already running")

// Runner executes phases one at a time, delegating flow playback to the flow
// runner and publishing every other effect straight onto the bus.
type Runner struct {
	specs map[string]Spec
	bus   *bus.Bus
	flows *flow.Runner
	log   logging.Logger

	mu      sync.Mutex
	running bool
}

// NewRunner creates a Runner over the given phase specs.
func NewRunner(specs []Spec, b *bus.Bus, flows *flow.Runner, log logging.Logger) *Runner {
	byID := make(map[string]Spec, len(specs))
	for _, s := range specs {
		byID[s.ID] = s
	}
	return &Runner{
		specs: byID,
		bus:   b,
		flows: flows,
		log:   log.With(logging.Component("phase")),
	}
}

// Run executes the named phase's actions strictly in order. It rejects
// immediately if the id is unknown or another phase is running. The ended
// event always fires, even when an action fails.
func (r *Runner) Run(ctx context.Context, id string) error {
	spec, ok := r.specs[id]
	if !ok {
		return fmt.Errorf("phase: unknown phase %q", id)
	}

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrPhaseRunning
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	r.log.Info("phase started", logging.Phase(id))
	r.bus.Publish(bus.TopicPhaseStarted, bus.PhaseLifecycle{Phase: id})

	var runErr error
	defer func() {
		ended := bus.PhaseLifecycle{Phase: id}
		if runErr != nil {
			ended.Error = runErr.Error()
		}
		r.bus.Publish(bus.TopicPhaseEnded, ended)
		r.log.Info("phase ended", logging.Phase(id), logging.Error(runErr))
	}()

	for i := range spec.Actions {
		if runErr = ctx.Err(); runErr != nil {
			return runErr
		}
		if runErr = r.execute(ctx, &spec.Actions[i]); runErr != nil {
			return fmt.Errorf("phase %s: action %d: %w", id, i, runErr)
		}
	}
	return nil
}

// RunSequence runs phases strictly one after another. The first failure
// aborts the rest of the sequence and propagates out.
func (r *Runner) RunSequence(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := r.Run(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Running reports whether a phase is currently in flight.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Runner) execute(ctx context.Context, a *Action) error {
	if err := a.Validate(); err != nil {
		return err
	}

	switch a.Kind {
	case ActionShowDecor:
		r.bus.Publish(bus.TopicDecorVisibility, bus.DecorVisibility{IDs: a.Decor, Visible: true})
	case ActionHideDecor:
		r.bus.Publish(bus.TopicDecorVisibility, bus.DecorVisibility{IDs: a.Decor, Visible: false})
	case ActionHUDText:
		r.bus.Publish(bus.TopicHUDText, bus.HUDText{Text: a.Text})
	case ActionCamera:
		r.bus.Publish(bus.TopicPhaseCamera, bus.CameraTarget{Target: a.CameraTarget})
	case ActionPauseFlow:
		// Fire and forget; does not block the script.
		r.flows.Pause(a.Flow)
	case ActionPlayFlow:
		done, err := r.flows.Play(a.Flow)
		if err != nil {
			return err
		}
		select {
		case <-done:
		case <-ctx.Done():
			r.flows.Stop(a.Flow)
			return ctx.Err()
		}
	}
	return nil
}

// Listen wires the runner to the bus run-request topics until ctx is
// cancelled. Requests run on their own goroutine; failures are logged, not
// propagated, since the requester is fire-and-forget.
func (r *Runner) Listen(ctx context.Context) error {
	runs, err := r.bus.Subscribe(ctx, bus.TopicPhaseRun)
	if err != nil {
		return err
	}
	sequences, err := r.bus.Subscribe(ctx, bus.TopicPhaseRunSequence)
	if err != nil {
		return err
	}

	go func() {
		for {
			select {
			case msg, ok := <-runs.Channel():
				if !ok {
					return
				}
				if req, ok := msg.(bus.PhaseRun); ok {
					if err := r.Run(ctx, req.Phase); err != nil {
						r.log.Warn("requested phase failed", logging.Phase(req.Phase), logging.Error(err))
					}
				}
			case msg, ok := <-sequences.Channel():
				if !ok {
					return
				}
				if req, ok := msg.(bus.PhaseRunSequence); ok {
					if err := r.RunSequence(ctx, req.Phases); err != nil {
						r.log.Warn("requested phase sequence failed", logging.Error(err))
					}
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
