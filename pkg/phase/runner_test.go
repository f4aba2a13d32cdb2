package phase

import (
	"context"
	"testing"
	"time"

	"github.com/netroomlab/netroom/pkg/bus"
	"github.com/netroomlab/netroom/pkg/flow"
	"github.com/netroomlab/netroom/pkg/logging"
)

func newTestRunner(t *testing.T) (*Runner, *flow.Runner, *bus.Bus) {
	t.Helper()
	b := bus.New()
	t.Cleanup(b.Shutdown)

	flows := flow.NewRunner([]flow.Spec{
		{ID: "dns-query", Path: []string{"laptop1", "router1", "dns1"}},
	}, b, logging.NewNopLogger())

	specs := []Spec{
		{ID: "intro", Actions: []Action{
			{Kind: ActionShowDecor, Decor: []string{"wall-map", "legend"}},
			{Kind: ActionHUDText, Text: "Welcome to the lab"},
			{Kind: ActionCamera, CameraTarget: "overview"},
			{Kind: ActionHideDecor, Decor: []string{"legend"}},
		}},
		{ID: "dns", Actions: []Action{
			{Kind: ActionHUDText, Text: "Resolving..."},
			{Kind: ActionPlayFlow, Flow: "dns-query"},
			{Kind: ActionHUDText, Text: "Resolved"},
		}},
		{ID: "broken", Actions: []Action{
			{Kind: ActionHUDText, Text: "before"},
			{Kind: ActionPlayFlow, Flow: "no-such-flow"},
		}},
	}

	return NewRunner(specs, b, flows, logging.NewNopLogger()), flows, b
}

func sub(t *testing.T, b *bus.Bus, topic bus.Topic) *bus.Subscription {
	t.Helper()
	s, err := b.Subscribe(context.Background(), topic)
	if err != nil {
		t.Fatalf("Subscribe(%s): %v", topic, err)
	}
	t.Cleanup(s.Unsubscribe)
	return s
}

func recv(t *testing.T, s *bus.Subscription) any {
	t.Helper()
	select {
	case msg := <-s.Channel():
		return msg
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting on %s", s.Topic())
		return nil
	}
}

func TestRunUnknownPhase(t *testing.T) {
	r, _, _ := newTestRunner(t)
	if err := r.Run(context.Background(), "nope"); err == nil {
		t.Error("expected error for unknown phase")
	}
}

func TestRunExecutesActionsInOrder(t *testing.T) {
	r, _, b := newTestRunner(t)
	started := sub(t, b, bus.TopicPhaseStarted)
	ended := sub(t, b, bus.TopicPhaseEnded)
	decor := sub(t, b, bus.TopicDecorVisibility)
	hud := sub(t, b, bus.TopicHUDText)
	camera := sub(t, b, bus.TopicPhaseCamera)

	if err := r.Run(context.Background(), "intro"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if ev := recv(t, started).(bus.PhaseLifecycle); ev.Phase != "intro" {
		t.Errorf("started event = %+v", ev)
	}

	show := recv(t, decor).(bus.DecorVisibility)
	if !show.Visible || len(show.IDs) != 2 {
		t.Errorf("expected show of 2 decor ids, got %+v", show)
	}
	if ev := recv(t, hud).(bus.HUDText); ev.Text != "Welcome to the lab" {
		t.Errorf("hud event = %+v", ev)
	}
	if ev := recv(t, camera).(bus.CameraTarget); ev.Target != "overview" {
		t.Errorf("camera event = %+v", ev)
	}
	hide := recv(t, decor).(bus.DecorVisibility)
	if hide.Visible || len(hide.IDs) != 1 {
		t.Errorf("expected hide of 1 decor id, got %+v", hide)
	}

	end := recv(t, ended).(bus.PhaseLifecycle)
	if end.Phase != "intro" || end.Error != "" {
		t.Errorf("ended event = %+v", end)
	}
}

func TestRunAwaitsFlowCompletion(t *testing.T) {
	r, flows, b := newTestRunner(t)
	hud := sub(t, b, bus.TopicHUDText)
	segments := sub(t, b, bus.TopicFlowSegment)

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Run(context.Background(), "dns")
	}()

	// First HUD text arrives, then the flow starts; the closing HUD text must
	// not arrive until the flow is acked to completion.
	if ev := recv(t, hud).(bus.HUDText); ev.Text != "Resolving..." {
		t.Fatalf("hud event = %+v", ev)
	}
	recv(t, segments) // segment 0

	select {
	case msg := <-hud.Channel():
		t.Fatalf("phase advanced past play-flow before completion: %v", msg)
	case <-time.After(50 * time.Millisecond):
	}

	flows.Ack("dns-query", 0)
	recv(t, segments) // segment 1
	flows.Ack("dns-query", 1)

	if ev := recv(t, hud).(bus.HUDText); ev.Text != "Resolved" {
		t.Errorf("hud event = %+v", ev)
	}
	if err := <-errCh; err != nil {
		t.Errorf("Run: %v", err)
	}
}

func TestRunMutualExclusion(t *testing.T) {
	r, flows, b := newTestRunner(t)
	segments := sub(t, b, bus.TopicFlowSegment)

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Run(context.Background(), "dns")
	}()
	recv(t, segments) // dns phase is now suspended in play-flow

	if err := r.Run(context.Background(), "intro"); err != ErrPhaseRunning {
		t.Errorf("expected ErrPhaseRunning, got %v", err)
	}

	// The in-flight phase is unaffected and still completes.
	flows.Ack("dns-query", 0)
	recv(t, segments)
	flows.Ack("dns-query", 1)
	if err := <-errCh; err != nil {
		t.Errorf("in-flight phase failed after rejected Run: %v", err)
	}
}

func TestRunEmitsEndedOnError(t *testing.T) {
	r, _, b := newTestRunner(t)
	ended := sub(t, b, bus.TopicPhaseEnded)

	err := r.Run(context.Background(), "broken")
	if err == nil {
		t.Fatal("expected error from broken phase")
	}

	end := recv(t, ended).(bus.PhaseLifecycle)
	if end.Phase != "broken" || end.Error == "" {
		t.Errorf("expected ended event carrying the error, got %+v", end)
	}
	if r.Running() {
		t.Error("runner must be idle after a failed phase")
	}
}

func TestRunSequenceAbortsOnFailure(t *testing.T) {
	r, _, b := newTestRunner(t)
	started := sub(t, b, bus.TopicPhaseStarted)

	err := r.RunSequence(context.Background(), []string{"intro", "broken", "intro"})
	if err == nil {
		t.Fatal("expected sequence to propagate the failure")
	}

	var startedPhases []string
	for {
		select {
		case msg := <-started.Channel():
			startedPhases = append(startedPhases, msg.(bus.PhaseLifecycle).Phase)
		case <-time.After(50 * time.Millisecond):
			if len(startedPhases) != 2 {
				t.Errorf("expected intro and broken only, got %v", startedPhases)
			}
			return
		}
	}
}

func TestListenRunsRequestedPhase(t *testing.T) {
	r, _, b := newTestRunner(t)
	ended := sub(t, b, bus.TopicPhaseEnded)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := r.Listen(ctx); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	b.Publish(bus.TopicPhaseRun, bus.PhaseRun{Phase: "intro"})

	end := recv(t, ended).(bus.PhaseLifecycle)
	if end.Phase != "intro" || end.Error != "" {
		t.Errorf("ended event = %+v", end)
	}
}

func TestActionValidate(t *testing.T) {
	bad := []Action{
		{Kind: "teleport"},
		{Kind: ActionShowDecor},
		{Kind: ActionPlayFlow},
		{Kind: ActionHUDText},
		{Kind: ActionCamera},
	}
	for _, a := range bad {
		if err := a.Validate(); err == nil {
			t.Errorf("expected validation error for %+v", a)
		}
	}
	good := Action{Kind: ActionPauseFlow, Flow: "dns-query"}
	if err := good.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
