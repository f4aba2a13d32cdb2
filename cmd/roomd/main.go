package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/netroomlab/netroom/pkg/api"
	"github.com/netroomlab/netroom/pkg/auth"
	"github.com/netroomlab/netroom/pkg/bus"
	"github.com/netroomlab/netroom/pkg/config"
	"github.com/netroomlab/netroom/pkg/firewall"
	"github.com/netroomlab/netroom/pkg/flow"
	"github.com/netroomlab/netroom/pkg/inventory"
	"github.com/netroomlab/netroom/pkg/logging"
	"github.com/netroomlab/netroom/pkg/metrics"
	"github.com/netroomlab/netroom/pkg/phase"
	"github.com/netroomlab/netroom/pkg/publish"
	"github.com/netroomlab/netroom/pkg/room"
)

func main() {
	configPath := flag.String("config", "roomd.yaml", "Path to the YAML config file")
	roomSlug := flag.String("room", "baseline", "Room whose flows and phases drive the engine")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "roomd: %v\n", err)
		os.Exit(1)
	}

	log := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(cfg.Log.Level))
	log.Info("roomd starting",
		logging.String("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)),
		logging.String("rooms", cfg.Rooms.Dir),
		logging.String("room", *roomSlug),
	)

	reg := metrics.NewRegistry()
	store := room.NewStore(cfg.Rooms.Dir)

	// The active room seeds the flow specs, phase specs and firewall rules.
	// A missing room is fine; the engine starts empty and publishable.
	flowSpecs, phaseSpecs, rules := loadEngineSeed(store, *roomSlug, log)

	b := bus.New()
	defer b.Shutdown()

	// Engine counters ride the event stream instead of being threaded through
	// every runner.
	b.Tap(func(topic bus.Topic, msg any) {
		switch topic {
		case bus.TopicFlowSegment:
			reg.RecordFlowSegment()
		case bus.TopicFlowEnded:
			if ended, ok := msg.(bus.FlowEnded); ok {
				reg.RecordFlowPlayed(ended.Completed)
			}
		case bus.TopicPhaseEnded:
			if ended, ok := msg.(bus.PhaseLifecycle); ok {
				reg.RecordPhaseRun(ended.Error != "")
			}
		}
	})

	var bridge *bus.Bridge
	if cfg.Bus.BridgeListen != "" {
		bridge, err = bus.NewBridge(b, cfg.Bus.BridgeListen, log)
		if err != nil {
			log.Error("bus bridge failed to start", logging.Error(err))
			os.Exit(1)
		}
		defer bridge.Close()
		log.Info("bus bridge listening", logging.String("addr", cfg.Bus.BridgeListen))
	}

	flows := flow.NewRunner(flowSpecs, b, log)
	phases := phase.NewRunner(phaseSpecs, b, flows, log)
	ruleSet := firewall.NewRuleSet(rules)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := flows.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("flow listener stopped", logging.Error(err))
		}
	}()
	go func() {
		if err := phases.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("phase listener stopped", logging.Error(err))
		}
	}()

	var audit *publish.Log
	if cfg.Rooms.AuditDir != "" {
		audit, err = publish.OpenLog(cfg.Rooms.AuditDir)
		if err != nil {
			log.Error("opening publish log failed", logging.Error(err))
			os.Exit(1)
		}
		defer audit.Close()
	}

	var tokens *auth.Manager
	if cfg.Auth.Secret != "" {
		tokens, err = auth.NewManager(cfg.Auth.Secret, time.Duration(cfg.Auth.TokenMinutes)*time.Minute)
		if err != nil {
			log.Error("auth setup failed", logging.Error(err))
			os.Exit(1)
		}
		log.Info("editor token auth enabled")
	}

	assets := inventory.NewDir(cfg.Rooms.AssetDir)
	publisher := publish.NewPublisher(store, assets, cfg.Server.DesignMode, log, reg, audit)
	scanner := inventory.NewScanner(cfg.Rooms.AssetDir, log, reg)

	server := api.NewServer(api.Options{
		Addr:       fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		DesignMode: cfg.Server.DesignMode,
		Store:      store,
		Publisher:  publisher,
		Scanner:    scanner,
		Rules:      ruleSet,
		Phases:     phases,
		Audit:      audit,
		Tokens:     tokens,
		Log:        log,
		Metrics:    reg,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		log.Error("server failed", logging.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", logging.Error(err))
	}
}

// loadEngineSeed pulls flow specs, phase specs and the seed firewall rules
// from the active room's published document.
func loadEngineSeed(store *room.Store, slug string, log logging.Logger) ([]flow.Spec, []phase.Spec, []firewall.Rule) {
	cfg, err := store.LoadFinal(slug)
	if err != nil {
		if !errors.Is(err, room.ErrNotFound) {
			log.Warn("loading active room failed", logging.Slug(slug), logging.Error(err))
		}
		return nil, nil, firewall.DefaultRules()
	}

	rules := firewall.DefaultRules()
	if cfg.Terminal != nil && len(cfg.Terminal.Firewall) > 0 {
		rules = cfg.Terminal.Firewall
	}

	log.Info("active room loaded",
		logging.Slug(slug),
		logging.Count(len(cfg.Flows)),
	)
	return cfg.Flows, cfg.Phases, rules
}
