// Package api exposes the room engine over HTTP: room documents, the publish
// pipeline, the asset inventory, the firewall rule set and phase playback.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/netroomlab/netroom/pkg/auth"
	"github.com/netroomlab/netroom/pkg/firewall"
	"github.com/netroomlab/netroom/pkg/inventory"
	"github.com/netroomlab/netroom/pkg/logging"
	"github.com/netroomlab/netroom/pkg/metrics"
	"github.com/netroomlab/netroom/pkg/phase"
	"github.com/netroomlab/netroom/pkg/publish"
	"github.com/netroomlab/netroom/pkg/room"
)

const version = "1.0.0"

// Options wires the server's collaborators.
type Options struct {
	Addr       string
	DesignMode bool

	Store     *room.Store
	Publisher *publish.Publisher
	Scanner   *inventory.Scanner
	Rules     *firewall.RuleSet
	Phases    *phase.Runner
	Audit     *publish.Log

	// Tokens enables editor token checks on publish when non-nil.
	Tokens *auth.Manager

	Log     logging.Logger
	Metrics *metrics.Registry
}

// Server is the HTTP API server.
type Server struct {
	addr       string
	designMode bool

	store     *room.Store
	publisher *publish.Publisher
	scanner   *inventory.Scanner
	rules     *firewall.RuleSet
	phases    *phase.Runner
	audit     *publish.Log
	tokens    *auth.Manager

	log     logging.Logger
	metrics *metrics.Registry

	startTime  time.Time
	httpServer *http.Server
}

// NewServer creates an API server from its collaborators.
func NewServer(opts Options) *Server {
	return &Server{
		addr:       opts.Addr,
		designMode: opts.DesignMode,
		store:      opts.Store,
		publisher:  opts.Publisher,
		scanner:    opts.Scanner,
		rules:      opts.Rules,
		phases:     opts.Phases,
		audit:      opts.Audit,
		tokens:     opts.Tokens,
		log:        opts.Log.With(logging.Component("api")),
		metrics:    opts.Metrics,
		startTime:  time.Now(),
	}
}

// Handler builds the routed, middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("GET /rooms/{slug}", s.handleGetRoom)
	mux.HandleFunc("GET /rooms/{slug}/source", s.handleGetSource)
	mux.HandleFunc("POST /rooms/{slug}/publish", s.requireEditor(s.handlePublish))
	mux.HandleFunc("GET /publishes", s.handleListPublishes)

	mux.HandleFunc("GET /inventory", s.handleInventory)

	mux.HandleFunc("GET /firewall/rules", s.handleGetRules)
	mux.HandleFunc("PUT /firewall/rules", s.handlePutRules)
	mux.HandleFunc("POST /firewall/evaluate", s.handleEvaluate)

	mux.HandleFunc("POST /phases/{id}/run", s.handleRunPhase)
	mux.HandleFunc("POST /phases/run-sequence", s.handleRunSequence)

	var handler http.Handler = mux
	handler = s.metricsMiddleware(handler)
	handler = s.corsMiddleware(handler)
	handler = s.loggingMiddleware(handler)
	handler = s.panicRecoveryMiddleware(handler)
	return handler
}

// Start runs the server until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.log.Info("api server starting", logging.String("addr", s.addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, HealthResponse{
		OK:         true,
		Status:     "healthy",
		Version:    version,
		Uptime:     time.Since(s.startTime).String(),
		DesignMode: s.designMode,
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("encoding response failed", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: message})
}
