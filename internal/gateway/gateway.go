// Package gateway is the quota-enforcing streaming chat gateway.
//
// DESIGN: Request flow for POST /v1/chat:
//   - handleChat():  authenticate -> quota check -> validate -> stream -> record
//   - relay():       pump provider events to the response as they arrive
//
// Status and headers are committed when streaming begins; any failure after
// that point is signaled with a single in-body {"error": ...} value instead
// of an HTTP status. Long-lived collaborators (provider client, usage store)
// are constructed once per process and passed in explicitly.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/halcyonai/chat-gateway/internal/auth"
	"github.com/halcyonai/chat-gateway/internal/config"
	"github.com/halcyonai/chat-gateway/internal/inference"
	"github.com/halcyonai/chat-gateway/internal/monitoring"
	"github.com/halcyonai/chat-gateway/internal/usage"
)

// Deps are the gateway's collaborators.
type Deps struct {
	Verifier *auth.Verifier
	Store    usage.Store
	Guard    *usage.Guard
	Recorder *usage.Recorder
	Opener   inference.Opener
	Metrics  *monitoring.Metrics
	Tracker  *monitoring.Tracker
}

// Gateway serves the chat endpoint and its supporting routes.
type Gateway struct {
	cfg      *config.Config
	verifier *auth.Verifier
	store    usage.Store
	guard    *usage.Guard
	recorder *usage.Recorder
	opener   inference.Opener
	metrics  *monitoring.Metrics
	tracker  *monitoring.Tracker

	server *http.Server

	// now is the clock; overridable in tests.
	now func() time.Time
}

// New creates a Gateway from its collaborators.
func New(cfg *config.Config, deps Deps) *Gateway {
	g := &Gateway{
		cfg:      cfg,
		verifier: deps.Verifier,
		store:    deps.Store,
		guard:    deps.Guard,
		recorder: deps.Recorder,
		opener:   deps.Opener,
		metrics:  deps.Metrics,
		tracker:  deps.Tracker,
		now:      time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat", g.handleChat)
	mux.HandleFunc("/healthz", g.handleHealth)
	if deps.Metrics != nil {
		mux.Handle("/metrics", deps.Metrics.Handler())
	}

	g.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return g
}

// Handler exposes the route table, mainly for tests.
func (g *Gateway) Handler() http.Handler {
	return g.server.Handler
}

// Start blocks on the HTTP listener.
func (g *Gateway) Start() error {
	log.Info().
		Int("port", g.cfg.Server.Port).
		Str("model", g.cfg.Inference.ModelID).
		Str("usage_driver", g.cfg.Usage.Driver).
		Msg("gateway: listening")
	return g.server.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (g *Gateway) Shutdown(ctx context.Context) error {
	return g.server.Shutdown(ctx)
}

// handleHealth reports gateway health, probing the usage store with a
// lightweight read.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	health := "ok"

	probe := usage.GlobalKey(g.cfg.Inference.ModelID, usage.PeriodStart(g.now()))
	if _, _, err := g.store.Get(r.Context(), probe); err != nil {
		status = http.StatusServiceUnavailable
		health = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"status":%q,"time":%q}`, health, g.now().Format(time.RFC3339))
}
