package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Harvey-AU/salesforce-account-updater/internal/scheduler"
	"github.com/Harvey-AU/salesforce-account-updater/internal/updater"
	"golang.org/x/time/rate"
)

// Version is the service version reported by /health (set via ldflags at build time)
var Version = "0.1.0"

const serviceName = "salesforce-account-updater"

// Runner starts runs on demand and remembers the last outcome.
type Runner interface {
	Trigger(ctx context.Context, trigger updater.Trigger) (updater.Result, error)
	LastResult() (updater.Result, bool)
}

// Handler serves the ops endpoints
type Handler struct {
	Runner  Runner
	Metrics http.Handler

	limiter *RateLimiter
}

// NewHandler creates a new ops handler. Manual runs are limited to one per
// minute per client with a burst of two.
func NewHandler(runner Runner, metrics http.Handler) *Handler {
	return &Handler{
		Runner:  runner,
		Metrics: metrics,
		limiter: NewRateLimiter(rate.Every(time.Minute), 2),
	}
}

// WithRateLimiter replaces the manual run limiter.
func (h *Handler) WithRateLimiter(rl *RateLimiter) *Handler {
	h.limiter = rl
	return h
}

// SetupRoutes registers the ops routes on mux
func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.HealthCheck)
	if h.Metrics != nil {
		mux.Handle("/metrics", h.Metrics)
	}
	mux.Handle("/run", AllowMethod(http.MethodPost, h.limiter.Middleware(http.HandlerFunc(h.TriggerRun))))
	mux.HandleFunc("/runs/last", h.LastRun)
}

// HealthCheck handles basic health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w, r)
		return
	}

	WriteHealthy(w, r, serviceName, Version)
}

// TriggerRun starts a manual run and waits for its result.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowed(w, r)
		return
	}

	// A dropped client must not abort a CRM write half way; the run has its own timeout
	res, err := h.Runner.Trigger(context.WithoutCancel(r.Context()), updater.TriggerManual)
	if errors.Is(err, scheduler.ErrRunInProgress) {
		Conflict(w, r, "A sync run is already in progress")
		return
	}
	if err != nil {
		InternalError(w, r, err)
		return
	}

	loggerWithRequest(r).Info().
		Str("run_id", res.RunID).
		Str("status", string(res.Status)).
		Msg("Manual run finished")

	WriteSuccess(w, r, res, "Run finished with status "+string(res.Status))
}

// LastRun returns the most recent run result.
func (h *Handler) LastRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w, r)
		return
	}

	res, ok := h.Runner.LastResult()
	if !ok {
		NotFound(w, r, "No run has completed yet")
		return
	}
	WriteSuccess(w, r, res, "")
}
