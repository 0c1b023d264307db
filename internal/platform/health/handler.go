// Package health serves liveness, readiness and status probes for the server and worker.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"wealth/pkg/platform/httputil"
)

// Version is set at build time via ldflags.
var Version = "dev"

// CheckFunc reports whether a dependency such as Temporal, Redis or Postgres is reachable.
type CheckFunc func(ctx context.Context) error

// DefaultCheckTimeout bounds each readiness check.
const DefaultCheckTimeout = 2 * time.Second

// Handler serves the probe endpoints.
type Handler struct {
	startTime    time.Time
	environment  string
	checkTimeout time.Duration

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// New creates a health handler with no dependency checks.
func New(environment string) *Handler {
	return &Handler{
		startTime:    time.Now(),
		environment:  environment,
		checkTimeout: DefaultCheckTimeout,
		checks:       make(map[string]CheckFunc),
	}
}

// RegisterCheck adds a named dependency check to the readiness probe.
// Registering the same name twice replaces the earlier check.
func (h *Handler) RegisterCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// Register mounts the probe routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleStatus)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}

// LivenessResponse is the body of /health/live.
type LivenessResponse struct {
	Status string `json:"status"`
}

// HandleLiveness always answers 200 while the process can serve HTTP.
func (h *Handler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, LivenessResponse{Status: "alive"})
}

// CheckResult is one dependency's readiness outcome.
type CheckResult struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// ReadinessResponse is the body of /health/ready.
type ReadinessResponse struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

// HandleReadiness runs every check concurrently, each under its own timeout,
// and answers 503 when any of them fails.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	results := h.runChecks(r.Context())

	response := ReadinessResponse{Status: "ready", Checks: results}
	status := http.StatusOK
	for _, res := range results {
		if res.Status != "up" {
			response.Status = "not_ready"
			status = http.StatusServiceUnavailable
			break
		}
	}
	httputil.WriteJSON(w, status, response)
}

func (h *Handler) runChecks(ctx context.Context) map[string]CheckResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var (
		mu      sync.Mutex
		g       errgroup.Group
		results = make(map[string]CheckResult, len(h.checks))
	)
	for name, check := range h.checks {
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(ctx, h.checkTimeout)
			defer cancel()

			start := time.Now()
			err := check(checkCtx)
			res := CheckResult{Status: "up", LatencyMs: time.Since(start).Milliseconds()}
			if err != nil {
				res.Status = "down"
				res.Error = err.Error()
			}

			mu.Lock()
			results[name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// StatusResponse is the body of /health.
type StatusResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Environment   string `json:"environment"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Timestamp     string `json:"timestamp"`
}

// HandleStatus reports build version, environment and uptime.
func (h *Handler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Status:        "healthy",
		Version:       Version,
		Environment:   h.environment,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	})
}
