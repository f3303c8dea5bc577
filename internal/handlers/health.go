package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/lumicab/api/internal/repositories"
)

const readinessTimeout = 2 * time.Second

// HealthHandlers serves the liveness and readiness endpoints.
type HealthHandlers struct {
	checker repositories.HealthChecker
	clock   func() time.Time
	started time.Time
	version string
}

// HealthOption customises the health handlers.
type HealthOption func(*HealthHandlers)

// WithHealthChecker wires the readiness probe to a database ping.
func WithHealthChecker(checker repositories.HealthChecker) HealthOption {
	return func(h *HealthHandlers) {
		h.checker = checker
	}
}

// WithHealthClock overrides the time source used for uptime reporting.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		h.clock = clock
	}
}

// WithHealthVersion reports the build version in health payloads.
func WithHealthVersion(version string) HealthOption {
	return func(h *HealthHandlers) {
		h.version = version
	}
}

// NewHealthHandlers constructs health handlers with optional probes.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.clock == nil {
		h.clock = time.Now
	}
	h.started = h.clock()
	return h
}

type healthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version,omitempty"`
	Uptime    string            `json:"uptime"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Healthz reports process liveness. It never touches external dependencies.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.clock()
	writeJSONResponse(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Version:   h.version,
		Uptime:    now.Sub(h.started).Truncate(time.Second).String(),
		Timestamp: now.UTC().Format(time.RFC3339),
	})
}

// Readyz reports whether the service can take traffic, pinging storage when wired.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	now := h.clock()
	resp := healthResponse{
		Status:    "ok",
		Version:   h.version,
		Uptime:    now.Sub(h.started).Truncate(time.Second).String(),
		Timestamp: now.UTC().Format(time.RFC3339),
	}

	if h.checker != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		resp.Checks = map[string]string{"database": "ok"}
		if err := h.checker.Ping(ctx); err != nil {
			resp.Status = "unavailable"
			resp.Checks["database"] = err.Error()
			writeJSONResponse(w, http.StatusServiceUnavailable, resp)
			return
		}
	}

	writeJSONResponse(w, http.StatusOK, resp)
}
