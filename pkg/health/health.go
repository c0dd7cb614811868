// Package health serves Kubernetes-style liveness and readiness probes.
//
// Checks are evaluated on demand when a probe endpoint is hit, each under its
// own timeout. Readiness additionally gates on an explicit SetReady flag so a
// service can drain traffic during shutdown while its dependencies are still
// healthy.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc reports nil when the probed component is healthy.
type CheckFunc func(ctx context.Context) error

type probe struct {
	name    string
	timeout time.Duration
	check   CheckFunc
}

// Health aggregates liveness and readiness probes for one service.
type Health struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []probe
	readiness []probe
}

// New returns a Health in the not-ready state. Call SetReady(true) once
// initialization finishes.
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a probe answering "is this process functioning".
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, probe{name: name, timeout: timeout, check: check})
}

// AddReadinessCheck registers a probe answering "can this process serve
// traffic", e.g. database connectivity.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, probe{name: name, timeout: timeout, check: check})
}

// SetReady flips the manual readiness gate. Set false during graceful
// shutdown to stop receiving new traffic before closing dependencies.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the manual gate is open and every readiness probe
// passes.
func (h *Health) IsReady(ctx context.Context) bool {
	if !h.ready.Load() {
		return false
	}
	h.mu.RLock()
	probes := h.readiness
	h.mu.RUnlock()
	return len(runProbes(ctx, probes)) == 0
}

// LiveEndpoint serves /livez: 200 when every liveness probe passes, 503 with
// per-check failures otherwise.
func (h *Health) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	probes := h.liveness
	h.mu.RUnlock()

	writeStatus(w, runProbes(r.Context(), probes))
}

// ReadyEndpoint serves /readyz: 200 when the manual gate is open and every
// readiness probe passes.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	probes := h.readiness
	h.mu.RUnlock()

	failures := runProbes(r.Context(), probes)
	if !h.ready.Load() {
		failures["_readiness"] = "service is not ready"
	}
	writeStatus(w, failures)
}

func runProbes(ctx context.Context, probes []probe) map[string]string {
	failures := make(map[string]string)
	for _, p := range probes {
		probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err := p.check(probeCtx)
		cancel()
		if err != nil {
			failures[p.name] = err.Error()
		}
	}
	return failures
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func writeStatus(w http.ResponseWriter, failures map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	resp := statusResponse{Status: "ok"}
	code := http.StatusOK
	if len(failures) > 0 {
		resp.Status = "unhealthy"
		resp.Checks = failures
		code = http.StatusServiceUnavailable
	}

	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
