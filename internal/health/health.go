// Package health provides HTTP health check handlers.
//
// The package exposes three endpoints:
//
//   - /healthz: liveness probe; always returns 200 OK.
//   - /readyz: readiness probe; returns 200 only when all registered
//     [Checker] functions pass.
//   - /api/health: service health report: whether the inference API
//     credential is configured and whether the API is reachable.
package health

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// checkTimeout is the maximum time a single readiness check may take before
// the context is cancelled.
const checkTimeout = 5 * time.Second

// defaultProbeURL is the reachability probe target: the cheapest listing
// call the inference platform offers.
const defaultProbeURL = "https://huggingface.co/api/models?limit=1"

// defaultProbeTimeout bounds the /api/health reachability probe.
const defaultProbeTimeout = 3 * time.Second

// Checker is a named readiness check. The Check function should return nil
// when the dependency is healthy and a non-nil error describing the failure
// otherwise.
type Checker struct {
	// Name is a short label for this check; it keys the JSON response.
	Name string

	// Check probes the dependency. It must respect context cancellation.
	Check func(ctx context.Context) error
}

// result is the JSON response body for the liveness and readiness probes.
type result struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// ServiceStatus reports per-dependency health in the /api/health response.
type ServiceStatus struct {
	// HuggingFace is true when the inference API token is configured.
	HuggingFace bool `json:"huggingFace"`

	// APIAccessible is true when the reachability probe succeeded.
	APIAccessible bool `json:"apiAccessible"`
}

// Report is the /api/health response body.
type Report struct {
	Status    string        `json:"status"`
	Timestamp string        `json:"timestamp"`
	Services  ServiceStatus `json:"services"`
}

// Config holds the handler's construction parameters.
type Config struct {
	// HFToken is the inference API token. Its presence is half of "healthy".
	HFToken string

	// ProbeURL overrides the reachability probe target. Used by tests.
	ProbeURL string

	// ProbeTimeout bounds the probe request. Default: 3s.
	ProbeTimeout time.Duration
}

// Handler serves the health endpoints. It is safe for concurrent use; the
// checker list is fixed at construction time.
type Handler struct {
	token    string
	probeURL string
	client   *http.Client
	checkers []Checker
}

// New creates a [Handler]. The checkers are evaluated sequentially on each
// /readyz request.
func New(cfg Config, checkers ...Checker) *Handler {
	if cfg.ProbeURL == "" {
		cfg.ProbeURL = defaultProbeURL
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{
		token:    cfg.HFToken,
		probeURL: cfg.ProbeURL,
		client:   &http.Client{Timeout: cfg.ProbeTimeout},
		checkers: c,
	}
}

// Healthz is a liveness probe that always returns 200 OK. A running process
// that can serve HTTP is considered alive.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{Status: "ok"})
}

// Readyz is a readiness probe that returns 200 only when every registered
// [Checker] passes. Each checker is given a context with a [checkTimeout]
// deadline derived from the request context.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.checkers))
	allOK := true

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.Check(ctx)
		cancel()

		if err != nil {
			checks[c.Name] = "fail: " + err.Error()
			allOK = false
		} else {
			checks[c.Name] = "ok"
		}
	}

	res := result{
		Status: "ok",
		Checks: checks,
	}
	status := http.StatusOK
	if !allOK {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, res)
}

// Health reports service health: "healthy" only when the inference token is
// configured and the reachability probe succeeds, "degraded" otherwise.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	services := ServiceStatus{
		HuggingFace:   h.token != "",
		APIAccessible: h.probe(r.Context()),
	}

	rep := Report{
		Status:    "degraded",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  services,
	}
	status := http.StatusServiceUnavailable
	if services.HuggingFace && services.APIAccessible {
		rep.Status = "healthy"
		status = http.StatusOK
	}

	writeJSON(w, status, rep)
}

// probe checks inference API reachability with a bounded request.
func (h *Handler) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.probeURL, nil)
	if err != nil {
		return false
	}
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK
}

// Register adds the health routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	mux.HandleFunc("GET /api/health", h.Health)
}

// writeJSON encodes v as JSON and writes it with the given status code. On
// encoding failure it falls back to a plain-text 500 response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
