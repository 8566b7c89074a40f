// Package health answers the liveness and readiness probes for the voice
// bridge.
//
// Liveness (/healthz) is unconditional: a process that can answer HTTP is
// alive. Readiness (/readyz) runs the probes the HTTP layer registers and
// answers 503 until every one of them passes, so a misconfigured deploy is
// taken out of rotation before the telephony provider routes a call to it.
// Both endpoints respond with a JSON report carrying a top-level "ready"
// flag and a "probes" map with each probe's outcome.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// probeTimeout bounds a single readiness probe.
const probeTimeout = 3 * time.Second

// Probe reports whether one dependency of the service is usable. A nil
// return means ready; probes must respect context cancellation.
type Probe func(ctx context.Context) error

// Handler serves the liveness and readiness endpoints. Register probes with
// [Handler.AddProbe] before mounting via [Handler.Routes].
type Handler struct {
	order  []string
	probes map[string]Probe
}

// New creates a Handler with no probes. With none registered, /readyz always
// reports ready.
func New() *Handler {
	return &Handler{probes: make(map[string]Probe)}
}

// AddProbe registers a named readiness probe and returns the Handler for
// chaining. Probes run on every /readyz request in registration order;
// re-registering a name replaces the probe without changing its position.
func (h *Handler) AddProbe(name string, p Probe) *Handler {
	if _, exists := h.probes[name]; !exists {
		h.order = append(h.order, name)
	}
	h.probes[name] = p
	return h
}

// Routes mounts /healthz and /readyz on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.liveness)
	mux.HandleFunc("GET /readyz", h.readiness)
}

// report is the JSON body of both endpoints.
type report struct {
	Ready  bool              `json:"ready"`
	Probes map[string]string `json:"probes,omitempty"`
}

func (h *Handler) liveness(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, report{Ready: true})
}

func (h *Handler) readiness(w http.ResponseWriter, r *http.Request) {
	rep := report{Ready: true, Probes: make(map[string]string, len(h.order))}

	for _, name := range h.order {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		err := h.probes[name](ctx)
		cancel()

		if err != nil {
			rep.Ready = false
			rep.Probes[name] = err.Error()
			slog.Warn("readiness probe failed", "probe", name, "err", err)
			continue
		}
		rep.Probes[name] = "ok"
	}

	status := http.StatusOK
	if !rep.Ready {
		status = http.StatusServiceUnavailable
	}
	respond(w, status, rep)
}

func respond(w http.ResponseWriter, status int, rep report) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		slog.Warn("health response encode failed", "err", err)
	}
}
