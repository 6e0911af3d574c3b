package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

const readyTimeout = 3 * time.Second

// HealthHandler serves liveness and readiness checks. Readiness depends on
// the archive backends; the engine itself has nothing to wait for.
type HealthHandler struct {
	backends map[string]Pinger
	logger   *slog.Logger
}

func NewHealthHandler(backends map[string]Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{backends: backends, logger: logger}
}

type backendStatus struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type readyzResponse struct {
	Status   string                   `json:"status"`
	Backends map[string]backendStatus `json:"backends,omitempty"`
}

// Livez answers as long as the process can serve HTTP.
func (h *HealthHandler) Livez(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz pings every archive backend concurrently.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	if len(h.backends) == 0 {
		writeJSON(w, http.StatusOK, readyzResponse{Status: "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		resp = readyzResponse{Status: "ok", Backends: make(map[string]backendStatus, len(h.backends))}
	)
	for name, p := range h.backends {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st := ping(ctx, p)
			mu.Lock()
			resp.Backends[name] = st
			mu.Unlock()
		}()
	}
	wg.Wait()

	status := http.StatusOK
	for _, b := range resp.Backends {
		if b.Status != "ok" {
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}
	if status != http.StatusOK {
		h.logger.Warn("readiness check failed", "backends", resp.Backends)
	}
	writeJSON(w, status, resp)
}

func ping(ctx context.Context, p Pinger) backendStatus {
	start := time.Now()
	err := p.Ping(ctx)
	st := backendStatus{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		st.Status = "error"
		st.Error = err.Error()
	}
	return st
}
