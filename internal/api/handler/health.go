package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// Pinger is a store that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

type componentStatus struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms,omitempty"`
}

type readiness struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components"`
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	store Pinger
	redis redis.Cmdable
}

func NewHealthHandler(store Pinger, redis redis.Cmdable) *HealthHandler {
	return &HealthHandler{store: store, redis: redis}
}

// Live answers 200 while the process is up.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports the ledger store and Redis. Redis is "disabled" when not
// configured, which does not fail readiness.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()

	body := readiness{Status: "ready", Components: map[string]componentStatus{}}

	body.Components["store"] = probe(ctx, h.store.Ping)
	if h.redis != nil {
		body.Components["redis"] = probe(ctx, func(ctx context.Context) error { return h.redis.Ping(ctx).Err() })
	} else {
		body.Components["redis"] = componentStatus{Status: "disabled"}
	}

	status := http.StatusOK
	for _, c := range body.Components {
		if c.Status == "down" {
			body.Status = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}
	RespondJSON(w, status, body)
}

func probe(ctx context.Context, ping func(context.Context) error) componentStatus {
	start := time.Now()
	if err := ping(ctx); err != nil {
		return componentStatus{Status: "down"}
	}
	return componentStatus{Status: "up", LatencyMS: time.Since(start).Milliseconds()}
}
