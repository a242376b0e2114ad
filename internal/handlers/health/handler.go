// Package health exposes the liveness probe.
package health

import (
	"context"
	"net/http"
	"time"

	"provider-verify/internal/handlers"
)

// Pinger covers the dependencies the probe checks. Redis is optional
// infrastructure, so its state is reported but never fails the probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	version string
	redis   Pinger
}

func NewHandler(version string, redis Pinger) *Handler {
	return &Handler{version: version, redis: redis}
}

type response struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
	Redis     string `json:"redis,omitempty"`
}

// ServeHTTP handles GET /health.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := response{
		Status:    "ok",
		Version:   h.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if h.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.redis.Ping(ctx); err != nil {
			resp.Redis = "unavailable"
		} else {
			resp.Redis = "ok"
		}
	}

	handlers.WriteJSON(w, http.StatusOK, resp)
}
