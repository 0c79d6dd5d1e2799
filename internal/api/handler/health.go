package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/mcoot/shellgame/internal/api/response"
)

// Pinger reports whether the store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports liveness and store reachability
type HealthHandler struct {
	store Pinger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

// Health handles GET /api/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Health{Status: "ok", Store: "ok"})
}
