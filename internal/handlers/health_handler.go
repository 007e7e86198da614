package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tutorhub/frontend/internal/routes"
	"go.uber.org/zap"
)

// HealthHandler reports liveness
type HealthHandler struct {
	BaseHandler
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(logger *zap.Logger) *HealthHandler {
	return &HealthHandler{BaseHandler: BaseHandler{logger: logger}}
}

// RegisterRoutes registers the health route
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get(routes.Health, h.Health)
}

// Health handles GET /healthz
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
