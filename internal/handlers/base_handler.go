package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/tutorhub/frontend/internal/flash"
	"github.com/tutorhub/frontend/internal/session"
	"github.com/tutorhub/frontend/internal/views"
	"go.uber.org/zap"
)

// Renderer is the interface that wraps page rendering.
type Renderer interface {
	// Method Render writes the named page with the given status.
	//
	// Please reference the views.Page* constants for the page names.
	Render(w http.ResponseWriter, r *http.Request, status int, page string, data views.PageData)
}

// BaseHandler holds the helpers shared by every handler
type BaseHandler struct {
	logger   *zap.Logger
	renderer Renderer
}

// respondJSON sends a JSON response
func (h *BaseHandler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// respondError sends an error JSON response
func (h *BaseHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

// render fills the session user and the pending flash notice into data and renders the page
func (h *BaseHandler) render(w http.ResponseWriter, r *http.Request, status int, page string, data views.PageData) {
	if data.User == nil {
		if store, ok := session.FromContext(r.Context()); ok {
			data.User = store.Snapshot().User
		}
	}
	if data.Flash == "" {
		data.Flash = flash.Pop(w, r)
	}
	h.renderer.Render(w, r, status, page, data)
}

// renderError renders the error page
func (h *BaseHandler) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.render(w, r, status, views.PageError, views.PageData{
		Title: http.StatusText(status),
		Data:  views.ErrorData{Status: status, Message: message},
	})
}

// currentStore returns the store attached by the session middleware.
// Its absence is a wiring error, answered with 500.
func (h *BaseHandler) currentStore(w http.ResponseWriter, r *http.Request) (*session.Store, bool) {
	store, ok := session.FromContext(r.Context())
	if !ok {
		h.logger.Error("no session attached to request", zap.String("path", r.URL.Path))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
	return store, ok
}
