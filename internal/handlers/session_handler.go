package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tutorhub/frontend/internal/clients"
	"github.com/tutorhub/frontend/internal/models"
	"github.com/tutorhub/frontend/internal/routes"
	"github.com/tutorhub/frontend/internal/session"
	"go.uber.org/zap"
)

// SessionResponse is the JSON form of a session snapshot
type SessionResponse struct {
	Status string       `json:"status" example:"present"`
	User   *models.User `json:"user"`
}

// ValidationErrorResponse lists the invalid fields of a request body
type ValidationErrorResponse struct {
	Error  string            `json:"error" example:"validation failed"`
	Fields map[string]string `json:"fields"`
}

func newSessionResponse(snap session.Snapshot) SessionResponse {
	return SessionResponse{Status: snap.Status.String(), User: snap.User}
}

// SessionHandler exposes the browsing session as a JSON API
type SessionHandler struct {
	BaseHandler
	registration RegistrationService
}

// NewSessionHandler creates a new session API handler
func NewSessionHandler(registration RegistrationService, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		BaseHandler:  BaseHandler{logger: logger},
		registration: registration,
	}
}

// RegisterRoutes registers all session API routes
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Route(routes.APIPrefix, func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Post("/refresh", h.Refresh)
			r.Patch("/user", h.UpdateUser)
		})
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
			r.Post("/register", h.Register)
		})
	})
}

// GetSession handles GET /api/v1/session
// @Summary Get the current session
// @Description Returns the state of the browsing session: loading, absent or present with the user
// @Tags session
// @Produce json
// @Success 200 {object} SessionResponse
// @Router /api/v1/session [get]
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	store, ok := h.apiStore(w, r)
	if !ok {
		return
	}
	h.respondJSON(w, http.StatusOK, newSessionResponse(store.Snapshot()))
}

// Refresh handles POST /api/v1/session/refresh
// @Summary Re-check the session
// @Description Asks the auth API who owns the session credentials and returns the settled state
// @Tags session
// @Produce json
// @Success 200 {object} SessionResponse
// @Router /api/v1/session/refresh [post]
func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	store, ok := h.apiStore(w, r)
	if !ok {
		return
	}
	store.CheckAuth(r.Context())
	h.respondJSON(w, http.StatusOK, newSessionResponse(store.Snapshot()))
}

// UpdateUser handles PATCH /api/v1/session/user
// @Summary Update the session user
// @Description Merges the given profile fields into the user held by the session. ID and role cannot be changed.
// @Tags session
// @Accept json
// @Produce json
// @Param request body models.UserPatch true "Profile fields"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} ValidationErrorResponse
// @Failure 401 {object} map[string]string
// @Router /api/v1/session/user [patch]
func (h *SessionHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	store, ok := h.apiStore(w, r)
	if !ok {
		return
	}

	var patch models.UserPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if errs := validateStruct(patch); errs != nil {
		h.respondJSON(w, http.StatusBadRequest, ValidationErrorResponse{Error: "validation failed", Fields: errs})
		return
	}

	if store.Snapshot().User == nil {
		h.respondError(w, http.StatusUnauthorized, "not logged in")
		return
	}

	store.UpdateUser(patch)
	h.respondJSON(w, http.StatusOK, newSessionResponse(store.Snapshot()))
}

// Login handles POST /api/v1/auth/login
// @Summary Log in
// @Description Signs the browsing session in with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login request"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} ValidationErrorResponse
// @Failure 401 {object} map[string]string
// @Router /api/v1/auth/login [post]
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	store, ok := h.apiStore(w, r)
	if !ok {
		return
	}

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if errs := validateStruct(req); errs != nil {
		h.respondJSON(w, http.StatusBadRequest, ValidationErrorResponse{Error: "validation failed", Fields: errs})
		return
	}

	if !store.Login(r.Context(), req.Email, req.Password) {
		h.respondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	session.RenewID(w, r)

	h.respondJSON(w, http.StatusOK, newSessionResponse(store.Snapshot()))
}

// Logout handles POST /api/v1/auth/logout
// @Summary Log out
// @Description Invalidates the session on the auth API and clears it locally whatever the API answered
// @Tags auth
// @Produce json
// @Success 200 {object} SessionResponse
// @Router /api/v1/auth/logout [post]
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	store, ok := h.apiStore(w, r)
	if !ok {
		return
	}
	store.Logout(r.Context())
	h.respondJSON(w, http.StatusOK, newSessionResponse(store.Snapshot()))
}

// Register handles POST /api/v1/auth/register
// @Summary Register a new account
// @Description Validates the fields and forwards them to the auth API; its JSON response is returned unchanged
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.RegisterRequest true "Registration request"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} ValidationErrorResponse
// @Failure 502 {object} map[string]string
// @Router /api/v1/auth/register [post]
func (h *SessionHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if errs := validateStruct(req); errs != nil {
		h.respondJSON(w, http.StatusBadRequest, ValidationErrorResponse{Error: "validation failed", Fields: errs})
		return
	}

	out, err := h.registration.Register(r.Context(), req.Fields())
	if err != nil {
		if errors.Is(err, clients.ErrInvalidRequest) {
			message := "registration rejected"
			var apiErr *clients.APIError
			if errors.As(err, &apiErr) && apiErr.Message != "" {
				message = apiErr.Message
			}
			h.respondError(w, http.StatusBadRequest, message)
			return
		}
		h.logger.Error("failed to register user", zap.Error(err))
		h.respondError(w, http.StatusBadGateway, "registration unavailable")
		return
	}

	h.respondJSON(w, http.StatusCreated, out)
}

// apiStore is currentStore answering in JSON
func (h *SessionHandler) apiStore(w http.ResponseWriter, r *http.Request) (*session.Store, bool) {
	store, ok := session.FromContext(r.Context())
	if !ok {
		h.logger.Error("no session attached to request", zap.String("path", r.URL.Path))
		h.respondError(w, http.StatusInternalServerError, "internal server error")
	}
	return store, ok
}
