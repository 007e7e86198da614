package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tutorhub/frontend/internal/clients"
	"github.com/tutorhub/frontend/internal/flash"
	"github.com/tutorhub/frontend/internal/guard"
	"github.com/tutorhub/frontend/internal/models"
	"github.com/tutorhub/frontend/internal/routes"
	"github.com/tutorhub/frontend/internal/session"
	"github.com/tutorhub/frontend/internal/views"
	"go.uber.org/zap"
)

// RegistrationService is the interface that wraps the account registration call of the auth API.
type RegistrationService interface {
	// Method Register posts the registration fields to the auth API and returns its JSON response.
	//
	// "fields" parameter contains name, email, password and role.
	// If the API rejects the fields, clients.ErrInvalidRequest is returned; transport failures yield clients.ErrRequestFailed.
	Register(ctx context.Context, fields map[string]any) (map[string]any, error)
}

// AuthHandler handles the login, registration and logout pages
type AuthHandler struct {
	BaseHandler
	registration RegistrationService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(registration RegistrationService, renderer Renderer, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler:  BaseHandler{logger: logger, renderer: renderer},
		registration: registration,
	}
}

// RegisterRoutes registers all auth page routes
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Get(routes.Login, h.LoginPage)
	r.Post(routes.Login, h.Login)
	r.Get(routes.Register, h.RegisterPage)
	r.Post(routes.Register, h.Register)
	r.Post(routes.Logout, h.Logout)
}

// LoginPage handles GET /login. Logged-in users are sent to their home.
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	store, ok := h.currentStore(w, r)
	if !ok {
		return
	}
	if user := store.Snapshot().User; user != nil {
		http.Redirect(w, r, guard.HomeFor(user.Role), http.StatusSeeOther)
		return
	}

	h.render(w, r, http.StatusOK, views.PageLogin, views.PageData{Title: "Log in"})
}

// Login handles POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	store, ok := h.currentStore(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "The login form could not be read.")
		return
	}

	req := models.LoginRequest{
		Email:    strings.TrimSpace(r.PostForm.Get("email")),
		Password: r.PostForm.Get("password"),
	}
	form := map[string]string{"email": req.Email}

	if errs := validateStruct(req); errs != nil {
		h.render(w, r, http.StatusUnprocessableEntity, views.PageLogin, views.PageData{Title: "Log in", Form: form, Errors: errs})
		return
	}

	if !store.Login(r.Context(), req.Email, req.Password) {
		h.render(w, r, http.StatusUnauthorized, views.PageLogin, views.PageData{
			Title: "Log in",
			Form:  form,
			Flash: flash.InvalidCredentials,
		})
		return
	}
	session.RenewID(w, r)

	http.Redirect(w, r, guard.HomeFor(store.Snapshot().Role()), http.StatusSeeOther)
}

// RegisterPage handles GET /register
func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	store, ok := h.currentStore(w, r)
	if !ok {
		return
	}
	if user := store.Snapshot().User; user != nil {
		http.Redirect(w, r, guard.HomeFor(user.Role), http.StatusSeeOther)
		return
	}

	h.render(w, r, http.StatusOK, views.PageRegister, views.PageData{
		Title: "Sign up",
		Form:  map[string]string{"role": r.URL.Query().Get("role")},
	})
}

// Register handles POST /register.
// On success the new account is logged in; when that fails the visitor is sent to the login page.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	store, ok := h.currentStore(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "The registration form could not be read.")
		return
	}

	req := models.RegisterRequest{
		Name:     strings.TrimSpace(r.PostForm.Get("name")),
		Email:    strings.TrimSpace(r.PostForm.Get("email")),
		Password: r.PostForm.Get("password"),
		Role:     models.ParseRole(r.PostForm.Get("role")),
	}
	form := map[string]string{"name": req.Name, "email": req.Email, "role": req.Role.String()}

	if errs := validateStruct(req); errs != nil {
		h.render(w, r, http.StatusUnprocessableEntity, views.PageRegister, views.PageData{Title: "Sign up", Form: form, Errors: errs})
		return
	}

	if _, err := h.registration.Register(r.Context(), req.Fields()); err != nil {
		status, message := registrationFailure(err)
		if status != http.StatusUnprocessableEntity {
			h.logger.Error("failed to register user", zap.Error(err))
		}
		h.render(w, r, status, views.PageRegister, views.PageData{
			Title:  "Sign up",
			Form:   form,
			Errors: map[string]string{"form": message},
		})
		return
	}

	if !store.Login(r.Context(), req.Email, req.Password) {
		flash.Set(w, flash.Registered)
		http.Redirect(w, r, routes.Login, http.StatusSeeOther)
		return
	}
	session.RenewID(w, r)

	http.Redirect(w, r, guard.HomeFor(store.Snapshot().Role()), http.StatusSeeOther)
}

// Logout handles POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	store, ok := h.currentStore(w, r)
	if !ok {
		return
	}

	store.Logout(r.Context())
	flash.Set(w, flash.LoggedOut)
	http.Redirect(w, r, routes.Home, http.StatusSeeOther)
}

// registrationFailure maps a registration error to a status and a message safe to show
func registrationFailure(err error) (int, string) {
	if errors.Is(err, clients.ErrInvalidRequest) {
		var apiErr *clients.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return http.StatusUnprocessableEntity, apiErr.Message
		}
		return http.StatusUnprocessableEntity, "This account could not be created. The email may already be registered."
	}
	return http.StatusBadGateway, "Registration is unavailable right now. Please try again later."
}
