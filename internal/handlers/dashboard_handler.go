package handlers

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tutorhub/frontend/internal/clients"
	"github.com/tutorhub/frontend/internal/flash"
	"github.com/tutorhub/frontend/internal/guard"
	"github.com/tutorhub/frontend/internal/models"
	"github.com/tutorhub/frontend/internal/routes"
	"github.com/tutorhub/frontend/internal/views"
	"go.uber.org/zap"
)

// BookingsService is the interface that wraps the booking list of the booking API.
type BookingsService interface {
	// Method ListBookings retrieve the bookings of the user owning the credentials.
	//
	// If the credentials are rejected, clients.ErrUnauthorized will be returned together with "nil" value.
	ListBookings(ctx context.Context, creds models.Credentials) ([]models.Booking, error)
}

// SessionCounter reports the number of live browsing sessions
type SessionCounter interface {
	Len() int
}

// DashboardHandler handles the role-gated areas
type DashboardHandler struct {
	BaseHandler
	bookings  BookingsService
	sessions  SessionCounter
	guard     *guard.Guard
	startedAt time.Time
	now       func() time.Time
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(
	bookings BookingsService,
	sessions SessionCounter,
	g *guard.Guard,
	renderer Renderer,
	logger *zap.Logger,
) *DashboardHandler {
	return &DashboardHandler{
		BaseHandler: BaseHandler{logger: logger, renderer: renderer},
		bookings:    bookings,
		sessions:    sessions,
		guard:       g,
		startedAt:   time.Now(),
		now:         time.Now,
	}
}

// RegisterRoutes registers the student, tutor and admin areas, each behind the route guard
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(models.RoleStudent))
		r.Get(routes.StudentDashboard, h.StudentDashboard)
		r.Get(routes.StudentBookings, h.StudentBookings)
		r.Get(routes.StudentProfile, h.ProfilePage)
		r.Post(routes.StudentProfile, h.UpdateProfile)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(models.RoleTutor))
		r.Get(routes.TutorDashboard, h.TutorDashboard)
		r.Get(routes.TutorBookings, h.TutorBookings)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(models.RoleAdmin))
		r.Get(routes.AdminDashboard, h.AdminDashboard)
	})
}

// StudentDashboard handles GET /dashboard
func (h *DashboardHandler) StudentDashboard(w http.ResponseWriter, r *http.Request) {
	h.renderBookings(w, r, views.PageStudentDashboard, views.AreaStudent, "Dashboard", true)
}

// StudentBookings handles GET /dashboard/bookings
func (h *DashboardHandler) StudentBookings(w http.ResponseWriter, r *http.Request) {
	h.renderBookings(w, r, views.PageStudentBookings, views.AreaStudent, "My bookings", false)
}

// TutorDashboard handles GET /tutor/dashboard
func (h *DashboardHandler) TutorDashboard(w http.ResponseWriter, r *http.Request) {
	h.renderBookings(w, r, views.PageTutorDashboard, views.AreaTutor, "Tutor dashboard", true)
}

// TutorBookings handles GET /tutor/bookings
func (h *DashboardHandler) TutorBookings(w http.ResponseWriter, r *http.Request) {
	h.renderBookings(w, r, views.PageTutorBookings, views.AreaTutor, "Lessons", false)
}

// renderBookings loads the bookings of the session user and renders them on the page.
// When the booking API rejects the credentials the session is re-checked; if it is gone the
// request is redirected to itself, so the route guard reacts to the new state.
func (h *DashboardHandler) renderBookings(w http.ResponseWriter, r *http.Request, page, area, title string, upcomingOnly bool) {
	store, ok := h.currentStore(w, r)
	if !ok {
		return
	}

	data := views.BookingsData{}
	bookings, err := h.bookings.ListBookings(r.Context(), store.Credentials())
	switch {
	case errors.Is(err, clients.ErrUnauthorized):
		store.CheckAuth(r.Context())
		if store.Snapshot().User == nil {
			http.Redirect(w, r, r.URL.Path, http.StatusSeeOther)
			return
		}
		h.logger.Warn("bookings rejected for a live session", zap.Error(err))
		data.Error = "Your bookings could not be loaded."
	case err != nil:
		h.logger.Error("failed to list bookings", zap.Error(err))
		data.Error = "Bookings are unavailable right now. Please try again later."
	default:
		data.Bookings = sortBookings(bookings, upcomingOnly, h.now())
	}

	h.render(w, r, http.StatusOK, page, views.PageData{Title: title, Area: area, Data: data})
}

// ProfilePage handles GET /dashboard/profile
func (h *DashboardHandler) ProfilePage(w http.ResponseWriter, r *http.Request) {
	store, ok := h.currentStore(w, r)
	if !ok {
		return
	}

	form := map[string]string{}
	if user := store.Snapshot().User; user != nil {
		form = profileForm(user)
	}
	h.render(w, r, http.StatusOK, views.PageStudentProfile, views.PageData{Title: "Profile", Area: views.AreaStudent, Form: form})
}

// UpdateProfile handles POST /dashboard/profile.
// Submitted fields are merged into the session user.
func (h *DashboardHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	store, ok := h.currentStore(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "The profile form could not be read.")
		return
	}

	patch := profilePatch(r)
	if errs := validateStruct(patch); errs != nil {
		form := map[string]string{}
		for key := range r.PostForm {
			form[key] = strings.TrimSpace(r.PostForm.Get(key))
		}
		h.render(w, r, http.StatusUnprocessableEntity, views.PageStudentProfile, views.PageData{
			Title:  "Profile",
			Area:   views.AreaStudent,
			Form:   form,
			Errors: errs,
		})
		return
	}

	store.UpdateUser(patch)
	flash.Set(w, flash.ProfileUpdated)
	http.Redirect(w, r, routes.StudentProfile, http.StatusSeeOther)
}

// AdminDashboard handles GET /admin
func (h *DashboardHandler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, views.PageAdminDashboard, views.PageData{
		Title: "Administration",
		Area:  views.AreaAdmin,
		Data:  views.AdminData{ActiveSessions: h.sessions.Len(), StartedAt: h.startedAt},
	})
}

// sortBookings orders bookings by start time, keeping only upcoming ones when asked
func sortBookings(bookings []models.Booking, upcomingOnly bool, now time.Time) []models.Booking {
	out := make([]models.Booking, 0, len(bookings))
	for _, b := range bookings {
		if upcomingOnly && !b.Upcoming(now) {
			continue
		}
		out = append(out, b)
	}
	slices.SortStableFunc(out, func(a, b models.Booking) int {
		return a.StartsAt.Compare(b.StartsAt)
	})
	return out
}

func profileForm(user *models.User) map[string]string {
	return map[string]string{
		"name":   user.Name,
		"email":  user.Email,
		"phone":  user.Phone,
		"avatar": user.Avatar,
		"bio":    user.Bio,
	}
}

// profilePatch builds a patch from the submitted form. Fields missing from the form stay nil;
// an empty email is ignored since an account always has one.
func profilePatch(r *http.Request) models.UserPatch {
	field := func(key string) *string {
		if _, ok := r.PostForm[key]; !ok {
			return nil
		}
		value := strings.TrimSpace(r.PostForm.Get(key))
		return &value
	}

	patch := models.UserPatch{
		Name:   field("name"),
		Email:  field("email"),
		Avatar: field("avatar"),
		Bio:    field("bio"),
		Phone:  field("phone"),
	}
	if patch.Email != nil && *patch.Email == "" {
		patch.Email = nil
	}
	return patch
}
