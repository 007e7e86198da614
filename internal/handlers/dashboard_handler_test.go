package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutorhub/frontend/internal/clients"
	"github.com/tutorhub/frontend/internal/flash"
	"github.com/tutorhub/frontend/internal/guard"
	"github.com/tutorhub/frontend/internal/models"
	"github.com/tutorhub/frontend/internal/session"
	"github.com/tutorhub/frontend/internal/views"
	"go.uber.org/zap"
)

var dashboardNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func setupDashboardRouter(t *testing.T, auth *mockAuthenticator, bookings *mockBookingsService) (http.Handler, *mockRenderer, *session.Store) {
	t.Helper()
	renderer := &mockRenderer{}
	g := guard.NewGuard(time.Second, http.NotFoundHandler(), zap.NewNop())
	handler := NewDashboardHandler(bookings, mockSessionCounter(7), g, renderer, zap.NewNop())
	handler.now = func() time.Time { return dashboardNow }
	store := newTestStore(t, auth)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return withStore(store, r), renderer, store
}

func TestDashboardHandler_Guarded(t *testing.T) {
	student := &models.User{ID: "u1", Role: models.RoleStudent}
	tutor := &models.User{ID: "u2", Role: models.RoleTutor}
	admin := &models.User{ID: "u3", Role: models.RoleAdmin}

	tests := []struct {
		name             string
		user             *models.User
		path             string
		expectedStatus   int
		expectedLocation string
		expectedPage     string
	}{
		{name: "student dashboard", user: student, path: "/dashboard", expectedStatus: http.StatusOK, expectedPage: views.PageStudentDashboard},
		{name: "student bookings", user: student, path: "/dashboard/bookings", expectedStatus: http.StatusOK, expectedPage: views.PageStudentBookings},
		{name: "student profile", user: student, path: "/dashboard/profile", expectedStatus: http.StatusOK, expectedPage: views.PageStudentProfile},
		{name: "tutor dashboard", user: tutor, path: "/tutor/dashboard", expectedStatus: http.StatusOK, expectedPage: views.PageTutorDashboard},
		{name: "tutor bookings", user: tutor, path: "/tutor/bookings", expectedStatus: http.StatusOK, expectedPage: views.PageTutorBookings},
		{name: "admin dashboard", user: admin, path: "/admin", expectedStatus: http.StatusOK, expectedPage: views.PageAdminDashboard},
		{name: "student on admin page", user: student, path: "/admin", expectedStatus: http.StatusSeeOther, expectedLocation: "/dashboard"},
		{name: "admin on student page", user: admin, path: "/dashboard", expectedStatus: http.StatusSeeOther, expectedLocation: "/admin"},
		{name: "student on tutor page", user: student, path: "/tutor/bookings", expectedStatus: http.StatusSeeOther, expectedLocation: "/dashboard"},
		{name: "nobody on tutor page", user: nil, path: "/tutor/dashboard", expectedStatus: http.StatusSeeOther, expectedLocation: "/login"},
		{name: "nobody on profile", user: nil, path: "/dashboard/profile", expectedStatus: http.StatusSeeOther, expectedLocation: "/login"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, renderer, _ := setupDashboardRouter(t, &mockAuthenticator{user: tt.user}, &mockBookingsService{})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedLocation, w.Header().Get("Location"))
			assert.Equal(t, tt.expectedPage, renderer.page)
		})
	}
}

func TestDashboardHandler_Bookings(t *testing.T) {
	student := &models.User{ID: "u1", Role: models.RoleStudent}
	bookings := []models.Booking{
		{ID: "late", StartsAt: dashboardNow.Add(48 * time.Hour), Status: models.BookingConfirmed},
		{ID: "past", StartsAt: dashboardNow.Add(-48 * time.Hour), Status: models.BookingCompleted},
		{ID: "soon", StartsAt: dashboardNow.Add(time.Hour), Status: models.BookingPending},
		{ID: "cancelled", StartsAt: dashboardNow.Add(2 * time.Hour), Status: models.BookingCancelled},
	}

	ids := func(data views.BookingsData) []string {
		out := make([]string, 0, len(data.Bookings))
		for _, b := range data.Bookings {
			out = append(out, b.ID)
		}
		return out
	}

	t.Run("dashboard shows upcoming lessons in order", func(t *testing.T) {
		service := &mockBookingsService{bookings: bookings}
		router, renderer, _ := setupDashboardRouter(t, &mockAuthenticator{user: student}, service)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, views.AreaStudent, renderer.data.Area)
		assert.Equal(t, []string{"soon", "late"}, ids(renderer.data.Data.(views.BookingsData)))
		assert.Equal(t, "acc", service.lastCreds.AccessToken)
	})

	t.Run("bookings page lists everything", func(t *testing.T) {
		router, renderer, _ := setupDashboardRouter(t, &mockAuthenticator{user: student}, &mockBookingsService{bookings: bookings})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard/bookings", nil))

		assert.Equal(t, []string{"past", "soon", "cancelled", "late"}, ids(renderer.data.Data.(views.BookingsData)))
	})

	t.Run("api failure", func(t *testing.T) {
		router, renderer, _ := setupDashboardRouter(t, &mockAuthenticator{user: student}, &mockBookingsService{err: clients.ErrRequestFailed})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, renderer.data.Data.(views.BookingsData).Error)
	})

	t.Run("rejected credentials of a live session", func(t *testing.T) {
		router, renderer, store := setupDashboardRouter(t, &mockAuthenticator{user: student}, &mockBookingsService{err: clients.ErrUnauthorized})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard/bookings", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, renderer.data.Data.(views.BookingsData).Error)
		assert.Equal(t, session.StatusPresent, store.Snapshot().Status)
	})

	t.Run("rejected credentials of an ended session", func(t *testing.T) {
		auth := &mockAuthenticator{user: student}
		router, renderer, store := setupDashboardRouter(t, auth, &mockBookingsService{err: clients.ErrUnauthorized})

		// the session ended on the API side
		auth.mu.Lock()
		auth.user = nil
		auth.mu.Unlock()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard/bookings", nil))

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/dashboard/bookings", w.Header().Get("Location"))
		assert.Equal(t, 0, renderer.calls)
		assert.Equal(t, session.StatusAbsent, store.Snapshot().Status)
	})
}

func TestDashboardHandler_UpdateProfile(t *testing.T) {
	student := &models.User{ID: "u1", Name: "Ann", Email: "ann@example.com", Role: models.RoleStudent, Bio: "old"}

	t.Run("merges submitted fields", func(t *testing.T) {
		router, _, store := setupDashboardRouter(t, &mockAuthenticator{user: student}, &mockBookingsService{})

		form := url.Values{"name": {"Annie"}, "email": {""}, "bio": {""}, "avatar": {"https://cdn.example.com/a.png"}}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, postForm("/dashboard/profile", form))

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/dashboard/profile", w.Header().Get("Location"))
		assert.True(t, hasCookie(w.Result(), flash.CookieName))

		user := store.Snapshot().User
		require.NotNil(t, user)
		assert.Equal(t, "Annie", user.Name)
		assert.Equal(t, "ann@example.com", user.Email)
		assert.Equal(t, "", user.Bio)
		assert.Equal(t, "https://cdn.example.com/a.png", user.Avatar)
		assert.Equal(t, models.RoleStudent, user.Role)
		assert.Equal(t, "u1", user.ID)
	})

	t.Run("invalid fields", func(t *testing.T) {
		router, renderer, store := setupDashboardRouter(t, &mockAuthenticator{user: student}, &mockBookingsService{})

		form := url.Values{"name": {""}, "email": {"broken"}}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, postForm("/dashboard/profile", form))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, views.PageStudentProfile, renderer.page)
		assert.Contains(t, renderer.data.Errors, "name")
		assert.Contains(t, renderer.data.Errors, "email")
		assert.Equal(t, "broken", renderer.data.Form["email"])
		assert.Equal(t, "Ann", store.Snapshot().User.Name)
	})
}

func TestDashboardHandler_Admin(t *testing.T) {
	router, renderer, _ := setupDashboardRouter(t, &mockAuthenticator{user: &models.User{ID: "u3", Role: models.RoleAdmin}}, &mockBookingsService{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))

	require.Equal(t, http.StatusOK, w.Code)
	data, ok := renderer.data.Data.(views.AdminData)
	require.True(t, ok)
	assert.Equal(t, 7, data.ActiveSessions)
	assert.Equal(t, views.AreaAdmin, renderer.data.Area)
}
