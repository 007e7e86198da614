package handlers

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutorhub/frontend/internal/clients"
	"github.com/tutorhub/frontend/internal/models"
	"github.com/tutorhub/frontend/internal/session"
	"github.com/tutorhub/frontend/internal/views"
	"go.uber.org/zap"
)

// mockAuthenticator is a mock implementation of session.Authenticator.
// SignIn succeeds for password "Secret123!" and logs in signInUser.
type mockAuthenticator struct {
	mu         sync.Mutex
	user       *models.User
	signInUser *models.User
	signOuts   int
}

func (m *mockAuthenticator) GetSession(ctx context.Context, creds models.Credentials) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user.Clone(), nil
}

func (m *mockAuthenticator) SignIn(ctx context.Context, email, password string) (models.Credentials, error) {
	if password != "Secret123!" {
		return models.Credentials{}, clients.ErrUnauthorized
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = m.signInUser.Clone()
	return models.Credentials{AccessToken: "acc", RefreshToken: "ref"}, nil
}

func (m *mockAuthenticator) SignOut(ctx context.Context, creds models.Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signOuts++
	m.user = nil
	return nil
}

func (m *mockAuthenticator) Refresh(ctx context.Context, creds models.Credentials) (models.Credentials, error) {
	return creds, nil
}

// newTestStore returns a settled store; a nil user yields an absent session
func newTestStore(t *testing.T, auth *mockAuthenticator) *session.Store {
	t.Helper()
	creds := models.Credentials{}
	if auth.user != nil {
		creds = models.Credentials{AccessToken: "acc", RefreshToken: "ref"}
	}
	store := session.NewStore("0f8fad5b-d9cb-469f-a165-70867728950e", auth, creds, zap.NewNop())
	store.CheckAuth(context.Background())
	t.Cleanup(store.Close)
	return store
}

// withStore attaches the store to every request, standing in for the session middleware
func withStore(store *session.Store, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(session.WithStore(r.Context(), store)))
	})
}

// mockRenderer is a mock implementation of Renderer recording the last render
type mockRenderer struct {
	page   string
	status int
	data   views.PageData
	calls  int
}

func (m *mockRenderer) Render(w http.ResponseWriter, r *http.Request, status int, page string, data views.PageData) {
	m.page = page
	m.status = status
	m.data = data
	m.calls++
	w.WriteHeader(status)
}

// mockCatalogService is a mock implementation of CatalogService
type mockCatalogService struct {
	page       *models.TutorPage
	tutor      *models.Tutor
	err        error
	lastFilter models.TutorFilter
	lastID     string
}

func (m *mockCatalogService) ListTutors(ctx context.Context, filter models.TutorFilter) (*models.TutorPage, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, m.err
	}
	return m.page, nil
}

func (m *mockCatalogService) GetTutor(ctx context.Context, id string) (*models.Tutor, error) {
	m.lastID = id
	if m.err != nil {
		return nil, m.err
	}
	return m.tutor, nil
}

// mockBookingsService is a mock implementation of BookingsService
type mockBookingsService struct {
	bookings  []models.Booking
	err       error
	lastCreds models.Credentials
}

func (m *mockBookingsService) ListBookings(ctx context.Context, creds models.Credentials) ([]models.Booking, error) {
	m.lastCreds = creds
	if m.err != nil {
		return nil, m.err
	}
	return m.bookings, nil
}

// mockRegistrationService is a mock implementation of RegistrationService
type mockRegistrationService struct {
	response   map[string]any
	err        error
	lastFields map[string]any
}

func (m *mockRegistrationService) Register(ctx context.Context, fields map[string]any) (map[string]any, error) {
	m.lastFields = fields
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

// mockSessionCounter is a mock implementation of SessionCounter
type mockSessionCounter int

func (m mockSessionCounter) Len() int {
	return int(m)
}

func hasCookie(resp *http.Response, name string) bool {
	for _, c := range resp.Cookies() {
		if c.Name == name && c.MaxAge >= 0 {
			return true
		}
	}
	return false
}

const plantedSessionID = "0f8fad5b-d9cb-469f-a165-70867728abcd"

// withSessionMiddleware puts a real session manager in front of next
func withSessionMiddleware(t *testing.T, auth *mockAuthenticator, next http.Handler) (http.Handler, *session.Manager) {
	t.Helper()
	manager := session.NewManager(auth, session.NewMemoryRegistry(), zap.NewNop(), session.ManagerOptions{TTL: time.Hour})
	t.Cleanup(manager.Close)
	return session.Middleware(manager, session.CookieConfig{Name: "tutorhub_sid", MaxAge: time.Hour})(next), manager
}

// assertSessionRenewed checks that the response moved the session away from the planted id
func assertSessionRenewed(t *testing.T, manager *session.Manager, resp *http.Response) {
	t.Helper()
	var issued []string
	for _, c := range resp.Cookies() {
		if c.Name == "tutorhub_sid" {
			issued = append(issued, c.Value)
		}
	}
	require.Len(t, issued, 1)
	assert.NotEqual(t, plantedSessionID, issued[0])

	_, ok := manager.Lookup(plantedSessionID)
	assert.False(t, ok)
	store, ok := manager.Lookup(issued[0])
	require.True(t, ok)
	assert.NotNil(t, store.Snapshot().User)
}
