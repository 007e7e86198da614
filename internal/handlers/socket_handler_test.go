package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutorhub/frontend/internal/models"
	"github.com/tutorhub/frontend/internal/session"
	"go.uber.org/zap"
)

func setupSocketServer(t *testing.T, store *session.Store) *httptest.Server {
	t.Helper()
	handler := NewSocketHandler(nil, zap.NewNop())

	r := chi.NewRouter()
	handler.RegisterRoutes(r)

	server := httptest.NewServer(withStore(store, r))
	t.Cleanup(server.Close)
	return server
}

func dialSession(t *testing.T, server *httptest.Server, area string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/session?area=" + area
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) SessionMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg SessionMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestSocketHandler_RedirectsWhenSessionEnds(t *testing.T) {
	auth := &mockAuthenticator{user: &models.User{ID: "u1", Name: "Ann", Role: models.RoleStudent}}
	store := newTestStore(t, auth)
	server := setupSocketServer(t, store)

	conn := dialSession(t, server, "student")

	msg := readMessage(t, conn)
	assert.Equal(t, "granted", msg.State)
	require.NotNil(t, msg.User)
	assert.Equal(t, "Ann", msg.User.Name)

	store.Logout(context.Background())

	msg = readMessage(t, conn)
	assert.Equal(t, "redirect", msg.State)
	assert.Equal(t, "/login", msg.Location)
	assert.Nil(t, msg.User)

	// the server closes the socket after a redirect
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestSocketHandler_WrongRole(t *testing.T) {
	store := newTestStore(t, &mockAuthenticator{user: &models.User{ID: "u1", Role: models.RoleTutor}})
	server := setupSocketServer(t, store)

	conn := dialSession(t, server, "admin")

	msg := readMessage(t, conn)
	assert.Equal(t, "redirect", msg.State)
	assert.Equal(t, "/tutor/dashboard", msg.Location)
}

func TestSocketHandler_PublicArea(t *testing.T) {
	store := newTestStore(t, &mockAuthenticator{user: &models.User{ID: "u1", Name: "Ann", Role: models.RoleStudent}})
	server := setupSocketServer(t, store)

	conn := dialSession(t, server, "public")

	msg := readMessage(t, conn)
	assert.Equal(t, "granted", msg.State)
	require.NotNil(t, msg.User)

	name := "Annie"
	store.UpdateUser(models.UserPatch{Name: &name})

	msg = readMessage(t, conn)
	assert.Equal(t, "granted", msg.State)
	require.NotNil(t, msg.User)
	assert.Equal(t, "Annie", msg.User.Name)
}

func TestSocketHandler_UnknownArea(t *testing.T) {
	store := newTestStore(t, &mockAuthenticator{})
	server := setupSocketServer(t, store)

	resp, err := http.Get(server.URL + "/ws/session?area=moderator")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOriginChecker(t *testing.T) {
	tests := []struct {
		name     string
		allowed  []string
		origin   string
		expected bool
	}{
		{name: "no origin", allowed: []string{"https://tutorhub.example"}, origin: "", expected: true},
		{name: "wildcard is ignored", allowed: []string{"*"}, origin: "https://evil.example", expected: false},
		{name: "empty list foreign", allowed: nil, origin: "https://evil.example", expected: false},
		{name: "empty list same host", allowed: nil, origin: "http://example.com", expected: true},
		{name: "listed", allowed: []string{"https://tutorhub.example"}, origin: "https://tutorhub.example", expected: true},
		{name: "same host", allowed: []string{"https://tutorhub.example"}, origin: "http://example.com", expected: true},
		{name: "foreign", allowed: []string{"https://tutorhub.example"}, origin: "https://evil.example", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws/session", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.expected, originChecker(tt.allowed)(req))
		})
	}
}

func TestSocketHandler_OpenSocketKeepsSessionActive(t *testing.T) {
	store := newTestStore(t, &mockAuthenticator{user: &models.User{ID: "u1", Role: models.RoleStudent}})
	server := setupSocketServer(t, store)

	conn := dialSession(t, server, "student")
	readMessage(t, conn)

	before := store.LastSeen()
	time.Sleep(20 * time.Millisecond)

	// browsers answer the server's pings with pongs
	require.NoError(t, conn.WriteControl(websocket.PongMessage, nil, time.Now().Add(time.Second)))
	assert.Eventually(t, func() bool {
		return store.LastSeen().After(before)
	}, 2*time.Second, 10*time.Millisecond)

	touched := store.LastSeen()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	assert.Eventually(t, func() bool {
		return store.LastSeen().After(touched)
	}, 2*time.Second, 10*time.Millisecond)
}
