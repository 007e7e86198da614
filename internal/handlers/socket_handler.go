package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/tutorhub/frontend/internal/guard"
	"github.com/tutorhub/frontend/internal/models"
	"github.com/tutorhub/frontend/internal/routes"
	"github.com/tutorhub/frontend/internal/session"
	"github.com/tutorhub/frontend/internal/views"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	// clients only answer pings, nothing larger is expected
	maxMessageSize = 512
)

// areaRoles maps a page area to the roles allowed in it. The public area has no guard.
var areaRoles = map[string][]models.Role{
	views.AreaStudent: {models.RoleStudent},
	views.AreaTutor:   {models.RoleTutor},
	views.AreaAdmin:   {models.RoleAdmin},
	views.AreaPublic:  nil,
}

// SessionMessage is pushed to the page whenever the guard decision of its area changes
type SessionMessage struct {
	State    string       `json:"state"`
	Location string       `json:"location,omitempty"`
	User     *models.User `json:"user"`
}

// SocketHandler streams guard decisions to open pages over a websocket
type SocketHandler struct {
	BaseHandler
	upgrader websocket.Upgrader
}

// NewSocketHandler creates a new session socket handler.
// allowedOrigins are the origins permitted to open the socket besides the site itself.
func NewSocketHandler(allowedOrigins []string, logger *zap.Logger) *SocketHandler {
	h := &SocketHandler{BaseHandler: BaseHandler{logger: logger}}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

// RegisterRoutes registers the session socket route
func (h *SocketHandler) RegisterRoutes(r chi.Router) {
	r.Get(routes.SessionSocket, h.Serve)
}

// Serve handles GET /ws/session?area=<student|tutor|admin|public>
func (h *SocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	store, ok := session.FromContext(r.Context())
	if !ok {
		h.logger.Error("no session attached to request", zap.String("path", r.URL.Path))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	area := r.URL.Query().Get("area")
	if area == "" {
		area = views.AreaPublic
	}
	allowed, known := areaRoles[area]
	if !known {
		http.Error(w, "unknown area", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already answered the request
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// a hijacked connection never cancels the request context; the read pump does instead
	ctx, cancel := context.WithCancel(store.Context())
	defer cancel()
	go h.readPump(conn, store, cancel)

	h.writePump(ctx, conn, store, area, allowed)
}

// readPump consumes control frames and cancels ctx when the peer goes away.
// Every frame from the peer counts as activity, so an open page keeps its session from the idle sweep.
func (h *SocketHandler) readPump(conn *websocket.Conn, store *session.Store, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		store.Touch()
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				h.logger.Debug("session socket closed", zap.Error(err))
			}
			return
		}
		store.Touch()
	}
}

func (h *SocketHandler) writePump(ctx context.Context, conn *websocket.Conn, store *session.Store, area string, allowed []models.Role) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	var decisions <-chan guard.Decision
	var updates <-chan session.Snapshot
	if area == views.AreaPublic {
		var unsubscribe func()
		updates, unsubscribe = store.Subscribe()
		defer unsubscribe()
		if !h.send(conn, SessionMessage{State: guard.StateGranted.String(), User: store.Snapshot().User}) {
			return
		}
	} else {
		decisions = guard.Watch(ctx, store, allowed)
	}

	for {
		select {
		case <-ctx.Done():
			h.close(conn)
			return

		case decision, ok := <-decisions:
			if !ok {
				h.close(conn)
				return
			}
			msg := SessionMessage{State: decision.State.String(), Location: decision.Location, User: store.Snapshot().User}
			if !h.send(conn, msg) {
				return
			}
			if decision.State == guard.StateDeniedRedirecting {
				h.close(conn)
				return
			}

		case snap, ok := <-updates:
			if !ok {
				h.close(conn)
				return
			}
			if !h.send(conn, SessionMessage{State: guard.StateGranted.String(), User: snap.User}) {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *SocketHandler) send(conn *websocket.Conn, msg SessionMessage) bool {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Debug("failed to write session message", zap.Error(err))
		return false
	}
	return true
}

func (h *SocketHandler) close(conn *websocket.Conn) {
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

// originChecker allows same-host requests and the configured origins.
// The socket always carries the session cookie, so "*" is not honoured here.
func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin != "*" {
			allowed[origin] = true
		}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowed[origin] {
			return true
		}
		return origin == "http://"+r.Host || origin == "https://"+r.Host
	}
}
