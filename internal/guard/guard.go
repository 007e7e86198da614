// Package guard decides whether the current browsing session may see a role-gated page
package guard

import (
	"context"
	"net/http"
	"time"

	"github.com/tutorhub/frontend/internal/flash"
	"github.com/tutorhub/frontend/internal/models"
	"github.com/tutorhub/frontend/internal/routes"
	"github.com/tutorhub/frontend/internal/session"
	"go.uber.org/zap"
)

// State is the outcome of a guard evaluation
type State int

const (
	// StateChecking means the session check is still in flight; a neutral placeholder is shown
	StateChecking State = iota
	// StateDeniedRedirecting means the caller is sent elsewhere
	StateDeniedRedirecting
	// StateGranted means the protected content is shown
	StateGranted
)

func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateDeniedRedirecting:
		return "redirect"
	case StateGranted:
		return "granted"
	default:
		return "unknown"
	}
}

// Decision is a guard State together with the redirect target, set only for StateDeniedRedirecting
type Decision struct {
	State    State
	Location string
}

// Decide evaluates a session snapshot against the allowed roles.
//
// Loading yields StateChecking. No user redirects to the login page. A user whose
// role is not allowed is redirected to the home of that role.
func Decide(snap session.Snapshot, allowed []models.Role) Decision {
	switch {
	case snap.Loading():
		return Decision{State: StateChecking}
	case snap.User == nil:
		return Decision{State: StateDeniedRedirecting, Location: routes.Login}
	case !models.ContainsRole(allowed, snap.User.Role):
		return Decision{State: StateDeniedRedirecting, Location: HomeFor(snap.User.Role)}
	default:
		return Decision{State: StateGranted}
	}
}

// HomeFor returns the landing page of a role. Unrecognised roles land on the public home page.
func HomeFor(role models.Role) string {
	switch role {
	case models.RoleStudent:
		return routes.StudentDashboard
	case models.RoleTutor:
		return routes.TutorDashboard
	case models.RoleAdmin:
		return routes.AdminDashboard
	default:
		return routes.Home
	}
}

// Guard applies Decide to HTTP requests
type Guard struct {
	settleTimeout time.Duration
	placeholder   http.Handler
	logger        *zap.Logger
}

// NewGuard creates a new guard.
// settleTimeout bounds how long a request waits for a loading session to settle
// before the placeholder is served. placeholder renders the neutral loading page.
func NewGuard(settleTimeout time.Duration, placeholder http.Handler, logger *zap.Logger) *Guard {
	return &Guard{
		settleTimeout: settleTimeout,
		placeholder:   placeholder,
		logger:        logger,
	}
}

// Require returns a middleware letting through only sessions whose user has one of the roles.
// A request that still finds the session loading gets the placeholder, or 503 with Retry-After
// when it is not a GET or HEAD.
func (g *Guard) Require(roles ...models.Role) func(http.Handler) http.Handler {
	allowed := append([]models.Role(nil), roles...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store, ok := session.FromContext(r.Context())
			if !ok {
				g.logger.Error("no session attached to request", zap.String("path", r.URL.Path))
				http.Redirect(w, r, routes.Login, http.StatusSeeOther)
				return
			}

			snap := store.Snapshot()
			if snap.Loading() && g.settleTimeout > 0 {
				ctx, cancel := context.WithTimeout(r.Context(), g.settleTimeout)
				snap = store.Wait(ctx)
				cancel()
			}

			decision := Decide(snap, allowed)
			switch decision.State {
			case StateGranted:
				next.ServeHTTP(w, r)
			case StateChecking:
				w.Header().Set("Cache-Control", "no-store")
				if r.Method != http.MethodGet && r.Method != http.MethodHead {
					// the placeholder reloads with GET, which would drop a submitted form
					w.Header().Set("Retry-After", "1")
					http.Error(w, "Your session is still being checked. Please submit again.", http.StatusServiceUnavailable)
					return
				}
				g.placeholder.ServeHTTP(w, r)
			case StateDeniedRedirecting:
				if snap.User != nil {
					g.logger.Info("access denied",
						zap.String("path", r.URL.Path),
						zap.String("role", snap.User.Role.String()),
						zap.String("redirect", decision.Location),
					)
					flash.Set(w, flash.AccessDenied)
				}
				http.Redirect(w, r, decision.Location, http.StatusSeeOther)
			}
		})
	}
}

// Watch re-evaluates the decision on every state change of the store.
//
// The current decision is sent first; afterwards a decision is sent only when it
// differs from the previous one. The channel is closed when ctx is done or the
// store is closed.
func Watch(ctx context.Context, store *session.Store, allowed []models.Role) <-chan Decision {
	out := make(chan Decision, 1)
	updates, unsubscribe := store.Subscribe()

	go func() {
		defer close(out)
		defer unsubscribe()

		last := Decide(store.Snapshot(), allowed)
		select {
		case out <- last:
		case <-ctx.Done():
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-updates:
				if !ok {
					return
				}
				decision := Decide(snap, allowed)
				if decision == last {
					continue
				}
				last = decision
				select {
				case out <- decision:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}
