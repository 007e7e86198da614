// Package session holds the server-side state of each browsing session:
// who is logged in, and the credentials issued for them by the auth API.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tutorhub/frontend/internal/clients"
	"github.com/tutorhub/frontend/internal/models"
	"go.uber.org/zap"
)

// Status is the authentication state of a browsing session
type Status int

// Status constants. A store starts in StatusLoading.
const (
	StatusLoading Status = iota
	StatusAbsent
	StatusPresent
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusAbsent:
		return "absent"
	case StatusPresent:
		return "present"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time copy of a store's state.
// User is non-nil exactly when Status is StatusPresent.
type Snapshot struct {
	Status Status       `json:"-"`
	User   *models.User `json:"user"`
}

// Loading reports whether the first session check is still in flight.
func (s Snapshot) Loading() bool {
	return s.Status == StatusLoading
}

// Role returns the role of the current user, or RoleUnknown when nobody is logged in.
func (s Snapshot) Role() models.Role {
	if s.User == nil {
		return models.RoleUnknown
	}
	return s.User.Role
}

// Authenticator is the interface that wraps the auth API operations the store depends on.
type Authenticator interface {
	// Method GetSession retrieves the user owning the credentials.
	//
	// If the credentials do not belong to a live session, "nil" user and "nil" error are returned.
	GetSession(ctx context.Context, creds models.Credentials) (*models.User, error)
	// Method SignIn submits email and password and returns the issued credentials.
	//
	// If the credentials are rejected or the call fails, the error will be returned together with empty credentials.
	SignIn(ctx context.Context, email, password string) (models.Credentials, error)
	// Method SignOut invalidates the session owning the credentials.
	SignOut(ctx context.Context, creds models.Credentials) error
	// Method Refresh exchanges the refresh token for a new credential pair.
	Refresh(ctx context.Context, creds models.Credentials) (models.Credentials, error)
}

// Store is the single authority on who is logged in for one browsing session.
//
// Every CheckAuth, Login and Logout bumps a generation counter. A CheckAuth
// result that finishes after a newer call started is dropped, so a Logout
// racing an older CheckAuth always wins.
type Store struct {
	auth   Authenticator
	logger *zap.Logger
	now    func() time.Time

	// onCredentials is called outside the lock whenever the credentials change
	onCredentials func(models.Credentials)

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	id      string
	status  Status
	user    *models.User
	creds   models.Credentials
	gen     uint64
	subs    map[int]chan Snapshot
	nextSub int
	closed  bool

	lastSeen atomic.Int64
}

// NewStore creates a store in the loading state holding the given credentials.
// It does not contact the auth API; the caller decides when the first CheckAuth runs.
func NewStore(id string, auth Authenticator, creds models.Credentials, logger *zap.Logger) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		id:     id,
		auth:   auth,
		logger: logger,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
		status: StatusLoading,
		creds:  creds,
		subs:   make(map[int]chan Snapshot),
	}
	s.Touch()
	return s
}

// ID returns the browsing session id
func (s *Store) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// rekey moves the store to a new session id
func (s *Store) rekey(id string) {
	s.mu.Lock()
	s.id = id
	s.mu.Unlock()
}

func (s *Store) log() *zap.Logger {
	return s.logger.With(zap.String("session_id", shortID(s.ID())))
}

// Context returns the store lifetime context. It is cancelled by Close.
func (s *Store) Context() context.Context {
	return s.ctx
}

// Snapshot returns the current state
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Credentials returns the credentials currently held for the session
func (s *Store) Credentials() models.Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds
}

// CheckAuth asks the auth API who owns the held credentials.
// A user payload moves the store to present, anything else to absent.
// The loading flag is cleared on every exit path unless a newer call superseded this one.
func (s *Store) CheckAuth(ctx context.Context) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	creds := s.creds
	s.mu.Unlock()

	result := checkResult{creds: creds}
	defer func() { s.settle(ctx, gen, result) }()

	if creds.IsZero() {
		return
	}

	if accessTokenExpiring(creds.AccessToken, s.now()) && creds.RefreshToken != "" {
		fresh, err := s.auth.Refresh(ctx, creds)
		if err != nil {
			s.log().Warn("failed to refresh credentials", zap.Error(err))
			result.dropCreds = errors.Is(err, clients.ErrUnauthorized)
			return
		}
		creds = fresh
		result.creds = fresh
		result.credsChanged = true
	}

	user, err := s.auth.GetSession(ctx, creds)
	if err != nil {
		s.log().Warn("failed to check session", zap.Error(err))
		result.dropCreds = errors.Is(err, clients.ErrUnauthorized)
		return
	}
	if user == nil {
		result.dropCreds = true
		return
	}
	result.user = user
}

// checkResult is what a CheckAuth call observed
type checkResult struct {
	user         *models.User
	creds        models.Credentials
	credsChanged bool
	dropCreds    bool
}

func (s *Store) settle(ctx context.Context, gen uint64, result checkResult) {
	s.mu.Lock()

	if gen != s.gen || s.closed {
		s.mu.Unlock()
		return
	}

	if ctx.Err() != nil {
		// cancelled: drop the result but never leave the store loading
		if s.status == StatusLoading {
			s.status = StatusAbsent
			s.notifyLocked()
		}
		s.mu.Unlock()
		return
	}

	var persist *models.Credentials
	switch {
	case result.dropCreds:
		persist = &models.Credentials{}
		s.creds = *persist
	case result.credsChanged:
		persist = &result.creds
		s.creds = *persist
	}

	if result.user == nil {
		s.status = StatusAbsent
		s.user = nil
	} else {
		s.status = StatusPresent
		s.user = result.user.Clone()
	}
	s.notifyLocked()
	s.mu.Unlock()

	if persist != nil {
		s.persist(*persist)
	}
}

// Login submits the credentials to the auth API.
// On success the issued credentials are stored and CheckAuth runs before Login returns true.
// Failures are logged and reported as false; the stored user is left untouched.
func (s *Store) Login(ctx context.Context, email, password string) bool {
	creds, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		s.log().Warn("login failed", zap.Error(err))
		return false
	}

	s.mu.Lock()
	s.gen++
	s.creds = creds
	s.mu.Unlock()
	s.persist(creds)

	s.CheckAuth(ctx)
	return true
}

// Logout asks the auth API to invalidate the session and then clears the
// stored user and credentials whatever the API answered.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.gen++
	creds := s.creds
	s.mu.Unlock()

	if !creds.IsZero() {
		if err := s.auth.SignOut(ctx, creds); err != nil {
			s.log().Warn("failed to sign out", zap.Error(err))
		}
	}

	s.mu.Lock()
	s.gen++
	s.creds = models.Credentials{}
	s.user = nil
	s.status = StatusAbsent
	s.notifyLocked()
	s.mu.Unlock()

	s.persist(models.Credentials{})
}

// UpdateUser shallow-merges the patch into the stored user.
// It is a no-op when nobody is logged in.
func (s *Store) UpdateUser(patch models.UserPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return
	}
	s.user = s.user.Merge(patch)
	s.notifyLocked()
}

// Subscribe returns a channel receiving the latest snapshot after every change.
// The channel keeps only the most recent snapshot; slow readers skip intermediate states.
// The returned function unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Snapshot, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sub, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(sub)
			}
		})
	}
}

// Wait blocks until the store leaves the loading state or ctx is done,
// and returns the snapshot at that moment.
func (s *Store) Wait(ctx context.Context) Snapshot {
	updates, unsubscribe := s.Subscribe()
	defer unsubscribe()

	snap := s.Snapshot()
	for snap.Loading() {
		select {
		case <-ctx.Done():
			return snap
		case next, ok := <-updates:
			if !ok {
				return s.Snapshot()
			}
			snap = next
		}
	}
	return snap
}

// Touch records activity on the session
func (s *Store) Touch() {
	s.lastSeen.Store(s.now().UnixNano())
}

// LastSeen returns the time of the last recorded activity
func (s *Store) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// Close cancels in-flight work and closes all subscriptions
func (s *Store) Close() {
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{Status: s.status, User: s.user.Clone()}
}

// notifyLocked pushes the current snapshot to every subscriber without blocking
func (s *Store) notifyLocked() {
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap.clone():
		default:
		}
	}
}

func (s Snapshot) clone() Snapshot {
	return Snapshot{Status: s.Status, User: s.User.Clone()}
}

func (s *Store) persist(creds models.Credentials) {
	if s.onCredentials != nil {
		s.onCredentials(creds)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
