package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/tutorhub/frontend/internal/models"
	"go.uber.org/zap"
)

// ManagerOptions configures a Manager
type ManagerOptions struct {
	// TTL is how long credentials stay in the registry after the last change
	TTL time.Duration
	// IdleTimeout is how long an unused store stays in memory
	IdleTimeout time.Duration
	// SweepSpec is the cron spec of the idle sweep, "@every 1m" by default
	SweepSpec string
}

// Manager keeps one Store per browsing session id
type Manager struct {
	auth     Authenticator
	registry Registry
	logger   *zap.Logger
	opts     ManagerOptions
	now      func() time.Time

	mu     sync.RWMutex
	stores map[string]*Store

	cron *cron.Cron
}

// NewManager creates a new session manager
func NewManager(auth Authenticator, registry Registry, logger *zap.Logger, opts ManagerOptions) *Manager {
	if opts.SweepSpec == "" {
		opts.SweepSpec = "@every 1m"
	}
	return &Manager{
		auth:     auth,
		registry: registry,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
		stores:   make(map[string]*Store),
	}
}

// NewSessionID returns a fresh random session id
func (m *Manager) NewSessionID() string {
	return uuid.NewString()
}

// ValidSessionID reports whether sid looks like an id issued by NewSessionID
func ValidSessionID(sid string) bool {
	_, err := uuid.Parse(sid)
	return err == nil
}

// Get returns the store of the session, creating it on first use.
// A new store is seeded with the registry's credentials and performs exactly
// one unsolicited CheckAuth, bound to the store lifetime.
func (m *Manager) Get(ctx context.Context, sid string) *Store {
	m.mu.RLock()
	store, ok := m.stores[sid]
	m.mu.RUnlock()
	if ok {
		store.Touch()
		return store
	}

	creds, err := m.registry.Load(ctx, sid)
	if err != nil && !errors.Is(err, ErrNoCredentials) {
		m.logger.Warn("failed to load session credentials", zap.Error(err))
	}

	m.mu.Lock()
	if existing, ok := m.stores[sid]; ok {
		m.mu.Unlock()
		existing.Touch()
		return existing
	}
	store = NewStore(sid, m.auth, creds, m.logger)
	store.now = m.now
	store.Touch()
	store.onCredentials = func(c models.Credentials) { m.persist(store.ID(), c) }
	m.stores[sid] = store
	m.mu.Unlock()

	go store.CheckAuth(store.Context())

	return store
}

// Rotate moves the store of oldSID to a fresh session id and returns it.
// Stored credentials follow the store and nothing is left under oldSID.
// Call it whenever the session gains a login, so an id known before the login is worthless after it.
func (m *Manager) Rotate(ctx context.Context, oldSID string) (string, *Store) {
	newSID := m.NewSessionID()

	m.mu.Lock()
	store, ok := m.stores[oldSID]
	if ok {
		delete(m.stores, oldSID)
		m.stores[newSID] = store
	}
	m.mu.Unlock()

	if err := m.registry.Delete(ctx, oldSID); err != nil {
		m.logger.Warn("failed to delete rotated session credentials", zap.String("session_id", shortID(oldSID)), zap.Error(err))
	}
	if !ok {
		return newSID, m.Get(ctx, newSID)
	}

	store.rekey(newSID)
	store.Touch()
	if creds := store.Credentials(); !creds.IsZero() {
		m.persist(newSID, creds)
	}
	return newSID, store
}

// Lookup returns an existing store without creating one
func (m *Manager) Lookup(sid string) (*Store, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	store, ok := m.stores[sid]
	return store, ok
}

// Len returns the number of live stores
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.stores)
}

// purger is implemented by registries that do not expire entries on their own
type purger interface {
	Purge(now time.Time) int
}

// Sweep closes and evicts stores idle for longer than IdleTimeout.
// Their credentials stay in the registry, so the next request recreates the store.
// Registries that implement Purge drop their expired entries in the same pass.
func (m *Manager) Sweep() int {
	if p, ok := m.registry.(purger); ok {
		if purged := p.Purge(m.now()); purged > 0 {
			m.logger.Debug("purged expired session credentials", zap.Int("count", purged))
		}
	}

	if m.opts.IdleTimeout <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.opts.IdleTimeout)

	var idle []*Store
	m.mu.Lock()
	for sid, store := range m.stores {
		if store.LastSeen().Before(cutoff) {
			idle = append(idle, store)
			delete(m.stores, sid)
		}
	}
	m.mu.Unlock()

	for _, store := range idle {
		store.Close()
	}
	if len(idle) > 0 {
		m.logger.Debug("evicted idle sessions", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// Start schedules the idle sweep
func (m *Manager) Start() error {
	c := cron.New()
	if _, err := c.AddFunc(m.opts.SweepSpec, func() { m.Sweep() }); err != nil {
		return err
	}
	c.Start()

	m.mu.Lock()
	m.cron = c
	m.mu.Unlock()
	return nil
}

// Close stops the sweep and closes every store
func (m *Manager) Close() {
	m.mu.Lock()
	c := m.cron
	m.cron = nil
	stores := m.stores
	m.stores = make(map[string]*Store)
	m.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
	for _, store := range stores {
		store.Close()
	}
}

func (m *Manager) persist(sid string, creds models.Credentials) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	if creds.IsZero() {
		err = m.registry.Delete(ctx, sid)
	} else {
		err = m.registry.Save(ctx, sid, creds, m.opts.TTL)
	}
	if err != nil {
		m.logger.Warn("failed to persist session credentials", zap.String("session_id", shortID(sid)), zap.Error(err))
	}
}
