package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tutorhub/frontend/internal/models"
)

// ErrNoCredentials is returned by a Registry when nothing is stored for a session id
var ErrNoCredentials = errors.New("no credentials stored for session")

// Registry persists the credentials of browsing sessions between requests and restarts.
type Registry interface {
	// Method Load retrieves the credentials stored for the session id.
	//
	// If nothing is stored or the entry expired, ErrNoCredentials is returned together with empty credentials.
	Load(ctx context.Context, sid string) (models.Credentials, error)
	// Method Save stores the credentials for the session id for the given ttl.
	Save(ctx context.Context, sid string, creds models.Credentials, ttl time.Duration) error
	// Method Delete removes the credentials stored for the session id. Deleting a missing entry is not an error.
	Delete(ctx context.Context, sid string) error
}

type memoryEntry struct {
	creds     models.Credentials
	expiresAt time.Time
}

// MemoryRegistry keeps credentials in process memory
type MemoryRegistry struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryRegistry creates an empty in-memory registry
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Load implements Registry
func (r *MemoryRegistry) Load(ctx context.Context, sid string) (models.Credentials, error) {
	r.mu.RLock()
	entry, ok := r.entries[sid]
	r.mu.RUnlock()

	if !ok {
		return models.Credentials{}, ErrNoCredentials
	}
	if !entry.expiresAt.IsZero() && !r.now().Before(entry.expiresAt) {
		r.mu.Lock()
		delete(r.entries, sid)
		r.mu.Unlock()
		return models.Credentials{}, ErrNoCredentials
	}
	return entry.creds, nil
}

// Save implements Registry. A non-positive ttl never expires.
func (r *MemoryRegistry) Save(ctx context.Context, sid string, creds models.Credentials, ttl time.Duration) error {
	entry := memoryEntry{creds: creds}
	if ttl > 0 {
		entry.expiresAt = r.now().Add(ttl)
	}

	r.mu.Lock()
	r.entries[sid] = entry
	r.mu.Unlock()
	return nil
}

// Purge deletes every entry expired at now and returns how many were removed
func (r *MemoryRegistry) Purge(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	purged := 0
	for sid, entry := range r.entries {
		if !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt) {
			delete(r.entries, sid)
			purged++
		}
	}
	return purged
}

// Len returns the number of stored entries, expired ones included
func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Delete implements Registry
func (r *MemoryRegistry) Delete(ctx context.Context, sid string) error {
	r.mu.Lock()
	delete(r.entries, sid)
	r.mu.Unlock()
	return nil
}
