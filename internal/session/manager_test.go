package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutorhub/frontend/internal/models"
	"go.uber.org/zap"
)

// failingRegistry is a Registry whose every call fails
type failingRegistry struct{}

func (failingRegistry) Load(ctx context.Context, sid string) (models.Credentials, error) {
	return models.Credentials{}, errors.New("registry down")
}

func (failingRegistry) Save(ctx context.Context, sid string, creds models.Credentials, ttl time.Duration) error {
	return errors.New("registry down")
}

func (failingRegistry) Delete(ctx context.Context, sid string) error {
	return errors.New("registry down")
}

func waitSettled(t *testing.T, store *Store) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	snap := store.Wait(ctx)
	require.False(t, snap.Loading(), "store did not settle")
	return snap
}

func TestManager_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("seeds store from registry and checks once", func(t *testing.T) {
		auth := &mockAuthenticator{user: testUser(models.RoleStudent)}
		registry := NewMemoryRegistry()
		creds := models.Credentials{AccessToken: "acc"}
		require.NoError(t, registry.Save(ctx, "sid-1", creds, time.Hour))

		manager := NewManager(auth, registry, zap.NewNop(), ManagerOptions{TTL: time.Hour})
		defer manager.Close()

		store := manager.Get(ctx, "sid-1")
		snap := waitSettled(t, store)

		assert.Equal(t, StatusPresent, snap.Status)
		assert.Equal(t, creds, store.Credentials())
		assert.Same(t, store, manager.Get(ctx, "sid-1"))
		assert.Equal(t, 1, manager.Len())

		sessionCalls, _, _ := auth.calls()
		assert.Equal(t, 1, sessionCalls)
	})

	t.Run("unknown session settles absent", func(t *testing.T) {
		manager := NewManager(&mockAuthenticator{}, NewMemoryRegistry(), zap.NewNop(), ManagerOptions{})
		defer manager.Close()

		snap := waitSettled(t, manager.Get(ctx, "sid-2"))
		assert.Equal(t, StatusAbsent, snap.Status)
	})

	t.Run("registry failure still yields a store", func(t *testing.T) {
		manager := NewManager(&mockAuthenticator{}, failingRegistry{}, zap.NewNop(), ManagerOptions{})
		defer manager.Close()

		snap := waitSettled(t, manager.Get(ctx, "sid-3"))
		assert.Equal(t, StatusAbsent, snap.Status)
	})

	t.Run("concurrent first use creates one store", func(t *testing.T) {
		manager := NewManager(&mockAuthenticator{}, NewMemoryRegistry(), zap.NewNop(), ManagerOptions{})
		defer manager.Close()

		stores := make([]*Store, 16)
		var wg sync.WaitGroup
		for i := range stores {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				stores[i] = manager.Get(ctx, "shared")
			}(i)
		}
		wg.Wait()

		for _, store := range stores {
			assert.Same(t, stores[0], store)
		}
		assert.Equal(t, 1, manager.Len())
	})
}

func TestManager_PersistsCredentialChanges(t *testing.T) {
	ctx := context.Background()
	creds := models.Credentials{AccessToken: "acc", RefreshToken: "ref"}
	auth := &mockAuthenticator{user: testUser(models.RoleTutor), signInCreds: creds}
	registry := NewMemoryRegistry()

	manager := NewManager(auth, registry, zap.NewNop(), ManagerOptions{TTL: time.Hour})
	defer manager.Close()

	store := manager.Get(ctx, "sid")
	waitSettled(t, store)

	require.True(t, store.Login(ctx, "ann@example.com", "Secret123!"))
	saved, err := registry.Load(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, creds, saved)

	store.Logout(ctx)
	_, err = registry.Load(ctx, "sid")
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestManager_Sweep(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	registry := NewMemoryRegistry()
	creds := models.Credentials{AccessToken: "acc"}
	require.NoError(t, registry.Save(ctx, "idle", creds, 0))

	manager := NewManager(&mockAuthenticator{user: testUser(models.RoleStudent)}, registry, zap.NewNop(), ManagerOptions{IdleTimeout: 30 * time.Minute})
	manager.now = func() time.Time { return now }
	defer manager.Close()

	idle := manager.Get(ctx, "idle")
	waitSettled(t, idle)

	now = now.Add(20 * time.Minute)
	active := manager.Get(ctx, "active")
	waitSettled(t, active)

	now = now.Add(15 * time.Minute)
	assert.Equal(t, 1, manager.Sweep())

	_, ok := manager.Lookup("idle")
	assert.False(t, ok)
	_, ok = manager.Lookup("active")
	assert.True(t, ok)
	assert.Error(t, idle.Context().Err())

	// credentials survive eviction
	recreated := manager.Get(ctx, "idle")
	assert.NotSame(t, idle, recreated)
	assert.Equal(t, StatusPresent, waitSettled(t, recreated).Status)
}

func TestManager_SweepDisabled(t *testing.T) {
	manager := NewManager(&mockAuthenticator{}, NewMemoryRegistry(), zap.NewNop(), ManagerOptions{})
	defer manager.Close()

	manager.Get(context.Background(), "sid")
	assert.Equal(t, 0, manager.Sweep())
	assert.Equal(t, 1, manager.Len())
}

func TestManager_StartAndClose(t *testing.T) {
	manager := NewManager(&mockAuthenticator{}, NewMemoryRegistry(), zap.NewNop(), ManagerOptions{SweepSpec: "not a spec"})
	assert.Error(t, manager.Start())

	manager = NewManager(&mockAuthenticator{}, NewMemoryRegistry(), zap.NewNop(), ManagerOptions{IdleTimeout: time.Minute})
	require.NoError(t, manager.Start())

	store := manager.Get(context.Background(), "sid")
	manager.Close()

	assert.Equal(t, 0, manager.Len())
	assert.Error(t, store.Context().Err())
}

func TestValidSessionID(t *testing.T) {
	manager := NewManager(&mockAuthenticator{}, NewMemoryRegistry(), zap.NewNop(), ManagerOptions{})

	assert.True(t, ValidSessionID(manager.NewSessionID()))
	assert.False(t, ValidSessionID(""))
	assert.False(t, ValidSessionID("../etc/passwd"))
}

func TestManager_SweepPurgesExpiredCredentials(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	registry := NewMemoryRegistry()
	registry.now = func() time.Time { return now }
	creds := models.Credentials{AccessToken: "acc"}
	for i := 0; i < 1000; i++ {
		require.NoError(t, registry.Save(ctx, fmt.Sprintf("abandoned-%d", i), creds, time.Minute))
	}
	require.NoError(t, registry.Save(ctx, "kept", creds, 48*time.Hour))

	manager := NewManager(&mockAuthenticator{}, registry, zap.NewNop(), ManagerOptions{IdleTimeout: 30 * time.Minute})
	manager.now = func() time.Time { return now }
	defer manager.Close()

	now = now.Add(24 * time.Hour)
	manager.Sweep()

	assert.Equal(t, 1, registry.Len())
	_, err := registry.Load(ctx, "kept")
	assert.NoError(t, err)
}

func TestManager_Rotate(t *testing.T) {
	ctx := context.Background()

	t.Run("moves store and credentials to a new id", func(t *testing.T) {
		auth := &mockAuthenticator{user: testUser(models.RoleStudent)}
		registry := NewMemoryRegistry()
		creds := models.Credentials{AccessToken: "acc"}
		require.NoError(t, registry.Save(ctx, "old", creds, time.Hour))

		manager := NewManager(auth, registry, zap.NewNop(), ManagerOptions{TTL: time.Hour})
		defer manager.Close()

		store := manager.Get(ctx, "old")
		waitSettled(t, store)

		newSID, rotated := manager.Rotate(ctx, "old")
		assert.Same(t, store, rotated)
		assert.NotEqual(t, "old", newSID)
		assert.True(t, ValidSessionID(newSID))
		assert.Equal(t, newSID, store.ID())

		_, ok := manager.Lookup("old")
		assert.False(t, ok)
		found, ok := manager.Lookup(newSID)
		require.True(t, ok)
		assert.Same(t, store, found)

		_, err := registry.Load(ctx, "old")
		assert.ErrorIs(t, err, ErrNoCredentials)
		loaded, err := registry.Load(ctx, newSID)
		require.NoError(t, err)
		assert.Equal(t, creds, loaded)

		// later credential changes land under the new id
		store.Logout(ctx)
		_, err = registry.Load(ctx, newSID)
		assert.ErrorIs(t, err, ErrNoCredentials)
	})

	t.Run("unknown id yields a fresh store", func(t *testing.T) {
		manager := NewManager(&mockAuthenticator{}, NewMemoryRegistry(), zap.NewNop(), ManagerOptions{})
		defer manager.Close()

		newSID, store := manager.Rotate(ctx, "gone")
		require.NotNil(t, store)
		assert.Equal(t, newSID, store.ID())
		assert.Equal(t, StatusAbsent, waitSettled(t, store).Status)
	})
}
