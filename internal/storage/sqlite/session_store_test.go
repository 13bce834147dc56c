package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/survey-chat/backend/internal/model/session"
	"github.com/zhouzirui/survey-chat/backend/internal/model/user"
)

func openTestStore(t *testing.T) *SessionStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSessionStoreRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	item := session.Session{
		ID: "sid-1",
		User: &user.Profile{
			ID:          "1001",
			Provider:    "google",
			DisplayName: "Grace Hopper",
			Emails:      []user.Email{{Value: "grace@example.com", Verified: true}},
		},
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, store.Set(ctx, item))

	got, err := store.Get(ctx, "sid-1")
	require.NoError(t, err)
	require.NotNil(t, got.User)
	assert.Equal(t, "Grace Hopper", got.User.DisplayName)
	assert.Equal(t, "grace@example.com", got.User.PrimaryEmail())
	assert.True(t, got.ExpiresAt.Equal(item.ExpiresAt))

	require.NoError(t, store.Destroy(ctx, "sid-1"))
	_, err = store.Get(ctx, "sid-1")
	assert.True(t, errors.Is(err, session.ErrNotFound))
}

func TestSessionStoreUpsert(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Set(ctx, session.Session{ID: "s", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, store.Set(ctx, session.Session{
		ID:        "s",
		User:      &user.Profile{ID: "7"},
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}))

	got, err := store.Get(ctx, "s")
	require.NoError(t, err)
	require.NotNil(t, got.User)
	assert.Equal(t, "7", got.User.ID)
}

func TestSessionStoreExpiry(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base.Add(2 * time.Hour) }

	require.NoError(t, store.Set(ctx, session.Session{ID: "old", CreatedAt: base, ExpiresAt: base.Add(time.Hour)}))
	require.NoError(t, store.Set(ctx, session.Session{ID: "new", CreatedAt: base, ExpiresAt: base.Add(3 * time.Hour)}))

	_, err := store.Get(ctx, "old")
	assert.True(t, errors.Is(err, session.ErrNotFound))

	removed, err := store.Sweep(ctx, base.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.Get(ctx, "new")
	assert.NoError(t, err)
}
