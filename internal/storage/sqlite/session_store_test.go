package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/syntra/backend/internal/model/chat"
)

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *SessionStore {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db.Sessions()
}

func sessionAt(id, owner string, updated time.Time) chat.Session {
	s := chat.NewSession(id, owner, base)
	s.Append(chat.Message{ID: id + "-u", Role: chat.RoleUser, Content: "hello " + id, CreatedAt: base}, updated)
	return *s
}

func TestPutGetRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	want := sessionAt("s1", "u1", base.Add(time.Minute))
	want.Append(chat.Message{ID: "s1-a", Role: chat.RoleAssistant, Content: "sorry", Failed: true, CreatedAt: base}, base.Add(2*time.Minute))

	require.NoError(t, store.Put(ctx, want))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestGetMissing(t *testing.T) {
	store := newStore(t)
	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
}

func TestListOrdersByRecencyPerOwner(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, sessionAt("old", "u1", base.Add(time.Minute))))
	require.NoError(t, store.Put(ctx, sessionAt("new", "u1", base.Add(time.Hour))))
	require.NoError(t, store.Put(ctx, sessionAt("other", "u2", base.Add(2*time.Hour))))

	list, err := store.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "old", list[1].ID)

	empty, err := store.List(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPutReplacesAndKeepsCreatedAt(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	first := sessionAt("s1", "u1", base.Add(time.Minute))
	require.NoError(t, store.Put(ctx, first))

	second := first.Clone()
	second.CreatedAt = base.Add(time.Hour)
	second.Append(chat.Message{ID: "s1-a", Role: chat.RoleAssistant, Content: "Hi", CreatedAt: base}, base.Add(3*time.Minute))
	require.NoError(t, store.Put(ctx, second))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, got.Messages, 2)
	assert.Equal(t, base, got.CreatedAt)
	assert.Equal(t, base.Add(3*time.Minute), got.LastUpdatedAt)
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, sessionAt("s1", "u1", base)))

	require.NoError(t, store.Delete(ctx, "s1"))
	require.NoError(t, store.Delete(ctx, "s1"))
	_, err := store.Get(ctx, "s1")
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
}

func TestMemoryDatabase(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	store := db.Sessions()

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, sessionAt("s1", "u1", base)))
	list, err := store.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
