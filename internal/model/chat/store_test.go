package chat_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/syntra/backend/internal/model/chat"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func sessionAt(id, owner string, offset time.Duration) chat.Session {
	s := chat.NewSession(id, owner, base)
	s.Append(chat.Message{ID: id + "-m1", Role: chat.RoleUser, Content: "hi " + id, CreatedAt: base}, base.Add(offset))
	return *s
}

func TestMemoryStoreListSortedByLastUpdated(t *testing.T) {
	store := chat.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, sessionAt("a", "u1", time.Minute)))
	require.NoError(t, store.Put(ctx, sessionAt("b", "u1", 3*time.Minute)))
	require.NoError(t, store.Put(ctx, sessionAt("c", "u1", 2*time.Minute)))
	require.NoError(t, store.Put(ctx, sessionAt("d", "u2", 9*time.Minute)))

	list, err := store.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{list[0].ID, list[1].ID, list[2].ID})
}

func TestMemoryStorePutGetRoundTrip(t *testing.T) {
	store := chat.NewMemoryStore()
	ctx := context.Background()
	session := sessionAt("a", "u1", time.Second)

	require.NoError(t, store.Put(ctx, session))
	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, session, got)

	// Mutating the returned value must not leak into the store.
	got.Messages[0].Content = "changed"
	again, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "hi a", again.Messages[0].Content)
}

func TestMemoryStorePutReplacesWholesale(t *testing.T) {
	store := chat.NewMemoryStore()
	ctx := context.Background()
	session := sessionAt("a", "u1", time.Second)
	require.NoError(t, store.Put(ctx, session))

	session.Messages = nil
	session.Title = "replaced"
	require.NoError(t, store.Put(ctx, session))

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, got.Messages)
	assert.Equal(t, "replaced", got.Title)
}

func TestMemoryStorePutKeepsCreatedAt(t *testing.T) {
	store := chat.NewMemoryStore()
	ctx := context.Background()
	session := sessionAt("a", "u1", time.Second)
	require.NoError(t, store.Put(ctx, session))

	session.CreatedAt = base.Add(time.Hour)
	require.NoError(t, store.Put(ctx, session))

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, base.Equal(got.CreatedAt))
}

func TestMemoryStoreDeleteIsIdempotent(t *testing.T) {
	store := chat.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, sessionAt("a", "u1", time.Second)))

	require.NoError(t, store.Delete(ctx, "missing"))
	list, err := store.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, store.Delete(ctx, "a"))
	require.NoError(t, store.Delete(ctx, "a"))
	_, err = store.Get(ctx, "a")
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
}

func TestSessionTitleDerivedOnce(t *testing.T) {
	s := chat.NewSession("s", "u", base)
	s.Append(chat.Message{Role: chat.RoleUser, Content: "Explain goroutines and channels in depth please"}, base)
	assert.Equal(t, "Explain goroutines and channel...", s.Title)

	s.Append(chat.Message{Role: chat.RoleUser, Content: "second"}, base)
	assert.Equal(t, "Explain goroutines and channel...", s.Title)
}

func TestDeriveTitleKeepsShortText(t *testing.T) {
	assert.Equal(t, "Hello", chat.DeriveTitle("Hello"))
	assert.Equal(t, "ğüşıöçğüşıöçğüşıöçğüşıöçğüşıöç", chat.DeriveTitle("ğüşıöçğüşıöçğüşıöçğüşıöçğüşıöç"))
}

func TestSessionLastUpdatedNeverMovesBackwards(t *testing.T) {
	s := chat.NewSession("s", "u", base)
	s.Touch(base.Add(time.Hour))
	s.Touch(base)
	assert.Equal(t, base.Add(time.Hour), s.LastUpdatedAt)
}

func TestTierKnown(t *testing.T) {
	assert.True(t, chat.TierFlash.Known())
	assert.True(t, chat.TierPro.Known())
	assert.False(t, chat.Tier("ultra").Known())
	assert.False(t, chat.Tier("").Known())
}

func TestParseTier(t *testing.T) {
	tier, err := chat.ParseTier(" PRO ")
	require.NoError(t, err)
	assert.Equal(t, chat.TierPro, tier)
	assert.True(t, tier.Premium())
	assert.False(t, chat.TierFlash.Premium())

	_, err = chat.ParseTier("ultra")
	assert.ErrorIs(t, err, chat.ErrUnknownTier)
}
