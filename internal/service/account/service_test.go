package account

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/syntra/backend/internal/model/billing"
)

func TestLoginRegistersOnceAndDerivesName(t *testing.T) {
	svc := NewService(NewMemoryRepository(), billing.ProPlan, nil)
	ctx := context.Background()

	first, err := svc.Login(ctx, "ada.lovelace@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ada.lovelace", first.Name)
	assert.False(t, first.Premium)

	again, err := svc.Login(ctx, "  Ada.Lovelace@example.com ")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	got, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first, got)
}

func TestLoginRejectsInvalidEmail(t *testing.T) {
	svc := NewService(NewMemoryRepository(), billing.ProPlan, nil)
	_, err := svc.Login(context.Background(), "not-an-email")
	assert.ErrorIs(t, err, ErrInvalidEmail)
}

func TestGetUnknownUser(t *testing.T) {
	svc := NewService(NewMemoryRepository(), billing.ProPlan, nil)
	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpgradeGrantsPremiumAndRecordsTransaction(t *testing.T) {
	svc := NewService(NewMemoryRepository(), billing.ProPlan, nil)
	ctx := context.Background()
	user, err := svc.Login(ctx, "grace@example.com")
	require.NoError(t, err)

	tx, err := svc.Upgrade(ctx, user.ID, Card{Number: "4242 4242 4242 4242", Holder: "Grace Hopper"})
	require.NoError(t, err)

	assert.Equal(t, 299.0, tx.Amount)
	assert.Equal(t, "TRY", tx.Currency)
	assert.Equal(t, billing.StatusSuccess, tx.Status)
	assert.Equal(t, "grace@example.com", tx.UserEmail)
	assert.Len(t, tx.ID, len("TRX-")+8)

	upgraded, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, upgraded.Premium)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalUsers)
	assert.Equal(t, 1, stats.ActivePremium)
	assert.Equal(t, 299.0, stats.TotalRevenue)
	require.Len(t, stats.Transactions, 1)
}

func TestUpgradeDeclinesShortCard(t *testing.T) {
	svc := NewService(NewMemoryRepository(), billing.ProPlan, nil)
	ctx := context.Background()
	user, err := svc.Login(ctx, "linus@example.com")
	require.NoError(t, err)

	_, err = svc.Upgrade(ctx, user.ID, Card{Number: "4242 4242 4242"})
	assert.ErrorIs(t, err, ErrPaymentDeclined)

	got, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, got.Premium)
	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Empty(t, stats.Transactions)
}

func TestUpgradeUnknownUser(t *testing.T) {
	svc := NewService(NewMemoryRepository(), billing.ProPlan, nil)
	_, err := svc.Upgrade(context.Background(), "ghost", Card{Number: "4242424242424242"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMemoryRepositoryLookupIsCaseInsensitive(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	created, err := repo.Create(ctx, User{ID: "u1", Email: "Ada@Example.com"})
	require.NoError(t, err)
	again, err := repo.Create(ctx, User{ID: "u2", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, created, again)

	found, err := repo.FindByEmail(ctx, " ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", found.ID)

	_, err = repo.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
