package account

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/zhouzirui/syntra/backend/internal/model/billing"
)

// Repository persists accounts and payment records. Email lookups are
// case-insensitive.
type Repository interface {
	Get(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	// Create stores a new user; an existing email keeps its original record.
	Create(ctx context.Context, user User) (User, error)
	// RecordUpgrade saves user and appends tx as one change.
	RecordUpgrade(ctx context.Context, user User, tx billing.Transaction) error
	Users(ctx context.Context) ([]User, error)
	Transactions(ctx context.Context) ([]billing.Transaction, error)
}

// MemoryRepository keeps accounts in process.
type MemoryRepository struct {
	mu           sync.RWMutex
	users        map[string]User
	byEmail      map[string]string
	transactions []billing.Transaction
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:   make(map[string]User),
		byEmail: make(map[string]string),
	}
}

func (r *MemoryRepository) Get(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (r *MemoryRepository) FindByEmail(_ context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[EmailKey(email)]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return r.users[id], nil
}

func (r *MemoryRepository) Create(_ context.Context, user User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := EmailKey(user.Email)
	if id, ok := r.byEmail[key]; ok {
		return r.users[id], nil
	}
	r.users[user.ID] = user
	r.byEmail[key] = user.ID
	return user, nil
}

func (r *MemoryRepository) RecordUpgrade(_ context.Context, user User, tx billing.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return ErrUserNotFound
	}
	r.users[user.ID] = user
	r.transactions = append(r.transactions, tx)
	return nil
}

func (r *MemoryRepository) Users(_ context.Context) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *MemoryRepository) Transactions(_ context.Context) ([]billing.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]billing.Transaction(nil), r.transactions...), nil
}

// EmailKey normalises an address for lookups.
func EmailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
