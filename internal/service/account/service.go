package account

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/syntra/backend/internal/logging"
	"github.com/zhouzirui/syntra/backend/internal/model/billing"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrPaymentDeclined = errors.New("payment declined")
)

// minCardDigits is the shortest card number the simulated gateway accepts.
const minCardDigits = 16

// User is an account. Premium grants the premium model tier.
type User struct {
	ID       string    `json:"id"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Premium  bool      `json:"premium"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Card holds the payment details submitted for an upgrade.
type Card struct {
	Number string `json:"number"`
	Holder string `json:"holder"`
	Expiry string `json:"expiry"`
	CVC    string `json:"cvc"`
}

// Stats summarises accounts and revenue.
type Stats struct {
	TotalUsers    int                   `json:"totalUsers"`
	ActivePremium int                   `json:"activePremium"`
	TotalRevenue  float64               `json:"totalRevenue"`
	Transactions  []billing.Transaction `json:"transactions"`
}

// Service is the account registry with a simulated payment gateway.
type Service struct {
	// mu serialises registration and upgrades.
	mu   sync.Mutex
	repo Repository

	plan   billing.Plan
	now    func() time.Time
	newID  func() string
	logger *zap.Logger
}

// NewService creates a registry over repo selling plan.
func NewService(repo Repository, plan billing.Plan, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		plan:   plan,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
		logger: logging.OrNop(logger),
	}
}

// Plan returns the plan sold by Upgrade.
func (s *Service) Plan() billing.Plan {
	return s.plan
}

// Login returns the account for email, registering it on first use.
// The display name defaults to the local part of the address.
func (s *Service) Login(ctx context.Context, email string) (User, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return User{}, fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.repo.FindByEmail(ctx, addr.Address)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return User{}, fmt.Errorf("find account: %w", err)
	}

	user, err = s.repo.Create(ctx, User{
		ID:       s.newID(),
		Email:    addr.Address,
		Name:     addr.Address[:strings.Index(addr.Address, "@")],
		JoinedAt: s.now(),
	})
	if err != nil {
		return User{}, fmt.Errorf("create account: %w", err)
	}

	s.logger.Info("account registered", zap.String("user", user.ID))
	return user, nil
}

// Get looks an account up by id.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.Get(ctx, id)
}

// Upgrade charges the plan price and grants premium access. A card number with
// fewer than 16 digits is declined and nothing is recorded.
func (s *Service) Upgrade(ctx context.Context, userID string, card Card) (billing.Transaction, error) {
	if countDigits(card.Number) < minCardDigits {
		return billing.Transaction{}, fmt.Errorf("%w: card number too short", ErrPaymentDeclined)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return billing.Transaction{}, err
	}
	user.Premium = true

	tx := billing.Transaction{
		ID:        "TRX-" + strings.ToUpper(s.newID()[:8]),
		UserID:    user.ID,
		UserEmail: user.Email,
		Amount:    s.plan.Price,
		Currency:  s.plan.Currency,
		Status:    billing.StatusSuccess,
		CreatedAt: s.now(),
	}
	if err := s.repo.RecordUpgrade(ctx, user, tx); err != nil {
		return billing.Transaction{}, fmt.Errorf("record upgrade: %w", err)
	}

	s.logger.Info("account upgraded",
		zap.String("user", user.ID),
		zap.String("transaction", tx.ID),
		zap.Float64("amount", tx.Amount))
	return tx, nil
}

// Stats returns totals and transactions, newest first.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	users, err := s.repo.Users(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list accounts: %w", err)
	}
	transactions, err := s.repo.Transactions(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list transactions: %w", err)
	}

	stats := Stats{
		TotalUsers:   len(users),
		Transactions: transactions,
	}
	if stats.Transactions == nil {
		stats.Transactions = []billing.Transaction{}
	}
	for _, u := range users {
		if u.Premium {
			stats.ActivePremium++
		}
	}
	for _, tx := range transactions {
		if tx.Status == billing.StatusSuccess {
			stats.TotalRevenue += tx.Amount
		}
	}
	sort.SliceStable(stats.Transactions, func(i, j int) bool {
		return stats.Transactions[i].CreatedAt.After(stats.Transactions[j].CreatedAt)
	})
	return stats, nil
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
