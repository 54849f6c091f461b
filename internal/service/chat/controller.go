package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/syntra/backend/internal/logging"
	"github.com/zhouzirui/syntra/backend/internal/model/chat"
	"github.com/zhouzirui/syntra/backend/internal/service/account"
	"github.com/zhouzirui/syntra/backend/internal/service/stream"
)

var (
	ErrNoUser          = errors.New("no current user")
	ErrEmptyMessage    = errors.New("message is empty")
	ErrUpgradeRequired = errors.New("premium subscription required")
	ErrTurnInProgress  = stream.ErrTurnInProgress
	ErrSessionNotFound = chat.ErrSessionNotFound
)

// Users resolves the account behind a controller.
type Users interface {
	Get(ctx context.Context, id string) (account.User, error)
}

// State is the view a client renders.
type State struct {
	SessionID string         `json:"sessionId,omitempty"`
	Title     string         `json:"title,omitempty"`
	Messages  []chat.Message `json:"messages"`
	Tier      chat.Tier      `json:"tier"`
	Loading   bool           `json:"loading"`
	History   []chat.Session `json:"history"`
}

// Controller holds one user's chat state: the active session, the selected
// tier and whether a reply is streaming. It is safe for concurrent use.
type Controller struct {
	userID string
	users  Users
	store  chat.Store
	turns  *stream.Orchestrator
	logger *zap.Logger
	now    func() time.Time
	newID  func() string

	mu      sync.Mutex
	active  *chat.Session
	tier    chat.Tier
	loading bool
	history []chat.Session
}

// NewController creates the controller of userID.
func NewController(userID string, users Users, store chat.Store, turns *stream.Orchestrator, logger *zap.Logger) *Controller {
	return &Controller{
		userID:  userID,
		users:   users,
		store:   store,
		turns:   turns,
		logger:  logging.OrNop(logger).With(zap.String("user", userID)),
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
		tier:    chat.TierFlash,
		history: []chat.Session{},
	}
}

// UserID returns the owner of the controller.
func (c *Controller) UserID() string {
	return c.userID
}

func (c *Controller) currentUser(ctx context.Context) (account.User, error) {
	if c.userID == "" {
		return account.User{}, ErrNoUser
	}
	user, err := c.users.Get(ctx, c.userID)
	if err != nil {
		return account.User{}, fmt.Errorf("%w: %w", ErrNoUser, err)
	}
	return user, nil
}

// StartNewSession makes a fresh, empty session active. It is stored once the
// first message is sent.
func (c *Controller) StartNewSession() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loading {
		return "", ErrTurnInProgress
	}
	c.active = chat.NewSession(c.newID(), c.userID, c.now())
	return c.active.ID, nil
}

// SelectSession makes a stored session active. Sessions of other owners are
// reported as not found.
func (c *Controller) SelectSession(ctx context.Context, id string) (chat.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loading {
		return chat.Session{}, ErrTurnInProgress
	}

	session, err := c.store.Get(ctx, id)
	if err != nil {
		return chat.Session{}, err
	}
	if session.OwnerID != c.userID {
		return chat.Session{}, ErrSessionNotFound
	}

	c.active = &session
	return session.Clone(), nil
}

// Send runs one turn on the active session, creating it when none is active.
// It blocks until the reply is DONE or FAILED; obs sees every intermediate
// snapshot. A failed reply is reported through the outcome, not the error.
func (c *Controller) Send(ctx context.Context, text string, obs stream.Observer) (stream.Outcome, error) {
	if strings.TrimSpace(text) == "" {
		return stream.Outcome{}, ErrEmptyMessage
	}
	if _, err := c.currentUser(ctx); err != nil {
		return stream.Outcome{}, err
	}

	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return stream.Outcome{}, ErrTurnInProgress
	}
	if c.active == nil {
		c.active = chat.NewSession(c.newID(), c.userID, c.now())
	}
	working := c.active.Clone()
	tier := c.tier
	c.loading = true
	c.mu.Unlock()

	outcome, err := c.turns.Run(ctx, &working, text, tier, &syncObserver{c: c, next: obs})

	c.mu.Lock()
	c.loading = false
	if err == nil && c.active != nil && c.active.ID == working.ID {
		c.active = &working
	}
	c.mu.Unlock()

	if err != nil {
		return stream.Outcome{}, err
	}
	if outcome.StoreErr != nil {
		c.logger.Warn("turn finished with storage errors",
			zap.String("session", outcome.SessionID),
			zap.Error(outcome.StoreErr))
	}
	return outcome, nil
}

// DeleteSession removes a session. Unknown and foreign ids are a no-op.
// Deleting the active session clears it, unless its reply is still streaming.
func (c *Controller) DeleteSession(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	isActive := c.active != nil && c.active.ID == id
	if isActive && c.loading {
		return ErrTurnInProgress
	}

	session, err := c.store.Get(ctx, id)
	switch {
	case errors.Is(err, chat.ErrSessionNotFound):
	case err != nil:
		return err
	case session.OwnerID != c.userID:
		return nil
	default:
		if err := c.store.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete session %s: %w", id, err)
		}
	}

	if isActive {
		c.active = nil
	}
	return c.refreshLocked(ctx)
}

// SelectModelTier changes the tier used by the next turn.
func (c *Controller) SelectModelTier(ctx context.Context, tier chat.Tier) error {
	if !tier.Known() {
		return fmt.Errorf("%w: %q", chat.ErrUnknownTier, tier)
	}
	if tier.Premium() {
		user, err := c.currentUser(ctx)
		if err != nil {
			return err
		}
		if !user.Premium {
			return ErrUpgradeRequired
		}
	}

	c.mu.Lock()
	c.tier = tier
	c.mu.Unlock()
	return nil
}

// History reloads the owner's sessions, most recent first.
func (c *Controller) History(ctx context.Context) ([]chat.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.refreshLocked(ctx); err != nil {
		return nil, err
	}
	return cloneAll(c.history), nil
}

func (c *Controller) refreshLocked(ctx context.Context) error {
	sessions, err := c.store.List(ctx, c.userID)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	c.history = sessions
	return nil
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := State{
		Messages: []chat.Message{},
		Tier:     c.tier,
		Loading:  c.loading,
		History:  cloneAll(c.history),
	}
	if c.active != nil {
		active := c.active.Clone()
		state.SessionID = active.ID
		state.Title = active.Title
		state.Messages = active.Messages
	}
	return state
}

// syncObserver mirrors turn snapshots into the controller before forwarding them.
type syncObserver struct {
	c    *Controller
	next stream.Observer
}

func (o *syncObserver) SessionUpdated(s chat.Session) {
	o.c.mu.Lock()
	if o.c.active != nil && o.c.active.ID == s.ID {
		mirrored := s.Clone()
		o.c.active = &mirrored
	}
	o.c.mu.Unlock()

	if o.next != nil {
		o.next.SessionUpdated(s)
	}
}

func (o *syncObserver) HistoryUpdated(sessions []chat.Session) {
	o.c.mu.Lock()
	o.c.history = cloneAll(sessions)
	o.c.mu.Unlock()

	if o.next != nil {
		o.next.HistoryUpdated(sessions)
	}
}

func cloneAll(sessions []chat.Session) []chat.Session {
	out := make([]chat.Session, len(sessions))
	for i, s := range sessions {
		out[i] = s.Clone()
	}
	return out
}
