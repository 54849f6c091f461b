package chat

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/zhouzirui/syntra/backend/internal/logging"
	"github.com/zhouzirui/syntra/backend/internal/model/chat"
	"github.com/zhouzirui/syntra/backend/internal/service/stream"
)

// Hub hands out one Controller per user, creating it on first use.
type Hub struct {
	users  Users
	store  chat.Store
	turns  *stream.Orchestrator
	logger *zap.Logger

	mu          sync.Mutex
	controllers map[string]*Controller
}

// NewHub creates a Hub sharing store and orchestrator across users.
func NewHub(users Users, store chat.Store, turns *stream.Orchestrator, logger *zap.Logger) *Hub {
	return &Hub{
		users:       users,
		store:       store,
		turns:       turns,
		logger:      logging.OrNop(logger),
		controllers: make(map[string]*Controller),
	}
}

// Controller returns the controller of userID. Unknown users get ErrNoUser.
func (h *Hub) Controller(ctx context.Context, userID string) (*Controller, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	if _, err := h.users.Get(ctx, userID); err != nil {
		return nil, ErrNoUser
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.controllers[userID]; ok {
		return c, nil
	}
	c := NewController(userID, h.users, h.store, h.turns, h.logger)
	h.controllers[userID] = c
	h.logger.Debug("controller created", zap.String("user", userID))
	return c, nil
}
