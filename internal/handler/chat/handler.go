package chat

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/syntra/backend/internal/handler/apierr"
	"github.com/zhouzirui/syntra/backend/internal/middleware"
	"github.com/zhouzirui/syntra/backend/internal/model/chat"
	chatService "github.com/zhouzirui/syntra/backend/internal/service/chat"
	"github.com/zhouzirui/syntra/backend/pkg/utils"
)

// Handler 会话管理的HTTP处理器
type Handler struct {
	hub    *chatService.Hub
	logger *zap.Logger
}

// New 创建聊天处理器
func New(hub *chatService.Hub, logger *zap.Logger) *Handler {
	return &Handler{hub: hub, logger: logger}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions", h.handleListSessions)
	r.Post("/sessions", h.handleNewSession)
	r.Post("/sessions/{id}/select", h.handleSelectSession)
	r.Delete("/sessions/{id}", h.handleDeleteSession)
	r.Get("/state", h.handleState)
	r.Get("/tiers", h.handleTiers)
	r.Put("/tier", h.handleSelectTier)
}

// controller 解析当前用户的控制器，失败时已写入响应
func (h *Handler) controller(w http.ResponseWriter, r *http.Request) (*chatService.Controller, bool) {
	c, err := h.hub.Controller(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		apierr.Respond(w, err)
		return nil, false
	}
	return c, true
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}

	sessions, err := c.History(r.Context())
	if err != nil {
		apierr.Respond(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, sessions)
}

func (h *Handler) handleNewSession(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}

	if _, err := c.StartNewSession(); err != nil {
		apierr.Respond(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, c.Snapshot())
}

func (h *Handler) handleSelectSession(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}

	if _, err := c.SelectSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		apierr.Respond(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, c.Snapshot())
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}

	if err := c.DeleteSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		apierr.Respond(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, c.Snapshot())
}

func (h *Handler) handleTiers(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, chat.Tiers)
}

// handleSelectTier 切换模型档位，高级档位需要会员
func (h *Handler) handleSelectTier(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}

	var payload struct {
		Tier string `json:"tier"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tier, err := chat.ParseTier(payload.Tier)
	if err != nil {
		apierr.Respond(w, err)
		return
	}
	if err := c.SelectModelTier(r.Context(), tier); err != nil {
		apierr.Respond(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, c.Snapshot())
}
