package account

import (
	"crypto/subtle"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/syntra/backend/internal/handler/apierr"
	"github.com/zhouzirui/syntra/backend/internal/middleware"
	"github.com/zhouzirui/syntra/backend/internal/service/account"
	"github.com/zhouzirui/syntra/backend/pkg/utils"
)

// AdminKeyHeader 携带管理接口访问密钥的请求头。
const AdminKeyHeader = "X-Admin-Key"

// Handler 账户与支付的HTTP处理器
type Handler struct {
	accounts *account.Service
	adminKey string
	logger   *zap.Logger
}

// New 创建账户处理器。adminKey 为空时关闭管理接口。
func New(accounts *account.Service, adminKey string, logger *zap.Logger) *Handler {
	return &Handler{accounts: accounts, adminKey: adminKey, logger: logger}
}

// RegisterRoutes 注册账户相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Get("/me", h.handleMe)
	r.Get("/billing/plan", h.handlePlan)
	r.Post("/billing/upgrade", h.handleUpgrade)
	r.Get("/admin/stats", h.handleStats)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.accounts.Login(r.Context(), payload.Email)
	if err != nil {
		apierr.Respond(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, user)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		utils.RespondError(w, http.StatusUnauthorized, "login required")
		return
	}

	user, err := h.accounts.Get(r.Context(), userID)
	if err != nil {
		apierr.Respond(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, user)
}

func (h *Handler) handlePlan(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.accounts.Plan())
}

// handleUpgrade 模拟支付并开通高级会员
func (h *Handler) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		utils.RespondError(w, http.StatusUnauthorized, "login required")
		return
	}

	var card account.Card
	if err := utils.DecodeJSON(r, &card); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := h.accounts.Upgrade(r.Context(), userID, card)
	if err != nil {
		h.logger.Info("upgrade rejected", zap.String("user", userID), zap.Error(err))
		apierr.Respond(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, tx)
}

// handleStats 返回管理面板统计数据
func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get(AdminKeyHeader)
	if key == "" {
		key = r.URL.Query().Get("access")
	}
	if h.adminKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(h.adminKey)) != 1 {
		utils.RespondError(w, http.StatusForbidden, "admin only")
		return
	}
	stats, err := h.accounts.Stats(r.Context())
	if err != nil {
		apierr.Respond(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, stats)
}
