package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	accountHandler "github.com/zhouzirui/syntra/backend/internal/handler/account"
	"github.com/zhouzirui/syntra/backend/internal/handler/chat"
	"github.com/zhouzirui/syntra/backend/internal/handler/persona"
	"github.com/zhouzirui/syntra/backend/internal/handler/stream"
	"github.com/zhouzirui/syntra/backend/internal/logging"
	"github.com/zhouzirui/syntra/backend/internal/metrics"
	middlewarePkg "github.com/zhouzirui/syntra/backend/internal/middleware"
	personaModel "github.com/zhouzirui/syntra/backend/internal/model/persona"
	"github.com/zhouzirui/syntra/backend/internal/service/account"
	chatService "github.com/zhouzirui/syntra/backend/internal/service/chat"
	"github.com/zhouzirui/syntra/backend/pkg/utils"
)

// Deps are the services the HTTP surface is built on.
type Deps struct {
	Personas personaModel.Store
	Accounts *account.Service
	Hub      *chatService.Hub
	// Metrics and Gatherer are optional; /metrics is served when Gatherer is set.
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	AdminKey string
	Logger   *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	logger := logging.OrNop(deps.Logger)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	personaHandler := persona.New(deps.Personas)
	accountsHandler := accountHandler.New(deps.Accounts, deps.AdminKey, logger)
	chatHandler := chat.New(deps.Hub, logger)
	streamHandler := stream.New(deps.Hub, logger)
	wsHandler := stream.NewWebSocketHandler(deps.Hub, logger)

	r.Route("/api", func(api chi.Router) {
		api.Use(middlewarePkg.Identify)

		personaHandler.RegisterRoutes(api)
		accountsHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)

		api.Get("/stream", streamHandler.HandleSSE)
		api.Get("/ws", wsHandler.HandleWebSocket)
	})

	return r
}
