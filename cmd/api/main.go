package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/zhouzirui/syntra/backend/internal/config"
	"github.com/zhouzirui/syntra/backend/internal/handler"
	"github.com/zhouzirui/syntra/backend/internal/logging"
	"github.com/zhouzirui/syntra/backend/internal/metrics"
	"github.com/zhouzirui/syntra/backend/internal/model/chat"
	"github.com/zhouzirui/syntra/backend/internal/model/persona"
	"github.com/zhouzirui/syntra/backend/internal/service/account"
	"github.com/zhouzirui/syntra/backend/internal/service/ai"
	chatService "github.com/zhouzirui/syntra/backend/internal/service/chat"
	"github.com/zhouzirui/syntra/backend/internal/service/stream"
	"github.com/zhouzirui/syntra/backend/internal/storage/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("failed to load configuration", zap.Error(err))
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		zap.NewExample().Fatal("failed to build logger", zap.Error(err))
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if envErr != nil {
		logger.Info("no .env file loaded, using system environment variables only", zap.Error(envErr))
	}

	personaStore := persona.NewMemoryStore(persona.Seed())

	store, accountRepo, closeStore, err := openStores(cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}
	defer closeStore()

	provider, err := ai.NewProvider(ctx, cfg.AI, personaStore, logger)
	if err != nil {
		logger.Warn("model provider unavailable, replies will fail until it is configured",
			zap.String("provider", cfg.AI.Provider),
			zap.Error(err))
		provider = unavailableProvider(err)
	} else {
		logger.Info("model provider initialized",
			zap.String("provider", cfg.AI.Provider),
			zap.String("flash", cfg.AI.FlashModel),
			zap.String("pro", cfg.AI.ProModel))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	orchestrator := stream.New(provider, store,
		stream.WithIdleTimeout(cfg.AI.StreamIdleTimeout),
		stream.WithRecorder(m),
		stream.WithLogger(logger.Named("stream")))

	accounts := account.NewService(accountRepo, cfg.Billing.Plan, logger.Named("account"))
	hub := chatService.NewHub(accounts, store, orchestrator, logger.Named("chat"))

	router := handler.NewRouter(handler.Deps{
		Personas: personaStore,
		Accounts: accounts,
		Hub:      hub,
		Metrics:  m,
		Gatherer: registry,
		AdminKey: cfg.Billing.AdminKey,
		Logger:   logger.Named("http"),
	})

	startServer(ctx, cfg.Server, router, logger)
}

func openStores(cfg config.StorageConfig, logger *zap.Logger) (chat.Store, account.Repository, func(), error) {
	if cfg.SessionDBPath == "" {
		logger.Info("using in-memory storage")
		return chat.NewMemoryStore(), account.NewMemoryRepository(), func() {}, nil
	}

	db, err := sqlite.Open(cfg.SessionDBPath)
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Info("using sqlite storage", zap.String("path", cfg.SessionDBPath))
	return db.Sessions(), db.Accounts(), func() {
		if err := db.Close(); err != nil {
			logger.Warn("failed to close database", zap.Error(err))
		}
	}, nil
}

func unavailableProvider(cause error) ai.Provider {
	return ai.ProviderFunc(func(context.Context, ai.SessionContext, string, chat.Tier) (*schema.StreamReader[string], error) {
		return nil, cause
	})
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("Syntra backend listening", zap.String("addr", addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
