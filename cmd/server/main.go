package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"edubattle/internal/cache"
	"edubattle/internal/config"
	"edubattle/internal/database"
	"edubattle/internal/repository"
	"edubattle/internal/service"
	"edubattle/internal/transport/rest"
	"edubattle/internal/transport/ws"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := config.Load()
	ctx := context.Background()

	// Shared persistence handles: lazy-init-once, torn down on shutdown.
	clients := database.New(cfg)
	if err := clients.Init(ctx); err != nil {
		logger.Fatal("failed to connect to stores", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := clients.Close(closeCtx); err != nil {
			logger.Warn("store teardown failed", zap.Error(err))
		}
	}()
	logger.Info("connected to MongoDB and Redis",
		zap.String("db", cfg.MongoDatabase),
		zap.String("redis", cfg.RedisAddr))

	if err := repository.EnsureBattleIndexes(ctx, clients.Mongo); err != nil {
		logger.Fatal("failed to ensure battle indexes", zap.Error(err))
	}
	if err := repository.EnsureLedgerIndexes(ctx, clients.Mongo); err != nil {
		logger.Fatal("failed to ensure ledger indexes", zap.Error(err))
	}

	// Initialize repositories
	battleRepo := repository.NewBattleRepo(clients.Mongo)
	quizRepo := repository.NewQuizRepo(clients.Mongo)
	ledgerRepo := repository.NewLedgerRepo(clients.Mongo)

	// Initialize caches
	codeCache := cache.NewCodeCache(clients.Redis)
	leaderboard := cache.NewLeaderboardCache(clients.Redis)

	// Initialize services
	authSvc := service.NewAuthService()
	battleSvc := service.NewBattleService(battleRepo, quizRepo, ledgerRepo, codeCache, leaderboard, logger)
	notifier := service.NewNotifier(battleSvc, service.NotifierConfig{
		TickInterval:      cfg.StreamTick,
		HeartbeatInterval: cfg.StreamHeartbeat,
		StreamBudget:      cfg.StreamBudget,
	}, logger)

	container := &rest.Container{
		AuthService:   authSvc,
		BattleService: battleSvc,
		Notifier:      notifier,
		WSHandler:     ws.NewHandler(notifier, logger),
	}

	router := rest.NewRouter(container)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen and serve failed", zap.Error(err))
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}
