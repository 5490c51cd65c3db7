package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/donor-auth/internal/api/http"
	"github.com/spec-kit/donor-auth/internal/api/http/handlers"
	"github.com/spec-kit/donor-auth/internal/auth"
	"github.com/spec-kit/donor-auth/internal/config"
	"github.com/spec-kit/donor-auth/internal/events"
	"github.com/spec-kit/donor-auth/internal/observability"
	"github.com/spec-kit/donor-auth/internal/persistence"
	"github.com/spec-kit/donor-auth/internal/repository"
	"github.com/spec-kit/donor-auth/internal/service"
	"github.com/spec-kit/donor-auth/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.UsesDevSecret() {
		logger.Warn("AUTH_JWT_SECRET not set; signing tokens with the development secret")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := persistence.OpenPrincipalStore(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to open principal store", zap.Error(err))
	}
	defer store.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, store.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}
	principals := store.Principals()

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var denylist auth.TokenDenylist
	if redis.Configured() {
		denylist = repository.NewRedisTokenDenylist(redis.Client)
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewAccountEventBus()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger, metrics))

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	carrier := auth.NewSessionCarrier(cfg.Auth.TokenTTL, cfg.Auth.SecureCookies)
	identityGate := auth.NewIdentityGate(tokens, carrier, denylist, logger)

	accountService := service.NewAccountService(cfg.Auth, service.AccountDependencies{
		Principals: principals,
		Tokens:     tokens,
		Denylist:   denylist,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	adminService := service.NewAdminService(principals)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout(), cfg.CORS)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": store,
			"redis":    redis,
		}),
		Accounts:     handlers.NewAccountHandler(accountService, carrier, cfg.App.Location),
		Admin:        handlers.NewAdminHandler(adminService, cfg.App.Location),
		IdentityGate: identityGate,
		Metrics:      metrics,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
