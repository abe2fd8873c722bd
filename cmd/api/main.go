package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	requestRepo := repository.NewRequestRepository(pool)
	statusEventRepo := repository.NewStatusEventRepository(pool)
	worklogRepo := repository.NewWorklogRepository(pool)
	trashRepo := repository.NewTrashRepository(pool)
	appConfigRepo := repository.NewAppConfigRepository(pool)
	metricsRepo := repository.NewMetricsRepository(pool)

	dispatcher := events.NewInMemoryDispatcher(logger)

	authService := service.NewAuthService(cfg.Auth, userRepo, persistence.NewLoginThrottle(redis), logger)
	appConfigService := service.NewAppConfigService(appConfigRepo, persistence.NewRedisConfigCache(redis), logger)
	requestService := service.NewRequestService(service.RequestDependencies{
		RequestRepo: requestRepo,
		UserRepo:    userRepo,
		AuditRepo:   statusEventRepo,
		Dispatcher:  dispatcher,
		MaxPageSize: cfg.Pagination.MaxPageSize,
	})
	metricsService := service.NewMetricsService(metricsRepo, appConfigService)
	worklogService := service.NewWorklogService(worklogRepo, requestRepo)
	trashService := service.NewTrashService(trashRepo, requestRepo, dispatcher, logger, cfg.Trash.TTLDays, cfg.Pagination.MaxPageSize)
	userService := service.NewUserService(userRepo, requestRepo, cfg.Auth.BcryptCost)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)

	service.SeedInitialData(ctx, userRepo, appConfigRepo, cfg.Auth.BcryptCost, logger)

	notificationService.RegisterHandlers()
	janitor := worker.NewTrashJanitor(trashService, logger, cfg.Trash.PurgeSchedule)
	if err := janitor.Start(); err != nil {
		logger.Fatal("failed to start trash janitor", zap.Error(err))
	}
	defer janitor.Stop()

	authMiddleware := auth.NewMiddleware(authService.TokenManager(), userRepo)
	appMetrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, appMetrics, cfg.App.RequestTimeout(), cfg.App.CORSOrigins)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(userService),
		Requests:       handlers.NewRequestsHandler(requestService),
		Worklogs:       handlers.NewWorklogsHandler(worklogService),
		Trash:          handlers.NewTrashHandler(trashService),
		Metrics:        handlers.NewMetricsHandler(metricsService),
		Config:         handlers.NewConfigHandler(appConfigService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
