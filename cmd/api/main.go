package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/civic-kit/queue-service/internal/api/http"
	"github.com/civic-kit/queue-service/internal/api/http/handlers"
	"github.com/civic-kit/queue-service/internal/auth"
	"github.com/civic-kit/queue-service/internal/config"
	"github.com/civic-kit/queue-service/internal/events"
	"github.com/civic-kit/queue-service/internal/observability"
	"github.com/civic-kit/queue-service/internal/persistence"
	"github.com/civic-kit/queue-service/internal/repository"
	"github.com/civic-kit/queue-service/internal/service"
	"github.com/civic-kit/queue-service/internal/worker"
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	citizenRepo := repository.NewCitizenRepository(pool)
	serviceRepo := repository.NewServiceRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()

	ledgerService := service.NewLedgerService(service.LedgerDependencies{
		TicketRepo:  ticketRepo,
		ServiceRepo: serviceRepo,
		CitizenRepo: citizenRepo,
		Dispatcher:  dispatcher,
		Logger:      logger,
		MaxAttempts: cfg.Queue.CreateRetryAttempts,
	})
	dispatcherService := service.NewDispatcherService(service.DispatcherDependencies{
		TicketRepo:    ticketRepo,
		ServiceRepo:   serviceRepo,
		AuditRepo:     auditRepo,
		Dispatcher:    dispatcher,
		Logger:        logger,
		ClaimAttempts: cfg.Queue.ClaimAttempts,
	})
	citizenService := service.NewCitizenService(citizenRepo, ticketRepo)
	catalogService := service.NewCatalogService(serviceRepo)
	authService := service.NewAuthService(cfg.Auth, staffRepo)
	notificationService := service.NewNotificationService(dispatcher, redis, logger, cfg.Redis)

	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), staffRepo)

	app := fiber.New()
	metrics := observability.NewMetrics()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:        handlers.NewTicketsHandler(ledgerService, dispatcherService, ticketRepo),
		Citizens:       handlers.NewCitizensHandler(citizenService),
		Services:       handlers.NewServicesHandler(catalogService),
		Staff:          handlers.NewStaffHandler(authService),
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
