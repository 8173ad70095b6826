package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/helpdesk-io/support-service/internal/api/http"
	"github.com/helpdesk-io/support-service/internal/api/http/handlers"
	"github.com/helpdesk-io/support-service/internal/auth"
	"github.com/helpdesk-io/support-service/internal/config"
	"github.com/helpdesk-io/support-service/internal/events"
	"github.com/helpdesk-io/support-service/internal/observability"
	"github.com/helpdesk-io/support-service/internal/persistence"
	"github.com/helpdesk-io/support-service/internal/repository"
	"github.com/helpdesk-io/support-service/internal/service"
	"github.com/helpdesk-io/support-service/internal/worker"
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
	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	clientRepo := repository.NewClientRepository(pool)
	technicianRepo := repository.NewTechnicianRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)

	dispatcher := events.NewRedisDispatcher(
		events.NewInMemoryDispatcher(logger), redis.Client, cfg.Redis.EventChannel, logger)

	authService := service.NewAuthService(cfg.Auth, userRepo)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     ticketRepo,
		ClientRepo:     clientRepo,
		TechnicianRepo: technicianRepo,
		CategoryRepo:   categoryRepo,
		Dispatcher:     dispatcher,
		MaxInProgress:  cfg.Ticket.MaxInProgressPerTechnician,
	})
	userService := service.NewUserService(userRepo, cfg.Auth.BcryptCost)
	clientService := service.NewClientService(clientRepo, userRepo)
	technicianService := service.NewTechnicianService(technicianRepo, ticketRepo)
	categoryService := service.NewCategoryService(categoryRepo)

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager())
	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(map[string]handlers.Pinger{"redis": redis}),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(authService, userService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Clients:        handlers.NewClientsHandler(clientService),
		Technicians:    handlers.NewTechniciansHandler(technicianService, cfg.Ticket.MaxInProgressPerTechnician),
		Categories:     handlers.NewCategoriesHandler(categoryService),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
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
