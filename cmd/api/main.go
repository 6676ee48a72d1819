package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	httptransport "github.com/deskline/helpdesk-service/internal/api/http"
	"github.com/deskline/helpdesk-service/internal/api/http/handlers"
	"github.com/deskline/helpdesk-service/internal/auth"
	"github.com/deskline/helpdesk-service/internal/config"
	"github.com/deskline/helpdesk-service/internal/events"
	"github.com/deskline/helpdesk-service/internal/notify"
	"github.com/deskline/helpdesk-service/internal/observability"
	"github.com/deskline/helpdesk-service/internal/persistence"
	"github.com/deskline/helpdesk-service/internal/report"
	"github.com/deskline/helpdesk-service/internal/repository"
	"github.com/deskline/helpdesk-service/internal/repository/memory"
	"github.com/deskline/helpdesk-service/internal/service"
	"github.com/deskline/helpdesk-service/internal/worker"
)

type repositories struct {
	users     repository.UserRepository
	customers repository.CustomerRepository
	tickets   repository.TicketRepository
	responses repository.ResponseRepository
	reports   repository.ReportRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewServiceLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing := observability.SetupTracing(ctx, cfg.App, cfg.Telemetry, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	repos := buildRepositories(pg)

	var links auth.MagicLinkStore
	if redis.Enabled() {
		links = auth.NewRedisMagicLinks(redis.Client)
	} else {
		links = auth.NewMemoryMagicLinks(time.Now)
	}

	sender, err := notify.NewSender(cfg.Notification, logger)
	if err != nil {
		logger.Fatal("failed to build notification sender", zap.Error(err))
	}
	dispatcher := events.NewAsyncDispatcher(logger, cfg.Notification.QueueSize)

	notificationService := service.NewNotificationService(service.NotificationDependencies{
		TicketRepo:   repos.tickets,
		CustomerRepo: repos.customers,
		Sender:       sender,
		Metrics:      metrics,
		Logger:       logger,
		PublicURL:    cfg.App.PublicURL,
	})
	worker.StartNotificationWorker(ctx, notificationService, dispatcher, metrics, cfg.Notification.Workers)

	identityService := service.NewIdentityService(repos.users, repos.customers, logger)
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:     repos.users,
		CustomerRepo: repos.customers,
		MagicLinks:   links,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   repos.tickets,
		CustomerRepo: repos.customers,
		UserRepo:     repos.users,
		ResponseRepo: repos.responses,
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Logger:       logger,
	})
	responseService := service.NewResponseService(service.ResponseDependencies{
		Tickets:      ticketService,
		TicketRepo:   repos.tickets,
		ResponseRepo: repos.responses,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	userService := service.NewUserService(repos.users, cfg.Auth.BcryptCost, logger)
	customerService := service.NewCustomerService(repos.customers)
	reportService := service.NewReportService(repos.reports, report.NewPDFRenderer(), logger, nil)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), identityService)
	limiter := httptransport.NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)
	go limiter.Run(ctx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Responses:      handlers.NewResponsesHandler(responseService),
		Users:          handlers.NewUsersHandler(userService),
		Customers:      handlers.NewCustomersHandler(customerService),
		Reports:        handlers.NewReportsHandler(reportService),
		AuthMiddleware: authMiddleware,
		RateLimiter:    limiter,
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	dispatcher.Wait()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
}

func buildRepositories(pg *persistence.Postgres) repositories {
	if pg.Enabled() {
		pool := pg.PoolHandle()
		return repositories{
			users:     repository.NewUserRepository(pool),
			customers: repository.NewCustomerRepository(pool),
			tickets:   repository.NewTicketRepository(pool),
			responses: repository.NewResponseRepository(pool),
			reports:   repository.NewReportRepository(pool),
		}
	}
	store := memory.NewStore()
	return repositories{
		users:     store.Users(),
		customers: store.Customers(),
		tickets:   store.Tickets(),
		responses: store.Responses(),
		reports:   store.Reports(),
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
