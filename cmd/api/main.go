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

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/attachment"
	"github.com/spec-kit/helpdesk-service/internal/audit"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/mail"
	"github.com/spec-kit/helpdesk-service/internal/notify"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/realtime"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/routing"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	metrics := observability.NewMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	table, err := routing.Load(cfg.Tickets.RoutingTablePath)
	if err != nil {
		logger.Fatal("failed to load routing table", zap.Error(err))
	}

	pool := pg.Pool
	userRepo := repository.NewUserRepository(pool)
	areaRepo := repository.NewAreaRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)

	resolver := routing.NewResolver(routing.ResolverDependencies{
		Table:      table,
		Categories: categoryRepo,
		Areas:      areaRepo,
		Logger:     logger,
	})
	recorder := audit.NewRecorder(audit.RecorderDependencies{Repo: historyRepo, Logger: logger, Metrics: metrics})
	dispatcher := events.NewInMemoryDispatcher(logger)

	var (
		pusher     realtime.Pusher
		subscriber handlers.Subscriber
	)
	if redis != nil {
		redisPusher := realtime.NewRedisPusher(redis.Client, logger)
		pusher = redisPusher
		subscriber = redisPusher
	}

	var mailer mail.Mailer = mail.NewLogMailer(logger)
	if cfg.Mail.Enabled {
		mailer = mail.NewSMTPMailer(cfg.Mail)
	}

	fanout := notify.NewFanout(notify.FanoutDependencies{
		Notifications: notificationRepo,
		Pusher:        pusher,
		Mailer:        mailer,
		MailFrom:      cfg.Mail.From,
		Logger:        logger,
		Metrics:       metrics,
	})
	worker.StartNotificationWorker(dispatcher, fanout, logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.AccessTokenTTLMinutes)*time.Minute)
	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:     userRepo,
		TokenManager: tokens,
		Logger:       logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:        ticketRepo,
		CommentRepo:       commentRepo,
		HistoryRepo:       historyRepo,
		UserRepo:          userRepo,
		AreaRepo:          areaRepo,
		CategoryRepo:      categoryRepo,
		Resolver:          resolver,
		Audit:             recorder,
		Dispatcher:        dispatcher,
		StrictTransitions: cfg.Tickets.StrictTransitions,
		Logger:            logger,
		Metrics:           metrics,
	})
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo: notificationRepo,
		Logger:           logger,
	})

	store, err := attachment.NewDiskStore(cfg.Attachments.Dir, cfg.Attachments.MaxBytes)
	if err != nil {
		logger.Fatal("failed to prepare attachment storage", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: int(cfg.Attachments.MaxBytes) + 1<<20,
	})
	timeout := time.Duration(cfg.App.RequestTimeoutSeconds) * time.Second
	httptransport.RegisterMiddlewares(app, logger, metrics, timeout)

	readiness := map[string]handlers.Pinger{"postgres": pg}
	if redis != nil {
		readiness["redis"] = redis
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, readiness),
		Auth:           handlers.NewAuthHandler(authService, cfg.Auth.CookieName, cfg.App.Env == "production"),
		Tickets:        handlers.NewTicketsHandler(ticketService, store, logger),
		Notifications:  handlers.NewNotificationsHandler(notificationService, subscriber, logger),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), userRepo, cfg.Auth.CookieName),
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
