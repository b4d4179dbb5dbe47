package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/queuedesk/ticketero/internal/config"
	adminHandler "github.com/queuedesk/ticketero/internal/handler/admin"
	authHandler "github.com/queuedesk/ticketero/internal/handler/auth"
	healthHandler "github.com/queuedesk/ticketero/internal/handler/health"
	ticketHandler "github.com/queuedesk/ticketero/internal/handler/ticket"
	"github.com/queuedesk/ticketero/internal/middleware"
	"github.com/queuedesk/ticketero/internal/notifier"
	"github.com/queuedesk/ticketero/internal/repository/postgres"
	"github.com/queuedesk/ticketero/internal/router"
	advisorService "github.com/queuedesk/ticketero/internal/service/advisor"
	authService "github.com/queuedesk/ticketero/internal/service/auth"
	dashboardService "github.com/queuedesk/ticketero/internal/service/dashboard"
	messageService "github.com/queuedesk/ticketero/internal/service/message"
	queueService "github.com/queuedesk/ticketero/internal/service/queue"
	ticketService "github.com/queuedesk/ticketero/internal/service/ticket"
	"github.com/queuedesk/ticketero/pkg/auth"
	"github.com/queuedesk/ticketero/pkg/logger"
	"github.com/queuedesk/ticketero/pkg/messaging/redis"
	"github.com/queuedesk/ticketero/pkg/metrics"
	"github.com/queuedesk/ticketero/pkg/security"
	"github.com/queuedesk/ticketero/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	appLogger := logger.NewLogger(&logger.Config{
		Level:      level,
		TimeFormat: time.RFC3339,
		Pretty:     cfg.Logger.Pretty,
	})

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Repositories
	ticketRepo := postgres.NewTicketRepository(db)
	advisorRepo := postgres.NewAdvisorRepository(db)
	messageRepo := postgres.NewMessageRepository(db)
	userRepo := postgres.NewUserRepository(db)

	appMetrics := metrics.New("ticketero")

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: 100 * time.Millisecond,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	channel := buildChannel(cfg.Notifier)

	// Services
	messageSvc := messageService.NewService(messageRepo, ticketRepo, channel, appLogger, appMetrics)
	queueSvc := queueService.NewService(ticketRepo, advisorRepo, broker, appLogger, appMetrics)
	ticketSvc := ticketService.NewService(ticketRepo, messageSvc, broker, appLogger)
	advisorSvc := advisorService.NewService(advisorRepo, appLogger)
	dashboardSvc := dashboardService.NewService(ticketRepo, advisorRepo, appLogger)

	jwtSvc := auth.NewJWTService(auth.Config{
		Secret:             cfg.JWT.Secret,
		RefreshSecret:      cfg.JWT.RefreshSecret,
		ExpiryHours:        cfg.JWT.ExpiryHours,
		RefreshExpiryHours: cfg.JWT.RefreshExpiryHours,
	})
	authSvc := authService.NewService(userRepo, security.NewBcryptHasher(12), jwtSvc)

	// Handlers
	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)
	ticketH := ticketHandler.NewHandler(ticketSvc)
	authH := authHandler.NewHandler(authSvc)
	adminH := adminHandler.NewHandler(dashboardSvc, advisorSvc, queueSvc)
	healthH := healthHandler.NewHandler(db)

	r := router.NewRouter(authMiddleware, ticketH, authH, adminH, healthH, router.Config{
		RateLimit:     rate.Limit(100),
		RateBurst:     200,
		Timeout:       time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		CORSConfig:    middleware.DefaultCORSConfig(),
		MetricsPrefix: "ticketero_http",
	})
	r.Setup()

	// Background loops share the process so a single binary can run a
	// whole branch office.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	queueProcessor := worker.NewQueueProcessor(queueSvc, worker.QueueProcessorConfig{
		PollInterval: time.Duration(cfg.Worker.QueueIntervalSeconds) * time.Second,
	}, appLogger, appMetrics)
	go queueProcessor.Start(workerCtx)

	messageDispatcher := worker.NewMessageDispatcher(messageSvc, worker.MessageDispatcherConfig{
		PollInterval: time.Duration(cfg.Worker.DispatchIntervalSeconds) * time.Second,
		BatchSize:    cfg.Worker.DispatchBatchSize,
	}, appLogger, appMetrics)
	go messageDispatcher.Start(workerCtx)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	stopWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("server stopped")
}

func buildChannel(cfg config.NotifierConfig) notifier.Channel {
	switch cfg.Channel {
	case "email":
		return notifier.NewEmailChannel(notifier.EmailConfig{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
		})
	default:
		return notifier.NewTelegramChannel(notifier.TelegramConfig{
			BotToken: cfg.Telegram.BotToken,
			Timeout:  time.Duration(cfg.Telegram.TimeoutSeconds) * time.Second,
		})
	}
}
