package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/queuedesk/ticketero/internal/config"
	"github.com/queuedesk/ticketero/internal/notifier"
	"github.com/queuedesk/ticketero/internal/repository/postgres"
	messageService "github.com/queuedesk/ticketero/internal/service/message"
	queueService "github.com/queuedesk/ticketero/internal/service/queue"
	"github.com/queuedesk/ticketero/pkg/logger"
	"github.com/queuedesk/ticketero/pkg/messaging/redis"
	"github.com/queuedesk/ticketero/pkg/metrics"
	"github.com/queuedesk/ticketero/pkg/worker"
)

// Standalone worker binary for deployments that keep the background
// loops off the API instances. Runs the same queue processor and
// message dispatcher, plus a bare health and metrics listener.
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

	ticketRepo := postgres.NewTicketRepository(db)
	advisorRepo := postgres.NewAdvisorRepository(db)
	messageRepo := postgres.NewMessageRepository(db)

	appMetrics := metrics.New("ticketero_worker")

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

	messageSvc := messageService.NewService(messageRepo, ticketRepo, channel, appLogger, appMetrics)
	queueSvc := queueService.NewService(ticketRepo, advisorRepo, broker, appLogger, appMetrics)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queueProcessor := worker.NewQueueProcessor(queueSvc, worker.QueueProcessorConfig{
		PollInterval: time.Duration(cfg.Worker.QueueIntervalSeconds) * time.Second,
	}, appLogger, appMetrics)
	go queueProcessor.Start(ctx)

	messageDispatcher := worker.NewMessageDispatcher(messageSvc, worker.MessageDispatcherConfig{
		PollInterval: time.Duration(cfg.Worker.DispatchIntervalSeconds) * time.Second,
		BatchSize:    cfg.Worker.DispatchBatchSize,
	}, appLogger, appMetrics)
	go messageDispatcher.Start(ctx)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port+1),
		Handler: mux,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting worker health listener")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start health listener")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down worker...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("worker stopped")
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
