package worker

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/queuedesk/ticketero/internal/service/message"
	"github.com/queuedesk/ticketero/pkg/logger"
	"github.com/queuedesk/ticketero/pkg/metrics"
)

type MessageDispatcherConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// MessageDispatcher delivers scheduled notifications. Each tick picks up
// messages whose scheduled time has passed, including failed ones still
// under the retry ceiling.
type MessageDispatcher struct {
	service *message.Service
	config  MessageDispatcherConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewMessageDispatcher(
	service *message.Service,
	config MessageDispatcherConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *MessageDispatcher {
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}

	return &MessageDispatcher{
		service: service,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

func (d *MessageDispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	d.logger.Info("Starting message dispatcher")

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Shutting down message dispatcher")
			return
		case <-ticker.C:
			if err := d.runPass(ctx); err != nil {
				d.logger.Error(err, "Failed to dispatch messages")
			}
		}
	}
}

func (d *MessageDispatcher) runPass(ctx context.Context) error {
	timer := prometheus.NewTimer(d.metrics.DispatchLatency)
	defer timer.ObserveDuration()

	return d.service.DispatchDue(ctx, d.config.BatchSize)
}
