package worker

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/queuedesk/ticketero/internal/service/queue"
	"github.com/queuedesk/ticketero/pkg/logger"
	"github.com/queuedesk/ticketero/pkg/metrics"
)

type QueueProcessorConfig struct {
	PollInterval time.Duration
}

// QueueProcessor drives the reconciliation loop. Each tick walks the
// waiting tickets, hands out advisors and refreshes queue positions.
type QueueProcessor struct {
	service *queue.Service
	config  QueueProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewQueueProcessor(
	service *queue.Service,
	config QueueProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *QueueProcessor {
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}

	return &QueueProcessor{
		service: service,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

func (p *QueueProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting queue processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down queue processor")
			return
		case <-ticker.C:
			if err := p.runPass(ctx); err != nil {
				p.logger.Error(err, "Failed to reconcile queues")
			}
		}
	}
}

func (p *QueueProcessor) runPass(ctx context.Context) error {
	timer := prometheus.NewTimer(p.metrics.ReconciliationLatency)
	defer timer.ObserveDuration()

	return p.service.Reconcile(ctx)
}
