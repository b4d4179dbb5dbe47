package dashboard

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/queuedesk/ticketero/internal/model"
	"github.com/queuedesk/ticketero/internal/repository"
	"github.com/queuedesk/ticketero/pkg/logger"
)

const metricsCacheKey = "dashboard_metrics"

type Service struct {
	tickets  repository.TicketRepository
	advisors repository.AdvisorRepository
	cache    *gocache.Cache
	logger   *logger.Logger
}

func NewService(tickets repository.TicketRepository, advisors repository.AdvisorRepository, logger *logger.Logger) *Service {
	return &Service{
		tickets:  tickets,
		advisors: advisors,
		cache:    gocache.New(30*time.Second, time.Minute),
		logger:   logger,
	}
}

// Metrics aggregates the branch view for the admin dashboard. Results
// are cached briefly; the dashboard polls far more often than the
// counts meaningfully change.
func (s *Service) Metrics(ctx context.Context) (*model.DashboardMetrics, error) {
	if cached, ok := s.cache.Get(metricsCacheKey); ok {
		return cached.(*model.DashboardMetrics), nil
	}

	totalToday, err := s.tickets.CountCreatedToday(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count today's tickets: %w", err)
	}

	byStatus := make(map[string]int)
	for _, status := range []model.TicketStatus{
		model.TicketStatusWaiting,
		model.TicketStatusImminent,
		model.TicketStatusServing,
		model.TicketStatusCompleted,
		model.TicketStatusCancelled,
		model.TicketStatusNoShow,
	} {
		count, err := s.tickets.CountByStatus(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("failed to count tickets by status: %w", err)
		}
		byStatus[string(status)] = count
	}

	byQueueType := make(map[string]int)
	for _, queueType := range model.AllQueueTypes() {
		count, err := s.tickets.CountByQueueType(ctx, queueType)
		if err != nil {
			return nil, fmt.Errorf("failed to count tickets by queue type: %w", err)
		}
		byQueueType[string(queueType)] = count
	}

	avgWait, err := s.tickets.AverageWaitMinutesToday(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute average wait: %w", err)
	}

	advisors, err := s.advisors.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list advisors: %w", err)
	}

	metrics := &model.DashboardMetrics{
		TotalTicketsToday:  totalToday,
		TicketsInQueue:     byStatus[string(model.TicketStatusWaiting)] + byStatus[string(model.TicketStatusImminent)],
		TicketsBeingServed: byStatus[string(model.TicketStatusServing)],
		TicketsCompleted:   byStatus[string(model.TicketStatusCompleted)],
		AverageWaitMinutes: avgWait,
		Advisors:           advisors,
		TicketsByQueueType: byQueueType,
		TicketsByStatus:    byStatus,
	}

	s.cache.Set(metricsCacheKey, metrics, gocache.DefaultExpiration)
	return metrics, nil
}
