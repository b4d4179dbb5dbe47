package advisor

import (
	"context"

	"github.com/google/uuid"

	"github.com/queuedesk/ticketero/internal/model"
	"github.com/queuedesk/ticketero/internal/repository"
	"github.com/queuedesk/ticketero/pkg/logger"
)

type Service struct {
	repo   repository.AdvisorRepository
	logger *logger.Logger
}

func NewService(repo repository.AdvisorRepository, logger *logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Advisor, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*model.Advisor, error) {
	return s.repo.List(ctx)
}

func (s *Service) ListByStatus(ctx context.Context, status model.AdvisorStatus) ([]*model.Advisor, error) {
	return s.repo.ListByStatus(ctx, status)
}

// ListAvailable returns advisors in assignment order, least loaded
// first. Mirrors the ordering the assignment engine uses.
func (s *Service) ListAvailable(ctx context.Context) ([]*model.Advisor, error) {
	return s.repo.ListAvailableOrderedByWorkload(ctx)
}

// UpdateStatus sets an advisor's availability. Offline advisors are
// never matched by the assignment engine regardless of workload.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AdvisorStatus) (*model.Advisor, error) {
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}

	s.logger.Info("advisor status updated", "advisor_id", id.String(), "status", string(status))
	return s.repo.Get(ctx, id)
}
