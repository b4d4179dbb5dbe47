package ticket

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/queuedesk/ticketero/internal/model"
	"github.com/queuedesk/ticketero/internal/repository"
	messageService "github.com/queuedesk/ticketero/internal/service/message"
	"github.com/queuedesk/ticketero/pkg/errors"
	"github.com/queuedesk/ticketero/pkg/logger"
	"github.com/queuedesk/ticketero/pkg/messaging"
)

const eventsChannel = "ticket-events"

type Service struct {
	repo     repository.TicketRepository
	messages *messageService.Service
	broker   messaging.Broker
	logger   *logger.Logger
}

func NewService(
	repo repository.TicketRepository,
	messages *messageService.Service,
	broker messaging.Broker,
	logger *logger.Logger,
) *Service {
	return &Service{
		repo:     repo,
		messages: messages,
		broker:   broker,
		logger:   logger,
	}
}

// Create admits a customer into a queue: draws the next ticket number
// for the category, computes position and wait estimate from the
// current queue, persists the ticket and schedules its lifecycle
// messages in the same logical operation.
func (s *Service) Create(ctx context.Context, req *model.CreateTicketRequest) (*model.Ticket, error) {
	queueType := model.QueueType(req.QueueType)
	if !queueType.Valid() {
		return nil, errors.BadRequest(fmt.Sprintf("unknown queue type %q", req.QueueType), nil)
	}

	seq, err := s.repo.NextSequence(ctx, queueType)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ticket number: %w", err)
	}
	number := fmt.Sprintf("%c%02d", queueType.Prefix(), seq)

	active, err := s.repo.ListActiveByQueueType(ctx, queueType, model.ActiveStatuses())
	if err != nil {
		return nil, fmt.Errorf("failed to compute queue position: %w", err)
	}
	position := len(active) + 1

	ticket := &model.Ticket{
		ID:                   uuid.New(),
		ReferenceCode:        uuid.New(),
		Number:               number,
		NationalID:           req.NationalID,
		Phone:                req.Phone,
		BranchOffice:         req.BranchOffice,
		QueueType:            queueType,
		Status:               model.TicketStatusWaiting,
		PositionInQueue:      position,
		EstimatedWaitMinutes: (position - 1) * queueType.AvgServiceMinutes(),
	}

	if err := s.repo.Create(ctx, ticket); err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	s.logger.Info("ticket created",
		"ticket", ticket.Number, "queue", string(queueType), "position", position)

	// The confirmation and both turn messages are scheduled here so the
	// caller never needs a second round trip. A scheduling failure does
	// not lose the admitted ticket.
	if err := s.messages.ScheduleLifecycle(ctx, ticket); err != nil {
		s.logger.Error(err, "failed to schedule lifecycle messages", "ticket", ticket.Number)
	}

	if s.broker != nil {
		event := messaging.Event{Type: messaging.EventTicketCreated, Payload: ticket}
		if err := s.broker.Publish(ctx, eventsChannel, event); err != nil {
			s.logger.Error(err, "failed to publish event", "event", messaging.EventTicketCreated)
		}
	}

	return ticket, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) GetByReferenceCode(ctx context.Context, code uuid.UUID) (*model.Ticket, error) {
	return s.repo.GetByReferenceCode(ctx, code)
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*model.Ticket, error) {
	return s.repo.GetByNumber(ctx, number)
}

func (s *Service) ListByStatus(ctx context.Context, status model.TicketStatus) ([]*model.Ticket, error) {
	return s.repo.ListByStatus(ctx, status)
}

func (s *Service) ListActiveByQueueType(ctx context.Context, queueType model.QueueType) ([]*model.Ticket, error) {
	if !queueType.Valid() {
		return nil, errors.BadRequest(fmt.Sprintf("unknown queue type %q", string(queueType)), nil)
	}
	return s.repo.ListActiveByQueueType(ctx, queueType, model.ActiveStatuses())
}
