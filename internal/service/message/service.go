package message

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/queuedesk/ticketero/internal/model"
	"github.com/queuedesk/ticketero/internal/notifier"
	"github.com/queuedesk/ticketero/internal/repository"
	"github.com/queuedesk/ticketero/pkg/logger"
	"github.com/queuedesk/ticketero/pkg/metrics"
)

const (
	// MaxRetries caps delivery attempts; a message that fails this many
	// times stays failed for good.
	MaxRetries = 3

	// reminderLeadMinutes is subtracted from the wait estimate when
	// scheduling the upcoming-turn reminder.
	reminderLeadMinutes = 5
)

type Service struct {
	repo       repository.MessageRepository
	ticketRepo repository.TicketRepository
	channel    notifier.Channel
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

func NewService(
	repo repository.MessageRepository,
	ticketRepo repository.TicketRepository,
	channel notifier.Channel,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Service {
	return &Service{
		repo:       repo,
		ticketRepo: ticketRepo,
		channel:    channel,
		logger:     logger,
		metrics:    metrics,
	}
}

// Schedule persists a pending message for later dispatch.
func (s *Service) Schedule(ctx context.Context, ticket *model.Ticket, template model.MessageTemplate, dueAt time.Time) error {
	msg := &model.Message{
		ID:          uuid.New(),
		TicketID:    ticket.ID,
		Template:    template,
		ScheduledAt: dueAt,
		Status:      model.MessageStatusPending,
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		return fmt.Errorf("failed to schedule %s message: %w", template, err)
	}

	s.logger.Debug("scheduled message",
		"ticket", ticket.Number, "template", string(template), "due_at", dueAt)
	return nil
}

// ScheduleLifecycle schedules the three standard messages for a newly
// created ticket. Due times are derived once from the wait estimate at
// creation; they are not rescheduled when the estimate later changes.
func (s *Service) ScheduleLifecycle(ctx context.Context, ticket *model.Ticket) error {
	now := time.Now()

	if err := s.Schedule(ctx, ticket, model.TemplateTicketCreated, now); err != nil {
		return err
	}

	reminderDelay := ticket.EstimatedWaitMinutes - reminderLeadMinutes
	if reminderDelay < 1 {
		reminderDelay = 1
	}
	if err := s.Schedule(ctx, ticket, model.TemplateUpcomingTurn, now.Add(time.Duration(reminderDelay)*time.Minute)); err != nil {
		return err
	}

	return s.Schedule(ctx, ticket, model.TemplateNowServing, now.Add(time.Duration(ticket.EstimatedWaitMinutes)*time.Minute))
}

// DispatchDue sends up to limit pending messages whose due time has
// passed, then retries failed messages still under the attempt ceiling.
// One message's failure never stops the rest of the pass.
func (s *Service) DispatchDue(ctx context.Context, limit int) error {
	now := time.Now()

	pending, err := s.repo.ListDueForSend(ctx, now, limit)
	if err != nil {
		return fmt.Errorf("failed to fetch due messages: %w", err)
	}
	if len(pending) > 0 {
		s.logger.Info("dispatching pending messages", "count", len(pending))
	}
	for _, msg := range pending {
		s.deliver(ctx, msg)
	}

	retryable, err := s.repo.ListFailedRetryable(ctx, MaxRetries, now, limit)
	if err != nil {
		return fmt.Errorf("failed to fetch retryable messages: %w", err)
	}
	if len(retryable) > 0 {
		s.logger.Info("retrying failed messages", "count", len(retryable))
	}
	for _, msg := range retryable {
		s.deliver(ctx, msg)
	}

	return nil
}

func (s *Service) deliver(ctx context.Context, msg *model.Message) {
	ticket, err := s.ticketRepo.Get(ctx, msg.TicketID)
	if err != nil {
		s.logger.Error(err, "skipping message with missing ticket", "message_id", msg.ID.String())
		return
	}

	text := Render(msg.Template, ticket)
	externalID, err := s.channel.Send(ctx, ticket.Phone, text)
	if err != nil {
		s.metrics.MessagesFailed.Inc()
		s.logger.Error(err, "message delivery failed",
			"message_id", msg.ID.String(), "ticket", ticket.Number, "attempt", msg.Attempts+1)
		if markErr := s.repo.MarkFailed(ctx, msg.ID); markErr != nil {
			s.logger.Error(markErr, "failed to record delivery failure", "message_id", msg.ID.String())
		}
		return
	}

	if err := s.repo.MarkSent(ctx, msg.ID, externalID, time.Now()); err != nil {
		s.logger.Error(err, "failed to record delivery", "message_id", msg.ID.String())
		return
	}

	s.metrics.MessagesDispatched.Inc()
	s.logger.Info("message sent",
		"message_id", msg.ID.String(), "ticket", ticket.Number, "external_id", externalID)
}

// Render produces the outbound text for a template from the ticket's
// current fields. It never fails: absent optional fields fall back to
// defined defaults.
func Render(template model.MessageTemplate, ticket *model.Ticket) string {
	switch template {
	case model.TemplateTicketCreated:
		return fmt.Sprintf(
			"🎫 Ticket creado: %s\nCola: %s\nPosición: %d\nTiempo estimado: %d minutos",
			ticket.Number,
			ticket.QueueType.DisplayName(),
			ticket.PositionInQueue,
			ticket.EstimatedWaitMinutes,
		)
	case model.TemplateUpcomingTurn:
		return fmt.Sprintf(
			"⏰ ¡Tu turno se acerca!\nTicket: %s\nPrepárate, serás atendido pronto.",
			ticket.Number,
		)
	case model.TemplateNowServing:
		module := 0
		if ticket.AssignedModule != nil {
			module = *ticket.AssignedModule
		}
		return fmt.Sprintf(
			"🔔 ¡ES TU TURNO!\nTicket: %s\nDirígete al módulo %d",
			ticket.Number,
			module,
		)
	}
	return ""
}
