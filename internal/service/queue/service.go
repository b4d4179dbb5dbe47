package queue

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/queuedesk/ticketero/internal/model"
	"github.com/queuedesk/ticketero/internal/repository"
	"github.com/queuedesk/ticketero/pkg/errors"
	"github.com/queuedesk/ticketero/pkg/logger"
	"github.com/queuedesk/ticketero/pkg/messaging"
	"github.com/queuedesk/ticketero/pkg/metrics"
)

// ImminentThreshold is the queue position at or under which a waiting
// ticket is promoted to imminent.
const ImminentThreshold = 3

const eventsChannel = "ticket-events"

type Service struct {
	tickets  repository.TicketRepository
	advisors repository.AdvisorRepository
	broker   messaging.Broker
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewService(
	tickets repository.TicketRepository,
	advisors repository.AdvisorRepository,
	broker messaging.Broker,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Service {
	return &Service{
		tickets:  tickets,
		advisors: advisors,
		broker:   broker,
		logger:   logger,
		metrics:  metrics,
	}
}

// Reconcile runs one assignment pass: waiting tickets are matched to
// available advisors in creation order, unmatched near-front tickets
// are promoted to imminent, and every active ticket's position and
// wait estimate are refreshed. A pass over an unchanged store is a
// no-op. Individual item failures are logged and skipped; the pass
// always continues.
func (s *Service) Reconcile(ctx context.Context) error {
	s.metrics.ReconciliationRuns.Inc()

	waiting, err := s.tickets.ListByStatus(ctx, model.TicketStatusWaiting)
	if err != nil {
		return fmt.Errorf("failed to fetch waiting tickets: %w", err)
	}
	s.metrics.TicketsWaiting.Set(float64(len(waiting)))

	for _, ticket := range waiting {
		if err := s.processTicket(ctx, ticket); err != nil {
			if errors.IsCode(err, errors.ErrConflict) {
				s.metrics.TicketsSkipped.WithLabelValues("conflict").Inc()
				s.logger.Debug("ticket skipped this pass", "ticket", ticket.Number)
			} else {
				s.metrics.TicketsSkipped.WithLabelValues("error").Inc()
				s.logger.Error(err, "failed to process ticket", "ticket", ticket.Number)
			}
		}
	}

	// Assignments above shift the ranks of everyone behind them.
	s.refreshPositions(ctx)
	return nil
}

func (s *Service) processTicket(ctx context.Context, ticket *model.Ticket) error {
	advisors, err := s.advisors.ListAvailableOrderedByWorkload(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch available advisors: %w", err)
	}

	if len(advisors) == 0 {
		return s.recomputePosition(ctx, ticket)
	}
	return s.assign(ctx, ticket, advisors[0])
}

// assign commits the match optimistically: the advisor row is only
// incremented if its status and workload are unchanged since the read,
// otherwise the ticket is retried on the next pass.
func (s *Service) assign(ctx context.Context, ticket *model.Ticket, advisor *model.Advisor) error {
	if err := s.advisors.IncrementAssigned(ctx, advisor.ID, advisor.AssignedCount); err != nil {
		return err
	}

	if err := s.tickets.Assign(ctx, ticket.ID, advisor.ID, advisor.ModuleNumber); err != nil {
		// The ticket left the queue between the read and the write;
		// release the slot we just took.
		if decErr := s.advisors.DecrementAssigned(ctx, advisor.ID); decErr != nil {
			s.logger.Error(decErr, "failed to release advisor after aborted assignment",
				"advisor_id", advisor.ID.String())
		}
		return err
	}

	s.metrics.TicketsAssigned.Inc()
	s.logger.Info("ticket assigned",
		"ticket", ticket.Number, "advisor", advisor.Name, "module", advisor.ModuleNumber)

	s.publish(ctx, messaging.EventTicketAssigned, map[string]interface{}{
		"ticket_id":     ticket.ID,
		"ticket_number": ticket.Number,
		"advisor_id":    advisor.ID,
		"module":        advisor.ModuleNumber,
	})
	return nil
}

// recomputePosition re-ranks the ticket within its queue and promotes
// it to imminent when it is within the front threshold.
func (s *Service) recomputePosition(ctx context.Context, ticket *model.Ticket) error {
	active, err := s.tickets.ListActiveByQueueType(ctx, ticket.QueueType, model.ActiveStatuses())
	if err != nil {
		return fmt.Errorf("failed to fetch active tickets: %w", err)
	}

	position := rankOf(ticket.ID, active)
	if position <= ImminentThreshold && ticket.Status == model.TicketStatusWaiting {
		if err := s.tickets.Promote(ctx, ticket.ID); err != nil {
			if !errors.IsCode(err, errors.ErrConflict) {
				return err
			}
			// Someone else moved the ticket; its position still holds.
		} else {
			s.logger.Info("ticket promoted to imminent", "ticket", ticket.Number, "position", position)
		}
	}

	estimated := (position - 1) * ticket.QueueType.AvgServiceMinutes()
	if err := s.tickets.UpdatePosition(ctx, ticket.ID, position, estimated); err != nil {
		return err
	}
	return nil
}

// refreshPositions sweeps all still-queued tickets after assignments
// have removed tickets from ahead of them.
func (s *Service) refreshPositions(ctx context.Context) {
	for _, status := range model.ActiveStatuses() {
		tickets, err := s.tickets.ListByStatus(ctx, status)
		if err != nil {
			s.logger.Error(err, "failed to fetch tickets for position refresh", "status", string(status))
			continue
		}
		for _, ticket := range tickets {
			if err := s.recomputePosition(ctx, ticket); err != nil {
				s.logger.Error(err, "failed to refresh position", "ticket", ticket.Number)
			}
		}
	}
}

// rankOf returns the 1-based rank of the ticket among the active set,
// which is ordered by creation time ascending.
func rankOf(id uuid.UUID, active []*model.Ticket) int {
	for i, t := range active {
		if t.ID == id {
			return i + 1
		}
	}
	return len(active) + 1
}

// Complete finishes a ticket and releases its advisor. Terminal
// tickets are rejected with InvalidState.
func (s *Service) Complete(ctx context.Context, ticketID uuid.UUID) error {
	return s.finish(ctx, ticketID, model.TicketStatusCompleted, messaging.EventTicketCompleted)
}

// Cancel aborts a ticket from any non-terminal status, including
// mid-service, and releases its advisor.
func (s *Service) Cancel(ctx context.Context, ticketID uuid.UUID) error {
	return s.finish(ctx, ticketID, model.TicketStatusCancelled, messaging.EventTicketCancelled)
}

func (s *Service) finish(ctx context.Context, ticketID uuid.UUID, target model.TicketStatus, event string) error {
	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		return err
	}

	if ticket.Status.IsTerminal() {
		return errors.InvalidState(fmt.Sprintf("ticket %s is already %s", ticket.Number, ticket.Status))
	}

	if err := s.tickets.SetStatus(ctx, ticketID, target); err != nil {
		if errors.IsCode(err, errors.ErrConflict) {
			return errors.InvalidState(fmt.Sprintf("ticket %s is already terminal", ticket.Number))
		}
		return err
	}

	if ticket.AssignedAdvisorID != nil {
		if err := s.advisors.DecrementAssigned(ctx, *ticket.AssignedAdvisorID); err != nil {
			s.logger.Error(err, "failed to release advisor",
				"ticket", ticket.Number, "advisor_id", ticket.AssignedAdvisorID.String())
		}
	}

	s.logger.Info("ticket closed", "ticket", ticket.Number, "status", string(target))
	s.publish(ctx, event, map[string]interface{}{
		"ticket_id":     ticket.ID,
		"ticket_number": ticket.Number,
	})
	return nil
}

// MarkNoShow ages out a ticket whose holder never appeared. Only valid
// from waiting; there is no automatic timeout, the desk decides.
func (s *Service) MarkNoShow(ctx context.Context, ticketID uuid.UUID) error {
	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		return err
	}

	if ticket.Status != model.TicketStatusWaiting {
		return errors.InvalidState(fmt.Sprintf("ticket %s is %s, not waiting", ticket.Number, ticket.Status))
	}

	if err := s.tickets.SetStatus(ctx, ticketID, model.TicketStatusNoShow); err != nil {
		if errors.IsCode(err, errors.ErrConflict) {
			return errors.InvalidState(fmt.Sprintf("ticket %s is already terminal", ticket.Number))
		}
		return err
	}

	s.logger.Info("ticket marked no-show", "ticket", ticket.Number)
	s.publish(ctx, messaging.EventTicketNoShow, map[string]interface{}{
		"ticket_id":     ticket.ID,
		"ticket_number": ticket.Number,
	})
	return nil
}

func (s *Service) publish(ctx context.Context, eventType string, payload interface{}) {
	if s.broker == nil {
		return
	}
	event := messaging.Event{Type: eventType, Payload: payload}
	if err := s.broker.Publish(ctx, eventsChannel, event); err != nil {
		s.logger.Error(err, "failed to publish event", "event", eventType)
	}
}
