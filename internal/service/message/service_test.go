package message_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queuedesk/ticketero/internal/model"
	"github.com/queuedesk/ticketero/internal/service/message"
	"github.com/queuedesk/ticketero/pkg/errors"
	"github.com/queuedesk/ticketero/pkg/logger"
	"github.com/queuedesk/ticketero/pkg/metrics"
)

var testMetrics = metrics.New("message_service_test")

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
}

type memMessageRepo struct {
	mu       sync.Mutex
	messages map[uuid.UUID]*model.Message
}

func newMemMessageRepo() *memMessageRepo {
	return &memMessageRepo{messages: make(map[uuid.UUID]*model.Message)}
}

func (r *memMessageRepo) Create(_ context.Context, msg *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *msg
	r.messages[msg.ID] = &copied
	return nil
}

func (r *memMessageRepo) Get(_ context.Context, id uuid.UUID) (*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return nil, errors.NotFound("message", nil)
	}
	copied := *m
	return &copied, nil
}

func (r *memMessageRepo) ListDueForSend(_ context.Context, now time.Time, limit int) ([]*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Message
	for _, m := range r.messages {
		if m.Status == model.MessageStatusPending && !m.ScheduledAt.After(now) {
			copied := *m
			out = append(out, &copied)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *memMessageRepo) ListFailedRetryable(_ context.Context, maxAttempts int, now time.Time, limit int) ([]*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Message
	for _, m := range r.messages {
		if m.Status == model.MessageStatusFailed && m.Attempts < maxAttempts && !m.ScheduledAt.After(now) {
			copied := *m
			out = append(out, &copied)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *memMessageRepo) MarkSent(_ context.Context, id uuid.UUID, externalID string, sentAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok || m.Status == model.MessageStatusSent {
		return errors.Conflict("message already sent")
	}
	m.Status = model.MessageStatusSent
	m.ExternalID = &externalID
	m.SentAt = &sentAt
	return nil
}

func (r *memMessageRepo) MarkFailed(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok || m.Status == model.MessageStatusSent {
		return nil
	}
	m.Status = model.MessageStatusFailed
	m.Attempts++
	return nil
}

type memTicketRepo struct {
	mu      sync.Mutex
	tickets map[uuid.UUID]*model.Ticket
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{tickets: make(map[uuid.UUID]*model.Ticket)}
}

func (r *memTicketRepo) Create(_ context.Context, t *model.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets[t.ID] = t
	return nil
}

func (r *memTicketRepo) Get(_ context.Context, id uuid.UUID) (*model.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, errors.NotFound("ticket", nil)
	}
	copied := *t
	return &copied, nil
}

func (r *memTicketRepo) GetByReferenceCode(context.Context, uuid.UUID) (*model.Ticket, error) {
	return nil, errors.NotFound("ticket", nil)
}

func (r *memTicketRepo) GetByNumber(context.Context, string) (*model.Ticket, error) {
	return nil, errors.NotFound("ticket", nil)
}

func (r *memTicketRepo) ListByStatus(context.Context, model.TicketStatus) ([]*model.Ticket, error) {
	return nil, nil
}

func (r *memTicketRepo) ListActiveByQueueType(context.Context, model.QueueType, []model.TicketStatus) ([]*model.Ticket, error) {
	return nil, nil
}

func (r *memTicketRepo) NextSequence(context.Context, model.QueueType) (int64, error) { return 0, nil }
func (r *memTicketRepo) Assign(context.Context, uuid.UUID, uuid.UUID, int) error      { return nil }
func (r *memTicketRepo) Promote(context.Context, uuid.UUID) error                     { return nil }
func (r *memTicketRepo) SetStatus(context.Context, uuid.UUID, model.TicketStatus) error {
	return nil
}
func (r *memTicketRepo) UpdatePosition(context.Context, uuid.UUID, int, int) error { return nil }
func (r *memTicketRepo) CountByStatus(context.Context, model.TicketStatus) (int, error) {
	return 0, nil
}
func (r *memTicketRepo) CountByQueueType(context.Context, model.QueueType) (int, error) {
	return 0, nil
}
func (r *memTicketRepo) CountCreatedToday(context.Context) (int, error)           { return 0, nil }
func (r *memTicketRepo) AverageWaitMinutesToday(context.Context) (float64, error) { return 0, nil }

// flakyChannel fails the first failures sends, then succeeds.
type flakyChannel struct {
	mu       sync.Mutex
	failures int
	sends    int
}

func (c *flakyChannel) Send(_ context.Context, _ string, _ string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sends++
	if c.sends <= c.failures {
		return "", fmt.Errorf("channel unavailable")
	}
	return fmt.Sprintf("ext-%d", c.sends), nil
}

func seedTicket(repo *memTicketRepo, eta int) *model.Ticket {
	module := 4
	t := &model.Ticket{
		ID:                   uuid.New(),
		ReferenceCode:        uuid.New(),
		Number:               "C07",
		NationalID:           "18345672",
		Phone:                "+56912345678",
		QueueType:            model.QueueTypeCaja,
		Status:               model.TicketStatusWaiting,
		PositionInQueue:      2,
		EstimatedWaitMinutes: eta,
		AssignedModule:       &module,
	}
	repo.tickets[t.ID] = t
	return t
}

func TestScheduleLifecycleOffsets(t *testing.T) {
	ctx := context.Background()
	msgRepo := newMemMessageRepo()
	ticketRepo := newMemTicketRepo()
	svc := message.NewService(msgRepo, ticketRepo, &flakyChannel{}, testLogger(), testMetrics)

	ticket := seedTicket(ticketRepo, 20)
	before := time.Now()
	require.NoError(t, svc.ScheduleLifecycle(ctx, ticket))

	byTemplate := make(map[model.MessageTemplate]*model.Message)
	for _, m := range msgRepo.messages {
		byTemplate[m.Template] = m
	}
	require.Len(t, byTemplate, 3)

	assert.WithinDuration(t, before, byTemplate[model.TemplateTicketCreated].ScheduledAt, time.Second)
	assert.WithinDuration(t, before.Add(15*time.Minute), byTemplate[model.TemplateUpcomingTurn].ScheduledAt, time.Second)
	assert.WithinDuration(t, before.Add(20*time.Minute), byTemplate[model.TemplateNowServing].ScheduledAt, time.Second)

	for _, m := range byTemplate {
		assert.Equal(t, model.MessageStatusPending, m.Status)
		assert.Equal(t, ticket.ID, m.TicketID)
	}
}

func TestDispatchDueSendsAndRecords(t *testing.T) {
	ctx := context.Background()
	msgRepo := newMemMessageRepo()
	ticketRepo := newMemTicketRepo()
	channel := &flakyChannel{}
	svc := message.NewService(msgRepo, ticketRepo, channel, testLogger(), testMetrics)

	ticket := seedTicket(ticketRepo, 0)
	require.NoError(t, svc.Schedule(ctx, ticket, model.TemplateTicketCreated, time.Now().Add(-time.Minute)))
	require.NoError(t, svc.Schedule(ctx, ticket, model.TemplateNowServing, time.Now().Add(time.Hour)))

	require.NoError(t, svc.DispatchDue(ctx, 50))

	var sent, pending int
	for _, m := range msgRepo.messages {
		switch m.Status {
		case model.MessageStatusSent:
			sent++
			require.NotNil(t, m.ExternalID)
			assert.NotEmpty(t, *m.ExternalID)
			require.NotNil(t, m.SentAt)
		case model.MessageStatusPending:
			pending++
		}
	}
	// The future message stays untouched.
	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, pending)
}

func TestDispatchStopsRetryingAtCeiling(t *testing.T) {
	ctx := context.Background()
	msgRepo := newMemMessageRepo()
	ticketRepo := newMemTicketRepo()
	channel := &flakyChannel{failures: 100}
	svc := message.NewService(msgRepo, ticketRepo, channel, testLogger(), testMetrics)

	ticket := seedTicket(ticketRepo, 0)
	require.NoError(t, svc.Schedule(ctx, ticket, model.TemplateTicketCreated, time.Now().Add(-time.Minute)))

	for i := 0; i < message.MaxRetries+2; i++ {
		require.NoError(t, svc.DispatchDue(ctx, 50))
	}

	require.Len(t, msgRepo.messages, 1)
	for _, m := range msgRepo.messages {
		assert.Equal(t, model.MessageStatusFailed, m.Status)
		assert.Equal(t, message.MaxRetries, m.Attempts)
	}
	// One attempt as pending, then retries up to the ceiling, never more.
	assert.Equal(t, message.MaxRetries, channel.sends)
}

func TestDispatchRecoversAfterTransientFailure(t *testing.T) {
	ctx := context.Background()
	msgRepo := newMemMessageRepo()
	ticketRepo := newMemTicketRepo()
	channel := &flakyChannel{failures: 1}
	svc := message.NewService(msgRepo, ticketRepo, channel, testLogger(), testMetrics)

	ticket := seedTicket(ticketRepo, 0)
	require.NoError(t, svc.Schedule(ctx, ticket, model.TemplateTicketCreated, time.Now().Add(-time.Minute)))

	require.NoError(t, svc.DispatchDue(ctx, 50))
	require.NoError(t, svc.DispatchDue(ctx, 50))

	for _, m := range msgRepo.messages {
		assert.Equal(t, model.MessageStatusSent, m.Status)
		assert.Equal(t, 1, m.Attempts)
	}
}

func TestRenderTemplates(t *testing.T) {
	module := 4
	ticket := &model.Ticket{
		Number:               "C07",
		QueueType:            model.QueueTypeCaja,
		PositionInQueue:      2,
		EstimatedWaitMinutes: 10,
		AssignedModule:       &module,
	}

	assert.Equal(t,
		"🎫 Ticket creado: C07\nCola: Caja\nPosición: 2\nTiempo estimado: 10 minutos",
		message.Render(model.TemplateTicketCreated, ticket))

	assert.Equal(t,
		"⏰ ¡Tu turno se acerca!\nTicket: C07\nPrepárate, serás atendido pronto.",
		message.Render(model.TemplateUpcomingTurn, ticket))

	assert.Equal(t,
		"🔔 ¡ES TU TURNO!\nTicket: C07\nDirígete al módulo 4",
		message.Render(model.TemplateNowServing, ticket))

	ticket.AssignedModule = nil
	assert.Equal(t,
		"🔔 ¡ES TU TURNO!\nTicket: C07\nDirígete al módulo 0",
		message.Render(model.TemplateNowServing, ticket))
}
