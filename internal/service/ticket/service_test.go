package ticket_test

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queuedesk/ticketero/internal/model"
	messageService "github.com/queuedesk/ticketero/internal/service/message"
	"github.com/queuedesk/ticketero/internal/service/ticket"
	"github.com/queuedesk/ticketero/pkg/errors"
	"github.com/queuedesk/ticketero/pkg/logger"
	"github.com/queuedesk/ticketero/pkg/metrics"
)

var testMetrics = metrics.New("ticket_service_test")

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
}

type memTicketRepo struct {
	mu      sync.Mutex
	tickets map[uuid.UUID]*model.Ticket
	seq     map[model.QueueType]int64
	order   int
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{
		tickets: make(map[uuid.UUID]*model.Ticket),
		seq:     make(map[model.QueueType]int64),
	}
}

func (r *memTicketRepo) Create(_ context.Context, t *model.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order++
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().Add(time.Duration(r.order) * time.Millisecond)
	}
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

func (r *memTicketRepo) GetByReferenceCode(_ context.Context, code uuid.UUID) (*model.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tickets {
		if t.ReferenceCode == code {
			copied := *t
			return &copied, nil
		}
	}
	return nil, errors.NotFound("ticket", nil)
}

func (r *memTicketRepo) GetByNumber(_ context.Context, number string) (*model.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tickets {
		if t.Number == number {
			copied := *t
			return &copied, nil
		}
	}
	return nil, errors.NotFound("ticket", nil)
}

func (r *memTicketRepo) list(filter func(*model.Ticket) bool) []*model.Ticket {
	var out []*model.Ticket
	for _, t := range r.tickets {
		if filter(t) {
			copied := *t
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *memTicketRepo) ListByStatus(_ context.Context, status model.TicketStatus) ([]*model.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(func(t *model.Ticket) bool { return t.Status == status }), nil
}

func (r *memTicketRepo) ListActiveByQueueType(_ context.Context, queueType model.QueueType, statuses []model.TicketStatus) ([]*model.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(func(t *model.Ticket) bool {
		if t.QueueType != queueType {
			return false
		}
		for _, s := range statuses {
			if t.Status == s {
				return true
			}
		}
		return false
	}), nil
}

func (r *memTicketRepo) NextSequence(_ context.Context, queueType model.QueueType) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq[queueType]++
	return r.seq[queueType], nil
}

func (r *memTicketRepo) Assign(context.Context, uuid.UUID, uuid.UUID, int) error { return nil }
func (r *memTicketRepo) Promote(context.Context, uuid.UUID) error               { return nil }
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
func (r *memTicketRepo) CountCreatedToday(context.Context) (int, error)        { return 0, nil }
func (r *memTicketRepo) AverageWaitMinutesToday(context.Context) (float64, error) { return 0, nil }

type memMessageRepo struct {
	mu       sync.Mutex
	messages []*model.Message
}

func (r *memMessageRepo) Create(_ context.Context, msg *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *msg
	r.messages = append(r.messages, &copied)
	return nil
}

func (r *memMessageRepo) Get(_ context.Context, id uuid.UUID) (*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			copied := *m
			return &copied, nil
		}
	}
	return nil, errors.NotFound("message", nil)
}

func (r *memMessageRepo) ListDueForSend(context.Context, time.Time, int) ([]*model.Message, error) {
	return nil, nil
}

func (r *memMessageRepo) ListFailedRetryable(context.Context, int, time.Time, int) ([]*model.Message, error) {
	return nil, nil
}

func (r *memMessageRepo) MarkSent(context.Context, uuid.UUID, string, time.Time) error { return nil }
func (r *memMessageRepo) MarkFailed(context.Context, uuid.UUID) error                  { return nil }

func (r *memMessageRepo) byTemplate(template model.MessageTemplate) *model.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.Template == template {
			return m
		}
	}
	return nil
}

func newTestService(tickets *memTicketRepo, messages *memMessageRepo) *ticket.Service {
	messageSvc := messageService.NewService(messages, tickets, nil, testLogger(), testMetrics)
	return ticket.NewService(tickets, messageSvc, nil, testLogger())
}

func createRequest(queueType string) *model.CreateTicketRequest {
	return &model.CreateTicketRequest{
		NationalID:   "18345672",
		Phone:        "+56912345678",
		BranchOffice: "Sucursal Centro",
		QueueType:    queueType,
	}
}

func TestCreateNumbersTicketsPerQueue(t *testing.T) {
	ctx := context.Background()
	repo := newMemTicketRepo()
	svc := newTestService(repo, &memMessageRepo{})

	for i := 1; i <= 3; i++ {
		created, err := svc.Create(ctx, createRequest("CAJA"))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("C%02d", i), created.Number)
	}

	// Each queue numbers independently.
	created, err := svc.Create(ctx, createRequest("EMPRESAS"))
	require.NoError(t, err)
	assert.Equal(t, "E01", created.Number)

	created, err = svc.Create(ctx, createRequest("GERENCIA"))
	require.NoError(t, err)
	assert.Equal(t, "G01", created.Number)
}

func TestCreateComputesPositionAndEstimate(t *testing.T) {
	ctx := context.Background()
	repo := newMemTicketRepo()
	svc := newTestService(repo, &memMessageRepo{})

	var last *model.Ticket
	for i := 1; i <= 4; i++ {
		created, err := svc.Create(ctx, createRequest("CAJA"))
		require.NoError(t, err)
		assert.Equal(t, i, created.PositionInQueue)
		assert.Equal(t, (i-1)*5, created.EstimatedWaitMinutes)
		last = created
	}

	assert.Equal(t, model.TicketStatusWaiting, last.Status)
	assert.NotEqual(t, uuid.Nil, last.ReferenceCode)
}

func TestCreateSchedulesLifecycleMessages(t *testing.T) {
	ctx := context.Background()
	repo := newMemTicketRepo()
	messages := &memMessageRepo{}
	svc := newTestService(repo, messages)

	// Three tickets ahead put the new one at position 4, 15 minutes out.
	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, createRequest("CAJA"))
		require.NoError(t, err)
	}
	messages.mu.Lock()
	messages.messages = nil
	messages.mu.Unlock()

	before := time.Now()
	created, err := svc.Create(ctx, createRequest("CAJA"))
	require.NoError(t, err)
	require.Equal(t, 15, created.EstimatedWaitMinutes)

	confirmation := messages.byTemplate(model.TemplateTicketCreated)
	reminder := messages.byTemplate(model.TemplateUpcomingTurn)
	serving := messages.byTemplate(model.TemplateNowServing)
	require.NotNil(t, confirmation)
	require.NotNil(t, reminder)
	require.NotNil(t, serving)

	assert.Equal(t, created.ID, confirmation.TicketID)
	assert.WithinDuration(t, before, confirmation.ScheduledAt, time.Second)
	assert.WithinDuration(t, before.Add(10*time.Minute), reminder.ScheduledAt, time.Second)
	assert.WithinDuration(t, before.Add(15*time.Minute), serving.ScheduledAt, time.Second)
}

func TestCreateReminderNeverInThePast(t *testing.T) {
	ctx := context.Background()
	repo := newMemTicketRepo()
	messages := &memMessageRepo{}
	svc := newTestService(repo, messages)

	// First ticket in an empty queue waits zero minutes; the reminder
	// still lands ahead of now.
	before := time.Now()
	created, err := svc.Create(ctx, createRequest("CAJA"))
	require.NoError(t, err)
	require.Equal(t, 0, created.EstimatedWaitMinutes)

	reminder := messages.byTemplate(model.TemplateUpcomingTurn)
	require.NotNil(t, reminder)
	assert.WithinDuration(t, before.Add(time.Minute), reminder.ScheduledAt, time.Second)
}

func TestCreateRejectsUnknownQueueType(t *testing.T) {
	svc := newTestService(newMemTicketRepo(), &memMessageRepo{})

	_, err := svc.Create(context.Background(), createRequest("LOBBY"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrBadRequest))
}

func TestLookupsByIdentifier(t *testing.T) {
	ctx := context.Background()
	repo := newMemTicketRepo()
	svc := newTestService(repo, &memMessageRepo{})

	created, err := svc.Create(ctx, createRequest("PERSONAL_BANKER"))
	require.NoError(t, err)

	byID, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Number, byID.Number)

	byRef, err := svc.GetByReferenceCode(ctx, created.ReferenceCode)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byRef.ID)

	byNumber, err := svc.GetByNumber(ctx, "P01")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byNumber.ID)

	_, err = svc.Get(ctx, uuid.New())
	assert.True(t, errors.IsCode(err, errors.ErrNotFound))
}
