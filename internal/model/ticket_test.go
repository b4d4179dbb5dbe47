package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/queuedesk/ticketero/internal/model"
)

func TestTicketStatusTransitions(t *testing.T) {
	cases := []struct {
		from    model.TicketStatus
		to      model.TicketStatus
		allowed bool
	}{
		{model.TicketStatusWaiting, model.TicketStatusImminent, true},
		{model.TicketStatusWaiting, model.TicketStatusServing, true},
		{model.TicketStatusWaiting, model.TicketStatusNoShow, true},
		{model.TicketStatusImminent, model.TicketStatusServing, true},
		{model.TicketStatusImminent, model.TicketStatusNoShow, false},
		{model.TicketStatusImminent, model.TicketStatusWaiting, false},
		{model.TicketStatusServing, model.TicketStatusCompleted, true},
		{model.TicketStatusServing, model.TicketStatusCancelled, true},
		{model.TicketStatusServing, model.TicketStatusWaiting, false},
		{model.TicketStatusCompleted, model.TicketStatusServing, false},
		{model.TicketStatusCancelled, model.TicketStatusWaiting, false},
		{model.TicketStatusNoShow, model.TicketStatusWaiting, false},
	}

	for _, c := range cases {
		assert.Equal(t, c.allowed, c.from.CanTransition(c.to), "%s -> %s", c.from, c.to)
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.False(t, model.TicketStatusWaiting.IsTerminal())
	assert.False(t, model.TicketStatusImminent.IsTerminal())
	assert.False(t, model.TicketStatusServing.IsTerminal())
	assert.True(t, model.TicketStatusCompleted.IsTerminal())
	assert.True(t, model.TicketStatusCancelled.IsTerminal())
	assert.True(t, model.TicketStatusNoShow.IsTerminal())
}

func TestQueueTypeCatalog(t *testing.T) {
	assert.Len(t, model.AllQueueTypes(), 4)

	assert.Equal(t, byte('C'), model.QueueTypeCaja.Prefix())
	assert.Equal(t, 5, model.QueueTypeCaja.AvgServiceMinutes())
	assert.Equal(t, "Caja", model.QueueTypeCaja.DisplayName())

	assert.Equal(t, byte('G'), model.QueueTypeGerencia.Prefix())
	assert.True(t, model.QueueTypeEmpresas.Valid())
	assert.False(t, model.QueueType("LOBBY").Valid())
}
