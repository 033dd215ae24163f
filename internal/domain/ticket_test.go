package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTicketStatusValid(t *testing.T) {
	for _, s := range TicketStatuses {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, TicketStatus("OPEN").Valid())
	assert.False(t, TicketStatus("").Valid())
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleCustomer.Valid())
	assert.False(t, Role("superuser").Valid())
}

func TestResponseText(t *testing.T) {
	var nilTicket *Ticket
	assert.Equal(t, "", nilTicket.ResponseText())

	text := "done"
	ticket := &Ticket{Response: &text}
	assert.Equal(t, "done", ticket.ResponseText())
}
