package domain

import "time"

// TicketReply is a response attached to a ticket.
type TicketReply struct {
	ID                int64
	TicketID          int64
	ResponderID       int64
	ResponderUsername string
	Message           string
	IsAIGenerated     bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
