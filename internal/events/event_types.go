package events

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketReplyUpserted EventType = "ticket_reply_upserted"
	EventTicketReplyDrafted  EventType = "ticket_reply_drafted"
)

// AllEventTypes lists every type the services publish.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketStatusChanged,
	EventTicketReplyUpserted,
	EventTicketReplyDrafted,
}

// Actor identifies who triggered an event.
type Actor struct {
	AccountID int64       `json:"account_id"`
	Role      domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	Type      EventType `json:"type"`
	TicketID  int64     `json:"ticket_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Category      domain.TicketCategory `json:"category"`
	Priority      domain.TicketPriority `json:"priority"`
	HasAttachment bool                  `json:"has_attachment"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketReplyUpsertedPayload payload.
type TicketReplyUpsertedPayload struct {
	ReplyID       int64 `json:"reply_id"`
	Created       bool  `json:"created"`
	IsAIGenerated bool  `json:"is_ai_generated"`
}
