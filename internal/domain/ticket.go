package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen      TicketStatus = "Open"
	TicketStatusInProcess TicketStatus = "In Process"
	TicketStatusResolved  TicketStatus = "Resolved"
	TicketStatusClosed    TicketStatus = "Closed"
)

// TicketStatuses lists statuses in display order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProcess,
	TicketStatusResolved,
	TicketStatusClosed,
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	for _, known := range TicketStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "Low"
	TicketPriorityMedium TicketPriority = "Medium"
	TicketPriorityHigh   TicketPriority = "High"
)

// TicketPriorities lists priorities in display order.
var TicketPriorities = []TicketPriority{TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh}

// TicketCategory classifies the nature of an issue.
type TicketCategory string

const (
	TicketCategoryTechnical    TicketCategory = "Technical"
	TicketCategoryNonTechnical TicketCategory = "Non-Technical"
	TicketCategoryFunctional   TicketCategory = "Functional"
)

// TicketCategories lists categories in display order.
var TicketCategories = []TicketCategory{TicketCategoryTechnical, TicketCategoryNonTechnical, TicketCategoryFunctional}

// Attachment references a file stored under the ticket attachments namespace.
type Attachment struct {
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
}

// Ticket is a customer-submitted support issue.
type Ticket struct {
	ID            int64
	OwnerID       int64
	OwnerUsername string
	Subject       string
	Description   string
	Category      TicketCategory
	Priority      TicketPriority
	Status        TicketStatus
	Attachment    *Attachment
	// Response mirrors the text of the latest reply written through the admin update.
	Response  *string
	CreatedAt time.Time
	UpdatedAt time.Time
	Replies   []TicketReply
}

// ResponseText returns the mirrored response or an empty string.
func (t *Ticket) ResponseText() string {
	if t == nil || t.Response == nil {
		return ""
	}
	return *t.Response
}
