package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

const displayTime = "Jan 02, 2006 15:04"

// TicketView is the template model for a ticket row.
type TicketView struct {
	ID          int64
	Subject     string
	Description string
	Category    string
	Priority    string
	Status      string
	StatusClass string
	Owner       string
	Response    string
	Attachment  *AttachmentView
	CreatedAt   string
	UpdatedAt   string
	Replies     []ReplyView
}

// AttachmentView links to a ticket attachment.
type AttachmentView struct {
	Name string
	URL  string
}

// ReplyView is the template model for a reply.
type ReplyView struct {
	Responder     string
	Message       string
	IsAIGenerated bool
	CreatedAt     string
	UpdatedAt     string
}

// NewTicketViews converts tickets for rendering.
func NewTicketViews(tickets []domain.Ticket) []TicketView {
	views := make([]TicketView, 0, len(tickets))
	for i := range tickets {
		views = append(views, NewTicketView(&tickets[i]))
	}
	return views
}

// NewTicketView converts a single ticket.
func NewTicketView(t *domain.Ticket) TicketView {
	view := TicketView{
		ID:          t.ID,
		Subject:     t.Subject,
		Description: t.Description,
		Category:    string(t.Category),
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		StatusClass: strings.ToLower(strings.ReplaceAll(string(t.Status), " ", "-")),
		Owner:       t.OwnerUsername,
		Response:    t.ResponseText(),
		CreatedAt:   formatTime(t.CreatedAt),
		UpdatedAt:   formatTime(t.UpdatedAt),
	}
	if t.Attachment != nil {
		view.Attachment = &AttachmentView{
			Name: t.Attachment.FileName,
			URL:  fmt.Sprintf("/tickets/attachment/%d/", t.ID),
		}
	}
	for _, r := range t.Replies {
		view.Replies = append(view.Replies, ReplyView{
			Responder:     r.ResponderUsername,
			Message:       r.Message,
			IsAIGenerated: r.IsAIGenerated,
			CreatedAt:     formatTime(r.CreatedAt),
			UpdatedAt:     formatTime(r.UpdatedAt),
		})
	}
	return view
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(displayTime)
}
