package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/storage"
	"github.com/spec-kit/support-desk/pkg/util/errorutil"
	"github.com/spec-kit/support-desk/pkg/util/validation"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	replies    repository.TicketReplyRepository
	tx         repository.Transactor
	uploads    *storage.Uploader
	dispatcher events.Dispatcher
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	ReplyRepo  repository.TicketReplyRepository
	Transactor repository.Transactor
	Uploader   *storage.Uploader
	Dispatcher events.Dispatcher
}

// Upload is a file received with a new ticket.
type Upload struct {
	FileName string
	Size     int64
	Body     io.Reader
}

// TicketCreateInput describes ticket creation payload. Status is not part of it.
type TicketCreateInput struct {
	Subject     string `form:"subject" validate:"required,max=200"`
	Description string `form:"description" validate:"required"`
	Category    string `form:"category" validate:"omitempty,oneof=Technical Non-Technical Functional"`
	Priority    string `form:"priority" validate:"required,oneof=Low Medium High"`
	Attachment  *Upload
}

// TicketUpdateInput is the admin update form.
type TicketUpdateInput struct {
	Response      string
	Status        string
	IsAIGenerated bool
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		replies:    deps.ReplyRepo,
		tx:         deps.Transactor,
		uploads:    deps.Uploader,
		dispatcher: deps.Dispatcher,
	}
}

// CreateTicket opens a ticket owned by the customer.
func (s *TicketService) CreateTicket(ctx context.Context, owner *domain.Account, input TicketCreateInput) (*domain.Ticket, error) {
	input.Subject = strings.TrimSpace(input.Subject)
	input.Description = strings.TrimSpace(input.Description)
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		OwnerID:       owner.ID,
		OwnerUsername: owner.Username,
		Subject:       input.Subject,
		Description:   input.Description,
		Category:      domain.TicketCategory(input.Category),
		Priority:      domain.TicketPriority(input.Priority),
		Status:        domain.TicketStatusOpen,
	}
	if ticket.Category == "" {
		ticket.Category = domain.TicketCategoryTechnical
	}

	if input.Attachment != nil && s.uploads != nil {
		att, err := s.uploads.Save(ctx, input.Attachment.FileName, input.Attachment.Body, input.Attachment.Size)
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, errorutil.FieldError("attachment", "The uploaded file is too large.")
		}
		if err != nil {
			return nil, err
		}
		ticket.Attachment = att
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		if ticket.Attachment != nil {
			_ = s.uploads.Discard(ctx, ticket.Attachment.StorageKey)
		}
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actorOf(owner),
		Payload: events.TicketCreatedPayload{
			Category:      ticket.Category,
			Priority:      ticket.Priority,
			HasAttachment: ticket.Attachment != nil,
		},
	})
	return ticket, nil
}

// ListForCustomer returns the owner's tickets, newest first, with replies.
func (s *TicketService) ListForCustomer(ctx context.Context, ownerID int64) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.withReplies(ctx, tickets)
}

// ListAll returns every ticket, newest first, with replies.
func (s *TicketService) ListAll(ctx context.Context) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.withReplies(ctx, tickets)
}

// GetTicket fetches a ticket by id.
func (s *TicketService) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errorutil.IsNotFound(err) {
			return nil, errorutil.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, err
	}
	return ticket, nil
}

// UpdateByAdmin upserts the admin's reply, mirrors it into the ticket response and
// applies a valid status, all in one transaction.
func (s *TicketService) UpdateByAdmin(ctx context.Context, admin *domain.Account, id int64, input TicketUpdateInput) (*domain.Ticket, error) {
	var (
		ticket    *domain.Ticket
		oldStatus domain.TicketStatus
		reply     *domain.TicketReply
		created   bool
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.GetTicket(ctx, id)
		if err != nil {
			return err
		}
		oldStatus = ticket.Status

		if text := strings.TrimSpace(input.Response); text != "" {
			reply, created, err = s.upsertReply(ctx, ticket.ID, admin.ID, text, input.IsAIGenerated)
			if err != nil {
				return err
			}
			ticket.Response = &text
		}

		if status := domain.TicketStatus(input.Status); status.Valid() {
			ticket.Status = status
		}
		return s.tickets.Update(ctx, ticket)
	})
	if err != nil {
		return nil, err
	}

	if reply != nil {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketReplyUpserted,
			TicketID: ticket.ID,
			Actor:    actorOf(admin),
			Payload: events.TicketReplyUpsertedPayload{
				ReplyID:       reply.ID,
				Created:       created,
				IsAIGenerated: reply.IsAIGenerated,
			},
		})
	}
	if ticket.Status != oldStatus {
		s.publishStatusChange(ctx, admin, ticket.ID, oldStatus, ticket.Status)
	}
	return ticket, nil
}

// upsertReply overwrites the responder's latest reply on the ticket or creates one.
func (s *TicketService) upsertReply(ctx context.Context, ticketID, responderID int64, text string, aiGenerated bool) (*domain.TicketReply, bool, error) {
	existing, err := s.replies.LatestByResponder(ctx, ticketID, responderID)
	switch {
	case err == nil:
		existing.Message = text
		existing.IsAIGenerated = aiGenerated
		if err := s.replies.UpdateMessage(ctx, existing); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	case errorutil.IsNotFound(err):
		reply := &domain.TicketReply{
			TicketID:      ticketID,
			ResponderID:   responderID,
			Message:       text,
			IsAIGenerated: aiGenerated,
		}
		if err := s.replies.Create(ctx, reply); err != nil {
			return nil, false, err
		}
		return reply, true, nil
	default:
		return nil, false, err
	}
}

// MarkInProcess moves an Open ticket to In Process. Other statuses are left as
// is; changed reports whether a write happened.
func (s *TicketService) MarkInProcess(ctx context.Context, admin *domain.Account, id int64) (*domain.Ticket, bool, error) {
	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if ticket.Status != domain.TicketStatusOpen {
		return ticket, false, nil
	}

	ticket.Status = domain.TicketStatusInProcess
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, false, err
	}
	s.publishStatusChange(ctx, admin, ticket.ID, domain.TicketStatusOpen, ticket.Status)
	return ticket, true, nil
}

// OpenAttachment resolves a ticket's attachment for the owner or an admin.
func (s *TicketService) OpenAttachment(ctx context.Context, viewer *domain.Account, id int64) (*domain.Attachment, *storage.Download, error) {
	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !viewer.IsAdmin() && ticket.OwnerID != viewer.ID {
		return nil, nil, errorutil.NewNotFound("ticket", map[string]any{"id": id})
	}
	if ticket.Attachment == nil || s.uploads == nil {
		return nil, nil, errorutil.NewNotFound("attachment", map[string]any{"ticket_id": id})
	}
	dl, err := s.uploads.Fetch(ctx, ticket.Attachment.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return ticket.Attachment, dl, nil
}

func (s *TicketService) withReplies(ctx context.Context, tickets []domain.Ticket) ([]domain.Ticket, error) {
	if len(tickets) == 0 {
		return tickets, nil
	}
	ids := make([]int64, len(tickets))
	for i := range tickets {
		ids[i] = tickets[i].ID
	}
	byTicket, err := s.replies.ListByTickets(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range tickets {
		tickets[i].Replies = byTicket[tickets[i].ID]
	}
	return tickets, nil
}

func (s *TicketService) publishStatusChange(ctx context.Context, actor *domain.Account, ticketID int64, from, to domain.TicketStatus) {
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticketID,
		Actor:    actorOf(actor),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: from,
			NewStatus: to,
		},
	})
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func actorOf(account *domain.Account) events.Actor {
	return events.Actor{AccountID: account.ID, Role: account.Role}
}
