package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	// Update writes status and response and refreshes updated_at.
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	// ListByOwner returns the owner's tickets, newest first.
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Ticket, error)
	// ListAll returns every ticket, newest first.
	ListAll(ctx context.Context) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (account_id, subject, description, category, priority, status,
            attachment_key, attachment_name, attachment_mime, attachment_size, response)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	var key, name, mime *string
	var size *int64
	if a := ticket.Attachment; a != nil {
		key, name, mime, size = &a.StorageKey, &a.FileName, &a.MimeType, &a.SizeBytes
	}
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		ticket.OwnerID,
		ticket.Subject,
		ticket.Description,
		ticket.Category,
		ticket.Priority,
		ticket.Status,
		key,
		name,
		mime,
		size,
		ticket.Response,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	return mapError(err)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, response=$2, updated_at=NOW()
        WHERE id=$3
        RETURNING updated_at`
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		ticket.Status,
		ticket.Response,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
	return mapError(err)
}

const selectTicket = `
        SELECT t.id, t.account_id, a.username, t.subject, t.description, t.category, t.priority,
               t.status, t.attachment_key, t.attachment_name, t.attachment_mime, t.attachment_size,
               t.response, t.created_at, t.updated_at
        FROM tickets t JOIN accounts a ON a.id = t.account_id`

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, selectTicket+` WHERE t.id=$1`, id)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, errorutil.ErrNotFound
	}
	return &tickets[0], nil
}

func (r *ticketRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Ticket, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, selectTicket+` WHERE t.account_id=$1 ORDER BY t.created_at DESC, t.id DESC`, ownerID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListAll(ctx context.Context) ([]domain.Ticket, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, selectTicket+` ORDER BY t.created_at DESC, t.id DESC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var (
			ticket domain.Ticket
			key    *string
			name   *string
			mime   *string
			size   *int64
		)
		if err := rows.Scan(
			&ticket.ID,
			&ticket.OwnerID,
			&ticket.OwnerUsername,
			&ticket.Subject,
			&ticket.Description,
			&ticket.Category,
			&ticket.Priority,
			&ticket.Status,
			&key,
			&name,
			&mime,
			&size,
			&ticket.Response,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if key != nil {
			ticket.Attachment = &domain.Attachment{StorageKey: *key}
			if name != nil {
				ticket.Attachment.FileName = *name
			}
			if mime != nil {
				ticket.Attachment.MimeType = *mime
			}
			if size != nil {
				ticket.Attachment.SizeBytes = *size
			}
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
