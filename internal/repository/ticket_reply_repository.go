package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// TicketReplyRepository manages the reply log of tickets.
type TicketReplyRepository interface {
	Create(ctx context.Context, reply *domain.TicketReply) error
	// UpdateMessage overwrites message and AI flag and refreshes updated_at.
	UpdateMessage(ctx context.Context, reply *domain.TicketReply) error
	// LatestByResponder returns the most recently created reply by responder on ticket.
	LatestByResponder(ctx context.Context, ticketID, responderID int64) (*domain.TicketReply, error)
	// ListByTickets groups replies per ticket, oldest first.
	ListByTickets(ctx context.Context, ticketIDs []int64) (map[int64][]domain.TicketReply, error)
}

type ticketReplyRepository struct {
	pool *pgxpool.Pool
}

// NewTicketReplyRepository builds repository.
func NewTicketReplyRepository(pool *pgxpool.Pool) TicketReplyRepository {
	return &ticketReplyRepository{pool: pool}
}

func (r *ticketReplyRepository) Create(ctx context.Context, reply *domain.TicketReply) error {
	const query = `
        INSERT INTO ticket_replies (ticket_id, responder_id, message, is_ai_generated)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		reply.TicketID,
		reply.ResponderID,
		reply.Message,
		reply.IsAIGenerated,
	).Scan(&reply.ID, &reply.CreatedAt, &reply.UpdatedAt)
	return mapError(err)
}

func (r *ticketReplyRepository) UpdateMessage(ctx context.Context, reply *domain.TicketReply) error {
	const query = `
        UPDATE ticket_replies SET message=$1, is_ai_generated=$2, updated_at=NOW()
        WHERE id=$3
        RETURNING updated_at`
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		reply.Message,
		reply.IsAIGenerated,
		reply.ID,
	).Scan(&reply.UpdatedAt)
	return mapError(err)
}

func (r *ticketReplyRepository) LatestByResponder(ctx context.Context, ticketID, responderID int64) (*domain.TicketReply, error) {
	const query = `
        SELECT r.id, r.ticket_id, r.responder_id, a.username, r.message, r.is_ai_generated, r.created_at, r.updated_at
        FROM ticket_replies r JOIN accounts a ON a.id = r.responder_id
        WHERE r.ticket_id=$1 AND r.responder_id=$2
        ORDER BY r.created_at DESC, r.id DESC
        LIMIT 1`
	var reply domain.TicketReply
	if err := conn(ctx, r.pool).QueryRow(ctx, query, ticketID, responderID).Scan(
		&reply.ID,
		&reply.TicketID,
		&reply.ResponderID,
		&reply.ResponderUsername,
		&reply.Message,
		&reply.IsAIGenerated,
		&reply.CreatedAt,
		&reply.UpdatedAt,
	); err != nil {
		return nil, mapError(err)
	}
	return &reply, nil
}

func (r *ticketReplyRepository) ListByTickets(ctx context.Context, ticketIDs []int64) (map[int64][]domain.TicketReply, error) {
	result := make(map[int64][]domain.TicketReply, len(ticketIDs))
	if len(ticketIDs) == 0 {
		return result, nil
	}
	const query = `
        SELECT r.id, r.ticket_id, r.responder_id, a.username, r.message, r.is_ai_generated, r.created_at, r.updated_at
        FROM ticket_replies r JOIN accounts a ON a.id = r.responder_id
        WHERE r.ticket_id = ANY($1)
        ORDER BY r.created_at ASC, r.id ASC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, ticketIDs)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var reply domain.TicketReply
		if err := rows.Scan(
			&reply.ID,
			&reply.TicketID,
			&reply.ResponderID,
			&reply.ResponderUsername,
			&reply.Message,
			&reply.IsAIGenerated,
			&reply.CreatedAt,
			&reply.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result[reply.TicketID] = append(result[reply.TicketID], reply)
	}
	return result, rows.Err()
}
