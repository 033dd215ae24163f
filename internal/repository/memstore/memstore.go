// Package memstore provides process-local repositories. It backs the service
// when no Postgres DSN is configured and doubles as the fake store in tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// Store holds every table in memory behind one mutex.
type Store struct {
	mu sync.Mutex

	now func() time.Time

	accounts    map[int64]domain.Account
	tickets     map[int64]domain.Ticket
	replies     map[int64]domain.TicketReply
	nextAccount int64
	nextTicket  int64
	nextReply   int64
}

// New returns an empty store.
func New() *Store {
	return &Store{
		now:      time.Now,
		accounts: make(map[int64]domain.Account),
		tickets:  make(map[int64]domain.Ticket),
		replies:  make(map[int64]domain.TicketReply),
	}
}

// WithClock overrides the timestamp source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Accounts returns the account repository view.
func (s *Store) Accounts() repository.AccountRepository { return accountRepo{s} }

// Tickets returns the ticket repository view.
func (s *Store) Tickets() repository.TicketRepository { return ticketRepo{s} }

// Replies returns the reply repository view.
func (s *Store) Replies() repository.TicketReplyRepository { return replyRepo{s} }

// Transactor returns a transactor that simply runs the function.
// Writes are not rolled back on error.
func (s *Store) Transactor() repository.Transactor { return transactor{} }

// ReplyCount reports how many replies exist for ticket.
func (s *Store) ReplyCount(ticketID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.replies {
		if r.TicketID == ticketID {
			n++
		}
	}
	return n
}

type transactor struct{}

func (transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type accountRepo struct{ s *Store }

func (r accountRepo) Create(_ context.Context, account *domain.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.accounts {
		if existing.Username == account.Username {
			return errorutil.ErrConflict
		}
	}
	if account.Role == "" {
		account.Role = domain.RoleCustomer
	}
	r.s.nextAccount++
	account.ID = r.s.nextAccount
	account.CreatedAt = r.s.now()
	r.s.accounts[account.ID] = *account
	return nil
}

func (r accountRepo) GetByID(_ context.Context, id int64) (*domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	account, ok := r.s.accounts[id]
	if !ok {
		return nil, errorutil.ErrNotFound
	}
	return &account, nil
}

func (r accountRepo) GetByUsername(_ context.Context, username string) (*domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, account := range r.s.accounts {
		if account.Username == username {
			found := account
			return &found, nil
		}
	}
	return nil, errorutil.ErrNotFound
}

func (r accountRepo) SetRole(_ context.Context, id int64, role domain.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	account, ok := r.s.accounts[id]
	if !ok {
		return errorutil.ErrNotFound
	}
	account.Role = role
	r.s.accounts[id] = account
	return nil
}

type ticketRepo struct{ s *Store }

func (r ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.accounts[ticket.OwnerID]; !ok {
		return errorutil.ErrNotFound
	}
	r.s.nextTicket++
	ticket.ID = r.s.nextTicket
	ticket.CreatedAt = r.s.now()
	ticket.UpdatedAt = ticket.CreatedAt
	stored := *ticket
	stored.Replies = nil
	r.s.tickets[ticket.ID] = stored
	return nil
}

func (r ticketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.tickets[ticket.ID]
	if !ok {
		return errorutil.ErrNotFound
	}
	stored.Status = ticket.Status
	stored.Response = ticket.Response
	stored.UpdatedAt = r.s.now()
	r.s.tickets[ticket.ID] = stored
	ticket.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r ticketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, errorutil.ErrNotFound
	}
	r.s.decorate(&ticket)
	return &ticket, nil
}

func (r ticketRepo) ListByOwner(_ context.Context, ownerID int64) ([]domain.Ticket, error) {
	return r.list(func(t domain.Ticket) bool { return t.OwnerID == ownerID }), nil
}

func (r ticketRepo) ListAll(_ context.Context) ([]domain.Ticket, error) {
	return r.list(func(domain.Ticket) bool { return true }), nil
}

func (r ticketRepo) list(keep func(domain.Ticket) bool) []domain.Ticket {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.Ticket
	for _, t := range r.s.tickets {
		if keep(t) {
			r.s.decorate(&t)
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result
}

// decorate fills join columns; callers hold the lock.
func (s *Store) decorate(t *domain.Ticket) {
	if owner, ok := s.accounts[t.OwnerID]; ok {
		t.OwnerUsername = owner.Username
	}
	if t.Response != nil {
		resp := *t.Response
		t.Response = &resp
	}
	if t.Attachment != nil {
		att := *t.Attachment
		t.Attachment = &att
	}
}

type replyRepo struct{ s *Store }

func (r replyRepo) Create(_ context.Context, reply *domain.TicketReply) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[reply.TicketID]; !ok {
		return errorutil.ErrNotFound
	}
	r.s.nextReply++
	reply.ID = r.s.nextReply
	reply.CreatedAt = r.s.now()
	reply.UpdatedAt = reply.CreatedAt
	if responder, ok := r.s.accounts[reply.ResponderID]; ok {
		reply.ResponderUsername = responder.Username
	}
	r.s.replies[reply.ID] = *reply
	return nil
}

func (r replyRepo) UpdateMessage(_ context.Context, reply *domain.TicketReply) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.replies[reply.ID]
	if !ok {
		return errorutil.ErrNotFound
	}
	stored.Message = reply.Message
	stored.IsAIGenerated = reply.IsAIGenerated
	stored.UpdatedAt = r.s.now()
	r.s.replies[reply.ID] = stored
	reply.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r replyRepo) LatestByResponder(_ context.Context, ticketID, responderID int64) (*domain.TicketReply, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var latest *domain.TicketReply
	for _, reply := range r.s.replies {
		if reply.TicketID != ticketID || reply.ResponderID != responderID {
			continue
		}
		if latest == nil || newer(reply, *latest) {
			candidate := reply
			latest = &candidate
		}
	}
	if latest == nil {
		return nil, errorutil.ErrNotFound
	}
	return latest, nil
}

func (r replyRepo) ListByTickets(_ context.Context, ticketIDs []int64) (map[int64][]domain.TicketReply, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wanted := make(map[int64]struct{}, len(ticketIDs))
	for _, id := range ticketIDs {
		wanted[id] = struct{}{}
	}
	result := make(map[int64][]domain.TicketReply, len(ticketIDs))
	for _, reply := range r.s.replies {
		if _, ok := wanted[reply.TicketID]; ok {
			result[reply.TicketID] = append(result[reply.TicketID], reply)
		}
	}
	for id := range result {
		replies := result[id]
		sort.Slice(replies, func(i, j int) bool { return newer(replies[j], replies[i]) })
	}
	return result, nil
}

// newer orders by creation time, then id.
func newer(a, b domain.TicketReply) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
