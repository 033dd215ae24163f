package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository/memstore"
	"github.com/spec-kit/support-desk/internal/storage"
	"github.com/spec-kit/support-desk/pkg/util/errorutil"
)

type fixture struct {
	store     *memstore.Store
	auth      *AuthService
	tickets   *TicketService
	published []events.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	// Strictly increasing clock so ordering does not depend on wall time resolution.
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	store := memstore.New().WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})

	local, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	f := &fixture{store: store}
	dispatcher := events.NewInMemoryDispatcher()
	for _, et := range events.AllEventTypes {
		dispatcher.Subscribe(et, func(_ context.Context, e events.Event) error {
			f.published = append(f.published, e)
			return nil
		})
	}

	f.auth = NewAuthService(AuthDependencies{
		AccountRepo:  store.Accounts(),
		Sessions:     auth.NewSessionStore(client, time.Hour),
		TokenManager: auth.NewTokenManager("test-secret", time.Hour),
		BcryptCost:   4,
	})
	f.tickets = NewTicketService(TicketDependencies{
		TicketRepo: store.Tickets(),
		ReplyRepo:  store.Replies(),
		Transactor: store.Transactor(),
		Uploader:   storage.NewUploader(local, 1<<20),
		Dispatcher: dispatcher,
	})
	return f
}

func (f *fixture) register(t *testing.T, username string) *domain.Account {
	t.Helper()
	account, err := f.auth.Register(context.Background(), RegisterInput{
		Username:        username,
		Email:           username + "@example.com",
		Password:        "correct-horse",
		PasswordConfirm: "correct-horse",
	})
	require.NoError(t, err)
	return account
}

func (f *fixture) admin(t *testing.T, username string) *domain.Account {
	t.Helper()
	f.register(t, username)
	account, err := f.auth.SetRole(context.Background(), username, domain.RoleAdmin)
	require.NoError(t, err)
	return account
}

func (f *fixture) openTicket(t *testing.T, owner *domain.Account, subject string) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.CreateTicket(context.Background(), owner, TicketCreateInput{
		Subject:     subject,
		Description: "Cannot sign in since this morning.",
		Priority:    "High",
	})
	require.NoError(t, err)
	return ticket
}

func TestRegisterCreatesCustomer(t *testing.T) {
	f := newFixture(t)
	account := f.register(t, "alice")

	stored, err := f.store.Accounts().GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCustomer, stored.Role)
	assert.NotEqual(t, "correct-horse", stored.PasswordHash)
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice")

	_, err := f.auth.Register(context.Background(), RegisterInput{
		Username: "alice", Email: "other@example.com", Password: "correct-horse", PasswordConfirm: "correct-horse",
	})
	verr, ok := errorutil.AsValidation(err)
	require.True(t, ok)
	assert.Contains(t, verr.Fields, "username")
}

func TestRegisterValidatesFields(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.Register(context.Background(), RegisterInput{
		Username: "bob", Email: "bob@example.com", Password: "correct-horse", PasswordConfirm: "different",
	})
	verr, ok := errorutil.AsValidation(err)
	require.True(t, ok)
	assert.Contains(t, verr.Fields, "password2")
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := f.register(t, "alice")

	res, err := f.auth.Login(ctx, "alice", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, account.ID, res.Account.ID)
	assert.NotEmpty(t, res.Token)
	assert.NotEmpty(t, res.SessionID)

	_, err = f.auth.Login(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.auth.Login(ctx, "nobody", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, f.auth.Logout(ctx, res.SessionID))
	require.NoError(t, f.auth.Logout(ctx, ""))
}

func TestUnknownUserComparesAtConfiguredCost(t *testing.T) {
	f := newFixture(t)
	cost, err := bcrypt.Cost(f.auth.dummyHash)
	require.NoError(t, err)
	assert.Equal(t, 4, cost)

	svc := NewAuthService(AuthDependencies{BcryptCost: 11})
	cost, err = bcrypt.Cost(svc.dummyHash)
	require.NoError(t, err)
	assert.Equal(t, 11, cost)
}

func TestEnsureAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account, created, err := f.auth.EnsureAdmin(ctx, "root", "root@example.com", "correct-horse")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.RoleAdmin, account.Role)

	res, err := f.auth.Login(ctx, "root", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, res.Account.Role)

	again, created, err := f.auth.EnsureAdmin(ctx, "root", "other@example.com", "another-password")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, account.ID, again.ID)
	_, err = f.auth.Login(ctx, "root", "correct-horse")
	assert.NoError(t, err)

	f.register(t, "alice")
	promoted, created, err := f.auth.EnsureAdmin(ctx, "alice", "alice@example.com", "ignored-password")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, domain.RoleAdmin, promoted.Role)

	_, _, err = f.auth.EnsureAdmin(ctx, "bob", "bob@example.com", "short")
	var verr *errorutil.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestSetRoleRejectsUnknownRole(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice")
	_, err := f.auth.SetRole(context.Background(), "alice", domain.Role("root"))
	assert.Error(t, err)
}

func TestCreateTicketForcesOpenAndDefaults(t *testing.T) {
	f := newFixture(t)
	owner := f.register(t, "alice")

	ticket := f.openTicket(t, owner, "Login issue")
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketCategoryTechnical, ticket.Category)
	assert.Equal(t, domain.TicketPriorityHigh, ticket.Priority)
	assert.Nil(t, ticket.Response)

	require.Len(t, f.published, 1)
	assert.Equal(t, events.EventTicketCreated, f.published[0].Type)
}

func TestCreateTicketValidation(t *testing.T) {
	f := newFixture(t)
	owner := f.register(t, "alice")

	_, err := f.tickets.CreateTicket(context.Background(), owner, TicketCreateInput{
		Subject:  strings.Repeat("x", 201),
		Priority: "Urgent",
		Category: "Billing",
	})
	verr, ok := errorutil.AsValidation(err)
	require.True(t, ok)
	assert.Contains(t, verr.Fields, "subject")
	assert.Contains(t, verr.Fields, "description")
	assert.Contains(t, verr.Fields, "priority")
	assert.Contains(t, verr.Fields, "category")
}

func TestCreateTicketStoresAttachment(t *testing.T) {
	f := newFixture(t)
	owner := f.register(t, "alice")
	ctx := context.Background()

	body := "plain text log output"
	ticket, err := f.tickets.CreateTicket(ctx, owner, TicketCreateInput{
		Subject:     "Crash",
		Description: "See log",
		Priority:    "Low",
		Attachment:  &Upload{FileName: "log.txt", Size: int64(len(body)), Body: strings.NewReader(body)},
	})
	require.NoError(t, err)
	require.NotNil(t, ticket.Attachment)
	assert.True(t, strings.HasPrefix(ticket.Attachment.StorageKey, storage.AttachmentPrefix))
	assert.Equal(t, "log.txt", ticket.Attachment.FileName)

	att, dl, err := f.tickets.OpenAttachment(ctx, owner, ticket.ID)
	require.NoError(t, err)
	defer dl.Body.Close()
	assert.Equal(t, ticket.Attachment.StorageKey, att.StorageKey)

	stranger := f.register(t, "mallory")
	_, _, err = f.tickets.OpenAttachment(ctx, stranger, ticket.ID)
	assert.True(t, errorutil.IsNotFound(err))

	admin := f.admin(t, "root")
	_, dl2, err := f.tickets.OpenAttachment(ctx, admin, ticket.ID)
	require.NoError(t, err)
	dl2.Body.Close()
}

func TestOpenAttachmentWithoutFile(t *testing.T) {
	f := newFixture(t)
	owner := f.register(t, "alice")
	ticket := f.openTicket(t, owner, "No file")

	_, _, err := f.tickets.OpenAttachment(context.Background(), owner, ticket.ID)
	assert.True(t, errorutil.IsNotFound(err))
}

func TestListsAreNewestFirstWithReplies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	admin := f.admin(t, "root")

	first := f.openTicket(t, alice, "First")
	second := f.openTicket(t, alice, "Second")
	f.openTicket(t, bob, "Bob's")

	_, err := f.tickets.UpdateByAdmin(ctx, admin, first.ID, TicketUpdateInput{Response: "Looking into it."})
	require.NoError(t, err)

	mine, err := f.tickets.ListForCustomer(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)
	require.Len(t, mine[1].Replies, 1)
	assert.Equal(t, "Looking into it.", mine[1].Replies[0].Message)

	all, err := f.tickets.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "bob", all[0].OwnerUsername)
}

func TestUpdateByAdminUpsertsSingleReply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "alice")
	admin := f.admin(t, "root")
	ticket := f.openTicket(t, owner, "Login issue")

	_, err := f.tickets.UpdateByAdmin(ctx, admin, ticket.ID, TicketUpdateInput{Response: "First draft", IsAIGenerated: true})
	require.NoError(t, err)
	updated, err := f.tickets.UpdateByAdmin(ctx, admin, ticket.ID, TicketUpdateInput{Response: "Second draft"})
	require.NoError(t, err)

	assert.Equal(t, 1, f.store.ReplyCount(ticket.ID))
	require.NotNil(t, updated.Response)
	assert.Equal(t, "Second draft", *updated.Response)

	reply, err := f.store.Replies().LatestByResponder(ctx, ticket.ID, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "Second draft", reply.Message)
	assert.False(t, reply.IsAIGenerated)
}

func TestUpdateByAdminSeparateAdminsGetSeparateReplies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "alice")
	one := f.admin(t, "root")
	two := f.admin(t, "ops")
	ticket := f.openTicket(t, owner, "Login issue")

	_, err := f.tickets.UpdateByAdmin(ctx, one, ticket.ID, TicketUpdateInput{Response: "From root"})
	require.NoError(t, err)
	updated, err := f.tickets.UpdateByAdmin(ctx, two, ticket.ID, TicketUpdateInput{Response: "From ops"})
	require.NoError(t, err)

	assert.Equal(t, 2, f.store.ReplyCount(ticket.ID))
	assert.Equal(t, "From ops", *updated.Response)
}

func TestUpdateByAdminResolvesWithResponse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "alice")
	admin := f.admin(t, "root")
	ticket := f.openTicket(t, owner, "Login issue")

	updated, err := f.tickets.UpdateByAdmin(ctx, admin, ticket.ID, TicketUpdateInput{
		Response: "Please reset your password.",
		Status:   "Resolved",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, updated.Status)
	assert.Equal(t, "Please reset your password.", *updated.Response)
	assert.True(t, updated.UpdatedAt.After(ticket.UpdatedAt))

	reply, err := f.store.Replies().LatestByResponder(ctx, ticket.ID, admin.ID)
	require.NoError(t, err)
	assert.False(t, reply.IsAIGenerated)

	var types []events.EventType
	for _, e := range f.published {
		types = append(types, e.Type)
	}
	assert.Contains(t, types, events.EventTicketReplyUpserted)
	assert.Contains(t, types, events.EventTicketStatusChanged)
}

func TestUpdateByAdminStatusOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "alice")
	admin := f.admin(t, "root")
	ticket := f.openTicket(t, owner, "Login issue")

	updated, err := f.tickets.UpdateByAdmin(ctx, admin, ticket.ID, TicketUpdateInput{Response: "   ", Status: "Closed"})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, updated.Status)
	assert.Nil(t, updated.Response)
	assert.Equal(t, 0, f.store.ReplyCount(ticket.ID))
}

func TestUpdateByAdminIgnoresInvalidStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "alice")
	admin := f.admin(t, "root")
	ticket := f.openTicket(t, owner, "Login issue")

	updated, err := f.tickets.UpdateByAdmin(ctx, admin, ticket.ID, TicketUpdateInput{Status: "Escalated"})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, updated.Status)
	assert.True(t, updated.UpdatedAt.After(ticket.UpdatedAt))
}

func TestUpdateByAdminUnknownTicket(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t, "root")
	_, err := f.tickets.UpdateByAdmin(context.Background(), admin, 404, TicketUpdateInput{Status: "Closed"})
	assert.True(t, errorutil.IsNotFound(err))
}

func TestMarkInProcess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "alice")
	admin := f.admin(t, "root")
	ticket := f.openTicket(t, owner, "Login issue")

	marked, changed, err := f.tickets.MarkInProcess(ctx, admin, ticket.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, domain.TicketStatusInProcess, marked.Status)
	assert.True(t, marked.UpdatedAt.After(ticket.UpdatedAt))

	_, err = f.tickets.UpdateByAdmin(ctx, admin, ticket.ID, TicketUpdateInput{Status: "Resolved"})
	require.NoError(t, err)

	again, changed, err := f.tickets.MarkInProcess(ctx, admin, ticket.ID)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, domain.TicketStatusResolved, again.Status)

	_, _, err = f.tickets.MarkInProcess(ctx, admin, 999)
	assert.True(t, errorutil.IsNotFound(err))
}
