package ai

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
)

// Drafter produces suggested admin replies for tickets.
type Drafter struct {
	generator    Generator
	sanitizer    *Sanitizer
	organization string
	dispatcher   events.Dispatcher
	logger       *zap.Logger
}

// DrafterOptions configures a Drafter.
type DrafterOptions struct {
	Organization string
	// Sanitize enables markdown normalization and the tag allowlist.
	Sanitize   bool
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewDrafter wires a generator with prompt building and output cleanup.
func NewDrafter(generator Generator, opts DrafterOptions) *Drafter {
	d := &Drafter{
		generator:    generator,
		organization: opts.Organization,
		dispatcher:   opts.Dispatcher,
		logger:       opts.Logger,
	}
	if opts.Sanitize {
		d.sanitizer = NewSanitizer()
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	return d
}

// Draft asks the generator for a reply to ticket and returns trimmed HTML.
func (d *Drafter) Draft(ctx context.Context, actor *domain.Account, ticket *domain.Ticket) (string, error) {
	raw, err := d.generator.Generate(ctx, BuildPrompt(d.organization, ticket))
	if err != nil {
		d.logger.Warn("ai draft failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		return "", err
	}

	reply := strings.TrimSpace(raw)
	if d.sanitizer != nil {
		if reply, err = d.sanitizer.Clean(reply); err != nil {
			return "", err
		}
	}

	if d.dispatcher != nil {
		_ = d.dispatcher.Publish(ctx, events.Event{
			Type:     events.EventTicketReplyDrafted,
			TicketID: ticket.ID,
			Actor:    events.Actor{AccountID: actor.ID, Role: actor.Role},
		})
	}
	return reply, nil
}
