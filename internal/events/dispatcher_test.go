package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishInvokesAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var got []int64
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		got = append(got, e.TicketID)
		assert.False(t, e.Timestamp.IsZero())
		return errors.New("first failed")
	})
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		got = append(got, e.TicketID*10)
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketCreated, TicketID: 7})
	assert.EqualError(t, err, "first failed")
	assert.Equal(t, []int64{7, 70}, got)
}

func TestPublishWithoutListeners(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketReplyDrafted}))
}
