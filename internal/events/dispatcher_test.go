package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishRunsAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var seen []string
	boom := errors.New("boom")

	d.Subscribe(EventUserCreated, func(_ context.Context, e Event) error {
		seen = append(seen, "first:"+e.UserID)
		return boom
	})
	d.Subscribe(EventUserCreated, func(_ context.Context, e Event) error {
		seen = append(seen, "second:"+e.UserID)
		return nil
	})
	d.Subscribe(EventUserDeleted, func(context.Context, Event) error {
		t.Fatal("unexpected handler")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventUserCreated, UserID: "u1"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first:u1", "second:u1"}, seen)
}

func TestPublishWithoutListeners(t *testing.T) {
	assert.NoError(t, NewInMemoryDispatcher().Publish(context.Background(), Event{Type: EventUserUpdated}))
	assert.NoError(t, Nop{}.Publish(context.Background(), Event{Type: EventUserUpdated}))
}
