package repository

import (
	"context"
	"testing"
	"time"

	"github.com/gmcfx/GM-Capital/internal/model"

	"github.com/stretchr/testify/require"
)

func testEvent(accountID string, eventType model.EventType) *model.Event {
	return &model.Event{
		ID:         "event",
		Type:       eventType,
		AccountID:  accountID,
		PositionID: "position",
		OccurredAt: time.Now(),
	}
}

func TestEventBus_Subscribe_Unsubscribe(t *testing.T) {
	bus := NewEventBus(1, time.Millisecond)

	id, events := bus.Subscribe("account")
	require.Equal(t, 1, bus.Listeners("account"))

	err := bus.Unsubscribe("account", id)
	require.NoError(t, err)
	require.Equal(t, 0, bus.Listeners("account"))

	_, ok := <-events
	require.False(t, ok)

	err = bus.Unsubscribe("account", id)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestEventBus_Publish(t *testing.T) {
	ctx := context.Background()
	bus := NewEventBus(4, time.Millisecond)

	_, mine := bus.Subscribe("account")
	_, other := bus.Subscribe("other")

	err := bus.Publish(ctx, testEvent("account", model.PositionOpened))
	require.NoError(t, err)
	err = bus.Publish(ctx, testEvent("account", model.PositionClosed))
	require.NoError(t, err)

	require.Equal(t, model.PositionOpened, (<-mine).Type)
	require.Equal(t, model.PositionClosed, (<-mine).Type)
	require.Len(t, other, 0)
}

func TestEventBus_Publish_FullListener(t *testing.T) {
	ctx := context.Background()
	bus := NewEventBus(1, time.Millisecond)

	_, events := bus.Subscribe("account")

	err := bus.Publish(ctx, testEvent("account", model.PositionOpened))
	require.NoError(t, err)

	err = bus.Publish(ctx, testEvent("account", model.PositionClosed))
	require.ErrorIs(t, err, model.ErrTimeout)

	require.Equal(t, model.PositionOpened, (<-events).Type)
}

func TestEventBus_Publish_NoListeners(t *testing.T) {
	bus := NewEventBus(0, 0)
	err := bus.Publish(context.Background(), testEvent("nobody", model.PositionOpened))
	require.NoError(t, err)
}
