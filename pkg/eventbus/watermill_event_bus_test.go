package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainrun/chainrun/pkg/channels/gochannel"
	"github.com/chainrun/chainrun/pkg/events"
	"github.com/chainrun/chainrun/pkg/models"
)

func newTestBus(t *testing.T) EventBus {
	t.Helper()

	publisher, subscriber, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewWatermillEventBus(publisher, subscriber)
	t.Cleanup(func() {
		_ = bus.Close()
	})

	return bus
}

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	bus := newTestBus(t)

	received := make(chan *events.RunRequested, 1)

	err := bus.Handle(events.RunRequestedEvent, func(ctx context.Context, event interface{}) error {
		requested, ok := event.(*events.RunRequested)
		if !ok {
			t.Errorf("Expected *events.RunRequested, got: %T", event)

			return nil
		}

		received <- requested

		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	event := events.RunRequested{
		BaseEvent: events.NewBaseEvent(events.RunRequestedEvent, "wf-1"),
		RunID:     "run-1",
	}
	require.NoError(t, bus.Publish(ctx, "wf-1", event))

	select {
	case got := <-received:
		assert.Equal(t, "run-1", got.RunID)
		assert.Equal(t, "wf-1", got.WorkflowID)
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for event delivery")
	}
}

func TestWatermillEventBus_UnhandledEventIsAcked(t *testing.T) {
	bus := newTestBus(t)

	received := make(chan *events.RunFinished, 1)

	err := bus.Handle(events.RunFinishedEvent, func(ctx context.Context, event interface{}) error {
		received <- event.(*events.RunFinished)

		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	// No handler registered for component events; they are acked and dropped.
	unhandled := events.ComponentStarted{
		BaseEvent: events.NewBaseEvent(events.ComponentStartedEvent, "wf-1"),
		RunID:     "run-1",
	}
	require.NoError(t, bus.Publish(ctx, "wf-1", unhandled))

	handled := events.RunFinished{
		BaseEvent: events.NewBaseEvent(events.RunFinishedEvent, "wf-1"),
		RunID:     "run-1",
		Status:    models.RunStatusCompleted,
	}
	require.NoError(t, bus.Publish(ctx, "wf-1", handled))

	select {
	case got := <-received:
		assert.Equal(t, models.RunStatusCompleted, got.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for event delivery")
	}
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	bus := newTestBus(t)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
