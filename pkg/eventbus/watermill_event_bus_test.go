package eventbus_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/scriptpanel/pkg/channels/gochannel"
	"github.com/dukex/scriptpanel/pkg/eventbus"
	"github.com/dukex/scriptpanel/pkg/events"
	"github.com/dukex/scriptpanel/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newBus(t *testing.T) *eventbus.WatermillEventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	return eventbus.NewWatermillEventBus(pub, sub, nil)
}

func TestWatermillEventBus_Dispatch(t *testing.T) {
	t.Parallel()

	bus := newBus(t)

	finished := make(chan *events.ExecutionFinished, 1)
	output := make(chan *events.ConsoleOutput, 1)

	require.NoError(t, bus.Handle(events.ExecutionFinishedEvent, func(_ context.Context, event eventbus.Event) error {
		finished <- event.(*events.ExecutionFinished) //nolint:forcetypeassert

		return nil
	}))
	require.NoError(t, bus.Handle(events.ConsoleOutputEvent, func(_ context.Context, event eventbus.Event) error {
		output <- event.(*events.ConsoleOutput) //nolint:forcetypeassert

		return nil
	}))
	require.NoError(t, bus.Subscribe(context.Background()))

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, "node-1", events.NewConsoleOutput("node-1", "hi\n", false)))
	require.NoError(t, bus.Publish(ctx, "node-1", events.NewExecutionFinished("node-1", models.ExecutionInfo{
		Status:     models.ExecutionStatusSuccess,
		Generation: 2,
	})))

	select {
	case event := <-output:
		assert.Equal(t, "hi\n", event.Text)
	case <-time.After(5 * time.Second):
		t.Fatal("console output not delivered")
	}

	select {
	case event := <-finished:
		assert.Equal(t, models.ExecutionStatusSuccess, event.Info.Status)
		assert.Equal(t, uint64(2), event.Info.Generation)
	case <-time.After(5 * time.Second):
		t.Fatal("execution finished not delivered")
	}

	require.NoError(t, bus.Close())
}

func TestWatermillEventBus_HandlerErrorIsNotRedelivered(t *testing.T) {
	t.Parallel()

	bus := newBus(t)

	calls := make(chan struct{}, 4)
	require.NoError(t, bus.Handle(events.ConsoleOutputEvent, func(context.Context, eventbus.Event) error {
		calls <- struct{}{}

		return errors.New("handler failed")
	}))
	require.NoError(t, bus.Subscribe(context.Background()))

	require.NoError(t, bus.Publish(context.Background(), "node-1", events.NewConsoleOutput("node-1", "x", true)))

	<-calls
	require.NoError(t, bus.Close())
	assert.Empty(t, calls)
}

func TestWatermillEventBus_SubscribeTwice(t *testing.T) {
	t.Parallel()

	bus := newBus(t)
	require.NoError(t, bus.Subscribe(context.Background()))
	require.ErrorIs(t, bus.Subscribe(context.Background()), eventbus.ErrAlreadySubscribed)
	require.NoError(t, bus.Close())
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	t.Parallel()

	bus := newBus(t)
	assert.NotEqual(t, bus.GenerateID(), bus.GenerateID())
	require.NoError(t, bus.Close())
}
