package fake_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dukex/scriptpanel/pkg/backend"
	"github.com/dukex/scriptpanel/pkg/backend/fake"
	"github.com/dukex/scriptpanel/pkg/console"
	"github.com/dukex/scriptpanel/pkg/models"
	"github.com/dukex/scriptpanel/pkg/protocol"
	"github.com/dukex/scriptpanel/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, host *fake.Host) (<-chan models.ExecutionInfo, <-chan string) {
	t.Helper()

	finished := make(chan models.ExecutionInfo, 8)
	output := make(chan string, 8)

	host.RegisterEventHandler(protocol.EventExecutionFinished, func(_ context.Context, raw json.RawMessage) error {
		var info models.ExecutionInfo
		assert.NoError(t, json.Unmarshal(raw, &info))
		finished <- info

		return nil
	})
	host.RegisterEventHandler(protocol.EventConsoleOutput, func(_ context.Context, raw json.RawMessage) error {
		var out session.ConsoleOutput
		assert.NoError(t, json.Unmarshal(raw, &out))
		output <- out.Text

		return nil
	})

	return finished, output
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")

		var zero T

		return zero
	}
}

func TestHost_RunScript(t *testing.T) {
	t.Parallel()

	host := fake.NewHost(fake.WithDelay(0))
	t.Cleanup(func() { _ = host.Close() })

	finished, output := collect(t, host)

	ctx := protocol.ContextWithGeneration(context.Background(), 7)
	_, err := host.SendToService(ctx, protocol.MethodRunScript, "x = 1\nname = 'knime'\nprint(name)\nknio.output_view = None")
	require.NoError(t, err)

	assert.Equal(t, "knime\n", receive(t, output))

	info := receive(t, finished)
	assert.Equal(t, models.ExecutionStatusSuccess, info.Status)
	assert.Equal(t, uint64(7), info.Generation)
	assert.Equal(t, models.Workspace{
		{Name: "x", Type: "int", Value: "1"},
		{Name: "name", Type: "str", Value: "knime"},
	}, info.Data)
	require.NotNil(t, info.HasValidView)
	assert.True(t, *info.HasValidView)
}

func TestHost_ExecutionError(t *testing.T) {
	t.Parallel()

	host := fake.NewHost(fake.WithDelay(0))
	t.Cleanup(func() { _ = host.Close() })

	finished, _ := collect(t, host)

	_, err := host.SendToService(context.Background(), protocol.MethodRunScript, "a = 1\nraise ValueError('boom')")
	require.NoError(t, err)

	info := receive(t, finished)
	assert.Equal(t, models.ExecutionStatusExecutionError, info.Status)
	assert.Equal(t, "Execution Error", info.Description)
	assert.Equal(t, "ValueError: boom", info.Traceback[len(info.Traceback)-1])
	assert.Equal(t, models.Workspace{{Name: "a", Type: "int", Value: "1"}}, info.Data)
}

func TestHost_KillSession(t *testing.T) {
	t.Parallel()

	host := fake.NewHost(fake.WithDelay(time.Hour))
	t.Cleanup(func() { _ = host.Close() })

	finished, _ := collect(t, host)
	client := backend.NewClient(host)

	info, err := client.KillSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.KillSessionInfo{
		Status:      models.KillSessionError,
		Description: "There is no active python session in progress",
	}, info)

	require.NoError(t, client.RunScript(context.Background(), "x = 1"))

	info, err = client.KillSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.KillSessionSuccess, info.Status)

	cancelled := receive(t, finished)
	assert.Equal(t, models.ExecutionStatusCancelled, cancelled.Status)
	assert.Equal(t, "Script execution was cancelled by user", cancelled.Description)
}

func TestHost_PrintVariable(t *testing.T) {
	t.Parallel()

	host := fake.NewHost(fake.WithDelay(0))
	t.Cleanup(func() { _ = host.Close() })

	finished, output := collect(t, host)

	_, err := host.SendToService(context.Background(), protocol.MethodRunScript, "x = 42")
	require.NoError(t, err)
	receive(t, finished)

	_, err = host.SendToService(context.Background(), protocol.MethodRunInExistingSession, session.PrintStatement("x"))
	require.NoError(t, err)

	assert.Equal(t, ">>> print(x)\n42\n", receive(t, output))
	assert.Equal(t, models.ExecutionStatusSuccess, receive(t, finished).Status)
}

func TestHost_UnknownMethod(t *testing.T) {
	t.Parallel()

	_, err := fake.NewHost().SendToService(context.Background(), "suggestCode", "prompt", "code")
	require.ErrorIs(t, err, fake.ErrUnknownMethod)

	_, err = fake.NewHost().SendToService(context.Background(), protocol.MethodRunScript)
	require.ErrorIs(t, err, fake.ErrBadArguments)
}

func TestHost_WithSessionController(t *testing.T) {
	t.Parallel()

	host := fake.NewHost(fake.WithDelay(10 * time.Millisecond))
	t.Cleanup(func() { _ = host.Close() })

	state := session.NewState()
	out := console.NewBuffer(0)
	controller := session.NewController(state, backend.NewClient(host), out, nil)
	reconciler := session.NewReconciler(state, out, nil, nil)

	host.RegisterEventHandler(protocol.EventExecutionFinished, reconciler.HandleEvent)
	host.RegisterEventHandler(protocol.EventConsoleOutput, session.NewConsoleOutputHandler(out))

	require.NoError(t, controller.RunAll(context.Background(), "y = 2.5\nprint(y)"))
	assert.Equal(t, models.SessionStatusRunningAll, state.Snapshot().Status)

	require.Eventually(t, func() bool {
		return state.Snapshot().Status == models.SessionStatusIdle
	}, 5*time.Second, 5*time.Millisecond)

	snapshot := state.Snapshot()
	assert.Equal(t, models.LastActionSuccess, snapshot.LastActionResult)
	assert.Equal(t, models.Workspace{{Name: "y", Type: "float", Value: "2.5"}}, snapshot.Workspace)
	assert.Equal(t, []models.ConsoleLine{{Text: "2.5\n"}}, out.Lines())
}
