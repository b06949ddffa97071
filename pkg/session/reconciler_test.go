package session_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/dukex/scriptpanel/pkg/console"
	"github.com/dukex/scriptpanel/pkg/models"
	"github.com/dukex/scriptpanel/pkg/protocol"
	"github.com/dukex/scriptpanel/pkg/session"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconciler_EventAlwaysIdles(t *testing.T) {
	t.Parallel()

	statuses := []models.ExecutionStatus{
		models.ExecutionStatusSuccess,
		models.ExecutionStatusExecutionError,
		models.ExecutionStatusKnimeError,
		models.ExecutionStatusFatalError,
		models.ExecutionStatusCancelled,
	}

	for _, status := range statuses {
		t.Run(string(status), func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			f.expect(protocol.MethodRunScript, []any{"print(1)"}, "")

			require.NoError(t, f.controller.RunAll(context.Background(), "print(1)"))
			require.Equal(t, models.SessionStatusRunningAll, f.state.Snapshot().Status)

			require.NoError(t, f.reconciler.Handle(context.Background(), models.ExecutionInfo{
				Status:      status,
				Description: "done",
			}))

			snapshot := f.state.Snapshot()
			assert.Equal(t, models.SessionStatusIdle, snapshot.Status)
			assert.Equal(t, models.LastActionResult(status), snapshot.LastActionResult)
			assert.True(t, snapshot.ViewPreview.IsExecutedOnce)
		})
	}
}

func TestReconciler_SuccessIsSilent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	workspace := models.Workspace{
		{Name: "x", Type: "int", Value: "1"},
		{Name: "df", Type: "DataFrame", Value: "a b"},
	}

	require.NoError(t, f.reconciler.Handle(context.Background(), models.ExecutionInfo{
		Status: models.ExecutionStatusSuccess,
		Data:   workspace,
	}))

	assert.Empty(t, f.out.Lines())
	assert.Equal(t, workspace, f.state.Snapshot().Workspace)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.Executions.WithLabelValues("SUCCESS")), 0)
}

func TestReconciler_CancelledIsSilent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	require.NoError(t, f.reconciler.Handle(context.Background(), models.ExecutionInfo{
		Status:      models.ExecutionStatusCancelled,
		Description: "Script execution was cancelled by user",
	}))

	assert.Empty(t, f.out.Lines())
	assert.Equal(t, models.LastActionCancelled, f.state.Snapshot().LastActionResult)
}

func TestReconciler_ErrorText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		info models.ExecutionInfo
		want string
	}{
		{
			name: "execution error with traceback",
			info: models.ExecutionInfo{
				Status:      models.ExecutionStatusExecutionError,
				Description: "Execution Error",
				Traceback:   []string{"line 1", "line 2"},
			},
			want: "Execution Error\nline 1\nline 2",
		},
		{
			name: "execution error without traceback",
			info: models.ExecutionInfo{
				Status:      models.ExecutionStatusExecutionError,
				Description: "Execution Error",
				Traceback:   []string{},
			},
			want: "Execution Error",
		},
		{
			name: "knime error",
			info: models.ExecutionInfo{Status: models.ExecutionStatusKnimeError, Description: "Missing column"},
			want: "Missing column",
		},
		{
			name: "fatal error",
			info: models.ExecutionInfo{Status: models.ExecutionStatusFatalError, Description: "Process died"},
			want: "Process died",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			require.NoError(t, f.reconciler.Handle(context.Background(), tt.info))

			assert.Equal(t, []models.ConsoleLine{{Error: tt.want}}, f.out.Lines())
		})
	}
}

func TestReconciler_ViewRefreshed(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	var refreshed int
	f.state.Subscribe(func(c session.Change) {
		if c.Has(session.ViewRefreshed) {
			refreshed++
		}
	})

	require.NoError(t, f.reconciler.Handle(context.Background(), models.ExecutionInfo{
		Status:       models.ExecutionStatusSuccess,
		HasValidView: boolPtr(true),
	}))
	require.NoError(t, f.reconciler.Handle(context.Background(), models.ExecutionInfo{
		Status:       models.ExecutionStatusSuccess,
		HasValidView: boolPtr(false),
	}))

	assert.Equal(t, 1, refreshed)
	assert.Equal(t, models.ViewPlaceholderNoView, f.state.Snapshot().ViewPreview.Placeholder())
}

func TestReconciler_DiscardsStaleEvents(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.expect(protocol.MethodRunScript, []any{"slow()"}, "")
	f.expect(protocol.MethodKillSession, []any(nil), `{"status":"SUCCESS","description":""}`)
	f.expect(protocol.MethodStartInteractive, []any(nil), "")

	require.NoError(t, f.controller.RunAll(context.Background(), "slow()"))
	cancelled := f.state.Snapshot().Generation

	require.NoError(t, f.controller.Cancel(context.Background()))

	require.NoError(t, f.reconciler.Handle(context.Background(), models.ExecutionInfo{
		Status:      models.ExecutionStatusExecutionError,
		Description: "Interrupted",
		Data:        models.Workspace{{Name: "x", Type: "int", Value: "1"}},
		Generation:  cancelled,
	}))

	snapshot := f.state.Snapshot()
	assert.Empty(t, f.out.Lines())
	assert.Equal(t, models.Workspace{}, snapshot.Workspace)
	assert.Equal(t, models.LastActionCancelled, snapshot.LastActionResult)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.StaleEvents), 0)
}

func TestReconciler_ConsoleFollowsAppliedOutcome(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.expect(protocol.MethodRunScript, []any{"x"}, "")
	f.expect(protocol.MethodRunScript, []any{"y"}, "")
	f.expect(protocol.MethodKillSession, []any(nil), `{"status":"SUCCESS","description":""}`)
	f.expect(protocol.MethodStartInteractive, []any(nil), "")

	var written []models.SessionStatus

	reconciler := session.NewReconciler(f.state, console.Func(func(models.ConsoleLine) {
		written = append(written, f.state.Snapshot().Status)
	}), nil, f.metrics)

	require.NoError(t, f.controller.RunAll(context.Background(), "x"))
	superseded := f.state.Snapshot().Generation

	require.NoError(t, f.controller.Cancel(context.Background()))
	require.NoError(t, f.controller.RunAll(context.Background(), "y"))

	require.NoError(t, reconciler.Handle(context.Background(), models.ExecutionInfo{
		Status:      models.ExecutionStatusKnimeError,
		Description: "from the cancelled run",
		Generation:  superseded,
	}))
	assert.Empty(t, written)
	assert.Equal(t, models.SessionStatusRunningAll, f.state.Snapshot().Status)

	require.NoError(t, reconciler.Handle(context.Background(), models.ExecutionInfo{
		Status:      models.ExecutionStatusKnimeError,
		Description: "Missing column",
		Generation:  f.state.Snapshot().Generation,
	}))
	assert.Equal(t, []models.SessionStatus{models.SessionStatusIdle}, written)
}

func TestReconciler_UnknownStatus(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.expect(protocol.MethodRunScript, []any{"x"}, "")
	require.NoError(t, f.controller.RunAll(context.Background(), "x"))

	err := f.reconciler.Handle(context.Background(), models.ExecutionInfo{Status: "EXPLODED"})

	require.ErrorIs(t, err, models.ErrUnknownExecutionStatus)
	assert.Equal(t, models.SessionStatusIdle, f.state.Snapshot().Status)
}

func TestReconciler_HandleEvent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	payload := json.RawMessage(`{"status":"SUCCESS","description":"","data":[{"name":"a","type":"str","value":"b"}]}`)
	require.NoError(t, f.reconciler.HandleEvent(context.Background(), payload))
	assert.Equal(t, models.Workspace{{Name: "a", Type: "str", Value: "b"}}, f.state.Snapshot().Workspace)

	require.Error(t, f.reconciler.HandleEvent(context.Background(), json.RawMessage(`[`)))
}

func TestConsoleOutputHandler(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	handler := session.NewConsoleOutputHandler(f.out)

	require.NoError(t, handler(context.Background(), json.RawMessage(`{"text":"hello\n","stderr":false}`)))
	require.NoError(t, handler(context.Background(), json.RawMessage(`{"text":"oops\n","stderr":true}`)))

	assert.Equal(t, []models.ConsoleLine{{Text: "hello\n"}, {Error: "oops\n"}}, f.out.Lines())
}
