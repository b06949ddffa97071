package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dukex/scriptpanel/pkg/models"
	"github.com/dukex/scriptpanel/pkg/protocol"
	"github.com/dukex/scriptpanel/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestController_RunAll(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.expect(protocol.MethodRunScript, []any{"print('hi')"}, "")

	var seen []models.SessionStatus
	f.state.Subscribe(func(c session.Change) { seen = append(seen, c.Snapshot.Status) })

	require.NoError(t, f.controller.RunAll(context.Background(), "print('hi')"))

	assert.Equal(t, []models.SessionStatus{models.SessionStatusRunningAll}, seen)
	f.svc.AssertExpectations(t)
}

func TestController_SingleActiveRun(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.expect(protocol.MethodRunScript, []any{"a = 1"}, "")

	require.NoError(t, f.controller.RunAll(context.Background(), "a = 1"))

	err := f.controller.RunSelection(context.Background(), "a")
	require.ErrorIs(t, err, session.ErrAlreadyRunning)
	assert.True(t, session.IsRejected(err))

	require.ErrorIs(t, f.controller.RunAll(context.Background(), "a = 1"), session.ErrAlreadyRunning)
	assert.Equal(t, models.SessionStatusRunningAll, f.state.Snapshot().Status)
	f.svc.AssertNumberOfCalls(t, "SendToService", 1)

	require.NoError(t, f.reconciler.Handle(context.Background(), models.ExecutionInfo{Status: models.ExecutionStatusSuccess}))

	f.expect(protocol.MethodRunInExistingSession, []any{"a"}, "")
	require.NoError(t, f.controller.RunSelection(context.Background(), "a"))
	assert.Equal(t, models.SessionStatusRunningSelected, f.state.Snapshot().Status)
}

func TestController_RunPreconditions(t *testing.T) {
	t.Parallel()

	t.Run("empty selection", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		require.ErrorIs(t, f.controller.RunSelection(context.Background(), ""), session.ErrEmptySelection)
	})

	t.Run("running unsupported", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.state.SetRunningSupported(false)
		require.ErrorIs(t, f.controller.RunAll(context.Background(), "x"), session.ErrRunningUnsupported)
		f.svc.AssertNotCalled(t, "SendToService", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing executable", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.expect(protocol.MethodUpdateExecutableSelection, []any{"X"}, "")
		f.expect(protocol.MethodGetExecutableOptionsList, []any{"X"}, `[]`)

		require.NoError(t, f.controller.InitExecutableSelection(context.Background(), models.NodeSettings{ExecutableSelection: "X"}))
		require.ErrorIs(t, f.controller.RunAll(context.Background(), "x"), session.ErrExecutableMissing)
	})
}

func TestController_RunTransportFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.svc.On("SendToService", mock.Anything, protocol.MethodRunScript, []any{"x"}).
		Return(nil, errors.New("host unreachable"))

	err := f.controller.RunAll(context.Background(), "x")

	require.Error(t, err)
	assert.True(t, session.IsCommandError(err))
	assert.False(t, session.IsRejected(err))
	assert.Equal(t, models.SessionStatusIdle, f.state.Snapshot().Status)
}

func TestController_RunCarriesGeneration(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.svc.On("SendToService", mock.MatchedBy(func(ctx context.Context) bool {
		generation, ok := protocol.GenerationFromContext(ctx)

		return ok && generation == 1
	}), protocol.MethodRunScript, []any{"x"}).Return(nil, nil)

	require.NoError(t, f.controller.RunAll(context.Background(), "x"))
	f.svc.AssertExpectations(t)
}

func TestController_Cancel(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.expect(protocol.MethodRunInExistingSession, []any{"loop()"}, "")
	kill := f.expect(protocol.MethodKillSession, []any(nil), `{"status":"SUCCESS","description":""}`)
	f.expect(protocol.MethodStartInteractive, []any(nil), "").NotBefore(kill)

	require.ErrorIs(t, f.controller.Cancel(context.Background()), session.ErrNotRunning)

	require.NoError(t, f.controller.RunSelection(context.Background(), "loop()"))
	require.NoError(t, f.controller.ToggleRunSelection(context.Background(), "loop()"))

	snapshot := f.state.Snapshot()
	assert.Equal(t, models.SessionStatusIdle, snapshot.Status)
	assert.Equal(t, models.LastActionCancelled, snapshot.LastActionResult)
	f.svc.AssertExpectations(t)
}

func TestController_PrintVariable(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.expect(protocol.MethodRunInExistingSession, []any{"print(\"\"\">>> print(x)\n\"\"\" + str(x))"}, "")

	require.NoError(t, f.controller.PrintVariable(context.Background(), "x"))
	assert.Equal(t, models.SessionStatusIdle, f.state.Snapshot().Status)
	f.svc.AssertExpectations(t)

	require.ErrorIs(t, f.controller.PrintVariable(context.Background(), ""), session.ErrEmptyVariableName)
}

func TestController_KillSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.expect(protocol.MethodKillSession, []any(nil),
		`{"status":"ERROR","description":"There is no active python session in progress"}`)

	ok, err := f.controller.KillSession(context.Background())

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []models.ConsoleLine{{Error: "There is no active python session in progress"}}, f.out.Lines())
	assert.Equal(t, models.Workspace{}, f.state.Snapshot().Workspace)
}

func TestController_IdempotentIdleTransitions(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.expect(protocol.MethodKillSession, []any(nil), `{"status":"SUCCESS","description":""}`)

	for range 3 {
		_, err := f.controller.KillSession(context.Background())
		require.NoError(t, err)
		require.NoError(t, f.controller.Reset(context.Background()))

		snapshot := f.state.Snapshot()
		assert.Equal(t, models.SessionStatusIdle, snapshot.Status)
		assert.Equal(t, models.Workspace{}, snapshot.Workspace)
	}
}

func TestController_Reset(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		killResult string
		wantResult models.LastActionResult
		wantView   models.ViewPreviewStatus
	}{
		{
			name:       "kill succeeds",
			killResult: `{"status":"SUCCESS","description":""}`,
			wantResult: models.LastActionReset,
			wantView:   models.ViewPreviewStatus{},
		},
		{
			name:       "kill fails",
			killResult: `{"status":"ERROR","description":"no session"}`,
			wantResult: models.LastActionResetFailed,
			wantView:   models.ViewPreviewStatus{HasValidView: true, IsExecutedOnce: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			f.expect(protocol.MethodKillSession, []any(nil), tt.killResult)

			require.NoError(t, f.reconciler.Handle(context.Background(), models.ExecutionInfo{
				Status:       models.ExecutionStatusSuccess,
				HasValidView: boolPtr(true),
			}))
			require.NoError(t, f.controller.Reset(context.Background()))

			snapshot := f.state.Snapshot()
			assert.Equal(t, tt.wantResult, snapshot.LastActionResult)
			assert.Equal(t, tt.wantView, snapshot.ViewPreview)
			assert.Equal(t, models.Workspace{}, snapshot.Workspace)
		})
	}
}

func TestController_UpdateExecutableSelection(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.expect(protocol.MethodUpdateExecutableSelection, []any{"conda.env"}, "")

	require.NoError(t, f.reconciler.Handle(context.Background(), models.ExecutionInfo{
		Status: models.ExecutionStatusSuccess,
		Data:   models.Workspace{{Name: "x", Type: "int", Value: "1"}},
	}))
	require.NoError(t, f.controller.UpdateExecutableSelection(context.Background(), "conda.env"))

	snapshot := f.state.Snapshot()
	assert.Equal(t, models.Workspace{}, snapshot.Workspace)
	assert.Equal(t, models.SessionStatusIdle, snapshot.Status)
	assert.Equal(t, models.ExecutableSelection{ID: "conda.env"}, snapshot.ExecutableSelection)
}

func TestController_InitExecutableSelection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		id          string
		options     string
		wantMissing bool
		wantConsole []models.ConsoleLine
	}{
		{
			name:        "absent",
			id:          "X",
			options:     `[{"type":"PREF_BUNDLED","id":""}]`,
			wantMissing: true,
			wantConsole: []models.ConsoleLine{
				{Error: `Flow variable "X" is missing, therefore no Python executable could be started`},
			},
		},
		{
			name:        "flagged missing",
			id:          "env_var",
			options:     `[{"type":"MISSING_VAR","id":"env_var"}]`,
			wantMissing: true,
			wantConsole: []models.ConsoleLine{
				{Error: `Flow variable "env_var" is missing, therefore no Python executable could be started`},
			},
		},
		{
			name:    "available",
			id:      "env_var",
			options: `[{"type":"CONDA_ENV_VAR","id":"env_var","pythonExecutable":"/opt/conda/bin/python"}]`,
		},
		{
			name:    "default",
			id:      "",
			options: `[]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			f.expect(protocol.MethodUpdateExecutableSelection, []any{tt.id}, "")
			f.expect(protocol.MethodGetExecutableOptionsList, []any{tt.id}, tt.options)

			err := f.controller.InitExecutableSelection(context.Background(), models.NodeSettings{ExecutableSelection: tt.id})

			require.NoError(t, err)
			assert.Equal(t, models.ExecutableSelection{ID: tt.id, IsMissing: tt.wantMissing}, f.state.Snapshot().ExecutableSelection)
			if tt.wantConsole == nil {
				assert.Empty(t, f.out.Lines())
			} else {
				assert.Equal(t, tt.wantConsole, f.out.Lines())
			}
		})
	}
}

func TestController_SelectExecutable(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.expect(protocol.MethodUpdateExecutableSelection, []any{"env"}, "")
	f.expect(protocol.MethodGetExecutableOptionsList, []any{"env"},
		`[{"type":"STRING_VAR","id":"env","pythonExecutable":"/usr/bin/python3"}]`)

	require.NoError(t, f.controller.SelectExecutable(context.Background(), "env"))
	assert.Equal(t, []models.ConsoleLine{{Text: "Changed python executable to /usr/bin/python3"}}, f.out.Lines())
}

func TestDeriveRunningSupported(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		connections []models.InputConnectionInfo
		want        bool
	}{
		{name: "no inputs", want: true},
		{
			name: "all ok",
			connections: []models.InputConnectionInfo{
				{Status: models.PortConnectionOK},
				{Status: models.PortConnectionOK},
			},
			want: true,
		},
		{
			name: "optional missing",
			connections: []models.InputConnectionInfo{
				{Status: models.PortConnectionMissingConnection, IsOptional: true},
			},
			want: true,
		},
		{
			name: "required unexecuted",
			connections: []models.InputConnectionInfo{
				{Status: models.PortConnectionOK, IsOptional: true},
				{Status: models.PortConnectionUnexecutedConnection},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, session.DeriveRunningSupported(tt.connections))
		})
	}
}

func TestController_InitRunningSupported(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	connections := []models.InputConnectionInfo{
		{Status: models.PortConnectionOK, IsOptional: true},
		{Status: models.PortConnectionUnexecutedConnection},
	}

	assert.False(t, f.controller.InitRunningSupported(connections))
	assert.False(t, f.controller.InitRunningSupported(connections))
	assert.False(t, f.controller.IsRunningSupported())

	assert.Equal(t, []models.ConsoleLine{{Warning: session.RunningUnsupportedWarning}}, f.out.Lines())
}

func TestController_LanguageServerConfig(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.expect(protocol.MethodGetLanguageServerConfig, []any{""}, `{"plugins":{}}`)

	config, err := f.controller.LanguageServerConfig(context.Background())

	require.NoError(t, err)
	assert.JSONEq(t, `{"plugins":{}}`, string(config))
}
