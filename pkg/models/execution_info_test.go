package models_test

import (
	"encoding/json"
	"testing"

	"github.com/dukex/scriptpanel/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutionInfo_Outcome(t *testing.T) {
	t.Parallel()

	valid := true
	workspace := models.Workspace{{Name: "x", Type: "int", Value: "1"}}

	tests := []struct {
		name     string
		info     models.ExecutionInfo
		validate func(t *testing.T, outcome models.ExecutionOutcome)
	}{
		{
			name: "success carries workspace and view",
			info: models.ExecutionInfo{Status: models.ExecutionStatusSuccess, Data: workspace, HasValidView: &valid},
			validate: func(t *testing.T, outcome models.ExecutionOutcome) {
				t.Helper()
				require.IsType(t, models.ExecutionSucceeded{}, outcome)
				assert.Equal(t, workspace, outcome.Result().Workspace)
				assert.True(t, outcome.Result().HasValidView)
			},
		},
		{
			name: "execution error carries traceback",
			info: models.ExecutionInfo{
				Status:      models.ExecutionStatusExecutionError,
				Description: "Execution Error",
				Traceback:   []string{"line 1", "line 2"},
			},
			validate: func(t *testing.T, outcome models.ExecutionOutcome) {
				t.Helper()
				errored, ok := outcome.(models.ExecutionErrored)
				require.True(t, ok)
				assert.Equal(t, []string{"line 1", "line 2"}, errored.Traceback)
				assert.Equal(t, "Execution Error", errored.Description)
			},
		},
		{
			name: "missing data becomes empty workspace",
			info: models.ExecutionInfo{Status: models.ExecutionStatusKnimeError, Description: "KNIME error"},
			validate: func(t *testing.T, outcome models.ExecutionOutcome) {
				t.Helper()
				require.IsType(t, models.KnimeErrored{}, outcome)
				assert.NotNil(t, outcome.Result().Workspace)
				assert.Empty(t, outcome.Result().Workspace)
				assert.False(t, outcome.Result().HasValidView)
			},
		},
		{
			name: "fatal error",
			info: models.ExecutionInfo{Status: models.ExecutionStatusFatalError},
			validate: func(t *testing.T, outcome models.ExecutionOutcome) {
				t.Helper()
				assert.Equal(t, models.ExecutionStatusFatalError, outcome.Status())
			},
		},
		{
			name: "cancelled",
			info: models.ExecutionInfo{Status: models.ExecutionStatusCancelled, Generation: 4},
			validate: func(t *testing.T, outcome models.ExecutionOutcome) {
				t.Helper()
				require.IsType(t, models.ExecutionCancelled{}, outcome)
				assert.Equal(t, uint64(4), outcome.Result().Generation)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			outcome, err := tt.info.Outcome()
			require.NoError(t, err)
			tt.validate(t, outcome)
		})
	}
}

func TestExecutionInfo_OutcomeUnknownStatus(t *testing.T) {
	t.Parallel()

	_, err := models.ExecutionInfo{Status: "EXPLODED"}.Outcome()
	require.ErrorIs(t, err, models.ErrUnknownExecutionStatus)
}

func TestExecutionInfo_DecodesHostPayload(t *testing.T) {
	t.Parallel()

	payload := `{"status":"SUCCESS","description":"done","data":[{"name":"df","type":"DataFrame","value":"..."}],"hasValidView":true}`

	var info models.ExecutionInfo
	require.NoError(t, json.Unmarshal([]byte(payload), &info))

	outcome, err := info.Outcome()
	require.NoError(t, err)
	assert.Equal(t, "df", outcome.Result().Workspace[0].Name)
	assert.True(t, outcome.Result().HasValidView)
}

func TestViewPreviewStatus_Placeholder(t *testing.T) {
	t.Parallel()

	assert.Equal(t, models.ViewPlaceholderNotExecuted, models.ViewPreviewStatus{}.Placeholder())
	assert.Equal(t, models.ViewPlaceholderNoView, models.ViewPreviewStatus{IsExecutedOnce: true}.Placeholder())
	assert.Empty(t, models.ViewPreviewStatus{HasValidView: true, IsExecutedOnce: true}.Placeholder())
}

func TestSessionStatus_IsRunning(t *testing.T) {
	t.Parallel()

	assert.False(t, models.SessionStatusIdle.IsRunning())
	assert.True(t, models.SessionStatusRunningAll.IsRunning())
	assert.True(t, models.SessionStatusRunningSelected.IsRunning())
}
