package session_test

import (
	"encoding/json"
	"testing"

	"github.com/dukex/scriptpanel/pkg/backend"
	"github.com/dukex/scriptpanel/pkg/console"
	"github.com/dukex/scriptpanel/pkg/metrics"
	"github.com/dukex/scriptpanel/pkg/mocks"
	"github.com/dukex/scriptpanel/pkg/session"
	"github.com/stretchr/testify/mock"
)

type fixture struct {
	svc        *mocks.MockScriptingService
	state      *session.State
	out        *console.Buffer
	metrics    *metrics.Metrics
	controller *session.Controller
	reconciler *session.Reconciler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		svc:     &mocks.MockScriptingService{},
		state:   session.NewState(),
		out:     console.NewBuffer(0),
		metrics: metrics.New(),
	}

	client := backend.NewClient(f.svc, backend.WithMetrics(f.metrics))
	f.controller = session.NewController(f.state, client, f.out, nil)
	f.reconciler = session.NewReconciler(f.state, f.out, nil, f.metrics)

	return f
}

func (f *fixture) expect(method string, args []any, result string) *mock.Call {
	var raw any
	if result != "" {
		raw = json.RawMessage(result)
	}

	return f.svc.On("SendToService", mock.Anything, method, args).Return(raw, nil)
}

func boolPtr(b bool) *bool {
	return &b
}
