// Package mocks provides testify mocks for the host interfaces.
package mocks

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/dukex/scriptpanel/pkg/models"
	"github.com/dukex/scriptpanel/pkg/protocol"
	"github.com/stretchr/testify/mock"
)

// MockScriptingService is a mock implementation of protocol.ScriptingService.
// Registered event handlers are kept so tests can emit host events.
type MockScriptingService struct {
	mock.Mock

	mu       sync.Mutex
	handlers map[string]protocol.EventHandler
}

func (m *MockScriptingService) SendToService(ctx context.Context, method string, args ...any) (json.RawMessage, error) {
	callArgs := m.Called(ctx, method, args)

	var raw json.RawMessage
	if v := callArgs.Get(0); v != nil {
		raw = v.(json.RawMessage) //nolint:forcetypeassert
	}

	return raw, callArgs.Error(1)
}

func (m *MockScriptingService) RegisterEventHandler(event string, handler protocol.EventHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handlers == nil {
		m.handlers = make(map[string]protocol.EventHandler)
	}

	m.handlers[event] = handler
}

// Emit delivers payload to the handler registered for event. It reports
// whether a handler was registered.
func (m *MockScriptingService) Emit(ctx context.Context, event string, payload any) (bool, error) {
	m.mu.Lock()
	handler, ok := m.handlers[event]
	m.mu.Unlock()

	if !ok {
		return false, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return true, err
	}

	return true, handler(ctx, raw)
}

// MockInitialDataService is a mock implementation of protocol.InitialDataService.
type MockInitialDataService struct {
	mock.Mock
}

func (m *MockInitialDataService) GetInitialData(ctx context.Context) (models.InitialData, error) {
	args := m.Called(ctx)

	return args.Get(0).(models.InitialData), args.Error(1) //nolint:forcetypeassert
}

// MockSettingsService is a mock implementation of protocol.SettingsService.
type MockSettingsService struct {
	mock.Mock
}

func (m *MockSettingsService) GetInitialSettings(ctx context.Context) (models.NodeSettings, error) {
	args := m.Called(ctx)

	return args.Get(0).(models.NodeSettings), args.Error(1) //nolint:forcetypeassert
}

func (m *MockSettingsService) SaveSettings(ctx context.Context, settings models.NodeSettings) error {
	args := m.Called(ctx, settings)

	return args.Error(0)
}
