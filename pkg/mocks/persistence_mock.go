package mocks

import (
	"context"

	"github.com/dukex/scriptpanel/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockPersistence is a mock implementation of persistence.Persistence.
type MockPersistence struct {
	mock.Mock
}

func (m *MockPersistence) LoadSettings(ctx context.Context, nodeID string) (models.NodeSettings, error) {
	args := m.Called(ctx, nodeID)

	settings, _ := args.Get(0).(models.NodeSettings)

	return settings, args.Error(1)
}

func (m *MockPersistence) SaveSettings(ctx context.Context, nodeID string, settings models.NodeSettings) error {
	args := m.Called(ctx, nodeID, settings)

	return args.Error(0)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
