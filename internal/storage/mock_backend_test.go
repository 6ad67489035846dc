package storage_test

import (
	"context"

	"strangerly/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockBackend is a testify mock of storage.Backend.
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) SaveMessage(ctx context.Context, msg models.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockBackend) RecentMessages(ctx context.Context, room string, limit int) ([]models.Message, error) {
	args := m.Called(ctx, room, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}
