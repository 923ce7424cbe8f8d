package mocks

import (
	"context"
	"time"

	"github.com/ZRainbow1275/LawClick-sub005/internal/models"
	"github.com/stretchr/testify/mock"
	"gorm.io/datatypes"
)

type SignalRepoMock struct {
	mock.Mock
}

func (m *SignalRepoMock) Touch(ctx context.Context, tenantID, kind string, payload datatypes.JSON) (uint64, error) {
	args := m.Called(ctx, tenantID, kind, payload)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *SignalRepoMock) PollSince(ctx context.Context, tenantID, kind string, sinceVersion uint64, sinceTime time.Time, limit int) ([]models.TenantSignal, error) {
	args := m.Called(ctx, tenantID, kind, sinceVersion, sinceTime, limit)

	signals, _ := args.Get(0).([]models.TenantSignal)
	return signals, args.Error(1)
}

func (m *SignalRepoMock) Trim(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}
