// Package storagemock provides a mock implementation of storage.Database for tests.
package storagemock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/pvwatch/pvwatch/pkg/storage"
	"github.com/pvwatch/pvwatch/pkg/types"
)

// MockDatabase is a testify mock for the storage.Database interface.
type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) GetSettings(ctx context.Context) (types.Settings, int, error) {
	args := m.Called(ctx)
	return args.Get(0).(types.Settings), args.Int(1), args.Error(2)
}

func (m *MockDatabase) SetSettings(ctx context.Context, settings types.Settings, version int) error {
	args := m.Called(ctx, settings, version)
	return args.Error(0)
}

func (m *MockDatabase) UpsertDailyStats(ctx context.Context, stats []types.DailyStats, version int) error {
	args := m.Called(ctx, stats, version)
	return args.Error(0)
}

func (m *MockDatabase) UpsertMonthlyStats(ctx context.Context, stats []types.MonthlyStats, version int) error {
	args := m.Called(ctx, stats, version)
	return args.Error(0)
}

func (m *MockDatabase) InsertAnalysisRun(ctx context.Context, run types.AnalysisRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockDatabase) GetDailyStats(ctx context.Context, start, end time.Time) ([]types.DailyStats, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.DailyStats), args.Error(1)
}

func (m *MockDatabase) GetMonthlyStats(ctx context.Context, start, end time.Time) ([]types.MonthlyStats, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.MonthlyStats), args.Error(1)
}

func (m *MockDatabase) GetAnalysisRuns(ctx context.Context, start, end time.Time) ([]types.AnalysisRun, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.AnalysisRun), args.Error(1)
}

func (m *MockDatabase) GetLatestAnalysisRun(ctx context.Context) (*types.AnalysisRun, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.AnalysisRun), args.Error(1)
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
