package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/becmodel/internal/model"
	"github.com/sells-group/becmodel/internal/store"
	"github.com/sells-group/becmodel/internal/vectorize"
)

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateRun(ctx context.Context, configFile string, config []byte) (*model.Run, error) {
	args := m.Called(ctx, configFile, config)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	args := m.Called(ctx, runID, status)
	return args.Error(0)
}

func (m *mockStore) UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error {
	args := m.Called(ctx, runID, result)
	return args.Error(0)
}

func (m *mockStore) FailRun(ctx context.Context, runID string, reason string) error {
	args := m.Called(ctx, runID, reason)
	return args.Error(0)
}

func (m *mockStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Run), args.Error(1)
}

func (m *mockStore) CreateStage(ctx context.Context, runID string, name string) (*model.RunStage, error) {
	args := m.Called(ctx, runID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RunStage), args.Error(1)
}

func (m *mockStore) CompleteStage(ctx context.Context, stageID string, result *model.StageResult) error {
	args := m.Called(ctx, stageID, result)
	return args.Error(0)
}

func (m *mockStore) ListStages(ctx context.Context, runID string) ([]model.RunStage, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RunStage), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// mockSinkStore is a Store that also accepts features.
type mockSinkStore struct {
	mockStore
}

func (m *mockSinkStore) SaveFeatures(ctx context.Context, runID string, features []vectorize.Feature, srid int) (int64, error) {
	args := m.Called(ctx, runID, features, srid)
	return args.Get(0).(int64), args.Error(1)
}
