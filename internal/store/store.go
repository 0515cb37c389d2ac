// Package store keeps the run ledger: one record per model run plus a
// record per pipeline stage.
package store

import (
	"context"

	"github.com/sells-group/becmodel/internal/model"
	"github.com/sells-group/becmodel/internal/vectorize"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status     model.RunStatus `json:"status,omitempty"`
	ConfigFile string          `json:"config_file,omitempty"`
	Limit      int             `json:"limit,omitempty"`
	Offset     int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the run ledger.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, configFile string, config []byte) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error
	FailRun(ctx context.Context, runID string, reason string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Stages
	CreateStage(ctx context.Context, runID string, name string) (*model.RunStage, error)
	CompleteStage(ctx context.Context, stageID string, result *model.StageResult) error
	ListStages(ctx context.Context, runID string) ([]model.RunStage, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// FeatureSink is implemented by stores that can also hold the output
// polygons of a run.
type FeatureSink interface {
	SaveFeatures(ctx context.Context, runID string, features []vectorize.Feature, srid int) (int64, error)
}

const defaultListLimit = 100
