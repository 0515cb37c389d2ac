// Package model defines the shared types of a becmodel run: elevation bands,
// run ledger records and the error taxonomy.
package model

import "time"

// RunStatus represents the current state of a model run.
type RunStatus string

const (
	RunStatusQueued      RunStatus = "queued"
	RunStatusLoading     RunStatus = "loading"
	RunStatusClassifying RunStatus = "classifying"
	RunStatusFiltering   RunStatus = "filtering"
	RunStatusWriting     RunStatus = "writing"
	RunStatusComplete    RunStatus = "complete"
	RunStatusFailed      RunStatus = "failed"
)

// Run is one execution of the model against a config file.
type Run struct {
	ID         string     `json:"id"`
	ConfigFile string     `json:"config_file"`
	Config     []byte     `json:"config,omitempty"` // YAML snapshot of the effective config
	Status     RunStatus  `json:"status"`
	Result     *RunResult `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// RunResult holds the final outcome of a run.
type RunResult struct {
	OutFile      string  `json:"out_file"`
	Rows         int     `json:"rows"`
	Cols         int     `json:"cols"`
	Features     int     `json:"features"`
	Labels       int     `json:"labels"`
	MergeRules   int     `json:"merge_rules"`
	TotalAreaHA  float64 `json:"total_area_ha"`
	DurationMS   int64   `json:"duration_ms"`
	Unclassified int     `json:"unclassified_cells"`
}

// StageStatus represents the current state of a pipeline stage.
type StageStatus string

const (
	StageStatusRunning  StageStatus = "running"
	StageStatusComplete StageStatus = "complete"
	StageStatusFailed   StageStatus = "failed"
	StageStatusSkipped  StageStatus = "skipped"
)

// RunStage records one pipeline stage of a run.
type RunStage struct {
	ID        string       `json:"id"`
	RunID     string       `json:"run_id"`
	Name      string       `json:"name"`
	Status    StageStatus  `json:"status"`
	Result    *StageResult `json:"result,omitempty"`
	StartedAt time.Time    `json:"started_at"`
}

// StageResult holds the outcome of a pipeline stage.
type StageResult struct {
	Name       string         `json:"name"`
	Status     StageStatus    `json:"status"`
	DurationMS int64          `json:"duration_ms"`
	Error      string         `json:"error,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}
