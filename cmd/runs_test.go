package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/becmodel/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:         "abc12345-6789-0000-0000-000000000000",
			ConfigFile: "tiles/093K.yaml",
			Status:     model.RunStatusComplete,
			Result:     &model.RunResult{Features: 412},
			CreatedAt:  now,
			UpdatedAt:  now.Add(2 * time.Minute),
		},
		{
			ID:         "def12345-6789-0000-0000-000000000000",
			ConfigFile: "/very/long/path/to/a/project/directory/becmodel.yaml",
			Status:     model.RunStatusClassifying,
			CreatedAt:  now.Add(-1 * time.Hour),
			UpdatedAt:  now.Add(-30 * time.Minute),
		},
		{
			ID:        "0123",
			Status:    model.RunStatusFailed,
			Error:     "tables: polygon_number values do not match",
			CreatedAt: now,
			UpdatedAt: now.Add(3 * time.Second),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "CONFIG")
	assert.Contains(t, output, "FEATURES")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-")
	assert.Contains(t, output, "tiles/093K.yaml")
	assert.Contains(t, output, "412")
	assert.Contains(t, output, "classifying")
	assert.Contains(t, output, "...")
	assert.Contains(t, output, "becmodel.yaml")
	assert.Contains(t, output, "(defaults)")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "2m0s")
}

func TestRunsStats(t *testing.T) {
	runs := []model.Run{
		{Status: model.RunStatusComplete, Result: &model.RunResult{Features: 10, TotalAreaHA: 100, DurationMS: 2000}},
		{Status: model.RunStatusComplete, Result: &model.RunResult{Features: 5, TotalAreaHA: 50.5, DurationMS: 4000}},
		{Status: model.RunStatusFailed},
		{Status: model.RunStatusLoading},
	}

	s := computeRunStats(runs)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Complete)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Other)
	assert.Equal(t, 15, s.Features)
	assert.InDelta(t, 150.5, s.TotalAreaHA, 1e-9)
	assert.InDelta(t, 3.0, s.AvgDurSecs, 1e-9)

	var buf bytes.Buffer
	formatRunStats(&buf, s)
	assert.Contains(t, buf.String(), "Total runs:")
	assert.Contains(t, buf.String(), "150.5")
	assert.Contains(t, buf.String(), "3.0s")
}

func TestRunsStats_Empty(t *testing.T) {
	s := computeRunStats(nil)
	assert.Equal(t, runStats{}, s)

	var buf bytes.Buffer
	formatRunStats(&buf, s)
	assert.NotContains(t, buf.String(), "Avg duration")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
}

func TestRunsCommand_NoLedger(t *testing.T) {
	cfgPath := writeProject(t, 1, 1)

	_, err := execute(t, "runs", "list", "--config", cfgPath)
	assert.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}
