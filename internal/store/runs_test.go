package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuns_StartAndFinish(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	start := time.Date(2021, 2, 19, 13, 0, 0, 0, time.UTC)

	require.NoError(t, s.StartRun(ctx, Run{ID: "run-1", Stream: "serial", Path: "serial.zst", StartedAt: start}))
	require.NoError(t, s.StartRun(ctx, Run{ID: "run-2", Stream: "server", Path: "server.zst", StartedAt: start.Add(time.Minute)}))

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, RunRunning, runs[0].Status)
	assert.True(t, runs[0].FinishedAt.IsZero())

	require.NoError(t, s.FinishRun(ctx, Run{
		ID:             "run-1",
		Status:         RunSucceeded,
		FinishedAt:     start.Add(30 * time.Second),
		Chunks:         2,
		Lines:          10,
		RowsInserted:   7,
		LinesSkipped:   1,
		CommitFailures: 0,
	}))
	require.NoError(t, s.FinishRun(ctx, Run{
		ID:         "run-2",
		Status:     RunFailed,
		FinishedAt: start.Add(2 * time.Minute),
		Error:      "DECODE_ERROR: read chunk",
	}))

	runs, err = s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, "serial", runs[0].Stream)
	assert.Equal(t, RunSucceeded, runs[0].Status)
	assert.True(t, start.Equal(runs[0].StartedAt))
	assert.True(t, start.Add(30*time.Second).Equal(runs[0].FinishedAt))
	assert.Equal(t, int64(2), runs[0].Chunks)
	assert.Equal(t, int64(10), runs[0].Lines)
	assert.Equal(t, int64(7), runs[0].RowsInserted)
	assert.Equal(t, int64(1), runs[0].LinesSkipped)
	assert.Empty(t, runs[0].Error)

	assert.Equal(t, RunFailed, runs[1].Status)
	assert.Equal(t, "DECODE_ERROR: read chunk", runs[1].Error)
}

func TestRuns_FinishUnknown(t *testing.T) {
	s := createTestStore(t)

	err := s.FinishRun(context.Background(), Run{ID: "missing", Status: RunSucceeded, FinishedAt: time.Now()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRuns_Empty(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.Runs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NotNil(t, runs)
}
