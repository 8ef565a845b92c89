package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tbingest/internal/store"
	"github.com/roach88/tbingest/internal/testutil"
)

// ingestWithFixedRuns ingests the test inputs with deterministic run IDs
// and clock, returning the database path.
func ingestWithFixedRuns(t *testing.T) string {
	t.Helper()
	dbPath, serial, server := testInputs(t)

	cmd := newIngestCommand(&IngestOptions{
		RootOptions: &RootOptions{Format: "text"},
		RunIDs:      testutil.NewFixedRunIDGenerator("cli"),
		Now:         testutil.NewStepClock(time.Date(2021, 2, 20, 0, 0, 0, 0, time.UTC), time.Second).Now,
	})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{dbPath, serial, server})
	require.NoError(t, cmd.Execute())
	return dbPath
}

func executeRuns(t *testing.T, format string, args ...string) (*bytes.Buffer, error) {
	t.Helper()

	out := &bytes.Buffer{}
	cmd := NewRunsCommand(&RootOptions{Format: format})
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return out, cmd.Execute()
}

func TestRuns_Text(t *testing.T) {
	dbPath := ingestWithFixedRuns(t)

	out, err := executeRuns(t, "text", dbPath)

	require.NoError(t, err)
	assert.Regexp(t, `(?m)^cli-0001  serial  succeeded  2021-02-20T00:00:00Z  5 lines, 3 rows, 1 skipped  .*serial\.zst$`, out.String())
	assert.Regexp(t, `(?m)^cli-0002  server  succeeded  2021-02-20T00:00:02Z  `, out.String())
	assert.NotContains(t, out.String(), "error:")
}

func TestRuns_JSON(t *testing.T) {
	dbPath := ingestWithFixedRuns(t)

	out, err := executeRuns(t, "json", dbPath)
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   []RunInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 2)

	serial := resp.Data[0]
	assert.Equal(t, "cli-0001", serial.ID)
	assert.Equal(t, "serial", serial.Stream)
	assert.Equal(t, store.RunSucceeded, serial.Status)
	assert.Equal(t, int64(3), serial.RowsInserted)
	assert.Equal(t, int64(1), serial.LinesSkipped)
	require.NotNil(t, serial.FinishedAt)
	assert.True(t, serial.FinishedAt.Equal(time.Date(2021, 2, 20, 0, 0, 1, 0, time.UTC)))
	assert.Equal(t, "cli-0002", resp.Data[1].ID)
}

func TestRuns_EmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := executeRuns(t, "text", dbPath)

	require.NoError(t, err)
	assert.Equal(t, "no runs recorded\n", out.String())
}

func TestRuns_MissingDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "missing.db")

	out, err := executeRuns(t, "json", dbPath)

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out.String(), ErrCodeStore)
	assert.NoFileExists(t, dbPath)
}

func TestRuns_RequiresDatabaseArg(t *testing.T) {
	_, err := executeRuns(t, "text")

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
