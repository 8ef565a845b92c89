package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/tbingest/internal/metrics"
	"github.com/roach88/tbingest/internal/store"
	"github.com/roach88/tbingest/internal/stream"
	"github.com/roach88/tbingest/internal/timestamp"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// createTestStore opens a fresh store in a temporary directory.
func createTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// testOptions stores raw timestamps so inputs stay readable.
func testOptions(m *metrics.Metrics, workers int) Options {
	return Options{
		Logger:     discardLogger(),
		Metrics:    m,
		Normalizer: timestamp.Passthrough{},
		Workers:    workers,
	}
}

// plainSource serves input uncompressed in chunks of size bytes.
func plainSource(t *testing.T, input string, size int) ChunkSource {
	t.Helper()
	src, err := stream.NewSource("test", strings.NewReader(input), stream.CodecNone, size)
	require.NoError(t, err)
	return src
}

func runSerial(t *testing.T, st Store, input string, size, workers int) Stats {
	t.Helper()
	p := NewSerialPipeline(st, testOptions(metrics.New(), workers))
	stats, err := p.Run(context.Background(), plainSource(t, input, size))
	require.NoError(t, err)
	return stats
}

// dumpTable returns every row of table in insertion order, one
// " | "-separated line per row.
func dumpTable(t *testing.T, s *store.Store, table string) []string {
	t.Helper()

	rows, err := s.DB().Query(fmt.Sprintf(`SELECT * FROM "%s" ORDER BY rowid`, table))
	require.NoError(t, err)
	defer rows.Close()

	cols, err := rows.Columns()
	require.NoError(t, err)

	var out []string
	for rows.Next() {
		vals := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		require.NoError(t, rows.Scan(ptrs...))

		parts := make([]string, len(vals))
		for i, v := range vals {
			parts[i] = v.String
			if !v.Valid {
				parts[i] = "NULL"
			}
		}
		out = append(out, strings.Join(parts, " | "))
	}
	require.NoError(t, rows.Err())
	return out
}

func countRows(t *testing.T, s *store.Store, table string) int64 {
	t.Helper()
	n, err := s.CountRows(context.Background(), table)
	require.NoError(t, err)
	return n
}
