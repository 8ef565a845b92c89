package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tbingest/internal/record"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, verifyPragma(s.db, "journal_mode", "wal"))
	assert.NoError(t, verifyPragma(s.db, "synchronous", "1"))
	assert.NoError(t, verifyPragma(s.db, "busy_timeout", "5000"))
	assert.NoError(t, verifyPragma(s.db, "user_version", "2"))
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	assert.NoError(t, verifyPragma(s2.db, "user_version", "2"))
}

func TestVerifyPragma_Mismatch(t *testing.T) {
	s := createTestStore(t)

	err := verifyPragma(s.db, "journal_mode", "delete")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `journal_mode = "wal", expected "delete"`)
}

// A database written before "tx errors" existed gains the column on Open.
func TestOpen_MigratesStatsTxErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE "stats" (
		  "Timestamp" TEXT, "Node" TEXT, "success" INTEGER, "layer" TEXT,
		  "rx packets" INTEGER, "rx bytes" INTEGER, "tx packets" INTEGER,
		  "tx multicast packets" INTEGER, "tx bytes" INTEGER, "tx succeeded" INTEGER
		);
		INSERT INTO "stats" VALUES ('t', 'n', 1, 'mac', 2, 3, 4, 5, 6, 7);
		PRAGMA user_version = 1;
	`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	shape, ok := record.Default().Lookup("stats")
	require.True(t, ok)
	cols, err := s.Columns(context.Background(), "stats")
	require.NoError(t, err)
	assert.Equal(t, shape.Columns(), cols)

	n, err := s.CountRows(context.Background(), "stats")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, verifyPragma(s.db, "user_version", "2"))
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "test.db"))
	assert.Error(t, err)
}

// Every registered shape must match its table column for column.
func TestSchemaMatchesRegistry(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, shape := range record.Default().Shapes() {
		t.Run(shape.Table, func(t *testing.T) {
			cols, err := s.Columns(ctx, shape.Table)
			require.NoError(t, err)
			assert.Equal(t, shape.Columns(), cols)
		})
	}
}

func TestCountRows_Empty(t *testing.T) {
	s := createTestStore(t)

	n, err := s.CountRows(context.Background(), "stats")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	_, err = s.CountRows(context.Background(), "no_such_table")
	assert.Error(t, err)
}

func TestCompact(t *testing.T) {
	s := createTestStore(t)
	assert.NoError(t, s.Compact(context.Background()))
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"rssi (dBm)"`, quoteIdent("rssi (dBm)"))
	assert.Equal(t, `"a""b"`, quoteIdent(`a"b`))
}
