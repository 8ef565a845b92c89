package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/tbingest/internal/ingesterr"
	"github.com/roach88/tbingest/internal/record"
)

// Batch is one write transaction. It is not safe for concurrent use.
type Batch struct {
	tx    *sql.Tx
	stmts map[string]*sql.Stmt
}

// Begin opens a write transaction.
func (s *Store) Begin(ctx context.Context) (*Batch, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin batch: %w", err)
	}
	return &Batch{tx: tx, stmts: make(map[string]*sql.Stmt)}, nil
}

// Insert writes one record. The insert must affect exactly one row.
//
// Errors are KindPersistence and concern this record only: a failed
// statement is rolled back by SQLite, earlier inserts of the transaction
// are kept.
func (b *Batch) Insert(ctx context.Context, rec record.Record) error {
	stmt, err := b.stmt(ctx, rec)
	if err != nil {
		return err
	}

	res, err := stmt.ExecContext(ctx, rec.Values...)
	if err != nil {
		return ingesterr.Persistence("insert "+rec.Table(), "statement rejected", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return ingesterr.Persistence("insert "+rec.Table(), "rows affected", err)
	}
	if n != 1 {
		return ingesterr.Persistence("insert "+rec.Table(), fmt.Sprintf("%d rows affected, want 1", n), nil)
	}
	return nil
}

// stmt returns the cached insert statement for the record's table.
// Statements are closed by database/sql when the transaction ends.
func (b *Batch) stmt(ctx context.Context, rec record.Record) (*sql.Stmt, error) {
	table := rec.Table()
	if stmt, ok := b.stmts[table]; ok {
		return stmt, nil
	}

	stmt, err := b.tx.PrepareContext(ctx, insertSQL(table, rec.Columns()))
	if err != nil {
		return nil, ingesterr.Persistence("prepare "+table, "prepare insert", err)
	}
	b.stmts[table] = stmt
	return stmt, nil
}

// Commit commits the transaction.
func (b *Batch) Commit() error {
	if err := b.tx.Commit(); err != nil {
		return ingesterr.Persistence("commit", "commit batch", err)
	}
	return nil
}

// Rollback aborts the transaction. It is a no-op after Commit.
func (b *Batch) Rollback() error {
	err := b.tx.Rollback()
	if err == sql.ErrTxDone {
		return nil
	}
	return err
}

// insertSQL renders a parametrized single-row insert.
func insertSQL(table string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(quoted, ", "), placeholders)
}
