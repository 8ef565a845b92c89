package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/tbingest/internal/ingesterr"
	"github.com/roach88/tbingest/internal/metrics"
	"github.com/roach88/tbingest/internal/record"
	"github.com/roach88/tbingest/internal/store"
	"github.com/roach88/tbingest/internal/stream"
	"github.com/roach88/tbingest/internal/timestamp"
)

// Stream names, used in logs, metrics and ingest_runs.
const (
	StreamSerial = "serial"
	StreamServer = "server"
)

// ChunkSource yields decompressed chunks; a zero-length chunk with a nil
// error marks the end of the stream. *stream.Source implements it.
type ChunkSource interface {
	Next() ([]byte, error)
}

// Store opens one transaction per chunk.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a chunk transaction. *store.Batch implements it.
type Tx interface {
	Insert(ctx context.Context, rec record.Record) error
	Commit() error
	Rollback() error
}

// SQLite adapts a *store.Store to Store.
func SQLite(s *store.Store) Store {
	return sqliteStore{s}
}

type sqliteStore struct {
	s *store.Store
}

func (a sqliteStore) Begin(ctx context.Context) (Tx, error) {
	b, err := a.s.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Options configures a pipeline. Zero values select defaults.
type Options struct {
	// Logger receives per-line diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics receives counters. Defaults to a fresh, unexported set.
	Metrics *metrics.Metrics

	// Registry maps tags to tables. Defaults to record.Default().
	Registry *record.Registry

	// Normalizer converts raw timestamps. Defaults to timestamp.Passthrough.
	Normalizer timestamp.Normalizer

	// Workers parallelizes field parsing within a chunk when > 1.
	// Classification and insertion stay sequential and ordered.
	Workers int
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Metrics == nil {
		o.Metrics = metrics.New()
	}
	if o.Registry == nil {
		o.Registry = record.Default()
	}
	if o.Normalizer == nil {
		o.Normalizer = timestamp.Passthrough{}
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	return o
}

// Stats counts what a pipeline did. Rows and Tables only count committed
// rows; rows of a chunk whose commit failed are counted in RowsLost.
type Stats struct {
	Chunks         int64            `json:"chunks"`
	Lines          int64            `json:"lines"`
	Headers        int64            `json:"headers"`
	Rows           int64            `json:"rows"`
	ParseErrors    int64            `json:"parse_errors"`
	UnknownTags    int64            `json:"unknown_tags"`
	InsertFailures int64            `json:"insert_failures"`
	CommitFailures int64            `json:"commit_failures"`
	RowsLost       int64            `json:"rows_lost"`
	Tables         map[string]int64 `json:"tables"`
}

// Skipped returns the number of lines or records not stored.
func (s Stats) Skipped() int64 {
	return s.ParseErrors + s.UnknownTags + s.InsertFailures
}

// entry carries one line through classification, resolution and insertion.
type entry struct {
	lineNo  int64
	line    string
	action  action
	ts      string
	source  string
	payload string
	fields  []string
	rec     record.Record
	err     error
}

// stage is the stream-specific part of a pipeline.
type stage interface {
	// classify runs sequentially, in line order.
	classify(e *entry)
	// resolve builds e.rec or sets e.err. It may run concurrently for
	// different entries.
	resolve(e *entry)
}

// pipeline is the chunk loop shared by both streams: read a chunk, reassemble
// lines, classify, resolve, insert in one transaction, commit.
type pipeline struct {
	name   string
	store  Store
	opts   Options
	log    *slog.Logger
	stage  stage
	reasm  stream.Reassembler
	lineNo int64
	stats  Stats
}

func newPipeline(name string, st Store, opts Options) pipeline {
	opts = opts.withDefaults()
	return pipeline{
		name:  name,
		store: st,
		opts:  opts,
		log:   opts.Logger.With("stream", name),
		stats: Stats{Tables: make(map[string]int64)},
	}
}

// run consumes src to the end. It returns an error only when the stream or
// the store is unusable; per-line and per-record failures are logged and
// counted.
func (p *pipeline) run(ctx context.Context, src ChunkSource) (Stats, error) {
	for {
		chunk, err := src.Next()
		if err != nil {
			return p.stats, err
		}
		p.opts.Metrics.BytesRead.WithLabelValues(p.name).Add(float64(len(chunk)))

		last := len(chunk) == 0
		var lines []string
		if last {
			lines = p.reasm.Drain()
		} else {
			lines = p.reasm.Feed(chunk)
		}

		if len(lines) > 0 {
			if err := p.processChunk(ctx, lines); err != nil {
				return p.stats, err
			}
		}

		if last {
			return p.stats, nil
		}
	}
}

func (p *pipeline) processChunk(ctx context.Context, lines []string) error {
	entries := make([]entry, len(lines))
	for i, line := range lines {
		p.lineNo++
		entries[i] = entry{lineNo: p.lineNo, line: line}
		p.stage.classify(&entries[i])
	}
	if err := p.resolveAll(ctx, entries); err != nil {
		return fmt.Errorf("%s: resolve chunk: %w", p.name, err)
	}

	tx, err := p.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: begin chunk transaction: %w", p.name, err)
	}

	p.stats.Chunks++
	p.opts.Metrics.Chunks.WithLabelValues(p.name).Inc()

	pending := make(map[string]int64)
	for i := range entries {
		p.persist(ctx, tx, &entries[i], pending)
	}

	var rows int64
	for _, n := range pending {
		rows += n
	}

	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		p.stats.CommitFailures++
		p.stats.RowsLost += rows
		p.opts.Metrics.CommitFailures.WithLabelValues(p.name).Inc()
		p.log.Error("chunk commit failed, continuing with next chunk",
			"chunk", p.stats.Chunks, "rows", rows, "error", err)
		return nil
	}

	p.stats.Rows += rows
	for table, n := range pending {
		p.stats.Tables[table] += n
		p.opts.Metrics.RowsInserted.WithLabelValues(p.name, table).Add(float64(n))
	}
	p.log.Debug("chunk committed", "chunk", p.stats.Chunks, "lines", len(lines), "rows", rows)
	return nil
}

// resolveAll resolves every entry, fanning out across at most Workers
// goroutines on contiguous ranges when Workers > 1. It stops early with
// the context error once ctx is done.
func (p *pipeline) resolveAll(ctx context.Context, entries []entry) error {
	workers := p.opts.Workers
	if workers <= 1 || len(entries) < 2*workers {
		return resolveRange(ctx, p.stage, entries)
	}

	var g errgroup.Group
	g.SetLimit(workers)
	size := (len(entries) + workers - 1) / workers
	for lo := 0; lo < len(entries); lo += size {
		part := entries[lo:min(lo+size, len(entries))]
		g.Go(func() error {
			return resolveRange(ctx, p.stage, part)
		})
	}
	return g.Wait()
}

func resolveRange(ctx context.Context, st stage, entries []entry) error {
	for i := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		st.resolve(&entries[i])
	}
	return nil
}

// persist inserts one resolved entry or accounts for why it was not.
func (p *pipeline) persist(ctx context.Context, tx Tx, e *entry, pending map[string]int64) {
	m := p.opts.Metrics

	if e.action != actSkip {
		p.stats.Lines++
		m.Lines.WithLabelValues(p.name).Inc()
	}

	switch {
	case e.action == actSkip:
		return
	case e.action == actHeader:
		p.stats.Headers++
		m.Headers.WithLabelValues(p.name).Inc()
		p.log.Debug("header declared", "line", e.lineNo, "source", e.source, "tag", e.fields[0])
		return
	case errors.Is(e.err, record.ErrUnknownTag):
		p.stats.UnknownTags++
		m.LinesSkipped.WithLabelValues(p.name, metrics.ReasonUnknownTag).Inc()
		p.log.Info("unknown record tag, skipping line", "line", e.lineNo, "source", e.source, "error", e.err)
		return
	case e.err != nil:
		p.stats.ParseErrors++
		m.LinesSkipped.WithLabelValues(p.name, metrics.ReasonParse).Inc()
		p.log.Warn("malformed line, skipping",
			"line", e.lineNo, "kind", ingesterr.KindOf(e.err), "content", e.line, "error", e.err)
		return
	}

	if err := tx.Insert(ctx, e.rec); err != nil {
		p.stats.InsertFailures++
		m.LinesSkipped.WithLabelValues(p.name, metrics.ReasonPersistence).Inc()
		p.log.Warn("insert failed, skipping record",
			"line", e.lineNo, "kind", ingesterr.KindOf(err), "table", e.rec.Table(), "error", err)
		return
	}
	pending[e.rec.Table()]++
}
