package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/tbingest/internal/config"
	"github.com/roach88/tbingest/internal/metrics"
	"github.com/roach88/tbingest/internal/record"
	"github.com/roach88/tbingest/internal/store"
	"github.com/roach88/tbingest/internal/stream"
)

// Runner ingests the serial stream, then the server stream, into one store,
// and compacts the store afterwards.
type Runner struct {
	Store  *store.Store
	Config *config.Config

	// Optional. Defaults: fresh metrics, slog.Default(), UUIDv7 run IDs,
	// time.Now.
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	RunIDs  RunIDGenerator
	Now     func() time.Time
}

// StreamResult describes the import of one stream.
type StreamResult struct {
	RunID string `json:"run_id"`
	Path  string `json:"path"`
	Stats Stats  `json:"stats"`
}

// Result describes a complete ingestion.
type Result struct {
	Serial StreamResult `json:"serial"`
	Server StreamResult `json:"server"`

	// Tables holds the row count of every table after ingestion, including
	// rows from earlier imports into the same store.
	Tables map[string]int64 `json:"tables"`
}

// streamRunner is implemented by SerialPipeline and ServerPipeline.
type streamRunner interface {
	Run(ctx context.Context, src ChunkSource) (Stats, error)
}

func (r *Runner) defaults() {
	if r.Metrics == nil {
		r.Metrics = metrics.New()
	}
	if r.Logger == nil {
		r.Logger = slog.Default()
	}
	if r.RunIDs == nil {
		r.RunIDs = UUIDv7Generator{}
	}
	if r.Now == nil {
		r.Now = time.Now
	}
}

// Run ingests both files. It stops at the first fatal error: an unreadable
// or corrupt input, or an unusable store. The partial Result is returned
// with the error.
func (r *Runner) Run(ctx context.Context, serialPath, serverPath string) (*Result, error) {
	r.defaults()
	res := &Result{}

	serverNorm, err := r.Config.ServerNormalizer()
	if err != nil {
		return res, err
	}

	res.Serial, err = r.ingest(ctx, StreamSerial, serialPath, r.Config.Serial.Codec,
		func(opts Options) streamRunner {
			opts.Normalizer = r.Config.SerialNormalizer()
			return NewSerialPipeline(SQLite(r.Store), opts)
		})
	if err != nil {
		return res, err
	}

	res.Server, err = r.ingest(ctx, StreamServer, serverPath, r.Config.Server.Codec,
		func(opts Options) streamRunner {
			opts.Normalizer = serverNorm
			return NewServerPipeline(SQLite(r.Store), opts)
		})
	if err != nil {
		return res, err
	}

	if r.Config.Vacuum {
		r.Logger.Info("compacting database")
		if err := r.Store.Compact(ctx); err != nil {
			return res, err
		}
	}

	res.Tables = make(map[string]int64)
	for _, shape := range record.Default().Shapes() {
		n, err := r.Store.CountRows(ctx, shape.Table)
		if err != nil {
			return res, err
		}
		res.Tables[shape.Table] = n
	}

	if r.Config.MetricsFile != "" {
		if err := r.Metrics.WriteFile(r.Config.MetricsFile); err != nil {
			return res, fmt.Errorf("write metrics: %w", err)
		}
	}

	return res, nil
}

func (r *Runner) ingest(ctx context.Context, name, path string, codec stream.Codec, build func(Options) streamRunner) (StreamResult, error) {
	run := store.Run{
		ID:        r.RunIDs.Generate(),
		Stream:    name,
		Path:      path,
		StartedAt: r.Now(),
	}
	out := StreamResult{RunID: run.ID, Path: path}
	log := r.Logger.With("run_id", run.ID)

	if err := r.Store.StartRun(ctx, run); err != nil {
		return out, fmt.Errorf("%s: %w", name, err)
	}
	log.Info("ingesting stream", "stream", name, "path", path)

	stats, runErr := r.ingestFile(ctx, path, codec, build(Options{
		Logger:   log,
		Metrics:  r.Metrics,
		Registry: record.Default(),
		Workers:  r.Config.Workers,
	}))
	out.Stats = stats

	run.Status = store.RunSucceeded
	if runErr != nil {
		run.Status = store.RunFailed
		run.Error = runErr.Error()
	}
	run.FinishedAt = r.Now()
	run.Chunks = stats.Chunks
	run.Lines = stats.Lines
	run.RowsInserted = stats.Rows
	run.LinesSkipped = stats.Skipped()
	run.CommitFailures = stats.CommitFailures

	if err := r.Store.FinishRun(ctx, run); err != nil {
		log.Error("failed to record run", "error", err)
	}

	if runErr != nil {
		return out, fmt.Errorf("%s: %w", name, runErr)
	}

	log.Info("stream ingested", "stream", name,
		"chunks", stats.Chunks, "lines", stats.Lines, "rows", stats.Rows,
		"skipped", stats.Skipped(), "commit_failures", stats.CommitFailures)
	return out, nil
}

func (r *Runner) ingestFile(ctx context.Context, path string, codec stream.Codec, p streamRunner) (Stats, error) {
	src, err := stream.Open(path, codec, r.Config.ChunkSize)
	if err != nil {
		return Stats{Tables: map[string]int64{}}, err
	}
	defer src.Close()

	return p.Run(ctx, src)
}
