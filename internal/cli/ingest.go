package cli

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/tbingest/internal/config"
	"github.com/roach88/tbingest/internal/ingest"
	"github.com/roach88/tbingest/internal/ingesterr"
	"github.com/roach88/tbingest/internal/store"
)

// IngestOptions holds flags for the ingest command.
type IngestOptions struct {
	*RootOptions
	ConfigFile  string
	ChunkSize   int
	Workers     int
	NoVacuum    bool
	MetricsFile string

	// RunIDs and Now override run naming and timing (for testing).
	// If nil, UUIDv7 IDs and time.Now are used.
	RunIDs ingest.RunIDGenerator
	Now    func() time.Time
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	return newIngestCommand(&IngestOptions{RootOptions: rootOpts})
}

func newIngestCommand(opts *IngestOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <output.db> <serial-file> <server-file>",
		Short: "Load both telemetry streams into a database",
		Long: `Load the serial stream, then the server stream, into a SQLite database.

The database is created if it does not exist; tables are only ever appended
to, so ingesting the same files twice stores every row twice. Inputs may be
zstd- or gzip-compressed or plain text; the codec is detected from the file
contents unless set in the config file.

Malformed lines are logged and skipped. Ingestion stops only when an input
cannot be read or decompressed, or the database becomes unusable.

Example:
  tbingest ingest ./experiment.db serial.zst server.zst
  tbingest ingest --config tbingest.yaml --workers 4 ./experiment.db serial.zst server.zst`,
		Args:          usageArgs(cobra.ExactArgs(3)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(opts, args[0], args[1], args[2], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "", "path to YAML config file")
	cmd.Flags().IntVar(&opts.ChunkSize, "chunk-size", config.DefaultChunkSize, "decompressed bytes per transaction")
	cmd.Flags().IntVar(&opts.Workers, "workers", 1, "goroutines parsing fields within a chunk")
	cmd.Flags().BoolVar(&opts.NoVacuum, "no-vacuum", false, "skip compacting the database afterwards")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus counters to this file")

	return cmd
}

func runIngest(opts *IngestOptions, dbPath, serialPath, serverPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(opts, cmd)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err, nil)
	}
	formatter.VerboseLog("chunk size %d, workers %d, vacuum %t", cfg.ChunkSize, cfg.Workers, cfg.Vacuum)

	slog.Info("opening database", "path", dbPath)
	st, err := store.Open(dbPath)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, "failed to open database", err, nil)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	runner := &ingest.Runner{
		Store:  st,
		Config: cfg,
		Logger: logger,
		RunIDs: opts.RunIDs,
		Now:    opts.Now,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := runner.Run(ctx, serialPath, serverPath)
	if err != nil {
		code := ErrCodeWrite
		if ingesterr.IsFatal(err) {
			code = ErrCodeInput
		}
		return formatter.fail(ExitFailure, code, "ingestion failed", err, res)
	}

	if opts.Format == "json" {
		return formatter.Success(res)
	}
	writeSummary(cmd.OutOrStdout(), res)
	return nil
}

// loadConfig reads the config file, if any, and applies explicitly set flags
// on top of it.
func loadConfig(opts *IngestOptions, cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if opts.ConfigFile != "" {
		var err error
		if cfg, err = config.Load(opts.ConfigFile); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("chunk-size") {
		cfg.ChunkSize = opts.ChunkSize
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.Workers
	}
	if opts.NoVacuum {
		cfg.Vacuum = false
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = opts.MetricsFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func writeSummary(w io.Writer, res *ingest.Result) {
	p := message.NewPrinter(language.English)

	for _, s := range []struct {
		name string
		res  ingest.StreamResult
	}{
		{ingest.StreamSerial, res.Serial},
		{ingest.StreamServer, res.Server},
	} {
		st := s.res.Stats
		p.Fprintf(w, "%s: %d lines, %d rows, %d headers, %d skipped, %d commit failures (run %s)\n",
			s.name, st.Lines, st.Rows, st.Headers, st.Skipped(), st.CommitFailures, s.res.RunID)
	}

	tables := make([]string, 0, len(res.Tables))
	for t := range res.Tables {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	p.Fprintln(w, "tables:")
	for _, t := range tables {
		p.Fprintf(w, "  %-20s %12d\n", t, res.Tables[t])
	}
}
