package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/tbingest/internal/store"
)

// RunInfo is one recorded stream import.
type RunInfo struct {
	ID             string     `json:"id"`
	Stream         string     `json:"stream"`
	Path           string     `json:"path"`
	Status         string     `json:"status"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	Chunks         int64      `json:"chunks"`
	Lines          int64      `json:"lines"`
	RowsInserted   int64      `json:"rows_inserted"`
	LinesSkipped   int64      `json:"lines_skipped"`
	CommitFailures int64      `json:"commit_failures"`
	Error          string     `json:"error,omitempty"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "runs <db>",
		Short: "List the stream imports recorded in a database",
		Long: `List every stream import recorded in the database, oldest first.

A run still shown as "running" was interrupted before it finished.

Example:
  tbingest runs ./experiment.db
  tbingest runs --format json ./experiment.db`,
		Args:          usageArgs(cobra.ExactArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(rootOpts, args[0], cmd)
		},
	}
}

func runRuns(opts *RootOptions, dbPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	// Open would create an empty database.
	if _, err := os.Stat(dbPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%s does not exist", dbPath)
		}
		return formatter.fail(ExitCommandError, ErrCodeStore, "failed to open database", err, nil)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, "failed to open database", err, nil)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	runs, err := st.Runs(ctx)
	if err != nil {
		return formatter.fail(ExitFailure, ErrCodeStore, "failed to list runs", err, nil)
	}

	infos := make([]RunInfo, len(runs))
	for i, r := range runs {
		infos[i] = toRunInfo(r)
	}

	if opts.Format == "json" {
		return formatter.Success(infos)
	}
	writeRuns(cmd.OutOrStdout(), infos)
	return nil
}

func toRunInfo(r store.Run) RunInfo {
	info := RunInfo{
		ID:             r.ID,
		Stream:         r.Stream,
		Path:           r.Path,
		Status:         r.Status,
		StartedAt:      r.StartedAt,
		Chunks:         r.Chunks,
		Lines:          r.Lines,
		RowsInserted:   r.RowsInserted,
		LinesSkipped:   r.LinesSkipped,
		CommitFailures: r.CommitFailures,
		Error:          r.Error,
	}
	if !r.FinishedAt.IsZero() {
		finished := r.FinishedAt
		info.FinishedAt = &finished
	}
	return info
}

func writeRuns(w io.Writer, runs []RunInfo) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return
	}

	p := message.NewPrinter(language.English)
	for _, r := range runs {
		p.Fprintf(w, "%s  %-6s  %-9s  %s  %d lines, %d rows, %d skipped  %s\n",
			r.ID, r.Stream, r.Status, r.StartedAt.UTC().Format(time.RFC3339), r.Lines, r.RowsInserted, r.LinesSkipped, r.Path)
		if r.Error != "" {
			p.Fprintf(w, "    error: %s\n", r.Error)
		}
	}
}
