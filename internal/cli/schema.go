package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tbingest/internal/record"
)

// SchemaColumn is one column of a destination table.
type SchemaColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// SchemaTable describes one destination table.
type SchemaTable struct {
	Table   string         `json:"table"`
	Columns []SchemaColumn `json:"columns"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "List the destination tables and their columns",
		Long: `List every table written by ingest with its ordered columns.

Serial record-type tags name their table; free-form output goes to "output"
and server deliveries to "server".`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(rootOpts, cmd)
		},
	}
}

func runSchema(opts *RootOptions, cmd *cobra.Command) error {
	tables := describeSchema(record.Default())

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(tables)
	}

	w := cmd.OutOrStdout()
	for _, t := range tables {
		cols := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			cols[i] = fmt.Sprintf("%q %s", c.Name, c.Type)
		}
		fmt.Fprintf(w, "%s(%s)\n", t.Table, strings.Join(cols, ", "))
	}
	return nil
}

func describeSchema(reg *record.Registry) []SchemaTable {
	var tables []SchemaTable
	for _, shape := range reg.Shapes() {
		t := SchemaTable{Table: shape.Table}
		for _, name := range shape.Envelope {
			t.Columns = append(t.Columns, SchemaColumn{Name: name, Type: record.Text.String()})
		}
		for _, f := range shape.Fields {
			t.Columns = append(t.Columns, SchemaColumn{Name: f.Name, Type: f.Kind.String()})
		}
		tables = append(tables, t)
	}
	return tables
}
