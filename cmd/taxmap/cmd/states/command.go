// Package states implements the taxmap states command, which prints the
// state-code table the pipeline resolves full state names against.
package states

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agentstation/taxmap/internal/report"
	"github.com/agentstation/taxmap/pkg/jurisdiction"
)

// AppContext defines the interface the states command needs from the app.
type AppContext interface {
	Logger() *zerolog.Logger
	StateTable() (*jurisdiction.Table, error)
	OutputFormat() string
}

// NewCommand creates the states command with app dependencies.
func NewCommand(app AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "states",
		Short: "Show the state name to postal code table",
		Long: `States prints the table used to resolve the full state names in the
official edits feed to 2-letter postal codes. Rows whose state is not in
this table are dropped from the report with a warning, so this is the
first place to look when a jurisdiction is unexpectedly missing.`,
		Example: `  taxmap states                 # built-in or configured table
  taxmap states -o json         # machine-readable`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := app.StateTable()
			if err != nil {
				return err
			}

			entries := table.Entries()
			format := report.DetectFormat(app.OutputFormat())
			formatter := report.NewFormatter(format)

			if format == report.FormatTable {
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{e.Name, e.Code})
				}
				return formatter.Format(cmd.OutOrStdout(), report.Data{
					Headers: []string{"State", "Code"},
					Rows:    rows,
				})
			}

			return formatter.Format(cmd.OutOrStdout(), map[string]any{
				"version": table.Version(),
				"states":  entries,
			})
		},
	}
}
