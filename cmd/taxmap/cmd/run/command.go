// Package run implements the taxmap run command: the full extract,
// reconcile, and report pipeline over the two platform exports and the
// official edits workbook.
package run

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agentstation/taxmap/internal/extract"
	"github.com/agentstation/taxmap/internal/report"
	"github.com/agentstation/taxmap/pkg/errors"
	"github.com/agentstation/taxmap/pkg/jurisdiction"
	"github.com/agentstation/taxmap/pkg/reconcile"
	"github.com/agentstation/taxmap/pkg/taxdata"
)

// AppContext defines the interface the run command needs from the app.
// This allows for better testability and decoupling from the full app.
type AppContext interface {
	Logger() *zerolog.Logger
	StateTable() (*jurisdiction.Table, error)
	OutputFormat() string
}

// Defaults carries config-derived flag defaults from the app.
type Defaults struct {
	APEXFile            string
	CommandFile         string
	EditsFile           string
	OutputDir           string
	ExcludedChangeTypes []string
}

// NewCommand creates the run command with app dependencies.
func NewCommand(app AppContext, defaults Defaults) *cobra.Command {
	var (
		apexFile    string
		commandFile string
		editsFile   string
		outputDir   string
		excluded    []string
		noExport    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile platform jurisdictions against the official edits",
		Long: `Run executes the full reconciliation pipeline:

  1. Extract jurisdiction records from the APEX and COMMAND exports
  2. Full outer join of the two platforms on the city/state key
  3. Inner join against the official rate-change feed
  4. Classify each actionable change per platform

The report is printed to the console and, unless --no-export is set,
written as CSV and Excel into the output directory.`,
		Example: `  taxmap run --apex apex.xlsx --command command.xlsx --edits edits.xlsx
  taxmap run --apex apex.xlsx --command command.xlsx --edits edits.xlsx --out reports/
  taxmap run -o json --no-export --apex apex.xlsx --command command.xlsx --edits edits.xlsx`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for flag, value := range map[string]string{
				"apex":    apexFile,
				"command": commandFile,
				"edits":   editsFile,
			} {
				if value == "" {
					return errors.NewConfigError(flag, "input file not set (flag --"+flag+" or config)", nil)
				}
			}

			table, err := app.StateTable()
			if err != nil {
				return err
			}

			result, err := execute(app.Logger(), table, apexFile, commandFile, editsFile, excluded)
			if err != nil {
				return err
			}

			if err := render(cmd, app.OutputFormat(), result); err != nil {
				return err
			}

			if noExport {
				return nil
			}
			return export(app.Logger(), result, outputDir)
		},
	}

	cmd.Flags().StringVar(&apexFile, "apex", defaults.APEXFile, "APEX jurisdiction export (.xlsx)")
	cmd.Flags().StringVar(&commandFile, "command", defaults.CommandFile, "COMMAND jurisdiction export (.xlsx)")
	cmd.Flags().StringVar(&editsFile, "edits", defaults.EditsFile, "official rate-change workbook (.xlsx)")
	cmd.Flags().StringVar(&outputDir, "out", defaults.OutputDir, "directory for CSV and Excel exports (default: current directory)")
	cmd.Flags().StringSliceVar(&excluded, "exclude", defaults.ExcludedChangeTypes, "change types filtered out of the report")
	cmd.Flags().BoolVar(&noExport, "no-export", false, "skip CSV and Excel exports")

	return cmd
}

// execute runs extraction and reconciliation, merging the extractors'
// diagnostics into the result so the report accounts for every dropped row.
func execute(logger *zerolog.Logger, table *jurisdiction.Table, apexFile, commandFile, editsFile string, excluded []string) (*reconcile.Result, error) {
	apexRecords, apexDiags, err := extract.APEX(apexFile)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("records", len(apexRecords)).Str("file", apexFile).Msg("extracted APEX jurisdictions")

	commandRecords, commandDiags, err := extract.Command(commandFile)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("records", len(commandRecords)).Str("file", commandFile).Msg("extracted COMMAND jurisdictions")

	editRecords, editDiags, err := extract.Edits(editsFile, table)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("records", len(editRecords)).Str("file", editsFile).Msg("extracted official edits")

	excludedTypes := make([]taxdata.ChangeType, 0, len(excluded))
	for _, t := range excluded {
		excludedTypes = append(excludedTypes, taxdata.ChangeType(t))
	}

	reconciler, err := reconcile.New(reconcile.WithExcludedChangeTypes(excludedTypes...))
	if err != nil {
		return nil, err
	}

	result, err := reconciler.Run(apexRecords, commandRecords, editRecords)
	if err != nil {
		return nil, err
	}

	// Extraction warnings belong in the same ledger as reconciliation
	// warnings; the report shows one complete dropped-record account.
	diags := make([]taxdata.Diagnostic, 0, len(apexDiags)+len(commandDiags)+len(editDiags)+len(result.Diagnostics))
	diags = append(diags, apexDiags...)
	diags = append(diags, commandDiags...)
	diags = append(diags, editDiags...)
	diags = append(diags, result.Diagnostics...)
	result.Diagnostics = diags
	result.Summary.RecordsDropped = len(diags)

	for _, d := range diags {
		logger.Warn().
			Str("stage", d.Stage).
			Str("source", d.Source).
			Int("row", d.Row).
			Msg(d.Detail)
	}

	logger.Info().
		Int("updates", result.Summary.AfterFilter).
		Int("dropped", result.Summary.RecordsDropped).
		Msg("reconciliation complete")

	return result, nil
}

// render prints the result to stdout in the requested format. The table
// format gets the full console report; json/yaml get the raw result.
func render(cmd *cobra.Command, explicitFormat string, result *reconcile.Result) error {
	format := report.DetectFormat(explicitFormat)
	if format == report.FormatTable {
		return report.WriteConsole(cmd.OutOrStdout(), result)
	}

	formatter := report.NewFormatter(format)
	return formatter.Format(cmd.OutOrStdout(), result)
}

// export writes the CSV and Excel reports into the output directory.
func export(logger *zerolog.Logger, result *reconcile.Result, outputDir string) error {
	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return errors.WrapIO("create", outputDir, err)
	}

	csvPath := filepath.Join(outputDir, "tax_updates.csv")
	if err := report.WriteCSV(result, csvPath); err != nil {
		return err
	}
	logger.Info().Str("file", csvPath).Msg("wrote CSV report")

	excelPath := filepath.Join(outputDir, "tax_updates.xlsx")
	if err := report.WriteExcel(result, excelPath); err != nil {
		return err
	}
	logger.Info().Str("file", excelPath).Msg("wrote Excel report")

	return nil
}
