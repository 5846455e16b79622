package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/agentstation/taxmap/pkg/errors"
	"github.com/agentstation/taxmap/pkg/reconcile"
)

// Excel sheet names for the exported workbook.
const (
	sheetUpdates = "Updates Required"
	sheetSummary = "Summary"
)

// WriteCSV exports the report rows to a CSV file using the column contract.
func WriteCSV(result *reconcile.Result, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.WrapIO("create", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		return errors.WrapIO("write", path, err)
	}
	for _, rec := range result.Rows {
		if err := w.Write(RowCells(rec)); err != nil {
			return errors.WrapIO("write", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return f.Close()
}

// WriteExcel exports the report to an .xlsx workbook with an updates sheet
// and a summary sheet, mirroring the CSV column contract.
func WriteExcel(result *reconcile.Result, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	updates := f.GetSheetName(0)
	if err := f.SetSheetName(updates, sheetUpdates); err != nil {
		return errors.WrapIO("write", path, err)
	}

	if len(result.Rows) == 0 {
		if err := setRow(f, sheetUpdates, 1, []string{"No updates required"}); err != nil {
			return errors.WrapIO("write", path, err)
		}
	} else {
		if err := setRow(f, sheetUpdates, 1, Columns); err != nil {
			return errors.WrapIO("write", path, err)
		}
		for i, rec := range result.Rows {
			if err := setRow(f, sheetUpdates, i+2, RowCells(rec)); err != nil {
				return errors.WrapIO("write", path, err)
			}
		}
	}

	if _, err := f.NewSheet(sheetSummary); err != nil {
		return errors.WrapIO("write", path, err)
	}
	if err := writeSummarySheet(f, result); err != nil {
		return errors.WrapIO("write", path, err)
	}

	if err := f.SaveAs(path); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

// writeSummarySheet fills the Summary sheet with metric/value pairs.
func writeSummarySheet(f *excelize.File, result *reconcile.Result) error {
	s := result.Summary
	rows := [][]string{
		{"Metric", "Value"},
		{"APEX records", fmt.Sprint(s.TotalAPEX)},
		{"COMMAND records", fmt.Sprint(s.TotalCOMMAND)},
		{"Edit records", fmt.Sprint(s.TotalEdits)},
		{"After outer join", fmt.Sprint(s.AfterOuterJoin)},
		{"After inner join", fmt.Sprint(s.AfterInnerJoin)},
		{"Updates required", fmt.Sprint(s.AfterFilter)},
		{"Records dropped", fmt.Sprint(s.RecordsDropped)},
		{"Report generated", s.GeneratedAt.Format("2006-01-02 15:04:05")},
	}

	for _, target := range sortedKeys(s.ByTarget) {
		rows = append(rows, []string{"Platform: " + target.String(), fmt.Sprint(s.ByTarget[target])})
	}
	for _, action := range sortedKeys(s.ByAction) {
		rows = append(rows, []string{"Action: " + action, fmt.Sprint(s.ByAction[action])})
	}

	for i, row := range rows {
		if err := setRow(f, sheetSummary, i+1, row); err != nil {
			return err
		}
	}
	return nil
}

// WriteConsole renders the report and its summary to a writer, normally
// stdout. A completed run always reports how many input records were
// dropped and why, so silent data loss never occurs.
func WriteConsole(w io.Writer, result *reconcile.Result) error {
	s := result.Summary

	fmt.Fprintln(w, "Tax update report")
	fmt.Fprintf(w, "Generated: %s\n\n", s.GeneratedAt.Format("2006-01-02 15:04:05"))

	fmt.Fprintf(w, "APEX records:      %d\n", s.TotalAPEX)
	fmt.Fprintf(w, "COMMAND records:   %d\n", s.TotalCOMMAND)
	fmt.Fprintf(w, "Edit records:      %d\n", s.TotalEdits)
	fmt.Fprintf(w, "After outer join:  %d\n", s.AfterOuterJoin)
	fmt.Fprintf(w, "After inner join:  %d\n", s.AfterInnerJoin)
	fmt.Fprintf(w, "Updates required:  %d\n", s.AfterFilter)

	if len(s.ByTarget) > 0 {
		fmt.Fprintln(w, "\nBy platform:")
		for _, target := range sortedKeys(s.ByTarget) {
			fmt.Fprintf(w, "  %-16s %d\n", target.String(), s.ByTarget[target])
		}
	}
	if len(s.ByAction) > 0 {
		fmt.Fprintln(w, "\nBy action:")
		for _, action := range sortedKeys(s.ByAction) {
			fmt.Fprintf(w, "  %-16s %d\n", action, s.ByAction[action])
		}
	}

	if len(result.Rows) > 0 {
		fmt.Fprintln(w)
		formatter := &TableFormatter{}
		if err := formatter.Format(w, ResultToTableData(result)); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(w, "\nNo updates required.")
	}

	if len(result.Diagnostics) > 0 {
		fmt.Fprintf(w, "\n%d record(s) dropped during the run:\n", len(result.Diagnostics))
		for _, d := range result.Diagnostics {
			where := d.Source
			if d.Row > 0 {
				where = fmt.Sprintf("%s row %d", d.Source, d.Row)
			}
			fmt.Fprintf(w, "  [%s] %s: %s\n", d.Stage, where, d.Detail)
		}
	}

	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []string) error {
	cellName, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return f.SetSheetRow(sheet, cellName, &cells)
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
