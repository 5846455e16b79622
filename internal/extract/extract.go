// Package extract implements the three upstream extractors that turn raw
// spreadsheet exports into normalized record collections for the reconciler.
// Each extractor owns the idiosyncrasies of its file format (block-delimited
// layouts, "City, ST" strings, full state names) so the core never sees them.
//
// Per-row problems become diagnostics and the row is skipped; a file that
// yields no usable records at all is a structural error and fails the run.
package extract

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/agentstation/taxmap/pkg/errors"
	"github.com/agentstation/taxmap/pkg/taxdata"
)

// stage name recorded on every extractor diagnostic.
const stage = "extract"

// dateLayouts are tried in order when parsing effective dates. Cell values
// arrive as display strings from excelize, so both ISO and US spreadsheet
// formats show up in practice.
var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"01-02-06",
	time.RFC3339,
	"Jan 2, 2006",
}

// readSheet opens an .xlsx file and returns all rows of its first sheet.
func readSheet(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.WrapParse("xlsx", path, 0, err)
	}
	return rows, nil
}

// cell returns the trimmed value of column i, tolerating the short rows
// excelize produces when trailing cells are empty.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// headerIndex maps lowercased header names to column positions.
func headerIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return index
}

// parseRate parses a tax rate cell into an exact decimal. An optional
// trailing percent sign is tolerated; an empty or non-numeric cell is an
// error so the record can be dropped and reported rather than defaulted.
func parseRate(value string) (decimal.Decimal, error) {
	v := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "%"))
	if v == "" {
		return decimal.Zero, errors.New("missing rate value")
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// parseDate parses an effective date cell, trying the known layouts.
func parseDate(value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, errors.New("missing date value")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognized date format " + v)
}

// diag builds an extractor diagnostic with source identity.
func diag(source, path string, row int, err error) taxdata.Diagnostic {
	return taxdata.NewDiagnostic(stage, source, path, row, err)
}
