package extract

import (
	"github.com/shopspring/decimal"

	"github.com/agentstation/taxmap/pkg/errors"
	"github.com/agentstation/taxmap/pkg/jurisdiction"
	"github.com/agentstation/taxmap/pkg/taxdata"
)

// COMMAND export column headers.
const (
	commandColTaxCode     = "tax code"
	commandColDescription = "description"
)

// Command extracts source records from a COMMAND tax code report. The sheet
// is flat: a header row naming "Tax code" and "Description" columns, then
// one jurisdiction per row with the "CITY, ST" location in the description.
// COMMAND exports carry no rate column; rates come from the edits feed.
func Command(path string) ([]taxdata.SourceRecord, []taxdata.Diagnostic, error) {
	rows, err := readSheet(path)
	if err != nil {
		return nil, nil, errors.WrapExtract(taxdata.PlatformCOMMAND.String(), path, err)
	}
	if len(rows) == 0 {
		return nil, nil, errors.NewExtractError(taxdata.PlatformCOMMAND.String(), path,
			"sheet is empty", errors.ErrEmptyInput)
	}

	index := headerIndex(rows[0])
	taxCodeCol, okCode := index[commandColTaxCode]
	descCol, okDesc := index[commandColDescription]
	if !okCode || !okDesc {
		return nil, nil, errors.NewExtractError(taxdata.PlatformCOMMAND.String(), path,
			"missing Tax code or Description header column", nil)
	}

	var (
		records []taxdata.SourceRecord
		diags   []taxdata.Diagnostic
	)

	for i, row := range rows[1:] {
		rowNum := i + 2

		taxCode := cell(row, taxCodeCol)
		description := cell(row, descCol)
		if taxCode == "" && description == "" {
			continue // blank row
		}

		city, state, err := jurisdiction.SplitLocation(description)
		if err != nil {
			diags = append(diags, diag(taxdata.PlatformCOMMAND.String(), path, rowNum, err))
			continue
		}

		key, err := jurisdiction.NormalizeKey(city, state)
		if err != nil {
			diags = append(diags, diag(taxdata.PlatformCOMMAND.String(), path, rowNum, err))
			continue
		}

		records = append(records, taxdata.SourceRecord{
			Key:       key,
			City:      city,
			State:     state,
			TaxCode:   taxCode,
			TotalRate: decimal.Zero,
			Platform:  taxdata.PlatformCOMMAND,
		})
	}

	if len(records) == 0 {
		return nil, diags, errors.NewExtractError(taxdata.PlatformCOMMAND.String(), path,
			"no usable records extracted", errors.ErrEmptyInput)
	}

	return records, diags, nil
}
