package extract

import (
	"github.com/agentstation/taxmap/pkg/errors"
	"github.com/agentstation/taxmap/pkg/jurisdiction"
	"github.com/agentstation/taxmap/pkg/taxdata"
)

// Edits feed column headers.
const (
	editsSource = "EDITS"

	editsColState            = "state"
	editsColJurisdiction     = "jurisdiction name"
	editsColOldRate          = "old rate"
	editsColNewRate          = "new rate"
	editsColEffectiveDate    = "effective date"
	editsColChangeType       = "change type"
	editsColJurisdictionType = "jurisdiction type"
)

// Edits extracts official rate-change records from the regulatory feed.
// States arrive as full names and are resolved against the injected table;
// jurisdiction names arrive as "Name (Type)" strings. RateChange is computed
// here, once, in exact decimal arithmetic.
//
// A row with an unknown state, unparseable jurisdiction, or malformed rate
// is dropped with a diagnostic carrying the row number; it never reaches
// the reconciler.
func Edits(path string, table *jurisdiction.Table) ([]taxdata.EditRecord, []taxdata.Diagnostic, error) {
	rows, err := readSheet(path)
	if err != nil {
		return nil, nil, errors.WrapExtract(editsSource, path, err)
	}
	if len(rows) == 0 {
		return nil, nil, errors.NewExtractError(editsSource, path, "sheet is empty", errors.ErrEmptyInput)
	}

	index := headerIndex(rows[0])
	for _, required := range []string{editsColState, editsColJurisdiction, editsColOldRate, editsColNewRate} {
		if _, ok := index[required]; !ok {
			return nil, nil, errors.NewExtractError(editsSource, path,
				"missing required header column "+required, nil)
		}
	}

	var (
		records []taxdata.EditRecord
		diags   []taxdata.Diagnostic
	)

	for i, row := range rows[1:] {
		rowNum := i + 2

		stateName := cell(row, index[editsColState])
		jurisdictionName := cell(row, index[editsColJurisdiction])
		if stateName == "" && jurisdictionName == "" {
			continue // blank row
		}

		stateCode, err := table.Code(stateName)
		if err != nil {
			diags = append(diags, diag(editsSource, path, rowNum, err))
			continue
		}

		name, jtype := jurisdiction.ParseJurisdictionName(jurisdictionName)
		key, err := jurisdiction.NormalizeKey(name, stateCode)
		if err != nil {
			diags = append(diags, diag(editsSource, path, rowNum, err))
			continue
		}

		oldRate, err := parseRate(cell(row, index[editsColOldRate]))
		if err != nil {
			diags = append(diags, diag(editsSource, path, rowNum,
				errors.NewValidationError("old_rate", cell(row, index[editsColOldRate]), err.Error())))
			continue
		}
		newRate, err := parseRate(cell(row, index[editsColNewRate]))
		if err != nil {
			diags = append(diags, diag(editsSource, path, rowNum,
				errors.NewValidationError("new_rate", cell(row, index[editsColNewRate]), err.Error())))
			continue
		}

		record := taxdata.EditRecord{
			Key:              key,
			State:            stateCode,
			JurisdictionName: name,
			JurisdictionType: jtype,
			OldRate:          oldRate,
			NewRate:          newRate,
			RateChange:       newRate.Sub(oldRate),
			ChangeType:       taxdata.ChangeType(cell(row, index[editsColChangeType])),
		}

		if col, ok := index[editsColJurisdictionType]; ok && record.JurisdictionType == "" {
			record.JurisdictionType = cell(row, col)
		}

		if col, ok := index[editsColEffectiveDate]; ok {
			if effective, err := parseDate(cell(row, col)); err != nil {
				// Keep the record; the date only matters for tie-breaking
				// duplicate edits, and dropping a real rate change over a
				// bad date would hide an actionable update.
				diags = append(diags, diag(editsSource, path, rowNum,
					errors.NewValidationError("effective_date", cell(row, col), err.Error())))
			} else {
				record.EffectiveDate = effective
			}
		}

		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, diags, errors.NewExtractError(editsSource, path,
			"no usable records extracted", errors.ErrEmptyInput)
	}

	return records, diags, nil
}
