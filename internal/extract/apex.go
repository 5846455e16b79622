package extract

import (
	"github.com/agentstation/taxmap/pkg/errors"
	"github.com/agentstation/taxmap/pkg/jurisdiction"
	"github.com/agentstation/taxmap/pkg/taxdata"
)

// APEX marker cells delimiting each record block.
const (
	apexBlockStart = "TaxCode"
	apexBlockRate  = "Total Rate"
)

// apexState is the block parser's position within the sheet.
type apexState int

const (
	apexAwaitingBlock apexState = iota // before any block, or after one closed
	apexInBlock                        // header row seen, awaiting the rate row
)

// apexBlock is one record under construction.
type apexBlock struct {
	taxCode  string
	location string
	row      int
}

// APEX extracts source records from an APEX tax code report. The sheet is
// block-delimited: a row whose first cell is "TaxCode" opens a block with
// the tax code in column B and the "CITY, ST" location in column C, and a
// row whose first cell is "Total Rate" closes it with the rate in column B.
//
// The parser is an explicit two-state machine so malformed files (a block
// missing its rate row, back-to-back header rows, a trailing open block)
// degrade into diagnostics instead of corrupting neighboring blocks.
func APEX(path string) ([]taxdata.SourceRecord, []taxdata.Diagnostic, error) {
	rows, err := readSheet(path)
	if err != nil {
		return nil, nil, errors.WrapExtract(taxdata.PlatformAPEX.String(), path, err)
	}

	var (
		records []taxdata.SourceRecord
		diags   []taxdata.Diagnostic
		state   = apexAwaitingBlock
		block   apexBlock
	)

	for i, row := range rows {
		rowNum := i + 1

		switch cell(row, 0) {
		case apexBlockStart:
			if state == apexInBlock {
				// Previous block never saw its rate row.
				diags = append(diags, diag(taxdata.PlatformAPEX.String(), path, block.row,
					errors.NewValidationError("total_rate", block.taxCode, "block has no Total Rate row")))
			}
			block = apexBlock{
				taxCode:  cell(row, 1),
				location: cell(row, 2),
				row:      rowNum,
			}
			state = apexInBlock

		case apexBlockRate:
			if state != apexInBlock {
				diags = append(diags, diag(taxdata.PlatformAPEX.String(), path, rowNum,
					errors.NewValidationError("total_rate", cell(row, 1), "Total Rate row outside any block")))
				continue
			}

			rec, err := finishAPEXBlock(block, cell(row, 1))
			if err != nil {
				diags = append(diags, diag(taxdata.PlatformAPEX.String(), path, block.row, err))
			} else {
				records = append(records, rec)
			}
			state = apexAwaitingBlock
		}
	}

	if state == apexInBlock {
		diags = append(diags, diag(taxdata.PlatformAPEX.String(), path, block.row,
			errors.NewValidationError("total_rate", block.taxCode, "block has no Total Rate row")))
	}

	if len(records) == 0 {
		return nil, diags, errors.NewExtractError(taxdata.PlatformAPEX.String(), path,
			"no usable records extracted", errors.ErrEmptyInput)
	}

	return records, diags, nil
}

// finishAPEXBlock validates a completed block and builds its record.
func finishAPEXBlock(block apexBlock, rateCell string) (taxdata.SourceRecord, error) {
	city, state, err := jurisdiction.SplitLocation(block.location)
	if err != nil {
		return taxdata.SourceRecord{}, err
	}

	key, err := jurisdiction.NormalizeKey(city, state)
	if err != nil {
		return taxdata.SourceRecord{}, err
	}

	rate, err := parseRate(rateCell)
	if err != nil {
		return taxdata.SourceRecord{}, errors.NewValidationError("total_rate", rateCell, err.Error())
	}

	return taxdata.SourceRecord{
		Key:       key,
		City:      city,
		State:     state,
		TaxCode:   block.taxCode,
		TotalRate: rate,
		Platform:  taxdata.PlatformAPEX,
	}, nil
}
