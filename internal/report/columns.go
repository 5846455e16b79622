package report

import (
	"github.com/shopspring/decimal"

	"github.com/agentstation/taxmap/pkg/reconcile"
)

// Columns is the report column contract, in order. Downstream consumers
// key on these names; extend at the end only.
var Columns = []string{
	"city_state_key",
	"city",
	"state",
	"tax_code_apex",
	"tax_code_command",
	"old_rate",
	"new_rate",
	"rate_change",
	"action_required",
	"effective_date",
	"update_platform",
}

// dateLayout renders effective dates in human-facing outputs.
const dateLayout = "2006-01-02"

// RowCells renders one report record into the column contract.
// Rates carry a percent suffix in human-facing outputs; raw decimals
// stay available through the JSON/YAML formatter.
func RowCells(rec reconcile.ReportRecord) []string {
	effective := ""
	if !rec.EffectiveDate.IsZero() {
		effective = rec.EffectiveDate.Format(dateLayout)
	}

	return []string{
		rec.Key.String(),
		rec.City,
		rec.State,
		orDash(rec.TaxCodeAPEX),
		orDash(rec.TaxCodeCOMMAND),
		percent(rec.OldRate),
		percent(rec.NewRate),
		percent(rec.RateChange),
		rec.ActionRequired,
		effective,
		rec.UpdateTarget.String(),
	}
}

// ResultToTableData converts report rows to table format.
func ResultToTableData(result *reconcile.Result) Data {
	rows := make([][]string, 0, len(result.Rows))
	for _, rec := range result.Rows {
		rows = append(rows, RowCells(rec))
	}
	return Data{Headers: Columns, Rows: rows}
}

func percent(d decimal.Decimal) string {
	return d.String() + "%"
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
