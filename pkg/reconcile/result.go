package reconcile

import (
	"sort"
	"time"

	"github.com/agentstation/taxmap/pkg/taxdata"
)

// Counts carries the size of each pipeline stage's actual output. The
// report writer prints these so a reader can see where records fell away.
type Counts struct {
	TotalAPEX      int `json:"total_apex" yaml:"total_apex"`
	TotalCOMMAND   int `json:"total_command" yaml:"total_command"`
	TotalEdits     int `json:"total_edits" yaml:"total_edits"`
	AfterOuterJoin int `json:"after_outer_join" yaml:"after_outer_join"`
	AfterInnerJoin int `json:"after_inner_join" yaml:"after_inner_join"`
	AfterFilter    int `json:"after_filter" yaml:"after_filter"`
}

// Summary aggregates counts and breakdowns for the final report.
type Summary struct {
	Counts `yaml:",inline"`

	ByTarget map[UpdateTarget]int `json:"by_platform,omitempty" yaml:"by_platform,omitempty"`
	ByAction map[string]int       `json:"by_action,omitempty" yaml:"by_action,omitempty"`
	ByState  map[string]int       `json:"by_state,omitempty" yaml:"by_state,omitempty"`

	RecordsDropped int       `json:"records_dropped" yaml:"records_dropped"`
	GeneratedAt    time.Time `json:"generated_at" yaml:"generated_at"`
}

// Result is the terminal output of a pipeline run, handed to the external
// report writer. Rows are sorted by state then city for presentation.
type Result struct {
	Rows        []ReportRecord       `json:"rows" yaml:"rows"`
	Summary     Summary              `json:"summary" yaml:"summary"`
	Diagnostics []taxdata.Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// Assemble shapes the final record collection and summary for the report
// writer. Counts are taken as measured by the caller; breakdowns are
// computed here from the surviving rows.
func (r *Reconciler) Assemble(rows []ReportRecord, counts Counts) *Result {
	return NewResultBuilder().
		WithRows(rows).
		WithCounts(counts).
		WithDiagnostics(r.Diagnostics()).
		Build()
}

// ResultBuilder assembles a Result step by step.
type ResultBuilder struct {
	result *Result
}

// NewResultBuilder creates a new result builder.
func NewResultBuilder() *ResultBuilder {
	return &ResultBuilder{
		result: &Result{
			Summary: Summary{GeneratedAt: time.Now()},
		},
	}
}

// WithRows sets the report rows, sorted by state then city.
func (b *ResultBuilder) WithRows(rows []ReportRecord) *ResultBuilder {
	sorted := make([]ReportRecord, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].State != sorted[j].State {
			return sorted[i].State < sorted[j].State
		}
		return sorted[i].City < sorted[j].City
	})
	b.result.Rows = sorted
	return b
}

// WithCounts sets the per-stage counts.
func (b *ResultBuilder) WithCounts(counts Counts) *ResultBuilder {
	b.result.Summary.Counts = counts
	return b
}

// WithDiagnostics attaches the run's per-record warnings.
func (b *ResultBuilder) WithDiagnostics(diags []taxdata.Diagnostic) *ResultBuilder {
	b.result.Diagnostics = diags
	b.result.Summary.RecordsDropped = len(diags)
	return b
}

// Build computes the row breakdowns and returns the assembled result.
func (b *ResultBuilder) Build() *Result {
	if len(b.result.Rows) > 0 {
		byTarget := make(map[UpdateTarget]int)
		byAction := make(map[string]int)
		byState := make(map[string]int)
		for _, row := range b.result.Rows {
			byTarget[row.UpdateTarget]++
			byAction[row.ActionRequired]++
			byState[row.State]++
		}
		b.result.Summary.ByTarget = byTarget
		b.result.Summary.ByAction = byAction
		b.result.Summary.ByState = byState
	}
	return b.result
}
