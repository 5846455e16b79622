// Package reconcile implements the three-stage merge at the heart of the
// taxmap pipeline: a full outer join of the two platform jurisdiction lists,
// an inner join of that result against the official rate-edit feed, and a
// classification pass that derives the human-facing action per record.
//
// Every stage is a pure transformation over in-memory collections. The
// reconciler performs no I/O; extractors feed it already-normalized records
// and the report writer consumes its Result.
package reconcile

import (
	"sort"

	"github.com/agentstation/taxmap/pkg/errors"
	"github.com/agentstation/taxmap/pkg/jurisdiction"
	"github.com/agentstation/taxmap/pkg/taxdata"
)

// Reconciler runs the merge pipeline. Per-record problems (duplicate keys,
// classifier fallbacks) are collected as diagnostics rather than aborting
// the run; only structural problems (an empty input collection) are fatal.
type Reconciler struct {
	excluded    map[taxdata.ChangeType]struct{}
	diagnostics []taxdata.Diagnostic
}

// Option configures a Reconciler.
type Option func(*Reconciler) error

// New creates a new Reconciler with options. By default edits with change
// type "Expired" are excluded from the report.
func New(opts ...Option) (*Reconciler, error) {
	r := &Reconciler{
		excluded: map[taxdata.ChangeType]struct{}{
			taxdata.ChangeTypeExpired: {},
		},
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// WithExcludedChangeTypes replaces the set of change types filtered out of
// the report. The literals come from configuration so deployments can
// reconfigure without touching the join logic.
func WithExcludedChangeTypes(types ...taxdata.ChangeType) Option {
	return func(r *Reconciler) error {
		excluded := make(map[taxdata.ChangeType]struct{}, len(types))
		for _, t := range types {
			excluded[t] = struct{}{}
		}
		r.excluded = excluded
		return nil
	}
}

// Run executes the full pipeline and assembles the final result:
// outer join, cross-reference, classification, summary counts.
func (r *Reconciler) Run(apex, command []taxdata.SourceRecord, edits []taxdata.EditRecord) (*Result, error) {
	if len(edits) == 0 {
		return nil, errors.NewExtractError("EDITS", "", "no edit records supplied", errors.ErrEmptyInput)
	}

	reconciled, err := r.Reconcile(apex, command)
	if err != nil {
		return nil, err
	}

	joined := r.Join(reconciled, edits)
	actionable := r.FilterActionable(joined)

	classified := make([]ReportRecord, 0, len(actionable))
	for _, rec := range actionable {
		c := Classify(rec)
		if c.ActionRequired == ActionNoChange {
			// Unreachable after FilterActionable; recorded if it ever happens.
			r.warn(taxdata.NewDiagnostic("classify", "", "", 0,
				errors.NewValidationError("rate_change", rec.RateChange.String(),
					"zero rate change survived the actionable filter for key "+rec.Key.String())))
			continue
		}
		classified = append(classified, c)
	}

	counts := Counts{
		TotalAPEX:      len(apex),
		TotalCOMMAND:   len(command),
		TotalEdits:     len(edits),
		AfterOuterJoin: len(reconciled),
		AfterInnerJoin: len(joined),
		AfterFilter:    len(classified),
	}

	return r.Assemble(classified, counts), nil
}

// Reconcile performs the full outer join of the two platform sources on the
// jurisdiction key and classifies each result by presence. Output is sorted
// by key so identical inputs always produce identical, diff-friendly output.
//
// Duplicate keys within one side follow a first-occurrence-wins policy; each
// collision is recorded as a warning naming both raw city/state inputs.
func (r *Reconciler) Reconcile(apex, command []taxdata.SourceRecord) ([]ReconciledRecord, error) {
	if len(apex) == 0 {
		return nil, errors.NewExtractError(taxdata.PlatformAPEX.String(), "", "no source records supplied", errors.ErrEmptyInput)
	}
	if len(command) == 0 {
		return nil, errors.NewExtractError(taxdata.PlatformCOMMAND.String(), "", "no source records supplied", errors.ErrEmptyInput)
	}

	apexByKey := r.index(apex, taxdata.PlatformAPEX)
	commandByKey := r.index(command, taxdata.PlatformCOMMAND)

	keys := make([]jurisdiction.Key, 0, len(apexByKey)+len(commandByKey))
	for key := range apexByKey {
		keys = append(keys, key)
	}
	for key := range commandByKey {
		if _, ok := apexByKey[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	reconciled := make([]ReconciledRecord, 0, len(keys))
	for _, key := range keys {
		a, inAPEX := apexByKey[key]
		c, inCOMMAND := commandByKey[key]

		rec := ReconciledRecord{Key: key}
		switch {
		case inAPEX && inCOMMAND:
			rec.City, rec.State = a.City, a.State
			rec.TaxCodeAPEX = ptr(a.TaxCode)
			rec.TaxCodeCOMMAND = ptr(c.TaxCode)
			rec.Presence = PresenceBoth
		case inAPEX:
			rec.City, rec.State = a.City, a.State
			rec.TaxCodeAPEX = ptr(a.TaxCode)
			rec.Presence = PresenceAPEXOnly
		default:
			rec.City, rec.State = c.City, c.State
			rec.TaxCodeCOMMAND = ptr(c.TaxCode)
			rec.Presence = PresenceCOMMANDOnly
		}
		reconciled = append(reconciled, rec)
	}

	return reconciled, nil
}

// Join performs the inner join of reconciled platform records against the
// edit feed. Records with no matching edit are dropped: absence of an edit
// means no action is currently required for that jurisdiction, even if it
// is missing from one platform.
//
// When multiple edits share a key the one with the latest effective date
// wins; ties break to the larger absolute rate change, then first-seen.
func (r *Reconciler) Join(platform []ReconciledRecord, edits []taxdata.EditRecord) []ReportRecord {
	latest := make(map[jurisdiction.Key]taxdata.EditRecord, len(edits))
	for _, edit := range edits {
		held, ok := latest[edit.Key]
		if !ok || supersedes(edit, held) {
			latest[edit.Key] = edit
		}
	}

	joined := make([]ReportRecord, 0, len(platform))
	for _, rec := range platform {
		edit, ok := latest[rec.Key]
		if !ok {
			continue
		}
		joined = append(joined, ReportRecord{
			ReconciledRecord: rec,
			OldRate:          edit.OldRate,
			NewRate:          edit.NewRate,
			RateChange:       edit.RateChange,
			EffectiveDate:    edit.EffectiveDate,
			ChangeType:       edit.ChangeType,
		})
	}

	return joined
}

// FilterActionable keeps only records with a pending actionable change:
// a nonzero rate movement whose change type is not excluded. Dropped
// records are not errors. The zero check is exact decimal comparison,
// never a float epsilon.
func (r *Reconciler) FilterActionable(records []ReportRecord) []ReportRecord {
	kept := make([]ReportRecord, 0, len(records))
	for _, rec := range records {
		if rec.RateChange.IsZero() {
			continue
		}
		if _, excluded := r.excluded[rec.ChangeType]; excluded {
			continue
		}
		kept = append(kept, rec)
	}
	return kept
}

// CrossReference composes Join and FilterActionable: the inner join against
// the edit feed with the business filter applied.
func (r *Reconciler) CrossReference(platform []ReconciledRecord, edits []taxdata.EditRecord) []ReportRecord {
	return r.FilterActionable(r.Join(platform, edits))
}

// Diagnostics returns the per-record warnings collected so far.
func (r *Reconciler) Diagnostics() []taxdata.Diagnostic {
	out := make([]taxdata.Diagnostic, len(r.diagnostics))
	copy(out, r.diagnostics)
	return out
}

// index builds the key→record mapping for one platform side.
// First occurrence wins on collision; the collision is recorded.
func (r *Reconciler) index(records []taxdata.SourceRecord, platform taxdata.Platform) map[jurisdiction.Key]taxdata.SourceRecord {
	byKey := make(map[jurisdiction.Key]taxdata.SourceRecord, len(records))
	for _, rec := range records {
		if first, ok := byKey[rec.Key]; ok {
			r.warn(taxdata.NewDiagnostic("reconcile", platform.String(), "", 0,
				errors.NewDuplicateKeyError(
					platform.String(),
					rec.Key.String(),
					first.City+", "+first.State,
					rec.City+", "+rec.State,
				)))
			continue
		}
		byKey[rec.Key] = rec
	}
	return byKey
}

func (r *Reconciler) warn(d taxdata.Diagnostic) {
	r.diagnostics = append(r.diagnostics, d)
}

// supersedes reports whether candidate should replace held as the edit of
// record for a key: later effective date wins, then larger absolute rate
// change, otherwise the held (first-seen) edit stays.
func supersedes(candidate, held taxdata.EditRecord) bool {
	if candidate.EffectiveDate.After(held.EffectiveDate) {
		return true
	}
	if candidate.EffectiveDate.Before(held.EffectiveDate) {
		return false
	}
	return candidate.RateChange.Abs().GreaterThan(held.RateChange.Abs())
}

func ptr(s string) *string {
	return &s
}
