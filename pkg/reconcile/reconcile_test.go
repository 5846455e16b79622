package reconcile_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/taxmap/pkg/errors"
	"github.com/agentstation/taxmap/pkg/jurisdiction"
	"github.com/agentstation/taxmap/pkg/reconcile"
	"github.com/agentstation/taxmap/pkg/taxdata"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sourceRecord(t *testing.T, platform taxdata.Platform, city, state, taxCode, rate string) taxdata.SourceRecord {
	t.Helper()
	key, err := jurisdiction.NormalizeKey(city, state)
	require.NoError(t, err)
	return taxdata.SourceRecord{
		Key:       key,
		City:      city,
		State:     state,
		TaxCode:   taxCode,
		TotalRate: dec(rate),
		Platform:  platform,
	}
}

func editRecord(t *testing.T, city, state, oldRate, newRate string, effective time.Time, changeType taxdata.ChangeType) taxdata.EditRecord {
	t.Helper()
	key, err := jurisdiction.NormalizeKey(city, state)
	require.NoError(t, err)
	o, n := dec(oldRate), dec(newRate)
	return taxdata.EditRecord{
		Key:              key,
		State:            state,
		JurisdictionName: city,
		OldRate:          o,
		NewRate:          n,
		RateChange:       n.Sub(o),
		EffectiveDate:    effective,
		ChangeType:       changeType,
	}
}

func newReconciler(t *testing.T, opts ...reconcile.Option) *reconcile.Reconciler {
	t.Helper()
	r, err := reconcile.New(opts...)
	require.NoError(t, err)
	return r
}

func TestReconcileOuterJoin(t *testing.T) {
	r := newReconciler(t)

	apex := []taxdata.SourceRecord{
		sourceRecord(t, taxdata.PlatformAPEX, "ADDISON", "TX", "ADD", "8.25"),
		sourceRecord(t, taxdata.PlatformAPEX, "AUSTIN", "TX", "AUS", "8.25"),
	}
	command := []taxdata.SourceRecord{
		sourceRecord(t, taxdata.PlatformCOMMAND, "AUSTIN", "TX", "AUS-C", "8.25"),
		sourceRecord(t, taxdata.PlatformCOMMAND, "BOULDER", "CO", "BLD", "4.50"),
	}

	reconciled, err := r.Reconcile(apex, command)
	require.NoError(t, err)

	// Cardinality: |keys(A) ∪ keys(B)| with no duplicates in either side.
	require.Len(t, reconciled, 3)

	byKey := make(map[jurisdiction.Key]reconcile.ReconciledRecord)
	for _, rec := range reconciled {
		_, seen := byKey[rec.Key]
		assert.False(t, seen, "key %s appears more than once", rec.Key)
		byKey[rec.Key] = rec
	}

	addison := byKey["ADDISON_TX"]
	assert.Equal(t, reconcile.PresenceAPEXOnly, addison.Presence)
	require.NotNil(t, addison.TaxCodeAPEX)
	assert.Equal(t, "ADD", *addison.TaxCodeAPEX)
	assert.Nil(t, addison.TaxCodeCOMMAND)

	austin := byKey["AUSTIN_TX"]
	assert.Equal(t, reconcile.PresenceBoth, austin.Presence)
	require.NotNil(t, austin.TaxCodeAPEX)
	require.NotNil(t, austin.TaxCodeCOMMAND)
	assert.Equal(t, "AUS", *austin.TaxCodeAPEX)
	assert.Equal(t, "AUS-C", *austin.TaxCodeCOMMAND)

	boulder := byKey["BOULDER_CO"]
	assert.Equal(t, reconcile.PresenceCOMMANDOnly, boulder.Presence)
	assert.Nil(t, boulder.TaxCodeAPEX)
	require.NotNil(t, boulder.TaxCodeCOMMAND)
	assert.Equal(t, "BLD", *boulder.TaxCodeCOMMAND)
}

func TestReconcileOutputDeterministic(t *testing.T) {
	apex := []taxdata.SourceRecord{
		sourceRecord(t, taxdata.PlatformAPEX, "HOUSTON", "TX", "HOU", "8.25"),
		sourceRecord(t, taxdata.PlatformAPEX, "ADDISON", "TX", "ADD", "8.25"),
	}
	command := []taxdata.SourceRecord{
		sourceRecord(t, taxdata.PlatformCOMMAND, "BOULDER", "CO", "BLD", "4.50"),
	}

	first, err := newReconciler(t).Reconcile(apex, command)
	require.NoError(t, err)

	// Reversed input ordering must not change the output.
	second, err := newReconciler(t).Reconcile(
		[]taxdata.SourceRecord{apex[1], apex[0]}, command)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	// Sorted by key.
	for i := 1; i < len(first); i++ {
		assert.True(t, first[i-1].Key < first[i].Key)
	}
}

func TestReconcileDuplicateKeyFirstWins(t *testing.T) {
	r := newReconciler(t)

	apex := []taxdata.SourceRecord{
		sourceRecord(t, taxdata.PlatformAPEX, "ADDISON", "TX", "FIRST", "8.25"),
		sourceRecord(t, taxdata.PlatformAPEX, "ADDISON", "TX", "SECOND", "8.50"),
	}
	command := []taxdata.SourceRecord{
		sourceRecord(t, taxdata.PlatformCOMMAND, "ADDISON", "TX", "CMD", "8.25"),
	}

	reconciled, err := r.Reconcile(apex, command)
	require.NoError(t, err)
	require.Len(t, reconciled, 1)
	require.NotNil(t, reconciled[0].TaxCodeAPEX)
	assert.Equal(t, "FIRST", *reconciled[0].TaxCodeAPEX)

	// The collision must not be silent.
	diags := r.Diagnostics()
	require.Len(t, diags, 1)
	assert.True(t, errors.IsDuplicateKey(diags[0].Err))
	assert.Contains(t, diags[0].Detail, "ADDISON_TX")
	assert.Equal(t, "APEX", diags[0].Source)
}

func TestReconcileEmptyInputFatal(t *testing.T) {
	r := newReconciler(t)
	records := []taxdata.SourceRecord{
		sourceRecord(t, taxdata.PlatformAPEX, "ADDISON", "TX", "ADD", "8.25"),
	}

	_, err := r.Reconcile(nil, records)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrEmptyInput)

	_, err = r.Reconcile(records, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrEmptyInput)
}

func TestJoinInnerRestriction(t *testing.T) {
	r := newReconciler(t)

	apex := []taxdata.SourceRecord{
		sourceRecord(t, taxdata.PlatformAPEX, "ADDISON", "TX", "ADD", "8.25"),
		sourceRecord(t, taxdata.PlatformAPEX, "AUSTIN", "TX", "AUS", "8.25"),
	}
	command := []taxdata.SourceRecord{
		sourceRecord(t, taxdata.PlatformCOMMAND, "AUSTIN", "TX", "AUS-C", "8.25"),
	}
	reconciled, err := r.Reconcile(apex, command)
	require.NoError(t, err)

	edits := []taxdata.EditRecord{
		editRecord(t, "AUSTIN", "TX", "8.25", "8.50", date(2025, 1, 1), taxdata.ChangeTypeActive),
		// No platform carries El Paso: must not appear.
		editRecord(t, "EL PASO", "TX", "8.25", "8.50", date(2025, 1, 1), taxdata.ChangeTypeActive),
	}

	joined := r.Join(reconciled, edits)
	require.Len(t, joined, 1)
	assert.Equal(t, jurisdiction.Key("AUSTIN_TX"), joined[0].Key)
	assert.True(t, joined[0].RateChange.Equal(dec("0.25")))

	// ADDISON has no edit: dropped by inner join semantics.
	for _, rec := range joined {
		assert.NotEqual(t, jurisdiction.Key("ADDISON_TX"), rec.Key)
	}
}

func TestJoinLatestEffectiveDateWins(t *testing.T) {
	r := newReconciler(t)

	platform := []reconcile.ReconciledRecord{{
		Key: "AUSTIN_TX", City: "AUSTIN", State: "TX", Presence: reconcile.PresenceBoth,
	}}
	edits := []taxdata.EditRecord{
		editRecord(t, "AUSTIN", "TX", "8.25", "8.50", date(2025, 1, 1), taxdata.ChangeTypeActive),
		editRecord(t, "AUSTIN", "TX", "8.50", "8.75", date(2025, 6, 1), taxdata.ChangeTypeActive),
		editRecord(t, "AUSTIN", "TX", "8.75", "8.60", date(2025, 3, 1), taxdata.ChangeTypeActive),
	}

	joined := r.Join(platform, edits)
	require.Len(t, joined, 1)
	assert.True(t, joined[0].NewRate.Equal(dec("8.75")), "latest effective date should win, got new rate %s", joined[0].NewRate)
	assert.Equal(t, date(2025, 6, 1), joined[0].EffectiveDate)
}

func TestJoinTieBreaksToLargerChange(t *testing.T) {
	r := newReconciler(t)

	platform := []reconcile.ReconciledRecord{{
		Key: "AUSTIN_TX", City: "AUSTIN", State: "TX", Presence: reconcile.PresenceBoth,
	}}
	same := date(2025, 6, 1)
	edits := []taxdata.EditRecord{
		editRecord(t, "AUSTIN", "TX", "8.25", "8.30", same, taxdata.ChangeTypeActive),
		editRecord(t, "AUSTIN", "TX", "8.25", "8.75", same, taxdata.ChangeTypeActive),
	}

	joined := r.Join(platform, edits)
	require.Len(t, joined, 1)
	assert.True(t, joined[0].RateChange.Equal(dec("0.50")))
}

func TestFilterActionable(t *testing.T) {
	r := newReconciler(t)

	records := []reconcile.ReportRecord{
		{RateChange: dec("0.25"), ChangeType: taxdata.ChangeTypeActive},
		{RateChange: dec("0"), ChangeType: taxdata.ChangeTypeActive},
		{RateChange: dec("0.00"), ChangeType: taxdata.ChangeTypeActive},
		{RateChange: dec("-0.25"), ChangeType: taxdata.ChangeTypeExpired},
		{RateChange: dec("-0.10"), ChangeType: taxdata.ChangeTypeAdded},
	}

	kept := r.FilterActionable(records)
	require.Len(t, kept, 2)
	for _, rec := range kept {
		assert.False(t, rec.RateChange.IsZero())
		assert.NotEqual(t, taxdata.ChangeTypeExpired, rec.ChangeType)
	}
}

func TestFilterExcludedChangeTypesConfigurable(t *testing.T) {
	r := newReconciler(t, reconcile.WithExcludedChangeTypes("Expired", "Suspended"))

	records := []reconcile.ReportRecord{
		{RateChange: dec("0.25"), ChangeType: "Suspended"},
		{RateChange: dec("0.25"), ChangeType: taxdata.ChangeTypeActive},
	}

	kept := r.FilterActionable(records)
	require.Len(t, kept, 1)
	assert.Equal(t, taxdata.ChangeTypeActive, kept[0].ChangeType)
}

func TestFilterUsesExactDecimalZero(t *testing.T) {
	r := newReconciler(t)

	// 8.30 - 8.25 in binary floating point is not exactly 0.05; with
	// decimals the difference is exact and a true zero stays zero.
	zero := dec("8.25").Sub(dec("8.25"))
	tiny := dec("8.30").Sub(dec("8.25"))

	records := []reconcile.ReportRecord{
		{RateChange: zero, ChangeType: taxdata.ChangeTypeActive},
		{RateChange: tiny, ChangeType: taxdata.ChangeTypeActive},
	}

	kept := r.FilterActionable(records)
	require.Len(t, kept, 1)
	assert.True(t, kept[0].RateChange.Equal(dec("0.05")))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		presence   reconcile.Presence
		rateChange string
		target     reconcile.UpdateTarget
		action     string
	}{
		{"apex only", reconcile.PresenceAPEXOnly, "0.25", reconcile.AddToCOMMAND, reconcile.ActionAddToCOMMAND},
		{"apex only negative", reconcile.PresenceAPEXOnly, "-0.25", reconcile.AddToCOMMAND, reconcile.ActionAddToCOMMAND},
		{"command only", reconcile.PresenceCOMMANDOnly, "0.25", reconcile.AddToAPEX, reconcile.ActionAddToAPEX},
		{"both increase", reconcile.PresenceBoth, "0.25", reconcile.UpdateBoth, reconcile.ActionRateIncrease},
		{"both decrease", reconcile.PresenceBoth, "-0.25", reconcile.UpdateBoth, reconcile.ActionRateDecrease},
		{"both zero defensive", reconcile.PresenceBoth, "0", reconcile.UpdateBoth, reconcile.ActionNoChange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := reconcile.ReportRecord{
				ReconciledRecord: reconcile.ReconciledRecord{Key: "X_TX", Presence: tt.presence},
				RateChange:       dec(tt.rateChange),
			}
			out := reconcile.Classify(in)
			assert.Equal(t, tt.target, out.UpdateTarget)
			assert.Equal(t, tt.action, out.ActionRequired)

			// Pure: input untouched.
			assert.Empty(t, in.ActionRequired)
			assert.Empty(t, in.UpdateTarget)
		})
	}
}

func TestAssembleSummary(t *testing.T) {
	r := newReconciler(t)

	rows := []reconcile.ReportRecord{
		classified(t, "HOUSTON", "TX", reconcile.PresenceBoth, "-0.25"),
		classified(t, "ADDISON", "TX", reconcile.PresenceAPEXOnly, "0.25"),
		classified(t, "BOULDER", "CO", reconcile.PresenceCOMMANDOnly, "0.10"),
	}
	counts := reconcile.Counts{
		TotalAPEX:      10,
		TotalCOMMAND:   12,
		TotalEdits:     8,
		AfterOuterJoin: 15,
		AfterInnerJoin: 5,
		AfterFilter:    3,
	}

	result := r.Assemble(rows, counts)

	assert.Equal(t, counts, result.Summary.Counts)
	assert.False(t, result.Summary.GeneratedAt.IsZero())

	// Rows sorted by state then city.
	require.Len(t, result.Rows, 3)
	assert.Equal(t, "BOULDER", result.Rows[0].City)
	assert.Equal(t, "ADDISON", result.Rows[1].City)
	assert.Equal(t, "HOUSTON", result.Rows[2].City)

	assert.Equal(t, 1, result.Summary.ByTarget[reconcile.AddToAPEX])
	assert.Equal(t, 1, result.Summary.ByTarget[reconcile.AddToCOMMAND])
	assert.Equal(t, 1, result.Summary.ByTarget[reconcile.UpdateBoth])
	assert.Equal(t, 2, result.Summary.ByState["TX"])
	assert.Equal(t, 1, result.Summary.ByState["CO"])
	assert.Equal(t, 1, result.Summary.ByAction[reconcile.ActionRateDecrease])
}

func classified(t *testing.T, city, state string, presence reconcile.Presence, rateChange string) reconcile.ReportRecord {
	t.Helper()
	key, err := jurisdiction.NormalizeKey(city, state)
	require.NoError(t, err)
	return reconcile.Classify(reconcile.ReportRecord{
		ReconciledRecord: reconcile.ReconciledRecord{
			Key: key, City: city, State: state, Presence: presence,
		},
		RateChange: dec(rateChange),
	})
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
