package reconcile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/taxmap/pkg/jurisdiction"
	"github.com/agentstation/taxmap/pkg/reconcile"
	"github.com/agentstation/taxmap/pkg/taxdata"
)

// End-to-end scenarios through the full Run pipeline.

func TestRunApexOnlyJurisdictionWithRateChange(t *testing.T) {
	r := newReconciler(t)

	apex := []taxdata.SourceRecord{
		sourceRecord(t, taxdata.PlatformAPEX, "ADDISON", "TX", "ADD", "8.25"),
	}
	// COMMAND does not know ADDISON.
	command := []taxdata.SourceRecord{
		sourceRecord(t, taxdata.PlatformCOMMAND, "PLEASANTON", "TX", "PLE", "8.25"),
	}
	edits := []taxdata.EditRecord{
		editRecord(t, "ADDISON", "TX", "8.25", "8.50", date(2025, 4, 1), taxdata.ChangeTypeActive),
	}

	result, err := r.Run(apex, command, edits)
	require.NoError(t, err)

	require.Len(t, result.Rows, 1)
	row := result.Rows[0]
	assert.Equal(t, jurisdiction.Key("ADDISON_TX"), row.Key)
	assert.Equal(t, reconcile.PresenceAPEXOnly, row.Presence)
	assert.Equal(t, reconcile.AddToCOMMAND, row.UpdateTarget)
	assert.Equal(t, "Add to COMMAND", row.ActionRequired)
	assert.True(t, row.RateChange.Equal(dec("0.25")))
}

func TestRunZeroRateChangeExcluded(t *testing.T) {
	r := newReconciler(t)

	apex := []taxdata.SourceRecord{
		sourceRecord(t, taxdata.PlatformAPEX, "AUSTIN", "TX", "AUS", "8.0"),
	}
	command := []taxdata.SourceRecord{
		sourceRecord(t, taxdata.PlatformCOMMAND, "AUSTIN", "TX", "AUS-C", "8.0"),
	}
	edits := []taxdata.EditRecord{
		editRecord(t, "AUSTIN", "TX", "8.0", "8.0", date(2025, 4, 1), taxdata.ChangeTypeActive),
	}

	result, err := r.Run(apex, command, edits)
	require.NoError(t, err)

	assert.Empty(t, result.Rows)
	assert.Equal(t, 1, result.Summary.AfterInnerJoin)
	assert.Equal(t, 0, result.Summary.AfterFilter)
}

func TestRunExpiredChangeExcluded(t *testing.T) {
	r := newReconciler(t)

	apex := []taxdata.SourceRecord{
		sourceRecord(t, taxdata.PlatformAPEX, "DALLAS", "TX", "DAL", "8.25"),
	}
	command := []taxdata.SourceRecord{
		sourceRecord(t, taxdata.PlatformCOMMAND, "DALLAS", "TX", "DAL-C", "8.25"),
	}
	edits := []taxdata.EditRecord{
		editRecord(t, "DALLAS", "TX", "8.25", "0", date(2025, 4, 1), taxdata.ChangeTypeExpired),
	}

	result, err := r.Run(apex, command, edits)
	require.NoError(t, err)
	assert.Empty(t, result.Rows)
}

func TestRunRateDecrease(t *testing.T) {
	r := newReconciler(t)

	apex := []taxdata.SourceRecord{
		sourceRecord(t, taxdata.PlatformAPEX, "HOUSTON", "TX", "HOU", "8.0"),
	}
	command := []taxdata.SourceRecord{
		sourceRecord(t, taxdata.PlatformCOMMAND, "HOUSTON", "TX", "HOU-C", "8.0"),
	}
	edits := []taxdata.EditRecord{
		editRecord(t, "HOUSTON", "TX", "8.0", "7.75", date(2025, 4, 1), taxdata.ChangeTypeActive),
	}

	result, err := r.Run(apex, command, edits)
	require.NoError(t, err)

	require.Len(t, result.Rows, 1)
	row := result.Rows[0]
	assert.Equal(t, "Rate decrease", row.ActionRequired)
	assert.Equal(t, reconcile.UpdateBoth, row.UpdateTarget)
	assert.True(t, row.RateChange.Equal(dec("-0.25")))
}

func TestRunUnmatchedKeyNeverAppears(t *testing.T) {
	r := newReconciler(t)

	apex := []taxdata.SourceRecord{
		sourceRecord(t, taxdata.PlatformAPEX, "ADDISON", "TX", "ADD", "8.25"),
	}
	command := []taxdata.SourceRecord{
		sourceRecord(t, taxdata.PlatformCOMMAND, "ADDISON", "TX", "ADD-C", "8.25"),
	}
	// Edit for a jurisdiction neither platform carries.
	edits := []taxdata.EditRecord{
		editRecord(t, "NOWHERE", "TX", "1.0", "2.0", date(2025, 4, 1), taxdata.ChangeTypeActive),
	}

	result, err := r.Run(apex, command, edits)
	require.NoError(t, err)

	for _, row := range result.Rows {
		assert.NotEqual(t, jurisdiction.Key("NOWHERE_TX"), row.Key)
	}
	assert.Empty(t, result.Rows)
	assert.Equal(t, 0, result.Summary.AfterInnerJoin)
}

func TestRunNoChangeNeverObservedInOutput(t *testing.T) {
	r := newReconciler(t)

	apex := []taxdata.SourceRecord{
		sourceRecord(t, taxdata.PlatformAPEX, "ADDISON", "TX", "ADD", "8.25"),
		sourceRecord(t, taxdata.PlatformAPEX, "AUSTIN", "TX", "AUS", "8.0"),
		sourceRecord(t, taxdata.PlatformAPEX, "HOUSTON", "TX", "HOU", "8.0"),
	}
	command := []taxdata.SourceRecord{
		sourceRecord(t, taxdata.PlatformCOMMAND, "AUSTIN", "TX", "AUS-C", "8.0"),
		sourceRecord(t, taxdata.PlatformCOMMAND, "HOUSTON", "TX", "HOU-C", "8.0"),
		sourceRecord(t, taxdata.PlatformCOMMAND, "BOULDER", "CO", "BLD", "4.5"),
	}
	edits := []taxdata.EditRecord{
		editRecord(t, "ADDISON", "TX", "8.25", "8.50", date(2025, 4, 1), taxdata.ChangeTypeActive),
		editRecord(t, "AUSTIN", "TX", "8.0", "8.0", date(2025, 4, 1), taxdata.ChangeTypeActive),
		editRecord(t, "HOUSTON", "TX", "8.0", "7.75", date(2025, 4, 1), taxdata.ChangeTypeActive),
		editRecord(t, "BOULDER", "CO", "4.5", "4.5", date(2025, 4, 1), taxdata.ChangeTypeExpired),
	}

	result, err := r.Run(apex, command, edits)
	require.NoError(t, err)

	for _, row := range result.Rows {
		assert.NotEqual(t, "No change", row.ActionRequired)
		assert.False(t, row.RateChange.IsZero())
		assert.NotEqual(t, taxdata.ChangeTypeExpired, row.ChangeType)

		// Presence and target must stay consistent.
		switch row.Presence {
		case reconcile.PresenceAPEXOnly:
			assert.Equal(t, reconcile.AddToCOMMAND, row.UpdateTarget)
		case reconcile.PresenceCOMMANDOnly:
			assert.Equal(t, reconcile.AddToAPEX, row.UpdateTarget)
		case reconcile.PresenceBoth:
			assert.Equal(t, reconcile.UpdateBoth, row.UpdateTarget)
		}
	}

	assert.Equal(t, reconcile.Counts{
		TotalAPEX:      3,
		TotalCOMMAND:   3,
		TotalEdits:     4,
		AfterOuterJoin: 4,
		AfterInnerJoin: 4,
		AfterFilter:    2,
	}, result.Summary.Counts)
}

func TestRunEmptyEditsFatal(t *testing.T) {
	r := newReconciler(t)

	apex := []taxdata.SourceRecord{
		sourceRecord(t, taxdata.PlatformAPEX, "ADDISON", "TX", "ADD", "8.25"),
	}
	command := []taxdata.SourceRecord{
		sourceRecord(t, taxdata.PlatformCOMMAND, "ADDISON", "TX", "ADD-C", "8.25"),
	}

	_, err := r.Run(apex, command, nil)
	require.Error(t, err)
}

func TestRunCarriesDiagnostics(t *testing.T) {
	r := newReconciler(t)

	apex := []taxdata.SourceRecord{
		sourceRecord(t, taxdata.PlatformAPEX, "ADDISON", "TX", "ADD", "8.25"),
		sourceRecord(t, taxdata.PlatformAPEX, "ADDISON", "TX", "DUP", "8.25"),
	}
	command := []taxdata.SourceRecord{
		sourceRecord(t, taxdata.PlatformCOMMAND, "ADDISON", "TX", "ADD-C", "8.25"),
	}
	edits := []taxdata.EditRecord{
		editRecord(t, "ADDISON", "TX", "8.25", "8.50", date(2025, 4, 1), taxdata.ChangeTypeActive),
	}

	result, err := r.Run(apex, command, edits)
	require.NoError(t, err)

	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, 1, result.Summary.RecordsDropped)
	assert.Equal(t, "reconcile", result.Diagnostics[0].Stage)
}
