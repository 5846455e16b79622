package reconcile

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/agentstation/taxmap/pkg/jurisdiction"
	"github.com/agentstation/taxmap/pkg/taxdata"
)

// Presence classifies a jurisdiction key by which platforms carry it.
// It replaces the stringly-typed merge indicator the report used to lean on
// with a type the compiler can check for exhaustiveness.
type Presence string

// String returns the string representation of a presence value.
func (p Presence) String() string {
	return string(p)
}

// Presence values. Exactly one holds per reconciled key.
const (
	PresenceAPEXOnly    Presence = "APEX_ONLY"
	PresenceCOMMANDOnly Presence = "COMMAND_ONLY"
	PresenceBoth        Presence = "BOTH"
)

// UpdateTarget names which platform an action applies to.
type UpdateTarget string

// String returns the string representation of an update target.
func (u UpdateTarget) String() string {
	return string(u)
}

// Update targets derived from presence.
const (
	AddToAPEX    UpdateTarget = "ADD_TO_APEX"
	AddToCOMMAND UpdateTarget = "ADD_TO_COMMAND"
	UpdateBoth   UpdateTarget = "BOTH"
)

// Action labels derived by Classify.
const (
	ActionAddToCOMMAND = "Add to COMMAND"
	ActionAddToAPEX    = "Add to APEX"
	ActionRateIncrease = "Rate increase"
	ActionRateDecrease = "Rate decrease"
	ActionNoChange     = "No change"
)

// ReconciledRecord is the outer-join result for one jurisdiction key.
// Presence is derived solely from which of the two tax-code fields are
// populated; a key appears at most once in a reconciled set.
type ReconciledRecord struct {
	Key            jurisdiction.Key `json:"city_state_key" yaml:"city_state_key"`
	City           string           `json:"city" yaml:"city"`
	State          string           `json:"state" yaml:"state"`
	TaxCodeAPEX    *string          `json:"tax_code_apex,omitempty" yaml:"tax_code_apex,omitempty"`
	TaxCodeCOMMAND *string          `json:"tax_code_command,omitempty" yaml:"tax_code_command,omitempty"`
	Presence       Presence         `json:"presence" yaml:"presence"`
}

// ReportRecord is a reconciled record matched against an official edit,
// carrying the rate movement and, after classification, the action label.
// It exists only for keys present in both the reconciled platform set and
// the edit set.
type ReportRecord struct {
	ReconciledRecord `yaml:",inline"`

	OldRate       decimal.Decimal    `json:"old_rate" yaml:"old_rate"`
	NewRate       decimal.Decimal    `json:"new_rate" yaml:"new_rate"`
	RateChange    decimal.Decimal    `json:"rate_change" yaml:"rate_change"`
	EffectiveDate time.Time          `json:"effective_date" yaml:"effective_date"`
	ChangeType    taxdata.ChangeType `json:"change_type" yaml:"change_type"`

	// Populated by Classify.
	ActionRequired string       `json:"action_required" yaml:"action_required"`
	UpdateTarget   UpdateTarget `json:"update_platform" yaml:"update_platform"`
}
