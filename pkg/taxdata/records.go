// Package taxdata defines the normalized record shapes produced by the
// upstream extractors and consumed by the reconciliation pipeline. Records
// are plain values: once an extractor emits them they are never mutated,
// each stage copies what it needs into its own output.
package taxdata

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/agentstation/taxmap/pkg/jurisdiction"
)

// Platform identifies one of the two systems of record.
type Platform string

// String returns the string representation of a platform.
func (p Platform) String() string {
	return string(p)
}

// The two source-of-record platforms.
const (
	PlatformAPEX    Platform = "APEX"
	PlatformCOMMAND Platform = "COMMAND"
)

// ChangeType classifies an official rate edit.
type ChangeType string

// String returns the string representation of a change type.
func (c ChangeType) String() string {
	return string(c)
}

// Known change types from the regulatory feed. The feed is free-form text,
// so ChangeType stays an open string type; only Expired carries filtering
// semantics and even that literal is configurable per deployment.
const (
	ChangeTypeActive  ChangeType = "Active"
	ChangeTypeAdded   ChangeType = "Added"
	ChangeTypeExpired ChangeType = "Expired"
)

// SourceRecord is the common normalized shape each platform extractor
// produces: one taxable jurisdiction as a platform knows it.
type SourceRecord struct {
	Key       jurisdiction.Key `json:"city_state_key" yaml:"city_state_key"`
	City      string           `json:"city" yaml:"city"`
	State     string           `json:"state" yaml:"state"`
	TaxCode   string           `json:"tax_code" yaml:"tax_code"`
	TotalRate decimal.Decimal  `json:"total_rate" yaml:"total_rate"`
	Platform  Platform         `json:"platform" yaml:"platform"`
}

// EditRecord is one official rate change from the regulatory feed.
type EditRecord struct {
	Key              jurisdiction.Key `json:"city_state_key" yaml:"city_state_key"`
	State            string           `json:"state" yaml:"state"`
	JurisdictionName string           `json:"jurisdiction_name" yaml:"jurisdiction_name"`
	JurisdictionType string           `json:"jurisdiction_type,omitempty" yaml:"jurisdiction_type,omitempty"`
	OldRate          decimal.Decimal  `json:"old_rate" yaml:"old_rate"`
	NewRate          decimal.Decimal  `json:"new_rate" yaml:"new_rate"`
	RateChange       decimal.Decimal  `json:"rate_change" yaml:"rate_change"`
	EffectiveDate    time.Time        `json:"effective_date" yaml:"effective_date"`
	ChangeType       ChangeType       `json:"change_type" yaml:"change_type"`
}

// Diagnostic records one per-record problem encountered during a run.
// Per-record errors never abort the pipeline; they are collected so the
// completed run can report exactly what was dropped and why.
type Diagnostic struct {
	Stage  string `json:"stage" yaml:"stage"`                       // "extract", "reconcile", ...
	Source string `json:"source,omitempty" yaml:"source,omitempty"` // "APEX", "COMMAND", "EDITS"
	File   string `json:"file,omitempty" yaml:"file,omitempty"`
	Row    int    `json:"row,omitempty" yaml:"row,omitempty"`
	Err    error  `json:"-" yaml:"-"`
	Detail string `json:"detail" yaml:"detail"`
}

// NewDiagnostic builds a diagnostic from an error with source identity.
func NewDiagnostic(stage, source, file string, row int, err error) Diagnostic {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return Diagnostic{
		Stage:  stage,
		Source: source,
		File:   file,
		Row:    row,
		Err:    err,
		Detail: detail,
	}
}
