package authorization

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Authorization is a payer-approved budget of service units for one
// patient and payer-service mapping over a date range. It is never
// deleted; its life ends when EndDate passes. Balances are not stored
// here — they are derived from the consumption ledger.
type Authorization struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	PatientID      uuid.UUID       `db:"patient_id" json:"patient_id"`
	PayerServiceID uuid.UUID       `db:"payer_service_id" json:"payer_service_id"`
	StartDate      time.Time       `db:"start_date" json:"start_date"`
	EndDate        *time.Time      `db:"end_date" json:"end_date,omitempty"`
	MaxUnits       decimal.Decimal `db:"max_units" json:"max_units"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// IsActiveOn reports whether the authorization covers the given service
// date: StartDate <= date and (no EndDate or EndDate > date).
func (a *Authorization) IsActiveOn(date time.Time) bool {
	d := DateOnly(date)
	if DateOnly(a.StartDate).After(d) {
		return false
	}
	if a.EndDate == nil {
		return true
	}
	return a.EndDate.After(d)
}

// SourceType identifies what kind of event produced a ledger entry.
type SourceType string

const (
	// SourceServiceDelivery marks units consumed by an actual visit.
	SourceServiceDelivery SourceType = "service_delivery"
	// SourceScheduleShift marks units reserved by a materialized
	// schedule occurrence.
	SourceScheduleShift SourceType = "schedule_shift"
)

func (s SourceType) Valid() bool {
	return s == SourceServiceDelivery || s == SourceScheduleShift
}

// UnitConsumption is an immutable ledger entry. There is at most one entry
// per (SourceType, SourceID); retried postings return the original entry.
// Corrections are reversing entries with negative units, never edits.
// Missed entries record units the patient did not receive (cancelled or
// missed visits) and do not draw down the remaining balance.
type UnitConsumption struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	AuthorizationID uuid.UUID       `db:"authorization_id" json:"authorization_id"`
	SourceType      SourceType      `db:"source_type" json:"source_type"`
	SourceID        uuid.UUID       `db:"source_id" json:"source_id"`
	ServiceDate     time.Time       `db:"service_date" json:"service_date"`
	UnitsUsed       decimal.Decimal `db:"units_used" json:"units_used"`
	Missed          bool            `db:"missed" json:"missed"`
	RecordedAt      time.Time       `db:"recorded_at" json:"recorded_at"`
}

// Usage is the ledger rollup for an authorization.
type Usage struct {
	AuthorizationID uuid.UUID       `json:"authorization_id"`
	MaxUnits        decimal.Decimal `json:"max_units"`
	TotalUsed       decimal.Decimal `json:"total_used"`
	TotalMissed     decimal.Decimal `json:"total_missed"`
	TotalRemaining  decimal.Decimal `json:"total_remaining"`
	// OverAuthorized is set when consumption has exceeded MaxUnits. The
	// reported TotalRemaining never goes below zero, but the condition is
	// surfaced so reconciliation can follow up.
	OverAuthorized bool `json:"over_authorized"`
}

// DateOnly truncates a timestamp to its calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
