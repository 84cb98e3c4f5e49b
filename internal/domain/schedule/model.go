package schedule

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the planning state of a materialized occurrence. The
// delivered/not-delivered truth lives on the delivery record; completed
// here only mirrors a finished visit.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPlanned   Status = "planned"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPlanned, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Event is one concrete visit occurrence on the calendar, materialized
// from a template slot or entered by hand.
type Event struct {
	ID              uuid.UUID       `json:"id"`
	PatientID       uuid.UUID       `json:"patient_id"`
	TemplateEventID *uuid.UUID      `json:"template_event_id,omitempty"`
	AuthorizationID uuid.UUID       `json:"authorization_id"`
	StaffID         *uuid.UUID      `json:"staff_id,omitempty"`
	EventDate       time.Time       `json:"event_date"`
	StartAt         time.Time       `json:"start_at"`
	EndAt           time.Time       `json:"end_at"`
	PlannedUnits    decimal.Decimal `json:"planned_units"`
	Status          Status          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
