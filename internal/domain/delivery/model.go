package delivery

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// LifecycleStatus is never stored. It is derived from the cancelled
// flag and the check events, so the record and its events can never
// disagree about where a visit stands.
type LifecycleStatus string

const (
	StatusNotStarted LifecycleStatus = "NOT_STARTED"
	StatusInProgress LifecycleStatus = "IN_PROGRESS"
	StatusCompleted  LifecycleStatus = "COMPLETED"
	StatusCancelled  LifecycleStatus = "CANCELLED"
)

// Delivery is one rendered (or about-to-be-rendered) visit, tied 1:1
// to a schedule occurrence unless it was unscheduled.
type Delivery struct {
	ID                uuid.UUID       `json:"id"`
	ScheduleEventID   *uuid.UUID      `json:"schedule_event_id,omitempty"`
	AuthorizationID   uuid.UUID       `json:"authorization_id"`
	PatientID         uuid.UUID       `json:"patient_id"`
	StaffID           *uuid.UUID      `json:"staff_id,omitempty"`
	ActualStaffID     *uuid.UUID      `json:"actual_staff_id,omitempty"`
	IsUnscheduled     bool            `json:"is_unscheduled"`
	UnscheduledReason *string         `json:"unscheduled_reason,omitempty"`
	StartAt           time.Time       `json:"start_at"`
	EndAt             time.Time       `json:"end_at"`
	Units             decimal.Decimal `json:"units"`
	ElapsedHours      *float64        `json:"elapsed_hours,omitempty"`
	ApprovalStatus    ApprovalStatus  `json:"approval_status"`
	Cancelled         bool            `json:"cancelled"`
	CancelReason      *string         `json:"cancel_reason,omitempty"`
	CancelledBy       *string         `json:"cancelled_by,omitempty"`
	CancelledAt       *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

type CheckEventType string

const (
	CheckIn  CheckEventType = "check_in"
	CheckOut CheckEventType = "check_out"
)

type CheckStatus string

const (
	CheckOK           CheckStatus = "OK"
	CheckGPSMismatch  CheckStatus = "GPS_MISMATCH"
	CheckTimeVariance CheckStatus = "TIME_VARIANCE"
	CheckUnknown      CheckStatus = "UNKNOWN"
)

// CheckEvent is a caregiver's GPS-stamped arrival or departure record.
// At most one of each type exists per delivery.
type CheckEvent struct {
	ID             uuid.UUID      `json:"id"`
	DeliveryID     uuid.UUID      `json:"delivery_id"`
	EventType      CheckEventType `json:"event_type"`
	OccurredAt     time.Time      `json:"occurred_at"`
	Latitude       float64        `json:"latitude"`
	Longitude      float64        `json:"longitude"`
	AccuracyMeters *float64       `json:"accuracy_meters,omitempty"`
	DistanceMeters *float64       `json:"distance_meters,omitempty"`
	Status         CheckStatus    `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Status derives the lifecycle state from the record and its check
// events. Cancellation wins over everything else.
func Status(d *Delivery, events []*CheckEvent) LifecycleStatus {
	if d.Cancelled {
		return StatusCancelled
	}
	var in, out bool
	for _, e := range events {
		switch e.EventType {
		case CheckIn:
			in = true
		case CheckOut:
			out = true
		}
	}
	switch {
	case in && out:
		return StatusCompleted
	case in:
		return StatusInProgress
	default:
		return StatusNotStarted
	}
}
