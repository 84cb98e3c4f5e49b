package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/caretrack/caretrack/internal/domain/authorization"
	"github.com/caretrack/caretrack/internal/domain/schedule"
	"github.com/caretrack/caretrack/internal/platform/fault"
	"github.com/caretrack/caretrack/internal/platform/geo"
	"github.com/caretrack/caretrack/internal/platform/telemetry"
)

type Config struct {
	// GeofenceThresholdMeters bounds how far from the reference address
	// a check event may be recorded and still count as on-site.
	GeofenceThresholdMeters float64
	// TimeVariance is how far a check event may drift from the planned
	// window before it is flagged.
	TimeVariance time.Duration
}

type Service struct {
	repo     Repository
	schedule *schedule.Service
	ledger   *authorization.Service
	cfg      Config
}

func NewService(repo Repository, sched *schedule.Service, ledger *authorization.Service, cfg Config) *Service {
	if cfg.GeofenceThresholdMeters <= 0 {
		cfg.GeofenceThresholdMeters = geo.DefaultThresholdMeters
	}
	return &Service{repo: repo, schedule: sched, ledger: ledger, cfg: cfg}
}

// CreateRequest starts a visit record. With a ScheduleEventID the
// timing, units and staffing default from the occurrence; without one
// the visit is unscheduled and must carry its own.
type CreateRequest struct {
	ScheduleEventID   *uuid.UUID      `json:"schedule_event_id,omitempty"`
	AuthorizationID   uuid.UUID       `json:"authorization_id"`
	PatientID         uuid.UUID       `json:"patient_id"`
	StaffID           *uuid.UUID      `json:"staff_id,omitempty"`
	ActualStaffID     *uuid.UUID      `json:"actual_staff_id,omitempty"`
	UnscheduledReason *string         `json:"unscheduled_reason,omitempty"`
	StartAt           time.Time       `json:"start_at"`
	EndAt             time.Time       `json:"end_at"`
	Units             decimal.Decimal `json:"units"`
}

func (s *Service) CreateDelivery(ctx context.Context, req CreateRequest) (*Delivery, error) {
	d := &Delivery{
		ScheduleEventID:   req.ScheduleEventID,
		AuthorizationID:   req.AuthorizationID,
		PatientID:         req.PatientID,
		StaffID:           req.StaffID,
		ActualStaffID:     req.ActualStaffID,
		UnscheduledReason: req.UnscheduledReason,
		StartAt:           req.StartAt,
		EndAt:             req.EndAt,
		Units:             req.Units,
		ApprovalStatus:    ApprovalPending,
	}

	if req.ScheduleEventID != nil {
		ev, err := s.schedule.GetEvent(ctx, *req.ScheduleEventID)
		if err != nil {
			return nil, err
		}
		if _, err := s.repo.GetByScheduleEvent(ctx, ev.ID); err == nil {
			return nil, fault.Conflict("delivery already exists for occurrence %s", ev.ID)
		} else if !fault.IsNotFound(err) {
			return nil, err
		}
		d.PatientID = ev.PatientID
		d.AuthorizationID = ev.AuthorizationID
		if d.StaffID == nil {
			d.StaffID = ev.StaffID
		}
		if d.StartAt.IsZero() {
			d.StartAt = ev.StartAt
		}
		if d.EndAt.IsZero() {
			d.EndAt = ev.EndAt
		}
		if d.Units.IsZero() {
			d.Units = ev.PlannedUnits
		}
	} else {
		// No occurrence to lean on, so the record must be complete and
		// explain itself.
		d.IsUnscheduled = true
		if d.ActualStaffID == nil {
			return nil, fault.Invalid("actual_staff_id is required for an unscheduled visit")
		}
		if d.UnscheduledReason == nil || *d.UnscheduledReason == "" {
			return nil, fault.Invalid("unscheduled_reason is required for an unscheduled visit")
		}
	}

	if d.AuthorizationID == uuid.Nil {
		return nil, fault.Invalid("authorization_id is required")
	}
	if d.PatientID == uuid.Nil {
		return nil, fault.Invalid("patient_id is required")
	}
	if d.StartAt.IsZero() || d.EndAt.IsZero() {
		return nil, fault.Invalid("start_at and end_at are required")
	}
	if !d.EndAt.After(d.StartAt) {
		return nil, fault.Invalid("end_at must be after start_at")
	}
	if d.Units.LessThanOrEqual(decimal.Zero) {
		return nil, fault.Invalid("units must be positive")
	}

	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// CheckRequest is a caregiver's GPS stamp. Reference is the patient's
// registered location; when the caller cannot supply one the geofence
// result is unknown rather than a mismatch.
type CheckRequest struct {
	OccurredAt     time.Time  `json:"occurred_at"`
	Latitude       float64    `json:"latitude"`
	Longitude      float64    `json:"longitude"`
	AccuracyMeters *float64   `json:"accuracy_meters,omitempty"`
	Reference      *geo.Point `json:"reference,omitempty"`
}

func (s *Service) RecordCheckIn(ctx context.Context, deliveryID uuid.UUID, req CheckRequest) (*CheckEvent, error) {
	d, events, err := s.loadOpen(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	for _, e := range events {
		if e.EventType == CheckIn {
			return nil, fault.Conflict("delivery already has a check-in")
		}
	}
	ev := s.buildCheckEvent(d, CheckIn, req, d.StartAt)
	if err := s.repo.InsertCheckEvent(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// CheckOutResult carries the event plus what checking out caused: the
// stored elapsed hours and the ledger posting, with its overdraft
// warning if the authorization ran dry.
type CheckOutResult struct {
	Event        *CheckEvent               `json:"event"`
	ElapsedHours float64                   `json:"elapsed_hours"`
	Consumption  *authorization.PostResult `json:"consumption,omitempty"`
}

func (s *Service) RecordCheckOut(ctx context.Context, deliveryID uuid.UUID, req CheckRequest) (*CheckOutResult, error) {
	d, events, err := s.loadOpen(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	var checkIn *CheckEvent
	for _, e := range events {
		switch e.EventType {
		case CheckIn:
			checkIn = e
		case CheckOut:
			return nil, fault.Conflict("delivery already has a check-out")
		}
	}
	if checkIn == nil {
		return nil, fault.Conflict("check-in must be recorded before check-out")
	}

	ev := s.buildCheckEvent(d, CheckOut, req, d.EndAt)
	if ev.OccurredAt.Before(checkIn.OccurredAt) {
		return nil, fault.Invalid("check-out cannot occur before check-in")
	}
	if err := s.repo.InsertCheckEvent(ctx, ev); err != nil {
		return nil, err
	}

	elapsed := ev.OccurredAt.Sub(checkIn.OccurredAt).Seconds() / 3600
	d.ElapsedHours = &elapsed
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, err
	}

	if d.ScheduleEventID != nil {
		if _, err := s.schedule.MarkCompleted(ctx, *d.ScheduleEventID); err != nil && !fault.IsConflict(err) {
			return nil, err
		}
	}

	result := &CheckOutResult{Event: ev, ElapsedHours: elapsed}
	if s.ledger != nil {
		post, err := s.ledger.PostConsumption(ctx, authorization.PostRequest{
			AuthorizationID: d.AuthorizationID,
			SourceType:      authorization.SourceServiceDelivery,
			SourceID:        d.ID,
			ServiceDate:     d.StartAt,
			Units:           d.Units,
		})
		if err != nil {
			return nil, err
		}
		result.Consumption = post
	}
	return result, nil
}

// loadOpen fetches a delivery that can still take check events.
func (s *Service) loadOpen(ctx context.Context, id uuid.UUID) (*Delivery, []*CheckEvent, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if d.Cancelled {
		return nil, nil, fault.Conflict("delivery is cancelled")
	}
	events, err := s.repo.ListCheckEvents(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return d, events, nil
}

func (s *Service) buildCheckEvent(d *Delivery, typ CheckEventType, req CheckRequest, planned time.Time) *CheckEvent {
	occurred := req.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	ev := &CheckEvent{
		DeliveryID:     d.ID,
		EventType:      typ,
		OccurredAt:     occurred,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		AccuracyMeters: req.AccuracyMeters,
	}

	res := geo.Validate(geo.Point{Latitude: req.Latitude, Longitude: req.Longitude},
		req.Reference, s.cfg.GeofenceThresholdMeters)
	telemetry.GeofenceResults.WithLabelValues(string(res.Status)).Inc()
	if req.Reference != nil {
		dist := res.DistanceMeters
		ev.DistanceMeters = &dist
	}

	variance := occurred.Sub(planned)
	if variance < 0 {
		variance = -variance
	}

	switch {
	case res.Status == geo.StatusMismatch:
		ev.Status = CheckGPSMismatch
	case s.cfg.TimeVariance > 0 && variance > s.cfg.TimeVariance:
		ev.Status = CheckTimeVariance
	case res.Status == geo.StatusUnknown:
		ev.Status = CheckUnknown
	default:
		ev.Status = CheckOK
	}
	return ev
}

// Cancel marks a visit cancelled. Completed visits are final; their
// check events prove service was rendered.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason, by string) (*Delivery, error) {
	if reason == "" {
		return nil, fault.Invalid("cancel reason is required")
	}
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	events, err := s.repo.ListCheckEvents(ctx, id)
	if err != nil {
		return nil, err
	}
	switch st := Status(d, events); st {
	case StatusNotStarted, StatusInProgress:
	default:
		return nil, fault.Conflict("cannot cancel a %s delivery", st)
	}

	now := time.Now().UTC()
	d.Cancelled = true
	d.CancelReason = &reason
	d.CancelledAt = &now
	if by != "" {
		d.CancelledBy = &by
	}
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) Approve(ctx context.Context, id uuid.UUID) (*Delivery, error) {
	return s.setApproval(ctx, id, ApprovalApproved)
}

func (s *Service) Reject(ctx context.Context, id uuid.UUID) (*Delivery, error) {
	return s.setApproval(ctx, id, ApprovalRejected)
}

// Approval is an administrative review and moves independently of the
// check-in/check-out lifecycle.
func (s *Service) setApproval(ctx context.Context, id uuid.UUID, status ApprovalStatus) (*Delivery, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d.ApprovalStatus = status
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Detail is a delivery with its derived status and check events.
type Detail struct {
	Delivery
	Status      LifecycleStatus `json:"status"`
	CheckEvents []*CheckEvent   `json:"check_events"`
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Detail, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	events, err := s.repo.ListCheckEvents(ctx, id)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []*CheckEvent{}
	}
	return &Detail{Delivery: *d, Status: Status(d, events), CheckEvents: events}, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Detail, int, error) {
	items, total, err := s.repo.ListByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	details := make([]*Detail, 0, len(items))
	for _, d := range items {
		events, err := s.repo.ListCheckEvents(ctx, d.ID)
		if err != nil {
			return nil, 0, err
		}
		if events == nil {
			events = []*CheckEvent{}
		}
		details = append(details, &Detail{Delivery: *d, Status: Status(d, events), CheckEvents: events})
	}
	return details, total, nil
}
