package authorization

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/caretrack/caretrack/internal/platform/fault"
	"github.com/caretrack/caretrack/internal/platform/telemetry"
)

type Service struct {
	auths  Repository
	ledger LedgerRepository
}

func NewService(auths Repository, ledger LedgerRepository) *Service {
	return &Service{auths: auths, ledger: ledger}
}

func (s *Service) CreateAuthorization(ctx context.Context, a *Authorization) error {
	if a.PatientID == uuid.Nil {
		return fault.Invalid("patient_id is required")
	}
	if a.PayerServiceID == uuid.Nil {
		return fault.Invalid("payer_service_id is required")
	}
	if a.StartDate.IsZero() {
		return fault.Invalid("start_date is required")
	}
	if a.EndDate != nil && !a.EndDate.After(a.StartDate) {
		return fault.Invalid("end_date must be after start_date")
	}
	if a.MaxUnits.LessThanOrEqual(decimal.Zero) {
		return fault.Invalid("max_units must be positive")
	}
	a.StartDate = DateOnly(a.StartDate)
	if a.EndDate != nil {
		e := DateOnly(*a.EndDate)
		a.EndDate = &e
	}
	return s.auths.Create(ctx, a)
}

func (s *Service) GetAuthorization(ctx context.Context, id uuid.UUID) (*Authorization, error) {
	return s.auths.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Authorization, int, error) {
	return s.auths.ListByPatient(ctx, patientID, limit, offset)
}

// RemainingUnits derives the balance from the ledger: MaxUnits minus the
// sum of all non-missed entries. The figure is computed on every call and
// never cached past a write.
func (s *Service) RemainingUnits(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	a, err := s.auths.GetByID(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	used, _, err := s.ledger.Totals(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return a.MaxUnits.Sub(used), nil
}

// Usage returns the full rollup. TotalRemaining is floored at zero for
// reporting; overdraft is surfaced through the OverAuthorized flag.
func (s *Service) Usage(ctx context.Context, id uuid.UUID) (*Usage, error) {
	a, err := s.auths.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	used, missed, err := s.ledger.Totals(ctx, id)
	if err != nil {
		return nil, err
	}
	remaining := a.MaxUnits.Sub(used)
	u := &Usage{
		AuthorizationID: id,
		MaxUnits:        a.MaxUnits,
		TotalUsed:       used,
		TotalMissed:     missed,
		TotalRemaining:  remaining,
		OverAuthorized:  remaining.IsNegative(),
	}
	if u.TotalRemaining.IsNegative() {
		u.TotalRemaining = decimal.Zero
	}
	return u, nil
}

// PostRequest describes a consumption posting.
type PostRequest struct {
	AuthorizationID uuid.UUID
	SourceType      SourceType
	SourceID        uuid.UUID
	ServiceDate     time.Time
	Units           decimal.Decimal
	// Missed records units the patient did not receive; they count into
	// TotalMissed and leave the remaining balance untouched.
	Missed bool
}

// PostResult reports what a posting did. Duplicate means an entry for the
// same source already existed and is returned unchanged. OverAuthorized
// means the posting drove the balance below zero — it is a warning, not
// an error: visits are still rendered when the paperwork lags, and the
// condition is reported for reconciliation instead of blocking care.
type PostResult struct {
	Entry          *UnitConsumption `json:"entry"`
	Duplicate      bool             `json:"duplicate"`
	OverAuthorized bool             `json:"over_authorized"`
	Remaining      decimal.Decimal  `json:"remaining"`
}

// PostConsumption appends one ledger entry. It is idempotent on
// (SourceType, SourceID): retries return the original entry. Negative
// units are allowed as reversing entries.
func (s *Service) PostConsumption(ctx context.Context, req PostRequest) (*PostResult, error) {
	if !req.SourceType.Valid() {
		return nil, fault.Invalid("source_type must be %s or %s", SourceServiceDelivery, SourceScheduleShift)
	}
	if req.SourceID == uuid.Nil {
		return nil, fault.Invalid("source_id is required")
	}
	if req.Units.IsZero() {
		return nil, fault.Invalid("units must not be zero")
	}
	if req.ServiceDate.IsZero() {
		return nil, fault.Invalid("service_date is required")
	}

	a, err := s.auths.GetByID(ctx, req.AuthorizationID)
	if err != nil {
		return nil, err
	}

	entry := &UnitConsumption{
		AuthorizationID: a.ID,
		SourceType:      req.SourceType,
		SourceID:        req.SourceID,
		ServiceDate:     DateOnly(req.ServiceDate),
		UnitsUsed:       req.Units,
		Missed:          req.Missed,
	}

	if err := s.ledger.Insert(ctx, entry); err != nil {
		if !fault.IsConflict(err) {
			return nil, err
		}
		// Retried posting: hand back the entry that won, whatever units
		// it carried.
		existing, getErr := s.ledger.GetBySource(ctx, req.SourceType, req.SourceID)
		if getErr != nil {
			return nil, getErr
		}
		used, _, sumErr := s.ledger.Totals(ctx, a.ID)
		if sumErr != nil {
			return nil, sumErr
		}
		return &PostResult{Entry: existing, Duplicate: true, Remaining: a.MaxUnits.Sub(used)}, nil
	}

	used, _, err := s.ledger.Totals(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	remaining := a.MaxUnits.Sub(used)
	res := &PostResult{Entry: entry, Remaining: remaining}
	if !req.Missed && remaining.IsNegative() {
		res.OverAuthorized = true
		telemetry.LedgerOverdrafts.Inc()
	}
	return res, nil
}

// ListConsumptions returns the ledger entries for an authorization,
// oldest first.
func (s *Service) ListConsumptions(ctx context.Context, authorizationID uuid.UUID, limit, offset int) ([]*UnitConsumption, int, error) {
	if _, err := s.auths.GetByID(ctx, authorizationID); err != nil {
		return nil, 0, err
	}
	return s.ledger.ListByAuthorization(ctx, authorizationID, limit, offset)
}
