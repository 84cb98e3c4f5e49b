package template

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/caretrack/caretrack/internal/platform/fault"
)

// TxRunner executes fn inside a transaction. The repositories pick the
// transaction up from the context.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

type Service struct {
	repo Repository
	tx   TxRunner
}

func NewService(repo Repository, tx TxRunner) *Service {
	if tx == nil {
		tx = func(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
	}
	return &Service{repo: repo, tx: tx}
}

// CreateTemplate activates a new plan for the patient. Any previously
// active template is deactivated in the same transaction, so a patient
// has at most one active template and history survives as inactive rows.
func (s *Service) CreateTemplate(ctx context.Context, t *Template) error {
	if t.PatientID == uuid.Nil {
		return fault.Invalid("patient_id is required")
	}
	if t.EffectiveDate.IsZero() {
		return fault.Invalid("effective_date is required")
	}
	t.EffectiveDate = dateOnly(t.EffectiveDate)
	t.Active = true
	t.GeneratedThrough = nil
	return s.tx(ctx, func(ctx context.Context) error {
		if err := s.repo.Deactivate(ctx, t.PatientID); err != nil {
			return err
		}
		return s.repo.Create(ctx, t)
	})
}

func (s *Service) GetTemplate(ctx context.Context, id uuid.UUID) (*Template, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ActiveForPatient(ctx context.Context, patientID uuid.UUID) (*Template, error) {
	return s.repo.ActiveForPatient(ctx, patientID)
}

// WeekDetail pairs a rotation week with its events.
type WeekDetail struct {
	Week
	Events []*Event `json:"events"`
}

// TemplateDetail is the full plan: the template plus every week and
// event, weeks in rotation order.
type TemplateDetail struct {
	Template
	Weeks []WeekDetail `json:"weeks"`
}

func (s *Service) GetTemplateDetail(ctx context.Context, id uuid.UUID) (*TemplateDetail, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	weeks, err := s.repo.ListWeeks(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &TemplateDetail{Template: *t, Weeks: make([]WeekDetail, 0, len(weeks))}
	for _, w := range weeks {
		events, err := s.repo.ListEvents(ctx, w.ID)
		if err != nil {
			return nil, err
		}
		detail.Weeks = append(detail.Weeks, WeekDetail{Week: *w, Events: events})
	}
	return detail, nil
}

func (s *Service) AddWeek(ctx context.Context, w *Week) error {
	if w.WeekIndex < 0 {
		return fault.Invalid("week_index must not be negative")
	}
	if _, err := s.repo.GetByID(ctx, w.TemplateID); err != nil {
		return err
	}
	existing, err := s.repo.ListWeeks(ctx, w.TemplateID)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if e.WeekIndex == w.WeekIndex {
			return fault.Conflict("week %d already exists on template", w.WeekIndex)
		}
	}
	return s.repo.AddWeek(ctx, w)
}

// AddEvent rejects any slot that overlaps an existing one on the same
// week and weekday. Intervals are half-open, so back-to-back slots are
// allowed.
func (s *Service) AddEvent(ctx context.Context, e *Event) error {
	if e.DayOfWeek < 0 || e.DayOfWeek > 6 {
		return fault.Invalid("day_of_week must be 0 (Sunday) through 6 (Saturday)")
	}
	start, err := ParseClock(e.StartTime)
	if err != nil {
		return fault.Invalid("start_time: %v", err)
	}
	end, err := ParseClock(e.EndTime)
	if err != nil {
		return fault.Invalid("end_time: %v", err)
	}
	if start >= end {
		return fault.Invalid("start_time must be before end_time")
	}
	if e.AuthorizationID == uuid.Nil {
		return fault.Invalid("authorization_id is required")
	}
	if e.PlannedUnits.LessThanOrEqual(decimal.Zero) {
		return fault.Invalid("planned_units must be positive")
	}
	if _, err := s.repo.GetWeek(ctx, e.WeekID); err != nil {
		return err
	}
	existing, err := s.repo.ListEvents(ctx, e.WeekID)
	if err != nil {
		return err
	}
	for _, ev := range existing {
		if ev.DayOfWeek != e.DayOfWeek {
			continue
		}
		s2, _ := ParseClock(ev.StartTime)
		e2, _ := ParseClock(ev.EndTime)
		if Overlaps(start, end, s2, e2) {
			return fault.Conflict("slot %s-%s overlaps existing slot %s-%s", e.StartTime, e.EndTime, ev.StartTime, ev.EndTime)
		}
	}
	return s.repo.AddEvent(ctx, e)
}

func (s *Service) RemoveEvent(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetEvent(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteEvent(ctx, id)
}

// DeleteWeek removes a rotation week and its events together.
func (s *Service) DeleteWeek(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetWeek(ctx, id); err != nil {
		return err
	}
	return s.tx(ctx, func(ctx context.Context) error {
		if err := s.repo.DeleteEventsByWeek(ctx, id); err != nil {
			return err
		}
		return s.repo.DeleteWeek(ctx, id)
	})
}

// DeleteTemplate cascades bottom-up, events then weeks then the
// template, in one transaction.
func (s *Service) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.tx(ctx, func(ctx context.Context) error {
		if err := s.repo.DeleteEventsByTemplate(ctx, id); err != nil {
			return err
		}
		if err := s.repo.DeleteWeeksByTemplate(ctx, id); err != nil {
			return err
		}
		return s.repo.Delete(ctx, id)
	})
}

// AdvanceGeneratedThrough moves the watermark forward. A date at or
// behind the current watermark is a no-op, never a rollback.
func (s *Service) AdvanceGeneratedThrough(ctx context.Context, id uuid.UUID, through time.Time) error {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	through = dateOnly(through)
	if t.GeneratedThrough != nil && !through.After(*t.GeneratedThrough) {
		return nil
	}
	return s.repo.SetGeneratedThrough(ctx, id, through)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
