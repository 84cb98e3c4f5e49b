package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/caretrack/caretrack/internal/domain/authorization"
	"github.com/caretrack/caretrack/internal/domain/template"
	"github.com/caretrack/caretrack/internal/platform/fault"
	"github.com/caretrack/caretrack/internal/platform/telemetry"
)

type Service struct {
	repo      Repository
	templates *template.Service
	ledger    *authorization.Service
	// postPlanned posts planned units to the ledger as each occurrence
	// is created. Off by default; the delivered visit is the canonical
	// consumption source.
	postPlanned bool
}

func NewService(repo Repository, templates *template.Service, ledger *authorization.Service, postPlanned bool) *Service {
	return &Service{repo: repo, templates: templates, ledger: ledger, postPlanned: postPlanned}
}

// GenerateFailure records one date the materializer could not fully
// process. Generation continues past failures.
type GenerateFailure struct {
	Date   time.Time `json:"date"`
	Reason string    `json:"reason"`
}

type GenerateSummary struct {
	Created          int               `json:"created"`
	Skipped          int               `json:"skipped"`
	Failures         []GenerateFailure `json:"failures"`
	GeneratedThrough time.Time         `json:"generated_through"`
}

// Generate materializes the patient's active template day by day from
// the watermark (or the template's effective date on the first run)
// through endDate inclusive. The week rotation is anchored at the
// effective date, so a slot always lands on the same calendar weeks no
// matter when generation runs. Occurrences that already exist are
// skipped, which makes re-runs no-ops.
func (s *Service) Generate(ctx context.Context, patientID uuid.UUID, endDate time.Time) (*GenerateSummary, error) {
	started := time.Now()
	summary, err := s.generate(ctx, patientID, endDate)
	telemetry.MaterializerDuration.Observe(time.Since(started).Seconds())
	switch {
	case err != nil:
		telemetry.MaterializerRuns.WithLabelValues("error").Inc()
	case len(summary.Failures) > 0:
		telemetry.MaterializerRuns.WithLabelValues("partial").Inc()
	default:
		telemetry.MaterializerRuns.WithLabelValues("ok").Inc()
	}
	return summary, err
}

func (s *Service) generate(ctx context.Context, patientID uuid.UUID, endDate time.Time) (*GenerateSummary, error) {
	if endDate.IsZero() {
		return nil, fault.Invalid("end_date is required")
	}
	endDate = dateOnly(endDate)

	tpl, err := s.templates.ActiveForPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	detail, err := s.templates.GetTemplateDetail(ctx, tpl.ID)
	if err != nil {
		return nil, err
	}
	if len(detail.Weeks) == 0 {
		return nil, fault.Invalid("template has no weeks to generate from")
	}
	weekCount := 0
	byIndex := make(map[int][]*template.Event, len(detail.Weeks))
	for _, w := range detail.Weeks {
		byIndex[w.WeekIndex] = w.Events
		if w.WeekIndex+1 > weekCount {
			weekCount = w.WeekIndex + 1
		}
	}

	start := tpl.EffectiveDate
	if tpl.GeneratedThrough != nil && tpl.GeneratedThrough.AddDate(0, 0, 1).After(start) {
		start = tpl.GeneratedThrough.AddDate(0, 0, 1)
	}

	summary := &GenerateSummary{GeneratedThrough: endDate}
	for d := start; !d.After(endDate); d = d.AddDate(0, 0, 1) {
		weekOffset := (daysBetween(tpl.EffectiveDate, d) / 7) % weekCount
		for _, te := range byIndex[weekOffset] {
			if te.DayOfWeek != int(d.Weekday()) {
				continue
			}
			if err := s.materialize(ctx, tpl.PatientID, d, te, summary); err != nil {
				summary.Failures = append(summary.Failures, GenerateFailure{Date: d, Reason: err.Error()})
			}
		}
	}

	// The watermark covers the attempted range even when some dates
	// failed; failures are reported, not retried implicitly.
	if err := s.templates.AdvanceGeneratedThrough(ctx, tpl.ID, endDate); err != nil {
		return summary, err
	}
	telemetry.MaterializerOccurrences.Add(float64(summary.Created))
	return summary, nil
}

func (s *Service) materialize(ctx context.Context, patientID uuid.UUID, d time.Time, te *template.Event, summary *GenerateSummary) error {
	startMin, err := template.ParseClock(te.StartTime)
	if err != nil {
		return err
	}
	endMin, err := template.ParseClock(te.EndTime)
	if err != nil {
		return err
	}
	ev := &Event{
		PatientID:       patientID,
		TemplateEventID: &te.ID,
		AuthorizationID: te.AuthorizationID,
		StaffID:         te.StaffID,
		EventDate:       d,
		StartAt:         d.Add(time.Duration(startMin) * time.Minute),
		EndAt:           d.Add(time.Duration(endMin) * time.Minute),
		PlannedUnits:    te.PlannedUnits,
		Status:          StatusPlanned,
	}
	if err := s.repo.Insert(ctx, ev); err != nil {
		if fault.IsConflict(err) {
			summary.Skipped++
			return nil
		}
		return err
	}
	summary.Created++

	if s.postPlanned && s.ledger != nil {
		if _, err := s.ledger.PostConsumption(ctx, authorization.PostRequest{
			AuthorizationID: ev.AuthorizationID,
			SourceType:      authorization.SourceScheduleShift,
			SourceID:        ev.ID,
			ServiceDate:     d,
			Units:           ev.PlannedUnits,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) GetEvent(ctx context.Context, id uuid.UUID) (*Event, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, from, to *time.Time, limit, offset int) ([]*Event, int, error) {
	return s.repo.ListByPatient(ctx, patientID, from, to, limit, offset)
}

// Confirm marks a planned or draft occurrence as confirmed.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Event, error) {
	return s.transition(ctx, id, StatusConfirmed, StatusDraft, StatusPlanned)
}

// CancelEvent cancels any occurrence that has not been completed.
func (s *Service) CancelEvent(ctx context.Context, id uuid.UUID) (*Event, error) {
	return s.transition(ctx, id, StatusCancelled, StatusDraft, StatusPlanned, StatusConfirmed)
}

// MarkCompleted is called when the matching delivery finishes.
func (s *Service) MarkCompleted(ctx context.Context, id uuid.UUID) (*Event, error) {
	return s.transition(ctx, id, StatusCompleted, StatusDraft, StatusPlanned, StatusConfirmed)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to Status, from ...Status) (*Event, error) {
	ev, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ev.Status == to {
		return ev, nil
	}
	allowed := false
	for _, f := range from {
		if ev.Status == f {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fault.Conflict("cannot move %s occurrence to %s", ev.Status, to)
	}
	if err := s.repo.UpdateStatus(ctx, id, to); err != nil {
		return nil, err
	}
	ev.Status = to
	return ev, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(dateOnly(to).Sub(dateOnly(from)).Hours() / 24)
}
