package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/caretrack/caretrack/internal/domain/authorization"
	"github.com/caretrack/caretrack/internal/domain/template"
	"github.com/caretrack/caretrack/internal/platform/fault"
)

// -- Mock Repositories --

type eventKey struct {
	patientID uuid.UUID
	date      time.Time
	startAt   time.Time
}

type mockRepo struct {
	events map[uuid.UUID]*Event
	byKey  map[eventKey]uuid.UUID
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		events: make(map[uuid.UUID]*Event),
		byKey:  make(map[eventKey]uuid.UUID),
	}
}

func (m *mockRepo) Insert(_ context.Context, e *Event) error {
	key := eventKey{e.PatientID, e.EventDate, e.StartAt}
	if _, ok := m.byKey[key]; ok {
		return fault.Conflict("occurrence already exists")
	}
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	e.UpdatedAt = time.Now()
	m.events[e.ID] = e
	m.byKey[key] = e.ID
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Event, error) {
	e, ok := m.events[id]
	if !ok {
		return nil, fault.NotFound("schedule event not found")
	}
	return e, nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, from, to *time.Time, limit, offset int) ([]*Event, int, error) {
	var result []*Event
	for _, e := range m.events {
		if e.PatientID != patientID {
			continue
		}
		if from != nil && e.EventDate.Before(*from) {
			continue
		}
		if to != nil && e.EventDate.After(*to) {
			continue
		}
		result = append(result, e)
	}
	return result, len(result), nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, id uuid.UUID, status Status) error {
	e, ok := m.events[id]
	if !ok {
		return fault.NotFound("schedule event not found")
	}
	e.Status = status
	return nil
}

type mockTemplateRepo struct {
	templates map[uuid.UUID]*template.Template
	weeks     map[uuid.UUID]*template.Week
	events    map[uuid.UUID]*template.Event
}

func newMockTemplateRepo() *mockTemplateRepo {
	return &mockTemplateRepo{
		templates: make(map[uuid.UUID]*template.Template),
		weeks:     make(map[uuid.UUID]*template.Week),
		events:    make(map[uuid.UUID]*template.Event),
	}
}

func (m *mockTemplateRepo) Create(_ context.Context, t *template.Template) error {
	t.ID = uuid.New()
	m.templates[t.ID] = t
	return nil
}

func (m *mockTemplateRepo) GetByID(_ context.Context, id uuid.UUID) (*template.Template, error) {
	t, ok := m.templates[id]
	if !ok {
		return nil, fault.NotFound("template not found")
	}
	return t, nil
}

func (m *mockTemplateRepo) ActiveForPatient(_ context.Context, patientID uuid.UUID) (*template.Template, error) {
	for _, t := range m.templates {
		if t.PatientID == patientID && t.Active {
			return t, nil
		}
	}
	return nil, fault.NotFound("template not found")
}

func (m *mockTemplateRepo) Deactivate(_ context.Context, patientID uuid.UUID) error {
	for _, t := range m.templates {
		if t.PatientID == patientID {
			t.Active = false
		}
	}
	return nil
}

func (m *mockTemplateRepo) SetGeneratedThrough(_ context.Context, id uuid.UUID, through time.Time) error {
	t, ok := m.templates[id]
	if !ok {
		return fault.NotFound("template not found")
	}
	if t.GeneratedThrough == nil || through.After(*t.GeneratedThrough) {
		t.GeneratedThrough = &through
	}
	return nil
}

func (m *mockTemplateRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.templates, id)
	return nil
}

func (m *mockTemplateRepo) AddWeek(_ context.Context, w *template.Week) error {
	w.ID = uuid.New()
	m.weeks[w.ID] = w
	return nil
}

func (m *mockTemplateRepo) GetWeek(_ context.Context, id uuid.UUID) (*template.Week, error) {
	w, ok := m.weeks[id]
	if !ok {
		return nil, fault.NotFound("week not found")
	}
	return w, nil
}

func (m *mockTemplateRepo) ListWeeks(_ context.Context, templateID uuid.UUID) ([]*template.Week, error) {
	var result []*template.Week
	for _, w := range m.weeks {
		if w.TemplateID == templateID {
			result = append(result, w)
		}
	}
	return result, nil
}

func (m *mockTemplateRepo) DeleteWeek(_ context.Context, id uuid.UUID) error {
	delete(m.weeks, id)
	return nil
}

func (m *mockTemplateRepo) DeleteWeeksByTemplate(_ context.Context, templateID uuid.UUID) error {
	for id, w := range m.weeks {
		if w.TemplateID == templateID {
			delete(m.weeks, id)
		}
	}
	return nil
}

func (m *mockTemplateRepo) AddEvent(_ context.Context, e *template.Event) error {
	e.ID = uuid.New()
	m.events[e.ID] = e
	return nil
}

func (m *mockTemplateRepo) GetEvent(_ context.Context, id uuid.UUID) (*template.Event, error) {
	e, ok := m.events[id]
	if !ok {
		return nil, fault.NotFound("template event not found")
	}
	return e, nil
}

func (m *mockTemplateRepo) ListEvents(_ context.Context, weekID uuid.UUID) ([]*template.Event, error) {
	var result []*template.Event
	for _, e := range m.events {
		if e.WeekID == weekID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *mockTemplateRepo) DeleteEvent(_ context.Context, id uuid.UUID) error {
	delete(m.events, id)
	return nil
}

func (m *mockTemplateRepo) DeleteEventsByWeek(_ context.Context, weekID uuid.UUID) error {
	for id, e := range m.events {
		if e.WeekID == weekID {
			delete(m.events, id)
		}
	}
	return nil
}

func (m *mockTemplateRepo) DeleteEventsByTemplate(_ context.Context, templateID uuid.UUID) error {
	for wid, w := range m.weeks {
		if w.TemplateID != templateID {
			continue
		}
		for id, e := range m.events {
			if e.WeekID == wid {
				delete(m.events, id)
			}
		}
	}
	return nil
}

type mockAuthRepo struct {
	auths map[uuid.UUID]*authorization.Authorization
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{auths: make(map[uuid.UUID]*authorization.Authorization)}
}

func (m *mockAuthRepo) Create(_ context.Context, a *authorization.Authorization) error {
	a.ID = uuid.New()
	m.auths[a.ID] = a
	return nil
}

func (m *mockAuthRepo) GetByID(_ context.Context, id uuid.UUID) (*authorization.Authorization, error) {
	a, ok := m.auths[id]
	if !ok {
		return nil, fault.NotFound("authorization not found")
	}
	return a, nil
}

func (m *mockAuthRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*authorization.Authorization, int, error) {
	var result []*authorization.Authorization
	for _, a := range m.auths {
		if a.PatientID == patientID {
			result = append(result, a)
		}
	}
	return result, len(result), nil
}

type ledgerKey struct {
	sourceType authorization.SourceType
	sourceID   uuid.UUID
}

type mockLedgerRepo struct {
	entries map[ledgerKey]*authorization.UnitConsumption
}

func newMockLedgerRepo() *mockLedgerRepo {
	return &mockLedgerRepo{entries: make(map[ledgerKey]*authorization.UnitConsumption)}
}

func (m *mockLedgerRepo) Insert(_ context.Context, e *authorization.UnitConsumption) error {
	key := ledgerKey{e.SourceType, e.SourceID}
	if _, ok := m.entries[key]; ok {
		return fault.Conflict("consumption already posted")
	}
	e.ID = uuid.New()
	e.RecordedAt = time.Now()
	m.entries[key] = e
	return nil
}

func (m *mockLedgerRepo) GetBySource(_ context.Context, sourceType authorization.SourceType, sourceID uuid.UUID) (*authorization.UnitConsumption, error) {
	e, ok := m.entries[ledgerKey{sourceType, sourceID}]
	if !ok {
		return nil, fault.NotFound("ledger entry not found")
	}
	return e, nil
}

func (m *mockLedgerRepo) ListByAuthorization(_ context.Context, authorizationID uuid.UUID, limit, offset int) ([]*authorization.UnitConsumption, int, error) {
	var result []*authorization.UnitConsumption
	for _, e := range m.entries {
		if e.AuthorizationID == authorizationID {
			result = append(result, e)
		}
	}
	return result, len(result), nil
}

func (m *mockLedgerRepo) Totals(_ context.Context, authorizationID uuid.UUID) (decimal.Decimal, decimal.Decimal, error) {
	used, missed := decimal.Zero, decimal.Zero
	for _, e := range m.entries {
		if e.AuthorizationID != authorizationID {
			continue
		}
		if e.Missed {
			missed = missed.Add(e.UnitsUsed)
		} else {
			used = used.Add(e.UnitsUsed)
		}
	}
	return used, missed, nil
}

// -- Fixtures --

// effectiveMonday is a Monday, so weekday math is easy to read in the
// assertions below.
var effectiveMonday = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

type fixture struct {
	svc       *Service
	repo      *mockRepo
	templates *template.Service
	patientID uuid.UUID
	authID    uuid.UUID
}

// newFixture builds a two-week rotation: Wednesday 09:00-11:00 in week
// 0 and Friday 13:00-14:00 in week 1.
func newFixture(t *testing.T, postPlanned bool, ledger *authorization.Service, authID uuid.UUID) *fixture {
	t.Helper()
	ctx := context.Background()
	templates := template.NewService(newMockTemplateRepo(), nil)
	patientID := uuid.New()

	tpl := &template.Template{PatientID: patientID, EffectiveDate: effectiveMonday}
	if err := templates.CreateTemplate(ctx, tpl); err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}
	w0 := &template.Week{TemplateID: tpl.ID, WeekIndex: 0}
	w1 := &template.Week{TemplateID: tpl.ID, WeekIndex: 1}
	for _, w := range []*template.Week{w0, w1} {
		if err := templates.AddWeek(ctx, w); err != nil {
			t.Fatalf("AddWeek: %v", err)
		}
	}
	if err := templates.AddEvent(ctx, &template.Event{
		WeekID: w0.ID, DayOfWeek: 3, StartTime: "09:00", EndTime: "11:00",
		AuthorizationID: authID, PlannedUnits: decimal.NewFromInt(2),
	}); err != nil {
		t.Fatalf("AddEvent week 0: %v", err)
	}
	if err := templates.AddEvent(ctx, &template.Event{
		WeekID: w1.ID, DayOfWeek: 5, StartTime: "13:00", EndTime: "14:00",
		AuthorizationID: authID, PlannedUnits: decimal.NewFromInt(1),
	}); err != nil {
		t.Fatalf("AddEvent week 1: %v", err)
	}

	repo := newMockRepo()
	return &fixture{
		svc:       NewService(repo, templates, ledger, postPlanned),
		repo:      repo,
		templates: templates,
		patientID: patientID,
		authID:    authID,
	}
}

// -- Tests --

func TestGenerate_TwoWeekRotation(t *testing.T) {
	f := newFixture(t, false, nil, uuid.New())
	ctx := context.Background()

	// Three calendar weeks: rotation runs week 0, week 1, week 0.
	end := effectiveMonday.AddDate(0, 0, 20)
	summary, err := f.svc.Generate(ctx, f.patientID, end)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if summary.Created != 3 {
		t.Fatalf("created = %d, want 3", summary.Created)
	}
	if summary.Skipped != 0 || len(summary.Failures) != 0 {
		t.Errorf("unexpected skips (%d) or failures (%d)", summary.Skipped, len(summary.Failures))
	}

	wantDates := map[string]string{
		"2026-01-07": "09:00", // week 0 Wednesday
		"2026-01-16": "13:00", // week 1 Friday
		"2026-01-21": "09:00", // week 0 again
	}
	events, _, err := f.svc.ListByPatient(ctx, f.patientID, nil, nil, 50, 0)
	if err != nil {
		t.Fatalf("ListByPatient: %v", err)
	}
	for _, ev := range events {
		date := ev.EventDate.Format("2006-01-02")
		start, ok := wantDates[date]
		if !ok {
			t.Errorf("unexpected occurrence on %s", date)
			continue
		}
		if got := ev.StartAt.Format("15:04"); got != start {
			t.Errorf("occurrence on %s starts %s, want %s", date, got, start)
		}
		if ev.Status != StatusPlanned {
			t.Errorf("occurrence on %s status = %s, want planned", date, ev.Status)
		}
		delete(wantDates, date)
	}
	if len(wantDates) != 0 {
		t.Errorf("missing occurrences: %v", wantDates)
	}
}

func TestGenerate_RerunIsNoOp(t *testing.T) {
	f := newFixture(t, false, nil, uuid.New())
	ctx := context.Background()
	end := effectiveMonday.AddDate(0, 0, 13)

	first, err := f.svc.Generate(ctx, f.patientID, end)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Created != 2 {
		t.Fatalf("first run created = %d, want 2", first.Created)
	}

	second, err := f.svc.Generate(ctx, f.patientID, end)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Created != 0 {
		t.Errorf("second run created = %d, want 0", second.Created)
	}
	if len(f.repo.events) != 2 {
		t.Errorf("repo holds %d events, want 2", len(f.repo.events))
	}
}

func TestGenerate_ResumesFromWatermark(t *testing.T) {
	f := newFixture(t, false, nil, uuid.New())
	ctx := context.Background()

	if _, err := f.svc.Generate(ctx, f.patientID, effectiveMonday.AddDate(0, 0, 6)); err != nil {
		t.Fatalf("first run: %v", err)
	}
	summary, err := f.svc.Generate(ctx, f.patientID, effectiveMonday.AddDate(0, 0, 13))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	// Second run only covers the second week: the Friday slot.
	if summary.Created != 1 {
		t.Errorf("created = %d, want 1", summary.Created)
	}
}

func TestGenerate_SkipsExistingOccurrence(t *testing.T) {
	f := newFixture(t, false, nil, uuid.New())
	ctx := context.Background()

	// Same (patient, date, start) as the week-0 Wednesday slot.
	wednesday := effectiveMonday.AddDate(0, 0, 2)
	if err := f.repo.Insert(ctx, &Event{
		PatientID:       f.patientID,
		AuthorizationID: f.authID,
		EventDate:       wednesday,
		StartAt:         wednesday.Add(9 * time.Hour),
		EndAt:           wednesday.Add(11 * time.Hour),
		PlannedUnits:    decimal.NewFromInt(2),
		Status:          StatusConfirmed,
	}); err != nil {
		t.Fatalf("seed occurrence: %v", err)
	}

	summary, err := f.svc.Generate(ctx, f.patientID, effectiveMonday.AddDate(0, 0, 6))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if summary.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", summary.Skipped)
	}
	if summary.Created != 0 {
		t.Errorf("created = %d, want 0", summary.Created)
	}
}

func TestGenerate_NoActiveTemplate(t *testing.T) {
	templates := template.NewService(newMockTemplateRepo(), nil)
	svc := NewService(newMockRepo(), templates, nil, false)
	_, err := svc.Generate(context.Background(), uuid.New(), effectiveMonday.AddDate(0, 0, 6))
	if !fault.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestGenerate_PostsPlannedUnits(t *testing.T) {
	authRepo := newMockAuthRepo()
	ledgerRepo := newMockLedgerRepo()
	ledger := authorization.NewService(authRepo, ledgerRepo)

	ctx := context.Background()

	// The authorization must exist before planned units can post to it.
	a := &authorization.Authorization{
		PatientID:      uuid.New(),
		PayerServiceID: uuid.New(),
		StartDate:      effectiveMonday,
		MaxUnits:       decimal.NewFromInt(10),
	}
	if err := ledger.CreateAuthorization(ctx, a); err != nil {
		t.Fatalf("CreateAuthorization: %v", err)
	}
	f := newFixture(t, true, ledger, a.ID)

	summary, err := f.svc.Generate(ctx, f.patientID, effectiveMonday.AddDate(0, 0, 6))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if summary.Created != 1 {
		t.Fatalf("created = %d, want 1", summary.Created)
	}

	usage, err := ledger.Usage(ctx, a.ID)
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if !usage.TotalUsed.Equal(decimal.NewFromInt(2)) {
		t.Errorf("planned posting recorded %s units, want 2", usage.TotalUsed)
	}
}

func TestTransitions(t *testing.T) {
	f := newFixture(t, false, nil, uuid.New())
	ctx := context.Background()
	if _, err := f.svc.Generate(ctx, f.patientID, effectiveMonday.AddDate(0, 0, 6)); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	events, _, _ := f.svc.ListByPatient(ctx, f.patientID, nil, nil, 10, 0)
	if len(events) != 1 {
		t.Fatalf("expected 1 occurrence, got %d", len(events))
	}
	id := events[0].ID

	ev, err := f.svc.Confirm(ctx, id)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if ev.Status != StatusConfirmed {
		t.Errorf("status = %s, want confirmed", ev.Status)
	}

	if _, err := f.svc.MarkCompleted(ctx, id); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	// Completed occurrences stay completed.
	if _, err := f.svc.CancelEvent(ctx, id); !fault.IsConflict(err) {
		t.Errorf("cancelling a completed occurrence should conflict, got %v", err)
	}
}

func TestCancelEvent_FromPlanned(t *testing.T) {
	f := newFixture(t, false, nil, uuid.New())
	ctx := context.Background()
	if _, err := f.svc.Generate(ctx, f.patientID, effectiveMonday.AddDate(0, 0, 6)); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	events, _, _ := f.svc.ListByPatient(ctx, f.patientID, nil, nil, 10, 0)
	ev, err := f.svc.CancelEvent(ctx, events[0].ID)
	if err != nil {
		t.Fatalf("CancelEvent: %v", err)
	}
	if ev.Status != StatusCancelled {
		t.Errorf("status = %s, want cancelled", ev.Status)
	}
}
