package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/caretrack/caretrack/internal/domain/template"
	"github.com/caretrack/caretrack/internal/platform/fault"
)

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
