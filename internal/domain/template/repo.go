package template

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, t *Template) error
	GetByID(ctx context.Context, id uuid.UUID) (*Template, error)
	ActiveForPatient(ctx context.Context, patientID uuid.UUID) (*Template, error)
	// Deactivate clears the active flag on every template belonging to
	// the patient.
	Deactivate(ctx context.Context, patientID uuid.UUID) error
	// SetGeneratedThrough moves the watermark. Implementations must not
	// move it backwards.
	SetGeneratedThrough(ctx context.Context, id uuid.UUID, through time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error

	AddWeek(ctx context.Context, w *Week) error
	GetWeek(ctx context.Context, id uuid.UUID) (*Week, error)
	ListWeeks(ctx context.Context, templateID uuid.UUID) ([]*Week, error)
	DeleteWeek(ctx context.Context, id uuid.UUID) error
	DeleteWeeksByTemplate(ctx context.Context, templateID uuid.UUID) error

	AddEvent(ctx context.Context, e *Event) error
	GetEvent(ctx context.Context, id uuid.UUID) (*Event, error)
	ListEvents(ctx context.Context, weekID uuid.UUID) ([]*Event, error)
	DeleteEvent(ctx context.Context, id uuid.UUID) error
	DeleteEventsByWeek(ctx context.Context, weekID uuid.UUID) error
	DeleteEventsByTemplate(ctx context.Context, templateID uuid.UUID) error
}
