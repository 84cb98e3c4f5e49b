package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// Insert stores an occurrence. Returns fault.Conflict when one
	// already exists for the same (patient, date, start time).
	Insert(ctx context.Context, e *Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, from, to *time.Time, limit, offset int) ([]*Event, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
}
