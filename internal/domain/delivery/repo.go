package delivery

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create stores a delivery. Returns fault.Conflict when one already
	// exists for the same schedule occurrence.
	Create(ctx context.Context, d *Delivery) error
	GetByID(ctx context.Context, id uuid.UUID) (*Delivery, error)
	GetByScheduleEvent(ctx context.Context, scheduleEventID uuid.UUID) (*Delivery, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Delivery, int, error)
	Update(ctx context.Context, d *Delivery) error

	// InsertCheckEvent stores a check event. Returns fault.Conflict when
	// the delivery already has one of the same type.
	InsertCheckEvent(ctx context.Context, e *CheckEvent) error
	ListCheckEvents(ctx context.Context, deliveryID uuid.UUID) ([]*CheckEvent, error)
}
