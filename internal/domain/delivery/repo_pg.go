package delivery

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caretrack/caretrack/internal/platform/db"
	"github.com/caretrack/caretrack/internal/platform/fault"
)

const uniqueViolation = "23505"

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const deliveryCols = `id, schedule_event_id, authorization_id, patient_id, staff_id, actual_staff_id,
	is_unscheduled, unscheduled_reason, start_at, end_at, units, elapsed_hours,
	approval_status, cancelled, cancel_reason, cancelled_by, cancelled_at, created_at, updated_at`

func scanDelivery(row pgx.Row) (*Delivery, error) {
	var d Delivery
	err := row.Scan(&d.ID, &d.ScheduleEventID, &d.AuthorizationID, &d.PatientID, &d.StaffID, &d.ActualStaffID,
		&d.IsUnscheduled, &d.UnscheduledReason, &d.StartAt, &d.EndAt, &d.Units, &d.ElapsedHours,
		&d.ApprovalStatus, &d.Cancelled, &d.CancelReason, &d.CancelledBy, &d.CancelledAt, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("delivery not found")
	}
	return &d, err
}

func (r *repoPG) Create(ctx context.Context, d *Delivery) error {
	d.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO service_delivery (id, schedule_event_id, authorization_id, patient_id, staff_id,
			actual_staff_id, is_unscheduled, unscheduled_reason, start_at, end_at, units, approval_status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at, updated_at`,
		d.ID, d.ScheduleEventID, d.AuthorizationID, d.PatientID, d.StaffID,
		d.ActualStaffID, d.IsUnscheduled, d.UnscheduledReason, d.StartAt, d.EndAt, d.Units, d.ApprovalStatus,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fault.Conflict("delivery already exists for occurrence")
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Delivery, error) {
	return scanDelivery(r.conn(ctx).QueryRow(ctx,
		`SELECT `+deliveryCols+` FROM service_delivery WHERE id = $1`, id))
}

func (r *repoPG) GetByScheduleEvent(ctx context.Context, scheduleEventID uuid.UUID) (*Delivery, error) {
	return scanDelivery(r.conn(ctx).QueryRow(ctx,
		`SELECT `+deliveryCols+` FROM service_delivery WHERE schedule_event_id = $1`, scheduleEventID))
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Delivery, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM service_delivery WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+deliveryCols+` FROM service_delivery WHERE patient_id = $1 ORDER BY start_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, d *Delivery) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE service_delivery
		SET actual_staff_id = $2, elapsed_hours = $3, approval_status = $4,
			cancelled = $5, cancel_reason = $6, cancelled_by = $7, cancelled_at = $8,
			updated_at = now()
		WHERE id = $1`,
		d.ID, d.ActualStaffID, d.ElapsedHours, d.ApprovalStatus,
		d.Cancelled, d.CancelReason, d.CancelledBy, d.CancelledAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fault.NotFound("delivery not found")
	}
	return nil
}

const checkEventCols = `id, delivery_id, event_type, occurred_at, latitude, longitude,
	accuracy_meters, distance_meters, status, created_at`

func scanCheckEvent(row pgx.Row) (*CheckEvent, error) {
	var e CheckEvent
	err := row.Scan(&e.ID, &e.DeliveryID, &e.EventType, &e.OccurredAt, &e.Latitude, &e.Longitude,
		&e.AccuracyMeters, &e.DistanceMeters, &e.Status, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("check event not found")
	}
	return &e, err
}

func (r *repoPG) InsertCheckEvent(ctx context.Context, e *CheckEvent) error {
	e.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO check_event (id, delivery_id, event_type, occurred_at, latitude, longitude,
			accuracy_meters, distance_meters, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at`,
		e.ID, e.DeliveryID, e.EventType, e.OccurredAt, e.Latitude, e.Longitude,
		e.AccuracyMeters, e.DistanceMeters, e.Status,
	).Scan(&e.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fault.Conflict("delivery already has a %s event", e.EventType)
	}
	return err
}

func (r *repoPG) ListCheckEvents(ctx context.Context, deliveryID uuid.UUID) ([]*CheckEvent, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+checkEventCols+` FROM check_event WHERE delivery_id = $1 ORDER BY occurred_at`, deliveryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []*CheckEvent
	for rows.Next() {
		e, err := scanCheckEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
