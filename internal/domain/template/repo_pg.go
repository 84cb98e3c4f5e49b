package template

import (
	"context"
	"errors"
	"time"

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

const templateCols = `id, patient_id, effective_date, active, generated_through, created_at, updated_at`

func scanTemplate(row pgx.Row) (*Template, error) {
	var t Template
	err := row.Scan(&t.ID, &t.PatientID, &t.EffectiveDate, &t.Active,
		&t.GeneratedThrough, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("template not found")
	}
	return &t, err
}

func (r *repoPG) Create(ctx context.Context, t *Template) error {
	t.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO visit_template (id, patient_id, effective_date, active)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at, updated_at`,
		t.ID, t.PatientID, t.EffectiveDate, t.Active,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Template, error) {
	return scanTemplate(r.conn(ctx).QueryRow(ctx,
		`SELECT `+templateCols+` FROM visit_template WHERE id = $1`, id))
}

func (r *repoPG) ActiveForPatient(ctx context.Context, patientID uuid.UUID) (*Template, error) {
	return scanTemplate(r.conn(ctx).QueryRow(ctx,
		`SELECT `+templateCols+` FROM visit_template WHERE patient_id = $1 AND active`, patientID))
}

func (r *repoPG) Deactivate(ctx context.Context, patientID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE visit_template SET active = false, updated_at = now() WHERE patient_id = $1 AND active`,
		patientID)
	return err
}

func (r *repoPG) SetGeneratedThrough(ctx context.Context, id uuid.UUID, through time.Time) error {
	// GREATEST keeps the watermark monotonic even under concurrent runs.
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE visit_template
		SET generated_through = GREATEST(COALESCE(generated_through, $2::date), $2::date), updated_at = now()
		WHERE id = $1`, id, through)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM visit_template WHERE id = $1`, id)
	return err
}

const weekCols = `id, template_id, week_index, created_at`

func scanWeek(row pgx.Row) (*Week, error) {
	var w Week
	err := row.Scan(&w.ID, &w.TemplateID, &w.WeekIndex, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("week not found")
	}
	return &w, err
}

func (r *repoPG) AddWeek(ctx context.Context, w *Week) error {
	w.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO template_week (id, template_id, week_index)
		VALUES ($1,$2,$3)
		RETURNING created_at`,
		w.ID, w.TemplateID, w.WeekIndex,
	).Scan(&w.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fault.Conflict("week %d already exists on template", w.WeekIndex)
	}
	return err
}

func (r *repoPG) GetWeek(ctx context.Context, id uuid.UUID) (*Week, error) {
	return scanWeek(r.conn(ctx).QueryRow(ctx,
		`SELECT `+weekCols+` FROM template_week WHERE id = $1`, id))
}

func (r *repoPG) ListWeeks(ctx context.Context, templateID uuid.UUID) ([]*Week, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+weekCols+` FROM template_week WHERE template_id = $1 ORDER BY week_index`, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var weeks []*Week
	for rows.Next() {
		w, err := scanWeek(rows)
		if err != nil {
			return nil, err
		}
		weeks = append(weeks, w)
	}
	return weeks, rows.Err()
}

func (r *repoPG) DeleteWeek(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM template_week WHERE id = $1`, id)
	return err
}

func (r *repoPG) DeleteWeeksByTemplate(ctx context.Context, templateID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM template_week WHERE template_id = $1`, templateID)
	return err
}

const eventCols = `id, week_id, day_of_week, start_time, end_time, authorization_id, staff_id, planned_units, created_at`

func scanEvent(row pgx.Row) (*Event, error) {
	var e Event
	err := row.Scan(&e.ID, &e.WeekID, &e.DayOfWeek, &e.StartTime, &e.EndTime,
		&e.AuthorizationID, &e.StaffID, &e.PlannedUnits, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("template event not found")
	}
	return &e, err
}

func (r *repoPG) AddEvent(ctx context.Context, e *Event) error {
	e.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO template_event (id, week_id, day_of_week, start_time, end_time, authorization_id, staff_id, planned_units)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at`,
		e.ID, e.WeekID, e.DayOfWeek, e.StartTime, e.EndTime, e.AuthorizationID, e.StaffID, e.PlannedUnits,
	).Scan(&e.CreatedAt)
}

func (r *repoPG) GetEvent(ctx context.Context, id uuid.UUID) (*Event, error) {
	return scanEvent(r.conn(ctx).QueryRow(ctx,
		`SELECT `+eventCols+` FROM template_event WHERE id = $1`, id))
}

func (r *repoPG) ListEvents(ctx context.Context, weekID uuid.UUID) ([]*Event, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+eventCols+` FROM template_event WHERE week_id = $1 ORDER BY day_of_week, start_time`, weekID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *repoPG) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM template_event WHERE id = $1`, id)
	return err
}

func (r *repoPG) DeleteEventsByWeek(ctx context.Context, weekID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM template_event WHERE week_id = $1`, weekID)
	return err
}

func (r *repoPG) DeleteEventsByTemplate(ctx context.Context, templateID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		DELETE FROM template_event
		WHERE week_id IN (SELECT id FROM template_week WHERE template_id = $1)`, templateID)
	return err
}
