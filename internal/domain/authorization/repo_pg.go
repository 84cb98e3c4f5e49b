package authorization

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

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

const authCols = `id, patient_id, payer_service_id, start_date, end_date, max_units, created_at, updated_at`

func scanAuthorization(row pgx.Row) (*Authorization, error) {
	var a Authorization
	err := row.Scan(&a.ID, &a.PatientID, &a.PayerServiceID, &a.StartDate, &a.EndDate,
		&a.MaxUnits, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("authorization not found")
	}
	return &a, err
}

func (r *repoPG) Create(ctx context.Context, a *Authorization) error {
	a.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO authorization_period (id, patient_id, payer_service_id, start_date, end_date, max_units)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.PayerServiceID, a.StartDate, a.EndDate, a.MaxUnits,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Authorization, error) {
	return scanAuthorization(r.conn(ctx).QueryRow(ctx,
		`SELECT `+authCols+` FROM authorization_period WHERE id = $1`, id))
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Authorization, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM authorization_period WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+authCols+` FROM authorization_period WHERE patient_id = $1 ORDER BY start_date DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Authorization
	for rows.Next() {
		a, err := scanAuthorization(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

type ledgerRepoPG struct{ pool *pgxpool.Pool }

func NewLedgerRepoPG(pool *pgxpool.Pool) LedgerRepository { return &ledgerRepoPG{pool: pool} }

func (r *ledgerRepoPG) conn(ctx context.Context) db.Queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const ledgerCols = `id, authorization_id, source_type, source_id, service_date, units_used, missed, recorded_at`

func scanEntry(row pgx.Row) (*UnitConsumption, error) {
	var e UnitConsumption
	err := row.Scan(&e.ID, &e.AuthorizationID, &e.SourceType, &e.SourceID,
		&e.ServiceDate, &e.UnitsUsed, &e.Missed, &e.RecordedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("ledger entry not found")
	}
	return &e, err
}

func (r *ledgerRepoPG) Insert(ctx context.Context, e *UnitConsumption) error {
	e.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO unit_consumption (id, authorization_id, source_type, source_id, service_date, units_used, missed)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING recorded_at`,
		e.ID, e.AuthorizationID, e.SourceType, e.SourceID, e.ServiceDate, e.UnitsUsed, e.Missed,
	).Scan(&e.RecordedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fault.Conflict("consumption already posted for %s %s", e.SourceType, e.SourceID)
	}
	return err
}

func (r *ledgerRepoPG) GetBySource(ctx context.Context, sourceType SourceType, sourceID uuid.UUID) (*UnitConsumption, error) {
	return scanEntry(r.conn(ctx).QueryRow(ctx,
		`SELECT `+ledgerCols+` FROM unit_consumption WHERE source_type = $1 AND source_id = $2`,
		sourceType, sourceID))
}

func (r *ledgerRepoPG) ListByAuthorization(ctx context.Context, authorizationID uuid.UUID, limit, offset int) ([]*UnitConsumption, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM unit_consumption WHERE authorization_id = $1`, authorizationID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+ledgerCols+` FROM unit_consumption WHERE authorization_id = $1 ORDER BY recorded_at ASC LIMIT $2 OFFSET $3`,
		authorizationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*UnitConsumption
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

func (r *ledgerRepoPG) Totals(ctx context.Context, authorizationID uuid.UUID) (decimal.Decimal, decimal.Decimal, error) {
	var used, missed decimal.Decimal
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(SUM(units_used) FILTER (WHERE NOT missed), 0),
		       COALESCE(SUM(units_used) FILTER (WHERE missed), 0)
		FROM unit_consumption WHERE authorization_id = $1`, authorizationID,
	).Scan(&used, &missed)
	return used, missed, err
}
