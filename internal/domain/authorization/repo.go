package authorization

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, a *Authorization) error
	GetByID(ctx context.Context, id uuid.UUID) (*Authorization, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Authorization, int, error)
}

// LedgerRepository persists unit-consumption entries. The ledger is
// append-only: there is no update or delete.
type LedgerRepository interface {
	// Insert appends an entry. Returns fault.Conflict when an entry for
	// the same (SourceType, SourceID) already exists.
	Insert(ctx context.Context, e *UnitConsumption) error
	GetBySource(ctx context.Context, sourceType SourceType, sourceID uuid.UUID) (*UnitConsumption, error)
	ListByAuthorization(ctx context.Context, authorizationID uuid.UUID, limit, offset int) ([]*UnitConsumption, int, error)
	// Totals returns the used (non-missed) and missed unit sums for an
	// authorization, aggregated over all entries.
	Totals(ctx context.Context, authorizationID uuid.UUID) (used, missed decimal.Decimal, err error)
}
