package patient

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	List(ctx context.Context, therapistID uuid.UUID, search string, limit, offset int, desc bool) ([]*Patient, int, error)
	Create(ctx context.Context, p *Patient) (*Patient, error)
	// Update applies new demographics only when the stored updated_at still
	// equals expected. Returns pgx.ErrNoRows when no row matched.
	Update(ctx context.Context, id uuid.UUID, firstName, lastName string, dateOfBirth *time.Time, expected time.Time) (*Patient, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
