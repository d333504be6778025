package profile

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Get(ctx context.Context, therapistID uuid.UUID) (*Profile, error)
	Create(ctx context.Context, p *Profile) (*Profile, error)
	// Update applies the new names only when the stored updated_at still
	// equals expected. Returns pgx.ErrNoRows when no row matched.
	Update(ctx context.Context, therapistID uuid.UUID, firstName, lastName string, expected time.Time) (*Profile, error)
}
