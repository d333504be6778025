package generation

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Append(ctx context.Context, g *Generation) (*Generation, error)
	List(ctx context.Context, visitID, therapistID uuid.UUID, limit, offset int, desc bool) ([]*Summary, int, error)
	Get(ctx context.Context, visitID, therapistID, generationID uuid.UUID) (*Generation, error)
	BelongsToVisit(ctx context.Context, generationID, visitID, therapistID uuid.UUID) (bool, error)
}
