package visit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// GetByID resolves the visit together with the owning therapist id
	// (joined through patients).
	GetByID(ctx context.Context, id uuid.UUID) (*Visit, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int, desc bool) ([]*Visit, int, error)
	Create(ctx context.Context, v *Visit) (*Visit, error)
	// Update and SaveRecommendations apply only when the stored updated_at
	// still equals expected; both return pgx.ErrNoRows when no row matched.
	Update(ctx context.Context, id uuid.UUID, visitDate time.Time, interview, description, recommendations string, expected time.Time) (*Visit, error)
	SaveRecommendations(ctx context.Context, id uuid.UUID, recommendations string, aiGenerated bool, aiGeneratedAt *time.Time, expected time.Time) (*Visit, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// GenerationChecker verifies that a generation log belongs to a visit of the
// calling therapist. Implemented by the generation repository; injected here
// to keep the dependency one-way.
type GenerationChecker interface {
	BelongsToVisit(ctx context.Context, generationID, visitID, therapistID uuid.UUID) (bool, error)
}
