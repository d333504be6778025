package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient is a demographic record owned by exactly one therapist.
// Uniqueness is enforced per therapist on the lowercased name plus date of
// birth (see migrations).
type Patient struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	TherapistID uuid.UUID  `db:"therapist_id" json:"-"`
	FirstName   string     `db:"first_name" json:"firstName"`
	LastName    string     `db:"last_name" json:"lastName"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"dateOfBirth,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

// UpsertRequest is the payload for creating or updating a patient.
// DateOfBirth uses the YYYY-MM-DD form; empty clears the field.
type UpsertRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DateOfBirth string `json:"dateOfBirth"`
}
