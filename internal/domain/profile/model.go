package profile

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the therapist's own record. Its id equals the user id issued by
// the auth provider, so there is exactly one row per authenticated user.
type Profile struct {
	ID        uuid.UUID `db:"id" json:"id"`
	FirstName string    `db:"first_name" json:"firstName"`
	LastName  string    `db:"last_name" json:"lastName"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// UpsertRequest is the payload for creating or updating the profile.
type UpsertRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}
