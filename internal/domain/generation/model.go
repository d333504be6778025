package generation

import (
	"time"

	"github.com/google/uuid"
)

// Generation is one immutable audit row: the exact prompt sent to the
// provider and the raw response received. Rows are never updated and are
// deleted only via cascade when the parent visit is deleted. TherapistID
// duplicates the owner for access-control filtering.
type Generation struct {
	ID          uuid.UUID `db:"id" json:"id"`
	VisitID     uuid.UUID `db:"visit_id" json:"visitId"`
	TherapistID uuid.UUID `db:"therapist_id" json:"-"`
	Prompt      string    `db:"prompt" json:"prompt"`
	Response    string    `db:"response" json:"aiResponse"`
	Model       string    `db:"model" json:"model"`
	Temperature float32   `db:"temperature" json:"temperature"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// Summary is the listing shape; the full prompt/response text stays out of
// pages.
type Summary struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Model       string    `db:"model" json:"model"`
	Temperature float32   `db:"temperature" json:"temperature"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// GenerateRequest is the payload of a generation request. Overrides are
// caller-supplied guidance appended to the prompt.
type GenerateRequest struct {
	Overrides map[string]string `json:"overrides,omitempty"`
}
