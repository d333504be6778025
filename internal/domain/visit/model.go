package visit

import (
	"time"

	"github.com/google/uuid"
)

// Visit is a dated clinical encounter owned by one patient. TherapistID is
// resolved through the patient join and never stored on the row itself.
type Visit struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patientId"`
	TherapistID     uuid.UUID  `db:"therapist_id" json:"-"`
	VisitDate       time.Time  `db:"visit_date" json:"visitDate"`
	Interview       string     `db:"interview" json:"interview"`
	Description     string     `db:"description" json:"description"`
	Recommendations string     `db:"recommendations" json:"recommendations"`
	RecommendationsGeneratedByAI bool       `db:"recommendations_generated_by_ai" json:"recommendationsGeneratedByAi"`
	AIGeneratedAt                *time.Time `db:"ai_generated_at" json:"aiGeneratedAt,omitempty"`
	CreatedAt                    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt                    time.Time  `db:"updated_at" json:"updatedAt"`
}

// UpsertRequest is the payload for creating or updating a visit.
// VisitDate uses the YYYY-MM-DD form.
type UpsertRequest struct {
	VisitDate       string `json:"visitDate"`
	Interview       string `json:"interview"`
	Description     string `json:"description"`
	Recommendations string `json:"recommendations"`
}

// RecommendationsRequest is the payload of the recommendations-save step.
// When AIGenerated is true, GenerationID must identify a generation log of
// this visit.
type RecommendationsRequest struct {
	Recommendations string     `json:"recommendations"`
	AIGenerated     bool       `json:"aiGenerated"`
	GenerationID    *uuid.UUID `json:"generationId,omitempty"`
}
