package visit

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/physio/physio/internal/domain/patient"
	"github.com/physio/physio/internal/platform/db"
	"github.com/physio/physio/internal/platform/httperr"
	"github.com/physio/physio/pkg/pagination"
)

// PatientSource resolves owned patients. Implemented by patient.Service.
type PatientSource interface {
	GetOwned(ctx context.Context, therapistID, patientID uuid.UUID) (*patient.Patient, error)
}

type Service struct {
	repo        Repository
	patients    PatientSource
	generations GenerationChecker
	inTx        db.TxRunner
}

func NewService(repo Repository, patients PatientSource, generations GenerationChecker, inTx db.TxRunner) *Service {
	return &Service{repo: repo, patients: patients, generations: generations, inTx: inTx}
}

// GetOwned is the ownership guard: it resolves the visit and walks the
// ownership chain (visit → patient → therapist) before anything else runs.
func (s *Service) GetOwned(ctx context.Context, therapistID, visitID uuid.UUID) (*Visit, error) {
	v, err := s.repo.GetByID(ctx, visitID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, httperr.NotFound("visit")
		}
		return nil, httperr.StoreUnavailable(err)
	}
	if v.TherapistID != therapistID {
		return nil, httperr.NotOwned()
	}
	return v, nil
}

func (s *Service) ListByPatient(ctx context.Context, therapistID, patientID uuid.UUID, pg pagination.Params) ([]*Visit, int, error) {
	if _, err := s.patients.GetOwned(ctx, therapistID, patientID); err != nil {
		return nil, 0, err
	}
	items, total, err := s.repo.ListByPatient(ctx, patientID, pg.PageSize, pg.Offset(), pg.Descending())
	if err != nil {
		return nil, 0, httperr.StoreUnavailable(err)
	}
	return items, total, nil
}

func (s *Service) Create(ctx context.Context, therapistID, patientID uuid.UUID, req UpsertRequest) (*Visit, error) {
	if _, err := s.patients.GetOwned(ctx, therapistID, patientID); err != nil {
		return nil, err
	}

	visitDate, err := parseVisitDate(req.VisitDate)
	if err != nil {
		return nil, err
	}

	v, err := s.repo.Create(ctx, &Visit{
		ID:              uuid.New(),
		PatientID:       patientID,
		VisitDate:       visitDate,
		Interview:       strings.TrimSpace(req.Interview),
		Description:     strings.TrimSpace(req.Description),
		Recommendations: strings.TrimSpace(req.Recommendations),
	})
	if err != nil {
		return nil, httperr.StoreUnavailable(err)
	}
	return v, nil
}

func (s *Service) Update(ctx context.Context, therapistID, visitID uuid.UUID, req UpsertRequest, expected time.Time) (*Visit, error) {
	current, err := s.GetOwned(ctx, therapistID, visitID)
	if err != nil {
		return nil, err
	}
	// Staleness is decided before the no-change check: a stale token is a
	// conflict even when the payload matches the current row.
	if !current.UpdatedAt.Equal(expected) {
		return nil, httperr.VersionConflict()
	}

	visitDate, err := parseVisitDate(req.VisitDate)
	if err != nil {
		return nil, err
	}

	interview := strings.TrimSpace(req.Interview)
	description := strings.TrimSpace(req.Description)
	recommendations := strings.TrimSpace(req.Recommendations)

	if current.VisitDate.Equal(visitDate) && current.Interview == interview &&
		current.Description == description && current.Recommendations == recommendations {
		// Preserved source behavior: a no-op update is a client error.
		return nil, httperr.InvalidInput("no changes submitted")
	}

	v, err := s.repo.Update(ctx, visitID, visitDate, interview, description, recommendations, expected)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, httperr.VersionConflict()
		}
		return nil, httperr.StoreUnavailable(err)
	}
	return v, nil
}

// SaveRecommendations is the recommendation-save step of the AI workflow.
// When the caller marks the text as AI-generated, the referenced generation
// log must belong to this visit; check and write run in one transaction so a
// concurrent visit deletion cannot slip between them.
func (s *Service) SaveRecommendations(ctx context.Context, therapistID, visitID uuid.UUID, req RecommendationsRequest, expected time.Time) (*Visit, error) {
	recommendations := strings.TrimSpace(req.Recommendations)
	if recommendations == "" {
		return nil, httperr.InvalidInput("recommendations must not be empty")
	}
	if req.AIGenerated && req.GenerationID == nil {
		return nil, httperr.InvalidInput("generationId is required when aiGenerated is true")
	}

	var saved *Visit
	err := s.inTx(ctx, func(ctx context.Context) error {
		if _, err := s.GetOwned(ctx, therapistID, visitID); err != nil {
			return err
		}

		var aiGeneratedAt *time.Time
		if req.AIGenerated {
			ok, err := s.generations.BelongsToVisit(ctx, *req.GenerationID, visitID, therapistID)
			if err != nil {
				return httperr.StoreUnavailable(err)
			}
			if !ok {
				return httperr.NotFound("generation")
			}
			now := time.Now().UTC()
			aiGeneratedAt = &now
		}

		v, err := s.repo.SaveRecommendations(ctx, visitID, recommendations, req.AIGenerated, aiGeneratedAt, expected)
		if err != nil {
			if db.IsNoRows(err) {
				return httperr.VersionConflict()
			}
			return httperr.StoreUnavailable(err)
		}
		saved = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *Service) Delete(ctx context.Context, therapistID, visitID uuid.UUID) error {
	if _, err := s.GetOwned(ctx, therapistID, visitID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, visitID); err != nil {
		if db.IsNoRows(err) {
			return httperr.NotFound("visit")
		}
		return httperr.StoreUnavailable(err)
	}
	return nil
}

func parseVisitDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, httperr.InvalidInput("visitDate is required")
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, httperr.InvalidInput("visitDate must use the YYYY-MM-DD format")
	}
	return parsed, nil
}
