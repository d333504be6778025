package patient

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/physio/physio/internal/platform/db"
	"github.com/physio/physio/internal/platform/httperr"
	"github.com/physio/physio/pkg/pagination"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetOwned is the ownership guard: it resolves the patient and verifies it
// belongs to the calling therapist before anything else runs.
func (s *Service) GetOwned(ctx context.Context, therapistID, patientID uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, patientID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, httperr.NotFound("patient")
		}
		return nil, httperr.StoreUnavailable(err)
	}
	if p.TherapistID != therapistID {
		return nil, httperr.NotOwned()
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, therapistID uuid.UUID, search string, pg pagination.Params) ([]*Patient, int, error) {
	items, total, err := s.repo.List(ctx, therapistID, strings.TrimSpace(search), pg.PageSize, pg.Offset(), pg.Descending())
	if err != nil {
		return nil, 0, httperr.StoreUnavailable(err)
	}
	return items, total, nil
}

func (s *Service) Create(ctx context.Context, therapistID uuid.UUID, req UpsertRequest) (*Patient, error) {
	firstName, lastName, dob, err := parseUpsert(req)
	if err != nil {
		return nil, err
	}

	p, err := s.repo.Create(ctx, &Patient{
		ID:          uuid.New(),
		TherapistID: therapistID,
		FirstName:   firstName,
		LastName:    lastName,
		DateOfBirth: dob,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, httperr.ValidationFailed("a patient with this name and date of birth already exists")
		}
		return nil, httperr.StoreUnavailable(err)
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, therapistID, patientID uuid.UUID, req UpsertRequest, expected time.Time) (*Patient, error) {
	firstName, lastName, dob, err := parseUpsert(req)
	if err != nil {
		return nil, err
	}

	current, err := s.GetOwned(ctx, therapistID, patientID)
	if err != nil {
		return nil, err
	}
	// Staleness is decided before the no-change check: a stale token is a
	// conflict even when the payload matches the current row.
	if !current.UpdatedAt.Equal(expected) {
		return nil, httperr.VersionConflict()
	}

	if current.FirstName == firstName && current.LastName == lastName && sameDate(current.DateOfBirth, dob) {
		// Preserved source behavior: a no-op update is a client error.
		return nil, httperr.InvalidInput("no changes submitted")
	}

	p, err := s.repo.Update(ctx, patientID, firstName, lastName, dob, expected)
	if err != nil {
		switch {
		case db.IsNoRows(err):
			// The row exists and is owned (checked above): stale token.
			return nil, httperr.VersionConflict()
		case db.IsUniqueViolation(err):
			return nil, httperr.ValidationFailed("a patient with this name and date of birth already exists")
		default:
			return nil, httperr.StoreUnavailable(err)
		}
	}
	return p, nil
}

// Delete removes the patient; visits and generation logs go with it via
// the database cascade.
func (s *Service) Delete(ctx context.Context, therapistID, patientID uuid.UUID) error {
	if _, err := s.GetOwned(ctx, therapistID, patientID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, patientID); err != nil {
		if db.IsNoRows(err) {
			return httperr.NotFound("patient")
		}
		return httperr.StoreUnavailable(err)
	}
	return nil
}

func parseUpsert(req UpsertRequest) (firstName, lastName string, dob *time.Time, err error) {
	firstName = strings.TrimSpace(req.FirstName)
	lastName = strings.TrimSpace(req.LastName)
	if firstName == "" {
		return "", "", nil, httperr.InvalidInput("firstName is required")
	}
	if lastName == "" {
		return "", "", nil, httperr.InvalidInput("lastName is required")
	}

	if strings.TrimSpace(req.DateOfBirth) != "" {
		parsed, perr := time.Parse("2006-01-02", strings.TrimSpace(req.DateOfBirth))
		if perr != nil {
			return "", "", nil, httperr.InvalidInput("dateOfBirth must use the YYYY-MM-DD format")
		}
		if parsed.After(time.Now()) {
			return "", "", nil, httperr.InvalidInput("dateOfBirth must not be in the future")
		}
		dob = &parsed
	}
	return firstName, lastName, dob, nil
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
