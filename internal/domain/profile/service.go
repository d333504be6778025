package profile

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/physio/physio/internal/platform/db"
	"github.com/physio/physio/internal/platform/httperr"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func validateNames(firstName, lastName string) error {
	if strings.TrimSpace(firstName) == "" {
		return httperr.InvalidInput("firstName is required")
	}
	if strings.TrimSpace(lastName) == "" {
		return httperr.InvalidInput("lastName is required")
	}
	return nil
}

func (s *Service) Get(ctx context.Context, therapistID uuid.UUID) (*Profile, error) {
	p, err := s.repo.Get(ctx, therapistID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, httperr.NotFound("profile")
		}
		return nil, httperr.StoreUnavailable(err)
	}
	return p, nil
}

func (s *Service) Create(ctx context.Context, therapistID uuid.UUID, req UpsertRequest) (*Profile, error) {
	if err := validateNames(req.FirstName, req.LastName); err != nil {
		return nil, err
	}

	p, err := s.repo.Create(ctx, &Profile{
		ID:        therapistID,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, httperr.ValidationFailed("profile already exists")
		}
		return nil, httperr.StoreUnavailable(err)
	}
	return p, nil
}

// Update applies the optimistic-concurrency protocol: the write happens only
// when the presented version token still identifies the stored row.
func (s *Service) Update(ctx context.Context, therapistID uuid.UUID, req UpsertRequest, expected time.Time) (*Profile, error) {
	if err := validateNames(req.FirstName, req.LastName); err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, therapistID)
	if err != nil {
		return nil, err
	}
	// Staleness is decided before anything else, including the no-change
	// check: a stale token is a conflict even when the payload matches the
	// current row.
	if !current.UpdatedAt.Equal(expected) {
		return nil, httperr.VersionConflict()
	}

	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	if current.FirstName == firstName && current.LastName == lastName {
		// Preserved source behavior: a no-op update is a client error.
		return nil, httperr.InvalidInput("no changes submitted")
	}

	p, err := s.repo.Update(ctx, therapistID, firstName, lastName, expected)
	if err != nil {
		if db.IsNoRows(err) {
			// The row exists (fetched above), so the token is stale.
			return nil, httperr.VersionConflict()
		}
		return nil, httperr.StoreUnavailable(err)
	}
	return p, nil
}
