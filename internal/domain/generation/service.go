package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/physio/physio/internal/domain/visit"
	"github.com/physio/physio/internal/platform/db"
	"github.com/physio/physio/internal/platform/httperr"
	"github.com/physio/physio/internal/platform/llm"
	"github.com/physio/physio/pkg/pagination"
)

// VisitSource resolves owned visits. Implemented by visit.Service.
type VisitSource interface {
	GetOwned(ctx context.Context, therapistID, visitID uuid.UUID) (*visit.Visit, error)
}

// Config carries the provider parameters recorded with every generation.
type Config struct {
	Model             string
	Temperature       float32
	MinNarrativeChars int
}

type Service struct {
	repo   Repository
	visits VisitSource
	client llm.Client
	cfg    Config
	logger zerolog.Logger
}

func NewService(repo Repository, visits VisitSource, client llm.Client, cfg Config, logger zerolog.Logger) *Service {
	return &Service{repo: repo, visits: visits, client: client, cfg: cfg, logger: logger}
}

// Generate runs the whole workflow: ownership check, narrative gate, prompt
// construction, a single provider attempt, and audit persistence. The audit
// row is written only for successful completions; failed attempts surface as
// errors and leave no row behind.
func (s *Service) Generate(ctx context.Context, therapistID, visitID uuid.UUID, req GenerateRequest) (*Generation, error) {
	v, err := s.visits.GetOwned(ctx, therapistID, visitID)
	if err != nil {
		return nil, err
	}

	interview := strings.TrimSpace(v.Interview)
	description := strings.TrimSpace(v.Description)
	if len([]rune(interview))+len([]rune(description)) < s.cfg.MinNarrativeChars {
		return nil, httperr.InsufficientContext(fmt.Sprintf(
			"combined interview and description must be at least %d characters", s.cfg.MinNarrativeChars))
	}

	prompt := BuildPrompt(v.Interview, v.Description, v.Recommendations, req.Overrides)

	response, err := s.client.Generate(ctx, prompt, s.cfg.Model, s.cfg.Temperature)
	if err != nil {
		return nil, err
	}

	g, err := s.repo.Append(ctx, &Generation{
		ID:          uuid.New(),
		VisitID:     visitID,
		TherapistID: therapistID,
		Prompt:      prompt,
		Response:    response,
		Model:       s.cfg.Model,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return nil, httperr.StoreUnavailable(err)
	}

	s.logger.Info().
		Str("visit_id", visitID.String()).
		Str("generation_id", g.ID.String()).
		Str("model", g.Model).
		Int("prompt_chars", len(prompt)).
		Int("response_chars", len(response)).
		Msg("generation completed")

	return g, nil
}

func (s *Service) List(ctx context.Context, therapistID, visitID uuid.UUID, pg pagination.Params) ([]*Summary, int, error) {
	if _, err := s.visits.GetOwned(ctx, therapistID, visitID); err != nil {
		return nil, 0, err
	}
	items, total, err := s.repo.List(ctx, visitID, therapistID, pg.PageSize, pg.Offset(), pg.Descending())
	if err != nil {
		return nil, 0, httperr.StoreUnavailable(err)
	}
	return items, total, nil
}

func (s *Service) Get(ctx context.Context, therapistID, visitID, generationID uuid.UUID) (*Generation, error) {
	if _, err := s.visits.GetOwned(ctx, therapistID, visitID); err != nil {
		return nil, err
	}
	g, err := s.repo.Get(ctx, visitID, therapistID, generationID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, httperr.NotFound("generation")
		}
		return nil, httperr.StoreUnavailable(err)
	}
	return g, nil
}
