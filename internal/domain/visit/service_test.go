package visit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/physio/physio/internal/domain/patient"
	"github.com/physio/physio/internal/platform/db"
	"github.com/physio/physio/internal/platform/httperr"
	"github.com/physio/physio/pkg/pagination"
)

type fakeRepo struct {
	byID map[uuid.UUID]*Visit
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: make(map[uuid.UUID]*Visit)}
}

func (f *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*Visit, error) {
	v, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *v
	return &cp, nil
}

func (f *fakeRepo) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int, desc bool) ([]*Visit, int, error) {
	var all []*Visit
	for _, v := range f.byID {
		if v.PatientID == patientID {
			cp := *v
			all = append(all, &cp)
		}
	}
	total := len(all)
	if offset > total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (f *fakeRepo) Create(ctx context.Context, v *Visit) (*Visit, error) {
	// timestamptz carries microsecond precision
	now := time.Now().UTC().Truncate(time.Microsecond)
	v.CreatedAt = now
	v.UpdatedAt = now
	f.byID[v.ID] = v
	cp := *v
	return &cp, nil
}

func (f *fakeRepo) Update(ctx context.Context, id uuid.UUID, visitDate time.Time, interview, description, recommendations string, expected time.Time) (*Visit, error) {
	v, ok := f.byID[id]
	if !ok || !v.UpdatedAt.Equal(expected) {
		return nil, pgx.ErrNoRows
	}
	v.VisitDate = visitDate
	v.Interview = interview
	v.Description = description
	v.Recommendations = recommendations
	v.UpdatedAt = bump(v.UpdatedAt)
	cp := *v
	return &cp, nil
}

func (f *fakeRepo) SaveRecommendations(ctx context.Context, id uuid.UUID, recommendations string, aiGenerated bool, aiGeneratedAt *time.Time, expected time.Time) (*Visit, error) {
	v, ok := f.byID[id]
	if !ok || !v.UpdatedAt.Equal(expected) {
		return nil, pgx.ErrNoRows
	}
	v.Recommendations = recommendations
	v.RecommendationsGeneratedByAI = aiGenerated
	v.AIGeneratedAt = aiGeneratedAt
	v.UpdatedAt = bump(v.UpdatedAt)
	cp := *v
	return &cp, nil
}

func (f *fakeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.byID[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.byID, id)
	return nil
}

// fakePatients maps patient id to owning therapist id.
type fakePatients struct {
	owners map[uuid.UUID]uuid.UUID
}

func (f *fakePatients) GetOwned(ctx context.Context, therapistID, patientID uuid.UUID) (*patient.Patient, error) {
	owner, ok := f.owners[patientID]
	if !ok {
		return nil, httperr.NotFound("patient")
	}
	if owner != therapistID {
		return nil, httperr.NotOwned()
	}
	return &patient.Patient{ID: patientID, TherapistID: owner}, nil
}

// fakeGenerations maps generation id to the visit it belongs to.
type fakeGenerations struct {
	byID map[uuid.UUID]uuid.UUID
}

func (f *fakeGenerations) BelongsToVisit(ctx context.Context, generationID, visitID, therapistID uuid.UUID) (bool, error) {
	return f.byID[generationID] == visitID, nil
}

type fixture struct {
	svc         *Service
	repo        *fakeRepo
	generations *fakeGenerations
	therapist   uuid.UUID
	patientID   uuid.UUID
}

func newFixture() *fixture {
	repo := newFakeRepo()
	therapist := uuid.New()
	patientID := uuid.New()
	patients := &fakePatients{owners: map[uuid.UUID]uuid.UUID{patientID: therapist}}
	generations := &fakeGenerations{byID: make(map[uuid.UUID]uuid.UUID)}
	return &fixture{
		svc:         NewService(repo, patients, generations, db.PassthroughTxRunner()),
		repo:        repo,
		generations: generations,
		therapist:   therapist,
		patientID:   patientID,
	}
}

func (fx *fixture) seedVisit(t *testing.T, interview, description string) *Visit {
	t.Helper()
	v, err := fx.svc.Create(context.Background(), fx.therapist, fx.patientID, UpsertRequest{
		VisitDate:   "2024-02-10",
		Interview:   interview,
		Description: description,
	})
	if err != nil {
		t.Fatalf("seed visit: %v", err)
	}
	// Ownership resolution normally happens via the patient join.
	fx.repo.byID[v.ID].TherapistID = fx.therapist
	v.TherapistID = fx.therapist
	return v
}

// bump returns a microsecond-precision now, always strictly after prev.
func bump(prev time.Time) time.Time {
	now := time.Now().UTC().Truncate(time.Microsecond)
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}

func wantAppError(t *testing.T, err error, status int, code string) {
	t.Helper()
	var appErr *httperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *httperr.Error, got %T: %v", err, err)
	}
	if appErr.Status != status || appErr.Code != code {
		t.Errorf("got %d/%s, want %d/%s", appErr.Status, appErr.Code, status, code)
	}
}

func TestCreate_OwnershipGuard(t *testing.T) {
	fx := newFixture()

	_, err := fx.svc.Create(context.Background(), uuid.New(), fx.patientID, UpsertRequest{VisitDate: "2024-02-10"})
	wantAppError(t, err, 403, "not_owned")

	_, err = fx.svc.Create(context.Background(), fx.therapist, uuid.New(), UpsertRequest{VisitDate: "2024-02-10"})
	wantAppError(t, err, 404, "not_found")
}

func TestCreate_DateValidation(t *testing.T) {
	fx := newFixture()

	_, err := fx.svc.Create(context.Background(), fx.therapist, fx.patientID, UpsertRequest{})
	wantAppError(t, err, 400, "invalid_input")

	_, err = fx.svc.Create(context.Background(), fx.therapist, fx.patientID, UpsertRequest{VisitDate: "10.02.2024"})
	wantAppError(t, err, 400, "invalid_input")
}

func TestGetOwned(t *testing.T) {
	fx := newFixture()
	v := fx.seedVisit(t, "knee pain", "reduced flexion")

	if _, err := fx.svc.GetOwned(context.Background(), fx.therapist, v.ID); err != nil {
		t.Errorf("owner should see the visit: %v", err)
	}
	_, err := fx.svc.GetOwned(context.Background(), uuid.New(), v.ID)
	wantAppError(t, err, 403, "not_owned")
	_, err = fx.svc.GetOwned(context.Background(), fx.therapist, uuid.New())
	wantAppError(t, err, 404, "not_found")
}

func TestListByPatient_Guard(t *testing.T) {
	fx := newFixture()
	fx.seedVisit(t, "a", "b")

	_, _, err := fx.svc.ListByPatient(context.Background(), uuid.New(), fx.patientID, pagination.Params{Page: 1, PageSize: 10})
	wantAppError(t, err, 403, "not_owned")

	items, total, err := fx.svc.ListByPatient(context.Background(), fx.therapist, fx.patientID, pagination.Params{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(items) != 1 {
		t.Errorf("got %d/%d visits, want 1/1", len(items), total)
	}
}

func TestUpdate_NoChanges(t *testing.T) {
	fx := newFixture()
	v := fx.seedVisit(t, "knee pain", "reduced flexion")

	_, err := fx.svc.Update(context.Background(), fx.therapist, v.ID, UpsertRequest{
		VisitDate:   "2024-02-10",
		Interview:   "knee pain",
		Description: "reduced flexion",
	}, v.UpdatedAt)
	wantAppError(t, err, 400, "invalid_input")
}

func TestUpdate_TwoWriters(t *testing.T) {
	fx := newFixture()
	v := fx.seedVisit(t, "knee pain", "reduced flexion")
	token := v.UpdatedAt

	if _, err := fx.svc.Update(context.Background(), fx.therapist, v.ID, UpsertRequest{
		VisitDate: "2024-02-10",
		Interview: "knee pain, worse at night",
	}, token); err != nil {
		t.Fatalf("first writer: %v", err)
	}

	_, err := fx.svc.Update(context.Background(), fx.therapist, v.ID, UpsertRequest{
		VisitDate: "2024-02-11",
		Interview: "knee pain",
	}, token)
	wantAppError(t, err, 409, "version_conflict")
}

// A stale token is a conflict even when the resubmitted payload happens to
// equal the current row.
func TestUpdate_StaleTokenIdenticalContent(t *testing.T) {
	fx := newFixture()
	v := fx.seedVisit(t, "knee pain", "reduced flexion")
	token := v.UpdatedAt

	req := UpsertRequest{
		VisitDate: "2024-02-10",
		Interview: "knee pain, worse at night",
	}
	if _, err := fx.svc.Update(context.Background(), fx.therapist, v.ID, req, token); err != nil {
		t.Fatalf("first writer: %v", err)
	}

	// The same edit resubmitted with the original token.
	_, err := fx.svc.Update(context.Background(), fx.therapist, v.ID, req, token)
	wantAppError(t, err, 409, "version_conflict")
}

func TestSaveRecommendations(t *testing.T) {
	fx := newFixture()
	v := fx.seedVisit(t, "knee pain", "reduced flexion")

	saved, err := fx.svc.SaveRecommendations(context.Background(), fx.therapist, v.ID,
		RecommendationsRequest{Recommendations: "  quad sets 3x15 daily  "}, v.UpdatedAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.Recommendations != "quad sets 3x15 daily" {
		t.Errorf("recommendations not trimmed: %q", saved.Recommendations)
	}
	if saved.RecommendationsGeneratedByAI || saved.AIGeneratedAt != nil {
		t.Error("manual save must not carry the AI flag")
	}
	if !saved.UpdatedAt.After(v.UpdatedAt) {
		t.Error("save must advance the version timestamp")
	}
}

func TestSaveRecommendations_AIGenerated(t *testing.T) {
	fx := newFixture()
	v := fx.seedVisit(t, "knee pain", "reduced flexion")
	genID := uuid.New()
	fx.generations.byID[genID] = v.ID

	saved, err := fx.svc.SaveRecommendations(context.Background(), fx.therapist, v.ID,
		RecommendationsRequest{Recommendations: "quad sets", AIGenerated: true, GenerationID: &genID}, v.UpdatedAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !saved.RecommendationsGeneratedByAI {
		t.Error("AI flag should be set")
	}
	if saved.AIGeneratedAt == nil {
		t.Error("aiGeneratedAt should be set")
	}
}

func TestSaveRecommendations_Validation(t *testing.T) {
	fx := newFixture()
	v := fx.seedVisit(t, "knee pain", "reduced flexion")
	genID := uuid.New()

	// empty text
	_, err := fx.svc.SaveRecommendations(context.Background(), fx.therapist, v.ID,
		RecommendationsRequest{Recommendations: "   "}, v.UpdatedAt)
	wantAppError(t, err, 400, "invalid_input")

	// aiGenerated without a generation reference
	_, err = fx.svc.SaveRecommendations(context.Background(), fx.therapist, v.ID,
		RecommendationsRequest{Recommendations: "text", AIGenerated: true}, v.UpdatedAt)
	wantAppError(t, err, 400, "invalid_input")

	// generation belongs to a different visit
	fx.generations.byID[genID] = uuid.New()
	_, err = fx.svc.SaveRecommendations(context.Background(), fx.therapist, v.ID,
		RecommendationsRequest{Recommendations: "text", AIGenerated: true, GenerationID: &genID}, v.UpdatedAt)
	wantAppError(t, err, 404, "not_found")
}

func TestSaveRecommendations_StaleToken(t *testing.T) {
	fx := newFixture()
	v := fx.seedVisit(t, "knee pain", "reduced flexion")

	_, err := fx.svc.SaveRecommendations(context.Background(), fx.therapist, v.ID,
		RecommendationsRequest{Recommendations: "text"}, v.UpdatedAt.Add(-time.Second))
	wantAppError(t, err, 409, "version_conflict")
}

func TestDelete(t *testing.T) {
	fx := newFixture()
	v := fx.seedVisit(t, "a", "b")

	if err := fx.svc.Delete(context.Background(), uuid.New(), v.ID); err == nil {
		t.Error("stranger delete should fail")
	}
	if err := fx.svc.Delete(context.Background(), fx.therapist, v.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	err := fx.svc.Delete(context.Background(), fx.therapist, v.ID)
	wantAppError(t, err, 404, "not_found")
}
