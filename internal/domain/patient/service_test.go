package patient

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/physio/physio/internal/platform/httperr"
	"github.com/physio/physio/pkg/pagination"
)

type fakeRepo struct {
	byID map[uuid.UUID]*Patient
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: make(map[uuid.UUID]*Patient)}
}

func (f *fakeRepo) identityTaken(p *Patient) bool {
	for _, other := range f.byID {
		if other.ID == p.ID || other.TherapistID != p.TherapistID {
			continue
		}
		if strings.EqualFold(other.FirstName, p.FirstName) &&
			strings.EqualFold(other.LastName, p.LastName) &&
			sameDate(other.DateOfBirth, p.DateOfBirth) {
			return true
		}
	}
	return false
}

func (f *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) List(ctx context.Context, therapistID uuid.UUID, search string, limit, offset int, desc bool) ([]*Patient, int, error) {
	var all []*Patient
	for _, p := range f.byID {
		if p.TherapistID != therapistID {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.FirstName), strings.ToLower(search)) &&
			!strings.Contains(strings.ToLower(p.LastName), strings.ToLower(search)) {
			continue
		}
		cp := *p
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		if desc {
			return all[i].LastName > all[j].LastName
		}
		return all[i].LastName < all[j].LastName
	})
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

func (f *fakeRepo) Create(ctx context.Context, p *Patient) (*Patient, error) {
	if f.identityTaken(p) {
		return nil, &pgconn.PgError{Code: "23505"}
	}
	// timestamptz carries microsecond precision
	now := time.Now().UTC().Truncate(time.Microsecond)
	p.CreatedAt = now
	p.UpdatedAt = now
	f.byID[p.ID] = p
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) Update(ctx context.Context, id uuid.UUID, firstName, lastName string, dob *time.Time, expected time.Time) (*Patient, error) {
	p, ok := f.byID[id]
	if !ok || !p.UpdatedAt.Equal(expected) {
		return nil, pgx.ErrNoRows
	}
	candidate := *p
	candidate.FirstName = firstName
	candidate.LastName = lastName
	candidate.DateOfBirth = dob
	if f.identityTaken(&candidate) {
		return nil, &pgconn.PgError{Code: "23505"}
	}
	candidate.UpdatedAt = bump(p.UpdatedAt)
	f.byID[id] = &candidate
	cp := candidate
	return &cp, nil
}

func (f *fakeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.byID[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.byID, id)
	return nil
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

func mustCreate(t *testing.T, svc *Service, therapistID uuid.UUID, first, last, dob string) *Patient {
	t.Helper()
	p, err := svc.Create(context.Background(), therapistID, UpsertRequest{FirstName: first, LastName: last, DateOfBirth: dob})
	if err != nil {
		t.Fatalf("create %s %s: %v", first, last, err)
	}
	return p
}

func TestGetOwned(t *testing.T) {
	svc := NewService(newFakeRepo())
	owner := uuid.New()
	stranger := uuid.New()
	p := mustCreate(t, svc, owner, "Jan", "Nowak", "")

	if _, err := svc.GetOwned(context.Background(), owner, p.ID); err != nil {
		t.Errorf("owner should see the patient: %v", err)
	}

	_, err := svc.GetOwned(context.Background(), stranger, p.ID)
	wantAppError(t, err, 403, "not_owned")

	_, err = svc.GetOwned(context.Background(), owner, uuid.New())
	wantAppError(t, err, 404, "not_found")
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(newFakeRepo())
	therapist := uuid.New()

	tests := []struct {
		name string
		req  UpsertRequest
	}{
		{"missing first name", UpsertRequest{LastName: "Nowak"}},
		{"missing last name", UpsertRequest{FirstName: "Jan"}},
		{"bad dob format", UpsertRequest{FirstName: "Jan", LastName: "Nowak", DateOfBirth: "01/02/1990"}},
		{"future dob", UpsertRequest{FirstName: "Jan", LastName: "Nowak", DateOfBirth: "2990-01-01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), therapist, tt.req)
			wantAppError(t, err, 400, "invalid_input")
		})
	}
}

func TestCreate_Duplicate(t *testing.T) {
	svc := NewService(newFakeRepo())
	therapist := uuid.New()
	mustCreate(t, svc, therapist, "Jan", "Nowak", "1985-03-20")

	// Same identity, case-insensitive.
	_, err := svc.Create(context.Background(), therapist, UpsertRequest{FirstName: "jan", LastName: "NOWAK", DateOfBirth: "1985-03-20"})
	wantAppError(t, err, 422, "validation_failed")

	// A different therapist may register the same person.
	if _, err := svc.Create(context.Background(), uuid.New(), UpsertRequest{FirstName: "Jan", LastName: "Nowak", DateOfBirth: "1985-03-20"}); err != nil {
		t.Errorf("uniqueness is per therapist: %v", err)
	}
}

func TestUpdate(t *testing.T) {
	svc := NewService(newFakeRepo())
	therapist := uuid.New()
	p := mustCreate(t, svc, therapist, "Jan", "Nowak", "1985-03-20")

	updated, err := svc.Update(context.Background(), therapist, p.ID,
		UpsertRequest{FirstName: "Jan", LastName: "Kowalski", DateOfBirth: "1985-03-20"}, p.UpdatedAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.LastName != "Kowalski" {
		t.Errorf("last name not updated: %+v", updated)
	}
	if !updated.UpdatedAt.After(p.UpdatedAt) {
		t.Error("update must advance the version timestamp")
	}
}

func TestUpdate_NoChanges(t *testing.T) {
	svc := NewService(newFakeRepo())
	therapist := uuid.New()
	p := mustCreate(t, svc, therapist, "Jan", "Nowak", "1985-03-20")

	_, err := svc.Update(context.Background(), therapist, p.ID,
		UpsertRequest{FirstName: "Jan", LastName: "Nowak", DateOfBirth: "1985-03-20"}, p.UpdatedAt)
	wantAppError(t, err, 400, "invalid_input")
}

// Two writers hold the same version token; the second write must fail with a
// conflict rather than silently overwrite the first.
func TestUpdate_TwoWriters(t *testing.T) {
	svc := NewService(newFakeRepo())
	therapist := uuid.New()
	p := mustCreate(t, svc, therapist, "Jan", "Nowak", "")
	token := p.UpdatedAt

	if _, err := svc.Update(context.Background(), therapist, p.ID,
		UpsertRequest{FirstName: "Jan", LastName: "Kowalski"}, token); err != nil {
		t.Fatalf("first writer: %v", err)
	}

	_, err := svc.Update(context.Background(), therapist, p.ID,
		UpsertRequest{FirstName: "Janusz", LastName: "Nowak"}, token)
	wantAppError(t, err, 409, "version_conflict")
}

// A stale token is a conflict even when the resubmitted payload happens to
// equal the current row.
func TestUpdate_StaleTokenIdenticalContent(t *testing.T) {
	svc := NewService(newFakeRepo())
	therapist := uuid.New()
	p := mustCreate(t, svc, therapist, "Jan", "Nowak", "1985-03-20")

	req := UpsertRequest{FirstName: "Jan", LastName: "Kowalski", DateOfBirth: "1985-03-20"}
	if _, err := svc.Update(context.Background(), therapist, p.ID, req, p.UpdatedAt); err != nil {
		t.Fatalf("first writer: %v", err)
	}

	// The same edit resubmitted with the original token.
	_, err := svc.Update(context.Background(), therapist, p.ID, req, p.UpdatedAt)
	wantAppError(t, err, 409, "version_conflict")
}

func TestUpdate_OwnershipGuard(t *testing.T) {
	svc := NewService(newFakeRepo())
	p := mustCreate(t, svc, uuid.New(), "Jan", "Nowak", "")

	_, err := svc.Update(context.Background(), uuid.New(), p.ID,
		UpsertRequest{FirstName: "Eve", LastName: "Intruder"}, p.UpdatedAt)
	wantAppError(t, err, 403, "not_owned")
}

func TestDelete(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	therapist := uuid.New()
	p := mustCreate(t, svc, therapist, "Jan", "Nowak", "")

	if err := svc.Delete(context.Background(), uuid.New(), p.ID); err == nil {
		t.Error("stranger delete should fail")
	}
	if err := svc.Delete(context.Background(), therapist, p.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if err := svc.Delete(context.Background(), therapist, p.ID); err == nil {
		t.Error("second delete should report not found")
	}
}

func TestList_SearchAndPaging(t *testing.T) {
	svc := NewService(newFakeRepo())
	therapist := uuid.New()
	names := []string{"Adamski", "Borowska", "Cieslak", "Dudek", "Borkowski"}
	for _, last := range names {
		mustCreate(t, svc, therapist, "Pat", last, "")
	}
	// Another therapist's patient must never appear.
	mustCreate(t, svc, uuid.New(), "Pat", "Borowska", "")

	items, total, err := svc.List(context.Background(), therapist, "bor", pagination.Params{Page: 1, PageSize: 10, Order: "asc"})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("search 'bor': got %d/%d, want 2/2", len(items), total)
	}
	for _, p := range items {
		if p.TherapistID != therapist {
			t.Error("list leaked another therapist's patient")
		}
	}

	page1, total, err := svc.List(context.Background(), therapist, "", pagination.Params{Page: 1, PageSize: 3, Order: "asc"})
	if err != nil {
		t.Fatal(err)
	}
	page2, _, err := svc.List(context.Background(), therapist, "", pagination.Params{Page: 2, PageSize: 3, Order: "asc"})
	if err != nil {
		t.Fatal(err)
	}
	if total != 5 || len(page1) != 3 || len(page2) != 2 {
		t.Errorf("paging: total=%d page1=%d page2=%d, want 5/3/2", total, len(page1), len(page2))
	}
}
