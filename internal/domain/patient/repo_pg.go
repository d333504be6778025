package patient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/physio/physio/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type RepoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) *RepoPG {
	return &RepoPG{pool: pool}
}

func (r *RepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, therapist_id, first_name, last_name, date_of_birth, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.TherapistID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *RepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	q := `SELECT ` + patientCols + ` FROM patients WHERE id = $1`
	return scanPatient(r.conn(ctx).QueryRow(ctx, q, id))
}

func (r *RepoPG) List(ctx context.Context, therapistID uuid.UUID, search string, limit, offset int, desc bool) ([]*Patient, int, error) {
	where := []string{"therapist_id = $1"}
	args := []interface{}{therapistID}
	idx := 2

	if search != "" {
		where = append(where, fmt.Sprintf("(first_name ILIKE $%d OR last_name ILIKE $%d)", idx, idx))
		args = append(args, "%"+search+"%")
		idx++
	}

	whereClause := "WHERE " + strings.Join(where, " AND ")

	countQ := fmt.Sprintf("SELECT COUNT(*) FROM patients %s", whereClause)
	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	q := fmt.Sprintf("SELECT %s FROM patients %s ORDER BY last_name %s, first_name %s, id LIMIT $%d OFFSET $%d",
		patientCols, whereClause, dir, dir, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *RepoPG) Create(ctx context.Context, p *Patient) (*Patient, error) {
	q := `INSERT INTO patients (id, therapist_id, first_name, last_name, date_of_birth)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + patientCols
	return scanPatient(r.conn(ctx).QueryRow(ctx, q, p.ID, p.TherapistID, p.FirstName, p.LastName, p.DateOfBirth))
}

func (r *RepoPG) Update(ctx context.Context, id uuid.UUID, firstName, lastName string, dateOfBirth *time.Time, expected time.Time) (*Patient, error) {
	q := `UPDATE patients
		SET first_name = $2, last_name = $3, date_of_birth = $4, updated_at = now()
		WHERE id = $1 AND updated_at = $5
		RETURNING ` + patientCols
	return scanPatient(r.conn(ctx).QueryRow(ctx, q, id, firstName, lastName, dateOfBirth, expected))
}

func (r *RepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
