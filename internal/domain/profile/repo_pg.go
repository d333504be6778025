package profile

import (
	"context"
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

const profileCols = `id, first_name, last_name, created_at, updated_at`

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *RepoPG) Get(ctx context.Context, therapistID uuid.UUID) (*Profile, error) {
	q := `SELECT ` + profileCols + ` FROM profiles WHERE id = $1`
	return scanProfile(r.conn(ctx).QueryRow(ctx, q, therapistID))
}

func (r *RepoPG) Create(ctx context.Context, p *Profile) (*Profile, error) {
	q := `INSERT INTO profiles (id, first_name, last_name)
		VALUES ($1, $2, $3)
		RETURNING ` + profileCols
	return scanProfile(r.conn(ctx).QueryRow(ctx, q, p.ID, p.FirstName, p.LastName))
}

func (r *RepoPG) Update(ctx context.Context, therapistID uuid.UUID, firstName, lastName string, expected time.Time) (*Profile, error) {
	q := `UPDATE profiles
		SET first_name = $2, last_name = $3, updated_at = now()
		WHERE id = $1 AND updated_at = $4
		RETURNING ` + profileCols
	return scanProfile(r.conn(ctx).QueryRow(ctx, q, therapistID, firstName, lastName, expected))
}
