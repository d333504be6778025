package generation

import (
	"context"
	"fmt"

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

const generationCols = `id, visit_id, therapist_id, prompt, response, model, temperature, created_at`

func scanGeneration(row pgx.Row) (*Generation, error) {
	var g Generation
	err := row.Scan(&g.ID, &g.VisitID, &g.TherapistID, &g.Prompt, &g.Response, &g.Model, &g.Temperature, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *RepoPG) Append(ctx context.Context, g *Generation) (*Generation, error) {
	q := `INSERT INTO ai_generations (id, visit_id, therapist_id, prompt, response, model, temperature)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + generationCols
	return scanGeneration(r.conn(ctx).QueryRow(ctx, q,
		g.ID, g.VisitID, g.TherapistID, g.Prompt, g.Response, g.Model, g.Temperature))
}

func (r *RepoPG) List(ctx context.Context, visitID, therapistID uuid.UUID, limit, offset int, desc bool) ([]*Summary, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM ai_generations WHERE visit_id = $1 AND therapist_id = $2`,
		visitID, therapistID).Scan(&total); err != nil {
		return nil, 0, err
	}

	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	q := fmt.Sprintf(`SELECT id, model, temperature, created_at FROM ai_generations
		WHERE visit_id = $1 AND therapist_id = $2
		ORDER BY created_at %s, id %s LIMIT $3 OFFSET $4`, dir, dir)

	rows, err := r.conn(ctx).Query(ctx, q, visitID, therapistID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.Model, &s.Temperature, &s.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &s)
	}
	return items, total, rows.Err()
}

func (r *RepoPG) Get(ctx context.Context, visitID, therapistID, generationID uuid.UUID) (*Generation, error) {
	q := `SELECT ` + generationCols + ` FROM ai_generations
		WHERE id = $1 AND visit_id = $2 AND therapist_id = $3`
	return scanGeneration(r.conn(ctx).QueryRow(ctx, q, generationID, visitID, therapistID))
}

func (r *RepoPG) BelongsToVisit(ctx context.Context, generationID, visitID, therapistID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM ai_generations WHERE id = $1 AND visit_id = $2 AND therapist_id = $3)`,
		generationID, visitID, therapistID).Scan(&exists)
	return exists, err
}
