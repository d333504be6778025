package visit

import (
	"context"
	"fmt"
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

const visitCols = `v.id, v.patient_id, p.therapist_id, v.visit_date, v.interview, v.description,
	v.recommendations, v.recommendations_generated_by_ai, v.ai_generated_at, v.created_at, v.updated_at`

func scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	err := row.Scan(&v.ID, &v.PatientID, &v.TherapistID, &v.VisitDate, &v.Interview, &v.Description,
		&v.Recommendations, &v.RecommendationsGeneratedByAI, &v.AIGeneratedAt, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *RepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Visit, error) {
	q := fmt.Sprintf(`SELECT %s FROM visits v JOIN patients p ON p.id = v.patient_id WHERE v.id = $1`, visitCols)
	return scanVisit(r.conn(ctx).QueryRow(ctx, q, id))
}

func (r *RepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int, desc bool) ([]*Visit, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM visits WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	q := fmt.Sprintf(`SELECT %s FROM visits v JOIN patients p ON p.id = v.patient_id
		WHERE v.patient_id = $1 ORDER BY v.visit_date %s, v.created_at %s LIMIT $2 OFFSET $3`, visitCols, dir, dir)

	rows, err := r.conn(ctx).Query(ctx, q, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, v)
	}
	return items, total, rows.Err()
}

func (r *RepoPG) Create(ctx context.Context, v *Visit) (*Visit, error) {
	q := fmt.Sprintf(`WITH inserted AS (
		INSERT INTO visits (id, patient_id, visit_date, interview, description, recommendations)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *
	)
	SELECT %s FROM inserted v JOIN patients p ON p.id = v.patient_id`, visitCols)
	return scanVisit(r.conn(ctx).QueryRow(ctx, q, v.ID, v.PatientID, v.VisitDate, v.Interview, v.Description, v.Recommendations))
}

func (r *RepoPG) Update(ctx context.Context, id uuid.UUID, visitDate time.Time, interview, description, recommendations string, expected time.Time) (*Visit, error) {
	q := fmt.Sprintf(`WITH updated AS (
		UPDATE visits
		SET visit_date = $2, interview = $3, description = $4, recommendations = $5, updated_at = now()
		WHERE id = $1 AND updated_at = $6
		RETURNING *
	)
	SELECT %s FROM updated v JOIN patients p ON p.id = v.patient_id`, visitCols)
	return scanVisit(r.conn(ctx).QueryRow(ctx, q, id, visitDate, interview, description, recommendations, expected))
}

func (r *RepoPG) SaveRecommendations(ctx context.Context, id uuid.UUID, recommendations string, aiGenerated bool, aiGeneratedAt *time.Time, expected time.Time) (*Visit, error) {
	q := fmt.Sprintf(`WITH updated AS (
		UPDATE visits
		SET recommendations = $2, recommendations_generated_by_ai = $3, ai_generated_at = $4, updated_at = now()
		WHERE id = $1 AND updated_at = $5
		RETURNING *
	)
	SELECT %s FROM updated v JOIN patients p ON p.id = v.patient_id`, visitCols)
	return scanVisit(r.conn(ctx).QueryRow(ctx, q, id, recommendations, aiGenerated, aiGeneratedAt, expected))
}

func (r *RepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM visits WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
