package postgres

import (
	"context"
	"errors"
	"fmt"

	"game-reward-service/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// PointsRepo implements ports.PointsRepository.
type PointsRepo struct {
	pool Pool
}

// NewPointsRepo creates a new PointsRepo.
func NewPointsRepo(pool Pool) *PointsRepo {
	return &PointsRepo{pool: pool}
}

// Credit adds amount to the identifier's total within tx and returns the new total.
// The upsert takes the row lock, so concurrent credits never lose an update.
func (r *PointsRepo) Credit(ctx context.Context, tx pgx.Tx, identifier string, amount int64) (int64, error) {
	query := `INSERT INTO points (identifier, points, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (identifier) DO UPDATE
		SET points = points.points + EXCLUDED.points, updated_at = NOW()
		RETURNING points`

	var total int64
	if err := tx.QueryRow(ctx, query, identifier, amount).Scan(&total); err != nil {
		return 0, fmt.Errorf("credit points: %w", err)
	}
	return total, nil
}

// Get fetches one identifier's record.
func (r *PointsRepo) Get(ctx context.Context, identifier string) (*domain.PointsRecord, error) {
	query := `SELECT identifier, points, updated_at FROM points WHERE identifier = $1`

	p := &domain.PointsRecord{}
	err := r.pool.QueryRow(ctx, query, identifier).Scan(&p.Identifier, &p.Points, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get points: %w", err)
	}
	return p, nil
}

// List returns a snapshot of every record ordered by identifier.
func (r *PointsRepo) List(ctx context.Context) ([]domain.PointsRecord, error) {
	query := `SELECT identifier, points, updated_at FROM points ORDER BY identifier ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list points: %w", err)
	}
	return collectPoints(rows, "list points")
}

// ListTop returns the limit highest totals; ties break by identifier.
func (r *PointsRepo) ListTop(ctx context.Context, limit int) ([]domain.PointsRecord, error) {
	query := `SELECT identifier, points, updated_at FROM points
		ORDER BY points DESC, identifier ASC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list top points: %w", err)
	}
	return collectPoints(rows, "list top points")
}

func collectPoints(rows pgx.Rows, op string) ([]domain.PointsRecord, error) {
	defer rows.Close()

	records := make([]domain.PointsRecord, 0)
	for rows.Next() {
		var p domain.PointsRecord
		if err := rows.Scan(&p.Identifier, &p.Points, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		records = append(records, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows: %w", op, err)
	}
	return records, nil
}
