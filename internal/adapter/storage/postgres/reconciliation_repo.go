package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"game-reward-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ReconciliationRepo implements ports.ReconciliationRepository.
type ReconciliationRepo struct {
	pool Pool
}

// NewReconciliationRepo creates a new ReconciliationRepo.
func NewReconciliationRepo(pool Pool) *ReconciliationRepo {
	return &ReconciliationRepo{pool: pool}
}

// Create inserts a pending reconciliation.
func (r *ReconciliationRepo) Create(ctx context.Context, rec *domain.Reconciliation) error {
	query := `INSERT INTO reconciliations (id, identifier, amount, token_hash, status, last_error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.Identifier, rec.Amount, rec.TokenHash,
		string(rec.Status), rec.LastError, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reconciliation: %w", err)
	}
	return nil
}

// GetByID fetches a reconciliation by ID.
func (r *ReconciliationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Reconciliation, error) {
	query := `SELECT id, identifier, amount, token_hash, status, last_error, created_at, resolved_at
		FROM reconciliations WHERE id = $1`

	rec := &domain.Reconciliation{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rec.ID, &rec.Identifier, &rec.Amount, &rec.TokenHash,
		&rec.Status, &rec.LastError, &rec.CreatedAt, &rec.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reconciliation: %w", err)
	}
	return rec, nil
}

// ListPending returns pending reconciliations, oldest first.
func (r *ReconciliationRepo) ListPending(ctx context.Context, limit int) ([]domain.Reconciliation, error) {
	query := `SELECT id, identifier, amount, token_hash, status, last_error, created_at, resolved_at
		FROM reconciliations WHERE status = $1 ORDER BY created_at ASC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, string(domain.ReconciliationPending), limit)
	if err != nil {
		return nil, fmt.Errorf("list pending reconciliations: %w", err)
	}
	defer rows.Close()

	recs := make([]domain.Reconciliation, 0)
	for rows.Next() {
		var rec domain.Reconciliation
		if err := rows.Scan(
			&rec.ID, &rec.Identifier, &rec.Amount, &rec.TokenHash,
			&rec.Status, &rec.LastError, &rec.CreatedAt, &rec.ResolvedAt,
		); err != nil {
			return nil, fmt.Errorf("scan reconciliation: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reconciliations: %w", err)
	}
	return recs, nil
}

// MarkResolved conditionally resolves a pending reconciliation within tx.
func (r *ReconciliationRepo) MarkResolved(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) (bool, error) {
	query := `UPDATE reconciliations SET status = $2, resolved_at = $3
		WHERE id = $1 AND status = $4`

	tag, err := tx.Exec(ctx, query, id,
		string(domain.ReconciliationResolved), at, string(domain.ReconciliationPending),
	)
	if err != nil {
		return false, fmt.Errorf("resolve reconciliation: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
