package postgres

import (
	"context"
	"fmt"

	"game-reward-service/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// AwardRepo implements ports.AwardRepository.
type AwardRepo struct {
	pool Pool
}

// NewAwardRepo creates a new AwardRepo.
func NewAwardRepo(pool Pool) *AwardRepo {
	return &AwardRepo{pool: pool}
}

// Create inserts an award within tx. token_hash is UNIQUE, so a second
// award for the same token fails and rolls the whole redeem back.
func (r *AwardRepo) Create(ctx context.Context, tx pgx.Tx, a *domain.Award) error {
	query := `INSERT INTO awards (id, identifier, amount, total_after, token_hash, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query,
		a.ID, a.Identifier, a.Amount, a.TotalAfter, a.TokenHash, string(a.Source), a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert award: %w", err)
	}
	return nil
}
