package postgres

import (
	"context"
	"fmt"
	"time"

	"game-reward-service/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// NonceRepo implements ports.NonceRepository on the game_sessions table.
type NonceRepo struct {
	pool Pool
}

// NewNonceRepo creates a new NonceRepo.
func NewNonceRepo(pool Pool) *NonceRepo {
	return &NonceRepo{pool: pool}
}

// Upsert writes the identifier's token, replacing any previous one.
func (r *NonceRepo) Upsert(ctx context.Context, n *domain.Nonce) error {
	query := `INSERT INTO game_sessions (identifier, token_hash, consumed, issued_at, consumed_at)
		VALUES ($1, $2, FALSE, $3, NULL)
		ON CONFLICT (identifier) DO UPDATE
		SET token_hash = EXCLUDED.token_hash, consumed = FALSE,
			issued_at = EXCLUDED.issued_at, consumed_at = NULL`

	_, err := r.pool.Exec(ctx, query, n.Identifier, n.TokenHash, n.IssuedAt)
	if err != nil {
		return fmt.Errorf("upsert game session: %w", err)
	}
	return nil
}

// Consume atomically flips a matching unconsumed row within tx.
// Concurrent callers race on the row lock; the losers re-check the
// WHERE clause after the winner commits and update nothing.
func (r *NonceRepo) Consume(ctx context.Context, tx pgx.Tx, identifier, tokenHash string, at time.Time) (bool, error) {
	query := `UPDATE game_sessions SET consumed = TRUE, consumed_at = $3
		WHERE identifier = $1 AND token_hash = $2 AND consumed = FALSE`

	tag, err := tx.Exec(ctx, query, identifier, tokenHash, at)
	if err != nil {
		return false, fmt.Errorf("consume game session: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
