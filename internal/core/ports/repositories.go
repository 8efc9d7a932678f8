package ports

import (
	"context"
	"time"

	"game-reward-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

//go:generate mockgen -destination=mocks/mock_repositories.go -package=mocks game-reward-service/internal/core/ports NonceRepository,PointsRepository,AwardRepository,ReconciliationRepository,AuditRepository,DBTransactor

// NonceRepository persists the current single-use token of each identifier.
// Methods accepting pgx.Tx run inside the caller's transaction.
type NonceRepository interface {
	// Upsert writes the record, replacing any previous token of the identifier.
	Upsert(ctx context.Context, nonce *domain.Nonce) error
	// Consume flips an unconsumed record matching (identifier, tokenHash) to consumed.
	// It returns true only when exactly one record changed.
	Consume(ctx context.Context, tx pgx.Tx, identifier, tokenHash string, at time.Time) (bool, error)
}

// PointsRepository persists cumulative scores.
type PointsRepository interface {
	// Credit adds amount to the identifier's total, creating the record if
	// absent, and returns the new total.
	Credit(ctx context.Context, tx pgx.Tx, identifier string, amount int64) (int64, error)
	Get(ctx context.Context, identifier string) (*domain.PointsRecord, error)
	List(ctx context.Context) ([]domain.PointsRecord, error)
	ListTop(ctx context.Context, limit int) ([]domain.PointsRecord, error)
}

// AwardRepository persists one receipt per credit.
type AwardRepository interface {
	Create(ctx context.Context, tx pgx.Tx, award *domain.Award) error
}

// ReconciliationRepository persists consumed tokens whose credit failed.
type ReconciliationRepository interface {
	Create(ctx context.Context, rec *domain.Reconciliation) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Reconciliation, error)
	ListPending(ctx context.Context, limit int) ([]domain.Reconciliation, error)
	// MarkResolved moves a pending record to resolved. It returns false when
	// the record was not pending.
	MarkResolved(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) (bool, error)
}

// AuditRepository defines persistence for audit trail entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
