package ports

import (
	"context"
	"time"

	"game-reward-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

//go:generate mockgen -destination=mocks/mock_services.go -package=mocks game-reward-service/internal/core/ports NonceService,PointsLedger,AwardService,ReconciliationService,AuditService,AdminTokenService,LeaderboardCache

// --- Infrastructure Ports ---

// LeaderboardCache caches top-N query results. Implementations may be
// unavailable; callers treat every error as a cache miss.
//
// Generation must be read before the storage query whose result is passed
// to Set; Set drops the page if Invalidate ran in between.
type LeaderboardCache interface {
	Get(ctx context.Context, limit int) ([]domain.PointsRecord, bool, error)
	Generation(ctx context.Context) (int64, error)
	Set(ctx context.Context, limit int, gen int64, records []domain.PointsRecord, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// AdminTokenService handles JWTs for the operator endpoints.
type AdminTokenService interface {
	Generate(subject string) (string, time.Time, error)
	Validate(tokenString string) (*AdminClaims, error)
}

// AdminClaims holds the parsed admin JWT claims.
type AdminClaims struct {
	Subject string
}

// --- Service Ports (Business Logic) ---

// NonceService issues and consumes single-use game tokens.
type NonceService interface {
	Issue(ctx context.Context, identifier string) (string, error)
	// ValidateAndConsume consumes the token in its own transaction.
	ValidateAndConsume(ctx context.Context, identifier, token string) (bool, error)
	// ConsumeTx consumes the token inside tx; nothing is visible until commit.
	ConsumeTx(ctx context.Context, tx pgx.Tx, identifier, token string) (bool, error)
}

// PointsLedger is the cumulative score store.
type PointsLedger interface {
	Credit(ctx context.Context, identifier string, amount int64) (int64, error)
	CreditTx(ctx context.Context, tx pgx.Tx, identifier string, amount int64) (int64, error)
	Get(ctx context.Context, identifier string) (*domain.PointsRecord, error)
	GetAll(ctx context.Context) ([]domain.PointsRecord, error)
	GetTop(ctx context.Context, limit int) ([]domain.PointsRecord, error)
	// InvalidateCache drops cached leaderboards. Call after a credit commits.
	InvalidateCache(ctx context.Context)
}

// AwardService turns a finished game into a one-time credit.
type AwardService interface {
	IssueNonce(ctx context.Context, identifier, clientIP string) (string, error)
	Redeem(ctx context.Context, req RedeemRequest) (*domain.Award, error)
}

// RedeemRequest holds the input of one redeem attempt.
type RedeemRequest struct {
	Identifier string
	Token      string
	ClientIP   string
}

// ReconciliationService lets operators settle credits lost after consumption.
type ReconciliationService interface {
	ListPending(ctx context.Context, limit int) ([]domain.Reconciliation, error)
	Resolve(ctx context.Context, id uuid.UUID, operator string) (*domain.Award, error)
}

// AuditService records audit trail entries asynchronously.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
