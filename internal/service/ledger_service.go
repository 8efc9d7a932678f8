package service

import (
	"context"
	"fmt"
	"time"

	"game-reward-service/internal/core/domain"
	"game-reward-service/internal/core/ports"
	"game-reward-service/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// LedgerConfig tunes PointsLedgerImpl.
type LedgerConfig struct {
	DefaultLimit int
	MaxLimit     int
	CacheTTL     time.Duration
	Timeout      time.Duration
}

// PointsLedgerImpl implements ports.PointsLedger.
type PointsLedgerImpl struct {
	repo       ports.PointsRepository
	transactor ports.DBTransactor
	cache      ports.LeaderboardCache // nil disables caching
	cfg        LedgerConfig
	log        zerolog.Logger
}

// NewPointsLedger creates a new PointsLedgerImpl. cache may be nil.
func NewPointsLedger(
	repo ports.PointsRepository,
	transactor ports.DBTransactor,
	cache ports.LeaderboardCache,
	cfg LedgerConfig,
	log zerolog.Logger,
) *PointsLedgerImpl {
	return &PointsLedgerImpl{
		repo:       repo,
		transactor: transactor,
		cache:      cache,
		cfg:        cfg,
		log:        log,
	}
}

// Credit adds amount to identifier's total in its own transaction.
func (s *PointsLedgerImpl) Credit(ctx context.Context, identifier string, amount int64) (int64, error) {
	if err := validateCredit(identifier, amount); err != nil {
		return 0, err
	}

	tctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	dbTx, err := s.transactor.Begin(tctx)
	if err != nil {
		return 0, storageError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(tctx) //nolint:errcheck

	total, err := s.CreditTx(tctx, dbTx, identifier, amount)
	if err != nil {
		return 0, err
	}
	if err := dbTx.Commit(tctx); err != nil {
		return 0, storageError(fmt.Errorf("commit credit: %w", err))
	}

	s.InvalidateCache(ctx)
	return total, nil
}

// CreditTx adds amount inside the caller's transaction. The caller must
// call InvalidateCache after committing.
func (s *PointsLedgerImpl) CreditTx(ctx context.Context, tx pgx.Tx, identifier string, amount int64) (int64, error) {
	if err := validateCredit(identifier, amount); err != nil {
		return 0, err
	}
	total, err := s.repo.Credit(ctx, tx, identifier, amount)
	if err != nil {
		return 0, storageError(fmt.Errorf("credit points: %w", err))
	}
	return total, nil
}

// Get returns identifier's record; an unknown identifier has zero points.
func (s *PointsLedgerImpl) Get(ctx context.Context, identifier string) (*domain.PointsRecord, error) {
	if !domain.IsValidIdentifier(identifier) {
		return nil, apperror.ErrInvalidIdentifier()
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	rec, err := s.repo.Get(ctx, identifier)
	if err != nil {
		return nil, storageError(fmt.Errorf("get points: %w", err))
	}
	if rec == nil {
		return &domain.PointsRecord{Identifier: identifier}, nil
	}
	return rec, nil
}

// GetAll returns a snapshot of every record.
func (s *PointsLedgerImpl) GetAll(ctx context.Context) ([]domain.PointsRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, storageError(fmt.Errorf("list points: %w", err))
	}
	return records, nil
}

// GetTop returns up to limit records, highest first. limit is clamped to
// [1, MaxLimit]; a non-positive limit means DefaultLimit.
func (s *PointsLedgerImpl) GetTop(ctx context.Context, limit int) ([]domain.PointsRecord, error) {
	limit = s.clampLimit(limit)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	// gen is read before storage so a credit committed during the query
	// keeps the stale page out of the cache.
	var gen int64
	cacheable := false
	if s.cache != nil {
		records, ok, err := s.cache.Get(ctx, limit)
		if err != nil {
			s.log.Warn().Err(err).Int("limit", limit).Msg("leaderboard cache read failed, falling through to storage")
		}
		if ok {
			return records, nil
		}
		if gen, err = s.cache.Generation(ctx); err != nil {
			s.log.Warn().Err(err).Msg("leaderboard cache generation unavailable, not caching")
		} else {
			cacheable = true
		}
	}

	records, err := s.repo.ListTop(ctx, limit)
	if err != nil {
		return nil, storageError(fmt.Errorf("list top points: %w", err))
	}

	if cacheable {
		if err := s.cache.Set(ctx, limit, gen, records, s.cfg.CacheTTL); err != nil {
			s.log.Warn().Err(err).Int("limit", limit).Msg("failed to cache leaderboard")
		}
	}
	return records, nil
}

// InvalidateCache drops cached leaderboards (best-effort).
func (s *PointsLedgerImpl) InvalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Timeout)
	defer cancel()
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("failed to invalidate leaderboard cache")
	}
}

func (s *PointsLedgerImpl) clampLimit(limit int) int {
	if limit < 1 {
		return s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		return s.cfg.MaxLimit
	}
	return limit
}

func validateCredit(identifier string, amount int64) error {
	if !domain.IsValidIdentifier(identifier) {
		return apperror.ErrInvalidIdentifier()
	}
	if amount <= 0 {
		return apperror.ErrInvalidAmount()
	}
	return nil
}
