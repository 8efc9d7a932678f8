package service

import (
	"context"
	"fmt"
	"time"

	"game-reward-service/internal/core/domain"
	"game-reward-service/internal/core/ports"
	"game-reward-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultReconciliationPage = 50
	maxReconciliationPage     = 500
)

// ReconciliationServiceImpl implements ports.ReconciliationService.
type ReconciliationServiceImpl struct {
	recs       ports.ReconciliationRepository
	ledger     ports.PointsLedger
	awards     ports.AwardRepository
	transactor ports.DBTransactor
	timeout    time.Duration
	now        func() time.Time
	log        zerolog.Logger
}

// NewReconciliationService creates a new ReconciliationServiceImpl.
func NewReconciliationService(
	recs ports.ReconciliationRepository,
	ledger ports.PointsLedger,
	awards ports.AwardRepository,
	transactor ports.DBTransactor,
	timeout time.Duration,
	log zerolog.Logger,
) *ReconciliationServiceImpl {
	return &ReconciliationServiceImpl{
		recs:       recs,
		ledger:     ledger,
		awards:     awards,
		transactor: transactor,
		timeout:    timeout,
		now:        func() time.Time { return time.Now().UTC() },
		log:        log,
	}
}

// ListPending returns pending reconciliations, oldest first.
func (s *ReconciliationServiceImpl) ListPending(ctx context.Context, limit int) ([]domain.Reconciliation, error) {
	if limit < 1 {
		limit = defaultReconciliationPage
	}
	if limit > maxReconciliationPage {
		limit = maxReconciliationPage
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	recs, err := s.recs.ListPending(ctx, limit)
	if err != nil {
		return nil, storageError(fmt.Errorf("list reconciliations: %w", err))
	}
	return recs, nil
}

// Resolve credits the owed amount exactly once. The conditional status
// update, the credit and the award commit together.
func (s *ReconciliationServiceImpl) Resolve(ctx context.Context, id uuid.UUID, operator string) (*domain.Award, error) {
	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rec, err := s.recs.GetByID(tctx, id)
	if err != nil {
		return nil, storageError(fmt.Errorf("get reconciliation: %w", err))
	}
	if rec == nil {
		return nil, apperror.ErrReconciliationNotFound()
	}
	if !rec.IsPending() {
		return nil, apperror.ErrReconciliationResolved()
	}

	dbTx, err := s.transactor.Begin(tctx)
	if err != nil {
		return nil, storageError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(tctx) //nolint:errcheck

	now := s.now()
	ok, err := s.recs.MarkResolved(tctx, dbTx, id, now)
	if err != nil {
		return nil, storageError(fmt.Errorf("mark reconciliation resolved: %w", err))
	}
	if !ok {
		// another operator won the race
		return nil, apperror.ErrReconciliationResolved()
	}

	award, err := creditAndRecord(tctx, s.ledger, s.awards, dbTx, rec.Identifier, rec.Amount,
		rec.TokenHash, domain.AwardSourceReconciliation, now)
	if err != nil {
		return nil, err
	}

	if err := dbTx.Commit(tctx); err != nil {
		return nil, storageError(fmt.Errorf("commit resolve: %w", err))
	}

	s.ledger.InvalidateCache(ctx)
	s.log.Info().
		Str("reconciliation_id", id.String()).
		Str("award_id", award.ID.String()).
		Str("identifier", rec.Identifier).
		Int64("amount", rec.Amount).
		Str("operator", operator).
		Msg("reconciliation resolved")
	return award, nil
}
