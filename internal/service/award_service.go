package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"game-reward-service/config"
	"game-reward-service/internal/core/domain"
	"game-reward-service/internal/core/ports"
	"game-reward-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// AwardConfig tunes AwardServiceImpl.
type AwardConfig struct {
	Amount  int64
	Mode    string // config.RedeemModeAtomic or config.RedeemModeSequential
	Timeout time.Duration
}

// AwardServiceImpl implements ports.AwardService.
type AwardServiceImpl struct {
	nonces     ports.NonceService
	ledger     ports.PointsLedger
	awards     ports.AwardRepository
	recs       ports.ReconciliationRepository
	transactor ports.DBTransactor
	cfg        AwardConfig
	now        func() time.Time
	log        zerolog.Logger
}

// NewAwardService creates a new AwardServiceImpl.
func NewAwardService(
	nonces ports.NonceService,
	ledger ports.PointsLedger,
	awards ports.AwardRepository,
	recs ports.ReconciliationRepository,
	transactor ports.DBTransactor,
	cfg AwardConfig,
	log zerolog.Logger,
) *AwardServiceImpl {
	return &AwardServiceImpl{
		nonces:     nonces,
		ledger:     ledger,
		awards:     awards,
		recs:       recs,
		transactor: transactor,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
		log:        log,
	}
}

// IssueNonce starts a game for identifier.
func (s *AwardServiceImpl) IssueNonce(ctx context.Context, identifier, clientIP string) (string, error) {
	token, err := s.nonces.Issue(ctx, identifier)
	if err != nil {
		return "", err
	}
	s.log.Info().Str("identifier", identifier).Str("ip", clientIP).Msg("game session started")
	return token, nil
}

// Redeem consumes the token and credits the reward. A token yields at most one credit.
func (s *AwardServiceImpl) Redeem(ctx context.Context, req ports.RedeemRequest) (*domain.Award, error) {
	if !domain.IsValidIdentifier(req.Identifier) {
		return nil, s.reject(req, apperror.ErrInvalidIdentifier())
	}

	if s.cfg.Mode == config.RedeemModeSequential {
		return s.redeemSequential(ctx, req)
	}
	return s.redeemAtomic(ctx, req)
}

// redeemAtomic consumes and credits in one transaction. If anything fails
// the consumption rolls back with it and the same token can be retried.
func (s *AwardServiceImpl) redeemAtomic(ctx context.Context, req ports.RedeemRequest) (*domain.Award, error) {
	tctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	dbTx, err := s.transactor.Begin(tctx)
	if err != nil {
		return nil, s.reject(req, storageError(fmt.Errorf("begin tx: %w", err)))
	}
	defer dbTx.Rollback(tctx) //nolint:errcheck

	ok, err := s.nonces.ConsumeTx(tctx, dbTx, req.Identifier, req.Token)
	if err != nil {
		return nil, s.reject(req, err)
	}
	if !ok {
		return nil, s.reject(req, apperror.ErrInvalidOrUsedNonce())
	}

	award, err := creditAndRecord(tctx, s.ledger, s.awards, dbTx, req.Identifier, s.cfg.Amount,
		domain.HashToken(req.Token), domain.AwardSourceRedeem, s.now())
	if err != nil {
		return nil, s.reject(req, err)
	}

	if err := dbTx.Commit(tctx); err != nil {
		return nil, s.reject(req, storageError(fmt.Errorf("commit redeem: %w", err)))
	}

	s.ledger.InvalidateCache(ctx)
	s.logGranted(award)
	return award, nil
}

// redeemSequential commits the consumption before crediting. A credit
// failure after that point leaves a pending reconciliation.
func (s *AwardServiceImpl) redeemSequential(ctx context.Context, req ports.RedeemRequest) (*domain.Award, error) {
	ok, err := s.nonces.ValidateAndConsume(ctx, req.Identifier, req.Token)
	if err != nil {
		return nil, s.reject(req, err)
	}
	if !ok {
		return nil, s.reject(req, apperror.ErrInvalidOrUsedNonce())
	}

	tokenHash := domain.HashToken(req.Token)
	award, err := s.creditCommitted(ctx, req.Identifier, tokenHash)
	if err != nil {
		return nil, s.openReconciliation(ctx, req.Identifier, tokenHash, err)
	}

	s.ledger.InvalidateCache(ctx)
	s.logGranted(award)
	return award, nil
}

func (s *AwardServiceImpl) creditCommitted(ctx context.Context, identifier, tokenHash string) (*domain.Award, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	award, err := creditAndRecord(ctx, s.ledger, s.awards, dbTx, identifier, s.cfg.Amount,
		tokenHash, domain.AwardSourceRedeem, s.now())
	if err != nil {
		return nil, err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit credit: %w", err)
	}
	return award, nil
}

func (s *AwardServiceImpl) openReconciliation(ctx context.Context, identifier, tokenHash string, cause error) error {
	rec := &domain.Reconciliation{
		ID:         uuid.New(),
		Identifier: identifier,
		Amount:     s.cfg.Amount,
		TokenHash:  tokenHash,
		Status:     domain.ReconciliationPending,
		LastError:  cause.Error(),
		CreatedAt:  s.now(),
	}

	// The request context may already be expired; the record must still land.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Timeout)
	defer cancel()

	ev := s.log.Error().
		Bool("alert", true).
		Err(cause).
		Str("identifier", identifier).
		Int64("amount", s.cfg.Amount)
	if err := s.recs.Create(rctx, rec); err != nil {
		ev.AnErr("reconciliation_error", err).Msg("nonce consumed but credit failed; reconciliation record NOT written")
	} else {
		ev.Str("reconciliation_id", rec.ID.String()).Msg("nonce consumed but credit failed; reconciliation pending")
	}
	return apperror.ErrPostConsumeCreditFailure(cause)
}

func (s *AwardServiceImpl) reject(req ports.RedeemRequest, err error) error {
	appErr := storageError(err)
	ev := s.log.Warn()
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		ev = s.log.Error().Err(appErr.Err)
	}
	ev.Str("identifier", req.Identifier).
		Str("ip", req.ClientIP).
		Str("code", appErr.Code).
		Str("reason", appErr.Reason).
		Msg("reward rejected")
	return appErr
}

func (s *AwardServiceImpl) logGranted(a *domain.Award) {
	s.log.Info().
		Str("award_id", a.ID.String()).
		Str("identifier", a.Identifier).
		Int64("amount", a.Amount).
		Int64("total", a.TotalAfter).
		Msg("reward granted")
}

// creditAndRecord credits amount and writes the award receipt inside tx.
func creditAndRecord(
	ctx context.Context,
	ledger ports.PointsLedger,
	awards ports.AwardRepository,
	tx pgx.Tx,
	identifier string,
	amount int64,
	tokenHash string,
	source domain.AwardSource,
	now time.Time,
) (*domain.Award, error) {
	total, err := ledger.CreditTx(ctx, tx, identifier, amount)
	if err != nil {
		return nil, err
	}

	award := &domain.Award{
		ID:         uuid.New(),
		Identifier: identifier,
		Amount:     amount,
		TotalAfter: total,
		TokenHash:  tokenHash,
		Source:     source,
		CreatedAt:  now,
	}
	if err := awards.Create(ctx, tx, award); err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.ErrAlreadyCredited()
		}
		return nil, storageError(fmt.Errorf("record award: %w", err))
	}
	return award, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
