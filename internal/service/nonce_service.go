package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"game-reward-service/internal/core/domain"
	"game-reward-service/internal/core/ports"
	"game-reward-service/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// NonceServiceImpl implements ports.NonceService.
type NonceServiceImpl struct {
	repo       ports.NonceRepository
	transactor ports.DBTransactor
	timeout    time.Duration
	entropy    io.Reader
	now        func() time.Time
	log        zerolog.Logger
}

// NewNonceService creates a new NonceServiceImpl. Every storage call is bounded by timeout.
func NewNonceService(repo ports.NonceRepository, transactor ports.DBTransactor, timeout time.Duration, log zerolog.Logger) *NonceServiceImpl {
	return &NonceServiceImpl{
		repo:       repo,
		transactor: transactor,
		timeout:    timeout,
		entropy:    rand.Reader,
		now:        func() time.Time { return time.Now().UTC() },
		log:        log,
	}
}

// Issue creates a fresh token for identifier, replacing any outstanding one.
// The plaintext token is returned once; only its digest is stored.
func (s *NonceServiceImpl) Issue(ctx context.Context, identifier string) (string, error) {
	if !domain.IsValidIdentifier(identifier) {
		return "", apperror.ErrInvalidIdentifier()
	}

	token, err := newToken(s.entropy)
	if err != nil {
		return "", apperror.InternalError(err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n := &domain.Nonce{
		Identifier: identifier,
		TokenHash:  domain.HashToken(token),
		IssuedAt:   s.now(),
	}
	if err := s.repo.Upsert(ctx, n); err != nil {
		appErr := storageError(fmt.Errorf("issue nonce: %w", err))
		s.log.Error().Err(err).Str("identifier", identifier).Str("code", appErr.Code).Msg("nonce issue failed")
		return "", appErr
	}

	s.log.Debug().Str("identifier", identifier).Msg("nonce issued")
	return token, nil
}

// ValidateAndConsume consumes the token in its own transaction.
func (s *NonceServiceImpl) ValidateAndConsume(ctx context.Context, identifier, token string) (bool, error) {
	if !domain.IsValidIdentifier(identifier) {
		return false, apperror.ErrInvalidIdentifier()
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return false, storageError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	ok, err := s.ConsumeTx(ctx, dbTx, identifier, token)
	if err != nil || !ok {
		return false, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return false, storageError(fmt.Errorf("commit consume: %w", err))
	}
	return true, nil
}

// ConsumeTx consumes the token inside the caller's transaction. It reports
// false, with no mutation, for unknown, mismatched or consumed tokens.
func (s *NonceServiceImpl) ConsumeTx(ctx context.Context, tx pgx.Tx, identifier, token string) (bool, error) {
	if !domain.IsValidIdentifier(identifier) {
		return false, apperror.ErrInvalidIdentifier()
	}
	if !wellFormedToken(token) {
		return false, nil
	}

	ok, err := s.repo.Consume(ctx, tx, identifier, domain.HashToken(token), s.now())
	if err != nil {
		return false, storageError(fmt.Errorf("consume nonce: %w", err))
	}
	return ok, nil
}

func newToken(r io.Reader) (string, error) {
	b := make([]byte, domain.TokenBytes)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("reading token entropy: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func wellFormedToken(token string) bool {
	if len(token) != 2*domain.TokenBytes {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}
