package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"game-reward-service/config"
	"game-reward-service/internal/adapter/storage/memory"
	"game-reward-service/internal/core/domain"
	"game-reward-service/internal/core/ports"
	"game-reward-service/internal/service"
	"game-reward-service/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rewardStack struct {
	store  *memory.Store
	nonces *service.NonceServiceImpl
	ledger *service.PointsLedgerImpl
	awards *service.AwardServiceImpl
	recons *service.ReconciliationServiceImpl
}

// brokenPoints fails every credit, leaving reads to the memory repo.
type brokenPoints struct {
	*memory.PointsRepo
}

func (brokenPoints) Credit(context.Context, pgx.Tx, string, int64) (int64, error) {
	return 0, errors.New("disk full")
}

func newRewardStack(t *testing.T, mode string, points ports.PointsRepository) *rewardStack {
	t.Helper()
	log := zerolog.Nop()
	store := memory.NewStore()
	tx := memory.NewTransactor(store)
	if points == nil {
		points = memory.NewPointsRepo(store)
	}

	ledgerCfg := service.LedgerConfig{DefaultLimit: 10, MaxLimit: 100, CacheTTL: time.Minute, Timeout: time.Second}
	nonces := service.NewNonceService(memory.NewNonceRepo(store), tx, time.Second, log)
	ledger := service.NewPointsLedger(points, tx, nil, ledgerCfg, log)
	awardRepo := memory.NewAwardRepo(store)
	recRepo := memory.NewReconciliationRepo(store)

	// Reconciliation always credits through a healthy ledger.
	goodLedger := service.NewPointsLedger(memory.NewPointsRepo(store), tx, nil, ledgerCfg, log)

	return &rewardStack{
		store:  store,
		nonces: nonces,
		ledger: ledger,
		awards: service.NewAwardService(nonces, ledger, awardRepo, recRepo, tx, service.AwardConfig{
			Amount:  domain.DefaultRewardAmount,
			Mode:    mode,
			Timeout: time.Second,
		}, log),
		recons: service.NewReconciliationService(recRepo, goodLedger, awardRepo, tx, time.Second, log),
	}
}

func (s *rewardStack) total(t *testing.T, identifier string) int64 {
	t.Helper()
	rec, err := s.ledger.Get(context.Background(), identifier)
	require.NoError(t, err)
	return rec.Points
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}

func TestRedeem_ConcurrentSameTokenGrantsOnce(t *testing.T) {
	for _, mode := range []string{config.RedeemModeAtomic, config.RedeemModeSequential} {
		t.Run(mode, func(t *testing.T) {
			s := newRewardStack(t, mode, nil)
			ctx := context.Background()

			token, err := s.awards.IssueNonce(ctx, "alice", "127.0.0.1")
			require.NoError(t, err)

			const workers = 32
			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				granted int
				denied  int
			)
			start := make(chan struct{})
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					_, err := s.awards.Redeem(ctx, ports.RedeemRequest{Identifier: "alice", Token: token})
					mu.Lock()
					defer mu.Unlock()
					if err == nil {
						granted++
						return
					}
					var appErr *apperror.AppError
					if errors.As(err, &appErr) && appErr.Code == "NONCE_001" {
						denied++
					}
				}()
			}
			close(start)
			wg.Wait()

			assert.Equal(t, 1, granted)
			assert.Equal(t, workers-1, denied)
			assert.Equal(t, domain.DefaultRewardAmount, s.total(t, "alice"))
		})
	}
}

func TestRedeem_FullLifecycle(t *testing.T) {
	s := newRewardStack(t, config.RedeemModeAtomic, nil)
	ctx := context.Background()

	first, err := s.awards.IssueNonce(ctx, "bob", "")
	require.NoError(t, err)
	second, err := s.awards.IssueNonce(ctx, "bob", "")
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	// Re-issue invalidated the first token.
	_, err = s.awards.Redeem(ctx, ports.RedeemRequest{Identifier: "bob", Token: first})
	requireCode(t, err, "NONCE_001")
	assert.Zero(t, s.total(t, "bob"))

	award, err := s.awards.Redeem(ctx, ports.RedeemRequest{Identifier: "bob", Token: second})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultRewardAmount, award.TotalAfter)

	// Replay
	_, err = s.awards.Redeem(ctx, ports.RedeemRequest{Identifier: "bob", Token: second})
	requireCode(t, err, "NONCE_001")

	// A token is bound to the identifier it was issued for.
	third, err := s.awards.IssueNonce(ctx, "bob", "")
	require.NoError(t, err)
	_, err = s.awards.Redeem(ctx, ports.RedeemRequest{Identifier: "carol", Token: third})
	requireCode(t, err, "NONCE_001")

	_, err = s.awards.Redeem(ctx, ports.RedeemRequest{Identifier: "bob", Token: third})
	require.NoError(t, err)
	assert.Equal(t, 2*domain.DefaultRewardAmount, s.total(t, "bob"))
}

func TestRedeem_InvalidIdentifierTouchesNothing(t *testing.T) {
	s := newRewardStack(t, config.RedeemModeAtomic, nil)

	_, err := s.awards.IssueNonce(context.Background(), "bad id!", "")
	requireCode(t, err, "VAL_001")

	_, err = s.awards.Redeem(context.Background(), ports.RedeemRequest{Identifier: "x'; DROP TABLE", Token: "abc"})
	requireCode(t, err, "VAL_001")

	all, err := s.ledger.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRedeem_AtomicCreditFailureKeepsTokenUsable(t *testing.T) {
	store := memory.NewStore()
	s := newRewardStack(t, config.RedeemModeAtomic, brokenPoints{memory.NewPointsRepo(store)})
	ctx := context.Background()

	token, err := s.awards.IssueNonce(ctx, "dave", "")
	require.NoError(t, err)

	_, err = s.awards.Redeem(ctx, ports.RedeemRequest{Identifier: "dave", Token: token})
	requireCode(t, err, "SYS_001")

	// The consumption rolled back with the failed credit.
	ok, err := s.nonces.ValidateAndConsume(ctx, "dave", token)
	require.NoError(t, err)
	assert.True(t, ok)

	pending, err := s.recons.ListPending(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRedeem_SequentialCreditFailureIsReconciled(t *testing.T) {
	store := memory.NewStore()
	s := newRewardStack(t, config.RedeemModeSequential, brokenPoints{memory.NewPointsRepo(store)})
	ctx := context.Background()

	token, err := s.awards.IssueNonce(ctx, "erin", "")
	require.NoError(t, err)

	_, err = s.awards.Redeem(ctx, ports.RedeemRequest{Identifier: "erin", Token: token})
	requireCode(t, err, "SYS_003")

	// The token stays consumed.
	_, err = s.awards.Redeem(ctx, ports.RedeemRequest{Identifier: "erin", Token: token})
	requireCode(t, err, "NONCE_001")

	pending, err := s.recons.ListPending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "erin", pending[0].Identifier)
	assert.Equal(t, domain.DefaultRewardAmount, pending[0].Amount)
	assert.Contains(t, pending[0].LastError, "disk full")

	award, err := s.recons.Resolve(ctx, pending[0].ID, "ops")
	require.NoError(t, err)
	assert.Equal(t, domain.AwardSourceReconciliation, award.Source)

	points, err := memory.NewPointsRepo(s.store).Get(ctx, "erin")
	require.NoError(t, err)
	require.NotNil(t, points)
	assert.Equal(t, domain.DefaultRewardAmount, points.Points)

	_, err = s.recons.Resolve(ctx, pending[0].ID, "ops")
	requireCode(t, err, "REC_002")

	pending, err = s.recons.ListPending(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestLedger_GetTopOrdering(t *testing.T) {
	s := newRewardStack(t, config.RedeemModeAtomic, nil)
	ctx := context.Background()

	for _, c := range []struct {
		id     string
		amount int64
	}{{"zed", 5}, {"amy", 5}, {"max", 9}, {"bo", 1}} {
		_, err := s.ledger.Credit(ctx, c.id, c.amount)
		require.NoError(t, err)
	}

	top, err := s.ledger.GetTop(ctx, 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, []string{"max", "amy", "zed"}, []string{top[0].Identifier, top[1].Identifier, top[2].Identifier})

	all, err := s.ledger.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}
