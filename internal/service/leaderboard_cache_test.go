package service_test

import (
	"context"
	"testing"
	"time"

	"game-reward-service/internal/adapter/storage/memory"
	redisStore "game-reward-service/internal/adapter/storage/redis"
	"game-reward-service/internal/core/domain"
	"game-reward-service/internal/service"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// creditDuringRead commits a credit right after the board was read from
// storage, before the reader gets to cache it.
type creditDuringRead struct {
	*memory.PointsRepo
	credit func()
}

func (r *creditDuringRead) ListTop(ctx context.Context, limit int) ([]domain.PointsRecord, error) {
	records, err := r.PointsRepo.ListTop(ctx, limit)
	if r.credit != nil {
		credit := r.credit
		r.credit = nil
		credit()
	}
	return records, err
}

func TestPointsLedger_CreditDuringTopReadIsNotCachedStale(t *testing.T) {
	ctx := context.Background()
	log := zerolog.Nop()
	store := memory.NewStore()
	tx := memory.NewTransactor(store)

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := redisStore.NewLeaderboardCache(client)

	cfg := service.LedgerConfig{DefaultLimit: 10, MaxLimit: 100, CacheTTL: time.Minute, Timeout: time.Second}
	writer := service.NewPointsLedger(memory.NewPointsRepo(store), tx, cache, cfg, log)

	repo := &creditDuringRead{PointsRepo: memory.NewPointsRepo(store)}
	repo.credit = func() {
		_, err := writer.Credit(ctx, "alice", domain.DefaultRewardAmount)
		require.NoError(t, err)
	}
	reader := service.NewPointsLedger(repo, tx, cache, cfg, log)

	// This read raced the credit, so it may return the old board.
	first, err := reader.GetTop(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, first)

	all, err := reader.GetAll(ctx)
	require.NoError(t, err)
	require.Equal(t, []domain.PointsRecord{{Identifier: "alice", Points: domain.DefaultRewardAmount}},
		stripTimes(all))

	top, err := reader.GetTop(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, stripTimes(all), stripTimes(top))
}

func TestPointsLedger_TopIsCachedBetweenCredits(t *testing.T) {
	ctx := context.Background()
	log := zerolog.Nop()
	store := memory.NewStore()
	tx := memory.NewTransactor(store)

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := service.LedgerConfig{DefaultLimit: 10, MaxLimit: 100, CacheTTL: time.Minute, Timeout: time.Second}
	ledger := service.NewPointsLedger(memory.NewPointsRepo(store), tx, redisStore.NewLeaderboardCache(client), cfg, log)

	_, err := ledger.Credit(ctx, "bob", 5)
	require.NoError(t, err)

	_, err = ledger.GetTop(ctx, 10)
	require.NoError(t, err)
	assert.True(t, mr.Exists("leaderboard:top"), "an uncontended read fills the cache")

	_, err = ledger.Credit(ctx, "alice", 7)
	require.NoError(t, err)
	assert.False(t, mr.Exists("leaderboard:top"))

	top, err := ledger.GetTop(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "alice", top[0].Identifier)
}

func stripTimes(records []domain.PointsRecord) []domain.PointsRecord {
	out := make([]domain.PointsRecord, len(records))
	for i, r := range records {
		out[i] = domain.PointsRecord{Identifier: r.Identifier, Points: r.Points}
	}
	return out
}
