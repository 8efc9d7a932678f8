package postgres

import (
	"context"
	"testing"
	"time"

	"game-reward-service/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDatabaseConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "rewards",
		Password: "rewards",
		DBName:   "game_rewards",
		SSLMode:  "disable",
		MaxConns: 20,
		MinConns: 2,
	}
}

func TestPoolConfig(t *testing.T) {
	cfg := testDatabaseConfig()
	cfg.ConnMaxLifetime = 30 * time.Minute

	poolCfg, err := poolConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, int32(20), poolCfg.MaxConns)
	assert.Equal(t, int32(2), poolCfg.MinConns)
	assert.Equal(t, 30*time.Minute, poolCfg.MaxConnLifetime)
	assert.Equal(t, "game_rewards", poolCfg.ConnConfig.Database)
	assert.Equal(t, uint16(5432), poolCfg.ConnConfig.Port)
}

func TestPoolConfig_ZeroLifetimeKeepsDefault(t *testing.T) {
	cfg := testDatabaseConfig()

	defaults, err := pgxpool.ParseConfig(cfg.DSN())
	require.NoError(t, err)

	poolCfg, err := poolConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, defaults.MaxConnLifetime, poolCfg.MaxConnLifetime)
	assert.Greater(t, poolCfg.MaxConnLifetime, time.Duration(0))
}

func TestNewPool_BadSSLMode(t *testing.T) {
	cfg := testDatabaseConfig()
	cfg.SSLMode = "sometimes"

	_, err := NewPool(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing database config")
}
