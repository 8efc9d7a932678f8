package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"game-reward-service/config"
	redisStore "game-reward-service/internal/adapter/storage/redis"
	"game-reward-service/pkg/apperror"
	"game-reward-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Endpoint groups with their own counters.
const (
	GroupNonce       = "nonce"
	GroupRedeem      = "redeem"
	GroupLeaderboard = "leaderboard"
	GroupAdmin       = "admin"
)

// RateLimitStore counts requests per key in fixed windows.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*redisStore.RateLimitResult, error)
}

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// RateLimitRules derives per-group limits from configuration. Admin routes
// get a fifth of the public budget.
func RateLimitRules(cfg config.RateLimitConfig) map[string]RateLimitRule {
	admin := cfg.Limit / 5
	if admin < 1 {
		admin = 1
	}
	return map[string]RateLimitRule{
		GroupNonce:       {Limit: cfg.Limit, Window: cfg.Window},
		GroupRedeem:      {Limit: cfg.Limit, Window: cfg.Window},
		GroupLeaderboard: {Limit: cfg.Limit, Window: cfg.Window},
		GroupAdmin:       {Limit: admin, Window: cfg.Window},
	}
}

// RateLimiter creates a rate-limiting middleware for a given endpoint group,
// keyed by client IP.
func RateLimiter(store RateLimitStore, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", c.ClientIP(), group)

		result, err := store.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			retryAfter := result.ResetAt - time.Now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			c.Set(CtxRejectReason, "rate_limited")
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}
