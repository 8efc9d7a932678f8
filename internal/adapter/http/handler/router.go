package handler

import (
	"game-reward-service/config"
	"game-reward-service/internal/adapter/http/middleware"
	"game-reward-service/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AwardSvc       ports.AwardService
	Ledger         ports.PointsLedger
	ReconSvc       ports.ReconciliationService // nil = admin routes disabled
	AdminTokens    ports.AdminTokenService
	AuditSvc       ports.AuditService        // nil = audit logging disabled
	RateLimitStore middleware.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Server         config.ServerConfig
	RateLimit      config.RateLimitConfig
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.CORS(deps.Server.CORSOrigins))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	// Health check (deep: storage backend + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	rules := middleware.RateLimitRules(deps.RateLimit)

	// rl returns the group's limiter, or a no-op when rate limiting is off.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil || !deps.RateLimit.Enabled {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rules[group], deps.Logger)
	}

	rewards := NewRewardHandler(deps.AwardSvc)
	points := NewPointsHandler(deps.Ledger)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/nonces", rl(middleware.GroupNonce), rewards.IssueNonce)
		v1.POST("/rewards/redeem", rl(middleware.GroupRedeem), rewards.Redeem)
		v1.GET("/points", rl(middleware.GroupLeaderboard), points.ListAll)
		v1.GET("/points/top", rl(middleware.GroupLeaderboard), points.ListTop)
		v1.GET("/points/:wallet", rl(middleware.GroupLeaderboard), points.Get)
	}

	if deps.ReconSvc != nil && deps.AdminTokens != nil {
		admin := NewAdminHandler(deps.ReconSvc)
		adminGroup := v1.Group("/admin", rl(middleware.GroupAdmin), middleware.AdminAuth(deps.AdminTokens, deps.Logger))
		{
			adminGroup.GET("/reconciliations", admin.ListReconciliations)
			adminGroup.POST("/reconciliations/:id/resolve", admin.Resolve)
		}
	}

	// Routes the existing game client calls.
	if deps.Server.LegacyRoutes {
		legacy := r.Group("/api")
		{
			legacy.POST("/generateNonce", rl(middleware.GroupNonce), rewards.LegacyGenerateNonce)
			legacy.POST("/savePoints", rl(middleware.GroupRedeem), rewards.LegacySavePoints)
			legacy.GET("/getPoints", rl(middleware.GroupLeaderboard), points.LegacyGetPoints)
			legacy.GET("/top10", rl(middleware.GroupLeaderboard), points.LegacyTop10)
		}
	}

	return r
}
