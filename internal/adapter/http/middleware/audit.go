package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"game-reward-service/internal/core/domain"
	"game-reward-service/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Route templates as reported by gin's FullPath.
const (
	RouteNonce        = "/api/v1/nonces"
	RouteRedeem       = "/api/v1/rewards/redeem"
	RouteResolve      = "/api/v1/admin/reconciliations/:id/resolve"
	RouteLegacyNonce  = "/api/generateNonce"
	RouteLegacyRedeem = "/api/savePoints"
)

// AuditLog records nonce issues, every redeem attempt and reconciliation
// resolutions once the handler has written its response.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		action, resourceType := mapRouteToAction(c.FullPath(), status)
		if action == "" {
			return
		}

		details := map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": status,
		}
		if reason := c.GetString(CtxRejectReason); reason != "" {
			details["reason"] = reason
		}
		if operator := c.GetString(CtxAdminSubject); operator != "" {
			details["operator"] = operator
		}
		raw, _ := json.Marshal(details)

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			Identifier:   c.GetString(CtxIdentifier),
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   c.GetString(CtxResourceID),
			IPAddress:    c.ClientIP(),
			Details:      string(raw),
			CreatedAt:    time.Now().UTC(),
		})
	}
}

func mapRouteToAction(route string, status int) (domain.AuditAction, string) {
	ok := status >= http.StatusOK && status < http.StatusMultipleChoices
	switch route {
	case RouteNonce, RouteLegacyNonce:
		if ok {
			return domain.AuditActionNonceIssued, "game_session"
		}
	case RouteRedeem, RouteLegacyRedeem:
		if ok {
			return domain.AuditActionRewardGranted, "award"
		}
		return domain.AuditActionRewardRejected, "game_session"
	case RouteResolve:
		if ok {
			return domain.AuditActionReconciliationResolved, "reconciliation"
		}
	}
	return "", ""
}
