package handler

import (
	"time"

	"game-reward-service/internal/adapter/http/dto"
	"game-reward-service/internal/adapter/http/middleware"
	"game-reward-service/internal/core/domain"
	"game-reward-service/internal/core/ports"
	"game-reward-service/pkg/apperror"
	"game-reward-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminHandler handles reconciliation endpoints for operators.
type AdminHandler struct {
	recons ports.ReconciliationService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(recons ports.ReconciliationService) *AdminHandler {
	return &AdminHandler{recons: recons}
}

// ListReconciliations handles GET /api/v1/admin/reconciliations?limit=N.
func (h *AdminHandler) ListReconciliations(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	recs, err := h.recons.ListPending(c.Request.Context(), limit)
	if err != nil {
		fail(c, err)
		return
	}

	items := make([]dto.ReconciliationResponse, 0, len(recs))
	for i := range recs {
		items = append(items, toReconciliationResponse(&recs[i]))
	}
	response.OK(c, items)
}

// Resolve handles POST /api/v1/admin/reconciliations/:id/resolve.
func (h *AdminHandler) Resolve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, apperror.Validation("invalid reconciliation id"))
		return
	}
	c.Set(middleware.CtxResourceID, id.String())

	award, err := h.recons.Resolve(c.Request.Context(), id, c.GetString(middleware.CtxAdminSubject))
	if err != nil {
		fail(c, err)
		return
	}
	c.Set(middleware.CtxIdentifier, award.Identifier)

	response.OK(c, dto.ResolveResponse{
		ReconciliationID: id.String(),
		AwardID:          award.ID.String(),
		Wallet:           award.Identifier,
		Points:           award.Amount,
		Total:            award.TotalAfter,
	})
}

func toReconciliationResponse(r *domain.Reconciliation) dto.ReconciliationResponse {
	resp := dto.ReconciliationResponse{
		ID:        r.ID.String(),
		Wallet:    r.Identifier,
		Amount:    r.Amount,
		Status:    string(r.Status),
		LastError: r.LastError,
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
	}
	if r.ResolvedAt != nil {
		s := r.ResolvedAt.Format(time.RFC3339)
		resp.ResolvedAt = &s
	}
	return resp
}
