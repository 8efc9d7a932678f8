package handler

import (
	"net/http"

	"game-reward-service/internal/adapter/http/dto"
	"game-reward-service/internal/core/domain"
	"game-reward-service/internal/core/ports"
	"game-reward-service/pkg/response"

	"github.com/gin-gonic/gin"
)

// legacyTopLimit is the fixed size of the /api/top10 board.
const legacyTopLimit = 10

// PointsHandler handles leaderboard endpoints.
type PointsHandler struct {
	ledger ports.PointsLedger
}

// NewPointsHandler creates a new PointsHandler.
func NewPointsHandler(ledger ports.PointsLedger) *PointsHandler {
	return &PointsHandler{ledger: ledger}
}

// ListAll handles GET /api/v1/points.
func (h *PointsHandler) ListAll(c *gin.Context) {
	records, err := h.ledger.GetAll(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, toPointsEntries(records))
}

// ListTop handles GET /api/v1/points/top?limit=N.
func (h *PointsHandler) ListTop(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	records, err := h.ledger.GetTop(c.Request.Context(), limit)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, toPointsEntries(records))
}

// Get handles GET /api/v1/points/:wallet.
func (h *PointsHandler) Get(c *gin.Context) {
	rec, err := h.ledger.Get(c.Request.Context(), c.Param("wallet"))
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, dto.PointsEntry{Wallet: rec.Identifier, Points: rec.Points})
}

// LegacyGetPoints handles GET /api/getPoints.
func (h *PointsHandler) LegacyGetPoints(c *gin.Context) {
	records, err := h.ledger.GetAll(c.Request.Context())
	if err != nil {
		legacyFail(c, err)
		return
	}
	c.JSON(http.StatusOK, toPointsEntries(records))
}

// LegacyTop10 handles GET /api/top10.
func (h *PointsHandler) LegacyTop10(c *gin.Context) {
	records, err := h.ledger.GetTop(c.Request.Context(), legacyTopLimit)
	if err != nil {
		legacyFail(c, err)
		return
	}
	c.JSON(http.StatusOK, toPointsEntries(records))
}

func toPointsEntries(records []domain.PointsRecord) []dto.PointsEntry {
	out := make([]dto.PointsEntry, 0, len(records))
	for _, r := range records {
		out = append(out, dto.PointsEntry{Wallet: r.Identifier, Points: r.Points})
	}
	return out
}
