package handler

import (
	"fmt"
	"net/http"

	"game-reward-service/internal/adapter/http/dto"
	"game-reward-service/internal/adapter/http/middleware"
	"game-reward-service/internal/core/domain"
	"game-reward-service/internal/core/ports"
	"game-reward-service/pkg/response"

	"github.com/gin-gonic/gin"
)

// RewardHandler handles game session and reward endpoints.
type RewardHandler struct {
	awards ports.AwardService
}

// NewRewardHandler creates a new RewardHandler.
func NewRewardHandler(awards ports.AwardService) *RewardHandler {
	return &RewardHandler{awards: awards}
}

// IssueNonce handles POST /api/v1/nonces.
func (h *RewardHandler) IssueNonce(c *gin.Context) {
	nonce, err := h.issue(c)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, dto.NonceResponse{Nonce: nonce})
}

// Redeem handles POST /api/v1/rewards/redeem.
func (h *RewardHandler) Redeem(c *gin.Context) {
	award, err := h.redeem(c)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, dto.RedeemResponse{
		Status:  "granted",
		AwardID: award.ID.String(),
		Points:  award.Amount,
		Total:   award.TotalAfter,
	})
}

// LegacyGenerateNonce handles POST /api/generateNonce.
func (h *RewardHandler) LegacyGenerateNonce(c *gin.Context) {
	nonce, err := h.issue(c)
	if err != nil {
		legacyFail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NonceResponse{Nonce: nonce})
}

// LegacySavePoints handles POST /api/savePoints.
func (h *RewardHandler) LegacySavePoints(c *gin.Context) {
	award, err := h.redeem(c)
	if err != nil {
		legacyFail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.LegacyMessage{Message: fmt.Sprintf("%d points added successfully", award.Amount)})
}

func (h *RewardHandler) issue(c *gin.Context) (string, error) {
	var req dto.NonceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return "", dto.BindError(err)
	}
	c.Set(middleware.CtxIdentifier, req.Wallet)

	return h.awards.IssueNonce(c.Request.Context(), req.Wallet, c.ClientIP())
}

func (h *RewardHandler) redeem(c *gin.Context) (*domain.Award, error) {
	var req dto.RedeemRequest
	err := c.ShouldBindJSON(&req)
	if domain.IsValidIdentifier(req.Wallet) {
		c.Set(middleware.CtxIdentifier, req.Wallet)
	}
	if err != nil {
		return nil, dto.BindError(err)
	}

	award, err := h.awards.Redeem(c.Request.Context(), ports.RedeemRequest{
		Identifier: req.Wallet,
		Token:      req.Nonce,
		ClientIP:   c.ClientIP(),
	})
	if err != nil {
		return nil, err
	}
	c.Set(middleware.CtxResourceID, award.ID.String())
	return award, nil
}
