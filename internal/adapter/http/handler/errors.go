package handler

import (
	"errors"
	"net/http"
	"strconv"

	"game-reward-service/internal/adapter/http/dto"
	"game-reward-service/internal/adapter/http/middleware"
	"game-reward-service/pkg/apperror"
	"game-reward-service/pkg/response"

	"github.com/gin-gonic/gin"
)

// fail writes the error envelope and records the rejection reason for the
// audit middleware.
func fail(c *gin.Context, err error) {
	c.Set(middleware.CtxRejectReason, rejectReason(err))
	response.Error(c, err)
}

// legacyFail answers in the {message} shape older game clients parse.
func legacyFail(c *gin.Context, err error) {
	c.Set(middleware.CtxRejectReason, rejectReason(err))

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		c.JSON(http.StatusInternalServerError, dto.LegacyMessage{Message: "Internal server error"})
		return
	}
	c.JSON(appErr.HTTPStatus, dto.LegacyMessage{Message: appErr.Message, Reason: appErr.Reason})
}

func rejectReason(err error) string {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return apperror.ReasonStorageError
	}
	if appErr.Reason != "" {
		return appErr.Reason
	}
	return appErr.Code
}

// queryLimit parses the optional ?limit= parameter. Absent means 0, which
// the services treat as their default. A non-integer fails the request.
func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		fail(c, apperror.Validation("limit must be an integer"))
		return 0, false
	}
	return n, true
}
