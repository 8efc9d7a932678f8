package service

import (
	"context"
	"errors"
	"net"

	"game-reward-service/pkg/apperror"

	"github.com/jackc/pgx/v5/pgconn"
)

// storageError classifies a failed storage call. Timeouts and connection
// failures are transient (SYS_002, retryable); anything else is SYS_001.
// An error that is already an AppError passes through untouched.
func storageError(err error) *apperror.AppError {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if isUnavailable(err) {
		return apperror.ErrStorageUnavailable(err)
	}
	return apperror.ErrStorage(err)
}

func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if pgconn.Timeout(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}
