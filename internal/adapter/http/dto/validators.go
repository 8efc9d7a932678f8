package dto

import (
	"errors"

	"game-reward-service/internal/core/domain"
	"game-reward-service/pkg/apperror"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("identifier", validateIdentifier)
	}
}

// validateIdentifier accepts letters, digits and underscore only.
func validateIdentifier(fl validator.FieldLevel) bool {
	return domain.IsValidIdentifier(fl.Field().String())
}

// BindError maps a binding failure to the error the caller should see. A
// bad wallet is InvalidIdentifier and a missing nonce is InvalidOrUsedNonce,
// so both API generations report the same reasons.
func BindError(err error) *apperror.AppError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperror.Validation("malformed request body")
	}
	for _, fe := range verrs {
		switch fe.Field() {
		case "Wallet":
			return apperror.ErrInvalidIdentifier()
		case "Nonce":
			return apperror.ErrInvalidOrUsedNonce()
		}
	}
	return apperror.Validation(verrs.Error())
}
