package dto

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/agenttrace/traceview/internal/pkg/errors"
	"github.com/agenttrace/traceview/internal/validator"
)

// ParseAndValidate parses the request body into v and validates it.
// Failures are returned as AppErrors carrying a 400 status.
func ParseAndValidate(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return apperrors.BadRequest("invalid request body").WithError(err)
	}

	if err := validator.Validate(v); err != nil {
		appErr := apperrors.Validation("request validation failed").WithError(err)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for field, msg := range verrs.Fields() {
				appErr = appErr.WithDetail(field, msg)
			}
		}
		return appErr
	}

	return nil
}
