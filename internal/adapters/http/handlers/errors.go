package handlers

import (
	"errors"

	"votedesk/internal/core/domain"
	"votedesk/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// failure maps the error behind a failed flow operation to a response
func failure(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case err == nil:
		return response.Error(c, fiber.StatusUnprocessableEntity, fallback)
	case errors.Is(err, domain.ErrNotAuthenticated):
		return response.Unauthorized(c, "Sign in required")
	case errors.Is(err, domain.ErrNotVoter), errors.Is(err, domain.ErrNotAdmin):
		return response.Forbidden(c, "You don't have permission to access this resource")
	case errors.Is(err, domain.ErrResendCooldown), errors.Is(err, domain.ErrOTPThrottled):
		return response.TooManyRequests(c, userMessage(err))
	case errors.Is(err, domain.ErrAlreadyVoted):
		return response.Conflict(c, userMessage(err))
	case errors.Is(err, domain.ErrNotFound):
		return response.NotFound(c, userMessage(err))
	case errors.Is(err, domain.ErrInvalidOTP), errors.Is(err, domain.ErrOTPExpired),
		errors.Is(err, domain.ErrOTPNotFound), errors.Is(err, domain.ErrOTPAttempts),
		errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrTokenExpired), errors.Is(err, domain.ErrTokenRevoked):
		return response.Unauthorized(c, userMessage(err))
	case errors.Is(err, domain.ErrValidation):
		return response.BadRequest(c, userMessage(err))
	case errors.Is(err, domain.ErrState):
		return response.Conflict(c, userMessage(err))
	case errors.Is(err, domain.ErrProvider):
		return response.Error(c, fiber.StatusBadGateway, "Identity provider unavailable")
	default:
		return response.InternalServerError(c, fallback)
	}
}

func userMessage(err error) string {
	msg := err.Error()
	if kind := domain.KindOf(err); kind != nil && len(msg) > len(kind.Error())+2 {
		return msg[len(kind.Error())+2:]
	}
	return msg
}
