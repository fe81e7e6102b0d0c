package handlers

import (
	"math"

	"votedesk/internal/adapters/http/middleware"
	"votedesk/internal/core/flow"
	"votedesk/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles OTP sign-in endpoints
type AuthHandler struct {
	registry *flow.Registry
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(registry *flow.Registry) *AuthHandler {
	return &AuthHandler{registry: registry}
}

// PhoneOTPRequest represents a phone OTP request body
type PhoneOTPRequest struct {
	Phone string `json:"phone"`
}

// EmailOTPRequest represents an email OTP request body
type EmailOTPRequest struct {
	Email string `json:"email"`
}

// VerifyOTPRequest represents an OTP verification body
type VerifyOTPRequest struct {
	Code string `json:"code"`
}

// RequestPhoneOTP sends a code to a phone number
// @Summary Request phone OTP
// @Description Send a one-time code to a 10-digit phone number
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body PhoneOTPRequest true "Phone number"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /auth/otp/phone [post]
func (h *AuthHandler) RequestPhoneOTP(c *fiber.Ctx) error {
	var req PhoneOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	session := middleware.SessionFrom(c)
	if !session.Voter.RequestPhoneOTP(c.UserContext(), req.Phone) {
		return failure(c, session.Voter.LastError(), "Failed to send code")
	}
	return response.Success(c, "Code sent", otpStatus(session))
}

// RequestEmailOTP sends a code to an email address
// @Summary Request email OTP
// @Description Send a one-time code to an email address
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body EmailOTPRequest true "Email address"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /auth/otp/email [post]
func (h *AuthHandler) RequestEmailOTP(c *fiber.Ctx) error {
	var req EmailOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	session := middleware.SessionFrom(c)
	if !session.Voter.RequestEmailOTP(c.UserContext(), req.Email) {
		return failure(c, session.Voter.LastError(), "Failed to send code")
	}
	return response.Success(c, "Code sent", otpStatus(session))
}

// VerifyOTP completes sign-in
// @Summary Verify OTP
// @Description Verify the code for the pending phone or email and sign in
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body VerifyOTPRequest true "Code"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/otp/verify [post]
func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req VerifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	session := middleware.SessionFrom(c)
	if !session.Voter.VerifyOTP(c.UserContext(), req.Code) {
		return failure(c, session.Voter.LastError(), "Failed to verify code")
	}
	return response.Success(c, "Signed in", sessionView(session))
}

// ResendOTP re-sends the pending code
// @Summary Resend OTP
// @Description Re-send the code for the pending phone or email (30s cooldown)
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /auth/otp/resend [post]
func (h *AuthHandler) ResendOTP(c *fiber.Ctx) error {
	session := middleware.SessionFrom(c)
	if !session.Voter.ResendOTP(c.UserContext()) {
		return failure(c, session.Voter.LastError(), "Failed to resend code")
	}
	return response.Success(c, "Code sent", otpStatus(session))
}

// Logout signs out and tears the session down
// @Summary Logout
// @Description Sign out of the current session
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Response
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	session := middleware.SessionFrom(c)
	ok := session.Voter.Logout(c.UserContext())
	h.registry.Close(session.ID)
	if !ok {
		return failure(c, session.Voter.LastError(), "Failed to sign out")
	}
	return response.Success(c, "Signed out", sessionView(session))
}

func otpStatus(session *flow.Session) fiber.Map {
	return fiber.Map{
		"state":             session.State(),
		"redirect":          session.Redirect(),
		"resend_in_seconds": int(math.Ceil(session.Voter.ResendIn().Seconds())),
	}
}
