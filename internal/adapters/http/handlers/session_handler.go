package handlers

import (
	"votedesk/internal/adapters/http/middleware"
	"votedesk/internal/core/flow"
	"votedesk/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// SessionHandler reports the state of the browser session
type SessionHandler struct{}

// NewSessionHandler creates a new session handler
func NewSessionHandler() *SessionHandler {
	return &SessionHandler{}
}

// Get returns the session state, role, redirect target and user
// @Summary Current session
// @Description Returns state, role, redirect hint and the signed-in user
// @Tags Session
// @Produce json
// @Success 200 {object} response.Response
// @Router /session [get]
func (h *SessionHandler) Get(c *fiber.Ctx) error {
	return response.Success(c, "", sessionView(middleware.SessionFrom(c)))
}

func sessionView(session *flow.Session) fiber.Map {
	phone, email := session.Context.Pending()
	view := fiber.Map{
		"state":    session.State(),
		"role":     session.Context.Role(),
		"redirect": session.Redirect(),
		"user":     session.Context.User(),
	}
	if phone != "" {
		view["pending_phone"] = phone
	}
	if email != "" {
		view["pending_email"] = email
	}
	return view
}
