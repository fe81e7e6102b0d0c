package handlers

import (
	"votedesk/internal/adapters/http/middleware"
	"votedesk/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AdminHandler handles administrator endpoints
type AdminHandler struct{}

// NewAdminHandler creates a new admin handler
func NewAdminHandler() *AdminHandler {
	return &AdminHandler{}
}

// AdminLoginRequest represents administrator credentials
type AdminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login signs in the administrator (non-production stub)
// @Summary Administrator login
// @Description Hardcoded administrator credentials. Not for production use.
// @Tags Admin
// @Accept json
// @Produce json
// @Param body body AdminLoginRequest true "Credentials"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /admin/login [post]
func (h *AdminHandler) Login(c *fiber.Ctx) error {
	var req AdminLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	session := middleware.SessionFrom(c)
	if !session.Admin.Login(c.UserContext(), req.Username, req.Password) {
		return failure(c, session.Admin.LastError(), "Failed to sign in")
	}
	return response.Success(c, "Signed in", sessionView(session))
}

// Overview returns turnout and tallies for every constituency
// @Summary Election overview
// @Description Turnout per constituency with per-candidate tallies
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /admin/overview [get]
func (h *AdminHandler) Overview(c *fiber.Ctx) error {
	session := middleware.SessionFrom(c)
	overview, ok := session.Admin.Overview(c.UserContext())
	if !ok {
		return failure(c, session.Admin.LastError(), "Failed to load overview")
	}
	return response.Success(c, "", overview)
}

// Results returns the tallies for one constituency
// @Summary Constituency results
// @Description Per-candidate tallies, most votes first
// @Tags Admin
// @Produce json
// @Param id path string true "Constituency ID"
// @Success 200 {object} response.Response
// @Router /admin/constituencies/{id}/results [get]
func (h *AdminHandler) Results(c *fiber.Ctx) error {
	session := middleware.SessionFrom(c)
	results, ok := session.Admin.Results(c.UserContext(), c.Params("id"))
	if !ok {
		return failure(c, session.Admin.LastError(), "Failed to load results")
	}
	return response.Success(c, "", results)
}

// Logout clears the administrator from the session
// @Summary Administrator logout
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Response
// @Router /admin/logout [post]
func (h *AdminHandler) Logout(c *fiber.Ctx) error {
	session := middleware.SessionFrom(c)
	if !session.Admin.Logout(c.UserContext()) {
		return failure(c, session.Admin.LastError(), "Failed to sign out")
	}
	return response.Success(c, "Signed out", sessionView(session))
}
