package handlers

import (
	"votedesk/internal/adapters/http/middleware"
	"votedesk/internal/core/flow"
	"votedesk/internal/core/services"
	"votedesk/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// VoterHandler handles voter endpoints
type VoterHandler struct {
	records *services.RecordService
}

// NewVoterHandler creates a new voter handler
func NewVoterHandler(records *services.RecordService) *VoterHandler {
	return &VoterHandler{records: records}
}

// VerifyIDRequest represents an identity verification body
type VerifyIDRequest struct {
	ID     string `json:"id"`
	IDType string `json:"id_type"` // aadhaar or voterId
}

// CastVoteRequest represents a vote body
type CastVoteRequest struct {
	CandidateID string `json:"candidate_id"`
}

// ListConstituencies lists constituencies with votes cast
// @Summary List constituencies
// @Description Constituencies with registered voters and votes cast
// @Tags Constituencies
// @Produce json
// @Success 200 {object} response.Response
// @Router /constituencies [get]
func (h *VoterHandler) ListConstituencies(c *fiber.Ctx) error {
	records := h.records
	if session := middleware.SessionFrom(c); session != nil {
		records = records.For(session.Notifications)
	}
	return response.Success(c, "", records.GetConstituencies(c.UserContext()))
}

// VerifyID records an Aadhaar number or Voter ID
// @Summary Verify identity document
// @Description Store an Aadhaar number (12 digits) or Voter ID (AAA1234567) on the profile
// @Tags Voter
// @Accept json
// @Produce json
// @Param body body VerifyIDRequest true "Identity document"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /voter/verify-id [post]
func (h *VoterHandler) VerifyID(c *fiber.Ctx) error {
	var req VerifyIDRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	session := middleware.SessionFrom(c)
	if !session.Voter.VerifyIdentity(c.UserContext(), req.ID, req.IDType) {
		return failure(c, session.Voter.LastError(), "Failed to verify identity")
	}
	return response.Success(c, "Identity verified", sessionView(session))
}

// Dashboard returns the voter dashboard
// @Summary Voter dashboard
// @Description Profile summary, constituency turnout and ballot or voted state
// @Tags Voter
// @Produce json
// @Success 200 {object} response.Response
// @Router /voter/dashboard [get]
func (h *VoterHandler) Dashboard(c *fiber.Ctx) error {
	session := middleware.SessionFrom(c)
	view, ok := session.Voter.Dashboard(c.UserContext())
	if !ok {
		return failure(c, session.Voter.LastError(), "Failed to load dashboard")
	}
	return response.Success(c, "", view)
}

// CastVote casts the voter's single vote
// @Summary Cast vote
// @Description Cast a vote for a candidate of the voter's constituency
// @Tags Voter
// @Accept json
// @Produce json
// @Param body body CastVoteRequest true "Candidate"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /voter/vote [post]
func (h *VoterHandler) CastVote(c *fiber.Ctx) error {
	var req CastVoteRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	session := middleware.SessionFrom(c)
	if !session.Voter.CastVote(c.UserContext(), req.CandidateID) {
		if err := session.Voter.LastError(); err != nil {
			return failure(c, err, "Vote not recorded")
		}
		if session.State() == flow.StateVoted {
			return response.Conflict(c, "Vote already cast for this voter")
		}
		return response.Error(c, fiber.StatusUnprocessableEntity, "Vote not recorded")
	}
	return response.Success(c, "Vote recorded", sessionView(session))
}
