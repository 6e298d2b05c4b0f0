package handlers

import (
	"errors"
	"log"

	"gamedict/internal/auth"
	"gamedict/internal/service"
	"gamedict/internal/vote"

	"github.com/gofiber/fiber/v2"
)

// voteAck is the bare body returned to asynchronous vote calls
const voteAck = "nothing"

// VoteHandler handles upvote and downvote calls
type VoteHandler struct {
	votes *service.VoteService
}

// NewVoteHandler creates a new vote handler
func NewVoteHandler(votes *service.VoteService) *VoteHandler {
	return &VoteHandler{votes: votes}
}

// Upvote handles POST /upvote/:termId/:username
// @Summary Toggle an upvote
// @Description NONE->UP (+1), UP->NONE (-1), DOWN->UP (+2). The username segment is informational.
// @Success 200 {string} string "nothing"
// @Router /upvote/{termId}/{username} [post]
func (h *VoteHandler) Upvote(c *fiber.Ctx) error {
	return h.apply(c, vote.Upvote)
}

// Downvote handles POST /downvote/:termId/:username
// @Summary Toggle a downvote
// @Description NONE->DOWN (-1), DOWN->NONE (+1), UP->DOWN (-2). The username segment is informational.
// @Success 200 {string} string "nothing"
// @Router /downvote/{termId}/{username} [post]
func (h *VoteHandler) Downvote(c *fiber.Ctx) error {
	return h.apply(c, vote.Downvote)
}

func (h *VoteHandler) apply(c *fiber.Ctx, action vote.Action) error {
	termID, ok := paramID(c, "termId")
	if !ok {
		return c.SendString(voteAck)
	}

	_, err := h.votes.Vote(c.UserContext(), auth.ActorFrom(c), termID, action)
	switch {
	case err == nil:
		return c.SendString(voteAck)
	case errors.Is(err, service.ErrNotFound):
		// Votes on vanished terms are dropped silently
		log.Printf("Ignoring %s on missing term %d", action, termID)
		return c.SendString(voteAck)
	}
	return fail(c, err, listingPath)
}

// Redirect handles GET on the vote routes, which never mutate
func (h *VoteHandler) Redirect(c *fiber.Ctx) error {
	return c.Redirect(listingPath, fiber.StatusFound)
}
