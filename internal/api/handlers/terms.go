package handlers

import (
	"errors"
	"fmt"

	"gamedict/internal/auth"
	"gamedict/internal/models"
	"gamedict/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// TermHandler handles the glossary listing, term CRUD and profiles
type TermHandler struct {
	terms     *service.TermService
	games     *service.GameService
	validator *validator.Validate
}

// NewTermHandler creates a new term handler
func NewTermHandler(terms *service.TermService, games *service.GameService) *TermHandler {
	return &TermHandler{
		terms:     terms,
		games:     games,
		validator: validator.New(),
	}
}

// ListTerms handles GET / and GET /get_terms
// @Summary Glossary listing
// @Description Visible terms (rating above -2) by header then rating, with the supported games
// @Param game query string false "Game slug filter"
// @Param letter query string false "First letter filter"
// @Produce json
// @Success 200 {object} models.TermListResponse
// @Router /get_terms [get]
func (h *TermHandler) ListTerms(c *fiber.Ctx) error {
	resp, err := h.terms.ListVisible(c.UserContext(), auth.ActorFrom(c), service.TermFilter{
		GameSlug: c.Query("game"),
		Letter:   c.Query("letter"),
	})
	if err != nil {
		return fail(c, err, listingPath)
	}
	resp.Messages = TakeFlashes(c)
	return c.JSON(resp)
}

// SubmitForm handles GET /submit_definition
func (h *TermHandler) SubmitForm(c *fiber.Ctx) error {
	actor := auth.ActorFrom(c)
	if actor == nil {
		return redirectWith(c, listingPath, FlashInfo, "Please login or register to add a new definition")
	}
	games, err := h.games.List(c.UserContext())
	if err != nil {
		return fail(c, err, listingPath)
	}
	return c.JSON(fiber.Map{
		"games":    games,
		"user":     actor,
		"messages": TakeFlashes(c),
	})
}

func termInput(f *models.TermForm) service.TermInput {
	return service.TermInput{
		Header:          f.Header,
		GameName:        f.GameName,
		ShortDefinition: f.ShortDefinition,
		LongDescription: f.LongDescription,
		VideoLink:       f.VideoLink,
		Version:         f.Version,
	}
}

// Submit handles POST /submit_definition
// @Summary Submit a definition
// @Accept application/x-www-form-urlencoded
// @Success 302 "Redirects to the listing"
// @Router /submit_definition [post]
func (h *TermHandler) Submit(c *fiber.Ctx) error {
	actor := auth.ActorFrom(c)
	if actor == nil {
		return redirectWith(c, listingPath, FlashInfo, "Please login or register to add a new definition")
	}

	const back = "/submit_definition"
	var form models.TermForm
	if ok, err := bindForm(c, h.validator, &form, back); !ok {
		return err
	}

	if _, err := h.terms.Create(c.UserContext(), actor, termInput(&form)); err != nil {
		if errors.Is(err, service.ErrUnknownGame) {
			return redirectWith(c, back, FlashError, fmt.Sprintf("%s is not a supported game", form.GameName))
		}
		return fail(c, err, back)
	}
	return redirectWith(c, listingPath, FlashSuccess, fmt.Sprintf("Thank you, %s, for your submission", actor.Username))
}

// EditForm handles GET /edit_definition/:id
func (h *TermHandler) EditForm(c *fiber.Ctx) error {
	actor := auth.ActorFrom(c)
	if actor == nil {
		return redirectWith(c, listingPath, FlashInfo, "Please login or register to edit a definition")
	}
	id, ok := paramID(c, "id")
	if !ok {
		return NotFound(c)
	}

	term, err := h.terms.Get(c.UserContext(), id)
	if err != nil {
		return fail(c, err, listingPath)
	}
	if !actor.CanModify(term.SubmittedBy) {
		return redirectWith(c, listingPath, FlashError, "You cannot edit a term that you did not submit")
	}
	games, err := h.games.List(c.UserContext())
	if err != nil {
		return fail(c, err, listingPath)
	}
	return c.JSON(fiber.Map{
		"term":     term,
		"games":    games,
		"messages": TakeFlashes(c),
	})
}

// Edit handles POST /edit_definition/:id
func (h *TermHandler) Edit(c *fiber.Ctx) error {
	actor := auth.ActorFrom(c)
	if actor == nil {
		return redirectWith(c, listingPath, FlashInfo, "Please login or register to edit a definition")
	}
	id, ok := paramID(c, "id")
	if !ok {
		return NotFound(c)
	}

	back := fmt.Sprintf("/edit_definition/%d", id)
	var form models.TermForm
	if ok, err := bindForm(c, h.validator, &form, back); !ok {
		return err
	}

	if _, err := h.terms.Update(c.UserContext(), actor, id, termInput(&form)); err != nil {
		if errors.Is(err, service.ErrUnknownGame) {
			return redirectWith(c, back, FlashError, fmt.Sprintf("%s is not a supported game", form.GameName))
		}
		return fail(c, err, back)
	}
	return redirectWith(c, listingPath, FlashSuccess, "Term successfully updated")
}

// Delete handles GET /delete_definition/:id
func (h *TermHandler) Delete(c *fiber.Ctx) error {
	actor := auth.ActorFrom(c)
	if actor == nil {
		return redirectWith(c, listingPath, FlashInfo, "Please login or register to delete a definition")
	}
	id, ok := paramID(c, "id")
	if !ok {
		return NotFound(c)
	}

	if _, err := h.terms.Delete(c.UserContext(), actor, id); err != nil {
		return fail(c, err, listingPath)
	}
	return redirectWith(c, listingPath, FlashSuccess, "Term successfully deleted")
}

// Profile handles GET /profile/:username
// @Summary User profile
// @Description The user's terms alphabetically and by rating, hidden terms included
// @Produce json
// @Success 200 {object} models.ProfileResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /profile/{username} [get]
func (h *TermHandler) Profile(c *fiber.Ctx) error {
	resp, err := h.terms.Profile(c.UserContext(), auth.ActorFrom(c), c.Params("username"))
	if err != nil {
		return fail(c, err, listingPath)
	}
	resp.Messages = TakeFlashes(c)
	return c.JSON(resp)
}
