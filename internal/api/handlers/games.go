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

const gamesPath = "/get_games"

// GameHandler handles the admin game pages
type GameHandler struct {
	games     *service.GameService
	validator *validator.Validate
}

// NewGameHandler creates a new game handler
func NewGameHandler(games *service.GameService) *GameHandler {
	return &GameHandler{
		games:     games,
		validator: validator.New(),
	}
}

// RequireAdmin guards the game routes
func (h *GameHandler) RequireAdmin(c *fiber.Ctx) error {
	actor := auth.ActorFrom(c)
	if actor == nil {
		return redirectWith(c, listingPath, FlashInfo, "Please login to manage supported games")
	}
	if !actor.IsAdmin() {
		return redirectWith(c, listingPath, FlashError, "You do not have permission to access this page")
	}
	return c.Next()
}

// ListGames handles GET /get_games
func (h *GameHandler) ListGames(c *fiber.Ctx) error {
	games, err := h.games.List(c.UserContext())
	if err != nil {
		return fail(c, err, listingPath)
	}
	return c.JSON(fiber.Map{
		"games":    games,
		"messages": TakeFlashes(c),
	})
}

// AddForm handles GET /add_game
func (h *GameHandler) AddForm(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"messages": TakeFlashes(c)})
}

// Add handles POST /add_game
func (h *GameHandler) Add(c *fiber.Ctx) error {
	const back = "/add_game"
	var form models.GameForm
	if ok, err := bindForm(c, h.validator, &form, back); !ok {
		return err
	}

	_, err := h.games.Create(c.UserContext(), auth.ActorFrom(c), service.GameInput{Name: form.Name, Icon: form.Icon})
	if errors.Is(err, service.ErrConflict) {
		return redirectWith(c, back, FlashInfo, "Game is currently supported. You can manage it from the games list.")
	}
	if err != nil {
		return fail(c, err, back)
	}
	return redirectWith(c, gamesPath, FlashSuccess, "Game successfully added")
}

// EditForm handles GET /edit_game/:id
func (h *GameHandler) EditForm(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return NotFound(c)
	}
	game, err := h.games.Get(c.UserContext(), id)
	if err != nil {
		return fail(c, err, gamesPath)
	}
	return c.JSON(fiber.Map{
		"game":     game,
		"messages": TakeFlashes(c),
	})
}

// Edit handles POST /edit_game/:id
func (h *GameHandler) Edit(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return NotFound(c)
	}

	back := fmt.Sprintf("/edit_game/%d", id)
	var form models.GameForm
	if ok, err := bindForm(c, h.validator, &form, back); !ok {
		return err
	}

	in := service.GameInput{Name: form.Name, Icon: form.Icon, Version: form.Version}
	if _, err := h.games.Update(c.UserContext(), auth.ActorFrom(c), id, in); err != nil {
		return fail(c, err, back)
	}
	return redirectWith(c, gamesPath, FlashSuccess, "Game details updated successfully")
}

// Delete handles GET /delete_game/:id and removes the game's terms with it
func (h *GameHandler) Delete(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return NotFound(c)
	}
	if _, err := h.games.Delete(c.UserContext(), auth.ActorFrom(c), id); err != nil {
		return fail(c, err, gamesPath)
	}
	return redirectWith(c, gamesPath, FlashSuccess, "Game successfully deleted")
}
