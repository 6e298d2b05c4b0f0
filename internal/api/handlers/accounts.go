package handlers

import (
	"fmt"
	"net/url"

	"gamedict/internal/auth"
	"gamedict/internal/models"
	"gamedict/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AccountHandler handles registration, login, logout and account edits
type AccountHandler struct {
	accounts  *service.AccountService
	sessions  *auth.Sessions
	validator *validator.Validate
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accounts *service.AccountService, sessions *auth.Sessions) *AccountHandler {
	return &AccountHandler{
		accounts:  accounts,
		sessions:  sessions,
		validator: validator.New(),
	}
}

func profilePath(username string) string {
	return "/profile/" + url.PathEscape(username)
}

// RegisterForm handles GET /register
func (h *AccountHandler) RegisterForm(c *fiber.Ctx) error {
	if auth.FromCtx(c).LoggedIn() {
		return redirectWith(c, listingPath, FlashInfo, "You are already registered and logged in")
	}
	return c.JSON(fiber.Map{"messages": TakeFlashes(c)})
}

// Register handles POST /register
// @Summary Register
// @Accept application/x-www-form-urlencoded
// @Success 302 "Redirects to the new profile, logged in"
// @Router /register [post]
func (h *AccountHandler) Register(c *fiber.Ctx) error {
	if auth.FromCtx(c).LoggedIn() {
		return redirectWith(c, listingPath, FlashInfo, "You are already registered and logged in")
	}

	const back = "/register"
	var form models.RegisterForm
	if ok, err := bindForm(c, h.validator, &form, back); !ok {
		return err
	}

	user, err := h.accounts.Register(c.UserContext(), service.RegisterInput{
		Username:       form.Username,
		Password:       form.Password,
		FavGames:       form.FavGames,
		FavCompetitors: form.FavCompetitors,
	})
	if err != nil {
		return fail(c, err, back)
	}
	if err := h.sessions.Login(c, user); err != nil {
		return err
	}
	return redirectWith(c, profilePath(user.Username), FlashSuccess, "Thanks for signing up, "+user.Username)
}

// LoginForm handles GET /login
func (h *AccountHandler) LoginForm(c *fiber.Ctx) error {
	if auth.FromCtx(c).LoggedIn() {
		return redirectWith(c, listingPath, FlashInfo, "You are already logged in")
	}
	return c.JSON(fiber.Map{"messages": TakeFlashes(c)})
}

// Login handles POST /login
func (h *AccountHandler) Login(c *fiber.Ctx) error {
	if auth.FromCtx(c).LoggedIn() {
		return redirectWith(c, listingPath, FlashInfo, "You are already logged in")
	}

	const back = "/login"
	var form models.LoginForm
	if ok, err := bindForm(c, h.validator, &form, back); !ok {
		return err
	}

	user, err := h.accounts.Login(c.UserContext(), form.Username, form.Password)
	if err != nil {
		return fail(c, err, back)
	}
	if err := h.sessions.Login(c, user); err != nil {
		return err
	}
	return redirectWith(c, profilePath(user.Username), FlashSuccess, "Welcome, "+user.Username)
}

// Logout handles GET /logout
func (h *AccountHandler) Logout(c *fiber.Ctx) error {
	if !auth.FromCtx(c).LoggedIn() {
		return redirectWith(c, listingPath, FlashError, "You are not logged in")
	}
	if err := h.sessions.Logout(c); err != nil {
		return err
	}
	return redirectWith(c, listingPath, FlashSuccess, "You have logged out successfully")
}

// EditForm handles GET /edit_user/:id
func (h *AccountHandler) EditForm(c *fiber.Ctx) error {
	actor := auth.ActorFrom(c)
	if actor == nil {
		return redirectWith(c, listingPath, FlashInfo, "Please login to edit your details")
	}
	id, ok := paramID(c, "id")
	if !ok {
		return NotFound(c)
	}
	if actor.UserID != id {
		return redirectWith(c, listingPath, FlashError, "You do not have permission to edit this user's details")
	}

	user, err := h.accounts.Get(c.UserContext(), id)
	if err != nil {
		return fail(c, err, listingPath)
	}
	return c.JSON(fiber.Map{
		"user":     user,
		"messages": TakeFlashes(c),
	})
}

// Edit handles POST /edit_user/:id
func (h *AccountHandler) Edit(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return NotFound(c)
	}

	back := fmt.Sprintf("/edit_user/%d", id)
	var form models.EditUserForm
	if ok, err := bindForm(c, h.validator, &form, back); !ok {
		return err
	}

	user, err := h.accounts.UpdateProfile(c.UserContext(), auth.ActorFrom(c), id, service.ProfileInput{
		Username:        form.Username,
		CurrentPassword: form.Password,
		NewPassword:     form.NewPassword,
		FavGames:        form.FavGames,
		FavCompetitors:  form.FavCompetitors,
	})
	if err != nil {
		return fail(c, err, back)
	}

	// Reissue so the token carries the new username
	if err := h.sessions.Logout(c); err != nil {
		return err
	}
	if err := h.sessions.Login(c, user); err != nil {
		return err
	}
	return redirectWith(c, profilePath(user.Username), FlashSuccess, fmt.Sprintf("Details for %s successfully changed", user.Username))
}
