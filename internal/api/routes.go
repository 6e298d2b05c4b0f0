package api

import (
	"gamedict/internal/api/handlers"
	"gamedict/internal/auth"
	"gamedict/internal/websocket"

	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
)

// Handlers groups everything the router mounts
type Handlers struct {
	Sessions *auth.Sessions
	Terms    *handlers.TermHandler
	Votes    *handlers.VoteHandler
	Games    *handlers.GameHandler
	Accounts *handlers.AccountHandler
	Pages    *handlers.PageHandler
	Hub      *websocket.Hub
}

// SetupRoutes mounts the glossary routes on app
func SetupRoutes(app *fiber.App, h Handlers) {
	app.Use(h.Sessions.Middleware())

	app.Get("/", h.Terms.ListTerms)
	app.Get("/get_terms", h.Terms.ListTerms)
	app.Get("/submit_definition", h.Terms.SubmitForm)
	app.Post("/submit_definition", h.Terms.Submit)
	app.Get("/edit_definition/:id", h.Terms.EditForm)
	app.Post("/edit_definition/:id", h.Terms.Edit)
	app.Get("/delete_definition/:id", h.Terms.Delete)
	app.Get("/profile/:username", h.Terms.Profile)

	app.Post("/upvote/:termId/:username", h.Votes.Upvote)
	app.Post("/downvote/:termId/:username", h.Votes.Downvote)
	app.Get("/upvote/*", h.Votes.Redirect)
	app.Get("/downvote/*", h.Votes.Redirect)

	app.Get("/register", h.Accounts.RegisterForm)
	app.Post("/register", h.Accounts.Register)
	app.Get("/login", h.Accounts.LoginForm)
	app.Post("/login", h.Accounts.Login)
	app.Get("/logout", h.Accounts.Logout)
	app.Get("/edit_user/:id", h.Accounts.EditForm)
	app.Post("/edit_user/:id", h.Accounts.Edit)

	// Admin-only game curation
	app.Get("/get_games", h.Games.RequireAdmin, h.Games.ListGames)
	app.Get("/add_game", h.Games.RequireAdmin, h.Games.AddForm)
	app.Post("/add_game", h.Games.RequireAdmin, h.Games.Add)
	app.Get("/edit_game/:id", h.Games.RequireAdmin, h.Games.EditForm)
	app.Post("/edit_game/:id", h.Games.RequireAdmin, h.Games.Edit)
	app.Get("/delete_game/:id", h.Games.RequireAdmin, h.Games.Delete)

	app.Get("/contact", h.Pages.ContactForm)
	app.Post("/contact", h.Pages.Contact)
	app.Get("/health", h.Pages.HealthCheck)

	if h.Hub != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if fiberws.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws", fiberws.New(func(c *fiberws.Conn) {
			websocket.ServeWS(h.Hub, c)
		}))
	}

	app.Use(handlers.NotFound)
}
