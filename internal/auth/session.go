package auth

import (
	"context"
	"errors"
	"log"
	"time"

	"gamedict/internal/models"

	"github.com/gofiber/fiber/v2"
)

const sessionKey = "session"

// Session is the request-scoped identity. Actor is nil for anonymous requests.
type Session struct {
	Actor  *models.Actor
	Claims *Claims
}

// LoggedIn reports whether the request is authenticated
func (s *Session) LoggedIn() bool {
	return s != nil && s.Actor != nil
}

// UserLoader resolves the current state of a session's user
type UserLoader interface {
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
}

// CookieConfig describes the session cookie
type CookieConfig struct {
	Name   string
	Secure bool
}

// Sessions wires tokens to fiber requests
type Sessions struct {
	tokens *Manager
	users  UserLoader
	cookie CookieConfig
}

// NewSessions creates the session layer
func NewSessions(tokens *Manager, users UserLoader, cookie CookieConfig) *Sessions {
	return &Sessions{tokens: tokens, users: users, cookie: cookie}
}

// Middleware resolves the session cookie into a Session stored in Locals.
// Invalid or revoked cookies are cleared and the request continues anonymously.
func (s *Sessions) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := &Session{}
		c.Locals(sessionKey, sess)

		raw := c.Cookies(s.cookie.Name)
		if raw == "" {
			return c.Next()
		}

		ctx := c.UserContext()
		claims, err := s.tokens.Verify(ctx, raw)
		if err != nil {
			if !errors.Is(err, ErrInvalidToken) {
				log.Printf("⚠️ Session check failed: %v", err)
			}
			s.clearCookie(c)
			return c.Next()
		}
		id, err := claims.UserID()
		if err != nil {
			s.clearCookie(c)
			return c.Next()
		}

		// Load the user so renames and role changes apply to live sessions
		user, err := s.users.FindUserByID(ctx, id)
		if err != nil {
			s.clearCookie(c)
			return c.Next()
		}
		actor := models.ActorOf(user)
		sess.Actor = &actor
		sess.Claims = claims
		return c.Next()
	}
}

// Login issues a session for user and sets the cookie
func (s *Sessions) Login(c *fiber.Ctx, user *models.User) error {
	token, claims, err := s.tokens.Issue(user)
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     s.cookie.Name,
		Value:    token,
		Path:     "/",
		Expires:  claims.ExpiresAt.Time,
		HTTPOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	actor := models.ActorOf(user)
	sess := FromCtx(c)
	sess.Actor = &actor
	sess.Claims = claims
	return nil
}

// Logout revokes the current token and clears the cookie
func (s *Sessions) Logout(c *fiber.Ctx) error {
	sess := FromCtx(c)
	if sess.Claims != nil {
		if err := s.tokens.Revoke(c.UserContext(), sess.Claims); err != nil {
			return err
		}
	}
	sess.Actor, sess.Claims = nil, nil
	s.clearCookie(c)
	return nil
}

func (s *Sessions) clearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     s.cookie.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// FromCtx returns the request session, never nil
func FromCtx(c *fiber.Ctx) *Session {
	if sess, ok := c.Locals(sessionKey).(*Session); ok {
		return sess
	}
	sess := &Session{}
	c.Locals(sessionKey, sess)
	return sess
}

// ActorFrom returns the authenticated actor or nil
func ActorFrom(c *fiber.Ctx) *models.Actor {
	return FromCtx(c).Actor
}
