package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"gamedict/internal/models"
	"gamedict/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

const (
	flashCookie  = "flash"
	flashPending = "flash_pending"

	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashError   = "error"

	listingPath = "/get_terms"
)

// Flash queues a message for the next rendered view
func Flash(c *fiber.Ctx, category, message string) {
	pending, _ := c.Locals(flashPending).([]models.Flash)
	pending = append(pending, models.Flash{Category: category, Message: message})
	c.Locals(flashPending, pending)

	raw, err := json.Marshal(pending)
	if err != nil {
		return
	}
	c.Cookie(&fiber.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		Expires:  time.Now().Add(5 * time.Minute),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// TakeFlashes returns the messages queued by the previous request and clears them
func TakeFlashes(c *fiber.Ctx) []models.Flash {
	raw := c.Cookies(flashCookie)
	if raw == "" {
		return nil
	}
	c.ClearCookie(flashCookie)

	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	var flashes []models.Flash
	if err := json.Unmarshal(decoded, &flashes); err != nil {
		return nil
	}
	return flashes
}

func redirectWith(c *fiber.Ctx, path, category, message string) error {
	Flash(c, category, message)
	return c.Redirect(path, fiber.StatusFound)
}

var defaultMessages = []struct {
	err     error
	message string
}{
	{service.ErrUnauthenticated, "Please login or register to continue"},
	{service.ErrForbidden, "You do not have permission to access this page"},
	{service.ErrConflict, "That name already exists. Please choose another."},
	{service.ErrStale, "Someone else changed this while you were editing. Please review it and try again."},
	{service.ErrBadCredentials, "Username and/or password incorrect"},
	{service.ErrNameRejected, "This username is unavailable. Please choose another."},
	{service.ErrInvalidInput, "Please check the form and try again"},
}

// userMessage prefers the detail a service attached with "%w: detail"
func userMessage(err error, sentinel error, fallback string) string {
	s := err.Error()
	prefix := sentinel.Error() + ": "
	if detail := strings.TrimPrefix(s, prefix); detail != s && detail != "" {
		return capitalize(detail)
	}
	return fallback
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

// fail turns a service error into the response its class calls for. Input
// errors go back to the form at back; authorization errors go to the listing.
func fail(c *fiber.Ctx, err error, back string) error {
	if errors.Is(err, service.ErrNotFound) {
		return notFound(c, err.Error())
	}
	for _, m := range defaultMessages {
		if !errors.Is(err, m.err) {
			continue
		}
		msg := userMessage(err, m.err, m.message)
		switch m.err {
		case service.ErrUnauthenticated:
			return redirectWith(c, listingPath, FlashInfo, msg)
		case service.ErrForbidden:
			return redirectWith(c, listingPath, FlashError, msg)
		}
		return redirectWith(c, back, FlashError, msg)
	}

	if errors.Is(err, service.ErrIntegrity) {
		log.Printf("❌ INTEGRITY %s %s: %v", c.Method(), c.Path(), err)
	} else {
		log.Printf("❌ %s %s failed: %v", c.Method(), c.Path(), err)
	}
	return err
}

func notFound(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
		Error:   "Not found",
		Message: message,
	})
}

// NotFound is the catch-all for unmatched routes
func NotFound(c *fiber.Ctx) error {
	return notFound(c, fmt.Sprintf("%s does not exist", c.Path()))
}

// bindForm parses and validates a form payload, flashing the first problem
func bindForm(c *fiber.Ctx, v *validator.Validate, form interface{}, back string) (bool, error) {
	if err := c.BodyParser(form); err != nil {
		return false, redirectWith(c, back, FlashError, "Invalid form submission")
	}
	if err := v.Struct(form); err != nil {
		return false, redirectWith(c, back, FlashError, validationMessage(err))
	}
	return true, nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Please check the form and try again"
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Please fill in %s", field)
	case "eqfield":
		return "Passwords do not match"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", capitalize(field), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", capitalize(field), fe.Param())
	case "url":
		return "Please enter a valid link"
	case "email":
		return "Please enter a valid email address"
	}
	return fmt.Sprintf("Invalid %s", field)
}

func paramID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
