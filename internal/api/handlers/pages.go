package handlers

import (
	"context"
	"log"

	"gamedict/internal/models"
	"gamedict/internal/worker"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Pinger is a dependency the health check pings
type Pinger interface {
	Ping(ctx context.Context) error
}

// PageHandler handles the contact page and the health check
type PageHandler struct {
	store     Pinger
	kv        Pinger
	pool      *worker.WorkerPool
	clients   func() int
	validator *validator.Validate
}

// NewPageHandler creates a new page handler. clients reports connected
// websocket clients and may be nil.
func NewPageHandler(store, kv Pinger, pool *worker.WorkerPool, clients func() int) *PageHandler {
	if clients == nil {
		clients = func() int { return 0 }
	}
	return &PageHandler{
		store:     store,
		kv:        kv,
		pool:      pool,
		clients:   clients,
		validator: validator.New(),
	}
}

// ContactForm handles GET /contact
func (h *PageHandler) ContactForm(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"messages": TakeFlashes(c)})
}

// Contact handles POST /contact
func (h *PageHandler) Contact(c *fiber.Ctx) error {
	var form models.ContactForm
	if ok, err := bindForm(c, h.validator, &form, "/contact"); !ok {
		return err
	}
	log.Printf("📨 Contact message from %s <%s> (%d bytes)", form.Name, form.Email, len(form.Message))
	return redirectWith(c, listingPath, FlashSuccess, "Thanks for your message")
}

// HealthCheck handles GET /health
// @Summary Health check
// @Description Checks the health of the service and its dependencies
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} models.ErrorResponse
// @Router /health [get]
func (h *PageHandler) HealthCheck(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if err := h.store.Ping(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
			Error:   "Health check failed",
			Message: "store: " + err.Error(),
		})
	}
	if err := h.kv.Ping(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
			Error:   "Health check failed",
			Message: "redis: " + err.Error(),
		})
	}

	resp := fiber.Map{
		"status":            "healthy",
		"message":           "All systems operational",
		"websocket_clients": h.clients(),
	}
	if h.pool != nil {
		resp["vote_events"] = h.pool.GetMetrics()
	}
	return c.JSON(resp)
}
