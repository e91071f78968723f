// Package routes defines the API routing configuration.
package routes

import (
	"strconv"
	"time"

	"bankcards/internal/handlers"
	"bankcards/internal/middleware"
	"bankcards/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the handlers and middleware the router wires together.
type Dependencies struct {
	Auth      *middleware.AuthMiddleware
	Cards     *handlers.CardHandler
	Transfers *handlers.TransferHandler
	Health    *handlers.HealthHandler
	Gatherer  prometheus.Gatherer

	// TransferRateLimit caps transfer requests per caller per minute.
	// Zero disables the limiter.
	TransferRateLimit int
}

// SetupRoutes configures all application routes.
func SetupRoutes(app *fiber.App, deps Dependencies) {
	app.Get("/health", deps.Health.Check)
	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api", deps.Auth.Handler)

	setupCardRoutes(api, deps.Cards)
	setupTransferRoutes(api, deps.Transfers, deps.TransferRateLimit)
}

func setupCardRoutes(router fiber.Router, h *handlers.CardHandler) {
	cards := router.Group("/cards")

	cards.Post("/", middleware.AdminOnly, h.CreateCard)
	cards.Get("/", h.ListCards)
	cards.Get("/:id", h.GetCard)
	cards.Put("/:id", middleware.AdminOnly, h.UpdateCardStatus)
	cards.Delete("/:id", middleware.AdminOnly, h.DeleteCard)
	cards.Put("/:id/block", h.BlockCard)
	cards.Get("/:id/balance", h.GetBalance)
}

func setupTransferRoutes(router fiber.Router, h *handlers.TransferHandler, perMinute int) {
	transfers := router.Group("/transfers")

	post := []fiber.Handler{h.Transfer}
	if perMinute > 0 {
		post = append([]fiber.Handler{limiter.New(limiter.Config{
			Max:        perMinute,
			Expiration: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				if claims, ok := middleware.Claims(c); ok {
					return "user:" + strconv.FormatUint(uint64(claims.UserID), 10)
				}
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return response.Error(c, fiber.StatusTooManyRequests, "Too many requests. Please try again later.")
			},
		})}, post...)
	}

	transfers.Post("/", post...)
	transfers.Get("/", h.History)
}
