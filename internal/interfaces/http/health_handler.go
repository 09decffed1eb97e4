package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger verificación de la base de datos (implementado por *pgxpool.Pool).
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health responde 200 si la base responde; 503 si no.
func Health(db Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "db": err.Error()})
			}
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
