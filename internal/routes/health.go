package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

const backendDisabled = "disabled"

// RegisterHealthRoutes adds liveness and readiness endpoints.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		dbStatus, redisStatus := backendDisabled, backendDisabled
		if d.DB != nil {
			dbStatus = pingStatus(d.DB.Ping(ctx))
		}
		if d.Cache != nil {
			redisStatus = pingStatus(d.Cache.Ping(ctx).Err())
		}

		status := http.StatusOK
		if unhealthy(dbStatus) || unhealthy(redisStatus) {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"service":   d.Cfg.AppName,
			"status":    fiber.Map{"postgres": dbStatus, "redis": redisStatus},
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	app.Get("/api/v1/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "pong"})
	})
}

func pingStatus(err error) string {
	if err != nil {
		return err.Error()
	}
	return "ok"
}

func unhealthy(status string) bool {
	return status != "ok" && status != backendDisabled
}
