package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/campusmarket/campus-market-api/internal/config"
	"github.com/campusmarket/campus-market-api/internal/utils"
)

var processStart = time.Now()

// HealthResponse is the liveness payload. Uptime is included so a probe
// can distinguish a fresh restart from a long-running node.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
	Uptime      string    `json:"uptime"`
}

// HealthCheck reports service liveness.
func HealthCheck(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return utils.SendSuccess(c, "service healthy", HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Uptime:      time.Since(processStart).Truncate(time.Second).String(),
		})
	}
}
