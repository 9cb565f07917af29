package middleware

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

// Config carries the dependencies the shared middleware stack needs.
type Config struct {
	Logger *zerolog.Logger
}

// Register installs the app-wide middleware chain. Order matters:
// recover must wrap everything, and correlation ids must exist before
// the observability layer logs the request.
func Register(app *fiber.App, cfg Config) {
	log := zerolog.New(io.Discard)
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	app.Use(recover.New())
	app.Use(CorrelationID())
	app.Use(Observability(log))
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Correlation-ID",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))
}
