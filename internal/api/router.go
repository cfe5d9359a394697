// Package api provides the HTTP surface of the warehouse: per-entity upload
// and preview routes, the fact-table and top-seller rebuild triggers, and a
// health check.
package api

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"

	"ordersetl/internal/metrics"
	"ordersetl/internal/schema"
)

// NewApp builds the configured fiber application. The caller owns Listen and
// Shutdown.
func NewApp(h *Handler, m metrics.Backend) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "ordersetl API",
		BodyLimit:    64 * 1024 * 1024, // dataset CSVs run tens of MB
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${method} ${path} ${status} ${latency}\n",
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health"
		},
	}))
	app.Use(recover.New())
	if m != nil {
		app.Use(metricsMiddleware(m))
	}

	v1 := app.Group("/api/v1")
	v1.Get("/health", h.Health)

	// One upload and one preview route per dimension entity.
	for _, ent := range schema.Dimensions() {
		g := v1.Group("/" + ent.Key)
		g.Post("/upload", h.Upload(ent.Key))
		g.Get("/", h.Preview(ent.Key))
	}

	facts := v1.Group("/fact_table")
	facts.Post("/rebuild", h.RebuildFacts)
	facts.Get("/", h.Preview("fact_table"))

	top := v1.Group("/top_sellers")
	top.Post("/rebuild", h.RebuildTopSellers)
	top.Get("/", h.Preview("top_sellers"))

	app.Use(notFound)
	return app
}

func notFound(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).
		JSON(errorResponse("no such route: "+c.Method()+" "+c.Path(), nil))
}

// metricsMiddleware counts requests and observes latency per route/status.
func metricsMiddleware(m metrics.Backend) fiber.Handler {
	return func(c fiber.Ctx) error {
		started := time.Now()
		err := c.Next()

		labels := metrics.Labels{
			"method": c.Method(),
			"path":   c.Route().Path,
			"status": statusClass(c.Response().StatusCode()),
		}
		m.IncCounter(metrics.HTTPRequestsTotal, 1, labels)
		m.ObserveHistogram(metrics.HTTPDurationSeconds, time.Since(started).Seconds(), labels)
		return err
	}
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
