package api

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"ordersetl/internal/etl"
	"ordersetl/internal/service"
)

// requestTimeout bounds every service call made from a handler. Rebuilds
// over large dimension tables dominate; generous on purpose.
const requestTimeout = 5 * time.Minute

// Handler binds the service flows to HTTP. One instance serves all routes.
type Handler struct {
	svc       *service.Service
	uploadDir string
	log       service.Logger
}

func NewHandler(svc *service.Service, uploadDir string, log service.Logger) *Handler {
	return &Handler{svc: svc, uploadDir: uploadDir, log: log}
}

// requestContext derives the service-call context from the request, so a
// dropped client or server shutdown cancels in-flight storage work.
func requestContext(c fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context(), requestTimeout)
}

// Upload returns the handler ingesting a multipart file into the given
// entity's dimension table.
func (h *Handler) Upload(entity string) fiber.Handler {
	return func(c fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).
				JSON(errorResponse("missing form field \"file\"", err))
		}
		if fh.Filename == "" {
			return c.Status(fiber.StatusBadRequest).
				JSON(errorResponse("uploaded file has no name", nil))
		}

		// Keep a copy on disk under a collision-free name before parsing,
		// so a failed ingest leaves something to inspect.
		saved := filepath.Join(h.uploadDir, uuid.NewString()+strings.ToLower(filepath.Ext(fh.Filename)))
		if err := c.SaveFile(fh, saved); err != nil {
			return c.Status(fiber.StatusInternalServerError).
				JSON(errorResponse("could not store upload", err))
		}

		f, err := os.Open(saved)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).
				JSON(errorResponse("could not read stored upload", err))
		}
		defer f.Close()

		ctx, cancel := requestContext(c)
		defer cancel()

		res, err := h.svc.Ingest(ctx, entity, fh.Filename, f)
		if err != nil {
			return h.fail(c, fmt.Sprintf("upload of %s failed", entity), err)
		}
		return c.Status(fiber.StatusCreated).
			JSON(successResponse(fmt.Sprintf("%s uploaded", entity), res))
	}
}

// Preview returns the handler serving the first rows of any warehouse
// table: a dimension entity key, "fact_table" or "top_sellers".
func (h *Handler) Preview(key string) fiber.Handler {
	return func(c fiber.Ctx) error {
		ctx, cancel := requestContext(c)
		defer cancel()

		res, err := h.svc.Preview(ctx, key)
		if err != nil {
			return h.fail(c, fmt.Sprintf("preview of %s failed", key), err)
		}
		return c.JSON(successResponse("", res))
	}
}

// RebuildFacts replaces the fact table from the current dimension tables.
func (h *Handler) RebuildFacts(c fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.svc.RebuildFacts(ctx)
	if err != nil {
		return h.fail(c, "fact table rebuild failed", err)
	}
	return c.JSON(successResponse("fact table rebuilt", res))
}

// RebuildTopSellers replaces the top-seller aggregate from the fact table.
func (h *Handler) RebuildTopSellers(c fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.svc.RebuildTopSellers(ctx)
	if err != nil {
		return h.fail(c, "top sellers rebuild failed", err)
	}
	return c.JSON(successResponse("top sellers rebuilt", res))
}

// Health is the liveness probe.
func (h *Handler) Health(c fiber.Ctx) error {
	return c.JSON(successResponse("ok", nil))
}

// fail maps the transform error taxonomy onto HTTP statuses.
func (h *Handler) fail(c fiber.Ctx, message string, err error) error {
	status := fiber.StatusInternalServerError
	switch etl.KindOf(err) {
	case etl.KindInvalidInput, etl.KindEmptyInput, etl.KindArityMismatch:
		status = fiber.StatusBadRequest
	case etl.KindUpstreamMissing:
		status = fiber.StatusNotFound
	case etl.KindJoinEmpty:
		status = fiber.StatusUnprocessableEntity
	}
	if status == fiber.StatusInternalServerError {
		h.log.Printf("request failed: %s: %v", message, err)
	}
	return c.Status(status).JSON(errorResponse(message, err))
}
