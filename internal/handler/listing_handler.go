package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/campusmarket/campus-market-api/internal/dto"
	"github.com/campusmarket/campus-market-api/internal/middleware"
	"github.com/campusmarket/campus-market-api/internal/service"
	"github.com/campusmarket/campus-market-api/internal/utils"
)

// ListingHandler exposes the marketplace listing endpoints.
type ListingHandler struct {
	service   service.ListingService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewListingHandler creates a listing handler instance.
func NewListingHandler(service service.ListingService, validator *validator.Validate, logger zerolog.Logger) *ListingHandler {
	return &ListingHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "listing_handler").Logger(),
	}
}

// RegisterPublic binds the read-only routes that do not require a session.
func (h *ListingHandler) RegisterPublic(router fiber.Router) {
	router.Get("/", h.list)
	router.Get("/:id", h.get)
	router.Post("/:id/metrics", h.incrementMetric)
}

// RegisterProtected binds the mutating routes behind the provided guards.
func (h *ListingHandler) RegisterProtected(router fiber.Router, guards ...fiber.Handler) {
	router.Post("/", chain(guards, h.create)...)
	router.Put("/:id", chain(guards, h.update)...)
	router.Delete("/:id", chain(guards, h.delete)...)
}

func (h *ListingHandler) create(c *fiber.Ctx) error {
	var payload dto.ListingCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	listing, err := h.service.Create(requestContext(c), identityFromContext(c), payload)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("listing create rejected")
		return sendServiceError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "listing created", listing)
}

func (h *ListingHandler) get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	listing, err := h.service.Get(requestContext(c), stringLocal(c, middleware.LocalUserID), id)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "listing", listing)
}

func (h *ListingHandler) list(c *fiber.Ctx) error {
	var query dto.ListingListQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	listings, err := h.service.List(requestContext(c), stringLocal(c, middleware.LocalUserID), query)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "listings", listings)
}

func (h *ListingHandler) update(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ListingUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	listing, err := h.service.Update(requestContext(c), identityFromContext(c), id, payload)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Uint("listing_id", id).Msg("listing update rejected")
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "listing updated", listing)
}

func (h *ListingHandler) delete(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(requestContext(c), identityFromContext(c), id); err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Uint("listing_id", id).Msg("listing delete rejected")
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "listing deleted", nil)
}

func (h *ListingHandler) incrementMetric(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.MetricIncrementRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	metrics, err := h.service.IncrementMetric(requestContext(c), id, payload)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "metrics updated", metrics)
}
