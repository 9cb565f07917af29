package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/campusmarket/campus-market-api/internal/dto"
	"github.com/campusmarket/campus-market-api/internal/service"
	"github.com/campusmarket/campus-market-api/internal/utils"
)

// OfferHandler wires the offer negotiation endpoints.
type OfferHandler struct {
	service   service.OfferService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewOfferHandler creates an offer handler instance.
func NewOfferHandler(service service.OfferService, validator *validator.Validate, logger zerolog.Logger) *OfferHandler {
	return &OfferHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "offer_handler").Logger(),
	}
}

// Register binds the offer routes under the listing group. The guards run
// before every offer route.
func (h *OfferHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	router.Post("/:id/offers", chain(guards, h.create)...)
	router.Patch("/:id/offers/:offerId", chain(guards, h.updateStatus)...)
}

func (h *OfferHandler) create(c *fiber.Ctx) error {
	listingID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.OfferCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	offers, err := h.service.Create(requestContext(c), identityFromContext(c), listingID, payload)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Uint("listing_id", listingID).Msg("offer rejected")
		return sendServiceError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "offer submitted", offers)
}

func (h *OfferHandler) updateStatus(c *fiber.Ctx) error {
	listingID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	offerID, err := parseIDParam(c, "offerId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.OfferStatusUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	offers, err := h.service.UpdateStatus(requestContext(c), identityFromContext(c), listingID, offerID, payload)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Uint("listing_id", listingID).Uint("offer_id", offerID).Msg("offer status change rejected")
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "offer updated", offers)
}
