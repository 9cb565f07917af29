package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/campusmarket/campus-market-api/internal/dto"
	"github.com/campusmarket/campus-market-api/internal/service"
	"github.com/campusmarket/campus-market-api/internal/utils"
)

// MessagingHandler wires the per-listing conversation endpoints.
type MessagingHandler struct {
	service   service.MessagingService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewMessagingHandler creates a messaging handler instance.
func NewMessagingHandler(service service.MessagingService, validator *validator.Validate, logger zerolog.Logger) *MessagingHandler {
	return &MessagingHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "messaging_handler").Logger(),
	}
}

// Register binds the message routes under the listing group. The guards run
// before every conversation route.
func (h *MessagingHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	router.Post("/:id/messages", chain(guards, h.send)...)
	router.Get("/:id/messages", chain(guards, h.list)...)
	router.Get("/:id/threads", chain(guards, h.threads)...)
}

func (h *MessagingHandler) send(c *fiber.Ctx) error {
	listingID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.MessageSendRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	message, err := h.service.Send(requestContext(c), identityFromContext(c), listingID, payload)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Uint("listing_id", listingID).Msg("message send rejected")
		return sendServiceError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "message sent", message)
}

func (h *MessagingHandler) list(c *fiber.Ctx) error {
	listingID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	query := dto.MessageListQuery{BuyerID: c.Query("buyer_id")}
	messages, err := h.service.List(requestContext(c), identityFromContext(c), listingID, query)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "messages", messages)
}

func (h *MessagingHandler) threads(c *fiber.Ctx) error {
	listingID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	threads, err := h.service.Threads(requestContext(c), identityFromContext(c), listingID)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "threads", threads)
}
