package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/campusmarket/campus-market-api/internal/middleware"
	"github.com/campusmarket/campus-market-api/internal/service"
	"github.com/campusmarket/campus-market-api/internal/utils"
)

// SavedHandler exposes the favorites endpoints.
type SavedHandler struct {
	service service.SavedService
	logger  zerolog.Logger
}

// NewSavedHandler creates a saved-listings handler instance.
func NewSavedHandler(service service.SavedService, logger zerolog.Logger) *SavedHandler {
	return &SavedHandler{
		service: service,
		logger:  logger.With().Str("component", "saved_handler").Logger(),
	}
}

// Register binds the saved-listing routes.
func (h *SavedHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Post("/:id", h.save)
	router.Delete("/:id", h.remove)
}

func (h *SavedHandler) list(c *fiber.Ctx) error {
	saved, err := h.service.List(requestContext(c), stringLocal(c, middleware.LocalUserID))
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "saved listings", saved)
}

func (h *SavedHandler) save(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	saved, err := h.service.Save(requestContext(c), stringLocal(c, middleware.LocalUserID), id)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "listing saved", saved)
}

func (h *SavedHandler) remove(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Remove(requestContext(c), stringLocal(c, middleware.LocalUserID), id); err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "listing removed from saved", nil)
}
