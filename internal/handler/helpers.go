package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/campusmarket/campus-market-api/internal/middleware"
	"github.com/campusmarket/campus-market-api/internal/service"
	"github.com/campusmarket/campus-market-api/internal/utils"
)

// chain prefixes a route handler with its guard middlewares. Routes under
// /listings mix public and authenticated endpoints on the same prefix, so
// guards attach per route rather than per group.
func chain(guards []fiber.Handler, handler fiber.Handler) []fiber.Handler {
	out := make([]fiber.Handler, 0, len(guards)+1)
	out = append(out, guards...)
	return append(out, handler)
}

// requestContext carries the correlation identifier into the service layer so
// log lines and spans line up with the originating request.
func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func identityFromContext(c *fiber.Ctx) service.Identity {
	identity := service.Identity{
		ID:   stringLocal(c, middleware.LocalUserID),
		Name: stringLocal(c, middleware.LocalUserName),
		Role: stringLocal(c, middleware.LocalUserRole),
	}
	if verified, ok := c.Locals(middleware.LocalVerified).(bool); ok {
		identity.Verified = verified
	}
	return identity
}

func stringLocal(c *fiber.Ctx, key string) string {
	if v := c.Locals(key); v != nil {
		switch value := v.(type) {
		case string:
			return strings.TrimSpace(value)
		case fmt.Stringer:
			return strings.TrimSpace(value.String())
		}
	}
	return ""
}

func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || parsed == 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return uint(parsed), nil
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// sendServiceError maps service failures onto the HTTP error taxonomy.
// Authorization failures deliberately get a generic message so callers learn
// nothing about the resource.
func sendServiceError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrRecipientRequired),
		errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, service.ErrOfferFinalized):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrListingNotFound),
		errors.Is(err, service.ErrOfferNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrAdminCannotParticipate),
		errors.Is(err, service.ErrSellerCannotOffer),
		errors.Is(err, service.ErrOfferNotAuthorised),
		errors.Is(err, service.ErrListingNotAuthorised):
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	case errors.Is(err, service.ErrUploadTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrUploadTypeNotAllowed):
		return utils.SendError(c, fiber.StatusUnsupportedMediaType, err.Error())
	default:
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
