package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	headerCorrelationID = "X-Correlation-ID"
	localCorrelationID  = "correlation_id"
	fallbackHeaderReqID = "X-Request-ID"
)

type correlationKeyType struct{}

var correlationKey correlationKeyType

// CorrelationID tags every request with an identifier so a message send,
// its metric bump, and its realtime emit can be tied together in logs.
// An id supplied by the caller wins; otherwise a fresh one is minted.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := firstNonEmpty(c.Get(headerCorrelationID), c.Get(fallbackHeaderReqID))
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals(localCorrelationID, id)
		c.Set(headerCorrelationID, id)
		c.SetUserContext(context.WithValue(c.Context(), correlationKey, id))

		return c.Next()
	}
}

// GetCorrelationID returns the id bound to the active request, checking
// Locals first and falling back to the request context.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals(localCorrelationID).(string); ok && id != "" {
		return id
	}
	return CorrelationIDFromContext(c.Context())
}

// CorrelationIDFromContext reads the id previously attached with
// ContextWithCorrelation, or "" when none is present.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationKey).(string)
	return id
}

// ContextWithCorrelation carries the request id into contexts handed to
// the service layer, where fiber's Ctx is no longer available.
func ContextWithCorrelation(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey, id)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
