package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/campusmarket/campus-market-api/internal/middleware"
	"github.com/campusmarket/campus-market-api/internal/models"
	"github.com/campusmarket/campus-market-api/internal/repository"
	"github.com/campusmarket/campus-market-api/internal/service"
)

const localRealtimeIdentity = "realtimeIdentity"

// RealtimeHandler upgrades authenticated clients onto the realtime event
// stream.
type RealtimeHandler struct {
	service   service.RealtimeService
	accounts  repository.AccountRepository
	jwtSecret string
	logger    zerolog.Logger
}

// NewRealtimeHandler creates a realtime handler instance.
func NewRealtimeHandler(service service.RealtimeService, accounts repository.AccountRepository, jwtSecret string, logger zerolog.Logger) *RealtimeHandler {
	return &RealtimeHandler{
		service:   service,
		accounts:  accounts,
		jwtSecret: jwtSecret,
		logger:    logger.With().Str("component", "realtime_handler").Logger(),
	}
}

// Register binds the websocket route. Authentication happens during the
// upgrade so an unauthenticated socket is never established.
func (h *RealtimeHandler) Register(router fiber.Router) {
	router.Use("/ws", h.handshake)
	router.Get("/ws", websocket.New(h.serve))
}

// handshake authenticates the upgrade request. Every failure yields the same
// generic refusal: the caller must not learn whether the token, the account or
// its standing was the problem.
func (h *RealtimeHandler) handshake(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	claims, err := middleware.ParseIdentity(h.token(c), h.jwtSecret)
	if err != nil {
		h.logger.Debug().Err(err).Msg("realtime handshake refused")
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	account, err := h.accounts.Get(c.UserContext(), claims.ID)
	if err != nil {
		h.logger.Debug().Err(err).Str("user_id", claims.ID).Msg("realtime handshake refused")
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	if account.Status == models.AccountStatusSuspended || !account.Verified {
		h.logger.Debug().Str("user_id", claims.ID).Msg("realtime handshake refused")
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	c.Locals(localRealtimeIdentity, service.ConnectionIdentity{
		UserID:        account.ID,
		Name:          account.Name,
		Role:          account.Role,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	return c.Next()
}

func (h *RealtimeHandler) serve(conn *websocket.Conn) {
	identity, ok := conn.Locals(localRealtimeIdentity).(service.ConnectionIdentity)
	if !ok {
		_ = conn.Close()
		return
	}
	h.service.ServeConnection(conn, identity)
}

// token looks for the credential in the query string first, matching browser
// websocket clients that cannot set headers, then falls back to the standard
// Authorization header.
func (h *RealtimeHandler) token(c *fiber.Ctx) string {
	if token := strings.TrimSpace(c.Query("token")); token != "" {
		return token
	}
	header := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}
