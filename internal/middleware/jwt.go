package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/campusmarket/campus-market-api/internal/utils"
)

// Locals keys populated by the JWT middleware.
const (
	LocalUserID   = "user_id"
	LocalUserName = "user_name"
	LocalUserRole = "user_role"
	LocalVerified = "user_verified"
)

// IdentityClaims is the decoded token payload the marketplace cares about.
type IdentityClaims struct {
	ID       string
	Name     string
	Role     string
	Verified bool
}

// JWTProtected returns a middleware that validates JWT bearer tokens issued
// by the auth service and binds the identity to the request.
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get("Authorization")
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "Bearer "
		if !strings.HasPrefix(strings.ToLower(authorization), strings.ToLower(bearer)) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		claims, err := ParseIdentity(tokenString, secret)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(LocalUserID, claims.ID)
		c.Locals(LocalUserName, claims.Name)
		c.Locals(LocalUserRole, claims.Role)
		c.Locals(LocalVerified, claims.Verified)

		return c.Next()
	}
}

// ParseIdentity validates a bearer token and extracts the identity claims.
// Shared with the websocket handshake, which authenticates outside the
// normal middleware chain.
func ParseIdentity(tokenString, secret string) (IdentityClaims, error) {
	if tokenString == "" {
		return IdentityClaims{}, errors.New("empty token")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return IdentityClaims{}, errors.New("invalid token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return IdentityClaims{}, errors.New("invalid token claims")
	}

	identity := IdentityClaims{
		ID:       claimString(mapClaims, "sub", "user_id", "id"),
		Name:     claimString(mapClaims, "name"),
		Role:     normalizeRole(mapClaims["role"]),
		Verified: claimBool(mapClaims, "verified"),
	}
	if identity.ID == "" {
		return IdentityClaims{}, errors.New("subject missing")
	}
	return identity, nil
}

func claimString(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		if value, ok := claims[key]; ok {
			switch v := value.(type) {
			case string:
				if trimmed := strings.TrimSpace(v); trimmed != "" {
					return trimmed
				}
			case float64:
				return fmt.Sprintf("%d", uint64(v))
			}
		}
	}
	return ""
}

func claimBool(claims jwt.MapClaims, key string) bool {
	if value, ok := claims[key]; ok {
		if b, ok := value.(bool); ok {
			return b
		}
	}
	return false
}

func normalizeRole(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case []interface{}:
		for _, item := range v {
			if str, ok := item.(string); ok {
				role := strings.ToLower(strings.TrimSpace(str))
				if role != "" {
					return role
				}
			}
		}
	default:
		return ""
	}
	return ""
}
