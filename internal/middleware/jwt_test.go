package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func protectedApp() *fiber.App {
	app := fiber.New()
	app.Get("/me", JWTProtected(testSecret), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"id":       c.Locals(LocalUserID),
			"role":     c.Locals(LocalUserRole),
			"verified": c.Locals(LocalVerified),
		})
	})
	return app
}

func TestJWTProtectedAcceptsValidToken(t *testing.T) {
	app := protectedApp()
	token := signedToken(t, jwt.MapClaims{
		"sub":      "u-1",
		"name":     "Alice",
		"role":     "user",
		"verified": true,
		"exp":      time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWTProtectedRejectsMissingHeader(t *testing.T) {
	app := protectedApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/me", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJWTProtectedRejectsExpiredToken(t *testing.T) {
	app := protectedApp()
	token := signedToken(t, jwt.MapClaims{
		"sub": "u-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestParseIdentityExtractsClaims(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{
		"sub":      "u-42",
		"name":     "Maha",
		"role":     "ADMIN",
		"verified": true,
	})

	identity, err := ParseIdentity(token, testSecret)
	require.NoError(t, err)
	require.Equal(t, "u-42", identity.ID)
	require.Equal(t, "Maha", identity.Name)
	require.Equal(t, "admin", identity.Role)
	require.True(t, identity.Verified)
}

func TestParseIdentityRejectsWrongSecret(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"sub": "u-1"})

	_, err := ParseIdentity(token, "other-secret")
	require.Error(t, err)
}
