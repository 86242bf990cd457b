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

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newJWTApp() *fiber.App {
	app := fiber.New()
	app.Use(JWTProtected("secret"))
	app.Get("/me", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"id": UserID(c), "role": UserRole(c)})
	})
	return app
}

func TestJWTProtectedAcceptsStringSubject(t *testing.T) {
	app := newJWTApp()
	token := signToken(t, "secret", jwt.MapClaims{"sub": "u1", "role": "Professional", "exp": time.Now().Add(time.Hour).Unix()})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWTProtectedAcceptsQueryToken(t *testing.T) {
	app := newJWTApp()
	token := signToken(t, "secret", jwt.MapClaims{"user_id": float64(42)})

	req := httptest.NewRequest(http.MethodGet, "/me?access_token="+token, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWTProtectedRejectsBadTokens(t *testing.T) {
	app := newJWTApp()

	cases := map[string]string{
		"missing":      "",
		"wrong scheme": "Basic abc",
		"wrong secret": "Bearer " + signToken(t, "other", jwt.MapClaims{"sub": "u1"}),
		"no subject":   "Bearer " + signToken(t, "secret", jwt.MapClaims{"role": "customer"}),
		"separator":    "Bearer " + signToken(t, "secret", jwt.MapClaims{"sub": "a_b"}),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestNormalizeUserID(t *testing.T) {
	require.Equal(t, "u1", normalizeUserID(" u1 "))
	require.Equal(t, "42", normalizeUserID(float64(42)))
	require.Equal(t, "", normalizeUserID(float64(4.2)))
	require.Equal(t, "", normalizeUserID(true))
}
