package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestCorrelationIDSources(t *testing.T) {
	cases := []struct {
		name     string
		target   string
		header   map[string]string
		expected string
	}{
		{name: "header", target: "/", header: map[string]string{HeaderCorrelationID: "corr-1"}, expected: "corr-1"},
		{name: "request id", target: "/", header: map[string]string{"X-Request-ID": "req-1"}, expected: "req-1"},
		{name: "query", target: "/?correlation_id=stream-1", expected: "stream-1"},
		{name: "header wins", target: "/?correlation_id=stream-1", header: map[string]string{HeaderCorrelationID: "corr-2"}, expected: "corr-2"},
		{name: "truncated", target: "/", header: map[string]string{HeaderCorrelationID: strings.Repeat("a", 200)}, expected: strings.Repeat("a", maxCorrelationID)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(CorrelationID())
			app.Get("/", func(c *fiber.Ctx) error {
				require.Equal(t, tc.expected, GetCorrelationID(c))
				require.Equal(t, tc.expected, CorrelationIDFromContext(c.UserContext()))
				return c.SendStatus(fiber.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			for key, value := range tc.header {
				req.Header.Set(key, value)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
			require.Equal(t, tc.expected, resp.Header.Get(HeaderCorrelationID))
		})
	}
}

func TestCorrelationIDGeneratesWhenMissing(t *testing.T) {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(GetCorrelationID(c))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	generated := resp.Header.Get(HeaderCorrelationID)
	require.Len(t, generated, 36)
}
