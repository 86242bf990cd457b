package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestObservabilityLogsAPIRequestsWithCorrelation(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	app := fiber.New()
	app.Use(CorrelationID())
	app.Use(Observability(logger))
	app.Get("/api/v1/categories/:slug", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNotFound)
	})
	app.Get("/metrics", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/categories/unknown", nil)
	req.Header.Set("X-Correlation-ID", "corr-1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	require.Equal(t, "corr-1", resp.Header.Get("X-Correlation-ID"))

	logged := buf.String()
	require.Contains(t, logged, `"correlation_id":"corr-1"`)
	require.Contains(t, logged, `"route":"/api/v1/categories/:slug"`)
	require.Contains(t, logged, "request completed with client error")

	buf.Reset()
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Empty(t, buf.String())
}

func TestLatencyBucket(t *testing.T) {
	require.Equal(t, "<=25ms", latencyBucket(10*time.Millisecond))
	require.Equal(t, "<=250ms", latencyBucket(200*time.Millisecond))
	require.Equal(t, ">500ms", latencyBucket(2*time.Second))
}

func TestObservabilityLogsStreamsAsOpened(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	app := fiber.New()
	app.Use(Observability(logger))
	app.Get("/api/v1/chat/threads/stream", func(c *fiber.Ctx) error {
		c.Locals(LocalUserID, "u1")
		c.Set(fiber.HeaderContentType, "text/event-stream")
		return c.SendString("event: threads\ndata: []\n\n")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/chat/threads/stream", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	logged := buf.String()
	require.Contains(t, logged, "stream opened")
	require.Contains(t, logged, `"user_id":"u1"`)
	require.NotContains(t, logged, "latency_ms")
}
