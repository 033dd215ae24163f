package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/config"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/list/", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("/list/", "GET", 200, 20*time.Millisecond)
	m.RecordError("/tickets/ai_reply/:id/", "POST", "INTERNAL_ERROR")
	m.RecordTicketEvent("ticket_created")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestCount.WithLabelValues("GET", "/list/", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorCount.WithLabelValues("POST", "/tickets/ai_reply/:id/", "INTERNAL_ERROR")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ticketEvents.WithLabelValues("ticket_created")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	m.RecordTicketEvent("x")
}

func TestNewLoggerWithFile(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: "debug", File: t.TempDir() + "/app.log", MaxSizeMB: 1})
	require.NoError(t, err)
	logger.Debug("hello")
	_ = logger.Sync()
}

func TestRequestLoggerRecordsErrorStatus(t *testing.T) {
	m := NewMetrics()
	app := fiber.New()
	app.Use(RequestLogger(zap.NewNop(), m))
	app.Get("/teapot", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/teapot", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestCount.WithLabelValues("GET", "/teapot", "418")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.requestCount.WithLabelValues("GET", "/teapot", "200")))
}

func TestRequestLoggerSeesMappedStatus(t *testing.T) {
	m := NewMetrics()
	app := fiber.New()
	app.Use(RequestLogger(zap.NewNop(), m))
	app.Use(func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			return c.Status(fiber.StatusNotFound).SendString(err.Error())
		}
		return nil
	})
	app.Get("/missing", func(c *fiber.Ctx) error {
		return errors.New("ticket not found")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestCount.WithLabelValues("GET", "/missing", "404")))
}
