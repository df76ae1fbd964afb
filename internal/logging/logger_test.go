package logging_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"cinema/internal/logging"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLoggerRecordsRequest(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core)

	app := fiber.New()
	app.Use(requestid.New(requestid.Config{ContextKey: logging.RequestIDKey}))
	app.Use(logging.RequestLogger(log))
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set("X-Request-ID", "req-42")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	entries := logs.FilterMessage("Request completed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "/ping", fields["path"])
	assert.EqualValues(t, fiber.StatusOK, fields["status"])
}

func TestFromContextAddsRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core)

	ctx := logging.WithRequestID(context.Background(), "abc")
	logging.FromContext(ctx, log).Info("hello")
	logging.FromContext(context.Background(), log).Info("bare")

	all := logs.All()
	require.Len(t, all, 2)
	assert.Equal(t, "abc", all[0].ContextMap()["request_id"])
	_, ok := all[1].ContextMap()["request_id"]
	assert.False(t, ok)
}

func TestNew(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		log, err := logging.New(env)
		require.NoError(t, err)
		assert.NotNil(t, log)
	}
}
