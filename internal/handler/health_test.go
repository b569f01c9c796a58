package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okCheck(name string, required bool) HealthCheck {
	return HealthCheck{Name: name, Required: required, Ping: func(context.Context) error { return nil }}
}

func failingCheck(name string, required bool) HealthCheck {
	return HealthCheck{Name: name, Required: required, Ping: func(context.Context) error {
		return errors.New("connection refused")
	}}
}

func getHealth(t *testing.T, handler *HealthHandler, path string) (*http.Response, map[string]interface{}) {
	t.Helper()
	app := fiber.New()
	handler.RegisterRoutes(app)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)

	var result map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return resp, result
}

func TestNewHealthHandler(t *testing.T) {
	before := time.Now()
	handler := NewHealthHandler("1.2.3", okCheck("store", true))
	after := time.Now()

	require.NotNil(t, handler)
	assert.Equal(t, "1.2.3", handler.version)
	assert.Len(t, handler.checks, 1)
	assert.False(t, handler.startTime.Before(before))
	assert.False(t, handler.startTime.After(after))
}

func TestHealthHandler_Health(t *testing.T) {
	t.Run("all checks pass", func(t *testing.T) {
		handler := NewHealthHandler("1.0.0", okCheck("store", true), okCheck("redis", false))

		resp, result := getHealth(t, handler, "/health")

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "healthy", result["status"])
		checks := result["checks"].(map[string]interface{})
		assert.Equal(t, "healthy", checks["store"])
		assert.Equal(t, "healthy", checks["redis"])
	})

	t.Run("optional failure degrades", func(t *testing.T) {
		handler := NewHealthHandler("1.0.0", okCheck("store", true), failingCheck("redis", false))

		resp, result := getHealth(t, handler, "/healthz")

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "degraded", result["status"])
		checks := result["checks"].(map[string]interface{})
		assert.Equal(t, "unhealthy: connection refused", checks["redis"])
	})

	t.Run("required failure is unhealthy", func(t *testing.T) {
		handler := NewHealthHandler("1.0.0", failingCheck("store", true), failingCheck("redis", false))

		resp, result := getHealth(t, handler, "/health")

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "unhealthy", result["status"])
	})
}

func TestHealthHandler_Readiness(t *testing.T) {
	t.Run("ignores optional checks", func(t *testing.T) {
		handler := NewHealthHandler("1.0.0", okCheck("store", true), failingCheck("redis", false))

		resp, result := getHealth(t, handler, "/readyz")

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ready", result["status"])
	})

	t.Run("reports the failing dependency", func(t *testing.T) {
		handler := NewHealthHandler("1.0.0", failingCheck("store", true))

		resp, result := getHealth(t, handler, "/readyz")

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "store unavailable", result["reason"])
	})
}

func TestHealthHandler_LivenessAndVersion(t *testing.T) {
	handler := NewHealthHandler("2.1.0", failingCheck("store", true))

	resp, result := getHealth(t, handler, "/livez")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alive", result["status"])

	resp, result = getHealth(t, handler, "/version")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2.1.0", result["version"])
	assert.NotEmpty(t, result["uptime"])
}
