package middlewares_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredericlb/BespokeSynthPatches/internal/interfaces/httpserver/middlewares"
	"github.com/fredericlb/BespokeSynthPatches/internal/utils/platformerrors"
)

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middlewares.RequestID(), middlewares.MetricsMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"gin":     middlewares.RequestIDFromContext(c),
			"context": platformerrors.RequestIDFromContext(c.Request.Context()),
		})
	})
	return r
}

func TestRequestID_GeneratesULID(t *testing.T) {
	w := httptest.NewRecorder()
	setupRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(t, http.StatusOK, w.Code)
	id := w.Header().Get("X-Request-Id")
	assert.True(t, strings.HasPrefix(id, "req_"))
	assert.Len(t, id, len("req_")+26)
	assert.Contains(t, w.Body.String(), `"gin":"`+id+`"`)
	assert.Contains(t, w.Body.String(), `"context":"`+id+`"`)
}

func TestRequestID_KeepsIncomingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	w := httptest.NewRecorder()
	setupRouter().ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get("X-Request-Id"))
}

func TestLoggingMiddleware_OmitsQueryString(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	r := gin.New()
	r.Use(middlewares.RequestID(), middlewares.LoggingMiddleware(zerolog.New(&buf)))
	r.GET("/v1/patches/:uuid", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/patches/p-1?token=secret-jwt", nil))

	line := buf.String()
	assert.Contains(t, line, `"level":"warn"`)
	assert.Contains(t, line, `"patch_uuid":"p-1"`)
	assert.Contains(t, line, `"route":"/v1/patches/:uuid"`)
	assert.Contains(t, line, `"status":404`)
	assert.NotContains(t, line, "secret-jwt")
}
