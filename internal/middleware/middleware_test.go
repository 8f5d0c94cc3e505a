package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SergeiKhy/tinylink/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newRouter(logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.RequestLogger(logger))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": middleware.GetRequestID(c)})
	})
	router.GET("/fail", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})
	return router
}

// TestRequestID_Generated проверяет генерацию идентификатора запроса
func TestRequestID_Generated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := newRouter(zap.NewNop())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	id := w.Header().Get(middleware.RequestIDHeader)
	assert.Len(t, id, 36)
	assert.Contains(t, w.Body.String(), id)
}

// TestRequestID_Propagated идентификатор клиента сохраняется
func TestRequestID_Propagated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := newRouter(zap.NewNop())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	req.Header.Set(middleware.RequestIDHeader, "client-id-1")
	router.ServeHTTP(w, req)

	assert.Equal(t, "client-id-1", w.Header().Get(middleware.RequestIDHeader))
}

// TestRequestLogger проверяет поля и уровень записи лога
func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)
	router := newRouter(zap.New(core))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	router.ServeHTTP(w, req)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/fail", nil)
	router.ServeHTTP(w, req)

	entries := logs.All()
	require.Len(t, entries, 2)

	first := entries[0].ContextMap()
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "GET", first["method"])
	assert.Equal(t, "/test", first["path"])
	assert.Equal(t, int64(http.StatusOK), first["status"])
	assert.NotEmpty(t, first["request_id"])

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, int64(http.StatusInternalServerError), entries[1].ContextMap()["status"])
}
