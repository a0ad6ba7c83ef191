package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rateLimitedEngine(rate string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(rate, "till-1"))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func get(r *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	r := rateLimitedEngine("2-M")

	assert.Equal(t, http.StatusOK, get(r, "10.0.0.1:5000").Code)
	w := get(r, "10.0.0.1:5001")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = get(r, "10.0.0.1:5002")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "RATE_LIMITED", body["error"])
}

func TestRateLimitKeepsClientsApart(t *testing.T) {
	r := rateLimitedEngine("1-M")

	assert.Equal(t, http.StatusOK, get(r, "10.0.0.1:5000").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "10.0.0.1:5000").Code)
	assert.Equal(t, http.StatusOK, get(r, "10.0.0.2:5000").Code)
}
