package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"anypos-register/config"
	"anypos-register/internal/gateway/clients"
	"anypos-register/internal/services/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePOSAPI answers the handful of routes a register touches during login.
type fakePOSAPI struct {
	opened  int32
	revoked int32
	opening atomic.Value
}

func (f *fakePOSAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reply := func(status int, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	if atomic.LoadInt32(&f.revoked) == 1 && r.Header.Get("Authorization") != "" {
		reply(http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
		return
	}

	session := map[string]interface{}{
		"id": 1, "opening_balance": "0.00", "is_closed": false, "opened_at": "2026-03-02T08:00:00",
	}
	switch r.URL.Path {
	case "/health":
		reply(http.StatusOK, map[string]string{"status": "healthy"})
	case "/api/auth/login":
		reply(http.StatusOK, map[string]string{"access_token": "opaque-token", "token_type": "bearer"})
	case "/api/dayend/active":
		if atomic.LoadInt32(&f.opened) == 0 {
			reply(http.StatusNotFound, map[string]string{"detail": "No active day-end found. Please open a day-end first."})
			return
		}
		reply(http.StatusOK, session)
	case "/api/dayend/open":
		var body map[string]json.RawMessage
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.opening.Store(string(body["opening_balance"]))
		atomic.StoreInt32(&f.opened, 1)
		reply(http.StatusOK, session)
	default:
		reply(http.StatusNotFound, map[string]string{"detail": "Not Found"})
	}
}

func newTestRegister(t *testing.T) (*gin.Engine, *register, *fakePOSAPI) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fake := &fakePOSAPI{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	api, err := clients.NewAPIClient(srv.URL+"/api", time.Second)
	require.NoError(t, err)

	cfg := config.Config{
		RegisterID: "till-9",
		TaxRate:    "0.10",
		RateLimit:  config.RateLimitConfig{Rate: "1000-M"},
		Catalog:    config.CatalogConfig{CacheTTL: time.Minute},
		Printer:    config.PrinterConfig{Type: "none", PaperWidth: 48},
		Report:     config.ReportConfig{CompanyName: "AnyPOS"},
	}
	deps := buildRegister(cfg, api, nil)
	return newRouter(cfg, deps), deps, fake
}

func call(t *testing.T, r http.Handler, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return w.Code, out
}

func state(t *testing.T, body map[string]interface{}) string {
	t.Helper()
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "missing data in %v", body)
	s, _ := data["state"].(string)
	return s
}

func TestLoginSkipThenSell(t *testing.T) {
	r, _, fake := newTestRegister(t)

	code, _ := call(t, r, http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body := call(t, r, http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "dana", "password": "pw"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, string(session.StateNeedsOpeningBalance), state(t, body))

	code, _ = call(t, r, http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, http.StatusConflict, code)

	code, body = call(t, r, http.MethodPost, "/api/v1/auth/opening-balance/skip", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, string(session.StateReady), state(t, body))
	assert.Equal(t, "0.00", fake.opening.Load())

	code, _ = call(t, r, http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestRevokedTokenLogsOut(t *testing.T) {
	r, _, fake := newTestRegister(t)
	atomic.StoreInt32(&fake.opened, 1)

	code, body := call(t, r, http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "dana", "password": "pw"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, string(session.StateReady), state(t, body))

	atomic.StoreInt32(&fake.revoked, 1)
	code, _ = call(t, r, http.MethodGet, "/api/v1/dayend/active", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	_, body = call(t, r, http.MethodGet, "/api/v1/auth/status", nil)
	assert.Equal(t, string(session.StateLoggedOut), state(t, body))
}

func TestHealthReflectsMonitor(t *testing.T) {
	r, deps, _ := newTestRegister(t)

	code, body := call(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusPartialContent, code)
	assert.Equal(t, "degraded", body["status"])

	deps.monitor = clients.NewHealthMonitor(deps.api, time.Minute, nil)
	require.True(t, deps.monitor.Check(context.Background()))

	code, body = call(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "till-9", body["register_id"])

	code, body = call(t, r, http.MethodGet, "/health/detailed", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["overall_status"])
	services := body["services"].(map[string]interface{})
	assert.Equal(t, "disabled", services["redis"].(map[string]interface{})["status"])
	assert.Equal(t, "unavailable", services["printer"].(map[string]interface{})["status"])
}
