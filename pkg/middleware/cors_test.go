package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func serveCORS(cfg CORSConfig, method, origin string, preflight bool) *httptest.ResponseRecorder {
	h := CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(method, "/api/v1/cart", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if preflight {
		req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCORS_Wildcard(t *testing.T) {
	rec := serveCORS(DefaultCORSConfig(), http.MethodGet, "https://shop.example", false)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), HeaderSessionID)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), HeaderSessionID)
}

func TestCORS_ListedOriginEchoed(t *testing.T) {
	cfg := CORSConfig{AllowedOrigins: []string{"https://unidigital.example/", "https://admin.example"}}

	rec := serveCORS(cfg, http.MethodGet, "https://unidigital.example", false)
	assert.Equal(t, "https://unidigital.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
}

func TestCORS_UnlistedOriginRejected(t *testing.T) {
	cfg := CORSConfig{AllowedOrigins: []string{"https://unidigital.example"}}

	rec := serveCORS(cfg, http.MethodGet, "https://evil.example", false)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestCORS_CredentialsNeverWithWildcard(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowCredentials = true

	rec := serveCORS(cfg, http.MethodGet, "https://shop.example", false)
	assert.Equal(t, "https://shop.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_Preflight(t *testing.T) {
	rec := serveCORS(DefaultCORSConfig(), http.MethodOptions, "https://shop.example", true)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "3600", rec.Header().Get("Access-Control-Max-Age"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPut)
}

func TestCORS_PlainOptionsReachesHandler(t *testing.T) {
	rec := serveCORS(DefaultCORSConfig(), http.MethodOptions, "", false)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestCORS_DefaultsApplied(t *testing.T) {
	rec := serveCORS(CORSConfig{}, http.MethodGet, "https://shop.example", false)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "3600", rec.Header().Get("Access-Control-Max-Age"))
}
