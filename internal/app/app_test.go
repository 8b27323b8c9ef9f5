package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Davidgwa1996/unidigitalcom/pkg/logger"

	"github.com/Davidgwa1996/unidigitalcom/internal/config"
	"github.com/Davidgwa1996/unidigitalcom/internal/domain"
	redisstorage "github.com/Davidgwa1996/unidigitalcom/internal/storage/redis"
)

func loadConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func request(t *testing.T, h http.Handler, method, path, sid, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if sid != "" {
		req.Header.Set("X-Session-ID", sid)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewApp_RedisBackedCartSurvivesRestart(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := loadConfig(t, map[string]string{
		"STORAGE_BACKEND": "redis",
		"REDIS_ADDR":      mr.Addr(),
	})

	first, err := NewApp(cfg, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = first.Shutdown() })

	rec := request(t, first.Handler(), http.MethodPost, "/api/v1/cart/items", "sess-1", `{"product_id":"elec2","quantity":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	raw := mr.HGet(redisstorage.SessionKey("sess-1"), domain.SnapshotKey(cfg.Namespace))
	assert.Contains(t, raw, `"id":"elec2"`)

	second, err := NewApp(cfg, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Shutdown() })

	rec = request(t, second.Handler(), http.MethodGet, "/api/v1/cart/count", "sess-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data struct {
			ItemCount int `json:"item_count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Data.ItemCount)
}

func TestNewApp_MalformedRedisSnapshotRecovers(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := loadConfig(t, map[string]string{
		"STORAGE_BACKEND": "redis",
		"REDIS_ADDR":      mr.Addr(),
	})
	mr.HSet(redisstorage.SessionKey("sess-2"), domain.SnapshotKey(cfg.Namespace), "{not json")

	a, err := NewApp(cfg, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown() })

	rec := request(t, a.Handler(), http.MethodGet, "/api/v1/cart", "sess-2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"items":[]`)
	assert.Contains(t, rec.Body.String(), `"currency":"GBP"`)
}

func TestNewApp_RedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := loadConfig(t, map[string]string{
		"STORAGE_BACKEND": "redis",
		"REDIS_ADDR":      addr,
	})

	_, err := NewApp(cfg, logger.Discard())
	assert.ErrorContains(t, err, "connect to redis")
}

func TestNewApp_MemoryBackendReadiness(t *testing.T) {
	cfg := loadConfig(t, map[string]string{"STORAGE_BACKEND": "memory"})

	a, err := NewApp(cfg, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown() })

	rec := request(t, a.Handler(), http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := loadConfig(t, map[string]string{
		"STORAGE_BACKEND":      "memory",
		"STOREFRONT_HTTP_PORT": "18089",
	})
	a, err := NewApp(cfg, logger.Discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, a.Run(ctx))
}
