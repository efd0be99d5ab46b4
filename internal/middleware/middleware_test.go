package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halpe-hal/pizza-course-manager-app/internal/config"
)

func newContext(method, target string, hdr map[string]string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	req.RemoteAddr = "10.0.0.5:4242"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/board")
	return c
}

func TestBuildRateKey(t *testing.T) {
	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "device_route"}

	c := newContext(http.MethodGet, "/v1/board?station=pizza", map[string]string{HeaderDeviceID: "pizza-tablet"})
	assert.Equal(t, "rl:device:pizza-tablet:route:GET /v1/board", buildRateKey(cfg, c))

	c = newContext(http.MethodGet, "/v1/board", nil)
	assert.Equal(t, "rl:device:10.0.0.5:route:GET /v1/board", buildRateKey(cfg, c))

	cfg.KeyStrategy = "ip"
	assert.Equal(t, "rl:ip:10.0.0.5", buildRateKey(cfg, c))
}

func TestDisabledMiddlewarePassesThrough(t *testing.T) {
	called := 0
	h := func(c echo.Context) error { called++; return c.NoContent(http.StatusNoContent) }
	c := newContext(http.MethodGet, "/v1/courses", nil)

	require.NoError(t, NewRedisCache(config.CacheConfig{Enabled: true}, nil)(h)(c))
	require.NoError(t, NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil)(h)(c))
	assert.Equal(t, 2, called)
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"ok":true}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.JSONEq(t, `{"ok":true}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 1})
	assert.False(t, ok)
}

func TestCacheKeyChangesWithGeneration(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query", TTL: time.Minute}
	c := newContext(http.MethodGet, "/v1/courses?active=true", nil)
	k0 := cacheKeyFrom(cfg, 0, c)
	k1 := cacheKeyFrom(cfg, 1, c)
	assert.NotEqual(t, k0, k1)
	assert.Contains(t, k1, "cache:1:")
}

func TestCaptureWriterLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
	_, _ = cw.Write([]byte("abc"))
	_, _ = cw.Write([]byte("defg"))
	assert.Equal(t, "abcd", cw.buf.String())
	assert.EqualValues(t, 7, cw.size)
	assert.Equal(t, "abcdefg", rec.Body.String())
}
