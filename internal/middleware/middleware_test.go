package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/utils"
)

const testSecret = "middleware-test-secret"

func newCtx(method, target, auth string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func token(t *testing.T, sub, role string) string {
	t.Helper()
	at, err := utils.NewAccessToken(testSecret, sub, role, 5)
	require.NoError(t, err)
	return "Bearer " + at.Token
}

func captureActor(got *model.Actor) echo.HandlerFunc {
	return func(c echo.Context) error {
		*got = ActorFrom(c)
		return c.NoContent(http.StatusNoContent)
	}
}

func TestJWTAuth(t *testing.T) {
	t.Run("missing header", func(t *testing.T) {
		c, rec := newCtx(http.MethodGet, "/", "")
		var got model.Actor
		require.NoError(t, JWTAuth(testSecret)(captureActor(&got))(c))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Nil(t, got)
	})

	t.Run("wrong secret", func(t *testing.T) {
		at, err := utils.NewAccessToken("other", "s-1", model.RoleStaff, 5)
		require.NoError(t, err)
		c, rec := newCtx(http.MethodGet, "/", "Bearer "+at.Token)
		var got model.Actor
		require.NoError(t, JWTAuth(testSecret)(captureActor(&got))(c))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("staff token", func(t *testing.T) {
		c, rec := newCtx(http.MethodGet, "/", token(t, "s-1", model.RoleAdmin))
		var got model.Actor
		require.NoError(t, JWTAuth(testSecret)(captureActor(&got))(c))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, model.Staff{ID: "s-1", Role: model.RoleAdmin}, got)
		assert.Equal(t, "s-1", c.Get(CtxUserID))
	})

	t.Run("guest token", func(t *testing.T) {
		c, _ := newCtx(http.MethodGet, "/", token(t, "ann@example.com", model.RoleGuest))
		var got model.Actor
		require.NoError(t, JWTAuth(testSecret)(captureActor(&got))(c))
		assert.Equal(t, model.Guest{Email: "ann@example.com"}, got)
		_, isStaff := StaffFrom(c)
		assert.False(t, isStaff)
	})
}

func TestOptionalJWT(t *testing.T) {
	t.Run("anonymous passes through", func(t *testing.T) {
		c, rec := newCtx(http.MethodGet, "/", "")
		var got model.Actor
		require.NoError(t, OptionalJWT(testSecret)(captureActor(&got))(c))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, model.Anonymous{}, got)
		assert.Equal(t, "anon", userID(c))
	})

	t.Run("malformed header rejected", func(t *testing.T) {
		c, rec := newCtx(http.MethodGet, "/", "Basic abc")
		var got model.Actor
		require.NoError(t, OptionalJWT(testSecret)(captureActor(&got))(c))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token attaches actor", func(t *testing.T) {
		c, _ := newCtx(http.MethodGet, "/", token(t, "bob@example.com", model.RoleGuest))
		var got model.Actor
		require.NoError(t, OptionalJWT(testSecret)(captureActor(&got))(c))
		assert.Equal(t, model.Guest{Email: "bob@example.com"}, got)
		assert.Equal(t, "bob@example.com", userID(c))
	})
}

func TestRequireRole(t *testing.T) {
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	c, rec := newCtx(http.MethodDelete, "/", "")
	c.Set(CtxRole, model.RoleStaff)
	require.NoError(t, RequireRole(model.RoleAdmin)(ok)(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	c, rec = newCtx(http.MethodDelete, "/", "")
	c.Set(CtxRole, model.RoleAdmin)
	require.NoError(t, RequireRole(model.RoleStaff, model.RoleAdmin)(ok)(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newCtx(http.MethodDelete, "/", "")
	require.NoError(t, RequireRole(model.RoleStaff)(ok)(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRateKey(t *testing.T) {
	c, _ := newCtx(http.MethodPost, "/v1/reservations", "")
	c.SetPath("/v1/reservations")
	c.Request().Header.Set(echo.HeaderXRealIP, "10.0.0.7")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip"}
	assert.Equal(t, "rl:ip:10.0.0.7", rateKey(cfg, c))

	cfg.KeyStrategy = "ip_route"
	assert.Equal(t, "rl:ip:10.0.0.7:route:POST /v1/reservations", rateKey(cfg, c))

	cfg.KeyStrategy = "ip_user_route"
	c.Set(CtxUserID, "s-9")
	assert.Equal(t, "rl:ip:10.0.0.7:user:s-9:route:POST /v1/reservations", rateKey(cfg, c))
}

func TestParseBucketResult(t *testing.T) {
	allowed, remaining, retry, ok := parseBucketResult([]interface{}{int64(1), int64(4), int64(0)})
	require.True(t, ok)
	assert.True(t, allowed)
	assert.EqualValues(t, 4, remaining)
	assert.EqualValues(t, 0, retry)

	allowed, _, retry, ok = parseBucketResult([]interface{}{int64(0), int64(0), "1500"})
	require.True(t, ok)
	assert.False(t, allowed)
	assert.EqualValues(t, 1500, retry)

	_, _, _, ok = parseBucketResult("garbage")
	assert.False(t, ok)
}

func TestCachePayloadRoundTrip(t *testing.T) {
	hdr := http.Header{}
	hdr.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	body := []byte(`{"total":3}`)

	bs, err := encodePayload(http.StatusOK, hdr, body)
	require.NoError(t, err)

	status, gotHdr, gotBody, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, echo.MIMEApplicationJSON, gotHdr.Get(echo.HeaderContentType))
	assert.Equal(t, body, gotBody)

	_, _, _, ok = decodePayload([]byte{0, 1})
	assert.False(t, ok)
}

func TestCacheKeySeparatesRoles(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}

	c1, _ := newCtx(http.MethodGet, "/v1/staff/reservations/stats", "")
	c1.SetPath("/v1/staff/reservations/stats")
	c1.Set(CtxRole, model.RoleStaff)

	c2, _ := newCtx(http.MethodGet, "/v1/staff/reservations/stats", "")
	c2.SetPath("/v1/staff/reservations/stats")
	c2.Set(CtxRole, model.RoleAdmin)

	assert.NotEqual(t, cacheKey(cfg, c1), cacheKey(cfg, c2))

	c3, _ := newCtx(http.MethodGet, "/v1/staff/reservations/stats?x=1", "")
	c3.SetPath("/v1/staff/reservations/stats")
	c3.Set(CtxRole, model.RoleStaff)
	assert.NotEqual(t, cacheKey(cfg, c1), cacheKey(cfg, c3))

	cfg.KeyStrategy = "route"
	assert.Equal(t, cacheKey(cfg, c1), cacheKey(cfg, c3))
}

func TestDisabledMiddlewaresPassThrough(t *testing.T) {
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }

	c, rec := newCtx(http.MethodGet, "/", "")
	require.NoError(t, NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, nil)(ok)(c))
	assert.Equal(t, "ok", rec.Body.String())

	c, rec = newCtx(http.MethodGet, "/", "")
	require.NoError(t, NewRedisCache(config.CacheConfig{Enabled: true}, nil)(ok)(c))
	assert.Equal(t, "ok", rec.Body.String())
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestCacheInvalidator(t *testing.T) {
	write := func(c echo.Context) error { return c.String(http.StatusOK, "written") }

	c, rec := newCtx(http.MethodPost, "/", "")
	require.NoError(t, NewCacheInvalidator(config.CacheConfig{Enabled: true, TTL: time.Second}, nil)(write)(c))
	assert.Equal(t, "written", rec.Body.String())

	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer func() { _ = rdb.Close() }()
	assert.Error(t, purgeCache(context.Background(), rdb, "cache"))

	// An unreachable Redis never turns a successful write into a failure.
	cfg := config.CacheConfig{Enabled: true, TTL: time.Second, Prefix: "cache"}
	c, rec = newCtx(http.MethodPost, "/", "")
	require.NoError(t, NewCacheInvalidator(cfg, rdb)(write)(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "written", rec.Body.String())
}
