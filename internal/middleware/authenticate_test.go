package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmlink/farmlink/internal/auth"
	"github.com/farmlink/farmlink/internal/authctx"
	"github.com/farmlink/farmlink/internal/identity"
	"github.com/farmlink/farmlink/internal/logging"
)

const gateSecret = "0123456789abcdef0123456789abcdef"

type countingResolver struct {
	inner PrincipalResolver
	calls int
}

func (r *countingResolver) Resolve(ctx context.Context, name string) (identity.Principal, error) {
	r.calls++
	return r.inner.Resolve(ctx, name)
}

type brokenResolver struct{}

func (brokenResolver) Resolve(context.Context, string) (identity.Principal, error) {
	return identity.Principal{}, errors.New("db down")
}

func newGateApp(t *testing.T, resolver PrincipalResolver) (*fiber.App, *auth.Codec) {
	t.Helper()
	codec := auth.NewCodec(gateSecret, time.Hour)
	app := fiber.New()
	app.Use(Authenticate(codec, resolver, logging.Discard()))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		p := authctx.FromContext(c.UserContext())
		if p == nil {
			return c.SendString("anonymous")
		}
		return c.SendString(p.Kind + ":" + p.Name)
	})
	return app, codec
}

func seedStores(t *testing.T) (identity.UserRepository, identity.InstitutionRepository) {
	t.Helper()
	ctx := context.Background()
	users := identity.NewMemoryUserRepository()
	institutions := identity.NewMemoryInstitutionRepository()
	require.NoError(t, users.Create(ctx, identity.User{ID: "u1", Name: "alice", Roles: []string{identity.RoleUser}}))
	require.NoError(t, users.Create(ctx, identity.User{ID: "u2", Name: "shared", Roles: []string{identity.RoleUser}}))
	require.NoError(t, institutions.Create(ctx, identity.Institution{ID: "i1", Name: "agribank", Roles: []string{identity.RoleBank}}))
	require.NoError(t, institutions.Create(ctx, identity.Institution{ID: "i2", Name: "shared", Roles: []string{identity.RoleBank}}))
	return users, institutions
}

func whoami(t *testing.T, app *fiber.App, authz string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if authz != "" {
		req.Header.Set(fiber.HeaderAuthorization, authz)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestAuthenticateInstallsPrincipal(t *testing.T) {
	app, codec := newGateApp(t, identity.NewResolver(seedStores(t)))

	userTok, err := codec.Issue("alice")
	require.NoError(t, err)
	bankTok, err := codec.Issue("agribank")
	require.NoError(t, err)

	assert.Equal(t, "user:alice", whoami(t, app, "Bearer "+userTok.Value))
	assert.Equal(t, "institution:agribank", whoami(t, app, "bearer "+bankTok.Value))
}

func TestAuthenticateCollisionResolvesToUser(t *testing.T) {
	app, codec := newGateApp(t, identity.NewResolver(seedStores(t)))
	tok, err := codec.Issue("shared")
	require.NoError(t, err)

	for loopIdx := 0; loopIdx < 10; loopIdx++ {
		assert.Equal(t, "user:shared", whoami(t, app, "Bearer "+tok.Value))
	}
}

func TestAuthenticateDegradesToAnonymous(t *testing.T) {
	app, codec := newGateApp(t, identity.NewResolver(seedStores(t)))
	ghost, err := codec.Issue("ghost")
	require.NoError(t, err)

	expired := auth.NewCodec(gateSecret, time.Hour, auth.WithTimeFunc(func() time.Time {
		return time.Now().Add(-2 * time.Hour)
	}))
	old, err := expired.Issue("alice")
	require.NoError(t, err)

	cases := map[string]string{
		"no header":     "",
		"wrong scheme":  "Basic YWxpY2U6cDE=",
		"empty bearer":  "Bearer ",
		"garbage token": "Bearer not.a.token",
		"unknown":       "Bearer " + ghost.Value,
		"expired":       "Bearer " + old.Value,
	}
	for name, authz := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, "anonymous", whoami(t, app, authz))
		})
	}
}

func TestAuthenticateStoreFailureIsAnonymous(t *testing.T) {
	app, codec := newGateApp(t, brokenResolver{})
	tok, err := codec.Issue("alice")
	require.NoError(t, err)
	assert.Equal(t, "anonymous", whoami(t, app, "Bearer "+tok.Value))
}

func TestAuthenticateRunsOncePerRequest(t *testing.T) {
	resolver := &countingResolver{inner: identity.NewResolver(seedStores(t))}
	codec := auth.NewCodec(gateSecret, time.Hour)
	gate := Authenticate(codec, resolver, logging.Discard())

	app := fiber.New()
	app.Use(gate, gate)
	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.SendString(authctx.FromContext(c.UserContext()).Name)
	})

	tok, err := codec.Issue("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", whoami(t, app, "Bearer "+tok.Value))
	assert.Equal(t, 1, resolver.calls)
}

func TestRequireRole(t *testing.T) {
	app, codec := newGateApp(t, identity.NewResolver(seedStores(t)))
	app.Get("/bank", RequireRole(identity.RoleBank), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})

	userTok, _ := codec.Issue("alice")
	bankTok, _ := codec.Issue("agribank")

	cases := []struct {
		authz string
		want  int
	}{
		{"", http.StatusUnauthorized},
		{"Bearer " + userTok.Value, http.StatusForbidden},
		{"Bearer " + bankTok.Value, http.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/bank", nil)
		if tc.authz != "" {
			req.Header.Set(fiber.HeaderAuthorization, tc.authz)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, tc.want, resp.StatusCode)
	}
}

func TestRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := fiber.New()
	app.Post("/login", RateLimit(cache, "login", 2, time.Minute, KeyByLoginName), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	post := func(body string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, post(`{"name":"alice"}`))
	assert.Equal(t, http.StatusOK, post(`{"name":"alice"}`))
	assert.Equal(t, http.StatusTooManyRequests, post(`{"name":"alice"}`))
	assert.Equal(t, http.StatusOK, post(`{"bankName":"agribank"}`))

	mr.FastForward(time.Minute)
	assert.Equal(t, http.StatusOK, post(`{"name":"alice"}`))
}

func TestRateLimitWithoutCache(t *testing.T) {
	app := fiber.New()
	app.Post("/login", RateLimit(nil, "login", 1, time.Minute, KeyByLoginName), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})
	for loopIdx := 0; loopIdx < 3; loopIdx++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
}

func TestRateLimitRearmsCounterWithoutExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	// A counter left behind by a failed Expire: over the limit, no TTL.
	require.NoError(t, mr.Set("rl:login:alice", "7"))

	app := fiber.New()
	app.Post("/login", RateLimit(cache, "login", 2, time.Minute, KeyByLoginName), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})
	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"name":"alice"}`))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusTooManyRequests, post())
	assert.Equal(t, time.Minute, mr.TTL("rl:login:alice"))

	mr.FastForward(time.Minute)
	assert.Equal(t, http.StatusOK, post())
}
