package middleware

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quoteapi-server/models"
)

type stubResolver struct {
	tokens map[string]models.Identity
	keys   map[string]models.Identity
}

func (s stubResolver) VerifyToken(token string) (models.Identity, error) {
	if ident, ok := s.tokens[token]; ok {
		return ident, nil
	}
	return models.Identity{}, errors.New("invalid token")
}

func (s stubResolver) ResolveAPIKey(ctx context.Context, keyValue string) (models.Identity, error) {
	if ident, ok := s.keys[keyValue]; ok {
		return ident, nil
	}
	return models.Identity{}, errors.New("unknown key")
}

func TestResolveIdentityAnonymousByDefault(t *testing.T) {
	app := fiber.New()
	app.Use(ResolveIdentity(stubResolver{}))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		assert.True(t, Identity(c).Anonymous())
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/whoami", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestResolveIdentityBearerToken(t *testing.T) {
	resolver := stubResolver{tokens: map[string]models.Identity{"tok123": {UserID: 8}}}
	app := fiber.New()
	app.Use(ResolveIdentity(resolver))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		assert.Equal(t, int64(8), Identity(c).UserID)
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer tok123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestResolveIdentityBearerAPIKey(t *testing.T) {
	resolver := stubResolver{keys: map[string]models.Identity{"qak_abc": {UserID: 4}}}
	app := fiber.New()
	app.Use(ResolveIdentity(resolver))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		assert.Equal(t, int64(4), Identity(c).UserID)
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer qak_abc")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestResolveIdentityBadTokenDegradesToAnonymous(t *testing.T) {
	app := fiber.New()
	app.Use(ResolveIdentity(stubResolver{}))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		assert.True(t, Identity(c).Anonymous())
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer nonsense")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestResolveIdentityXAPIKeyHeader(t *testing.T) {
	resolver := stubResolver{keys: map[string]models.Identity{"qak_xyz": {UserID: 11}}}
	app := fiber.New()
	app.Use(ResolveIdentity(resolver))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		assert.Equal(t, int64(11), Identity(c).UserID)
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("X-Api-Key", "qak_xyz")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestResolveIdentityAuthorityHeaderLoopbackOnly(t *testing.T) {
	// app.Test requests originate from 0.0.0.0, which is not loopback,
	// so the authority header must be ignored.
	app := fiber.New()
	app.Use(ResolveIdentity(stubResolver{}))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		assert.True(t, Identity(c).Anonymous())
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("X-Endpoint-User-Id", "42")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireAuth(t *testing.T) {
	app := fiber.New()
	app.Use(ResolveIdentity(stubResolver{tokens: map[string]models.Identity{"tok": {UserID: 2}}}))
	app.Get("/private", RequireAuth(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/private", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest("GET", "/private", nil)
	req.Header.Set("Authorization", "Bearer tok")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireAdmin(t *testing.T) {
	resolver := stubResolver{tokens: map[string]models.Identity{
		"user":  {UserID: 2},
		"admin": {UserID: 1, IsAdmin: true},
	}}
	app := fiber.New()
	app.Use(ResolveIdentity(resolver))
	app.Get("/admin", RequireAuth(), RequireAdmin(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer user")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer admin")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
