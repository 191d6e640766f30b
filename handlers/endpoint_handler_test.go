package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quoteapi-server/models"
	"quoteapi-server/services"
)

type fakeManager struct {
	result json.RawMessage
	err    error

	gotName   string
	gotMeta   models.RequestMeta
	gotParams map[string]interface{}
}

func (f *fakeManager) Execute(ctx context.Context, name string, meta models.RequestMeta, params map[string]interface{}, caller models.Identity) (json.RawMessage, error) {
	f.gotName = name
	f.gotMeta = meta
	f.gotParams = params
	return f.result, f.err
}

func (f *fakeManager) Create(ctx context.Context, userID int64, req *models.CreateEndpointRequest) (*models.Endpoint, error) {
	return &models.Endpoint{ID: 1, Name: req.Name, UserID: userID}, nil
}

func (f *fakeManager) Get(ctx context.Context, id int64, caller models.Identity) (*models.Endpoint, error) {
	return nil, services.ErrEndpointNotFound
}

func (f *fakeManager) ListByUser(ctx context.Context, userID int64) ([]models.EndpointListItem, error) {
	return nil, nil
}

func (f *fakeManager) Update(ctx context.Context, id, userID int64, req *models.UpdateEndpointRequest) (*models.Endpoint, error) {
	return nil, services.ErrNotOwner
}

func (f *fakeManager) Toggle(ctx context.Context, id, userID int64) (bool, error) {
	return false, services.ErrEndpointNotFound
}

func (f *fakeManager) Delete(ctx context.Context, id int64, caller models.Identity) error {
	return nil
}

type fakeLimiter struct {
	deny  bool
	gotIP string
}

func (f *fakeLimiter) AllowRun(ctx context.Context, ip string, limit int) bool {
	f.gotIP = ip
	return !f.deny
}

func runApp(manager EndpointManager, limiter RunLimiter) *fiber.App {
	h := NewEndpointHandler(manager, limiter, 60)
	app := fiber.New()
	app.Get("/endpoints/run/:name", h.RunEndpoint)
	app.Post("/endpoints/run/:name", h.RunEndpoint)
	return app
}

func TestRunEndpointReturnsRawJSON(t *testing.T) {
	manager := &fakeManager{result: json.RawMessage(`{"b":2,"a":1}`)}
	app := runApp(manager, &fakeLimiter{})

	resp, err := app.Test(httptest.NewRequest("GET", "/endpoints/run/hello", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	// Byte-for-byte passthrough, key order preserved.
	assert.Equal(t, `{"b":2,"a":1}`, string(body))
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
	assert.Equal(t, "hello", manager.gotName)
}

func TestRunEndpointQueryParams(t *testing.T) {
	manager := &fakeManager{result: json.RawMessage(`{}`)}
	app := runApp(manager, &fakeLimiter{})

	_, err := app.Test(httptest.NewRequest("GET", "/endpoints/run/x?a=1&b=2", nil))
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"a": "1", "b": "2"}, manager.gotParams)
}

func TestRunEndpointBodyOverridesQuery(t *testing.T) {
	manager := &fakeManager{result: json.RawMessage(`{}`)}
	app := runApp(manager, &fakeLimiter{})

	req := httptest.NewRequest("POST", "/endpoints/run/x?a=1&b=2", strings.NewReader(`{"b":3,"c":4}`))
	req.Header.Set("Content-Type", "application/json")
	_, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{
		"a": "1",
		"b": float64(3),
		"c": float64(4),
	}, manager.gotParams)
}

func TestRunEndpointRejectsMalformedBody(t *testing.T) {
	manager := &fakeManager{result: json.RawMessage(`{}`)}
	app := runApp(manager, &fakeLimiter{})

	req := httptest.NewRequest("POST", "/endpoints/run/x", strings.NewReader(`not json`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, manager.gotName)
}

func TestRunEndpointCallDepthHeader(t *testing.T) {
	manager := &fakeManager{result: json.RawMessage(`{}`)}
	app := runApp(manager, &fakeLimiter{})

	req := httptest.NewRequest("GET", "/endpoints/run/x", nil)
	req.Header.Set("X-Endpoint-Call-Depth", "3")
	_, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 3, manager.gotMeta.CallDepth)

	// Garbage is ignored.
	req = httptest.NewRequest("GET", "/endpoints/run/x", nil)
	req.Header.Set("X-Endpoint-Call-Depth", "banana")
	_, err = app.Test(req)
	require.NoError(t, err)
	assert.Zero(t, manager.gotMeta.CallDepth)
}

func TestRunEndpointRateLimited(t *testing.T) {
	manager := &fakeManager{result: json.RawMessage(`{}`)}
	app := runApp(manager, &fakeLimiter{deny: true})

	resp, err := app.Test(httptest.NewRequest("GET", "/endpoints/run/x", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Empty(t, manager.gotName)
}

func TestRunEndpointErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", services.ErrEndpointNotFound, fiber.StatusNotFound},
		{"disabled", services.ErrEndpointDisabled, fiber.StatusForbidden},
		{"denied", &services.AccessError{Status: 401, Message: "需要登录或提供 API Key"}, fiber.StatusUnauthorized},
		{"private", &services.AccessError{Status: 403, Message: "无权访问此资源"}, fiber.StatusForbidden},
		{"script failure", services.ErrScript, fiber.StatusInternalServerError},
		{"infrastructure failure", services.ErrInfrastructure, fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := runApp(&fakeManager{err: tt.err}, &fakeLimiter{})
			resp, err := app.Test(httptest.NewRequest("GET", "/endpoints/run/x", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestRunEndpointMetaFromRequest(t *testing.T) {
	manager := &fakeManager{result: json.RawMessage(`{}`)}
	app := runApp(manager, &fakeLimiter{})

	req := httptest.NewRequest("GET", "/endpoints/run/x", nil)
	req.Header.Set("User-Agent", "curl/8.0")
	req.Header.Set("Referer", "https://example.com/")
	_, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, "curl/8.0", manager.gotMeta.UserAgent)
	assert.Equal(t, "https://example.com/", manager.gotMeta.Referer)
	assert.NotEmpty(t, manager.gotMeta.IP)
}
