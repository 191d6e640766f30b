package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"quoteapi-server/middleware"
	"quoteapi-server/models"
	"quoteapi-server/services"
)

// EndpointManager is the slice of the endpoint service the handler uses
type EndpointManager interface {
	Execute(ctx context.Context, name string, meta models.RequestMeta, params map[string]interface{}, caller models.Identity) (json.RawMessage, error)
	Create(ctx context.Context, userID int64, req *models.CreateEndpointRequest) (*models.Endpoint, error)
	Get(ctx context.Context, id int64, caller models.Identity) (*models.Endpoint, error)
	ListByUser(ctx context.Context, userID int64) ([]models.EndpointListItem, error)
	Update(ctx context.Context, id, userID int64, req *models.UpdateEndpointRequest) (*models.Endpoint, error)
	Toggle(ctx context.Context, id, userID int64) (bool, error)
	Delete(ctx context.Context, id int64, caller models.Identity) error
}

// RunLimiter gates the public run surface per caller IP
type RunLimiter interface {
	AllowRun(ctx context.Context, ip string, limit int) bool
}

type EndpointHandler struct {
	service   EndpointManager
	limiter   RunLimiter
	rateLimit int
}

func NewEndpointHandler(service EndpointManager, limiter RunLimiter, rateLimit int) *EndpointHandler {
	return &EndpointHandler{service: service, limiter: limiter, rateLimit: rateLimit}
}

// RunEndpoint godoc
// @Summary Execute an endpoint by name
// @Description Run a named endpoint script; query parameters become script input. POST bodies are merged over query parameters, body winning on collision.
// @Tags endpoints
// @Accept json
// @Produce json
// @Param name path string true "Endpoint name"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /endpoints/run/{name} [get]
func (h *EndpointHandler) RunEndpoint(c *fiber.Ctx) error {
	ctx := middleware.GetXRayContext(c)
	meta := requestMeta(c)

	if !h.limiter.AllowRun(ctx, meta.IP, h.rateLimit) {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": "请求过于频繁",
		})
	}

	params := queryParams(c)
	if c.Method() == fiber.MethodPost && len(c.Body()) > 0 {
		var body map[string]interface{}
		if err := json.Unmarshal(c.Body(), &body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "请求体必须是 JSON 对象",
			})
		}
		params = services.MergeParams(params, body)
	}

	result, err := h.service.Execute(c.UserContext(), c.Params("name"), meta, params, middleware.Identity(c))
	if err != nil {
		return respondError(c, err)
	}

	// The script's JSON goes back verbatim, no wrapper.
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	return c.Send(result)
}

// CreateEndpoint godoc
// @Summary Create a new endpoint
// @Tags endpoints
// @Accept json
// @Produce json
// @Param endpoint body models.CreateEndpointRequest true "Endpoint to create"
// @Success 201 {object} models.Endpoint
// @Failure 400 {object} map[string]string
// @Router /api/endpoints [post]
func (h *EndpointHandler) CreateEndpoint(c *fiber.Ctx) error {
	var req models.CreateEndpointRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Name == "" || req.Code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "端口名称和代码不能为空",
		})
	}

	ep, err := h.service.Create(c.UserContext(), middleware.Identity(c).UserID, &req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(ep)
}

// ListEndpoints godoc
// @Summary List the caller's endpoints
// @Tags endpoints
// @Produce json
// @Success 200 {array} models.EndpointListItem
// @Router /api/endpoints [get]
func (h *EndpointHandler) ListEndpoints(c *fiber.Ctx) error {
	endpoints, err := h.service.ListByUser(c.UserContext(), middleware.Identity(c).UserID)
	if err != nil {
		return respondError(c, err)
	}

	if endpoints == nil {
		endpoints = []models.EndpointListItem{}
	}

	return c.JSON(endpoints)
}

// GetEndpoint godoc
// @Summary Get endpoint details with code
// @Tags endpoints
// @Produce json
// @Param id path int true "Endpoint ID"
// @Success 200 {object} models.Endpoint
// @Failure 404 {object} map[string]string
// @Router /api/endpoints/{id} [get]
func (h *EndpointHandler) GetEndpoint(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid endpoint ID"})
	}

	ep, err := h.service.Get(c.UserContext(), id, middleware.Identity(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(ep)
}

// UpdateEndpoint godoc
// @Summary Update an endpoint
// @Tags endpoints
// @Accept json
// @Produce json
// @Param id path int true "Endpoint ID"
// @Param endpoint body models.UpdateEndpointRequest true "Fields to update"
// @Success 200 {object} models.Endpoint
// @Failure 403 {object} map[string]string
// @Router /api/endpoints/{id} [put]
func (h *EndpointHandler) UpdateEndpoint(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid endpoint ID"})
	}

	var req models.UpdateEndpointRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	ep, err := h.service.Update(c.UserContext(), id, middleware.Identity(c).UserID, &req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(ep)
}

// ToggleEndpoint godoc
// @Summary Toggle an endpoint's active flag
// @Tags endpoints
// @Produce json
// @Param id path int true "Endpoint ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/endpoints/{id}/toggle [post]
func (h *EndpointHandler) ToggleEndpoint(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid endpoint ID"})
	}

	active, err := h.service.Toggle(c.UserContext(), id, middleware.Identity(c).UserID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "状态切换成功", "is_active": active})
}

// DeleteEndpoint godoc
// @Summary Delete an endpoint
// @Tags endpoints
// @Produce json
// @Param id path int true "Endpoint ID"
// @Success 200 {object} map[string]string
// @Router /api/endpoints/{id} [delete]
func (h *EndpointHandler) DeleteEndpoint(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid endpoint ID"})
	}

	if err := h.service.Delete(c.UserContext(), id, middleware.Identity(c)); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "删除成功"})
}

// requestMeta extracts the caller metadata forwarded into scripts. The
// X-Forwarded-For and call-depth headers are only honored on loopback
// traffic, where they carry the self-call chain's original caller.
func requestMeta(c *fiber.Ctx) models.RequestMeta {
	meta := models.RequestMeta{
		IP:        c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
		Referer:   c.Get(fiber.HeaderReferer),
	}

	if ips := c.IPs(); len(ips) > 0 && isLoopbackIP(c.IP()) {
		meta.IP = ips[0]
	}

	if depth := c.Get("X-Endpoint-Call-Depth"); depth != "" {
		if n, err := strconv.Atoi(depth); err == nil && n > 0 {
			meta.CallDepth = n
		}
	}

	return meta
}

// queryParams converts the query string into the script parameter map
func queryParams(c *fiber.Ctx) map[string]interface{} {
	params := map[string]interface{}{}
	for k, v := range c.Queries() {
		params[k] = v
	}
	return params
}

func pathID(c *fiber.Ctx, name string) (int64, error) {
	return strconv.ParseInt(c.Params(name), 10, 64)
}

func isLoopbackIP(ip string) bool {
	parsed := net.ParseIP(ip)
	return parsed != nil && parsed.IsLoopback()
}

// respondError maps service errors onto the HTTP error contract
func respondError(c *fiber.Ctx, err error) error {
	var accessErr *services.AccessError
	if errors.As(err, &accessErr) {
		return c.Status(accessErr.Status).JSON(fiber.Map{"error": accessErr.Message})
	}

	switch {
	case errors.Is(err, services.ErrEndpointNotFound),
		errors.Is(err, services.ErrRepoNotFound),
		errors.Is(err, services.ErrQuoteNotFound),
		errors.Is(err, services.ErrKeyNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrEndpointDisabled):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNotOwner):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNameTaken),
		errors.Is(err, services.ErrRepoNameTaken),
		errors.Is(err, services.ErrUsernameTaken):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrRepoEmpty):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidCredential):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrScript), errors.Is(err, services.ErrInfrastructure):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
