package handlers

import (
	"github.com/gofiber/fiber/v2"

	"quoteapi-server/models"
	"quoteapi-server/services"
)

type AdminHandler struct {
	db     *services.DBService
	config *services.ConfigService
}

func NewAdminHandler(db *services.DBService, config *services.ConfigService) *AdminHandler {
	return &AdminHandler{db: db, config: config}
}

// ListUsers godoc
// @Summary List all accounts
// @Tags admin
// @Produce json
// @Success 200 {array} models.User
// @Router /api/admin/users [get]
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.db.ListUsers(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}

	if users == nil {
		users = []models.User{}
	}

	return c.JSON(users)
}

// ListAllEndpoints godoc
// @Summary List every endpoint across all users
// @Tags admin
// @Produce json
// @Success 200 {array} models.Endpoint
// @Router /api/admin/endpoints [get]
func (h *AdminHandler) ListAllEndpoints(c *fiber.Ctx) error {
	endpoints, err := h.db.ListAllEndpoints(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}

	if endpoints == nil {
		endpoints = []models.Endpoint{}
	}

	return c.JSON(endpoints)
}

// ListAllRepositories godoc
// @Summary List every repository across all users
// @Tags admin
// @Produce json
// @Success 200 {array} models.RepositoryWithStats
// @Router /api/admin/repositories [get]
func (h *AdminHandler) ListAllRepositories(c *fiber.Ctx) error {
	repos, err := h.db.ListAllRepositories(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}

	if repos == nil {
		repos = []models.RepositoryWithStats{}
	}

	return c.JSON(repos)
}

// SetEndpointVisibility godoc
// @Summary Set an endpoint's visibility tier
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Endpoint ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /api/admin/endpoints/{id}/visibility [put]
func (h *AdminHandler) SetEndpointVisibility(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid endpoint ID"})
	}

	visibility, err := parseVisibility(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	ep, err := h.db.GetEndpoint(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	if ep == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "端口不存在"})
	}

	if err := h.db.SetEndpointVisibility(c.UserContext(), id, visibility); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "可见性已更新", "visibility": visibility})
}

// SetRepositoryVisibility godoc
// @Summary Set a repository's visibility tier
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Repository ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /api/admin/repositories/{id}/visibility [put]
func (h *AdminHandler) SetRepositoryVisibility(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid repository ID"})
	}

	visibility, err := parseVisibility(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	repo, err := h.db.GetRepository(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	if repo == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "仓库不存在"})
	}

	if err := h.db.SetRepositoryVisibility(c.UserContext(), id, visibility); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "可见性已更新", "visibility": visibility})
}

// GetAIConfig godoc
// @Summary Read the AI service configuration
// @Tags admin
// @Produce json
// @Success 200 {object} models.AIConfig
// @Router /api/admin/ai-config [get]
func (h *AdminHandler) GetAIConfig(c *fiber.Ctx) error {
	cfg, err := h.config.GetAIConfig(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}

	// The key never leaves the server in full.
	cfg.APIKey = maskSecret(cfg.APIKey)
	return c.JSON(cfg)
}

// SetAIConfig godoc
// @Summary Update the AI service configuration
// @Tags admin
// @Accept json
// @Produce json
// @Param config body models.AIConfig true "AI provider settings"
// @Success 200 {object} map[string]string
// @Router /api/admin/ai-config [put]
func (h *AdminHandler) SetAIConfig(c *fiber.Ctx) error {
	var cfg models.AIConfig
	if err := c.BodyParser(&cfg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := h.config.SetAIConfig(c.UserContext(), cfg); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "AI 配置已更新"})
}

func parseVisibility(c *fiber.Ctx) (string, error) {
	var req struct {
		Visibility string `json:"visibility"`
	}
	if err := c.BodyParser(&req); err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if !models.ValidVisibility(req.Visibility) {
		return "", fiber.NewError(fiber.StatusBadRequest, "可见性必须是 public、restricted 或 private")
	}
	return req.Visibility, nil
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		if s == "" {
			return ""
		}
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
