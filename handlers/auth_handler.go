package handlers

import (
	"github.com/gofiber/fiber/v2"

	"quoteapi-server/middleware"
	"quoteapi-server/models"
	"quoteapi-server/services"
)

type AuthHandler struct {
	auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param user body models.RegisterRequest true "Username and password"
// @Success 201 {object} map[string]interface{}
// @Failure 409 {object} map[string]string
// @Router /api/auth/register [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Username == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "用户名和密码不能为空"})
	}

	user, token, err := h.auth.Register(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": user, "token": token})
}

// Login godoc
// @Summary Log in and receive a token
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body models.LoginRequest true "Username and password"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	user, token, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"user": user, "token": token})
}

// ChangePassword godoc
// @Summary Change the caller's password
// @Tags auth
// @Accept json
// @Produce json
// @Param passwords body models.ChangePasswordRequest true "Old and new password"
// @Success 200 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/auth/password [put]
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var req models.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.NewPassword == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "新密码不能为空"})
	}

	if err := h.auth.ChangePassword(c.UserContext(), middleware.Identity(c).UserID, req.OldPassword, req.NewPassword); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "密码修改成功"})
}

// CreateAPIKey godoc
// @Summary Create an API key for the caller
// @Tags keys
// @Accept json
// @Produce json
// @Success 201 {object} models.APIKey
// @Router /api/keys [post]
func (h *AuthHandler) CreateAPIKey(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
	}

	key, err := h.auth.CreateAPIKey(c.UserContext(), middleware.Identity(c).UserID, req.Name)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(key)
}

// ListAPIKeys godoc
// @Summary List the caller's API keys
// @Tags keys
// @Produce json
// @Success 200 {array} models.APIKey
// @Router /api/keys [get]
func (h *AuthHandler) ListAPIKeys(c *fiber.Ctx) error {
	keys, err := h.auth.ListAPIKeys(c.UserContext(), middleware.Identity(c).UserID)
	if err != nil {
		return respondError(c, err)
	}

	if keys == nil {
		keys = []models.APIKey{}
	}

	return c.JSON(keys)
}

// ToggleAPIKey godoc
// @Summary Toggle an API key's active flag
// @Tags keys
// @Produce json
// @Param id path int true "Key ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/keys/{id}/toggle [post]
func (h *AuthHandler) ToggleAPIKey(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid key ID"})
	}

	active, err := h.auth.ToggleAPIKey(c.UserContext(), id, middleware.Identity(c).UserID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "状态切换成功", "is_active": active})
}

// RenameAPIKey godoc
// @Summary Rename an API key
// @Tags keys
// @Accept json
// @Produce json
// @Param id path int true "Key ID"
// @Success 200 {object} map[string]string
// @Router /api/keys/{id} [put]
func (h *AuthHandler) RenameAPIKey(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid key ID"})
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := h.auth.RenameAPIKey(c.UserContext(), id, middleware.Identity(c).UserID, req.Name); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "重命名成功"})
}

// DeleteAPIKey godoc
// @Summary Delete an API key
// @Tags keys
// @Produce json
// @Param id path int true "Key ID"
// @Success 200 {object} map[string]string
// @Router /api/keys/{id} [delete]
func (h *AuthHandler) DeleteAPIKey(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid key ID"})
	}

	if err := h.auth.DeleteAPIKey(c.UserContext(), id, middleware.Identity(c).UserID); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "删除成功"})
}
