package handlers

import (
	"github.com/gofiber/fiber/v2"

	"quoteapi-server/middleware"
	"quoteapi-server/models"
	"quoteapi-server/services"
)

type QuoteHandler struct {
	quotes *services.QuoteService
}

func NewQuoteHandler(quotes *services.QuoteService) *QuoteHandler {
	return &QuoteHandler{quotes: quotes}
}

// RandomQuote godoc
// @Summary Fetch a random quote from a repository
// @Tags quotes
// @Produce json
// @Param repoName path string true "Repository name"
// @Success 200 {object} models.RandomQuoteResponse
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/random/{repoName} [get]
func (h *QuoteHandler) RandomQuote(c *fiber.Ctx) error {
	resp, err := h.quotes.RandomQuote(c.UserContext(), c.Params("repoName"), requestMeta(c), middleware.Identity(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(resp)
}

// QuoteDetails godoc
// @Summary Fetch a single quote with its repository
// @Tags quotes
// @Produce json
// @Param id path int true "Quote ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /api/quote/{id} [get]
func (h *QuoteHandler) QuoteDetails(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid quote ID"})
	}

	quote, repo, err := h.quotes.QuoteDetails(c.UserContext(), id, requestMeta(c), middleware.Identity(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"quote": quote, "repository": repo})
}

// RepositoryStats godoc
// @Summary Repository detail with owner and quote count
// @Tags repositories
// @Produce json
// @Param id path int true "Repository ID"
// @Success 200 {object} models.RepositoryWithStats
// @Failure 404 {object} map[string]string
// @Router /api/repositories/{id}/stats [get]
func (h *QuoteHandler) RepositoryStats(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid repository ID"})
	}

	stats, err := h.quotes.RepositoryStats(c.UserContext(), id, middleware.Identity(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(stats)
}

// CreateRepository godoc
// @Summary Create a quote repository
// @Tags repositories
// @Accept json
// @Produce json
// @Param repository body models.CreateRepositoryRequest true "Repository to create"
// @Success 201 {object} models.Repository
// @Failure 409 {object} map[string]string
// @Router /api/repositories [post]
func (h *QuoteHandler) CreateRepository(c *fiber.Ctx) error {
	var req models.CreateRepositoryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "仓库名不能为空"})
	}

	repo, err := h.quotes.CreateRepository(c.UserContext(), middleware.Identity(c).UserID, &req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(repo)
}

// ListRepositories godoc
// @Summary List the caller's repositories
// @Tags repositories
// @Produce json
// @Success 200 {array} models.Repository
// @Router /api/repositories [get]
func (h *QuoteHandler) ListRepositories(c *fiber.Ctx) error {
	repos, err := h.quotes.ListRepositories(c.UserContext(), middleware.Identity(c).UserID)
	if err != nil {
		return respondError(c, err)
	}

	if repos == nil {
		repos = []models.Repository{}
	}

	return c.JSON(repos)
}

// UpdateRepository godoc
// @Summary Update a repository's name or description
// @Tags repositories
// @Accept json
// @Produce json
// @Param id path int true "Repository ID"
// @Success 200 {object} map[string]string
// @Router /api/repositories/{id} [put]
func (h *QuoteHandler) UpdateRepository(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid repository ID"})
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := h.quotes.UpdateRepository(c.UserContext(), id, middleware.Identity(c).UserID, req.Name, req.Description); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "更新成功"})
}

// DeleteRepository godoc
// @Summary Delete a repository and its quotes
// @Tags repositories
// @Produce json
// @Param id path int true "Repository ID"
// @Success 200 {object} map[string]string
// @Router /api/repositories/{id} [delete]
func (h *QuoteHandler) DeleteRepository(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid repository ID"})
	}

	if err := h.quotes.DeleteRepository(c.UserContext(), id, middleware.Identity(c).UserID); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "删除成功"})
}

// CreateQuote godoc
// @Summary Add a quote to a repository
// @Tags quotes
// @Accept json
// @Produce json
// @Param id path int true "Repository ID"
// @Param quote body models.CreateQuoteRequest true "Quote content"
// @Success 201 {object} models.Quote
// @Router /api/repositories/{id}/quotes [post]
func (h *QuoteHandler) CreateQuote(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid repository ID"})
	}

	var req models.CreateQuoteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "语句内容不能为空"})
	}

	quote, err := h.quotes.CreateQuote(c.UserContext(), id, middleware.Identity(c).UserID, req.Content)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(quote)
}

// ListQuotes godoc
// @Summary List quotes in a repository
// @Tags quotes
// @Produce json
// @Param id path int true "Repository ID"
// @Success 200 {array} models.Quote
// @Router /api/repositories/{id}/quotes [get]
func (h *QuoteHandler) ListQuotes(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid repository ID"})
	}

	quotes, err := h.quotes.ListQuotes(c.UserContext(), id, middleware.Identity(c).UserID)
	if err != nil {
		return respondError(c, err)
	}

	if quotes == nil {
		quotes = []models.Quote{}
	}

	return c.JSON(quotes)
}

// UpdateQuote godoc
// @Summary Update a quote's content
// @Tags quotes
// @Accept json
// @Produce json
// @Param id path int true "Quote ID"
// @Success 200 {object} map[string]string
// @Router /api/quotes/{id} [put]
func (h *QuoteHandler) UpdateQuote(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid quote ID"})
	}

	var req models.CreateQuoteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "语句内容不能为空"})
	}

	if err := h.quotes.UpdateQuote(c.UserContext(), id, middleware.Identity(c).UserID, req.Content); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "更新成功"})
}

// DeleteQuote godoc
// @Summary Delete a quote
// @Tags quotes
// @Produce json
// @Param id path int true "Quote ID"
// @Success 200 {object} map[string]string
// @Router /api/quotes/{id} [delete]
func (h *QuoteHandler) DeleteQuote(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid quote ID"})
	}

	if err := h.quotes.DeleteQuote(c.UserContext(), id, middleware.Identity(c).UserID); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "删除成功"})
}
