package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/homefix-api/internal/service"
	"github.com/noah-isme/homefix-api/internal/utils"
)

// CatalogHandler exposes the service catalog.
type CatalogHandler struct {
	service service.CatalogService
	logger  zerolog.Logger
}

// NewCatalogHandler constructs a catalog handler.
func NewCatalogHandler(service service.CatalogService, logger zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		logger:  logger.With().Str("component", "catalog_handler").Logger(),
	}
}

// Register binds catalog routes.
func (h *CatalogHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Get("/:slug", h.get)
}

func (h *CatalogHandler) list(c *fiber.Ctx) error {
	categories, err := h.service.ListCategories(requestContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load categories")
	}

	return utils.SendSuccess(c, "categories", categories)
}

func (h *CatalogHandler) get(c *fiber.Ctx) error {
	category, err := h.service.GetCategory(requestContext(c), c.Params("slug"))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load category",
			errorStatus{target: service.ErrCategoryNotFound, status: fiber.StatusNotFound})
	}

	return utils.SendSuccess(c, "category", category)
}
