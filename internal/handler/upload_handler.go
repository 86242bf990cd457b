package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/homefix-api/internal/middleware"
	"github.com/noah-isme/homefix-api/internal/service"
	"github.com/noah-isme/homefix-api/internal/utils"
)

// UploadHandler accepts chat attachments, profile photos and past-work media.
type UploadHandler struct {
	service service.UploadService
	logger  zerolog.Logger
}

// NewUploadHandler constructs an upload handler.
func NewUploadHandler(service service.UploadService, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		service: service,
		logger:  logger.With().Str("component", "upload_handler").Logger(),
	}
}

// Register wires upload routes.
func (h *UploadHandler) Register(router fiber.Router) {
	router.Post("", h.upload)
	router.Get("", h.list)
}

var uploadErrorStatuses = []errorStatus{
	{target: service.ErrUploadTooLarge, status: fiber.StatusRequestEntityTooLarge},
	{target: service.ErrUploadTypeNotAllowed, status: fiber.StatusBadRequest},
	{target: service.ErrUploadMissing, status: fiber.StatusBadRequest},
	{target: service.ErrStorageUnavailable, status: fiber.StatusServiceUnavailable},
}

func (h *UploadHandler) upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, service.ErrUploadMissing.Error())
	}

	var userID *string
	if id := middleware.UserID(c); id != "" {
		userID = &id
	}

	result, err := h.service.Upload(requestContext(c), file, userID, c.FormValue("purpose"))
	if err != nil {
		return sendServiceError(c, h.logger, err, "upload failed", uploadErrorStatuses...)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "upload successful", result)
}

func (h *UploadHandler) list(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return sendUnauthenticated(c)
	}

	limit := c.QueryInt("limit", 20)
	uploads, err := h.service.List(requestContext(c), userID, c.Query("purpose"), limit)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list uploads")
	}

	return utils.OK(c, uploads, "uploads", fiber.Map{"count": len(uploads), "limit": limit})
}
