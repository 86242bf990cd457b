package handler

import (
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/homefix-api/internal/dto"
	"github.com/noah-isme/homefix-api/internal/middleware"
	"github.com/noah-isme/homefix-api/internal/models"
	"github.com/noah-isme/homefix-api/internal/service"
	"github.com/noah-isme/homefix-api/internal/utils"
)

// ProfileHandler serves professional profiles.
type ProfileHandler struct {
	service service.ProfileService
	logger  zerolog.Logger
}

// NewProfileHandler constructs a profile handler.
func NewProfileHandler(service service.ProfileService, logger zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{
		service: service,
		logger:  logger.With().Str("component", "profile_handler").Logger(),
	}
}

// Register binds profile routes.
func (h *ProfileHandler) Register(router fiber.Router) {
	professionalOnly := middleware.AuthOptions{Role: models.RoleProfessional}

	router.Get("/me", middleware.WithAuth(h.me, professionalOnly))
	router.Put("/me", middleware.WithAuth(h.update, professionalOnly))
	router.Get("/:id", h.get)
}

var profileErrorStatuses = []errorStatus{
	{target: service.ErrTooManyPastWorkFiles, status: fiber.StatusBadRequest},
	{target: service.ErrProfileNotFound, status: fiber.StatusNotFound},
	{target: service.ErrUserNotFound, status: fiber.StatusNotFound},
}

func (h *ProfileHandler) get(c *fiber.Ctx) error {
	profile, err := h.service.Get(requestContext(c), c.Params("id"))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load profile", profileErrorStatuses...)
	}

	return utils.SendSuccess(c, "professional profile", profile)
}

func (h *ProfileHandler) me(c *fiber.Ctx) error {
	profile, err := h.service.Get(requestContext(c), middleware.UserID(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load profile", profileErrorStatuses...)
	}

	return utils.SendSuccess(c, "professional profile", profile)
}

func (h *ProfileHandler) update(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	var fields dto.ProfileUpdateRequest
	if err := c.BodyParser(&fields); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	update := service.ProfileUpdate{Fields: fields}
	if strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid multipart form")
		}
		update.Photo = firstFile(form, "photo")
		update.PastWork = form.File["past_work"]
	}

	result, err := h.service.Update(requestContext(c), userID, update)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to update profile", profileErrorStatuses...)
	}

	message := "profile updated"
	if len(result.Warnings) > 0 {
		message = "profile updated with warnings"
	}
	return utils.SendSuccess(c, message, result)
}

func firstFile(form *multipart.Form, field string) *multipart.FileHeader {
	if form == nil {
		return nil
	}
	files := form.File[field]
	if len(files) == 0 {
		return nil
	}
	return files[0]
}
