package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/homefix-api/internal/dto"
	"github.com/noah-isme/homefix-api/internal/middleware"
	"github.com/noah-isme/homefix-api/internal/service"
	"github.com/noah-isme/homefix-api/internal/utils"
)

// OnboardingHandler serves the professional sign-up wizard.
type OnboardingHandler struct {
	service service.OnboardingService
	logger  zerolog.Logger
}

// NewOnboardingHandler constructs an onboarding handler.
func NewOnboardingHandler(service service.OnboardingService, logger zerolog.Logger) *OnboardingHandler {
	return &OnboardingHandler{
		service: service,
		logger:  logger.With().Str("component", "onboarding_handler").Logger(),
	}
}

// Register binds onboarding routes.
func (h *OnboardingHandler) Register(router fiber.Router) {
	router.Get("/selection", h.getSelection)
	router.Put("/selection", h.saveSelection)
	router.Post("/complete", h.complete)
}

var onboardingErrorStatuses = []errorStatus{
	{target: service.ErrServiceNotInCategory, status: fiber.StatusBadRequest},
	{target: service.ErrCategoryNotFound, status: fiber.StatusBadRequest},
	{target: service.ErrOnboardingIncomplete, status: fiber.StatusUnprocessableEntity},
	{target: service.ErrOnboardingUnavailable, status: fiber.StatusServiceUnavailable},
}

func (h *OnboardingHandler) getSelection(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return sendUnauthenticated(c)
	}

	selection, err := h.service.GetSelection(requestContext(c), userID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load selection", onboardingErrorStatuses...)
	}

	return utils.SendSuccess(c, "onboarding selection", selection)
}

func (h *OnboardingHandler) saveSelection(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return sendUnauthenticated(c)
	}

	var payload dto.OnboardingSelectionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	selection, err := h.service.SaveSelection(requestContext(c), userID, payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to save selection", onboardingErrorStatuses...)
	}

	return utils.SendSuccess(c, "onboarding selection saved", selection)
}

func (h *OnboardingHandler) complete(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return sendUnauthenticated(c)
	}

	services, err := h.service.Complete(requestContext(c), userID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to complete onboarding", onboardingErrorStatuses...)
	}

	return utils.SendSuccess(c, "onboarding completed", services)
}
