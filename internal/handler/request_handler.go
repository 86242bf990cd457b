package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/homefix-api/internal/dto"
	"github.com/noah-isme/homefix-api/internal/middleware"
	"github.com/noah-isme/homefix-api/internal/models"
	"github.com/noah-isme/homefix-api/internal/service"
	"github.com/noah-isme/homefix-api/internal/utils"
)

// ServiceRequestHandler serves customer job requests and their quotes.
type ServiceRequestHandler struct {
	service service.ServiceRequestService
	logger  zerolog.Logger
}

// NewServiceRequestHandler constructs a service request handler.
func NewServiceRequestHandler(service service.ServiceRequestService, logger zerolog.Logger) *ServiceRequestHandler {
	return &ServiceRequestHandler{
		service: service,
		logger:  logger.With().Str("component", "service_request_handler").Logger(),
	}
}

// Register binds service request routes.
func (h *ServiceRequestHandler) Register(router fiber.Router) {
	router.Post("/", middleware.WithAuth(h.create, middleware.AuthOptions{Role: models.RoleCustomer}))
	router.Get("/:id", middleware.WithAuth(h.get, middleware.AuthOptions{RequireUser: true}))
	router.Post("/:id/quotes", middleware.WithAuth(h.submitQuote, middleware.AuthOptions{Role: models.RoleProfessional}))
	router.Get("/:id/quotes", middleware.WithAuth(h.listQuotes, middleware.AuthOptions{RequireUser: true}))
}

var requestErrorStatuses = []errorStatus{
	{target: service.ErrQuoteInvalid, status: fiber.StatusBadRequest},
	{target: service.ErrServiceNotInCategory, status: fiber.StatusBadRequest},
	{target: service.ErrServiceRequestForbidden, status: fiber.StatusForbidden},
	{target: service.ErrServiceRequestNotFound, status: fiber.StatusNotFound},
	{target: service.ErrServiceRequestClosed, status: fiber.StatusConflict},
}

func (h *ServiceRequestHandler) create(c *fiber.Ctx) error {
	var payload dto.ServiceRequestCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	created, err := h.service.Create(requestContext(c), middleware.UserID(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to create service request", requestErrorStatuses...)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "service request created", created)
}

func (h *ServiceRequestHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	request, err := h.service.Get(requestContext(c), id, middleware.UserID(c), middleware.UserRole(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load service request", requestErrorStatuses...)
	}

	return utils.SendSuccess(c, "service request", request)
}

func (h *ServiceRequestHandler) submitQuote(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.QuoteCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	quote, err := h.service.SubmitQuote(requestContext(c), id, middleware.UserID(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to submit quote", requestErrorStatuses...)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "quote submitted", quote)
}

func (h *ServiceRequestHandler) listQuotes(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	quotes, err := h.service.ListQuotes(requestContext(c), id, middleware.UserID(c), middleware.UserRole(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list quotes", requestErrorStatuses...)
	}

	return utils.SendSuccess(c, "quotes", quotes)
}
