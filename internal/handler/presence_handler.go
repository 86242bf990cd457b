package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/homefix-api/internal/dto"
	"github.com/noah-isme/homefix-api/internal/middleware"
	"github.com/noah-isme/homefix-api/internal/service"
	"github.com/noah-isme/homefix-api/internal/utils"
)

// PresenceHandler streams profile snapshots of watched users.
type PresenceHandler struct {
	service   service.PresenceService
	logger    zerolog.Logger
	keepAlive time.Duration
}

// NewPresenceHandler constructs a presence handler.
func NewPresenceHandler(service service.PresenceService, logger zerolog.Logger, keepAlive time.Duration) *PresenceHandler {
	return &PresenceHandler{
		service:   service,
		logger:    logger.With().Str("component", "presence_handler").Logger(),
		keepAlive: keepAlive,
	}
}

// Register binds presence routes.
func (h *PresenceHandler) Register(router fiber.Router) {
	router.Get("/presence/stream", h.stream)
	router.Get("/presence/:id", h.lookup)
}

var presenceErrorStatuses = []errorStatus{
	{target: service.ErrPresenceIDsRequired, status: fiber.StatusBadRequest},
	{target: service.ErrPresenceLimit, status: fiber.StatusBadRequest},
	{target: service.ErrUserNotFound, status: fiber.StatusNotFound},
}

func (h *PresenceHandler) lookup(c *fiber.Ctx) error {
	if middleware.UserID(c) == "" {
		return sendUnauthenticated(c)
	}

	record, err := h.service.Lookup(requestContext(c), c.Params("id"))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load presence", presenceErrorStatuses...)
	}

	return utils.SendSuccess(c, "presence", record)
}

func (h *PresenceHandler) stream(c *fiber.Ctx) error {
	if middleware.UserID(c) == "" {
		return sendUnauthenticated(c)
	}
	ids := splitAndTrim(c.Query("ids"))

	return streamSnapshots(c, h.logger, h.keepAlive, "presence",
		func(ctx context.Context, emit func(interface{})) (func(), error) {
			return h.service.SubscribeUsers(ctx, ids, func(records []dto.PresenceRecord) {
				emit(records)
			})
		},
		func(err error) error {
			return sendServiceError(c, h.logger, err, "failed to subscribe to presence", presenceErrorStatuses...)
		})
}
