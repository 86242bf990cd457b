package handler

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/homefix-api/internal/dto"
	"github.com/noah-isme/homefix-api/internal/middleware"
	"github.com/noah-isme/homefix-api/internal/service"
	"github.com/noah-isme/homefix-api/internal/utils"
)

var errSocketRateLimited = errors.New("too many requests, slow down")

// ChatHandler wires chat endpoints including the websocket upgrade.
type ChatHandler struct {
	service       service.ChatService
	logger        zerolog.Logger
	keepAlive     time.Duration
	socketLimiter *middleware.KeyedLimiter
}

// NewChatHandler creates a chat handler instance.
func NewChatHandler(service service.ChatService, logger zerolog.Logger, keepAlive time.Duration) *ChatHandler {
	return &ChatHandler{
		service:   service,
		logger:    logger.With().Str("component", "chat_handler").Logger(),
		keepAlive: keepAlive,
	}
}

// LimitSocketSends bounds messages sent over websocket frames per user. The
// REST send endpoint is bounded by its own route guards.
func (h *ChatHandler) LimitSocketSends(limiter *middleware.KeyedLimiter) {
	h.socketLimiter = limiter
}

// Register binds chat routes under the provided router group. sendGuards run
// in front of the REST send endpoint only.
func (h *ChatHandler) Register(router fiber.Router, sendGuards ...fiber.Handler) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("request_ctx", requestContext(c))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws", websocket.New(h.handleConnection))

	router.Post("/threads", h.startChat)
	router.Get("/threads", h.listThreads)
	router.Get("/threads/stream", h.streamThreads)
	router.Get("/threads/:id/messages", h.messages)
	router.Get("/threads/:id/messages/stream", h.streamMessages)

	send := append(append([]fiber.Handler{}, sendGuards...), h.sendMessage)
	router.Post("/threads/:id/messages", send...)
}

var chatErrorStatuses = []errorStatus{
	{target: service.ErrEmptyMessage, status: fiber.StatusBadRequest},
	{target: service.ErrSelfChat, status: fiber.StatusBadRequest},
	{target: service.ErrParticipantRequired, status: fiber.StatusBadRequest},
	{target: service.ErrThreadIDMismatch, status: fiber.StatusBadRequest},
	{target: service.ErrInvalidUserID, status: fiber.StatusBadRequest},
	{target: service.ErrThreadParticipantsConflict, status: fiber.StatusConflict},
	{target: service.ErrChatNotAuthorised, status: fiber.StatusForbidden},
	{target: service.ErrThreadNotFound, status: fiber.StatusNotFound},
	{target: service.ErrUserNotFound, status: fiber.StatusNotFound},
}

func (h *ChatHandler) startChat(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return sendUnauthenticated(c)
	}

	var payload dto.StartChatRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}
	if strings.TrimSpace(payload.OtherUserID) == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "other_user_id is required")
	}

	thread, err := h.service.StartChat(requestContext(c), userID, payload.OtherUserID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to start chat", chatErrorStatuses...)
	}

	return utils.SendSuccess(c, "chat thread ready", thread)
}

func (h *ChatHandler) listThreads(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return sendUnauthenticated(c)
	}

	threads, err := h.service.ListThreads(requestContext(c), userID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list threads", chatErrorStatuses...)
	}

	return utils.SendSuccess(c, "chat threads", threads)
}

func (h *ChatHandler) messages(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return sendUnauthenticated(c)
	}

	views, err := h.service.Messages(requestContext(c), c.Params("id"), userID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load messages", chatErrorStatuses...)
	}

	return utils.SendSuccess(c, "chat messages", views)
}

func (h *ChatHandler) sendMessage(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return sendUnauthenticated(c)
	}

	var payload dto.SendMessageRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}
	payload.ThreadID = c.Params("id")
	payload.SenderID = userID

	message, err := h.service.SendMessage(requestContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to send message", chatErrorStatuses...)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "message sent", message)
}

func (h *ChatHandler) streamThreads(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return sendUnauthenticated(c)
	}

	return streamSnapshots(c, h.logger, h.keepAlive, "threads",
		func(ctx context.Context, emit func(interface{})) (func(), error) {
			return h.service.SubscribeThreads(ctx, userID, func(threads []dto.ThreadResponse) {
				emit(threads)
			})
		},
		func(err error) error {
			return sendServiceError(c, h.logger, err, "failed to subscribe to threads", chatErrorStatuses...)
		})
}

func (h *ChatHandler) streamMessages(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return sendUnauthenticated(c)
	}
	threadID := c.Params("id")

	return streamSnapshots(c, h.logger, h.keepAlive, "messages",
		func(ctx context.Context, emit func(interface{})) (func(), error) {
			return h.service.SubscribeMessages(ctx, threadID, userID, func(views []dto.MessageView) {
				emit(views)
			})
		},
		func(err error) error {
			return sendServiceError(c, h.logger, err, "failed to subscribe to messages", chatErrorStatuses...)
		})
}

// socketWriter serialises writes from the subscription goroutine and the
// read loop onto one connection.
type socketWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *socketWriter) send(event dto.ChatSocketEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(event)
}

func (h *ChatHandler) handleConnection(conn *websocket.Conn) {
	userID, _ := conn.Locals(middleware.LocalUserID).(string)
	if userID == "" {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "user id missing"))
		_ = conn.Close()
		return
	}

	threadID := strings.TrimSpace(conn.Query("thread_id"))
	if threadID == "" {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "thread_id required"))
		_ = conn.Close()
		return
	}

	baseCtx, _ := conn.Locals("request_ctx").(context.Context)
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	logger := h.logger.With().Str("user_id", userID).Str("thread_id", threadID).Logger()
	writer := &socketWriter{conn: conn}

	unsubscribe, err := h.service.SubscribeMessages(ctx, threadID, userID, func(views []dto.MessageView) {
		if err := writer.send(dto.ChatSocketEvent{Type: dto.ChatEventSnapshot, Messages: views}); err != nil {
			logger.Debug().Err(err).Msg("failed to push chat snapshot")
			cancel()
		}
	})
	if err != nil {
		_ = writer.send(dto.ChatSocketEvent{Type: dto.ChatEventError, Error: socketErrorMessage(err)})
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, socketErrorMessage(err)))
		_ = conn.Close()
		return
	}
	defer unsubscribe()

	logger.Info().Msg("chat websocket connected")
	defer logger.Info().Msg("chat websocket disconnected")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var frame dto.ChatSocketFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			_ = writer.send(dto.ChatSocketEvent{Type: dto.ChatEventError, Error: "invalid frame"})
			continue
		}

		if !h.socketLimiter.Allow(userID) {
			_ = writer.send(dto.ChatSocketEvent{Type: dto.ChatEventError, Error: errSocketRateLimited.Error()})
			continue
		}

		message, err := h.service.SendMessage(ctx, dto.SendMessageRequest{
			ThreadID:    threadID,
			SenderID:    userID,
			Text:        frame.Text,
			Attachments: frame.Attachments,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("chat websocket send failed")
			_ = writer.send(dto.ChatSocketEvent{Type: dto.ChatEventError, Error: socketErrorMessage(err)})
			continue
		}

		if err := writer.send(dto.ChatSocketEvent{Type: dto.ChatEventAck, Message: &message}); err != nil {
			return
		}
	}
}

func socketErrorMessage(err error) string {
	for _, m := range chatErrorStatuses {
		if errors.Is(err, m.target) {
			return m.target.Error()
		}
	}
	if isValidationError(err) {
		return "validation failed"
	}
	return "chat operation failed"
}
