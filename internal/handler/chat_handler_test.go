package handler_test

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/homefix-api/internal/database"
	"github.com/noah-isme/homefix-api/internal/dto"
	"github.com/noah-isme/homefix-api/internal/handler"
	"github.com/noah-isme/homefix-api/internal/middleware"
	"github.com/noah-isme/homefix-api/internal/models"
	"github.com/noah-isme/homefix-api/internal/realtime"
	"github.com/noah-isme/homefix-api/internal/repository"
	"github.com/noah-isme/homefix-api/internal/service"
)

type chatStack struct {
	app      *fiber.App
	chat     service.ChatService
	messages repository.MessageRepository
	handler  *handler.ChatHandler
}

func newChatStack(t *testing.T) chatStack {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:handler_%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)
	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	logger := zerolog.Nop()
	users := repository.NewUserRepository(db)
	for _, user := range []models.UserProfile{
		{ID: "u1", DisplayName: "Ana", AvatarURL: "https://cdn.example.com/ana.png", Role: models.RoleCustomer},
		{ID: "u2", DisplayName: "Bo", Role: models.RoleProfessional},
		{ID: "u3", DisplayName: "Cy", Role: models.RoleCustomer},
	} {
		user := user
		require.NoError(t, users.Upsert(context.Background(), &user))
	}

	hub := realtime.NewHub(realtime.Options{}, logger)
	presence := service.NewPresenceService(users, redisClient, hub, time.Minute, logger)
	messages := repository.NewMessageRepository(db)
	chat := service.NewChatService(repository.NewThreadRepository(db), messages, presence, hub, validator.New(validator.WithRequiredStructEnabled()), logger)

	app := fiber.New()
	group := app.Group("/api/v1/chat", testAuth)
	chatHandler := handler.NewChatHandler(chat, logger, 200*time.Millisecond)
	chatHandler.Register(group)
	handler.NewPresenceHandler(presence, logger, 200*time.Millisecond).Register(group)

	return chatStack{app: app, chat: chat, messages: messages, handler: chatHandler}
}

func TestChatHandler_StartSendAndRead(t *testing.T) {
	stack := newChatStack(t)

	resp, err := stack.app.Test(jsonRequest(t, http.MethodPost, "/api/v1/chat/threads", "u2", dto.StartChatRequest{OtherUserID: "u1"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var started envelope[dto.ThreadResponse]
	decodeResponse(t, resp, &started)
	require.Equal(t, "u1_u2", started.Data.ID)

	resp, err = stack.app.Test(jsonRequest(t, http.MethodPost, "/api/v1/chat/threads/u1_u2/messages", "u1", map[string]string{"text": "Hello"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var sent envelope[dto.MessageResponse]
	decodeResponse(t, resp, &sent)
	require.Equal(t, "u1", sent.Data.SenderID)
	require.Equal(t, "u2", sent.Data.ReceiverID)

	resp, err = stack.app.Test(jsonRequest(t, http.MethodGet, "/api/v1/chat/threads/u1_u2/messages", "u2", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var views envelope[[]dto.MessageView]
	decodeResponse(t, resp, &views)
	require.Len(t, views.Data, 1)
	require.Equal(t, "Hello", views.Data[0].Text)
	require.Equal(t, dto.SenderOther, views.Data[0].Sender)
	require.Equal(t, "https://cdn.example.com/ana.png", views.Data[0].AvatarURL)

	resp, err = stack.app.Test(jsonRequest(t, http.MethodGet, "/api/v1/chat/threads", "u1", nil))
	require.NoError(t, err)
	var threads envelope[[]dto.ThreadResponse]
	decodeResponse(t, resp, &threads)
	require.Len(t, threads.Data, 1)
	require.Equal(t, "Hello", threads.Data[0].LastMessageText)
}

func TestChatHandler_SendErrors(t *testing.T) {
	stack := newChatStack(t)
	_, err := stack.chat.StartChat(context.Background(), "u1", "u2")
	require.NoError(t, err)

	cases := []struct {
		name   string
		user   string
		path   string
		body   interface{}
		status int
	}{
		{name: "whitespace", user: "u1", path: "/api/v1/chat/threads/u1_u2/messages", body: map[string]string{"text": "   "}, status: fiber.StatusBadRequest},
		{name: "outsider", user: "u3", path: "/api/v1/chat/threads/u1_u2/messages", body: map[string]string{"text": "hi"}, status: fiber.StatusForbidden},
		{name: "unknown_thread", user: "u1", path: "/api/v1/chat/threads/u1_u9/messages", body: map[string]string{"text": "hi"}, status: fiber.StatusNotFound},
		{name: "anonymous", user: "", path: "/api/v1/chat/threads/u1_u2/messages", body: map[string]string{"text": "hi"}, status: fiber.StatusUnauthorized},
		{name: "bad_attachment", user: "u1", path: "/api/v1/chat/threads/u1_u2/messages", body: map[string]interface{}{"attachments": []map[string]string{{"url": "not a url"}}}, status: fiber.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := stack.app.Test(jsonRequest(t, http.MethodPost, tc.path, tc.user, tc.body))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			var body envelope[json.RawMessage]
			decodeResponse(t, resp, &body)
			require.False(t, body.Success)
			require.NotNil(t, body.Error)
		})
	}

	stored, err := stack.messages.ListByThread(context.Background(), "u1_u2")
	require.NoError(t, err)
	require.Empty(t, stored)
}

func TestChatHandler_MessageStreamRejectsOutsider(t *testing.T) {
	stack := newChatStack(t)
	_, err := stack.chat.StartChat(context.Background(), "u1", "u2")
	require.NoError(t, err)

	resp, err := stack.app.Test(jsonRequest(t, http.MethodGet, "/api/v1/chat/threads/u1_u2/messages/stream", "u3", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestChatHandler_MessageStreamDeliversSends(t *testing.T) {
	stack := newChatStack(t)
	_, err := stack.chat.StartChat(context.Background(), "u1", "u2")
	require.NoError(t, err)
	baseURL := startFiberServer(t, stack.app)

	req, err := http.NewRequest(http.MethodGet, baseURL+"/api/v1/chat/threads/u1_u2/messages/stream", nil)
	require.NoError(t, err)
	req.Header.Set("X-Test-User", "u2")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	first := nextSSEEvent(t, reader)
	require.Equal(t, "messages", first.name)
	require.Equal(t, "[]", first.data)

	_, err = stack.chat.SendMessage(context.Background(), dto.SendMessageRequest{ThreadID: "u1_u2", SenderID: "u1", Text: "Hello"})
	require.NoError(t, err)

	next := nextSSEEvent(t, reader)
	var views []dto.MessageView
	require.NoError(t, json.Unmarshal([]byte(next.data), &views))
	require.Len(t, views, 1)
	require.Equal(t, "Hello", views[0].Text)
	require.Equal(t, dto.SenderOther, views[0].Sender)
}

func TestChatHandler_WebsocketSendsAndAcks(t *testing.T) {
	stack := newChatStack(t)
	_, err := stack.chat.StartChat(context.Background(), "u1", "u2")
	require.NoError(t, err)
	baseURL := startFiberServer(t, stack.app)

	url := "ws" + strings.TrimPrefix(baseURL, "http") + "/api/v1/chat/ws?thread_id=u1_u2"
	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}
	conn, resp, err := dialer.Dial(url, http.Header{"X-Test-User": {"u1"}})
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	defer conn.Close()

	var snapshot dto.ChatSocketEvent
	require.NoError(t, conn.ReadJSON(&snapshot))
	require.Equal(t, dto.ChatEventSnapshot, snapshot.Type)
	require.Empty(t, snapshot.Messages)

	require.NoError(t, conn.WriteJSON(dto.ChatSocketFrame{Text: "  "}))
	var rejected dto.ChatSocketEvent
	require.NoError(t, conn.ReadJSON(&rejected))
	require.Equal(t, dto.ChatEventError, rejected.Type)

	require.NoError(t, conn.WriteJSON(dto.ChatSocketFrame{Text: "hi there"}))

	var acked, delivered bool
	deadline := time.Now().Add(3 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))
	for !acked || !delivered {
		var event dto.ChatSocketEvent
		require.NoError(t, conn.ReadJSON(&event))
		switch event.Type {
		case dto.ChatEventAck:
			require.NotNil(t, event.Message)
			require.Equal(t, "hi there", event.Message.Text)
			acked = true
		case dto.ChatEventSnapshot:
			if len(event.Messages) == 1 {
				require.Equal(t, dto.SenderSelf, event.Messages[0].Sender)
				delivered = true
			}
		}
	}
}

func TestChatHandler_WebsocketSendsAreRateLimited(t *testing.T) {
	stack := newChatStack(t)
	stack.handler.LimitSocketSends(middleware.NewKeyedLimiter(1, time.Minute))
	_, err := stack.chat.StartChat(context.Background(), "u1", "u2")
	require.NoError(t, err)
	baseURL := startFiberServer(t, stack.app)

	url := "ws" + strings.TrimPrefix(baseURL, "http") + "/api/v1/chat/ws?thread_id=u1_u2"
	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}
	conn, resp, err := dialer.Dial(url, http.Header{"X-Test-User": {"u1"}})
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))

	nextNonSnapshot := func() dto.ChatSocketEvent {
		for {
			var event dto.ChatSocketEvent
			require.NoError(t, conn.ReadJSON(&event))
			if event.Type != dto.ChatEventSnapshot {
				return event
			}
		}
	}

	require.NoError(t, conn.WriteJSON(dto.ChatSocketFrame{Text: "one"}))
	require.Equal(t, dto.ChatEventAck, nextNonSnapshot().Type)

	require.NoError(t, conn.WriteJSON(dto.ChatSocketFrame{Text: "two"}))
	limited := nextNonSnapshot()
	require.Equal(t, dto.ChatEventError, limited.Type)
	require.Equal(t, "too many requests, slow down", limited.Error)

	stored, err := stack.messages.ListByThread(context.Background(), "u1_u2")
	require.NoError(t, err)
	require.Len(t, stored, 1)
}

func TestPresenceHandler_StreamValidatesIDs(t *testing.T) {
	stack := newChatStack(t)

	resp, err := stack.app.Test(jsonRequest(t, http.MethodGet, "/api/v1/chat/presence/stream?ids=", "u1", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	ids := make([]string, 0, service.MaxPresenceIDs+1)
	for i := 0; i <= service.MaxPresenceIDs; i++ {
		ids = append(ids, fmt.Sprintf("user-%d", i))
	}
	resp, err = stack.app.Test(jsonRequest(t, http.MethodGet, "/api/v1/chat/presence/stream?ids="+strings.Join(ids, ","), "u1", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestPresenceHandler_Lookup(t *testing.T) {
	stack := newChatStack(t)

	resp, err := stack.app.Test(jsonRequest(t, http.MethodGet, "/api/v1/chat/presence/u1", "u2", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var record envelope[dto.PresenceRecord]
	decodeResponse(t, resp, &record)
	require.Equal(t, "Ana", record.Data.DisplayName)

	resp, err = stack.app.Test(jsonRequest(t, http.MethodGet, "/api/v1/chat/presence/ghost", "u2", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
