package performance_test

import (
	"bufio"
	"context"
	"errors"
	"math"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/noah-isme/homefix-api/internal/dto"
	"github.com/noah-isme/homefix-api/internal/handler"
	"github.com/noah-isme/homefix-api/internal/middleware"
	"github.com/noah-isme/homefix-api/internal/models"
)

func TestChatWebsocketP95Under250ms(t *testing.T) {
	app := newChatApp()

	baseURL, shutdown := startFiberServer(t, app)
	defer shutdown()

	url := "ws" + strings.TrimPrefix(baseURL, "http") + "/api/v1/chat/ws?thread_id=u1_u2"
	clients := 500
	durations := make([]time.Duration, 0, clients)

	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}

	for i := 0; i < clients; i++ {
		start := time.Now()
		conn, resp, err := dialer.Dial(url, http.Header{"X-Correlation-ID": {"perf-" + strconv.Itoa(i)}})
		if err != nil {
			t.Fatalf("websocket dial failed: %v", err)
		}
		if resp != nil {
			_ = resp.Body.Close()
		}

		var event dto.ChatSocketEvent
		if err := conn.ReadJSON(&event); err != nil {
			t.Fatalf("failed to read snapshot: %v", err)
		}
		if event.Type != dto.ChatEventSnapshot {
			t.Fatalf("expected snapshot event, got %q", event.Type)
		}
		_ = conn.Close()

		durations = append(durations, time.Since(start))
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	p95 := percentile(durations, 0.95)

	if p95 > 250*time.Millisecond {
		t.Fatalf("expected websocket P95 <= 250ms, got %s", p95)
	}
}

func TestThreadListSSEP95Under300ms(t *testing.T) {
	app := newChatApp()

	baseURL, shutdown := startFiberServer(t, app)
	defer shutdown()

	client := &http.Client{Timeout: 5 * time.Second}
	clients := 200
	durations := make([]time.Duration, 0, clients)

	for i := 0; i < clients; i++ {
		req, err := http.NewRequest(http.MethodGet, baseURL+"/api/v1/chat/threads/stream", nil)
		if err != nil {
			t.Fatalf("build request failed: %v", err)
		}

		start := time.Now()
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("sse request failed: %v", err)
		}

		reader := bufio.NewReader(resp.Body)
		deadline := time.Now().Add(2 * time.Second)

		for {
			if time.Now().After(deadline) {
				t.Fatalf("sse response timed out for client %d", i)
			}
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("failed to read sse line: %v", err)
			}
			if strings.HasPrefix(line, "data:") {
				durations = append(durations, time.Since(start))
				break
			}
		}

		resp.Body.Close()
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	p95 := percentile(durations, 0.95)

	if p95 > 300*time.Millisecond {
		t.Fatalf("expected SSE P95 <= 300ms, got %s", p95)
	}
}

func newChatApp() *fiber.App {
	app := fiber.New()
	app.Use(middleware.CorrelationID())

	group := app.Group("/api/v1/chat", func(c *fiber.Ctx) error {
		c.Locals(middleware.LocalUserID, "u1")
		c.Locals(middleware.LocalUserRole, models.RoleCustomer)
		return c.Next()
	})
	handler.NewChatHandler(stubChatService{}, zerolog.Nop(), 200*time.Millisecond).Register(group)
	return app
}

func percentile(values []time.Duration, pct float64) time.Duration {
	if len(values) == 0 {
		return 0
	}
	index := int(math.Ceil(pct*float64(len(values)))) - 1
	if index < 0 {
		index = 0
	}
	if index >= len(values) {
		index = len(values) - 1
	}
	return values[index]
}

func startFiberServer(t *testing.T, app *fiber.App) (string, func()) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}

	done := make(chan struct{})
	go func() {
		if err := app.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("fiber listener stopped: %v", err)
		}
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)

	shutdown := func() {
		_ = app.Shutdown()
		_ = listener.Close()
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
		}
	}

	return "http://" + listener.Addr().String(), shutdown
}

type stubChatService struct{}

func (stubChatService) StartChat(context.Context, string, string) (dto.ThreadResponse, error) {
	return dto.ThreadResponse{ID: "u1_u2"}, nil
}

func (stubChatService) EnsureThread(context.Context, string, []models.ThreadParticipant) (models.Thread, bool, error) {
	return models.Thread{ID: "u1_u2"}, false, nil
}

func (stubChatService) ListThreads(context.Context, string) ([]dto.ThreadResponse, error) {
	return []dto.ThreadResponse{{ID: "u1_u2", ParticipantIDs: []string{"u1", "u2"}}}, nil
}

func (s stubChatService) SubscribeThreads(ctx context.Context, userID string, callback func([]dto.ThreadResponse)) (func(), error) {
	threads, _ := s.ListThreads(ctx, userID)
	callback(threads)
	return func() {}, nil
}

func (stubChatService) Messages(context.Context, string, string) ([]dto.MessageView, error) {
	return []dto.MessageView{{ID: 1, Text: "hello", Sender: dto.SenderSelf}}, nil
}

func (s stubChatService) SubscribeMessages(ctx context.Context, threadID, viewerID string, callback func([]dto.MessageView)) (func(), error) {
	views, _ := s.Messages(ctx, threadID, viewerID)
	callback(views)
	return func() {}, nil
}

func (stubChatService) SendMessage(_ context.Context, req dto.SendMessageRequest) (dto.MessageResponse, error) {
	return dto.MessageResponse{ID: 1, ThreadID: req.ThreadID, SenderID: req.SenderID, Text: req.Text}, nil
}
