// Package realtime fans change events out to live subscribers, locally and
// across API nodes via Redis pub/sub and NATS.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/homefix-api/internal/observability"
)

// Event kinds published by the API.
const (
	KindThreadChanged  = "thread.changed"
	KindMessageCreated = "message.created"
	KindUserChanged    = "user.changed"
)

// Event is a change notification for a subscription key.
type Event struct {
	Source  string          `json:"source"`
	Key     string          `json:"key"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
	SentAt  time.Time       `json:"sent_at"`
}

// Handler receives events for a subscribed key. Handlers must not block.
type Handler func(Event)

// Hub is the publish/subscribe boundary between writers and live views.
type Hub interface {
	Subscribe(key string, fn Handler) (unsubscribe func())
	Publish(ctx context.Context, key, kind string, payload interface{}) error
	Start(ctx context.Context) error
}

// Options configures the optional cross-node transports.
type Options struct {
	Redis       *redis.Client
	NATS        *nats.Conn
	ChannelBase string
}

type hub struct {
	mu           sync.RWMutex
	subscribers  map[string]map[uint64]Handler
	nextID       uint64
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	nodeID       string
	logger       zerolog.Logger
}

// ThreadKey addresses changes to a thread's messages.
func ThreadKey(threadID string) string { return "thread:" + threadID }

// UserThreadsKey addresses changes to any thread a user participates in.
func UserThreadsKey(userID string) string { return "user-threads:" + userID }

// UserKey addresses profile changes of a single user.
func UserKey(userID string) string { return "user:" + userID }

// NewHub constructs a hub. Transports left nil in opts are skipped.
func NewHub(opts Options, logger zerolog.Logger) Hub {
	redisChannel := ""
	natsSubject := ""
	if opts.ChannelBase != "" {
		redisChannel = opts.ChannelBase + ":realtime"
		natsSubject = strings.ReplaceAll(opts.ChannelBase, ":", ".") + ".realtime"
	}

	return &hub{
		subscribers:  make(map[string]map[uint64]Handler),
		redis:        opts.Redis,
		redisChannel: redisChannel,
		nats:         opts.NATS,
		natsSubject:  natsSubject,
		nodeID:       uuid.NewString(),
		logger:       logger.With().Str("component", "realtime_hub").Logger(),
	}
}

func (h *hub) Start(ctx context.Context) error {
	if h.redis != nil && h.redisChannel != "" {
		pubsub := h.redis.Subscribe(ctx, h.redisChannel)
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			return err
		}
		go h.consumeRedis(ctx, pubsub)
	}
	if h.nats != nil && h.natsSubject != "" {
		sub, err := h.nats.Subscribe(h.natsSubject, func(msg *nats.Msg) {
			h.handleRemote(msg.Data, "nats")
		})
		if err != nil {
			return err
		}
		go func() {
			<-ctx.Done()
			if err := sub.Drain(); err != nil {
				h.logger.Warn().Err(err).Msg("failed to drain realtime nats subscription")
			}
		}()
	}
	return nil
}

func (h *hub) Subscribe(key string, fn Handler) func() {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if _, exists := h.subscribers[key]; !exists {
		h.subscribers[key] = make(map[uint64]Handler)
	}
	h.subscribers[key][id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if handlers, ok := h.subscribers[key]; ok {
				delete(handlers, id)
				if len(handlers) == 0 {
					delete(h.subscribers, key)
				}
			}
		})
	}
}

func (h *hub) Publish(ctx context.Context, key, kind string, payload interface{}) error {
	event := Event{
		Source: h.nodeID,
		Key:    key,
		Kind:   kind,
		SentAt: time.Now().UTC(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		event.Payload = raw
	}

	h.dispatch(event, "local")

	if h.redis == nil && h.nats == nil {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	var errs []error
	if h.redis != nil && h.redisChannel != "" {
		if err := h.redis.Publish(ctx, h.redisChannel, data).Err(); err != nil {
			errs = append(errs, err)
		}
	}
	if h.nats != nil && h.natsSubject != "" {
		if err := h.nats.Publish(h.natsSubject, data); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (h *hub) consumeRedis(ctx context.Context, pubsub *redis.PubSub) {
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, redis.ErrClosed) {
				return
			}
			h.logger.Error().Err(err).Msg("realtime redis subscription closed")
			return
		}
		h.handleRemote([]byte(msg.Payload), "redis")
	}
}

func (h *hub) handleRemote(data []byte, origin string) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		h.logger.Warn().Err(err).Str("origin", origin).Msg("invalid realtime event")
		return
	}

	if event.Source == h.nodeID {
		return
	}

	h.dispatch(event, origin)
}

func (h *hub) dispatch(event Event, origin string) {
	h.mu.RLock()
	handlers := make([]Handler, 0, len(h.subscribers[event.Key]))
	for _, fn := range h.subscribers[event.Key] {
		handlers = append(handlers, fn)
	}
	h.mu.RUnlock()

	observability.RealtimeEvents().WithLabelValues(origin).Inc()

	for _, fn := range handlers {
		fn(event)
	}
}
