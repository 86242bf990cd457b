package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/homefix-api/internal/database"
	"github.com/noah-isme/homefix-api/internal/models"
	"github.com/noah-isme/homefix-api/internal/realtime"
	"github.com/noah-isme/homefix-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Subscription refreshes read concurrently with writers; one connection
	// keeps the shared in-memory database free of table lock errors.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

type chatFixture struct {
	db       *gorm.DB
	users    repository.UserRepository
	threads  repository.ThreadRepository
	messages repository.MessageRepository
	hub      realtime.Hub
	presence PresenceService
	chat     ChatService
}

func newChatFixture(t *testing.T) chatFixture {
	t.Helper()
	db := setupServiceTestDB(t)
	redisClient := setupTestRedis(t)

	users := repository.NewUserRepository(db)
	threads := repository.NewThreadRepository(db)
	messages := repository.NewMessageRepository(db)
	hub := realtime.NewHub(realtime.Options{}, testLogger())
	presence := NewPresenceService(users, redisClient, hub, 0, testLogger())

	return chatFixture{
		db:       db,
		users:    users,
		threads:  threads,
		messages: messages,
		hub:      hub,
		presence: presence,
		chat:     NewChatService(threads, messages, presence, hub, testValidator(), testLogger()),
	}
}

func (f chatFixture) addUser(t *testing.T, id, name, avatar string) {
	t.Helper()
	require.NoError(t, f.users.Upsert(context.Background(), &models.UserProfile{
		ID:          id,
		DisplayName: name,
		AvatarURL:   avatar,
		Role:        models.RoleCustomer,
	}))
}

// snapshots collects every emission of a subscription callback.
type snapshots[T any] struct {
	mu    sync.Mutex
	items [][]T
}

func (s *snapshots[T]) record(items []T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, items)
}

func (s *snapshots[T]) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *snapshots[T]) last() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return nil
	}
	return s.items[len(s.items)-1]
}
