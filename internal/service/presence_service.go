package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/homefix-api/internal/dto"
	"github.com/noah-isme/homefix-api/internal/observability"
	"github.com/noah-isme/homefix-api/internal/realtime"
	"github.com/noah-isme/homefix-api/internal/repository"
)

// MaxPresenceIDs bounds how many users a single presence subscription may watch.
const MaxPresenceIDs = 30

var (
	// ErrUserNotFound indicates the user profile does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrPresenceIDsRequired indicates an empty presence watch set.
	ErrPresenceIDsRequired = errors.New("at least one user id is required")
	// ErrPresenceLimit indicates the watch set exceeds MaxPresenceIDs.
	ErrPresenceLimit = fmt.Errorf("at most %d user ids can be watched", MaxPresenceIDs)
)

// PresenceService resolves and streams display names and avatars of users.
type PresenceService interface {
	Lookup(ctx context.Context, userID string) (dto.PresenceRecord, error)
	SubscribeUsers(ctx context.Context, userIDs []string, callback func([]dto.PresenceRecord)) (func(), error)
	Invalidate(ctx context.Context, userID string) error
}

type presenceService struct {
	users  repository.UserRepository
	redis  *redis.Client
	hub    realtime.Hub
	ttl    time.Duration
	logger zerolog.Logger
}

// NewPresenceService constructs a presence service. redisClient may be nil.
func NewPresenceService(users repository.UserRepository, redisClient *redis.Client, hub realtime.Hub, ttl time.Duration, logger zerolog.Logger) PresenceService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &presenceService{
		users:  users,
		redis:  redisClient,
		hub:    hub,
		ttl:    ttl,
		logger: logger.With().Str("component", "presence_service").Logger(),
	}
}

func presenceCacheKey(userID string) string {
	return "presence:user:" + userID
}

func (s *presenceService) Lookup(ctx context.Context, userID string) (dto.PresenceRecord, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return dto.PresenceRecord{}, ErrUserNotFound
	}

	if record, ok := s.fromCache(ctx, userID); ok {
		observability.CacheLookups().WithLabelValues("presence", "hit").Inc()
		return record, nil
	}
	observability.CacheLookups().WithLabelValues("presence", "miss").Inc()

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PresenceRecord{}, ErrUserNotFound
		}
		return dto.PresenceRecord{}, err
	}

	record := dto.NewPresenceRecord(user)
	s.storeCache(ctx, record)
	return record, nil
}

func (s *presenceService) SubscribeUsers(ctx context.Context, userIDs []string, callback func([]dto.PresenceRecord)) (func(), error) {
	ids := normaliseUserIDs(userIDs)
	if len(ids) == 0 {
		return nil, ErrPresenceIDsRequired
	}
	if len(ids) > MaxPresenceIDs {
		return nil, ErrPresenceLimit
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, realtime.UserKey(id))
	}

	query := liveQuery{
		hub:    s.hub,
		keys:   keys,
		kind:   "presence",
		logger: s.logger,
		load: func(ctx context.Context) error {
			records, err := s.snapshot(ctx, ids)
			if err != nil {
				return err
			}
			callback(records)
			return nil
		},
	}
	return query.subscribe(ctx)
}

func (s *presenceService) Invalidate(ctx context.Context, userID string) error {
	if s.redis != nil {
		if err := s.redis.Del(ctx, presenceCacheKey(userID)).Err(); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to drop presence cache")
		}
	}
	return s.hub.Publish(ctx, realtime.UserKey(userID), realtime.KindUserChanged, map[string]string{"user_id": userID})
}

// snapshot reads the watched users straight from the store, in watch order.
// Unknown IDs are left out.
func (s *presenceService) snapshot(ctx context.Context, ids []string) ([]dto.PresenceRecord, error) {
	users, err := s.users.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]dto.PresenceRecord, len(users))
	for _, user := range users {
		byID[user.ID] = dto.NewPresenceRecord(user)
	}

	records := make([]dto.PresenceRecord, 0, len(ids))
	for _, id := range ids {
		if record, ok := byID[id]; ok {
			records = append(records, record)
		}
	}
	return records, nil
}

func (s *presenceService) fromCache(ctx context.Context, userID string) (dto.PresenceRecord, bool) {
	if s.redis == nil {
		return dto.PresenceRecord{}, false
	}

	raw, err := s.redis.Get(ctx, presenceCacheKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("presence cache read failed")
		}
		return dto.PresenceRecord{}, false
	}

	var record dto.PresenceRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		s.logger.Warn().Err(err).Msg("invalid presence cache entry")
		return dto.PresenceRecord{}, false
	}
	return record, true
}

func (s *presenceService) storeCache(ctx context.Context, record dto.PresenceRecord) {
	if s.redis == nil {
		return
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, presenceCacheKey(record.UserID), payload, s.ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache presence record")
	}
}

func normaliseUserIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
