package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/yoockh/unistep/internal/utils"
)

// KeyPrefix matches the key the web client used for its local record.
const KeyPrefix = "unistep-session:"

type RedisStore struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, now: time.Now}
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (*Context, error) {
	if sessionID == "" {
		return nil, utils.ErrNotFound
	}
	raw, err := s.rdb.Get(ctx, KeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil || rec.UserID == "" {
		// unreadable record: drop it, caller sees a logged-out session
		_ = s.rdb.Del(ctx, KeyPrefix+sessionID).Err()
		return nil, utils.ErrNotFound
	}
	return NewContext(sessionID, rec), nil
}

// Save opens a new session for userID. No expiry is set.
func (s *RedisStore) Save(ctx context.Context, userID string) (*Context, error) {
	rec := Record{UserID: userID, LoginDate: s.now().UTC().Format(time.RFC3339Nano)}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	if err := s.rdb.Set(ctx, KeyPrefix+id, b, 0).Err(); err != nil {
		return nil, err
	}
	return NewContext(id, rec), nil
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, KeyPrefix+sessionID).Err()
}
