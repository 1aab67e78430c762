package pulse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"realestate-assistant/internal/models"

	"github.com/redis/go-redis/v9"
)

type RedisStoreConfig struct {
	KeyPrefix string
}

// RedisStore keeps one JSON document per user and the intent log in a
// single list. Records never expire and the log is never trimmed.
type RedisStore struct {
	client *redis.Client
	config RedisStoreConfig
}

func NewRedisStore(client *redis.Client, config RedisStoreConfig) *RedisStore {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "assistant:pulse"
	}
	return &RedisStore{client: client, config: config}
}

func (s *RedisStore) userKey(userID string) string {
	return fmt.Sprintf("%s:user:%s", s.config.KeyPrefix, userID)
}

func (s *RedisStore) logKey() string {
	return s.config.KeyPrefix + ":intent-log"
}

func (s *RedisStore) Get(ctx context.Context, userID string) (*models.UserPulse, error) {
	val, err := s.client.Get(ctx, s.userKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var p models.UserPulse
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		return nil, fmt.Errorf("decode pulse %s: %w", userID, err)
	}
	return &p, nil
}

func (s *RedisStore) Put(ctx context.Context, pulse *models.UserPulse) error {
	data, err := json.Marshal(pulse)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.userKey(pulse.UserID), string(data), 0).Err()
}

func (s *RedisStore) AppendLog(ctx context.Context, entry models.IntentLogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.client.RPush(ctx, s.logKey(), string(data)).Err()
}

// Log reads back the newest n intent log entries, oldest first.
func (s *RedisStore) Log(ctx context.Context, n int64) ([]models.IntentLogEntry, error) {
	if n <= 0 {
		return []models.IntentLogEntry{}, nil
	}
	vals, err := s.client.LRange(ctx, s.logKey(), -n, -1).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]models.IntentLogEntry, 0, len(vals))
	for _, v := range vals {
		var e models.IntentLogEntry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			return nil, fmt.Errorf("decode intent log entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
