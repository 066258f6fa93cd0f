package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisReminderStore keeps the reminder in a single hash.
type RedisReminderStore struct {
	client redis.UniversalClient
	key    string
}

func NewRedisReminderStore(client redis.UniversalClient, prefix string) *RedisReminderStore {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "biblepace"
	}
	return &RedisReminderStore{client: client, key: prefix + ":reminder"}
}

func (s *RedisReminderStore) Get(ctx context.Context) (Reminder, bool, error) {
	data, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return Reminder{}, false, fmt.Errorf("get reminder: %w", err)
	}
	at := data["time"]
	if at == "" {
		return Reminder{}, false, nil
	}
	r := Reminder{Time: at}
	if t, err := time.Parse(time.RFC3339Nano, data["updatedAt"]); err == nil {
		r.UpdatedAt = t
	}
	return r, true, nil
}

func (s *RedisReminderStore) Save(ctx context.Context, at string) error {
	if at == "" {
		return ErrEmptyTime
	}
	err := s.client.HSet(ctx, s.key, map[string]any{
		"time":      at,
		"updatedAt": time.Now().UTC().Format(time.RFC3339Nano),
	}).Err()
	if err != nil {
		return fmt.Errorf("save reminder: %w", err)
	}
	return nil
}

func (s *RedisReminderStore) Delete(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	return nil
}
