package assetcache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"biblepace/pkg/domain"
)

// RedisStore keeps each cache version in one hash keyed by URL, plus a set
// of known versions and the active version marker.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore builds a Redis backed store on an existing client.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "biblepace:assets"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Match(ctx context.Context, version, url string) (domain.CacheEntry, bool, error) {
	raw, err := s.client.HGet(ctx, s.versionKey(version), url).Bytes()
	if err == redis.Nil {
		return domain.CacheEntry{}, false, nil
	}
	if err != nil {
		return domain.CacheEntry{}, false, fmt.Errorf("match %s: %w", url, err)
	}
	var stored storedEntry
	if err := json.Unmarshal(raw, &stored); err != nil {
		return domain.CacheEntry{}, false, fmt.Errorf("decode %s: %w", url, err)
	}
	return stored.entry(), true, nil
}

func (s *RedisStore) Put(ctx context.Context, version string, entry domain.CacheEntry) error {
	return s.PutAll(ctx, version, []domain.CacheEntry{entry})
}

// PutAll writes the batch in a MULTI/EXEC transaction.
func (s *RedisStore) PutAll(ctx context.Context, version string, entries []domain.CacheEntry) error {
	if version == "" {
		return ErrEmptyVersion
	}
	fields := make([]any, 0, len(entries)*2)
	for _, e := range entries {
		payload, err := json.Marshal(toStored(stamp(e)))
		if err != nil {
			return fmt.Errorf("encode %s: %w", e.URL, err)
		}
		fields = append(fields, e.URL, payload)
	}
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, s.versionsKey(), version)
	if len(fields) > 0 {
		pipe.HSet(ctx, s.versionKey(version), fields...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("put entries: %w", err)
	}
	return nil
}

func (s *RedisStore) Versions(ctx context.Context) ([]string, error) {
	members, err := s.client.SMembers(ctx, s.versionsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	set := make(map[string]struct{}, len(members))
	for _, m := range members {
		set[m] = struct{}{}
	}
	return sortedVersions(set), nil
}

func (s *RedisStore) DeleteVersion(ctx context.Context, version string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.versionKey(version))
	pipe.SRem(ctx, s.versionsKey(), version)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete version %s: %w", version, err)
	}
	// Clear the marker only if it still points at the removed version.
	active, ok, err := s.Active(ctx)
	if err == nil && ok && active == version {
		_ = s.client.Del(ctx, s.activeKey()).Err()
	}
	return nil
}

func (s *RedisStore) Active(ctx context.Context) (string, bool, error) {
	v, err := s.client.Get(ctx, s.activeKey()).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get active version: %w", err)
	}
	return v, v != "", nil
}

func (s *RedisStore) SetActive(ctx context.Context, version string) error {
	if version == "" {
		return ErrEmptyVersion
	}
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, s.versionsKey(), version)
	pipe.Set(ctx, s.activeKey(), version, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set active version: %w", err)
	}
	return nil
}

func (s *RedisStore) versionsKey() string {
	return s.prefix + ":versions"
}

func (s *RedisStore) activeKey() string {
	return s.prefix + ":active"
}

func (s *RedisStore) versionKey(version string) string {
	return fmt.Sprintf("%s:v:%s", s.prefix, version)
}
