package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestFixedWindowLimiterRedis(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	limiter, err := NewFixedWindowLimiter(client, "test:ratelimit", 2, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	ctx := context.Background()
	if !limiter.Allow(ctx, "203.0.113.5") {
		t.Fatalf("first request should pass")
	}
	if !limiter.Allow(ctx, "203.0.113.5") {
		t.Fatalf("second request should pass")
	}
	if limiter.Allow(ctx, "203.0.113.5") {
		t.Fatalf("third request should be blocked")
	}
	if !limiter.Allow(ctx, "203.0.113.6") {
		t.Fatalf("other key should have its own budget")
	}
}

func TestFixedWindowLimiterFailsOpen(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	limiter, err := NewFixedWindowLimiter(client, "test:ratelimit", 1, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	srv.Close()
	if !limiter.Allow(context.Background(), "203.0.113.5") {
		t.Fatalf("limiter should fail open on redis errors")
	}
}

func TestFixedWindowLimiterRequiresClient(t *testing.T) {
	limiter, err := NewFixedWindowLimiter(nil, "test:ratelimit", 1, time.Second)
	if err == nil || limiter != nil {
		t.Fatalf("expected constructor error without redis client")
	}
}

func TestNilLimiterAllows(t *testing.T) {
	var limiter *FixedWindowLimiter
	if !limiter.Allow(context.Background(), "k") {
		t.Fatalf("nil limiter should allow")
	}
}
