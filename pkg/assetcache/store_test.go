package assetcache

import (
	"context"
	"net/http"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"biblepace/pkg/domain"
)

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	exerciseStore(t, NewRedisStore(client, "test:assets"))
}

func TestRedisStoreMatchFailsWhenRedisDown(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	store := NewRedisStore(client, "test:assets")
	srv.Close()
	if _, _, err := store.Match(context.Background(), "v1", "/"); err == nil {
		t.Fatalf("expected error with redis down")
	}
}

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := store.Match(ctx, "v1", "/index.html"); err != nil || ok {
		t.Fatalf("empty store match = %v, %v", ok, err)
	}

	header := http.Header{"Content-Type": []string{"text/html"}}
	if err := store.PutAll(ctx, "v1", []domain.CacheEntry{
		{URL: "/", Status: http.StatusOK, Header: header, Body: []byte("root")},
		{URL: "/index.html", Status: http.StatusOK, Header: header, Body: []byte("index")},
	}); err != nil {
		t.Fatalf("put all: %v", err)
	}
	got, ok, err := store.Match(ctx, "v1", "/index.html")
	if err != nil || !ok {
		t.Fatalf("match after put: %v, %v", ok, err)
	}
	if string(got.Body) != "index" || got.Header.Get("Content-Type") != "text/html" || got.StoredAt.IsZero() {
		t.Fatalf("unexpected entry: %+v", got)
	}

	cache := Open(store, "v1")
	if err := cache.Put(ctx, domain.CacheEntry{URL: "/index.html", Status: http.StatusOK, Body: []byte("fresh")}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, _, _ = cache.Match(ctx, "/index.html")
	if string(got.Body) != "fresh" {
		t.Fatalf("put should overwrite, got %q", got.Body)
	}

	if err := store.Put(ctx, "v2", domain.CacheEntry{URL: "/", Status: http.StatusOK, Body: []byte("v2")}); err != nil {
		t.Fatalf("put v2: %v", err)
	}
	if err := store.SetActive(ctx, "v2"); err != nil {
		t.Fatalf("set active: %v", err)
	}
	versions, err := store.Versions(ctx)
	if err != nil {
		t.Fatalf("versions: %v", err)
	}
	if len(versions) != 2 || versions[0] != "v1" || versions[1] != "v2" {
		t.Fatalf("versions = %v", versions)
	}
	if active, ok, err := store.Active(ctx); err != nil || !ok || active != "v2" {
		t.Fatalf("active = %q %v %v", active, ok, err)
	}

	if err := store.DeleteVersion(ctx, "v1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Match(ctx, "v1", "/"); ok {
		t.Fatalf("deleted version still matches")
	}
	versions, _ = store.Versions(ctx)
	if len(versions) != 1 || versions[0] != "v2" {
		t.Fatalf("versions after delete = %v", versions)
	}

	if err := store.DeleteVersion(ctx, "v2"); err != nil {
		t.Fatalf("delete active: %v", err)
	}
	if _, ok, _ := store.Active(ctx); ok {
		t.Fatalf("active marker should be cleared with its version")
	}
	if err := store.PutAll(ctx, "", nil); err == nil {
		t.Fatalf("expected error for empty version")
	}
}
