package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"biblepace/pkg/assetcache"
	"biblepace/pkg/domain"
)

func newTestProxy(t *testing.T, store assetcache.Store, o *origin) *Proxy {
	t.Helper()
	l := newTestLifecycle(t, store, o, "v1", nil)
	return NewProxy(store, l, o.srv.Client())
}

func TestProxyServesCachedThenRevalidates(t *testing.T) {
	ctx := context.Background()
	o := newOrigin(t, map[string]string{"/app.js": "fresh"})
	store := assetcache.NewMemoryStore()
	key := o.srv.URL + "/app.js"
	if err := store.Put(ctx, "v1", domain.CacheEntry{URL: key, Status: 200, Body: []byte("stale")}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	p := newTestProxy(t, store, o)

	resp, err := p.Fetch(ctx, httptest.NewRequest(http.MethodGet, key, nil))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if resp.Source != SourceCache || string(resp.Body) != "stale" {
		t.Fatalf("expected stale cached body, got %s %q", resp.Source, resp.Body)
	}

	p.Wait()
	entry, ok, err := store.Match(ctx, "v1", key)
	if err != nil || !ok {
		t.Fatalf("match: ok=%v err=%v", ok, err)
	}
	if string(entry.Body) != "fresh" {
		t.Fatalf("cache not refreshed, body = %q", entry.Body)
	}
}

func TestProxyMissStoresNetworkResponse(t *testing.T) {
	ctx := context.Background()
	o := newOrigin(t, map[string]string{"/app.css": "body{}"})
	store := assetcache.NewMemoryStore()
	p := newTestProxy(t, store, o)
	key := o.srv.URL + "/app.css"

	resp, err := p.Fetch(ctx, httptest.NewRequest(http.MethodGet, key, nil))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if resp.Source != SourceNetwork || resp.Status != http.StatusOK {
		t.Fatalf("unexpected response %+v", resp)
	}
	p.Wait()
	if _, ok, _ := store.Match(ctx, "v1", key); !ok {
		t.Fatalf("expected network response to be stored")
	}
}

func TestProxyDoesNotStoreNonOK(t *testing.T) {
	ctx := context.Background()
	o := newOrigin(t, map[string]string{})
	store := assetcache.NewMemoryStore()
	p := newTestProxy(t, store, o)
	key := o.srv.URL + "/missing.js"

	resp, err := p.Fetch(ctx, httptest.NewRequest(http.MethodGet, key, nil))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if resp.Status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.Status)
	}
	p.Wait()
	if _, ok, _ := store.Match(ctx, "v1", key); ok {
		t.Fatalf("404 must not be cached")
	}
}

func TestProxyMissAndNetworkFailure(t *testing.T) {
	ctx := context.Background()
	o := newOrigin(t, map[string]string{})
	store := assetcache.NewMemoryStore()
	p := newTestProxy(t, store, o)
	key := o.srv.URL + "/app.js"
	o.srv.Close()

	_, err := p.Fetch(ctx, httptest.NewRequest(http.MethodGet, key, nil))
	var ferr *FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if ferr.URL != key {
		t.Fatalf("url = %q", ferr.URL)
	}
}

func TestProxyCachedSurvivesNetworkFailure(t *testing.T) {
	ctx := context.Background()
	o := newOrigin(t, map[string]string{})
	store := assetcache.NewMemoryStore()
	p := newTestProxy(t, store, o)
	key := o.srv.URL + "/index.html"
	if err := store.Put(ctx, "v1", domain.CacheEntry{URL: key, Status: 200, Body: []byte("offline")}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	o.srv.Close()

	resp, err := p.Fetch(ctx, httptest.NewRequest(http.MethodGet, key, nil))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(resp.Body) != "offline" {
		t.Fatalf("body = %q", resp.Body)
	}
	p.Wait()
}

func TestProxyRevalidationOutlivesCaller(t *testing.T) {
	o := newOrigin(t, map[string]string{"/app.js": "fresh"})
	store := assetcache.NewMemoryStore()
	key := o.srv.URL + "/app.js"
	if err := store.Put(context.Background(), "v1", domain.CacheEntry{URL: key, Status: 200, Body: []byte("stale")}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	p := newTestProxy(t, store, o)

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := p.Fetch(ctx, httptest.NewRequest(http.MethodGet, key, nil)); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	cancel()
	p.Wait()
	entry, _, _ := store.Match(context.Background(), "v1", key)
	if string(entry.Body) != "fresh" {
		t.Fatalf("revalidation cancelled with caller, body = %q", entry.Body)
	}
}

func TestProxyPassesThroughNonGet(t *testing.T) {
	ctx := context.Background()
	o := newOrigin(t, map[string]string{"/form": "ok"})
	store := assetcache.NewMemoryStore()
	p := newTestProxy(t, store, o)
	key := o.srv.URL + "/form"

	resp, err := p.Fetch(ctx, httptest.NewRequest(http.MethodPost, key, nil))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if resp.Status != http.StatusOK {
		t.Fatalf("status = %d", resp.Status)
	}
	if _, ok, _ := store.Match(ctx, "v1", key); ok {
		t.Fatalf("POST must not be cached")
	}
}

func TestProxyRejectsOversizedBody(t *testing.T) {
	withMaxAssetBytes(t, 10)
	ctx := context.Background()
	o := newOrigin(t, map[string]string{
		"/big.js": "0123456789a",
		"/app.js": "0123456789",
	})
	store := assetcache.NewMemoryStore()
	p := newTestProxy(t, store, o)

	big := o.srv.URL + "/big.js"
	_, err := p.Fetch(ctx, httptest.NewRequest(http.MethodGet, big, nil))
	var ferr *FetchError
	if !errors.As(err, &ferr) || !errors.Is(err, ErrAssetTooLarge) {
		t.Fatalf("expected FetchError wrapping ErrAssetTooLarge, got %v", err)
	}

	atLimit := o.srv.URL + "/app.js"
	resp, err := p.Fetch(ctx, httptest.NewRequest(http.MethodGet, atLimit, nil))
	if err != nil {
		t.Fatalf("fetch at limit: %v", err)
	}
	if string(resp.Body) != "0123456789" {
		t.Fatalf("body = %q", resp.Body)
	}
	p.Wait()
	if _, ok, _ := store.Match(ctx, "v1", big); ok {
		t.Fatalf("oversized body must not be cached")
	}
	if _, ok, _ := store.Match(ctx, "v1", atLimit); !ok {
		t.Fatalf("body at the limit should be cached")
	}
}

func TestProxyKeepsCachedCopyWhenBodyTooLarge(t *testing.T) {
	withMaxAssetBytes(t, 10)
	ctx := context.Background()
	o := newOrigin(t, map[string]string{"/app.js": "0123456789a"})
	store := assetcache.NewMemoryStore()
	key := o.srv.URL + "/app.js"
	if err := store.Put(ctx, "v1", domain.CacheEntry{URL: key, Status: 200, Body: []byte("good")}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	p := newTestProxy(t, store, o)

	if _, err := p.Fetch(ctx, httptest.NewRequest(http.MethodGet, key, nil)); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	p.Wait()
	entry, _, _ := store.Match(ctx, "v1", key)
	if string(entry.Body) != "good" {
		t.Fatalf("cached copy overwritten, body = %q", entry.Body)
	}
}

func TestProxyRevalidationAfterActivationSkipsOldVersion(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	inFlight := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/app.js" {
			inFlight <- struct{}{}
			<-release
		}
		_, _ = w.Write([]byte("fresh"))
	}))
	t.Cleanup(srv.Close)
	var once sync.Once
	unblock := func() { once.Do(func() { close(release) }) }
	t.Cleanup(unblock)
	o := &origin{srv: srv}

	store := assetcache.NewMemoryStore()
	key := srv.URL + "/app.js"
	if err := store.PutAll(ctx, "v3", []domain.CacheEntry{{URL: key, Status: 200, Body: []byte("stale")}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := store.SetActive(ctx, "v3"); err != nil {
		t.Fatalf("seed active: %v", err)
	}
	p := NewProxy(store, newTestLifecycle(t, store, o, "v3", nil), srv.Client())

	resp, err := p.Fetch(ctx, httptest.NewRequest(http.MethodGet, key, nil))
	if err != nil || resp.Source != SourceCache {
		t.Fatalf("expected cached hit, resp=%+v err=%v", resp, err)
	}
	<-inFlight
	next := newTestLifecycle(t, store, o, "v4", []string{"/index.html"})
	if err := next.Start(ctx); err != nil {
		t.Fatalf("start v4: %v", err)
	}
	unblock()
	p.Wait()

	versions, err := store.Versions(ctx)
	if err != nil {
		t.Fatalf("versions: %v", err)
	}
	if len(versions) != 1 || versions[0] != "v4" {
		t.Fatalf("versions = %v, want [v4]", versions)
	}
}

func TestProxyDropsWriteThatRacedActivation(t *testing.T) {
	ctx := context.Background()
	o := newOrigin(t, map[string]string{"/app.js": "fresh", "/index.html": "<html></html>"})
	mem := assetcache.NewMemoryStore()
	key := o.srv.URL + "/app.js"
	if err := mem.PutAll(ctx, "v3", []domain.CacheEntry{{URL: key, Status: 200, Body: []byte("stale")}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := mem.SetActive(ctx, "v3"); err != nil {
		t.Fatalf("seed active: %v", err)
	}
	// The new version activates between the version check and the write.
	next := newTestLifecycle(t, mem, o, "v4", []string{"/index.html"})
	var startErr error
	store := &hookStore{Store: mem, beforePut: func() { startErr = next.Start(ctx) }}
	p := NewProxy(store, newTestLifecycle(t, store, o, "v3", nil), o.srv.Client())

	if _, err := p.Fetch(ctx, httptest.NewRequest(http.MethodGet, key, nil)); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	p.Wait()
	if startErr != nil {
		t.Fatalf("start v4: %v", startErr)
	}
	versions, _ := mem.Versions(ctx)
	if len(versions) != 1 || versions[0] != "v4" {
		t.Fatalf("versions = %v, want [v4]", versions)
	}
}
