// Package assetcache stores last known good responses under a version tag.
// Exactly one version is marked active; stale versions are removed when a
// new one is activated.
package assetcache

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"biblepace/pkg/domain"
)

var ErrEmptyVersion = errors.New("cache version required")

// Store is a versioned URL -> response store. Writes are atomic per key.
type Store interface {
	Match(ctx context.Context, version, url string) (domain.CacheEntry, bool, error)
	Put(ctx context.Context, version string, entry domain.CacheEntry) error
	// PutAll commits every entry or none of them.
	PutAll(ctx context.Context, version string, entries []domain.CacheEntry) error
	Versions(ctx context.Context) ([]string, error)
	DeleteVersion(ctx context.Context, version string) error
	Active(ctx context.Context) (string, bool, error)
	SetActive(ctx context.Context, version string) error
}

// Cache is a handle on one version of a Store.
type Cache struct {
	store   Store
	version string
}

// Open returns a handle bound to version.
func Open(store Store, version string) *Cache {
	return &Cache{store: store, version: version}
}

// Version returns the tag this handle reads and writes.
func (c *Cache) Version() string {
	return c.version
}

func (c *Cache) Match(ctx context.Context, url string) (domain.CacheEntry, bool, error) {
	return c.store.Match(ctx, c.version, url)
}

func (c *Cache) Put(ctx context.Context, entry domain.CacheEntry) error {
	return c.store.Put(ctx, c.version, entry)
}

func (c *Cache) PutAll(ctx context.Context, entries []domain.CacheEntry) error {
	return c.store.PutAll(ctx, c.version, entries)
}

// storedEntry is the serialised form of a cache entry, body included.
type storedEntry struct {
	URL      string      `json:"url"`
	Status   int         `json:"status"`
	Header   http.Header `json:"header,omitempty"`
	Body     []byte      `json:"body"`
	StoredAt time.Time   `json:"storedAt"`
}

func toStored(e domain.CacheEntry) storedEntry {
	return storedEntry{URL: e.URL, Status: e.Status, Header: e.Header, Body: e.Body, StoredAt: e.StoredAt}
}

func (s storedEntry) entry() domain.CacheEntry {
	return domain.CacheEntry{URL: s.URL, Status: s.Status, Header: s.Header, Body: s.Body, StoredAt: s.StoredAt}
}

func stamp(e domain.CacheEntry) domain.CacheEntry {
	if e.StoredAt.IsZero() {
		e.StoredAt = time.Now().UTC()
	}
	if e.Header != nil {
		e.Header = e.Header.Clone()
	}
	return e
}

func sortedVersions(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
