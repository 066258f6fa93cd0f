package assetcache

import (
	"context"
	"sync"

	"biblepace/pkg/domain"
)

// MemoryStore keeps cache versions in process. Contents are lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	versions map[string]map[string]domain.CacheEntry
	active   string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{versions: make(map[string]map[string]domain.CacheEntry)}
}

func (m *MemoryStore) Match(_ context.Context, version, url string) (domain.CacheEntry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries, ok := m.versions[version]
	if !ok {
		return domain.CacheEntry{}, false, nil
	}
	e, ok := entries[url]
	if !ok {
		return domain.CacheEntry{}, false, nil
	}
	e.Body = append([]byte(nil), e.Body...)
	return e, true, nil
}

func (m *MemoryStore) Put(ctx context.Context, version string, entry domain.CacheEntry) error {
	return m.PutAll(ctx, version, []domain.CacheEntry{entry})
}

func (m *MemoryStore) PutAll(_ context.Context, version string, entries []domain.CacheEntry) error {
	if version == "" {
		return ErrEmptyVersion
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket, ok := m.versions[version]
	if !ok {
		bucket = make(map[string]domain.CacheEntry, len(entries))
		m.versions[version] = bucket
	}
	for _, e := range entries {
		e = stamp(e)
		e.Body = append([]byte(nil), e.Body...)
		bucket[e.URL] = e
	}
	return nil
}

func (m *MemoryStore) Versions(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := make(map[string]struct{}, len(m.versions))
	for v := range m.versions {
		set[v] = struct{}{}
	}
	return sortedVersions(set), nil
}

func (m *MemoryStore) DeleteVersion(_ context.Context, version string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.versions, version)
	if m.active == version {
		m.active = ""
	}
	return nil
}

func (m *MemoryStore) Active(_ context.Context) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active, m.active != "", nil
}

func (m *MemoryStore) SetActive(_ context.Context, version string) error {
	if version == "" {
		return ErrEmptyVersion
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = version
	if _, ok := m.versions[version]; !ok {
		m.versions[version] = make(map[string]domain.CacheEntry)
	}
	return nil
}
