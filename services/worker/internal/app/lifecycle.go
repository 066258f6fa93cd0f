package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"biblepace/pkg/assetcache"
	"biblepace/pkg/domain"
)

// maxAssetBytes caps a single response body. Larger bodies are rejected,
// never stored cut short.
var maxAssetBytes int64 = 32 << 20

func readAssetBody(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxAssetBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > maxAssetBytes {
		return nil, fmt.Errorf("%w: over %d bytes", ErrAssetTooLarge, maxAssetBytes)
	}
	return body, nil
}

// State is the cache lifecycle state of the worker.
type State int

const (
	StateIdle State = iota
	StateInstalling
	StateActivating
	StateActive
	StateRedundant
)

func (s State) String() string {
	switch s {
	case StateInstalling:
		return "installing"
	case StateActivating:
		return "activating"
	case StateActive:
		return "active"
	case StateRedundant:
		return "redundant"
	default:
		return "idle"
	}
}

// Lifecycle installs a versioned precache and activates it in place of
// every older version.
type Lifecycle struct {
	store       assetcache.Store
	version     string
	manifest    []string
	origin      *url.URL
	discover    bool
	client      *http.Client
	concurrency int
	timeout     time.Duration
	clients     *ClientRegistry

	mu    sync.Mutex
	state State
}

type LifecycleConfig struct {
	Store          assetcache.Store
	Version        string
	Manifest       []string
	Origin         *url.URL
	DiscoverAssets bool
	HTTPClient     *http.Client
	Concurrency    int
	Timeout        time.Duration
	Clients        *ClientRegistry
}

func NewLifecycle(cfg LifecycleConfig) (*Lifecycle, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("cache store required")
	}
	if cfg.Version == "" {
		return nil, assetcache.ErrEmptyVersion
	}
	if cfg.Origin == nil {
		return nil, fmt.Errorf("origin URL required")
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	clients := cfg.Clients
	if clients == nil {
		clients = NewClientRegistry()
	}
	return &Lifecycle{
		store:       cfg.Store,
		version:     cfg.Version,
		manifest:    append([]string(nil), cfg.Manifest...),
		origin:      cfg.Origin,
		discover:    cfg.DiscoverAssets,
		client:      client,
		concurrency: concurrency,
		timeout:     timeout,
		clients:     clients,
	}, nil
}

func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Lifecycle) Version() string {
	return l.version
}

func (l *Lifecycle) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
	lifecycleState.Set(float64(s))
}

// CacheVersion is the version fetches read and write: the active one, or
// this worker's version before anything was activated.
func (l *Lifecycle) CacheVersion(ctx context.Context) string {
	active, ok, err := l.store.Active(ctx)
	if err != nil || !ok {
		return l.version
	}
	return active
}

// Install fetches every manifest asset and commits them as one batch under
// the worker's version. Any failure leaves the store untouched and the
// lifecycle redundant.
func (l *Lifecycle) Install(ctx context.Context) error {
	start := time.Now()
	l.setState(StateInstalling)
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	urls, err := l.resolveManifest(ctx)
	if err != nil {
		l.fail(start)
		return err
	}

	entries := make([]domain.CacheEntry, len(urls))
	var mu sync.Mutex
	failed := make(map[string]error)
	g := new(errgroup.Group)
	g.SetLimit(l.concurrency)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			entry, err := l.fetchAsset(ctx, u)
			if err != nil {
				mu.Lock()
				failed[u] = err
				mu.Unlock()
				return nil
			}
			entries[i] = entry
			return nil
		})
	}
	_ = g.Wait()
	if len(failed) > 0 {
		l.fail(start)
		return &PrecacheError{Version: l.version, Failed: failed}
	}
	if err := assetcache.Open(l.store, l.version).PutAll(ctx, entries); err != nil {
		l.fail(start)
		return fmt.Errorf("commit precache %s: %w", l.version, err)
	}
	installDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())
	slog.Info("cache installed", "version", l.version, "assets", len(entries))
	return nil
}

func (l *Lifecycle) fail(start time.Time) {
	installDuration.WithLabelValues("failed").Observe(time.Since(start).Seconds())
	l.setState(StateRedundant)
}

// Activate marks the worker's version active, deletes every other version
// and takes control of open windows. The version is marked before the
// deletes so a concurrent revalidation sees the switch (see Proxy.storeCurrent).
func (l *Lifecycle) Activate(ctx context.Context) error {
	l.setState(StateActivating)
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if err := l.store.SetActive(ctx, l.version); err != nil {
		l.failActivate()
		return fmt.Errorf("activate cache version %s: %w", l.version, err)
	}
	versions, err := l.store.Versions(ctx)
	if err != nil {
		l.failActivate()
		return fmt.Errorf("list cache versions: %w", err)
	}
	for _, v := range versions {
		if v == l.version {
			continue
		}
		if err := l.store.DeleteVersion(ctx, v); err != nil {
			l.failActivate()
			return fmt.Errorf("delete cache version %s: %w", v, err)
		}
		slog.Info("cache version deleted", "version", v)
	}
	l.clients.Claim()
	activateTotal.WithLabelValues("success").Inc()
	l.setState(StateActive)
	slog.Info("cache activated", "version", l.version)
	return nil
}

func (l *Lifecycle) failActivate() {
	activateTotal.WithLabelValues("failed").Inc()
	l.setState(StateRedundant)
}

// Start runs install then activate. A failed install keeps whatever version
// was active before.
func (l *Lifecycle) Start(ctx context.Context) error {
	if err := l.Install(ctx); err != nil {
		return err
	}
	return l.Activate(ctx)
}

func (l *Lifecycle) resolveManifest(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	add := func(u string) {
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	for _, ref := range l.manifest {
		u, err := l.origin.Parse(ref)
		if err != nil {
			return nil, fmt.Errorf("manifest entry %q: %w", ref, err)
		}
		add(u.String())
	}
	if l.discover {
		found, err := DiscoverAssets(ctx, l.client, l.origin)
		if err != nil {
			slog.Warn("asset discovery failed", "err", err)
		}
		for _, u := range found {
			add(u)
		}
	}
	return out, nil
}

func (l *Lifecycle) fetchAsset(ctx context.Context, u string) (domain.CacheEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.CacheEntry{}, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return domain.CacheEntry{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.CacheEntry{}, fmt.Errorf("unexpected status %s", resp.Status)
	}
	body, err := readAssetBody(resp.Body)
	if err != nil {
		return domain.CacheEntry{}, err
	}
	return domain.CacheEntry{
		URL:    u,
		Status: resp.StatusCode,
		Header: storableHeader(resp.Header),
		Body:   body,
	}, nil
}

var storedHeaders = []string{"Content-Type", "Cache-Control", "ETag", "Last-Modified"}

func storableHeader(h http.Header) http.Header {
	out := make(http.Header)
	for _, k := range storedHeaders {
		if v := h.Values(k); len(v) > 0 {
			out[k] = append([]string(nil), v...)
		}
	}
	return out
}
