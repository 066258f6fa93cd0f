package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"biblepace/internal/util"
	"biblepace/pkg/assetcache"
	"biblepace/pkg/domain"
)

const (
	SourceCache   = "cache"
	SourceNetwork = "network"
)

// Response is what an intercepted request resolves to.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
	Source string
}

type networkResult struct {
	entry domain.CacheEntry
	err   error
}

// Proxy answers asset requests stale-while-revalidate: a cached copy is
// returned at once while the network leg refreshes it in the background.
type Proxy struct {
	store     assetcache.Store
	lifecycle *Lifecycle
	client    *http.Client
	wg        sync.WaitGroup
}

func NewProxy(store assetcache.Store, lifecycle *Lifecycle, client *http.Client) *Proxy {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Proxy{store: store, lifecycle: lifecycle, client: client}
}

// Fetch resolves req, whose URL must be absolute. Non GET requests and
// non http(s) URLs go straight to the network without touching the cache.
// With no cached copy and a failed network leg it returns *FetchError.
func (p *Proxy) Fetch(ctx context.Context, req *http.Request) (*Response, error) {
	logger := util.LoggerFromContext(ctx)
	if req.Method != http.MethodGet || (req.URL.Scheme != "http" && req.URL.Scheme != "https") {
		fetchTotal.WithLabelValues("passthrough").Inc()
		return p.passthrough(ctx, req)
	}
	key := req.URL.String()
	cache := assetcache.Open(p.store, p.lifecycle.CacheVersion(ctx))

	// The network leg outlives the caller so the cache still heals when the
	// caller has already been answered from it.
	netCtx := context.WithoutCancel(ctx)
	results := make(chan networkResult, 1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		results <- p.revalidate(netCtx, req, cache, logger)
	}()

	cached, ok, err := cache.Match(ctx, key)
	if err != nil {
		logger.Warn("cache lookup failed", "url", key, "version", cache.Version(), "err", err)
	}
	if ok {
		fetchTotal.WithLabelValues("hit").Inc()
		return &Response{Status: cached.Status, Header: cached.Header.Clone(), Body: cached.Body, Source: SourceCache}, nil
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-results:
		if res.err != nil {
			fetchTotal.WithLabelValues("error").Inc()
			ferr := &FetchError{URL: key, Err: res.err}
			logger.Warn("fetch failed", "url", key, "err", res.err)
			return nil, ferr
		}
		fetchTotal.WithLabelValues("miss").Inc()
		return &Response{Status: res.entry.Status, Header: res.entry.Header, Body: res.entry.Body, Source: SourceNetwork}, nil
	}
}

// Wait blocks until every background network leg has finished.
func (p *Proxy) Wait() {
	p.wg.Wait()
}

func (p *Proxy) revalidate(ctx context.Context, req *http.Request, cache *assetcache.Cache, logger *slog.Logger) networkResult {
	entry, err := p.fetchNetwork(ctx, req)
	if err != nil {
		revalidateTotal.WithLabelValues("failed").Inc()
		return networkResult{err: err}
	}
	if entry.Status != http.StatusOK {
		revalidateTotal.WithLabelValues("skipped").Inc()
		return networkResult{entry: entry}
	}
	stored, err := p.storeCurrent(ctx, cache, entry)
	switch {
	case err != nil:
		revalidateTotal.WithLabelValues("failed").Inc()
		logger.Warn("cache write failed", "url", entry.URL, "version", cache.Version(), "err", err)
	case !stored:
		revalidateTotal.WithLabelValues("superseded").Inc()
		logger.Debug("cache version replaced during revalidation", "url", entry.URL, "version", cache.Version())
	default:
		revalidateTotal.WithLabelValues("stored").Inc()
	}
	return networkResult{entry: entry}
}

// storeCurrent writes entry unless another version became current while the
// network leg ran. Activate marks the new version before deleting old ones,
// so a write that raced the deletes is caught by the second check and its
// version dropped again.
func (p *Proxy) storeCurrent(ctx context.Context, cache *assetcache.Cache, entry domain.CacheEntry) (bool, error) {
	if p.superseded(ctx, cache.Version()) {
		return false, nil
	}
	if err := cache.Put(ctx, entry); err != nil {
		return false, err
	}
	if p.superseded(ctx, cache.Version()) {
		if err := p.store.DeleteVersion(ctx, cache.Version()); err != nil {
			return false, fmt.Errorf("drop superseded version %s: %w", cache.Version(), err)
		}
		return false, nil
	}
	return true, nil
}

// superseded reports whether the store names another version active. A
// failed lookup counts as not superseded.
func (p *Proxy) superseded(ctx context.Context, version string) bool {
	active, ok, err := p.store.Active(ctx)
	return err == nil && ok && active != version
}

func (p *Proxy) fetchNetwork(ctx context.Context, req *http.Request) (domain.CacheEntry, error) {
	out, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL.String(), nil)
	if err != nil {
		return domain.CacheEntry{}, err
	}
	copyRequestHeaders(out.Header, req.Header)
	resp, err := p.client.Do(out)
	if err != nil {
		return domain.CacheEntry{}, err
	}
	defer resp.Body.Close()
	body, err := readAssetBody(resp.Body)
	if err != nil {
		return domain.CacheEntry{}, err
	}
	return domain.CacheEntry{
		URL:    req.URL.String(),
		Status: resp.StatusCode,
		Header: storableHeader(resp.Header),
		Body:   body,
	}, nil
}

func (p *Proxy) passthrough(ctx context.Context, req *http.Request) (*Response, error) {
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return nil, fmt.Errorf("%w: %s", ErrNotCacheable, req.URL.Scheme)
	}
	out, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), req.Body)
	if err != nil {
		return nil, err
	}
	copyRequestHeaders(out.Header, req.Header)
	if ct := req.Header.Get("Content-Type"); ct != "" {
		out.Header.Set("Content-Type", ct)
	}
	resp, err := p.client.Do(out)
	if err != nil {
		return nil, &FetchError{URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()
	body, err := readAssetBody(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: req.URL.String(), Err: err}
	}
	return &Response{Status: resp.StatusCode, Header: storableHeader(resp.Header), Body: body, Source: SourceNetwork}, nil
}

var forwardedHeaders = []string{"Accept", "Accept-Language", "User-Agent"}

func copyRequestHeaders(dst, src http.Header) {
	for _, k := range forwardedHeaders {
		if v := src.Get(k); v != "" {
			dst.Set(k, v)
		}
	}
}
