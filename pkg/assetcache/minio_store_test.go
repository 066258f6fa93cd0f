package assetcache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"biblepace/pkg/domain"
)

const testBucket = "assets"

// fakeS3 answers the object calls MinioStore makes with path style
// addressing. Listing is not served.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	denyPut func(key string) bool
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/"+testBucket+"/")
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		if f.denyPut != nil && f.denyPut(key) {
			writeS3Error(w, http.StatusForbidden, "AccessDenied")
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeS3Error(w, http.StatusBadRequest, "IncompleteBody")
			return
		}
		f.objects[key] = body
		w.Header().Set("ETag", `"`+strconv.Itoa(len(body))+`"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet, http.MethodHead:
		body, ok := f.objects[key]
		if !ok {
			writeS3Error(w, http.StatusNotFound, "NoSuchKey")
			return
		}
		w.Header().Set("ETag", `"`+strconv.Itoa(len(body))+`"`)
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(body)
		}
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeS3Error(w, http.StatusNotImplemented, "NotImplemented")
	}
}

func writeS3Error(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>%s</Code><Message>%s</Message><BucketName>%s</BucketName></Error>`, code, code, testBucket)
}

func newTestMinioStore(t *testing.T) (*MinioStore, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: make(map[string][]byte)}
	srv := httptest.NewTLSServer(fake)
	t.Cleanup(srv.Close)
	client, err := minio.New(strings.TrimPrefix(srv.URL, "https://"), &minio.Options{
		Creds:        credentials.NewStaticV4("test", "testsecret", ""),
		Secure:       true,
		Transport:    srv.Client().Transport,
		Region:       "us-east-1",
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		t.Fatalf("minio client: %v", err)
	}
	return &MinioStore{client: client, bucket: testBucket}, fake
}

func TestMinioStorePutMatchAndActive(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestMinioStore(t)

	if _, ok, err := store.Match(ctx, "v1", "/index.html"); err != nil || ok {
		t.Fatalf("empty store match = %v, %v", ok, err)
	}
	header := http.Header{"Content-Type": []string{"text/html"}}
	if err := store.Put(ctx, "v1", domain.CacheEntry{URL: "/index.html", Status: http.StatusOK, Header: header, Body: []byte("index")}); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := store.Match(ctx, "v1", "/index.html")
	if err != nil || !ok {
		t.Fatalf("match after put: %v, %v", ok, err)
	}
	if string(got.Body) != "index" || got.Header.Get("Content-Type") != "text/html" || got.StoredAt.IsZero() {
		t.Fatalf("unexpected entry: %+v", got)
	}

	if _, ok, err := store.Active(ctx); err != nil || ok {
		t.Fatalf("active before set = %v, %v", ok, err)
	}
	if err := store.SetActive(ctx, "v1"); err != nil {
		t.Fatalf("set active: %v", err)
	}
	if active, ok, err := store.Active(ctx); err != nil || !ok || active != "v1" {
		t.Fatalf("active = %q %v %v", active, ok, err)
	}
	if err := store.Put(ctx, "", domain.CacheEntry{URL: "/"}); err == nil {
		t.Fatalf("expected error for empty version")
	}
}

func TestMinioStoreFailedBatchRestoresPreviousEntries(t *testing.T) {
	ctx := context.Background()
	store, fake := newTestMinioStore(t)

	if err := store.PutAll(ctx, "v1", []domain.CacheEntry{
		{URL: "/", Status: http.StatusOK, Body: []byte("old root")},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	denied := objectKey("v1", "/app.js")
	fake.mu.Lock()
	fake.denyPut = func(key string) bool { return key == denied }
	fake.mu.Unlock()

	err := store.PutAll(ctx, "v1", []domain.CacheEntry{
		{URL: "/", Status: http.StatusOK, Body: []byte("new root")},
		{URL: "/index.html", Status: http.StatusOK, Body: []byte("new index")},
		{URL: "/app.js", Status: http.StatusOK, Body: []byte("app")},
	})
	if err == nil {
		t.Fatalf("expected batch error")
	}

	got, ok, err := store.Match(ctx, "v1", "/")
	if err != nil || !ok {
		t.Fatalf("overwritten entry lost: ok=%v err=%v", ok, err)
	}
	if string(got.Body) != "old root" {
		t.Fatalf("root body = %q, want previous value", got.Body)
	}
	if _, ok, _ := store.Match(ctx, "v1", "/index.html"); ok {
		t.Fatalf("new entry from failed batch must be removed")
	}
}
