package assetcache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"biblepace/pkg/domain"
)

const minioActiveObject = "_active"

// MinioConfig holds connection settings for S3 compatible storage.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioStore keeps each entry as one JSON object under "<version>/".
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to MinIO and ensures the bucket exists.
func NewMinioStore(cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

func (m *MinioStore) Match(ctx context.Context, version, url string) (domain.CacheEntry, bool, error) {
	raw, ok, err := m.getRaw(ctx, objectKey(version, url))
	if err != nil || !ok {
		return domain.CacheEntry{}, false, err
	}
	var stored storedEntry
	if err := json.Unmarshal(raw, &stored); err != nil {
		return domain.CacheEntry{}, false, fmt.Errorf("decode %s: %w", url, err)
	}
	return stored.entry(), true, nil
}

func (m *MinioStore) Put(ctx context.Context, version string, entry domain.CacheEntry) error {
	if version == "" {
		return ErrEmptyVersion
	}
	return m.put(ctx, version, entry)
}

type priorObject struct {
	key     string
	raw     []byte
	existed bool
}

// PutAll uploads every entry. If one upload fails, each key this call
// already wrote gets its previous object back, or is removed when it had
// none. A process crash mid-batch can still leave a partial write.
func (m *MinioStore) PutAll(ctx context.Context, version string, entries []domain.CacheEntry) error {
	if version == "" {
		return ErrEmptyVersion
	}
	written := make([]priorObject, 0, len(entries))
	for _, e := range entries {
		key := objectKey(version, e.URL)
		raw, existed, err := m.getRaw(ctx, key)
		if err == nil {
			err = m.put(ctx, version, e)
		}
		if err != nil {
			return errors.Join(err, m.restore(ctx, written))
		}
		written = append(written, priorObject{key: key, raw: raw, existed: existed})
	}
	return nil
}

// restore undoes writes newest first so a URL repeated in one batch ends on
// its original object.
func (m *MinioStore) restore(ctx context.Context, written []priorObject) error {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	for i := len(written) - 1; i >= 0; i-- {
		p := written[i]
		var err error
		if p.existed {
			err = m.putRaw(ctx, p.key, p.raw, "")
		} else {
			err = m.client.RemoveObject(ctx, m.bucket, p.key, minio.RemoveObjectOptions{})
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", p.key, err))
		}
	}
	return errors.Join(errs...)
}

func (m *MinioStore) put(ctx context.Context, version string, entry domain.CacheEntry) error {
	payload, err := json.Marshal(toStored(stamp(entry)))
	if err != nil {
		return fmt.Errorf("encode %s: %w", entry.URL, err)
	}
	return m.putRaw(ctx, objectKey(version, entry.URL), payload, entry.URL)
}

func (m *MinioStore) putRaw(ctx context.Context, key string, payload []byte, sourceURL string) error {
	opts := minio.PutObjectOptions{ContentType: "application/json"}
	if sourceURL != "" {
		opts.UserMetadata = map[string]string{"source-url": sourceURL}
	}
	if _, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(payload), int64(len(payload)), opts); err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (m *MinioStore) getRaw(ctx context.Context, key string) ([]byte, bool, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, false, fmt.Errorf("get object: %w", err)
	}
	defer obj.Close()
	raw, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read object: %w", err)
	}
	return raw, true, nil
}

func (m *MinioStore) Versions(ctx context.Context) ([]string, error) {
	set := make(map[string]struct{})
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Recursive: false}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list versions: %w", obj.Err)
		}
		if !strings.HasSuffix(obj.Key, "/") {
			continue
		}
		set[strings.TrimSuffix(obj.Key, "/")] = struct{}{}
	}
	return sortedVersions(set), nil
}

func (m *MinioStore) DeleteVersion(ctx context.Context, version string) error {
	if version == "" {
		return ErrEmptyVersion
	}
	objects := m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: version + "/", Recursive: true})
	for rerr := range m.client.RemoveObjects(ctx, m.bucket, objects, minio.RemoveObjectsOptions{}) {
		if rerr.Err != nil {
			return fmt.Errorf("delete object %s: %w", rerr.ObjectName, rerr.Err)
		}
	}
	if active, ok, err := m.Active(ctx); err == nil && ok && active == version {
		_ = m.client.RemoveObject(ctx, m.bucket, minioActiveObject, minio.RemoveObjectOptions{})
	}
	return nil
}

func (m *MinioStore) Active(ctx context.Context) (string, bool, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, minioActiveObject, minio.GetObjectOptions{})
	if err != nil {
		return "", false, fmt.Errorf("get active version: %w", err)
	}
	defer obj.Close()
	raw, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read active version: %w", err)
	}
	v := strings.TrimSpace(string(raw))
	return v, v != "", nil
}

func (m *MinioStore) SetActive(ctx context.Context, version string) error {
	if version == "" {
		return ErrEmptyVersion
	}
	_, err := m.client.PutObject(ctx, m.bucket, minioActiveObject, strings.NewReader(version), int64(len(version)),
		minio.PutObjectOptions{ContentType: "text/plain"})
	if err != nil {
		return fmt.Errorf("set active version: %w", err)
	}
	return nil
}

func objectKey(version, url string) string {
	sum := sha256.Sum256([]byte(url))
	return path.Join(version, hex.EncodeToString(sum[:]))
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
