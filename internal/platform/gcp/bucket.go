package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/yungbote/ielts-backend/internal/platform/logger"
)

type BucketCategory string

const (
	BucketSpeakingAudio BucketCategory = "speaking_audio"
	BucketWritingScan   BucketCategory = "writing_scan"
	BucketAvatar        BucketCategory = "avatar"
)

var bucketCategories = []BucketCategory{BucketSpeakingAudio, BucketWritingScan, BucketAvatar}

var ErrObjectNotFound = errors.New("object not found")

type BucketService interface {
	Upload(ctx context.Context, category BucketCategory, key string, contentType string, r io.Reader) error
	Download(ctx context.Context, category BucketCategory, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, category BucketCategory, key string) error
	ListKeys(ctx context.Context, category BucketCategory, prefix string) ([]string, error)
	// GCSURI is the gs:// form the speech API reads directly.
	GCSURI(category BucketCategory, key string) string
	PublicURL(category BucketCategory, key string) string
	SignedURL(category BucketCategory, key string, ttl time.Duration) (string, error)
	Close() error
}

type bucketConfig struct {
	name      string
	prefix    string
	cdnDomain string
}

type bucketService struct {
	log     *logger.Logger
	client  *storage.Client
	mode    ObjectStorageConfig
	buckets map[BucketCategory]bucketConfig
}

// NewBucketService reads GCS_BUCKET_NAME as the shared bucket. Each
// category may override it with <CATEGORY>_GCS_BUCKET, in which case the
// category prefix is dropped.
func NewBucketService(log *logger.Logger) (BucketService, error) {
	shared := strings.TrimSpace(os.Getenv("GCS_BUCKET_NAME"))
	buckets := make(map[BucketCategory]bucketConfig, len(bucketCategories))
	for _, c := range bucketCategories {
		envKey := strings.ToUpper(string(c)) + "_GCS_BUCKET"
		cfg := bucketConfig{cdnDomain: strings.TrimSpace(os.Getenv(strings.ToUpper(string(c)) + "_CDN_DOMAIN"))}
		if own := strings.TrimSpace(os.Getenv(envKey)); own != "" {
			cfg.name = own
		} else if shared != "" {
			cfg.name = shared
			cfg.prefix = string(c)
		} else {
			return nil, fmt.Errorf("missing env var GCS_BUCKET_NAME or %s", envKey)
		}
		buckets[c] = cfg
	}

	mode, err := ResolveObjectStorageConfigFromEnv()
	if err != nil {
		return nil, err
	}
	client, err := newStorageClient(context.Background(), mode)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	serviceLog := log.With("client", "BucketService")
	serviceLog.Info("Object storage initialized", "mode", mode.Mode, "fallback", mode.Fallback)
	return &bucketService{
		log:     serviceLog,
		client:  client,
		mode:    mode,
		buckets: buckets,
	}, nil
}

func (b *bucketService) resolve(category BucketCategory, key string) (bucketConfig, string, error) {
	cfg, ok := b.buckets[category]
	if !ok {
		return bucketConfig{}, "", fmt.Errorf("unknown bucket category: %s", category)
	}
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return bucketConfig{}, "", fmt.Errorf("empty object key")
	}
	if cfg.prefix != "" {
		key = path.Join(cfg.prefix, key)
	}
	return cfg, key, nil
}

func (b *bucketService) Upload(ctx context.Context, category BucketCategory, key string, contentType string, r io.Reader) error {
	cfg, obj, err := b.resolve(category, key)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := b.client.Bucket(cfg.name).Object(obj).NewWriter(ctx)
	w.ContentType = contentType
	if w.ContentType == "" {
		w.ContentType = ContentTypeForKey(key)
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("write gcs object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close gcs writer: %w", err)
	}
	return nil
}

type readCloserWithCancel struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *readCloserWithCancel) Close() error {
	err := r.ReadCloser.Close()
	r.cancel()
	return err
}

// Download returns a reader whose timeout is released on Close.
func (b *bucketService) Download(ctx context.Context, category BucketCategory, key string) (io.ReadCloser, error) {
	cfg, obj, err := b.resolve(category, key)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	r, err := b.client.Bucket(cfg.name).Object(obj).NewReader(ctx)
	if err != nil {
		cancel()
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("open gcs reader: %w", err)
	}
	return &readCloserWithCancel{ReadCloser: r, cancel: cancel}, nil
}

func (b *bucketService) Delete(ctx context.Context, category BucketCategory, key string) error {
	cfg, obj, err := b.resolve(category, key)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	err = b.client.Bucket(cfg.name).Object(obj).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete gcs object %q: %w", obj, err)
	}
	return nil
}

func (b *bucketService) ListKeys(ctx context.Context, category BucketCategory, prefix string) ([]string, error) {
	cfg, ok := b.buckets[category]
	if !ok {
		return nil, fmt.Errorf("unknown bucket category: %s", category)
	}
	full := prefix
	if cfg.prefix != "" {
		full = cfg.prefix + "/" + strings.TrimLeft(prefix, "/")
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	it := b.client.Bucket(cfg.name).Objects(ctx, &storage.Query{Prefix: full})
	var out []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		name := attrs.Name
		if cfg.prefix != "" {
			name = strings.TrimPrefix(name, cfg.prefix+"/")
		}
		out = append(out, name)
	}
	return out, nil
}

func (b *bucketService) GCSURI(category BucketCategory, key string) string {
	cfg, obj, err := b.resolve(category, key)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("gs://%s/%s", cfg.name, obj)
}

func (b *bucketService) PublicURL(category BucketCategory, key string) string {
	cfg, obj, err := b.resolve(category, key)
	if err != nil {
		return ""
	}
	if cfg.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", cfg.cdnDomain, obj)
	}
	if b.mode.IsEmulator() {
		return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media",
			strings.TrimRight(b.mode.EmulatorHost, "/"), cfg.name, url.PathEscape(obj))
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", cfg.name, obj)
}

func (b *bucketService) SignedURL(category BucketCategory, key string, ttl time.Duration) (string, error) {
	cfg, obj, err := b.resolve(category, key)
	if err != nil {
		return "", err
	}
	if b.mode.IsEmulator() {
		return b.PublicURL(category, key), nil
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return b.client.Bucket(cfg.name).SignedURL(obj, &storage.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(ttl),
		Scheme:  storage.SigningSchemeV4,
	})
}

func (b *bucketService) Close() error {
	return b.client.Close()
}

func ContentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	if i := strings.Index(s, "?"); i >= 0 {
		s = s[:i]
	}
	switch path.Ext(s) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".pdf":
		return "application/pdf"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".flac":
		return "audio/flac"
	case ".ogg", ".opus":
		return "audio/ogg"
	case ".webm":
		return "audio/webm"
	case ".m4a":
		return "audio/mp4"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
