package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/tracebind/passport-backend/internal/platform/logger"
)

// Category routes an object to its bucket: product imagery, supplier
// certificate documents, or rendered QR label sheets.
type Category string

const (
	CategoryMedia    Category = "media"
	CategoryDocument Category = "document"
	CategoryLabel    Category = "label"
)

type bucketConfig struct {
	name      string
	cdnDomain string
}

type ObjectAttrs struct {
	Size        int64
	ContentType string
	Updated     time.Time
	ETag        string
}

type FileVault interface {
	UploadFile(ctx context.Context, category Category, key, contentType string, file io.Reader) error
	DeleteFile(ctx context.Context, category Category, key string) error
	DeletePrefix(ctx context.Context, category Category, prefix string) error
	ListKeys(ctx context.Context, category Category, prefix string) ([]string, error)
	DownloadFile(ctx context.Context, category Category, key string) (io.ReadCloser, error)
	GetObjectAttrs(ctx context.Context, category Category, key string) (*ObjectAttrs, error)
	GetPublicURL(category Category, key string) string
}

type fileVault struct {
	log           *logger.Logger
	storageClient *storage.Client
	emulatorHost  string
	publicBaseURL string
	mediaBucket   bucketConfig
	docBucket     bucketConfig
	labelBucket   bucketConfig
}

// NewFileVault wires object storage from env. With STORAGE_EMULATOR_HOST set
// it talks to a local fake-gcs without credentials, otherwise real GCS using
// ambient or GOOGLE_APPLICATION_CREDENTIALS auth.
func NewFileVault(log *logger.Logger) (FileVault, error) {
	serviceLog := log.With("service", "FileVault")

	mediaBucket := strings.TrimSpace(os.Getenv("MEDIA_GCS_BUCKET_NAME"))
	docBucket := strings.TrimSpace(os.Getenv("DOCUMENT_GCS_BUCKET_NAME"))
	labelBucket := strings.TrimSpace(os.Getenv("LABEL_GCS_BUCKET_NAME"))
	if mediaBucket == "" {
		return nil, fmt.Errorf("missing env var MEDIA_GCS_BUCKET_NAME")
	}
	if docBucket == "" {
		return nil, fmt.Errorf("missing env var DOCUMENT_GCS_BUCKET_NAME")
	}
	if labelBucket == "" {
		labelBucket = mediaBucket
	}

	emulatorHost := strings.TrimRight(strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST")), "/")
	publicBaseURL := strings.TrimRight(strings.TrimSpace(os.Getenv("OBJECT_STORAGE_PUBLIC_BASE_URL")), "/")
	if publicBaseURL == "" && emulatorHost != "" {
		publicBaseURL = emulatorHost
	}

	ctx := context.Background()
	var stClient *storage.Client
	var err error
	if emulatorHost != "" {
		stClient, err = storage.NewClient(ctx, option.WithoutAuthentication())
	} else {
		opts := clientOptionsFromEnv()
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
		stClient, err = storage.NewClient(ctx, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	serviceLog.Info(
		"Object storage initialized",
		"emulator_host", emulatorHost,
		"public_base_url", publicBaseURL,
		"media_bucket", mediaBucket,
		"document_bucket", docBucket,
		"label_bucket", labelBucket,
	)

	return &fileVault{
		log:           serviceLog,
		storageClient: stClient,
		emulatorHost:  emulatorHost,
		publicBaseURL: publicBaseURL,
		mediaBucket:   bucketConfig{name: mediaBucket, cdnDomain: strings.TrimSpace(os.Getenv("MEDIA_CDN_DOMAIN"))},
		docBucket:     bucketConfig{name: docBucket, cdnDomain: strings.TrimSpace(os.Getenv("DOCUMENT_CDN_DOMAIN"))},
		labelBucket:   bucketConfig{name: labelBucket, cdnDomain: strings.TrimSpace(os.Getenv("LABEL_CDN_DOMAIN"))},
	}, nil
}

func clientOptionsFromEnv() []option.ClientOption {
	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

func (v *fileVault) getBucketConfig(category Category) (bucketConfig, error) {
	switch category {
	case CategoryMedia:
		return v.mediaBucket, nil
	case CategoryDocument:
		return v.docBucket, nil
	case CategoryLabel:
		return v.labelBucket, nil
	default:
		return bucketConfig{}, fmt.Errorf("unknown vault category: %s", category)
	}
}

func (v *fileVault) UploadFile(ctx context.Context, category Category, key, contentType string, file io.Reader) error {
	cfg, err := v.getBucketConfig(category)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := v.storageClient.Bucket(cfg.name).Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, file); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to object storage: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close storage writer: %w", err)
	}
	return nil
}

func (v *fileVault) DeleteFile(ctx context.Context, category Category, key string) error {
	cfg, err := v.getBucketConfig(category)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	o := v.storageClient.Bucket(cfg.name).Object(key)
	if err := o.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete object %q in bucket %q: %w", key, cfg.name, err)
	}
	return nil
}

func (v *fileVault) ListKeys(ctx context.Context, category Category, prefix string) ([]string, error) {
	cfg, err := v.getBucketConfig(category)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	it := v.storageClient.Bucket(cfg.name).Objects(ctx, &storage.Query{Prefix: prefix})
	out := []string{}
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, attrs.Name)
	}
	return out, nil
}

func (v *fileVault) DeletePrefix(ctx context.Context, category Category, prefix string) error {
	keys, err := v.ListKeys(ctx, category, prefix)
	if err != nil {
		return err
	}
	for _, k := range keys {
		_ = v.DeleteFile(ctx, category, k)
	}
	return nil
}

func (v *fileVault) GetPublicURL(category Category, key string) string {
	cfg, err := v.getBucketConfig(category)
	if err != nil {
		return key
	}
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if cfg.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", cfg.cdnDomain, key)
	}
	if v.emulatorHost != "" {
		return v.emulatorObjectMediaURL(cfg.name, key)
	}
	if v.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", v.publicBaseURL, cfg.name, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", cfg.name, key)
}

func (v *fileVault) emulatorObjectMediaURL(bucket, key string) string {
	base := v.publicBaseURL
	if base == "" {
		base = v.emulatorHost
	}
	return fmt.Sprintf(
		"%s/storage/v1/b/%s/o/%s?alt=media",
		base,
		url.PathEscape(bucket),
		url.PathEscape(key),
	)
}

func (v *fileVault) emulatorObjectMetaURL(bucket, key string) string {
	return fmt.Sprintf(
		"%s/storage/v1/b/%s/o/%s",
		v.emulatorHost,
		url.PathEscape(bucket),
		url.PathEscape(key),
	)
}

// Readers keep their context alive until Close; cancelling before the caller
// reads would hand back 0 bytes.
type readCloserWithCancel struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *readCloserWithCancel) Close() error {
	err := r.ReadCloser.Close()
	if r.cancel != nil {
		r.cancel()
	}
	return err
}

func (v *fileVault) DownloadFile(ctx context.Context, category Category, key string) (io.ReadCloser, error) {
	cfg, err := v.getBucketConfig(category)
	if err != nil {
		return nil, err
	}
	if v.emulatorHost != "" {
		ctx2, cancel := context.WithTimeout(ctx, 2*time.Minute)
		req, err := http.NewRequestWithContext(ctx2, http.MethodGet, v.emulatorObjectMediaURL(cfg.name, key), nil)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed creating emulator download request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed emulator download request: %w", err)
		}
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			_ = resp.Body.Close()
			cancel()
			return nil, fmt.Errorf("emulator download failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return &readCloserWithCancel{ReadCloser: resp.Body, cancel: cancel}, nil
	}

	ctx2, cancel := context.WithTimeout(ctx, 2*time.Minute)
	r, err := v.storageClient.Bucket(cfg.name).Object(key).NewReader(ctx2)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open storage reader: %w", err)
	}
	return &readCloserWithCancel{ReadCloser: r, cancel: cancel}, nil
}

func (v *fileVault) GetObjectAttrs(ctx context.Context, category Category, key string) (*ObjectAttrs, error) {
	cfg, err := v.getBucketConfig(category)
	if err != nil {
		return nil, err
	}
	if v.emulatorHost != "" {
		ctx2, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx2, http.MethodGet, v.emulatorObjectMetaURL(cfg.name, key), nil)
		if err != nil {
			return nil, fmt.Errorf("failed creating emulator attrs request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed emulator attrs request: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return nil, fmt.Errorf("emulator attrs failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
		}

		var payload struct {
			Size        string `json:"size"`
			ContentType string `json:"contentType"`
			Updated     string `json:"updated"`
			ETag        string `json:"etag"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return nil, fmt.Errorf("decode emulator attrs: %w", err)
		}
		size, _ := strconv.ParseInt(strings.TrimSpace(payload.Size), 10, 64)
		updated := time.Time{}
		if ts := strings.TrimSpace(payload.Updated); ts != "" {
			if parsed, parseErr := time.Parse(time.RFC3339, ts); parseErr == nil {
				updated = parsed
			}
		}
		return &ObjectAttrs{
			Size:        size,
			ContentType: payload.ContentType,
			Updated:     updated,
			ETag:        payload.ETag,
		}, nil
	}

	ctx2, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	attrs, err := v.storageClient.Bucket(cfg.name).Object(key).Attrs(ctx2)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch object attrs: %w", err)
	}
	return &ObjectAttrs{
		Size:        attrs.Size,
		ContentType: attrs.ContentType,
		Updated:     attrs.Updated,
		ETag:        attrs.Etag,
	}, nil
}
