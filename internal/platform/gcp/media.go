package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/sony/gobreaker"
	"google.golang.org/api/option"

	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
)

// ErrStorageDisabled is returned by Put when attachments are not stored.
var ErrStorageDisabled = errors.New("object storage disabled")

// MediaStore holds WhatsApp attachments in a single bucket.
type MediaStore interface {
	Enabled() bool
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
	Close() error
}

type mediaStore struct {
	log           *logger.Logger
	client        *storage.Client
	cfg           ObjectStorageConfig
	publicBaseURL string
	breaker       *gobreaker.CircuitBreaker
}

func NewMediaStore(log *logger.Logger) (MediaStore, error) {
	cfg, err := ResolveObjectStorageConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("resolve object storage config: %w", err)
	}
	return NewMediaStoreWithConfig(log, cfg)
}

func NewMediaStoreWithConfig(log *logger.Logger, cfg ObjectStorageConfig) (MediaStore, error) {
	if err := ValidateObjectStorageConfig(cfg); err != nil {
		return nil, fmt.Errorf("validate object storage config: %w", err)
	}
	storeLog := log.With("service", "MediaStore")
	if cfg.IsDisabled() {
		storeLog.Warn("Object storage disabled; inbound attachments will be dropped")
		return disabledStore{}, nil
	}
	publicBaseURL, publicBaseSource, err := resolveObjectStoragePublicBaseURL(cfg)
	if err != nil {
		return nil, err
	}
	client, err := newStorageClientForMode(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	storeLog.Info(
		"Object storage initialized",
		"mode", cfg.Mode,
		"mode_source", cfg.ModeSource(),
		"bucket", cfg.Bucket,
		"public_base_source", publicBaseSource,
	)
	return &mediaStore{
		log:           storeLog,
		client:        client,
		cfg:           cfg,
		publicBaseURL: publicBaseURL,
		breaker:       newUploadBreaker(storeLog),
	}, nil
}

func newUploadBreaker(log *logger.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gcs-media",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

func newStorageClientForMode(ctx context.Context, cfg ObjectStorageConfig) (*storage.Client, error) {
	switch cfg.Mode {
	case ObjectStorageModeGCS:
		opts := ClientOptionsFromEnv()
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
		return storage.NewClient(ctx, opts...)
	case ObjectStorageModeGCSEmulator:
		endpoint := strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/")
		_ = os.Setenv("STORAGE_EMULATOR_HOST", endpoint)
		return storage.NewClient(ctx, option.WithoutAuthentication())
	default:
		return nil, &ObjectStorageConfigError{
			Code: ObjectStorageConfigErrorInvalidMode,
			Mode: string(cfg.Mode),
		}
	}
}

func resolveObjectStoragePublicBaseURL(cfg ObjectStorageConfig) (baseURL string, source string, err error) {
	raw := strings.TrimSpace(os.Getenv("OBJECT_STORAGE_PUBLIC_BASE_URL"))
	if raw != "" {
		parsed, parseErr := url.Parse(raw)
		if parseErr != nil || strings.TrimSpace(parsed.Scheme) == "" || strings.TrimSpace(parsed.Host) == "" {
			return "", "", fmt.Errorf(
				"invalid OBJECT_STORAGE_PUBLIC_BASE_URL=%q; expected absolute URL like http://localhost:4443",
				raw,
			)
		}
		return strings.TrimRight(raw, "/"), "object_storage_public_base_url", nil
	}
	if cfg.IsEmulatorMode() {
		return strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/"), "storage_emulator_host", nil
	}
	return "", "gcs_default", nil
}

func (s *mediaStore) Enabled() bool { return true }

// Put uploads body under key and returns its public URL. Consecutive
// failures open the breaker and later calls fail fast with gobreaker.ErrOpenState.
func (s *mediaStore) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("media key is required")
	}
	_, err := s.breaker.Execute(func() (interface{}, error) {
		uctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
		w := s.client.Bucket(s.cfg.Bucket).Object(key).NewWriter(uctx)
		w.ContentType = contentType
		if w.ContentType == "" {
			w.ContentType = contentTypeForKey(key)
		}
		if _, err := io.Copy(w, body); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("failed to write data to GCS: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("failed to close GCS writer: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		return "", err
	}
	return s.PublicURL(key), nil
}

func (s *mediaStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := s.client.Bucket(s.cfg.Bucket).Object(key).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete GCS object %q in bucket %q: %w", key, s.cfg.Bucket, err)
	}
	return nil
}

func (s *mediaStore) PublicURL(key string) string {
	return publicURL(s.cfg, s.publicBaseURL, key)
}

func (s *mediaStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func publicURL(cfg ObjectStorageConfig, publicBaseURL, key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if cfg.IsEmulatorMode() {
		base := strings.TrimRight(strings.TrimSpace(publicBaseURL), "/")
		if base == "" {
			base = strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/")
		}
		if base != "" {
			return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", base, url.PathEscape(cfg.Bucket), url.PathEscape(key))
		}
	}
	if publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", publicBaseURL, cfg.Bucket, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", cfg.Bucket, key)
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	switch {
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(s, ".webp"):
		return "image/webp"
	case strings.HasSuffix(s, ".gif"):
		return "image/gif"
	case strings.HasSuffix(s, ".mp4"):
		return "video/mp4"
	case strings.HasSuffix(s, ".ogg"), strings.HasSuffix(s, ".oga"):
		return "audio/ogg"
	case strings.HasSuffix(s, ".mp3"):
		return "audio/mpeg"
	case strings.HasSuffix(s, ".pdf"):
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

type disabledStore struct{}

func (disabledStore) Enabled() bool { return false }
func (disabledStore) Put(context.Context, string, string, io.Reader) (string, error) {
	return "", ErrStorageDisabled
}
func (disabledStore) Delete(context.Context, string) error { return nil }
func (disabledStore) PublicURL(key string) string          { return "" }
func (disabledStore) Close() error                         { return nil }
