package gcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sony/gobreaker"

	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
)

func TestResolveObjectStoragePublicBaseURL(t *testing.T) {
	t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", "")
	base, source, err := resolveObjectStoragePublicBaseURL(ObjectStorageConfig{Mode: ObjectStorageModeGCS, Bucket: "b"})
	if err != nil || base != "" || source != "gcs_default" {
		t.Fatalf("gcs default: base=%q source=%q err=%v", base, source, err)
	}

	base, source, err = resolveObjectStoragePublicBaseURL(ObjectStorageConfig{
		Mode:         ObjectStorageModeGCSEmulator,
		EmulatorHost: "http://fake-gcs:4443",
		Bucket:       "b",
	})
	if err != nil || base != "http://fake-gcs:4443" || source != "storage_emulator_host" {
		t.Fatalf("emulator: base=%q source=%q err=%v", base, source, err)
	}

	t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", "http://localhost:4443/")
	base, source, err = resolveObjectStoragePublicBaseURL(ObjectStorageConfig{Mode: ObjectStorageModeGCS, Bucket: "b"})
	if err != nil || base != "http://localhost:4443" || source != "object_storage_public_base_url" {
		t.Fatalf("override: base=%q source=%q err=%v", base, source, err)
	}

	t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", "localhost:4443")
	if _, _, err := resolveObjectStoragePublicBaseURL(ObjectStorageConfig{Mode: ObjectStorageModeGCS, Bucket: "b"}); err == nil {
		t.Fatalf("expected error for relative public base url")
	}
}

func TestPublicURL(t *testing.T) {
	key := "whatsapp/2025/03/abc.jpg"

	got := publicURL(ObjectStorageConfig{Mode: ObjectStorageModeGCS, Bucket: "crm-media"}, "", key)
	if want := "https://storage.googleapis.com/crm-media/whatsapp/2025/03/abc.jpg"; got != want {
		t.Fatalf("gcs: want=%q got=%q", want, got)
	}

	got = publicURL(ObjectStorageConfig{Mode: ObjectStorageModeGCS, Bucket: "crm-media"}, "https://cdn.example.com", "/"+key)
	if want := "https://cdn.example.com/crm-media/whatsapp/2025/03/abc.jpg"; got != want {
		t.Fatalf("base url: want=%q got=%q", want, got)
	}

	got = publicURL(ObjectStorageConfig{
		Mode:         ObjectStorageModeGCSEmulator,
		EmulatorHost: "http://fake-gcs:4443",
		Bucket:       "crm-media",
	}, "", key)
	if !strings.HasPrefix(got, "http://fake-gcs:4443/storage/v1/b/crm-media/o/whatsapp%2F2025%2F03%2Fabc.jpg") {
		t.Fatalf("emulator: got=%q", got)
	}
}

func TestContentTypeForKey(t *testing.T) {
	cases := map[string]string{
		"a.JPG":  "image/jpeg",
		"a.pdf":  "application/pdf",
		"a.ogg":  "audio/ogg",
		"a.bin":  "application/octet-stream",
		"a.webp": "image/webp",
	}
	for key, want := range cases {
		if got := contentTypeForKey(key); got != want {
			t.Fatalf("%s: want=%q got=%q", key, want, got)
		}
	}
}

func TestDisabledMediaStore(t *testing.T) {
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	store, err := NewMediaStoreWithConfig(log, ObjectStorageConfig{Mode: ObjectStorageModeDisabled})
	if err != nil {
		t.Fatalf("NewMediaStoreWithConfig: %v", err)
	}
	if store.Enabled() {
		t.Fatalf("disabled store reports enabled")
	}
	if _, err := store.Put(context.Background(), "k", "", strings.NewReader("x")); !errors.Is(err, ErrStorageDisabled) {
		t.Fatalf("Put: want ErrStorageDisabled, got %v", err)
	}
}

func TestUploadBreakerOpensAfterFailures(t *testing.T) {
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	cb := newUploadBreaker(log)
	boom := errors.New("boom")
	for i := 0; i < 5; i++ {
		_, _ = cb.Execute(func() (interface{}, error) { return nil, boom })
	}
	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("breaker state: want open got %s", cb.State())
	}
	if _, err := cb.Execute(func() (interface{}, error) { return nil, nil }); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected ErrOpenState, got %v", err)
	}
}
