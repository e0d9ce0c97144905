package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("GCS_BUCKET", "unistep-files")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("WIZARD_IDLE_TTL", "")
	t.Setenv("MAX_UPLOAD_BYTES", "")

	a, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if a.StorageDriver != "gcs" {
		t.Errorf("StorageDriver = %q", a.StorageDriver)
	}
	if a.WizardIdleTTL != 2*time.Hour {
		t.Errorf("WizardIdleTTL = %v", a.WizardIdleTTL)
	}
	if a.MaxUploadBytes != 10<<20 {
		t.Errorf("MaxUploadBytes = %d", a.MaxUploadBytes)
	}
	if a.SubmitStream != "apply:submitted" {
		t.Errorf("SubmitStream = %q", a.SubmitStream)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORAGE_DRIVER", "MinIO")
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("WIZARD_IDLE_TTL", "30m")
	t.Setenv("SUBMIT_WORKERS", "4")
	t.Setenv("WS_ALLOWED_ORIGINS", "https://a.kz, ,https://b.kz")

	a, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if a.StorageDriver != "minio" {
		t.Errorf("StorageDriver = %q", a.StorageDriver)
	}
	if a.WizardIdleTTL != 30*time.Minute {
		t.Errorf("WizardIdleTTL = %v", a.WizardIdleTTL)
	}
	if a.Workers != 4 {
		t.Errorf("Workers = %d", a.Workers)
	}
	if len(a.AllowedOrigins) != 2 || a.AllowedOrigins[1] != "https://b.kz" {
		t.Errorf("AllowedOrigins = %v", a.AllowedOrigins)
	}
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": "", "GCS_BUCKET": "b"}},
		{"missing bucket", map[string]string{"JWT_SECRET": "x", "STORAGE_DRIVER": "gcs", "GCS_BUCKET": ""}},
		{"missing minio endpoint", map[string]string{"JWT_SECRET": "x", "STORAGE_DRIVER": "minio", "MINIO_ENDPOINT": ""}},
		{"unknown driver", map[string]string{"JWT_SECRET": "x", "STORAGE_DRIVER": "s3"}},
		{"bad duration", map[string]string{"JWT_SECRET": "x", "GCS_BUCKET": "b", "WIZARD_IDLE_TTL": "soon"}},
		{"bad int", map[string]string{"JWT_SECRET": "x", "GCS_BUCKET": "b", "SUBMIT_WORKERS": "many"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRedisOptions(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_DB", "3")

	opt, err := redisOptions()
	if err != nil {
		t.Fatalf("redisOptions: %v", err)
	}
	if opt.Addr != "cache:6380" || opt.DB != 3 {
		t.Errorf("opt = %s db %d", opt.Addr, opt.DB)
	}

	t.Setenv("REDIS_URL", "cache:6380")
	if _, err := redisOptions(); err == nil {
		t.Error("expected error for URL without scheme")
	}
}
