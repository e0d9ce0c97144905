package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// App holds the typed settings read from the environment.
type App struct {
	Port    string
	MongoDB string

	// StorageDriver is "gcs" or "minio".
	StorageDriver  string
	GCSBucket      string
	GCSCredentials string
	MinIO          MinIOSettings

	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration // 0 means tokens never expire

	WizardIdleTTL  time.Duration
	SweepInterval  time.Duration
	SiteCacheTTL   time.Duration
	StatsCacheTTL  time.Duration
	MaxUploadBytes int64

	Workers         int
	SubmitStream    string
	SubmitStreamMax int64

	AllowedOrigins []string
}

type MinIOSettings struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	PublicURL string
}

// Load reads App from the environment. godotenv should have run before.
func Load() (App, error) {
	a := App{
		Port:           getenv("PORT", "8080"),
		MongoDB:        MongoDBName(),
		StorageDriver:  strings.ToLower(getenv("STORAGE_DRIVER", "gcs")),
		GCSBucket:      os.Getenv("GCS_BUCKET"),
		GCSCredentials: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_FILE"),
		MinIO: MinIOSettings{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    getenv("MINIO_BUCKET", "unistep"),
			Region:    os.Getenv("MINIO_REGION"),
			UseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
			PublicURL: os.Getenv("MINIO_PUBLIC_URL"),
		},
		JWTSecret:    os.Getenv("JWT_SECRET"),
		JWTIssuer:    getenv("JWT_ISSUER", "unistep"),
		SubmitStream: getenv("SUBMIT_STREAM", "apply:submitted"),
	}

	var err error
	if a.JWTTTL, err = durationEnv("JWT_TTL", 0); err != nil {
		return a, err
	}
	if a.WizardIdleTTL, err = durationEnv("WIZARD_IDLE_TTL", 2*time.Hour); err != nil {
		return a, err
	}
	if a.SweepInterval, err = durationEnv("WIZARD_SWEEP_INTERVAL", 5*time.Minute); err != nil {
		return a, err
	}
	if a.SiteCacheTTL, err = durationEnv("SITE_CACHE_TTL", 5*time.Minute); err != nil {
		return a, err
	}
	if a.StatsCacheTTL, err = durationEnv("STATS_CACHE_TTL", 10*time.Minute); err != nil {
		return a, err
	}
	if a.MaxUploadBytes, err = intEnv("MAX_UPLOAD_BYTES", 10<<20); err != nil {
		return a, err
	}
	workers, err := intEnv("SUBMIT_WORKERS", 2)
	if err != nil {
		return a, err
	}
	a.Workers = int(workers)
	if a.SubmitStreamMax, err = intEnv("SUBMIT_STREAM_MAXLEN", 10000); err != nil {
		return a, err
	}
	if v := os.Getenv("WS_ALLOWED_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				a.AllowedOrigins = append(a.AllowedOrigins, o)
			}
		}
	}

	if a.JWTSecret == "" {
		return a, errors.New("JWT_SECRET environment variable is not set")
	}
	switch a.StorageDriver {
	case "gcs":
		if a.GCSBucket == "" {
			return a, errors.New("GCS_BUCKET environment variable is not set")
		}
	case "minio":
		if a.MinIO.Endpoint == "" {
			return a, errors.New("MINIO_ENDPOINT environment variable is not set")
		}
	default:
		return a, errors.New("STORAGE_DRIVER must be gcs or minio")
	}
	return a, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.New(key + ": " + err.Error())
	}
	return d, nil
}

func intEnv(key string, def int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, errors.New(key + ": " + err.Error())
	}
	return n, nil
}
