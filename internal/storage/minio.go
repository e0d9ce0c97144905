package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	// PublicURL overrides the host used in download URLs (e.g. a CDN).
	PublicURL string
}

// MinIOStore is the S3-compatible object store used outside GCP and in local stacks.
type MinIOStore struct {
	client *minio.Client
	bucket string
	region string
	public *url.URL
}

func NewMinIOStore(cfg MinIOConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	public := client.EndpointURL()
	if cfg.PublicURL != "" {
		public, err = url.Parse(cfg.PublicURL)
		if err != nil {
			return nil, fmt.Errorf("parse public url: %w", err)
		}
	}
	return &MinIOStore{client: client, bucket: cfg.Bucket, region: cfg.Region, public: public}, nil
}

// EnsureBucket creates the bucket if needed and allows anonymous reads so the
// returned download URLs stay fetchable.
func (s *MinIOStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.bucket, err)
		}
	}
	policy := fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, s.bucket)
	if err := s.client.SetBucketPolicy(ctx, s.bucket, policy); err != nil {
		return fmt.Errorf("set bucket policy %s: %w", s.bucket, err)
	}
	return nil
}

func (s *MinIOStore) Upload(ctx context.Context, objectName string, contentType string, size int64, r io.Reader) (string, error) {
	if size <= 0 {
		size = -1
	}
	_, err := s.client.PutObject(ctx, s.bucket, objectName, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return objectName, nil
}

func (s *MinIOStore) DownloadURL(_ context.Context, handle string) (string, error) {
	// keep any path prefix of the public URL
	return s.public.JoinPath(s.bucket, handle).String(), nil
}
