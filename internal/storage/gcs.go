package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Files up to this size are sent in one request instead of a resumable upload.
const singleRequestLimit = 8 << 20

// GCSStore writes applicant documents and site images to one bucket. Objects
// are made world-readable because the dashboard links them directly.
type GCSStore struct {
	client *gcs.Client
	bucket *gcs.BucketHandle
	name   string
}

// NewGCSStore uses application default credentials unless opts say otherwise.
func NewGCSStore(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCSStore, error) {
	c, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init gcs: %w", err)
	}
	return &GCSStore{client: c, bucket: c.Bucket(bucket), name: bucket}, nil
}

func (s *GCSStore) Close() error { return s.client.Close() }

func (s *GCSStore) Upload(ctx context.Context, objectName, contentType string, size int64, r io.Reader) (string, error) {
	obj := s.bucket.Object(objectName)

	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	w.PredefinedACL = "publicRead"
	if size > 0 && size <= singleRequestLimit {
		w.ChunkSize = 0
	}

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("gcs write %s: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs close %s: %w", objectName, err)
	}
	return objectName, nil
}

func (s *GCSStore) DownloadURL(_ context.Context, handle string) (string, error) {
	u := url.URL{Scheme: "https", Host: "storage.googleapis.com", Path: "/" + s.name + "/" + handle}
	return u.String(), nil
}
