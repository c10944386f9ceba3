package source

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// ObjectAttrs is the subset of object metadata the resolver checks
type ObjectAttrs struct {
	ContentType string
	Size        int64
}

// ObjectStore reads objects from a bucket
type ObjectStore interface {
	Stat(ctx context.Context, bucket, object string) (ObjectAttrs, error)
	Download(ctx context.Context, bucket, object string, w io.Writer) (int64, error)
}

// GCSStore reads objects from Google Cloud Storage
type GCSStore struct {
	client *storage.Client
}

// NewGCSStore creates a store using application default credentials
func NewGCSStore(ctx context.Context) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("init gcs client: %w", err)
	}
	return &GCSStore{client: client}, nil
}

func (s *GCSStore) Stat(ctx context.Context, bucket, object string) (ObjectAttrs, error) {
	attrs, err := s.client.Bucket(bucket).Object(object).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return ObjectAttrs{}, fmt.Errorf("%w: gs://%s/%s", ErrNotFound, bucket, object)
		}
		return ObjectAttrs{}, fmt.Errorf("stat gs://%s/%s: %w", bucket, object, err)
	}
	return ObjectAttrs{ContentType: attrs.ContentType, Size: attrs.Size}, nil
}

func (s *GCSStore) Download(ctx context.Context, bucket, object string, w io.Writer) (int64, error) {
	reader, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return 0, fmt.Errorf("open gs://%s/%s: %w", bucket, object, err)
	}
	defer reader.Close()

	return io.Copy(w, reader)
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
