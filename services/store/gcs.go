package storesvc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/mwalimu/elimika/core"
	"github.com/mwalimu/elimika/core/certificate"
)

// gcsStorage stores certificate artifacts in a public GCS bucket.
type gcsStorage struct {
	client        *storage.Client
	bucket        string
	publicBaseURL string
}

var _ certificate.Storage = (*gcsStorage)(nil)

func NewGCSStorage(ctx context.Context, conf *core.Config, opts ...option.ClientOption) (*gcsStorage, error) {
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating storage client")
	}
	return &gcsStorage{
		client:        client,
		bucket:        conf.Storage.Bucket,
		publicBaseURL: conf.Storage.PublicBaseURL,
	}, nil
}

func (s *gcsStorage) Store(ctx context.Context, key string, content []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, bytes.NewReader(content)); err != nil {
		_ = w.Close()
		return "", errors.Wrap(err, "writing object")
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrap(err, "closing object writer")
	}
	return s.publicURL(key), nil
}

func (s *gcsStorage) publicURL(key string) string {
	if s.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s", s.publicBaseURL, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, key)
}

func (s *gcsStorage) Close() error {
	return s.client.Close()
}
