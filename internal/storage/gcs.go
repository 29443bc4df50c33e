package storage

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"presenter-studio/internal/models"
)

// GCSStorage stores objects in a Google Cloud Storage bucket and hands out V4
// signed GET URLs, so the bucket itself can stay private.
type GCSStorage struct {
	client    *gcs.Client
	bucket    string
	signedTTL time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewGCSStorage uses application default credentials.
func NewGCSStorage(ctx context.Context, bucket string, signedTTL time.Duration, logger *zap.Logger) (*GCSStorage, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}
	if signedTTL <= 0 {
		signedTTL = 24 * time.Hour
	}
	return &GCSStorage{
		client:    client,
		bucket:    bucket,
		signedTTL: signedTTL,
		logger:    logger.Named("gcs"),
		now:       time.Now,
	}, nil
}

func (s *GCSStorage) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	obj := s.client.Bucket(s.bucket).Object(key)
	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("%w: failed to write gs://%s/%s: %v", models.ErrStorage, s.bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("%w: failed to finalize gs://%s/%s: %v", models.ErrStorage, s.bucket, key, err)
	}

	signed, err := s.client.Bucket(s.bucket).SignedURL(key, &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: s.now().Add(s.signedTTL),
	})
	if err != nil {
		return "", fmt.Errorf("%w: failed to sign url for %s: %v", models.ErrStorage, key, err)
	}
	s.logger.Debug("Object uploaded", zap.String("bucket", s.bucket), zap.String("key", key), zap.Int("size_bytes", len(data)))
	return signed, nil
}

// Close releases the underlying client.
func (s *GCSStorage) Close() error {
	return s.client.Close()
}
