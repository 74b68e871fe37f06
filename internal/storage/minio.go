// Package storage adapts S3-compatible object storage for invoice documents
// and the invoice template.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Config holds object storage connection settings
type Config struct {
	Endpoint       string
	AccessKey      string
	SecretKey      string
	UseSSL         bool
	InvoiceBucket  string
	TemplateBucket string
}

// Store wraps an S3-compatible client with the two buckets this service uses
type Store struct {
	client *minio.Client
	cfg    Config
	logger *zap.Logger
}

// New creates a storage client
func New(cfg Config, logger *zap.Logger) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &Store{client: client, cfg: cfg, logger: logger}, nil
}

// EnsureBuckets creates the invoice and template buckets if absent
func (s *Store) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{s.cfg.InvoiceBucket, s.cfg.TemplateBucket} {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
	}
	return nil
}

// Put uploads document bytes into the invoice bucket
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.cfg.InvoiceBucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	s.logger.Info("Object uploaded",
		zap.String("bucket", s.cfg.InvoiceBucket),
		zap.String("key", key),
		zap.Int("size", len(data)))
	return nil
}

// PresignGet generates a time-bounded retrieval URL for an invoice object
func (s *Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	url, err := s.client.PresignedGetObject(ctx, s.cfg.InvoiceBucket, key, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return url.String(), nil
}

// Fetch reads template text from the template bucket. Implements
// render.TemplateStore.
func (s *Store) Fetch(ctx context.Context, key string) (string, error) {
	obj, err := s.client.GetObject(ctx, s.cfg.TemplateBucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to get template %s: %w", key, err)
	}
	defer obj.Close()

	body, err := io.ReadAll(obj)
	if err != nil {
		return "", fmt.Errorf("failed to read template %s: %w", key, err)
	}
	return string(body), nil
}
