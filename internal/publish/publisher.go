// Package publish persists rendered invoice documents and obtains a
// retrievable URL, with a gateway path and a direct-storage fallback.
package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrPublishFailed is returned when both upload paths are exhausted
var ErrPublishFailed = errors.New("both gateway and direct storage upload failed")

const (
	keyPrefix   = "invoices/"
	contentType = "application/pdf"

	// Validity of fallback presigned URLs
	fallbackTTL = 24 * time.Hour
)

// Uploader is the gateway path
type Uploader interface {
	Upload(ctx context.Context, fileName string, data []byte, contentType string) (string, error)
}

// ObjectStore is the direct-storage fallback path
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Publisher stores a rendered document and returns one retrievable URL. The
// gateway may be rate-limited or down while storage stays reachable; the
// fallback trades the gateway's access control for availability. Callers
// cannot tell which path produced the URL.
type Publisher struct {
	gateway Uploader
	store   ObjectStore
	logger  *zap.Logger
}

// NewPublisher creates a publisher over both upload paths
func NewPublisher(gateway Uploader, store ObjectStore, logger *zap.Logger) *Publisher {
	return &Publisher{gateway: gateway, store: store, logger: logger}
}

// Publish uploads the document under invoices/<invoiceNumber>.pdf and returns
// its URL. Gateway first; on any gateway failure, direct put plus a
// time-bounded presigned URL.
func (p *Publisher) Publish(ctx context.Context, invoiceNumber string, doc []byte) (string, error) {
	fileName := invoiceNumber + ".pdf"

	url, gwErr := p.gateway.Upload(ctx, fileName, doc, contentType)
	if gwErr == nil {
		p.logger.Info("Document published via gateway",
			zap.String("invoice_number", invoiceNumber))
		return url, nil
	}

	p.logger.Warn("Gateway upload failed, falling back to direct storage",
		zap.String("invoice_number", invoiceNumber),
		zap.Error(gwErr))

	key := keyPrefix + fileName
	if err := p.store.Put(ctx, key, doc, contentType); err != nil {
		p.logger.Error("Direct storage upload failed",
			zap.String("key", key),
			zap.Error(err))
		return "", fmt.Errorf("%w: gateway: %v; storage: %v", ErrPublishFailed, gwErr, err)
	}

	url, err := p.store.PresignGet(ctx, key, fallbackTTL)
	if err != nil {
		p.logger.Error("Presign failed after direct upload",
			zap.String("key", key),
			zap.Error(err))
		return "", fmt.Errorf("%w: gateway: %v; presign: %v", ErrPublishFailed, gwErr, err)
	}

	p.logger.Info("Document published via direct storage",
		zap.String("invoice_number", invoiceNumber),
		zap.String("key", key))
	return url, nil
}
