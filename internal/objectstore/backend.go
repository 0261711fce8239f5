package objectstore

import (
	"context"
	"fmt"
	"io"
	"time"

	"kennel_media/internal/models"
)

// Backend is a blob store holding bytes plus user metadata per object.
// Missing objects are reported as models.ErrObjectNotFound.
type Backend interface {
	Stat(ctx context.Context, ref models.ObjectRef) (*models.ObjectInfo, error)
	Open(ctx context.Context, ref models.ObjectRef) (io.ReadCloser, *models.ObjectInfo, error)
	Put(ctx context.Context, ref models.ObjectRef, r io.Reader, size int64, contentType string, metadata map[string]string) (*models.ObjectInfo, error)
	// ReplaceMetadata swaps the object's user metadata, keeping bytes and
	// content type.
	ReplaceMetadata(ctx context.Context, info *models.ObjectInfo, metadata map[string]string) error
	// PresignPut returns a URL a client can PUT the object's bytes to.
	PresignPut(ctx context.Context, ref models.ObjectRef, ttl time.Duration) (string, error)
}

// NewBackend picks the backend named by cfg.Driver.
func NewBackend(ctx context.Context, cfg models.StorageConfig) (Backend, error) {
	const op = "objectstore.NewBackend"

	switch cfg.Driver {
	case models.DriverMinio:
		b, err := NewMinioBackend(cfg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return b, nil
	case models.DriverS3:
		b, err := NewS3Backend(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return b, nil
	case models.DriverMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, &models.ConfigurationError{Field: "STORAGE_DRIVER", Reason: fmt.Sprintf("unknown driver %q", cfg.Driver)}
	}
}

func copyMetadata(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
