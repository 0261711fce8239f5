package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"kennel_media/internal/models"
)

// MinioBackend talks to MinIO or any S3-compatible endpoint.
type MinioBackend struct {
	client *minio.Client
}

func NewMinioBackend(cfg models.StorageConfig) (*MinioBackend, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinioBackend{client: client}, nil
}

func (b *MinioBackend) Stat(ctx context.Context, ref models.ObjectRef) (*models.ObjectInfo, error) {
	st, err := b.client.StatObject(ctx, ref.Bucket, ref.Key, minio.StatObjectOptions{})
	if err != nil {
		return nil, mapMinioError(ref, err)
	}
	return minioInfo(ref, st), nil
}

func (b *MinioBackend) Open(ctx context.Context, ref models.ObjectRef) (io.ReadCloser, *models.ObjectInfo, error) {
	obj, err := b.client.GetObject(ctx, ref.Bucket, ref.Key, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, mapMinioError(ref, err)
	}
	// GetObject is lazy; Stat performs the request.
	st, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, nil, mapMinioError(ref, err)
	}
	return obj, minioInfo(ref, st), nil
}

func (b *MinioBackend) Put(ctx context.Context, ref models.ObjectRef, r io.Reader, size int64, contentType string, metadata map[string]string) (*models.ObjectInfo, error) {
	up, err := b.client.PutObject(ctx, ref.Bucket, ref.Key, r, size, minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("put object %q: %w", ref, err)
	}
	return &models.ObjectInfo{
		Ref:          ref,
		Size:         up.Size,
		ContentType:  contentType,
		ETag:         up.ETag,
		LastModified: up.LastModified,
		Metadata:     copyMetadata(metadata),
	}, nil
}

func (b *MinioBackend) ReplaceMetadata(ctx context.Context, info *models.ObjectInfo, metadata map[string]string) error {
	meta := copyMetadata(metadata)
	if info.ContentType != "" {
		// minio-go sends Content-Type as a standard header, not user metadata.
		meta["Content-Type"] = info.ContentType
	}

	_, err := b.client.CopyObject(ctx,
		minio.CopyDestOptions{
			Bucket:          info.Ref.Bucket,
			Object:          info.Ref.Key,
			UserMetadata:    meta,
			ReplaceMetadata: true,
		},
		minio.CopySrcOptions{Bucket: info.Ref.Bucket, Object: info.Ref.Key},
	)
	if err != nil {
		return mapMinioError(info.Ref, err)
	}
	return nil
}

func (b *MinioBackend) PresignPut(ctx context.Context, ref models.ObjectRef, ttl time.Duration) (string, error) {
	u, err := b.client.PresignedPutObject(ctx, ref.Bucket, ref.Key, ttl)
	if err != nil {
		return "", &models.SigningError{StatusCode: minio.ToErrorResponse(err).StatusCode, Err: err}
	}
	return u.String(), nil
}

func minioInfo(ref models.ObjectRef, st minio.ObjectInfo) *models.ObjectInfo {
	return &models.ObjectInfo{
		Ref:          ref,
		Size:         st.Size,
		ContentType:  st.ContentType,
		ETag:         st.ETag,
		LastModified: st.LastModified,
		Metadata:     copyMetadata(st.UserMetadata),
	}
}

func mapMinioError(ref models.ObjectRef, err error) error {
	resp := minio.ToErrorResponse(err)
	switch {
	case resp.Code == "NoSuchKey", resp.Code == "NoSuchBucket", resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", ref, models.ErrObjectNotFound)
	default:
		return fmt.Errorf("%s: %w", ref, err)
	}
}
