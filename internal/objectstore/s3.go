package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"kennel_media/internal/models"
)

// S3Backend uses the AWS SDK; Endpoint switches it to path-style requests
// against an S3-compatible service.
type S3Backend struct {
	client  *s3.Client
	presign *s3.PresignClient
}

func NewS3Backend(ctx context.Context, cfg models.StorageConfig) (*S3Backend, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := cfg.EndpointURL(); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Backend{client: client, presign: s3.NewPresignClient(client)}, nil
}

func (b *S3Backend) Stat(ctx context.Context, ref models.ObjectRef) (*models.ObjectInfo, error) {
	out, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
	})
	if err != nil {
		return nil, mapS3Error(ref, err)
	}
	return &models.ObjectInfo{
		Ref:          ref,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		ETag:         strings.Trim(aws.ToString(out.ETag), `"`),
		LastModified: aws.ToTime(out.LastModified),
		Metadata:     copyMetadata(out.Metadata),
	}, nil
}

func (b *S3Backend) Open(ctx context.Context, ref models.ObjectRef) (io.ReadCloser, *models.ObjectInfo, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
	})
	if err != nil {
		return nil, nil, mapS3Error(ref, err)
	}
	return out.Body, &models.ObjectInfo{
		Ref:          ref,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		ETag:         strings.Trim(aws.ToString(out.ETag), `"`),
		LastModified: aws.ToTime(out.LastModified),
		Metadata:     copyMetadata(out.Metadata),
	}, nil
}

func (b *S3Backend) Put(ctx context.Context, ref models.ObjectRef, r io.Reader, size int64, contentType string, metadata map[string]string) (*models.ObjectInfo, error) {
	in := &s3.PutObjectInput{
		Bucket:      aws.String(ref.Bucket),
		Key:         aws.String(ref.Key),
		Body:        r,
		ContentType: aws.String(contentType),
		Metadata:    metadata,
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}

	out, err := b.client.PutObject(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("put object %q: %w", ref, err)
	}
	return &models.ObjectInfo{
		Ref:          ref,
		Size:         size,
		ContentType:  contentType,
		ETag:         strings.Trim(aws.ToString(out.ETag), `"`),
		LastModified: time.Now().UTC(),
		Metadata:     copyMetadata(metadata),
	}, nil
}

func (b *S3Backend) ReplaceMetadata(ctx context.Context, info *models.ObjectInfo, metadata map[string]string) error {
	in := &s3.CopyObjectInput{
		Bucket:            aws.String(info.Ref.Bucket),
		Key:               aws.String(info.Ref.Key),
		CopySource:        aws.String(copySource(info.Ref)),
		Metadata:          metadata,
		MetadataDirective: types.MetadataDirectiveReplace,
	}
	if info.ContentType != "" {
		in.ContentType = aws.String(info.ContentType)
	}

	if _, err := b.client.CopyObject(ctx, in); err != nil {
		return mapS3Error(info.Ref, err)
	}
	return nil
}

func (b *S3Backend) PresignPut(ctx context.Context, ref models.ObjectRef, ttl time.Duration) (string, error) {
	req, err := b.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		var re *awshttp.ResponseError
		status := 0
		if errors.As(err, &re) {
			status = re.HTTPStatusCode()
		}
		return "", &models.SigningError{StatusCode: status, Err: err}
	}
	return req.URL, nil
}

func copySource(ref models.ObjectRef) string {
	return strings.ReplaceAll(url.PathEscape(ref.Bucket+"/"+ref.Key), "%2F", "/")
}

func mapS3Error(ref models.ObjectRef, err error) error {
	var (
		notFound *types.NotFound
		noKey    *types.NoSuchKey
		re       *awshttp.ResponseError
	)
	switch {
	case errors.As(err, &notFound), errors.As(err, &noKey):
		return fmt.Errorf("%s: %w", ref, models.ErrObjectNotFound)
	case errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound:
		return fmt.Errorf("%s: %w", ref, models.ErrObjectNotFound)
	default:
		return fmt.Errorf("%s: %w", ref, err)
	}
}
