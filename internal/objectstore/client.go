// Package objectstore is the object store client: signed upload URLs,
// public search path lookups, private entity resolution and downloads,
// over a pluggable Backend.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"kennel_media/internal/models"
	"kennel_media/internal/objectpath"
)

// UploadURLTTL is how long an issued upload URL stays valid.
const UploadURLTTL = 900 * time.Second

type UploadURL struct {
	URL    string `json:"uploadURL"`
	Method string `json:"method"`
	TTL    int    `json:"ttl"`
}

type Client struct {
	backend     Backend
	searchPaths []string
	privateDir  string
}

// NewClient fails with *models.ConfigurationError when either directory
// setting is missing.
func NewClient(cfg models.StorageConfig, backend Backend) (*Client, error) {
	paths := models.ParseSearchPaths(strings.Join(cfg.PublicSearchPaths, ","))
	if len(paths) == 0 {
		return nil, &models.ConfigurationError{
			Field:  "PUBLIC_OBJECT_SEARCH_PATHS",
			Reason: "not set; provide a comma-separated list of /<bucket>/<prefix> paths",
		}
	}
	if cfg.PrivateObjectDir == "" {
		return nil, &models.ConfigurationError{
			Field:  "PRIVATE_OBJECT_DIR",
			Reason: "not set; provide the /<bucket>/<prefix> directory for private uploads",
		}
	}
	return &Client{backend: backend, searchPaths: paths, privateDir: cfg.PrivateObjectDir}, nil
}

func (c *Client) PublicSearchPaths() []string {
	out := make([]string, len(c.searchPaths))
	copy(out, c.searchPaths)
	return out
}

func (c *Client) PrivateObjectDir() string {
	return c.privateDir
}

func (c *Client) ObjectExists(ctx context.Context, ref models.ObjectRef) (bool, error) {
	_, err := c.backend.Stat(ctx, ref)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, models.ErrObjectNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("objectstore.ObjectExists: %w", err)
	}
}

func (c *Client) Stat(ctx context.Context, ref models.ObjectRef) (*models.ObjectInfo, error) {
	return c.backend.Stat(ctx, ref)
}

// IssueUploadURL mints a fresh key under the private uploads directory and
// signs a PUT for it.
func (c *Client) IssueUploadURL(ctx context.Context) (UploadURL, error) {
	const op = "objectstore.IssueUploadURL"

	full := objectpath.Join(c.privateDir, "uploads/"+uuid.NewString())
	ref, err := objectpath.ParseObjectPath(full)
	if err != nil {
		return UploadURL{}, fmt.Errorf("%s: %w", op, err)
	}

	signed, err := c.backend.PresignPut(ctx, ref, UploadURLTTL)
	if err != nil {
		var signErr *models.SigningError
		if errors.As(err, &signErr) {
			return UploadURL{}, err
		}
		return UploadURL{}, &models.SigningError{Err: err}
	}

	return UploadURL{URL: signed, Method: "PUT", TTL: int(UploadURLTTL.Seconds())}, nil
}

// Download reads the whole object into memory.
func (c *Client) Download(ctx context.Context, ref models.ObjectRef) ([]byte, *models.ObjectInfo, error) {
	const op = "objectstore.Download"

	rc, info, err := c.backend.Open(ctx, ref)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return data, info, nil
}

// OpenReadStream returns the object's bytes as a stream; the caller closes it.
func (c *Client) OpenReadStream(ctx context.Context, ref models.ObjectRef) (io.ReadCloser, *models.ObjectInfo, error) {
	rc, info, err := c.backend.Open(ctx, ref)
	if err != nil {
		return nil, nil, fmt.Errorf("objectstore.OpenReadStream: %w", err)
	}
	return rc, info, nil
}

func (c *Client) Upload(ctx context.Context, ref models.ObjectRef, r io.Reader, size int64, contentType string) (*models.ObjectInfo, error) {
	info, err := c.backend.Put(ctx, ref, r, size, contentType, nil)
	if err != nil {
		return nil, fmt.Errorf("objectstore.Upload: %w", err)
	}
	return info, nil
}

// SearchPublicObject looks rel up in every public search path in order and
// returns the first hit, or nil when none has it.
func (c *Client) SearchPublicObject(ctx context.Context, rel string) (*models.ObjectInfo, error) {
	const op = "objectstore.SearchPublicObject"

	for _, searchPath := range c.searchPaths {
		ref, err := objectpath.SearchRef(searchPath, rel)
		if err != nil {
			continue
		}
		info, err := c.backend.Stat(ctx, ref)
		if err == nil {
			return info, nil
		}
		if !errors.Is(err, models.ErrObjectNotFound) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil, nil
}

// GetObjectEntity resolves a canonical "/objects/..." path to the private
// object it names.
func (c *Client) GetObjectEntity(ctx context.Context, canonical string) (*models.ObjectInfo, error) {
	const op = "objectstore.GetObjectEntity"

	ref, err := objectpath.EntityRef(canonical, c.privateDir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	info, err := c.backend.Stat(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return info, nil
}

func (c *Client) ReplaceMetadata(ctx context.Context, info *models.ObjectInfo, metadata map[string]string) error {
	if err := c.backend.ReplaceMetadata(ctx, info, metadata); err != nil {
		return fmt.Errorf("objectstore.ReplaceMetadata: %w", err)
	}
	return nil
}
