package objectstore

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"sync"
	"time"

	"kennel_media/internal/models"
)

// DefaultPresignBase is where MemoryBackend pretends to sign URLs.
const DefaultPresignBase = "https://storage.googleapis.com"

type memoryObject struct {
	data []byte
	info models.ObjectInfo
}

// MemoryBackend keeps objects in process. Used by tests and the "memory"
// driver for local development.
type MemoryBackend struct {
	mu      sync.RWMutex
	objects map[models.ObjectRef]*memoryObject

	// Now stamps LastModified; override for deterministic tests.
	Now         func() time.Time
	PresignBase string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		objects:     make(map[models.ObjectRef]*memoryObject),
		Now:         time.Now,
		PresignBase: DefaultPresignBase,
	}
}

func (b *MemoryBackend) Stat(_ context.Context, ref models.ObjectRef) (*models.ObjectInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, ok := b.objects[ref]
	if !ok {
		return nil, fmt.Errorf("%s: %w", ref, models.ErrObjectNotFound)
	}
	return cloneInfo(obj.info), nil
}

func (b *MemoryBackend) Open(_ context.Context, ref models.ObjectRef) (io.ReadCloser, *models.ObjectInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, ok := b.objects[ref]
	if !ok {
		return nil, nil, fmt.Errorf("%s: %w", ref, models.ErrObjectNotFound)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), cloneInfo(obj.info), nil
}

func (b *MemoryBackend) Put(_ context.Context, ref models.ObjectRef, r io.Reader, _ int64, contentType string, metadata map[string]string) (*models.ObjectInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("put object %q: %w", ref, err)
	}
	sum := md5.Sum(data)

	obj := &memoryObject{
		data: data,
		info: models.ObjectInfo{
			Ref:          ref,
			Size:         int64(len(data)),
			ContentType:  contentType,
			ETag:         hex.EncodeToString(sum[:]),
			LastModified: b.Now().UTC(),
			Metadata:     copyMetadata(metadata),
		},
	}

	b.mu.Lock()
	b.objects[ref] = obj
	b.mu.Unlock()

	return cloneInfo(obj.info), nil
}

func (b *MemoryBackend) ReplaceMetadata(_ context.Context, info *models.ObjectInfo, metadata map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	obj, ok := b.objects[info.Ref]
	if !ok {
		return fmt.Errorf("%s: %w", info.Ref, models.ErrObjectNotFound)
	}
	obj.info.Metadata = copyMetadata(metadata)
	return nil
}

func (b *MemoryBackend) PresignPut(_ context.Context, ref models.ObjectRef, ttl time.Duration) (string, error) {
	expires := strconv.Itoa(int(ttl.Seconds()))
	sig := md5.Sum([]byte(ref.String() + expires))

	q := url.Values{}
	q.Set("X-Goog-Expires", expires)
	q.Set("X-Goog-Signature", hex.EncodeToString(sig[:]))
	return b.PresignBase + ref.String() + "?" + q.Encode(), nil
}

func cloneInfo(info models.ObjectInfo) *models.ObjectInfo {
	info.Metadata = copyMetadata(info.Metadata)
	return &info
}
