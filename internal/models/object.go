package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type ObjectRef struct {
	Bucket string
	Key    string
}

// String renders the ref in the "/<bucket>/<key>" path form.
func (r ObjectRef) String() string {
	return "/" + r.Bucket + "/" + r.Key
}

type ObjectInfo struct {
	Ref          ObjectRef
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
	Metadata     map[string]string
}

// MetadataValue looks a user metadata key up case-insensitively; stores
// disagree on how they canonicalize header names.
func (i ObjectInfo) MetadataValue(key string) (string, bool) {
	if v, ok := i.Metadata[key]; ok {
		return v, true
	}
	for k, v := range i.Metadata {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

type Permission string

const (
	PermissionRead   Permission = "read"
	PermissionWrite  Permission = "write"
	PermissionDelete Permission = "delete"
)

// Policy travels with the object in its user metadata.
type Policy struct {
	Version    int        `json:"version"`
	Owner      string     `json:"owner,omitempty"`
	Visibility Visibility `json:"visibility"`
}

const (
	UploadStatusAcknowledged  = "acknowledged"
	UploadStatusPendingReview = "pending_review"
)

// Upload is one acknowledged upload as published on the event stream and
// recorded in the ledger.
type Upload struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	ObjectPath     string     `json:"object_path" db:"object_path"`
	Owner          string     `json:"owner,omitempty" db:"owner"`
	Visibility     Visibility `json:"visibility,omitempty" db:"visibility"`
	Status         string     `json:"status" db:"status"` // acknowledged, pending_review
	AcknowledgedAt time.Time  `json:"acknowledged_at" db:"acknowledged_at"`
}
