// Package acl keeps an object's access policy in the object's own user
// metadata, so the policy lives and dies with the bytes.
package acl

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"kennel_media/internal/models"
)

const (
	// MetadataKey is the user metadata entry holding the serialized policy.
	MetadataKey = "acl-policy"
	// PolicyVersion is written on every policy; newer versions are read
	// best-effort using the fields known here.
	PolicyVersion = 1
)

// MetadataStore is the slice of the object store the policy store needs.
type MetadataStore interface {
	Stat(ctx context.Context, ref models.ObjectRef) (*models.ObjectInfo, error)
	ReplaceMetadata(ctx context.Context, info *models.ObjectInfo, metadata map[string]string) error
}

type Store struct {
	objects MetadataStore
}

func NewStore(objects MetadataStore) *Store {
	return &Store{objects: objects}
}

// SetPolicy stamps policy onto the object, keeping its other metadata.
func (s *Store) SetPolicy(ctx context.Context, ref models.ObjectRef, policy models.Policy) error {
	const op = "acl.SetPolicy"

	if !policy.Visibility.Valid() {
		return fmt.Errorf("%s: %w: visibility %q", op, models.ErrInvalidPolicy, policy.Visibility)
	}
	policy.Version = PolicyVersion

	info, err := s.objects.Stat(ctx, ref)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	raw, err := json.Marshal(policy)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	meta := make(map[string]string, len(info.Metadata)+1)
	for k, v := range info.Metadata {
		if strings.EqualFold(k, MetadataKey) {
			continue
		}
		meta[k] = v
	}
	meta[MetadataKey] = string(raw)

	if err := s.objects.ReplaceMetadata(ctx, info, meta); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetPolicy returns the object's policy, or nil when it has none.
func (s *Store) GetPolicy(ctx context.Context, ref models.ObjectRef) (*models.Policy, error) {
	const op = "acl.GetPolicy"

	info, err := s.objects.Stat(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	policy, err := PolicyFromInfo(info)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return policy, nil
}

// CanAccess reports whether requestorID may perform perm on the object.
// An empty requestorID means anonymous.
func (s *Store) CanAccess(ctx context.Context, ref models.ObjectRef, requestorID string, perm models.Permission) (bool, error) {
	policy, err := s.GetPolicy(ctx, ref)
	if err != nil {
		return false, err
	}
	return Evaluate(policy, requestorID, perm), nil
}

// Evaluate is the access rule: no policy denies, public objects are readable
// by anyone, and everything else needs the owner.
func Evaluate(policy *models.Policy, requestorID string, perm models.Permission) bool {
	if policy == nil {
		return false
	}
	if policy.Visibility == models.VisibilityPublic && perm == models.PermissionRead {
		return true
	}
	return requestorID != "" && policy.Owner == requestorID
}

// PolicyFromInfo decodes the policy carried in info, or nil when absent.
func PolicyFromInfo(info *models.ObjectInfo) (*models.Policy, error) {
	raw, ok := info.MetadataValue(MetadataKey)
	if !ok || raw == "" {
		return nil, nil
	}
	var p models.Policy
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidPolicy, err)
	}
	return &p, nil
}
