// Package objectpath turns the URLs a browser uploads to into the canonical
// "/objects/..." paths the rest of the pipeline stores and serves.
package objectpath

import (
	"fmt"
	"net/url"
	"strings"

	"kennel_media/internal/models"
)

const (
	// CanonicalPrefix starts every canonical object path.
	CanonicalPrefix = "/objects/"

	privateUploadsMarker = "/.private/uploads/"
	uploadsMarker        = "/uploads/"
)

// Rule rewrites a URL path into a canonical path. ok reports whether the
// rule recognised the path.
type Rule struct {
	Name  string
	Apply func(path string) (canonical string, ok bool)
}

type Normalizer struct {
	prefixes []string
	rules    []Rule
}

// New builds a normalizer for URLs starting with one of prefixes. Extra
// rules run after the built-in ones and before the fallback.
func New(prefixes []string, privateDir string, extra ...Rule) *Normalizer {
	dir := privateDir
	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}

	rules := []Rule{
		{
			Name: "private-uploads",
			Apply: func(p string) (string, bool) {
				_, rest, found := strings.Cut(p, privateUploadsMarker)
				if !found {
					return "", false
				}
				return CanonicalPrefix + "uploads/" + rest, true
			},
		},
		{
			Name: "private-dir",
			Apply: func(p string) (string, bool) {
				if privateDir == "" || !strings.HasPrefix(p, dir) {
					return "", false
				}
				return CanonicalPrefix + p[len(dir):], true
			},
		},
		{
			Name: "uploads",
			Apply: func(p string) (string, bool) {
				_, rest, found := strings.Cut(p, uploadsMarker)
				if !found {
					return "", false
				}
				return CanonicalPrefix + "uploads/" + rest, true
			},
		},
	}

	return &Normalizer{prefixes: prefixes, rules: append(rules, extra...)}
}

// FromConfig builds the normalizer for a storage configuration.
func FromConfig(cfg models.StorageConfig) *Normalizer {
	prefixes := cfg.SignedURLPrefixes
	if len(prefixes) == 0 {
		prefixes = cfg.DefaultSignedURLPrefixes()
	}
	return New(prefixes, cfg.PrivateObjectDir)
}

// Normalize returns the canonical path for raw. Inputs that are not signed
// upload URLs come back unchanged, which makes Normalize idempotent.
func (n *Normalizer) Normalize(raw string) string {
	out, _ := n.Match(raw)
	return out
}

// Match is Normalize that also reports whether a rule recognised raw. A
// signed URL nothing recognised yields its bare URL path and false.
func (n *Normalizer) Match(raw string) (string, bool) {
	if !n.signed(raw) {
		return raw, false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw, false
	}
	// Escapes are kept so the canonical path matches what the browser saw.
	p := u.EscapedPath()

	for _, r := range n.rules {
		if out, ok := r.Apply(p); ok {
			return out, true
		}
	}
	return p, false
}

func (n *Normalizer) signed(raw string) bool {
	for _, prefix := range n.prefixes {
		if strings.HasPrefix(raw, prefix) {
			return true
		}
	}
	return false
}

// IsCanonical reports whether p has the "/objects/<id>" shape.
func IsCanonical(p string) bool {
	return strings.HasPrefix(p, CanonicalPrefix) && len(p) > len(CanonicalPrefix)
}

// EntityRef maps a canonical path onto its location under privateDir.
func EntityRef(canonical, privateDir string) (models.ObjectRef, error) {
	const op = "objectpath.EntityRef"

	if !strings.HasPrefix(canonical, CanonicalPrefix) {
		return models.ObjectRef{}, fmt.Errorf("%s: %w", op, models.ErrObjectNotFound)
	}
	entityID := strings.TrimPrefix(canonical, CanonicalPrefix)
	if decoded, err := url.PathUnescape(entityID); err == nil {
		entityID = decoded
	}
	if entityID == "" || hasDotDot(entityID) {
		return models.ObjectRef{}, fmt.Errorf("%s: %w", op, models.ErrObjectNotFound)
	}

	ref, err := ParseObjectPath(Join(privateDir, entityID))
	if err != nil {
		return models.ObjectRef{}, fmt.Errorf("%s: %w", op, err)
	}
	return ref, nil
}

// SearchRef maps a path relative to a public search path onto a ref.
func SearchRef(searchPath, rel string) (models.ObjectRef, error) {
	if hasDotDot(rel) {
		return models.ObjectRef{}, fmt.Errorf("objectpath.SearchRef: %w", models.ErrObjectNotFound)
	}
	return ParseObjectPath(Join(searchPath, rel))
}

// ParseObjectPath splits "/<bucket>/<key...>" into a ref. A leading slash is
// optional; a path without both a bucket and a key is rejected.
func ParseObjectPath(p string) (models.ObjectRef, error) {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	parts := strings.Split(p, "/")
	if len(parts) < 3 || parts[1] == "" {
		return models.ObjectRef{}, fmt.Errorf("invalid path %q: must contain at least a bucket name", p)
	}
	key := strings.Join(parts[2:], "/")
	if key == "" {
		return models.ObjectRef{}, fmt.Errorf("invalid path %q: must contain an object name", p)
	}
	return models.ObjectRef{Bucket: parts[1], Key: key}, nil
}

// Join concatenates a directory and a relative path with exactly one slash.
func Join(dir, rel string) string {
	return strings.TrimRight(dir, "/") + "/" + strings.TrimLeft(rel, "/")
}

func hasDotDot(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}
