// Package cache provides caching for repack artifacts.
//
// Repacking is fully deterministic: the same manifest always produces the
// same byte stream and overflow report. That makes repack results safe to
// cache aggressively, keyed by a content hash of the manifest. The CLI
// uses the file backend under the XDG cache directory; the serve
// deployment can use the Redis backend so multiple instances share one
// cache; the null backend disables caching entirely.
package cache

import (
	"context"
	"time"
)

// TTLs for cached entries. Repack output is content-addressed, so the TTL
// only bounds disk/redis growth, not correctness.
const (
	// TTLArtifact is how long repacked byte streams and reports are kept.
	TTLArtifact = 7 * 24 * time.Hour
)

// Cache is the interface for cache backends.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key
	// was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with a TTL. A zero TTL means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer generates cache keys for the different artifact kinds.
type Keyer interface {
	// ArtifactKey generates a key for a repacked byte stream keyed by
	// the manifest content hash.
	ArtifactKey(manifestHash string) string

	// ReportKey generates a key for an overflow report keyed by the
	// manifest content hash.
	ReportKey(manifestHash string) string
}

// DefaultKeyer is the standard key scheme.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// ArtifactKey returns "artifact:<hash>".
func (DefaultKeyer) ArtifactKey(manifestHash string) string {
	return "artifact:" + manifestHash
}

// ReportKey returns "report:<hash>".
func (DefaultKeyer) ReportKey(manifestHash string) string {
	return "report:" + manifestHash
}

// ScopedKeyer wraps a Keyer with a prefix, isolating cache namespaces
// between deployments that share a backend.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(manifestHash string) string {
	return k.prefix + k.inner.ArtifactKey(manifestHash)
}

// ReportKey generates a prefixed report key.
func (k *ScopedKeyer) ReportKey(manifestHash string) string {
	return k.prefix + k.inner.ReportKey(manifestHash)
}
