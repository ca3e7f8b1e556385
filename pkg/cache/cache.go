// Package cache stores flattened meshes and rendered artifacts between runs.
//
// A [Cache] is a plain byte store with expiry. Three backends exist:
// [FileCache] for the CLI, [RedisCache] for shared deployments of the HTTP
// server, and [NullCache] when caching is disabled. Keys are derived by a
// [Keyer] from the content hash of the input mesh and every option that
// influences the result, so a changed option never returns a stale entry.
package cache

import (
	"context"
	"time"
)

// Entry lifetimes.
const (
	TTLMesh   = 24 * time.Hour
	TTLRender = 24 * time.Hour
)

// Cache is a key/value store for serialized results.
type Cache interface {
	// Get returns the data stored under key. A missing or expired entry is
	// reported as a miss, not as an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means the entry never
	// expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the resources of the backend.
	Close() error
}

// Keyer derives cache keys.
type Keyer interface {
	// MeshKey names the flattened mesh computed from the input with the
	// given content hash.
	MeshKey(meshHash string, opts TransformKeyOpts) string

	// RenderKey names one rendered artifact of a flattened mesh.
	RenderKey(resultHash string, opts RenderKeyOpts) string
}

// TransformKeyOpts lists the transform options that change the result.
type TransformKeyOpts struct {
	InputGeometry   string          `json:"in"`
	OutputGeometry  string          `json:"out"`
	Isometric       bool            `json:"iso,omitempty"`
	Angles          map[int]float64 `json:"angles,omitempty"`
	AngleErrorBound float64         `json:"bound"`
	MaxIterations   int             `json:"max_iter"`
	LineSearch      [3]float64      `json:"search"`
	Start           [3]int          `json:"start,omitempty"`
}

// RenderKeyOpts lists the options of one rendering.
type RenderKeyOpts struct {
	Format string `json:"format"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Labels bool   `json:"labels,omitempty"`
}

// DefaultKeyer produces keys of the form kind:sha256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// MeshKey implements [Keyer].
func (DefaultKeyer) MeshKey(meshHash string, opts TransformKeyOpts) string {
	return hashKey("mesh", meshHash, opts)
}

// RenderKey implements [Keyer].
func (DefaultKeyer) RenderKey(resultHash string, opts RenderKeyOpts) string {
	return hashKey("render", resultHash, opts)
}
