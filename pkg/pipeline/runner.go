package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gagern/confoo/pkg/cache"
	"github.com/gagern/confoo/pkg/errors"
	cio "github.com/gagern/confoo/pkg/io"
	"github.com/gagern/confoo/pkg/mesh"
	"github.com/gagern/confoo/pkg/observability"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete parse → transform → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, input []byte, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	result := &Result{
		RunID:    uuid.NewString(),
		MeshHash: cache.Hash(input),
	}
	logger := opts.Logger.With("run", result.RunID)

	// Stage 1: Parse
	parseStart := time.Now()
	obj, err := r.Parse(ctx, input)
	if err != nil {
		return nil, err
	}
	result.Stats.ParseTime = time.Since(parseStart)
	result.Stats.Mesh = mesh.Count[int](obj)

	logger.Info("parsed mesh",
		"vertices", result.Stats.Mesh.Vertices,
		"triangles", result.Stats.Mesh.Triangles,
		"duration", result.Stats.ParseTime)

	// Stage 2: Transform
	transformStart := time.Now()
	flat, transformHit, err := r.TransformWithCacheInfo(ctx, obj, result.MeshHash, opts)
	if err != nil {
		return nil, err
	}
	result.Mesh = flat.Mesh
	result.Stats.TransformTime = time.Since(transformStart)
	result.Stats.Iterations = flat.Iterations
	result.Stats.Exit = flat.Exit
	result.Stats.GradientNorm = flat.GradientNorm
	result.CacheInfo.TransformHit = transformHit

	logger.Info("flattened mesh",
		"exit", flat.Exit,
		"iterations", flat.Iterations,
		"cached", transformHit,
		"duration", result.Stats.TransformTime)

	// Stage 3: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, flat.Mesh, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	logger.Info("rendered",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Parse reads an OBJ mesh and reports the outcome to the pipeline hooks.
func (r *Runner) Parse(ctx context.Context, input []byte) (*cio.ObjMesh, error) {
	start := time.Now()
	obj, err := Parse(input)
	vertices, triangles := 0, 0
	if obj != nil {
		vertices, triangles = len(obj.Used()), len(obj.Faces)
	}
	observability.Pipeline().OnParseComplete(ctx, vertices, triangles, time.Since(start), err)
	return obj, err
}

// TransformWithCacheInfo flattens m, reusing a cached result for the same
// input hash and transform options unless opts.Refresh is set.
func (r *Runner) TransformWithCacheInfo(ctx context.Context, m mesh.LocatedMesh[int], meshHash string, opts Options) (*Flattened, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForTransform(); err != nil {
		return nil, false, err
	}
	cacheKey := r.Keyer.MeshKey(meshHash, opts.TransformKeyOpts())

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err != nil {
			opts.Logger.Warn("cache lookup failed", "key", cacheKey, "err", err)
		} else if hit {
			var flat Flattened
			if err := json.Unmarshal(data, &flat); err == nil && flat.Mesh != nil {
				return &flat, true, nil // Cache hit
			}
			opts.Logger.Warn("discarding malformed cache entry", "key", cacheKey)
		}
	}

	start := time.Now()
	flat, err := Transform(ctx, m, opts)
	observability.Pipeline().OnTransformComplete(ctx, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	if data, err := json.Marshal(flat); err != nil {
		opts.Logger.Warn("cannot encode result for cache", "err", err)
	} else if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLMesh); err != nil {
		opts.Logger.Warn("cache store failed", "key", cacheKey, "err", err)
	}
	return flat, false, nil // Cache miss
}

// Transform is a convenience wrapper that calls TransformWithCacheInfo and discards the cache hit info.
func (r *Runner) Transform(ctx context.Context, m mesh.LocatedMesh[int], meshHash string, opts Options) (*Flattened, error) {
	flat, _, err := r.TransformWithCacheInfo(ctx, m, meshHash, opts)
	return flat, err
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit info.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, doc *cio.MeshDoc, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	// Compute cache key from the flattened mesh
	docData, err := json.Marshal(doc)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInternal, err, "serialize mesh for cache key")
	}
	cacheKeyHash := cache.Hash(docData)

	start := time.Now()
	artifacts := make(map[string][]byte, len(opts.Formats))
	var missing []string
	for _, format := range opts.Formats {
		if _, seen := artifacts[format]; seen {
			continue
		}
		cacheKey := r.Keyer.RenderKey(cacheKeyHash, opts.RenderKeyOpts(format))
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit && !opts.Refresh {
			artifacts[format] = data
		} else {
			missing = append(missing, format)
		}
	}

	if len(missing) == 0 {
		observability.Pipeline().OnRenderComplete(ctx, opts.Formats, time.Since(start), nil)
		return artifacts, true, nil // All artifacts from cache
	}

	// Render only what the cache lacked
	renderOpts := opts
	renderOpts.Formats = missing
	rendered, err := Render(ctx, doc, renderOpts)
	observability.Pipeline().OnRenderComplete(ctx, missing, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	for format, data := range rendered {
		artifacts[format] = data
		cacheKey := r.Keyer.RenderKey(cacheKeyHash, opts.RenderKeyOpts(format))
		_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLRender)
	}

	return artifacts, false, nil // Cache miss
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, doc *cio.MeshDoc, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, doc, opts)
	return artifacts, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
