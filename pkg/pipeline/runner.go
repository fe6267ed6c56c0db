package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/tablepack/pkg/cache"
	"github.com/matzehuels/tablepack/pkg/manifest"
	"github.com/matzehuels/tablepack/pkg/observability"
	"github.com/matzehuels/tablepack/pkg/repack"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and server use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different manifests.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If c is nil, a NullCache is used (caching disabled).
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

// Close releases the runner's cache backend.
func (r *Runner) Close() error {
	return r.Cache.Close()
}

// Execute runs the complete resolve → sort → emit pipeline with caching.
func (r *Runner) Execute(ctx context.Context, doc *manifest.Document, opts Options) (*Result, error) {
	docData, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("hash manifest: %w", err)
	}
	docHash := cache.Hash(docData)
	artifactKey := r.Keyer.ArtifactKey(docHash)
	reportKey := r.Keyer.ReportKey(docHash)

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if result, ok := r.fromCache(ctx, artifactKey, reportKey); ok {
			observability.Cache().OnCacheHit(ctx, "artifact")
			return result, nil
		}
		observability.Cache().OnCacheMiss(ctx, "artifact")
	}

	result, err := r.repack(ctx, doc)
	if err != nil {
		return nil, err
	}

	if !opts.Refresh {
		r.toCache(ctx, artifactKey, reportKey, result)
	}

	return result, nil
}

// repack runs the uncached pipeline stages.
func (r *Runner) repack(ctx context.Context, doc *manifest.Document) (*Result, error) {
	// Stage 1: Resolve
	packed, err := doc.Packed()
	if err != nil {
		return nil, err
	}

	importStart := time.Now()
	observability.Repack().OnImportStart(ctx, len(packed))
	g, err := repack.FromPacked(packed)
	observability.Repack().OnImportComplete(ctx, len(packed), time.Since(importStart), err)
	if err != nil {
		return nil, err
	}

	r.Logger.Info("imported object graph",
		"manifest", doc.Name,
		"objects", g.Len(),
		"duration", time.Since(importStart).Round(time.Microsecond))

	// Stage 2: Sort
	if err := r.sort(ctx, g, "kahn", g.SortKahn); err != nil {
		return nil, err
	}

	overflow, err := g.WillOverflow()
	if err != nil {
		return nil, err
	}
	usedFallback := overflow
	if overflow {
		r.Logger.Debug("kahn order overflows, falling back to shortest-distance sort")
		if err := r.sort(ctx, g, "shortest-distance", g.SortShortestDistance); err != nil {
			return nil, err
		}
	}

	// Stage 3: Emit
	emitStart := time.Now()
	observability.Repack().OnEmitStart(ctx, g.Len())
	sink := repack.NewBufferSink()
	err = g.Serialize(sink)
	if err != nil {
		observability.Repack().OnEmitComplete(ctx, 0, 0, time.Since(emitStart), err)
		return nil, err
	}

	stream, err := sink.Bytes()
	observability.Repack().OnEmitComplete(ctx, len(stream), len(sink.Overflows()), time.Since(emitStart), err)
	if err != nil {
		return nil, err
	}

	r.Logger.Info("emitted stream",
		"bytes", len(stream),
		"overflows", len(sink.Overflows()),
		"duration", time.Since(emitStart).Round(time.Microsecond))

	return &Result{
		Stream: stream,
		Report: Report{
			Manifest:     doc.Name,
			Objects:      g.Len(),
			StreamBytes:  len(stream),
			UsedFallback: usedFallback,
			Resolved:     len(sink.Overflows()) == 0,
			Overflows:    overflowDetails(g, sink.Overflows()),
		},
	}, nil
}

func (r *Runner) sort(ctx context.Context, g *repack.Graph, algorithm string, fn func() error) error {
	start := time.Now()
	observability.Repack().OnSortStart(ctx, algorithm, g.Len())
	err := fn()
	observability.Repack().OnSortComplete(ctx, algorithm, time.Since(start), err)
	if err != nil {
		return err
	}
	r.Logger.Debug("sorted graph",
		"algorithm", algorithm,
		"duration", time.Since(start).Round(time.Microsecond))
	return nil
}

// cachedResult is the cache wire format for a pipeline result.
type cachedResult struct {
	Stream []byte `json:"stream"`
	Report Report `json:"report"`
}

func (r *Runner) fromCache(ctx context.Context, artifactKey, reportKey string) (*Result, bool) {
	data, hit, err := r.Cache.Get(ctx, artifactKey)
	if err != nil || !hit {
		return nil, false
	}

	var cached cachedResult
	if err := json.Unmarshal(data, &cached); err != nil {
		// Invalid entry - drop it and recompute
		_ = r.Cache.Delete(ctx, artifactKey)
		_ = r.Cache.Delete(ctx, reportKey)
		return nil, false
	}

	return &Result{
		Stream:   cached.Stream,
		Report:   cached.Report,
		CacheHit: true,
	}, true
}

func (r *Runner) toCache(ctx context.Context, artifactKey, reportKey string, result *Result) {
	data, err := json.Marshal(cachedResult{Stream: result.Stream, Report: result.Report})
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, artifactKey, data, cache.TTLArtifact); err == nil {
		observability.Cache().OnCacheSet(ctx, "artifact", len(data))
	}

	if reportData, err := json.Marshal(result.Report); err == nil {
		if err := r.Cache.Set(ctx, reportKey, reportData, cache.TTLArtifact); err == nil {
			observability.Cache().OnCacheSet(ctx, "report", len(reportData))
		}
	}
}
