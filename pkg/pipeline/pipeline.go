// Package pipeline provides the core repacking pipeline for tablepack.
//
// This package implements the complete load → sort → emit pipeline that
// can be used by CLI and server components. By centralizing this logic,
// we ensure consistent behavior across all entry points and avoid code
// duplication.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Resolve: turn a manifest into a packed object list and import it
//  2. Sort: Kahn's algorithm, with a shortest-distance fallback when the
//     overflow oracle predicts an unrepresentable offset
//  3. Emit: serialize the reordered graph and patch every offset field
//
// Results are cached by manifest content hash: repacking is
// deterministic, so identical manifests always yield identical artifacts.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, doc, pipeline.Options{})
//	if err != nil {
//	    return err
//	}
//	os.WriteFile("out.bin", result.Stream, 0644)
package pipeline

import (
	"strconv"

	"github.com/matzehuels/tablepack/pkg/repack"
)

// Options controls a pipeline execution.
type Options struct {
	// Refresh bypasses the cache for both read and write.
	Refresh bool
}

// Result is the outcome of a pipeline execution.
type Result struct {
	// Stream is the repacked byte stream.
	Stream []byte

	// Report summarizes the repack for machine consumption.
	Report Report

	// CacheHit reports whether the result came from the cache.
	CacheHit bool
}

// Report is the machine-readable summary of a repack. It is what the
// serve surface returns and what the CLI writes next to the binary
// output.
type Report struct {
	Manifest     string           `json:"manifest,omitempty"`
	Objects      int              `json:"objects"`
	StreamBytes  int              `json:"stream_bytes"`
	UsedFallback bool             `json:"used_fallback"`
	Resolved     bool             `json:"resolved"`
	Overflows    []OverflowDetail `json:"overflows,omitempty"`
}

// OverflowDetail describes one offset left unrepresentable in the final
// stream.
type OverflowDetail struct {
	Parent string `json:"parent"`
	Child  string `json:"child"`
	Width  string `json:"width"`
	Signed bool   `json:"signed"`
	Anchor string `json:"anchor"`
	Offset int64  `json:"offset"`
}

// overflowDetails converts sink overflow records into report entries,
// resolving object names from the graph.
func overflowDetails(g *repack.Graph, overflows []repack.Overflow) []OverflowDetail {
	if len(overflows) == 0 {
		return nil
	}
	name := func(i int) string {
		if obj := g.Object(i); obj.Name != "" {
			return obj.Name
		}
		return "obj" + strconv.Itoa(i)
	}
	details := make([]OverflowDetail, len(overflows))
	for i, o := range overflows {
		details[i] = OverflowDetail{
			Parent: name(o.Parent),
			Child:  name(o.Link.Child),
			Width:  o.Link.Width.String(),
			Signed: o.Link.Signed,
			Anchor: o.Link.Anchor.String(),
			Offset: o.Offset,
		}
	}
	return details
}
