// Package repack reorders serialized font-table object graphs so that every
// inter-object offset fits within its declared field width.
//
// # Overview
//
// Font container formats encode cross-table and intra-table references as
// byte offsets from an anchor point, often only 16 bits wide. A naive
// serialization order can place a referenced table so far from its referrer
// that the offset no longer fits its field. This package rescues such
// outputs without recomputing any table content: objects are treated as
// opaque byte payloads connected by typed offset links, and the repacker
// searches for a serialization order in which all offsets are representable.
//
// # Basic Usage
//
// Import a packed object list with [FromPacked], or run the whole driver
// with [ResolveOverflows]:
//
//	sink := repack.NewBufferSink()
//	if err := repack.ResolveOverflows(packed, sink); err != nil {
//	    return err
//	}
//	stream, err := sink.Bytes()
//
// The driver applies Kahn's topological sort, asks the overflow oracle
// whether any link would overflow, falls back to a shortest-distance sort
// biased toward keeping narrow-link children close to their parents, and
// re-emits the byte stream with patched offsets.
//
// # Graph Shape
//
// A [Graph] holds objects in reverse topological order: the root sits at
// the highest index and leaves at the lowest. Every link's parent index is
// strictly greater than its child index. The input list follows the
// serializer's convention of a leading nil sentinel at index 0, which
// [FromPacked] drops (adjusting link targets); [Graph.Serialize] adds the
// adjustment back because the downstream sink reserves index 0 for its own
// nil object.
//
// # Ownership
//
// Payload byte slices are borrowed, not copied. The buffers backing them
// must remain valid for the lifetime of the Graph. Links are copied on
// import, so reorderings never mutate caller-owned data.
//
// # Concurrency
//
// All operations are single-threaded and CPU-bound. A Graph is owned by a
// single caller for the duration of a repack; nothing in this package
// blocks, yields, or performs I/O.
package repack
