package repack

// Sink receives a re-emitted object stream. It is the boundary back into
// the serializer that produced the packed input: the core appends raw
// payload bytes and registers deferred offset patches, and the sink writes
// the encoded offsets once final positions are known. The core never
// writes offset bytes itself.
//
// The sink reserves index 0 for its own nil object, so every target index
// the core registers is the graph index plus one.
type Sink interface {
	// Begin starts a new top-level emission.
	Begin()

	// PushObject opens a new object frame.
	PushObject()

	// AllocateBytes reserves n bytes in the current frame for payload
	// copy and returns the writable span, or nil if the sink is errored.
	// The span is only valid until the next allocation.
	AllocateBytes(n int) []byte

	// RegisterLink declares a deferred offset patch at the given byte
	// position within the current frame. target is the sink-side object
	// index (sentinel-adjusted).
	RegisterLink(position int, width Width, signed bool, target int, anchor Anchor, bias int64)

	// PopObject closes the current object frame. share allows the sink
	// to deduplicate identical frames; the repacker always passes false
	// because object identity must be preserved.
	PopObject(share bool)

	// End finalizes the emission, resolving all registered links.
	End()
}
