package repack

// ResolveOverflows re-serializes a packed object graph into the sink,
// choosing an object order in which offsets fit their declared widths.
//
// The packed list is in reverse serialization order with a leading nil
// sentinel, exactly as an upstream serializer hands it over. The driver
// imports it, applies Kahn's sort, and asks the overflow oracle whether
// the result is clean. If not, it falls back to the shortest-distance
// sort and emits unconditionally: the fallback may not resolve every
// overflow, and the caller inspects the sink's error state to decide
// whether to retry with strategies layered above this core.
//
// Fatal errors (malformed input, disconnected graph, bias underflow)
// abort before emission.
func ResolveOverflows(packed []*Object, s Sink) error {
	g, err := FromPacked(packed)
	if err != nil {
		return err
	}

	if err := g.SortKahn(); err != nil {
		return err
	}

	overflow, err := g.WillOverflow()
	if err != nil {
		return err
	}
	if overflow {
		if err := g.SortShortestDistance(); err != nil {
			return err
		}
		// The new order moves children, so check every link's bias again.
		if _, err := g.Overflows(); err != nil {
			return err
		}
	}

	return g.Serialize(s)
}
