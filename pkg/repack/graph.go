package repack

import (
	"github.com/matzehuels/tablepack/pkg/errors"
)

// Width is the byte width of an encoded offset field.
type Width int

const (
	// Narrow is a 16-bit (2 byte) offset field.
	Narrow Width = iota
	// Wide is a 32-bit (4 byte) offset field.
	Wide
)

// Bytes returns the number of bytes the encoded field occupies.
func (w Width) Bytes() int {
	if w == Wide {
		return 4
	}
	return 2
}

// String returns "narrow" or "wide".
func (w Width) String() string {
	if w == Wide {
		return "wide"
	}
	return "narrow"
}

// Anchor identifies the base point against which a link's offset is
// measured.
type Anchor int

const (
	// AnchorHead measures from the parent object's first byte.
	AnchorHead Anchor = iota
	// AnchorTail measures from one past the parent object's last byte.
	AnchorTail
	// AnchorAbsolute measures from byte zero of the output stream.
	AnchorAbsolute
)

// String returns "head", "tail" or "absolute".
func (a Anchor) String() string {
	switch a {
	case AnchorTail:
		return "tail"
	case AnchorAbsolute:
		return "absolute"
	default:
		return "head"
	}
}

// Link is a directed reference from a parent object to a child object,
// encoded as an offset field inside the parent's payload.
type Link struct {
	Child    int    // index of the child object within the Graph
	Position int    // byte offset of the encoded field inside the parent payload
	Width    Width  // field width (narrow = 16 bit, wide = 32 bit)
	Signed   bool   // whether the field is signed
	Anchor   Anchor // base point the offset is measured from
	Bias     int64  // constant subtracted from the raw offset before encoding
}

// Object is an opaque byte payload plus its outbound links. The payload is
// a borrowed slice into a buffer owned upstream; it is never copied.
//
// Name is an optional diagnostic label used by tooling (manifests,
// visualization, the inspect TUI). The repacking algorithms ignore it.
type Object struct {
	Name    string
	Payload []byte
	Links   []Link
}

// Size returns the payload length in bytes.
func (o *Object) Size() int { return len(o.Payload) }

// Graph is an object graph held in reverse topological order: the root
// occupies the highest index and leaves the lowest. For every link the
// parent's index is strictly greater than the child's.
//
// The zero value is not usable - construct with [FromPacked].
// Graph is not safe for concurrent use without external synchronization.
type Graph struct {
	objs []Object
}

// FromPacked constructs a Graph from a packed object list in reverse
// serialization order, as produced by an upstream serializer.
//
// If the list begins with a nil sentinel object it is dropped and every
// link's child index is decremented by one to compensate. Link slices are
// copied so later reorderings never mutate caller-owned data; payload
// slices are borrowed and must outlive the Graph.
//
// FromPacked returns an INVALID_INPUT error if a non-sentinel entry is
// nil, a link's encoded field falls outside its parent's payload, a link
// references an out-of-range child, or a bias is negative.
func FromPacked(packed []*Object) (*Graph, error) {
	removedNil := false
	if len(packed) > 0 && packed[0] == nil {
		packed = packed[1:]
		removedNil = true
	}

	g := &Graph{objs: make([]Object, 0, len(packed))}
	for i, src := range packed {
		if src == nil {
			return nil, errors.New(errors.ErrCodeInvalidInput, "object %d is nil", i)
		}
		obj := Object{
			Name:    src.Name,
			Payload: src.Payload,
			Links:   make([]Link, len(src.Links)),
		}
		copy(obj.Links, src.Links)
		if removedNil {
			for j := range obj.Links {
				obj.Links[j].Child--
			}
		}
		g.objs = append(g.objs, obj)
	}

	for i := range g.objs {
		obj := &g.objs[i]
		for _, l := range obj.Links {
			if l.Child < 0 || l.Child >= len(g.objs) {
				return nil, errors.New(errors.ErrCodeInvalidInput,
					"object %d links to out-of-range child %d", i, l.Child)
			}
			if l.Position < 0 || l.Position+l.Width.Bytes() > len(obj.Payload) {
				return nil, errors.New(errors.ErrCodeInvalidInput,
					"object %d link field at %d exceeds payload of %d bytes",
					i, l.Position, len(obj.Payload))
			}
			if l.Bias < 0 {
				return nil, errors.New(errors.ErrCodeInvalidInput,
					"object %d link has negative bias %d", i, l.Bias)
			}
		}
	}

	return g, nil
}

// Len returns the number of objects in the graph.
func (g *Graph) Len() int { return len(g.objs) }

// Root returns the index of the root object, or -1 for an empty graph.
// The root is always the highest index in reverse topological order.
func (g *Graph) Root() int { return len(g.objs) - 1 }

// Object returns the object at index i. The returned pointer refers to
// graph-owned storage and is invalidated by the next sort.
func (g *Graph) Object(i int) *Object { return &g.objs[i] }

// Objects returns the graph's objects in current order. The slice is
// graph-owned; treat it as a read-only view.
func (g *Graph) Objects() []Object { return g.objs }

// IncomingEdgeCounts returns, for every object, the number of incoming
// links. Parallel links between the same pair of objects contribute once
// per occurrence, which is what Kahn decrement bookkeeping requires.
func (g *Graph) IncomingEdgeCounts() []int {
	counts := make([]int, len(g.objs))
	for i := range g.objs {
		for _, l := range g.objs[i].Links {
			counts[l.Child]++
		}
	}
	return counts
}

// ApplyPermutation reorders the graph so that the object previously at
// index order[k] becomes the new index k, and rewrites every link's child
// accordingly. order must be a permutation of [0, Len).
func (g *Graph) ApplyPermutation(order []int) error {
	if len(order) != len(g.objs) {
		return errors.New(errors.ErrCodeGraphStructure,
			"permutation covers %d of %d objects", len(order), len(g.objs))
	}

	inverse := make([]int, len(g.objs))
	for i := range inverse {
		inverse[i] = -1
	}
	for newIdx, oldIdx := range order {
		if oldIdx < 0 || oldIdx >= len(g.objs) || inverse[oldIdx] != -1 {
			return errors.New(errors.ErrCodeGraphStructure,
				"invalid permutation entry %d at position %d", oldIdx, newIdx)
		}
		inverse[oldIdx] = newIdx
	}

	reordered := make([]Object, len(g.objs))
	for newIdx, oldIdx := range order {
		reordered[newIdx] = g.objs[oldIdx]
	}
	for i := range reordered {
		for j := range reordered[i].Links {
			reordered[i].Links[j].Child = inverse[reordered[i].Links[j].Child]
		}
	}

	g.objs = reordered
	return nil
}
