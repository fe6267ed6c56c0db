package repack

import (
	"github.com/matzehuels/tablepack/pkg/errors"
)

// Overflow describes a single link whose encoded offset does not fit its
// declared width and signedness under the graph's current order.
type Overflow struct {
	Parent int   // index of the parent object
	Link   Link  // the failing link
	Offset int64 // the encoded (bias-adjusted) offset that failed
}

// positions returns the start and end byte position of every object under
// the current order. Objects are emitted root-first, i.e. in reverse of
// the graph's index order.
func (g *Graph) positions() (starts, ends []int64) {
	n := len(g.objs)
	starts = make([]int64, n)
	ends = make([]int64, n)

	var pos int64
	for i := n - 1; i >= 0; i-- {
		starts[i] = pos
		pos += int64(len(g.objs[i].Payload))
		ends[i] = pos
	}
	return starts, ends
}

// computeOffset returns the encoded offset a link would carry: the signed
// distance from the link's anchor to the child's start, minus the bias.
//
// A bias exceeding the raw offset is a caller precondition violation and
// yields an OFFSET_UNDERFLOW error.
func computeOffset(parent int, l Link, starts, ends []int64) (int64, error) {
	var offset int64
	switch l.Anchor {
	case AnchorHead:
		offset = starts[l.Child] - starts[parent]
	case AnchorTail:
		offset = starts[l.Child] - ends[parent]
	case AnchorAbsolute:
		offset = starts[l.Child]
	}

	if offset < l.Bias {
		return 0, errors.New(errors.ErrCodeOffsetUnderflow,
			"object %d link to %d: bias %d exceeds raw offset %d",
			parent, l.Child, l.Bias, offset)
	}
	return offset - l.Bias, nil
}

// fitsLink reports whether an encoded offset is representable in the
// link's width and signedness.
func fitsLink(offset int64, l Link) bool {
	if l.Signed {
		if l.Width == Wide {
			return offset >= -(int64(1)<<31) && offset < int64(1)<<31
		}
		return offset >= -(int64(1)<<15) && offset < int64(1)<<15
	}
	if l.Width == Wide {
		return offset >= 0 && offset < int64(1)<<32
	}
	return offset >= 0 && offset < int64(1)<<16
}

// WillOverflow reports whether any link's offset would overflow its field
// if the graph were serialized in its current order. It returns at the
// first failing link.
//
// An OFFSET_UNDERFLOW error means a link's bias exceeded its raw offset,
// which is fatal.
func (g *Graph) WillOverflow() (bool, error) {
	starts, ends := g.positions()

	for parent := range g.objs {
		for _, l := range g.objs[parent].Links {
			offset, err := computeOffset(parent, l, starts, ends)
			if err != nil {
				return false, err
			}
			if !fitsLink(offset, l) {
				return true, nil
			}
		}
	}
	return false, nil
}

// Overflows returns every link that would overflow under the current
// order. Unlike [Graph.WillOverflow] it does not stop at the first
// failure, making it suitable for diagnostics and reporting.
func (g *Graph) Overflows() ([]Overflow, error) {
	starts, ends := g.positions()

	var found []Overflow
	for parent := range g.objs {
		for _, l := range g.objs[parent].Links {
			offset, err := computeOffset(parent, l, starts, ends)
			if err != nil {
				return nil, err
			}
			if !fitsLink(offset, l) {
				found = append(found, Overflow{Parent: parent, Link: l, Offset: offset})
			}
		}
	}
	return found, nil
}
