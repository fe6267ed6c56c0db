package repack

import (
	"github.com/matzehuels/tablepack/pkg/errors"
)

// Serialize re-emits the graph into the sink, root first. For each object
// the payload bytes are appended verbatim, every link field is zeroed to
// avoid leaking prior contents, and a deferred patch is registered with
// the sink. Target indices are incremented by one because the sink
// reserves index 0 for its own nil object.
//
// Serialize returns an INTERNAL_ERROR if the sink refuses an allocation;
// the sink is then left in its own errored state and no partial stream is
// observable as valid output.
func (g *Graph) Serialize(s Sink) error {
	s.Begin()
	for i := len(g.objs) - 1; i >= 0; i-- {
		obj := &g.objs[i]
		s.PushObject()

		buf := s.AllocateBytes(len(obj.Payload))
		if buf == nil && len(obj.Payload) > 0 {
			return errors.New(errors.ErrCodeInternal,
				"sink failed to allocate %d bytes for object %d", len(obj.Payload), i)
		}
		copy(buf, obj.Payload)

		for _, l := range obj.Links {
			for b := 0; b < l.Width.Bytes(); b++ {
				buf[l.Position+b] = 0
			}
			s.RegisterLink(l.Position, l.Width, l.Signed, l.Child+1, l.Anchor, l.Bias)
		}

		s.PopObject(false)
	}
	s.End()
	return nil
}
