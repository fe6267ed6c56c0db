package repack

import (
	"encoding/binary"

	"github.com/matzehuels/tablepack/pkg/errors"
)

// BufferSink is an in-memory [Sink] that appends object frames to a
// contiguous byte buffer and resolves deferred offset patches at [End].
// Offsets are encoded big-endian, matching font table conventions.
//
// Index convention: the sink owns a nil object at index 0. Frames are
// pushed root-first, and the sink numbers them downward so that the last
// pushed frame (the deepest leaf) is index 1. This matches the target
// indices the repacker registers: graph index plus one.
//
// An offset that still cannot be represented after patching is recorded
// rather than failing the emission; [BufferSink.Err] then reports
// OVERFLOW_UNRESOLVED and [BufferSink.Overflows] lists the failures.
// Callers layering additional strategies (table duplication, extension
// promotion) inspect these and retry with a rebuilt graph.
type BufferSink struct {
	buf    []byte
	frames []bufferFrame
	links  []deferredLink

	began   bool
	ended   bool
	open    bool
	current bufferFrame

	err       error
	overflows []Overflow
}

type bufferFrame struct {
	start, end int64
}

type deferredLink struct {
	frame    int // owning frame, in push order
	position int
	width    Width
	signed   bool
	target   int // sink-side object index (sentinel at 0)
	anchor   Anchor
	bias     int64
}

// NewBufferSink creates an empty buffer sink.
func NewBufferSink() *BufferSink {
	return &BufferSink{}
}

// Begin starts a new emission, discarding any previous state.
func (s *BufferSink) Begin() {
	*s = BufferSink{began: true}
}

// PushObject opens a new object frame.
func (s *BufferSink) PushObject() {
	if !s.began || s.ended || s.open {
		s.fail(errors.New(errors.ErrCodeInternal, "push outside an active emission"))
		return
	}
	s.open = true
	s.current = bufferFrame{start: int64(len(s.buf)), end: int64(len(s.buf))}
}

// AllocateBytes reserves n bytes in the current frame and returns the
// writable span, or nil if the sink is errored or no frame is open.
func (s *BufferSink) AllocateBytes(n int) []byte {
	if s.err != nil {
		return nil
	}
	if !s.open {
		s.fail(errors.New(errors.ErrCodeInternal, "allocate outside an object frame"))
		return nil
	}
	start := len(s.buf)
	s.buf = append(s.buf, make([]byte, n)...)
	s.current.end = int64(len(s.buf))
	return s.buf[start : start+n]
}

// RegisterLink declares a deferred offset patch within the current frame.
func (s *BufferSink) RegisterLink(position int, width Width, signed bool, target int, anchor Anchor, bias int64) {
	if s.err != nil {
		return
	}
	if !s.open {
		s.fail(errors.New(errors.ErrCodeInternal, "link registered outside an object frame"))
		return
	}
	s.links = append(s.links, deferredLink{
		frame:    len(s.frames),
		position: position,
		width:    width,
		signed:   signed,
		target:   target,
		anchor:   anchor,
		bias:     bias,
	})
}

// PopObject closes the current object frame. The share flag is accepted
// for interface compatibility; BufferSink never deduplicates frames.
func (s *BufferSink) PopObject(share bool) {
	if s.err != nil {
		return
	}
	if !s.open {
		s.fail(errors.New(errors.ErrCodeInternal, "pop without a matching push"))
		return
	}
	s.open = false
	s.frames = append(s.frames, s.current)
}

// End finalizes the emission and resolves every registered link.
func (s *BufferSink) End() {
	if s.err != nil {
		return
	}
	if !s.began || s.ended || s.open {
		s.fail(errors.New(errors.ErrCodeInternal, "end outside an active emission"))
		return
	}
	s.ended = true

	for _, l := range s.links {
		s.patch(l)
		if s.err != nil {
			return
		}
	}

	if len(s.overflows) > 0 {
		s.err = errors.New(errors.ErrCodeOverflowUnresolved,
			"%d offset(s) remain unrepresentable after repacking", len(s.overflows))
	}
}

// patch writes one resolved offset into the buffer. Unrepresentable
// offsets are truncated to the field width and recorded.
func (s *BufferSink) patch(l deferredLink) {
	owner := s.frames[l.frame]

	targetFrame := len(s.frames) - l.target
	if l.target < 1 || targetFrame < 0 || targetFrame >= len(s.frames) {
		s.fail(errors.New(errors.ErrCodeInternal, "link targets unknown object %d", l.target))
		return
	}
	targetStart := s.frames[targetFrame].start

	var offset int64
	switch l.anchor {
	case AnchorHead:
		offset = targetStart - owner.start
	case AnchorTail:
		offset = targetStart - owner.end
	case AnchorAbsolute:
		offset = targetStart
	}

	if offset < l.bias {
		s.fail(errors.New(errors.ErrCodeOffsetUnderflow,
			"bias %d exceeds raw offset %d", l.bias, offset))
		return
	}
	offset -= l.bias

	link := Link{Width: l.width, Signed: l.signed}
	if !fitsLink(offset, link) {
		s.overflows = append(s.overflows, Overflow{
			Parent: len(s.frames) - 1 - l.frame,
			Link: Link{
				Child:    l.target - 1,
				Position: l.position,
				Width:    l.width,
				Signed:   l.signed,
				Anchor:   l.anchor,
				Bias:     l.bias,
			},
			Offset: offset,
		})
	}

	field := s.buf[owner.start+int64(l.position):]
	if l.width == Wide {
		binary.BigEndian.PutUint32(field[:4], uint32(offset))
	} else {
		binary.BigEndian.PutUint16(field[:2], uint16(offset))
	}
}

func (s *BufferSink) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

// Err returns the sink's error state. A nil result means the emission is
// complete and every offset was representable. An OVERFLOW_UNRESOLVED
// error means the stream was emitted but at least one offset field holds
// a truncated value.
func (s *BufferSink) Err() error { return s.err }

// Overflows returns the links whose offsets remained unrepresentable.
// The Parent and Child fields are graph indices (sentinel removed).
func (s *BufferSink) Overflows() []Overflow { return s.overflows }

// Bytes returns the emitted stream. It returns an error for any sink
// failure other than unresolved overflows: an overflowed stream is still
// returned, with Err reporting OVERFLOW_UNRESOLVED, so that callers can
// layer further strategies or inspect the damage.
func (s *BufferSink) Bytes() ([]byte, error) {
	if s.err != nil && !errors.Is(s.err, errors.ErrCodeOverflowUnresolved) {
		return nil, s.err
	}
	if !s.ended {
		return nil, errors.New(errors.ErrCodeInternal, "emission not finalized")
	}
	return s.buf, nil
}

// Ensure BufferSink implements Sink.
var _ Sink = (*BufferSink)(nil)
