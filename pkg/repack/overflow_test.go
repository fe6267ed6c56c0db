package repack

import (
	"testing"

	"github.com/matzehuels/tablepack/pkg/errors"
)

func TestFitsLinkBoundaries(t *testing.T) {
	tests := []struct {
		name   string
		offset int64
		width  Width
		signed bool
		want   bool
	}{
		{"signed narrow min", -32768, Narrow, true, true},
		{"signed narrow max", 32767, Narrow, true, true},
		{"signed narrow below min", -32769, Narrow, true, false},
		{"signed narrow above max", 32768, Narrow, true, false},
		{"unsigned narrow zero", 0, Narrow, false, true},
		{"unsigned narrow max", 65535, Narrow, false, true},
		{"unsigned narrow negative", -1, Narrow, false, false},
		{"unsigned narrow above max", 65536, Narrow, false, false},
		{"signed wide min", -(int64(1) << 31), Wide, true, true},
		{"signed wide max", int64(1)<<31 - 1, Wide, true, true},
		{"signed wide below min", -(int64(1) << 31) - 1, Wide, true, false},
		{"signed wide above max", int64(1) << 31, Wide, true, false},
		{"unsigned wide max", int64(1)<<32 - 1, Wide, false, true},
		{"unsigned wide above max", int64(1) << 32, Wide, false, false},
		{"unsigned wide negative", -1, Wide, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := Link{Width: tt.width, Signed: tt.signed}
			if got := fitsLink(tt.offset, l); got != tt.want {
				t.Errorf("fitsLink(%d, %s/signed=%v) = %v, want %v",
					tt.offset, tt.width, tt.signed, got, tt.want)
			}
		})
	}
}

func TestWillOverflowCleanChain(t *testing.T) {
	g, err := FromPacked(chainPacked())
	if err != nil {
		t.Fatalf("FromPacked: %v", err)
	}

	overflow, err := g.WillOverflow()
	if err != nil {
		t.Fatalf("WillOverflow: %v", err)
	}
	if overflow {
		t.Error("10-byte chain should not overflow")
	}
}

func TestWillOverflowNarrowRange(t *testing.T) {
	// root(10) then filler(70000) then far(4): the narrow link to far
	// encodes 70010, beyond the 16-bit range.
	g, err := FromPacked([]*Object{
		nil,
		{Name: "far", Payload: payload(4, 'f')},
		{Name: "filler", Payload: payload(70000, 'x')},
		{Name: "root", Payload: payload(10, 'r'), Links: []Link{
			{Child: 2, Position: 0, Width: Narrow},
			{Child: 1, Position: 2, Width: Narrow},
		}},
	})
	if err != nil {
		t.Fatalf("FromPacked: %v", err)
	}

	overflow, err := g.WillOverflow()
	if err != nil {
		t.Fatalf("WillOverflow: %v", err)
	}
	if !overflow {
		t.Error("link to far should overflow narrow range")
	}

	// A wide link to the same position fits.
	g.Object(g.Root()).Links[1].Width = Wide
	overflow, err = g.WillOverflow()
	if err != nil {
		t.Fatalf("WillOverflow: %v", err)
	}
	if overflow {
		t.Error("wide link should fit 70010")
	}
}

func TestComputeOffsetAnchors(t *testing.T) {
	// Layout: root(5) at 0, parent(20) at 5, child(4) at 25.
	g, err := FromPacked([]*Object{
		nil,
		{Name: "child", Payload: payload(4, 'c')},
		{Name: "parent", Payload: payload(20, 'p'), Links: []Link{
			{Child: 1, Position: 0, Anchor: AnchorTail},
		}},
		{Name: "root", Payload: payload(5, 'r'), Links: []Link{
			{Child: 2, Position: 0, Anchor: AnchorHead},
		}},
	})
	if err != nil {
		t.Fatalf("FromPacked: %v", err)
	}

	starts, ends := g.positions()
	if starts[2] != 0 || starts[1] != 5 || starts[0] != 25 {
		t.Fatalf("starts = %v, want [25 5 0]", starts)
	}
	if ends[1] != 25 {
		t.Fatalf("ends[parent] = %d, want 25", ends[1])
	}

	// Tail anchor: child start 25 minus parent end 25 = 0.
	tail := g.Object(1).Links[0]
	offset, err := computeOffset(1, tail, starts, ends)
	if err != nil {
		t.Fatalf("computeOffset(tail): %v", err)
	}
	if offset != 0 {
		t.Errorf("tail offset = %d, want 0", offset)
	}

	// Head anchor: parent start 5 minus root start 0 = 5.
	head := g.Object(2).Links[0]
	offset, err = computeOffset(2, head, starts, ends)
	if err != nil {
		t.Fatalf("computeOffset(head): %v", err)
	}
	if offset != 5 {
		t.Errorf("head offset = %d, want 5", offset)
	}
}

func TestComputeOffsetAbsoluteBias(t *testing.T) {
	// Child placed at byte 100, absolute anchor with bias 100: the
	// encoded offset collapses to zero.
	g, err := FromPacked([]*Object{
		nil,
		{Name: "child", Payload: payload(4, 'c')},
		{Name: "root", Payload: payload(100, 'r'), Links: []Link{
			{Child: 1, Position: 0, Width: Narrow, Signed: true, Anchor: AnchorAbsolute, Bias: 100},
		}},
	})
	if err != nil {
		t.Fatalf("FromPacked: %v", err)
	}

	starts, ends := g.positions()
	offset, err := computeOffset(1, g.Object(1).Links[0], starts, ends)
	if err != nil {
		t.Fatalf("computeOffset: %v", err)
	}
	if offset != 0 {
		t.Errorf("encoded offset = %d, want 0", offset)
	}

	overflow, err := g.WillOverflow()
	if err != nil {
		t.Fatalf("WillOverflow: %v", err)
	}
	if overflow {
		t.Error("bias-collapsed absolute offset should fit signed narrow")
	}
}

func TestWillOverflowBiasUnderflow(t *testing.T) {
	// Bias larger than the raw offset is a precondition violation.
	g, err := FromPacked([]*Object{
		nil,
		{Name: "child", Payload: payload(4, 'c')},
		{Name: "root", Payload: payload(10, 'r'), Links: []Link{
			{Child: 1, Position: 0, Anchor: AnchorAbsolute, Bias: 500},
		}},
	})
	if err != nil {
		t.Fatalf("FromPacked: %v", err)
	}

	_, err = g.WillOverflow()
	if err == nil {
		t.Fatal("WillOverflow succeeded, want OFFSET_UNDERFLOW")
	}
	if !errors.Is(err, errors.ErrCodeOffsetUnderflow) {
		t.Errorf("error code = %v, want OFFSET_UNDERFLOW", errors.GetCode(err))
	}
}

func TestOverflowsReportsAll(t *testing.T) {
	// root(12) then filler(70000), far1(4), far2(4): the link to filler
	// fits (offset 12); the links to far1 (70012) and far2 (70016) both
	// overflow.
	g, err := FromPacked([]*Object{
		nil,
		{Name: "far2", Payload: payload(4, 'g')},
		{Name: "far1", Payload: payload(4, 'f')},
		{Name: "filler", Payload: payload(70000, 'x')},
		{Name: "root", Payload: payload(12, 'r'), Links: []Link{
			{Child: 3, Position: 0, Width: Narrow},
			{Child: 2, Position: 2, Width: Narrow},
			{Child: 1, Position: 4, Width: Narrow},
		}},
	})
	if err != nil {
		t.Fatalf("FromPacked: %v", err)
	}

	found, err := g.Overflows()
	if err != nil {
		t.Fatalf("Overflows: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("Overflows reported %d links, want 2", len(found))
	}
	for _, o := range found {
		if o.Parent != g.Root() {
			t.Errorf("overflow parent = %d, want root %d", o.Parent, g.Root())
		}
		if o.Offset < 1<<16 {
			t.Errorf("reported offset %d unexpectedly fits", o.Offset)
		}
	}
}
