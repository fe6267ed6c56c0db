package repack

import (
	"encoding/binary"
	"testing"

	"github.com/matzehuels/tablepack/pkg/errors"
)

// payload returns an n-byte payload filled with the given tag, so tests
// can identify objects after reordering.
func payload(n int, tag byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = tag
	}
	return b
}

func u16(b []byte) uint16 { return binary.BigEndian.Uint16(b) }
func u32(b []byte) uint32 { return binary.BigEndian.Uint32(b) }

// chainPacked builds the packed input for root → A → B with 10-byte
// payloads and unsigned narrow head links at position 0, sentinel
// included: [nil, B, A, root].
func chainPacked() []*Object {
	return []*Object{
		nil,
		{Name: "B", Payload: payload(10, 'B')},
		{Name: "A", Payload: payload(10, 'A'), Links: []Link{{Child: 1, Position: 0}}},
		{Name: "root", Payload: payload(10, 'R'), Links: []Link{{Child: 2, Position: 0}}},
	}
}

func TestFromPackedDropsSentinel(t *testing.T) {
	g, err := FromPacked(chainPacked())
	if err != nil {
		t.Fatalf("FromPacked: %v", err)
	}

	if g.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", g.Len())
	}
	if g.Root() != 2 {
		t.Errorf("Root() = %d, want 2", g.Root())
	}

	// Link targets must be decremented for the dropped sentinel.
	if got := g.Object(2).Links[0].Child; got != 1 {
		t.Errorf("root child = %d, want 1", got)
	}
	if got := g.Object(1).Links[0].Child; got != 0 {
		t.Errorf("A child = %d, want 0", got)
	}
}

func TestFromPackedWithoutSentinel(t *testing.T) {
	g, err := FromPacked([]*Object{
		{Name: "leaf", Payload: payload(4, 'L')},
		{Name: "root", Payload: payload(4, 'R'), Links: []Link{{Child: 0, Position: 0}}},
	})
	if err != nil {
		t.Fatalf("FromPacked: %v", err)
	}
	if g.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", g.Len())
	}
	if got := g.Object(1).Links[0].Child; got != 0 {
		t.Errorf("child = %d, want 0 (no sentinel adjustment)", got)
	}
}

func TestFromPackedValidation(t *testing.T) {
	tests := []struct {
		name   string
		packed []*Object
	}{
		{
			name:   "nil non-sentinel object",
			packed: []*Object{nil, {Payload: payload(4, 'x')}, nil},
		},
		{
			name: "child out of range",
			packed: []*Object{
				{Payload: payload(4, 'a')},
				{Payload: payload(4, 'b'), Links: []Link{{Child: 5, Position: 0}}},
			},
		},
		{
			name: "negative child after sentinel adjustment",
			packed: []*Object{
				nil,
				{Payload: payload(4, 'a'), Links: []Link{{Child: 0, Position: 0}}},
			},
		},
		{
			name: "field exceeds payload",
			packed: []*Object{
				{Payload: payload(4, 'a')},
				{Payload: payload(4, 'b'), Links: []Link{{Child: 0, Position: 3}}},
			},
		},
		{
			name: "wide field exceeds payload",
			packed: []*Object{
				{Payload: payload(4, 'a')},
				{Payload: payload(4, 'b'), Links: []Link{{Child: 0, Position: 1, Width: Wide}}},
			},
		},
		{
			name: "negative bias",
			packed: []*Object{
				{Payload: payload(4, 'a')},
				{Payload: payload(4, 'b'), Links: []Link{{Child: 0, Position: 0, Bias: -1}}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromPacked(tt.packed)
			if err == nil {
				t.Fatal("FromPacked succeeded, want INVALID_INPUT")
			}
			if !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("error code = %v, want INVALID_INPUT", errors.GetCode(err))
			}
		})
	}
}

func TestIncomingEdgeCounts(t *testing.T) {
	// Diamond with a parallel edge: root → A, root → B, A → leaf,
	// B → leaf twice.
	g, err := FromPacked([]*Object{
		{Name: "leaf", Payload: payload(4, 'l')},
		{Name: "B", Payload: payload(8, 'b'), Links: []Link{
			{Child: 0, Position: 0},
			{Child: 0, Position: 2},
		}},
		{Name: "A", Payload: payload(4, 'a'), Links: []Link{{Child: 0, Position: 0}}},
		{Name: "root", Payload: payload(4, 'r'), Links: []Link{
			{Child: 2, Position: 0},
			{Child: 1, Position: 2},
		}},
	})
	if err != nil {
		t.Fatalf("FromPacked: %v", err)
	}

	counts := g.IncomingEdgeCounts()
	want := []int{3, 1, 1, 0} // parallel links count per occurrence
	for i, w := range want {
		if counts[i] != w {
			t.Errorf("counts[%d] = %d, want %d", i, counts[i], w)
		}
	}
}

func TestApplyPermutation(t *testing.T) {
	g, err := FromPacked(chainPacked())
	if err != nil {
		t.Fatalf("FromPacked: %v", err)
	}

	// Identity keeps everything in place.
	if err := g.ApplyPermutation([]int{0, 1, 2}); err != nil {
		t.Fatalf("identity permutation: %v", err)
	}
	if g.Object(2).Name != "root" || g.Object(0).Name != "B" {
		t.Error("identity permutation moved objects")
	}

	// Swap B and A; links must follow.
	if err := g.ApplyPermutation([]int{1, 0, 2}); err != nil {
		t.Fatalf("swap permutation: %v", err)
	}
	if g.Object(0).Name != "A" || g.Object(1).Name != "B" {
		t.Fatalf("swap permutation order wrong: %s %s", g.Object(0).Name, g.Object(1).Name)
	}
	if got := g.Object(2).Links[0].Child; got != 0 {
		t.Errorf("root link = %d, want 0 (remapped to A)", got)
	}
	if got := g.Object(0).Links[0].Child; got != 1 {
		t.Errorf("A link = %d, want 1 (remapped to B)", got)
	}
}

func TestApplyPermutationInvalid(t *testing.T) {
	g, err := FromPacked(chainPacked())
	if err != nil {
		t.Fatalf("FromPacked: %v", err)
	}

	tests := []struct {
		name  string
		order []int
	}{
		{"wrong length", []int{0, 1}},
		{"duplicate entry", []int{0, 0, 2}},
		{"out of range", []int{0, 1, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := g.ApplyPermutation(tt.order); err == nil {
				t.Error("ApplyPermutation succeeded, want error")
			}
		})
	}
}

func TestFromPackedCopiesLinks(t *testing.T) {
	packed := chainPacked()
	g, err := FromPacked(packed)
	if err != nil {
		t.Fatalf("FromPacked: %v", err)
	}

	if err := g.SortKahn(); err != nil {
		t.Fatalf("SortKahn: %v", err)
	}

	// The caller's link slices must be untouched by import adjustment
	// and permutation remapping.
	if got := packed[3].Links[0].Child; got != 2 {
		t.Errorf("caller link mutated: child = %d, want 2", got)
	}
}
