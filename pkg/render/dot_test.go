package render

import (
	"strings"
	"testing"

	"github.com/matzehuels/tablepack/pkg/repack"
)

func testGraph(t *testing.T) *repack.Graph {
	t.Helper()
	g, err := repack.FromPacked([]*repack.Object{
		nil,
		{Name: "far", Payload: make([]byte, 4)},
		{Name: "filler", Payload: make([]byte, 70000)},
		{Name: "root", Payload: make([]byte, 10), Links: []repack.Link{
			{Child: 2, Position: 0, Width: repack.Narrow},
			{Child: 1, Position: 2, Width: repack.Wide},
		}},
	})
	if err != nil {
		t.Fatalf("FromPacked: %v", err)
	}
	return g
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(testGraph(t), Options{})

	for _, want := range []string{
		"digraph G {",
		`"root"`,
		`"filler"`,
		`"root" -> "filler"`,
		`"root" -> "far" [style=dashed]`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT output missing %q:\n%s", want, dot)
		}
	}
}

func TestToDOTDetailed(t *testing.T) {
	dot := ToDOT(testGraph(t), Options{Detailed: true})

	if !strings.Contains(dot, "size: 70000") {
		t.Errorf("detailed DOT should include payload sizes:\n%s", dot)
	}
	if !strings.Contains(dot, "narrow") {
		t.Errorf("detailed DOT should label link widths:\n%s", dot)
	}
}

func TestToDOTMarksOverflows(t *testing.T) {
	// The narrow link to filler fits (offset 10); make far narrow too
	// and it overflows at 70010.
	g, err := repack.FromPacked([]*repack.Object{
		nil,
		{Name: "far", Payload: make([]byte, 4)},
		{Name: "filler", Payload: make([]byte, 70000)},
		{Name: "root", Payload: make([]byte, 10), Links: []repack.Link{
			{Child: 2, Position: 0, Width: repack.Narrow},
			{Child: 1, Position: 2, Width: repack.Narrow},
		}},
	})
	if err != nil {
		t.Fatalf("FromPacked: %v", err)
	}

	dot := ToDOT(g, Options{MarkOverflows: true})
	if !strings.Contains(dot, "color=red") {
		t.Errorf("overflowing link should be marked red:\n%s", dot)
	}
}

func TestToDOTUnnamedObjects(t *testing.T) {
	g, err := repack.FromPacked([]*repack.Object{
		nil,
		{Payload: make([]byte, 4)},
		{Payload: make([]byte, 8), Links: []repack.Link{{Child: 1, Position: 0}}},
	})
	if err != nil {
		t.Fatalf("FromPacked: %v", err)
	}

	dot := ToDOT(g, Options{})
	if !strings.Contains(dot, `"obj1" -> "obj0"`) {
		t.Errorf("unnamed objects should fall back to index IDs:\n%s", dot)
	}
}
