package repack_test

import (
	"fmt"

	"github.com/matzehuels/tablepack/pkg/repack"
)

func ExampleResolveOverflows() {
	// A GSUB-style graph: the root table references a 80000-byte lookup
	// and a tiny coverage table, both through 16-bit offsets. In input
	// order the coverage table lands past the narrow range; the
	// repacker pulls it back next to the root.
	packed := []*repack.Object{
		nil, // serializer sentinel
		{Name: "coverage", Payload: make([]byte, 4)},
		{Name: "lookup", Payload: make([]byte, 80000)},
		{Name: "gsub", Payload: make([]byte, 10), Links: []repack.Link{
			{Child: 2, Position: 0, Width: repack.Narrow},
			{Child: 1, Position: 2, Width: repack.Narrow},
		}},
	}

	sink := repack.NewBufferSink()
	if err := repack.ResolveOverflows(packed, sink); err != nil {
		fmt.Println("repack failed:", err)
		return
	}

	stream, _ := sink.Bytes()
	fmt.Println("stream bytes:", len(stream))
	fmt.Println("unresolved overflows:", len(sink.Overflows()))
	// Output:
	// stream bytes: 80014
	// unresolved overflows: 0
}

func ExampleGraph_WillOverflow() {
	packed := []*repack.Object{
		nil,
		{Name: "far", Payload: make([]byte, 4)},
		{Name: "filler", Payload: make([]byte, 70000)},
		{Name: "root", Payload: make([]byte, 10), Links: []repack.Link{
			{Child: 2, Position: 0, Width: repack.Narrow},
			{Child: 1, Position: 2, Width: repack.Narrow},
		}},
	}

	g, err := repack.FromPacked(packed)
	if err != nil {
		fmt.Println("import failed:", err)
		return
	}

	overflow, _ := g.WillOverflow()
	fmt.Println("overflows in input order:", overflow)
	// Output:
	// overflows in input order: true
}
