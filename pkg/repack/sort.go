package repack

import (
	"github.com/matzehuels/tablepack/pkg/errors"
)

// SortKahn reorders the graph using Kahn's topological sort.
//
// The ready queue is strict FIFO on discovery order, seeded with the root
// (the highest index, which in reverse topological order is guaranteed to
// have no incoming edges). Dequeued objects are emitted root-first; the
// resulting order is then reversed so the root returns to the highest
// index and reverse topological order is re-established.
//
// Returns a GRAPH_STRUCTURE error if some object is never reached, which
// means the graph is disconnected or cyclic.
func (g *Graph) SortKahn() error {
	n := len(g.objs)
	if n <= 1 {
		return nil
	}

	edgeCount := g.IncomingEdgeCounts()
	queue := make([]int, 0, n)
	queue = append(queue, n-1)

	// Dequeue order is emission order: root first, leaves last.
	emitted := make([]int, 0, n)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		emitted = append(emitted, next)

		for _, l := range g.objs[next].Links {
			edgeCount[l.Child]--
			if edgeCount[l.Child] == 0 {
				queue = append(queue, l.Child)
			}
		}
	}

	if len(emitted) != n {
		return errors.New(errors.ErrCodeGraphStructure,
			"kahn sort reached %d of %d objects; graph is disconnected or cyclic",
			len(emitted), n)
	}

	return g.ApplyPermutation(reverseOrder(emitted))
}

// reverseOrder converts an emission order (root first) into a permutation
// for ApplyPermutation (root last, at the highest index).
func reverseOrder(emitted []int) []int {
	order := make([]int, len(emitted))
	for k, idx := range emitted {
		order[len(emitted)-1-k] = idx
	}
	return order
}
