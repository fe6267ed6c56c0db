package repack

import (
	"math"

	"github.com/matzehuels/tablepack/pkg/errors"
)

// Edge weight penalties by field width. The penalty represents the price
// of placing a child just beyond a link's representable range: narrow
// links overflow easily and prefer nearby children, wide links are rarely
// the bottleneck and are effectively deprioritized.
const (
	narrowPenalty int64 = 1 << 16
	widePenalty   int64 = 1 << 32
)

func linkWeight(child *Object, l Link) int64 {
	penalty := narrowPenalty
	if l.Width == Wide {
		penalty = widePenalty
	}
	return int64(len(child.Payload)) + penalty
}

// SortShortestDistance reorders the graph so that objects closest to the
// root by weighted distance are emitted first. Distances come from
// Dijkstra's algorithm with edge weight len(child payload) plus a width
// penalty; among ready objects the one with the smallest distance is
// emitted next, ties broken by the smaller index.
//
// Returns a GRAPH_STRUCTURE error if some object is unreachable from the
// root.
func (g *Graph) SortShortestDistance() error {
	n := len(g.objs)
	if n <= 1 {
		return nil
	}

	dist, err := g.computeDistances()
	if err != nil {
		return err
	}

	edgeCount := g.IncomingEdgeCounts()
	ready := make([]int, 0, n)
	ready = append(ready, n-1)

	emitted := make([]int, 0, n)
	for len(ready) > 0 {
		pos := closestObject(ready, dist)
		next := ready[pos]
		ready = append(ready[:pos], ready[pos+1:]...)
		emitted = append(emitted, next)

		for _, l := range g.objs[next].Links {
			edgeCount[l.Child]--
			if edgeCount[l.Child] == 0 {
				ready = append(ready, l.Child)
			}
		}
	}

	if len(emitted) != n {
		return errors.New(errors.ErrCodeGraphStructure,
			"distance sort reached %d of %d objects; graph is disconnected or cyclic",
			len(emitted), n)
	}

	return g.ApplyPermutation(reverseOrder(emitted))
}

// computeDistances runs Dijkstra's algorithm from the root and returns the
// weighted distance to every object. Distances are 64-bit: weights can
// reach 2^32 and sum across long paths.
//
// Min extraction is a linear scan, O(V^2) overall. Object graphs from
// font subsetting are small enough that an addressable priority queue has
// not been worth it.
func (g *Graph) computeDistances() ([]int64, error) {
	n := len(g.objs)
	dist := make([]int64, n)
	for i := range dist {
		dist[i] = math.MaxInt64
	}
	dist[n-1] = 0

	visited := make([]bool, n)
	for remaining := n; remaining > 0; remaining-- {
		next := -1
		for i := 0; i < n; i++ {
			if visited[i] {
				continue
			}
			if next == -1 || dist[i] < dist[next] {
				next = i
			}
		}
		if dist[next] == math.MaxInt64 {
			return nil, errors.New(errors.ErrCodeGraphStructure,
				"object %d is unreachable from the root", next)
		}
		visited[next] = true

		for _, l := range g.objs[next].Links {
			if visited[l.Child] {
				continue
			}
			candidate := dist[next] + linkWeight(&g.objs[l.Child], l)
			if candidate < dist[l.Child] {
				dist[l.Child] = candidate
			}
		}
	}

	return dist, nil
}

// closestObject returns the position within candidates of the entry with
// the minimum distance, ties broken by the smaller object index.
func closestObject(candidates []int, dist []int64) int {
	best := 0
	for i := 1; i < len(candidates); i++ {
		c, b := candidates[i], candidates[best]
		if dist[c] < dist[b] || (dist[c] == dist[b] && c < b) {
			best = i
		}
	}
	return best
}
