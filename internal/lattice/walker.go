package lattice

import "math"

// Walk runs the decoder over the grid: a longest-path search over the
// DAG whose states are grid positions and whose edges are nodes, each
// weighted by its current score. Positions are processed from the grid's
// end backward, accumulating the best cumulative score and best
// successor per position; the chosen path is then traced forward.
//
// Tie-break rule: when two edges out of a position reach equal
// cumulative score, the node discovered first wins. Discovery order is
// span-arena order (ascending start position, ascending length), and the
// scan keeps the incumbent on ties, so the earliest maximal edge is
// retained. The rule is deterministic across runs.
//
// The returned path is forward-ordered, contiguous, and covers exactly
// [0, Length()). Complexity is O(W²) in the grid width W.
func Walk(g *Grid) []Anchor {
	width := len(g.readings)
	if width == 0 {
		return nil
	}

	best := make([]float64, width+1)
	succ := make([]*Node, width)
	for i := 0; i < width; i++ {
		best[i] = math.Inf(-1)
	}

	for pos := width - 1; pos >= 0; pos-- {
		for _, node := range g.spans[pos].nodes {
			next := pos + node.spanLen
			if next > width || math.IsInf(best[next], -1) {
				continue
			}
			if score := node.Score() + best[next]; score > best[pos] {
				best[pos] = score
				succ[pos] = node
			}
		}
	}

	var path []Anchor
	for pos := 0; pos < width; {
		node := succ[pos]
		if node == nil {
			// A reading without model support cannot enter the grid, so
			// every position has at least a single-slot node.
			break
		}
		path = append(path, Anchor{Node: node, Location: pos})
		pos += node.spanLen
	}
	return path
}
