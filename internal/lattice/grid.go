package lattice

import (
	"strings"

	"bopokit/internal/lm"
)

// Anchor locates a node within the grid.
type Anchor struct {
	Node     *Node
	Location int
}

// span is the arena slot for all nodes starting at one grid position,
// kept in discovery order (ascending length).
type span struct {
	nodes []*Node
}

func (s *span) nodeOfLength(length int) *Node {
	for _, n := range s.nodes {
		if n.spanLen == length {
			return n
		}
	}
	return nil
}

func (s *span) dropLongerThan(maxLen int) {
	kept := s.nodes[:0]
	for _, n := range s.nodes {
		if n.spanLen <= maxLen {
			kept = append(kept, n)
		}
	}
	s.nodes = kept
}

// Grid is the composing lattice: ordered reading slots, a cursor in
// [0, Length()], and a span arena of candidate nodes sourced from the
// language model. Nodes are indexed by (start, length) so eviction and
// rebuild touch only the affected spans.
type Grid struct {
	model    lm.Model
	readings []string
	spans    []*span
	cursor   int
}

// NewGrid creates an empty grid over the given language model.
func NewGrid(model lm.Model) *Grid {
	return &Grid{model: model}
}

// Length returns the number of reading slots.
func (g *Grid) Length() int { return len(g.readings) }

// Cursor returns the current cursor position in [0, Length()].
func (g *Grid) Cursor() int { return g.cursor }

// SetCursor moves the cursor; positions outside [0, Length()] clamp.
func (g *Grid) SetCursor(pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(g.readings) {
		pos = len(g.readings)
	}
	g.cursor = pos
}

// Readings returns a copy of the reading slots.
func (g *Grid) Readings() []string {
	out := make([]string, len(g.readings))
	copy(out, g.readings)
	return out
}

// Clear resets the grid to empty.
func (g *Grid) Clear() {
	g.readings = nil
	g.spans = nil
	g.cursor = 0
}

// InsertReadingAtCursor splits the readings at the cursor, inserts one
// slot, rebuilds the nodes around the insertion point, and advances the
// cursor by one.
func (g *Grid) InsertReadingAtCursor(reading string) {
	at := g.cursor
	g.readings = append(g.readings, "")
	copy(g.readings[at+1:], g.readings[at:])
	g.readings[at] = reading

	g.expandAt(at)
	g.cursor = at + 1
	g.build()
}

// DeleteReadingBeforeCursor removes the slot before the cursor and
// rebuilds the affected nodes. It reports whether a slot was removed.
func (g *Grid) DeleteReadingBeforeCursor() bool {
	if g.cursor == 0 {
		return false
	}
	g.cursor--
	g.removeReadingAt(g.cursor)
	return true
}

// DeleteReadingAfterCursor removes the slot after the cursor and
// rebuilds the affected nodes. It reports whether a slot was removed.
func (g *Grid) DeleteReadingAfterCursor() bool {
	if g.cursor >= len(g.readings) {
		return false
	}
	g.removeReadingAt(g.cursor)
	return true
}

// RemoveHeadReadings evicts n leading slots, moving the cursor back by
// the same amount (clamped at zero).
func (g *Grid) RemoveHeadReadings(n int) {
	for i := 0; i < n && len(g.readings) > 0; i++ {
		if g.cursor > 0 {
			g.cursor--
		}
		g.removeReadingAt(0)
	}
}

func (g *Grid) removeReadingAt(at int) {
	g.readings = append(g.readings[:at], g.readings[at+1:]...)
	g.shrinkAt(at)
	g.build()
}

// expandAt inserts an empty span at location and drops every node whose
// range now straddles the insertion boundary.
func (g *Grid) expandAt(location int) {
	s := &span{}
	g.spans = append(g.spans, nil)
	copy(g.spans[location+1:], g.spans[location:])
	g.spans[location] = s

	for i := 0; i < location; i++ {
		g.spans[i].dropLongerThan(location - i)
	}
}

// shrinkAt removes the span at location and drops every node whose
// range covered the removed slot.
func (g *Grid) shrinkAt(location int) {
	g.spans = append(g.spans[:location], g.spans[location+1:]...)
	for i := 0; i < location; i++ {
		g.spans[i].dropLongerThan(location - i)
	}
}

// build creates missing nodes in the window around the cursor. Only
// spans within MaxSpanLength of the cursor can have changed.
func (g *Grid) build() {
	begin := g.cursor - MaxSpanLength
	if begin < 0 {
		begin = 0
	}
	end := g.cursor + MaxSpanLength
	if end > len(g.readings) {
		end = len(g.readings)
	}

	for p := begin; p < end; p++ {
		for q := 1; q <= MaxSpanLength && p+q <= len(g.readings); q++ {
			if g.spans[p].nodeOfLength(q) != nil {
				continue
			}
			key := strings.Join(g.readings[p:p+q], JoinSeparator)
			if !g.model.HasUnigramsForKey(key) {
				continue
			}
			node := newNode(key, q, g.model.UnigramsForKey(key))
			g.spans[p].nodes = append(g.spans[p].nodes, node)
		}
	}
}

// NodesCrossingOrEndingAt enumerates the nodes whose span crosses or
// ends at the given position, in discovery order: ascending start
// position, then ascending length.
func (g *Grid) NodesCrossingOrEndingAt(location int) []Anchor {
	var out []Anchor
	for i, s := range g.spans {
		if i >= location {
			break
		}
		for _, n := range s.nodes {
			if i+n.spanLen >= location {
				out = append(out, Anchor{Node: n, Location: i})
			}
		}
	}
	return out
}

// FixNodeSelectedCandidate pins the candidate with the given value on
// the nodes crossing or ending at location. Selections on the other
// crossing nodes are reset so a previous pin cannot fight the new one.
// It returns the anchor of a node carrying the value, if any.
func (g *Grid) FixNodeSelectedCandidate(location int, value string) (Anchor, bool) {
	var picked Anchor
	found := false
	for _, a := range g.NodesCrossingOrEndingAt(location) {
		a.Node.ResetSelection()
		if a.Node.SelectCandidate(value) {
			picked = a
			found = true
		}
	}
	return picked, found
}

// OverrideNodeScoreForSelectedCandidate raises the walk weight of the
// candidate with the given value on the nodes crossing or ending at
// location, without altering any candidate set.
func (g *Grid) OverrideNodeScoreForSelectedCandidate(location int, value string, score float64) {
	for _, a := range g.NodesCrossingOrEndingAt(location) {
		a.Node.ResetSelection()
		a.Node.OverrideScore(value, score)
	}
}
