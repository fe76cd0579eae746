// Package lattice implements the composing lattice: an ordered sequence
// of reading slots, candidate-bearing nodes spanning contiguous reading
// ranges, and the dynamic-programming walker that picks the best
// non-overlapping node cover.
package lattice

import (
	"sort"

	"bopokit/internal/lm"
)

// MaxSpanLength bounds how many readings a single node may span; the
// dictionary carries no phrases longer than this.
const MaxSpanLength = 6

// JoinSeparator joins individual readings into a multi-reading node key.
const JoinSeparator = "-"

// pinnedScore is the score a pinned candidate contributes to the walk.
// It dominates every dictionary score, forcing the path through the
// user's explicit choice.
const pinnedScore = 99.0

// Node spans one or more consecutive readings and carries an ordered
// candidate list. A node may have a pinned selection (from an explicit
// candidate pick) or a floating score override (from the override
// model's suggestion).
type Node struct {
	key      string
	spanLen  int
	unigrams []lm.Unigram

	selected      int
	pinned        bool
	overridden    bool
	overrideScore float64
}

func newNode(key string, spanLen int, unigrams []lm.Unigram) *Node {
	sorted := make([]lm.Unigram, len(unigrams))
	copy(sorted, unigrams)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	return &Node{key: key, spanLen: spanLen, unigrams: sorted}
}

// Key returns the joined reading key the node was built from.
func (n *Node) Key() string { return n.key }

// SpanningLength returns how many reading slots the node covers.
func (n *Node) SpanningLength() int { return n.spanLen }

// Candidates returns the node's candidate values in score order.
func (n *Node) Candidates() []string {
	out := make([]string, len(n.unigrams))
	for i, u := range n.unigrams {
		out[i] = u.Value
	}
	return out
}

// CurrentValue returns the currently selected candidate's value.
func (n *Node) CurrentValue() string {
	if len(n.unigrams) == 0 {
		return ""
	}
	return n.unigrams[n.selected].Value
}

// Score returns the weight the node contributes to a walk: the pinned
// score if pinned, the override score if overridden, otherwise the
// selected candidate's own score.
func (n *Node) Score() float64 {
	switch {
	case len(n.unigrams) == 0:
		return 0
	case n.pinned:
		return pinnedScore
	case n.overridden:
		return n.overrideScore
	default:
		return n.unigrams[n.selected].Score
	}
}

// HighestUnigramScore returns the top candidate's stored score.
func (n *Node) HighestUnigramScore() float64 {
	if len(n.unigrams) == 0 {
		return 0
	}
	return n.unigrams[0].Score
}

// ScoreForCandidate returns the stored score for a candidate value.
func (n *Node) ScoreForCandidate(value string) (float64, bool) {
	for _, u := range n.unigrams {
		if u.Value == value {
			return u.Score, true
		}
	}
	return 0, false
}

// SelectCandidate pins the candidate with the given value. It reports
// whether the node carries such a candidate.
func (n *Node) SelectCandidate(value string) bool {
	for i, u := range n.unigrams {
		if u.Value == value {
			n.selected = i
			n.pinned = true
			n.overridden = false
			return true
		}
	}
	return false
}

// OverrideScore selects the candidate with the given value and raises
// the node's walk weight to score without pinning it. The candidate set
// is unchanged.
func (n *Node) OverrideScore(value string, score float64) bool {
	for i, u := range n.unigrams {
		if u.Value == value {
			n.selected = i
			n.pinned = false
			n.overridden = true
			n.overrideScore = score
			return true
		}
	}
	return false
}

// ResetSelection clears any pin or score override.
func (n *Node) ResetSelection() {
	n.selected = 0
	n.pinned = false
	n.overridden = false
	n.overrideScore = 0
}
