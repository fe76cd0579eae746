// Package override implements the adaptive user override model: it
// remembers which candidate the user picked in a given walked-path
// context and suggests it again later, with exponentially decaying
// confidence.
package override

import (
	"container/list"
	"math"
	"strings"
	"time"

	"bopokit/internal/lattice"
)

const (
	// DefaultCapacity bounds how many context signatures are retained.
	DefaultCapacity = 500

	// DefaultHalfLife is how long an observation takes to lose half its
	// weight.
	DefaultHalfLife = 5400 * time.Second // 1.5 hr

	// decayThreshold is the decay multiplier below which an observation
	// counts as fully decayed (about 30 half-lives).
	decayThreshold = 1.0 / 1048576.0
)

type observation struct {
	key       string
	overrides map[string]*record
}

type record struct {
	count     int
	timestamp time.Time
}

// Record is the exportable form of one observation row, used for
// persistence across restarts.
type Record struct {
	Signature string
	Value     string
	Count     int
	Timestamp time.Time
}

// Model records and suggests user corrections. Storage is bounded: when
// the capacity is reached the least recently used signature is evicted.
// Not safe for concurrent use; like the rest of the core it runs on the
// single keystroke path.
type Model struct {
	capacity int
	halfLife time.Duration

	// lru front is most recently used; elements hold *observation.
	lru   *list.List
	index map[string]*list.Element
}

// NewModel creates a model with the given capacity and half-life;
// non-positive arguments take the defaults.
func NewModel(capacity int, halfLife time.Duration) *Model {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if halfLife <= 0 {
		halfLife = DefaultHalfLife
	}
	return &Model{
		capacity: capacity,
		halfLife: halfLife,
		lru:      list.New(),
		index:    make(map[string]*list.Element, capacity),
	}
}

// Observe records that the user chose value for the context formed by
// the walked nodes around cursor. Repeat observations bump the count and
// refresh the timestamp.
func (m *Model) Observe(walked []lattice.Anchor, cursor int, value string, now time.Time) {
	key := signature(walked, cursor)
	if key == "" {
		return
	}
	obs := m.touch(key)
	rec := obs.overrides[value]
	if rec == nil {
		rec = &record{}
		obs.overrides[value] = rec
	}
	rec.count++
	rec.timestamp = now
}

// Suggest returns the best prior observation for the context formed by
// the walked nodes around cursor, weighted by exponential decay. It
// returns "" when no observation matches or every match has decayed
// away. An evicted signature never matches.
func (m *Model) Suggest(walked []lattice.Anchor, cursor int, now time.Time) string {
	key := signature(walked, cursor)
	if key == "" {
		return ""
	}
	elem, ok := m.index[key]
	if !ok {
		return ""
	}
	m.lru.MoveToFront(elem)
	obs := elem.Value.(*observation)

	best := ""
	bestScore := 0.0
	for value, rec := range obs.overrides {
		score := m.decayedScore(rec, now)
		if score > bestScore || (score == bestScore && score > 0 && value < best) {
			best = value
			bestScore = score
		}
	}
	if bestScore <= 0 {
		return ""
	}
	return best
}

func (m *Model) decayedScore(rec *record, now time.Time) float64 {
	elapsed := now.Sub(rec.timestamp)
	if elapsed < 0 {
		elapsed = 0
	}
	decay := math.Pow(0.5, elapsed.Seconds()/m.halfLife.Seconds())
	if decay < decayThreshold {
		return 0
	}
	return float64(rec.count) * decay
}

// touch returns the observation for key, creating it if needed and
// marking it most recently used; the LRU tail is evicted at capacity.
func (m *Model) touch(key string) *observation {
	if elem, ok := m.index[key]; ok {
		m.lru.MoveToFront(elem)
		return elem.Value.(*observation)
	}
	if m.lru.Len() >= m.capacity {
		oldest := m.lru.Back()
		if oldest != nil {
			m.lru.Remove(oldest)
			delete(m.index, oldest.Value.(*observation).key)
		}
	}
	obs := &observation{key: key, overrides: make(map[string]*record)}
	m.index[key] = m.lru.PushFront(obs)
	return obs
}

// Len returns the number of retained context signatures.
func (m *Model) Len() int { return m.lru.Len() }

// Export returns every observation row, least recently used first, so
// that replaying them through Import reproduces the recency order.
func (m *Model) Export() []Record {
	var out []Record
	for elem := m.lru.Back(); elem != nil; elem = elem.Prev() {
		obs := elem.Value.(*observation)
		for value, rec := range obs.overrides {
			out = append(out, Record{
				Signature: obs.key,
				Value:     value,
				Count:     rec.count,
				Timestamp: rec.timestamp,
			})
		}
	}
	return out
}

// Import replays persisted rows into the model, in the given order.
func (m *Model) Import(records []Record) {
	for _, r := range records {
		if r.Signature == "" || r.Count <= 0 {
			continue
		}
		obs := m.touch(r.Signature)
		obs.overrides[r.Value] = &record{count: r.Count, timestamp: r.Timestamp}
	}
}

// signature forms the context key for the node containing or ending at
// cursor: the current node's reading key plus the (key, value) pairs of
// up to two preceding nodes. Missing slots render as "()".
func signature(walked []lattice.Anchor, cursor int) string {
	current := -1
	accumulated := 0
	for i, a := range walked {
		accumulated += a.Node.SpanningLength()
		if accumulated >= cursor {
			current = i
			break
		}
	}
	if current < 0 {
		return ""
	}

	part := func(i int) string {
		if i < 0 {
			return "()"
		}
		n := walked[i].Node
		return "(" + n.Key() + "," + n.CurrentValue() + ")"
	}

	var sb strings.Builder
	sb.WriteString(part(current - 2))
	sb.WriteString(",")
	sb.WriteString(part(current - 1))
	sb.WriteString(",(")
	sb.WriteString(walked[current].Node.Key())
	sb.WriteString(")")
	return sb.String()
}
