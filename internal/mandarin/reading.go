package mandarin

import "strings"

// ReadingBuffer accumulates phonetic keys into an in-progress syllable.
//
// The buffer stores the raw key sequence; components are resolved on
// demand with a last-key-wins rule per component class, so re-typing an
// initial replaces the previous one and Backspace undoes exactly one key.
type ReadingBuffer struct {
	layout *Layout
	keys   []rune
}

// NewReadingBuffer creates an empty buffer under the given layout.
func NewReadingBuffer(layout *Layout) *ReadingBuffer {
	if layout == nil {
		layout = StandardLayout()
	}
	return &ReadingBuffer{layout: layout}
}

// Layout returns the buffer's current keyboard layout.
func (b *ReadingBuffer) Layout() *Layout { return b.layout }

// SetLayout switches the keyboard layout and clears the buffer; keys
// typed under the old layout have no meaning under the new one.
func (b *ReadingBuffer) SetLayout(layout *Layout) {
	if layout == nil {
		return
	}
	b.layout = layout
	b.keys = b.keys[:0]
}

// IsValidKey reports whether the key maps to a component in the layout.
func (b *ReadingBuffer) IsValidKey(key rune) bool {
	return b.layout.IsValidKey(key)
}

// CombineKey adds one key to the buffer. Invalid keys are ignored.
func (b *ReadingBuffer) CombineKey(key rune) {
	if !b.layout.IsValidKey(key) {
		return
	}
	b.keys = append(b.keys, key)
}

// Backspace removes the most recently typed key.
func (b *ReadingBuffer) Backspace() {
	if len(b.keys) > 0 {
		b.keys = b.keys[:len(b.keys)-1]
	}
}

// Clear empties the buffer.
func (b *ReadingBuffer) Clear() { b.keys = nil }

// IsEmpty reports whether no keys have been combined.
func (b *ReadingBuffer) IsEmpty() bool { return len(b.keys) == 0 }

// HasToneMarker reports whether a tone key has been combined, which
// makes the syllable phonetically complete.
func (b *ReadingBuffer) HasToneMarker() bool {
	_, ok := b.component(Tone)
	return ok
}

// component resolves the buffer's component for a class, last key wins.
func (b *ReadingBuffer) component(class Class) (rune, bool) {
	var symbol rune
	found := false
	for _, key := range b.keys {
		c, ok := b.layout.ComponentForKey(key)
		if ok && c.Class == class {
			symbol = c.Symbol
			found = true
		}
	}
	return symbol, found
}

// Syllable returns the canonical composed syllable in initial, medial,
// rime, tone order. A first-tone syllable carries no tone mark, so the
// returned string doubles as the language model lookup key.
func (b *ReadingBuffer) Syllable() string {
	var sb strings.Builder
	for _, class := range []Class{Initial, Medial, Rime, Tone} {
		if symbol, ok := b.component(class); ok {
			sb.WriteRune(symbol)
		}
	}
	return sb.String()
}

// ComposedString returns the display form of the in-progress syllable.
func (b *ReadingBuffer) ComposedString() string {
	return b.Syllable()
}
