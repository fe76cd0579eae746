// Package mandarin turns raw phonetic keystrokes into Bopomofo syllables.
//
// A syllable has up to four components: an initial consonant, a medial
// glide, a rime, and a tone mark. Keyboard layouts map printable ASCII
// keys to components; the accumulator keeps the raw key sequence so that
// backspace works on keys, not components.
package mandarin

// Class identifies which slot of a syllable a component occupies.
type Class int

const (
	// Initial is a consonant such as ㄅ or ㄕ.
	Initial Class = iota
	// Medial is one of the glides ㄧ, ㄨ, ㄩ.
	Medial
	// Rime is the vowel or final such as ㄚ or ㄥ.
	Rime
	// Tone is one of the tone marks ˊ ˇ ˋ ˙. The first tone has no mark.
	Tone
)

// Component is a single Bopomofo symbol or tone mark.
type Component struct {
	Symbol rune
	Class  Class
}

// Layout maps printable keys to Bopomofo components.
type Layout struct {
	name string
	keys map[rune]Component
}

// Name returns the layout's identifier, e.g. "Standard" or "ETen".
// The name also feeds layout-specific punctuation lookup keys.
func (l *Layout) Name() string { return l.name }

// IsValidKey reports whether the key produces a component in this layout.
func (l *Layout) IsValidKey(key rune) bool {
	_, ok := l.keys[key]
	return ok
}

// ComponentForKey returns the component the key maps to.
func (l *Layout) ComponentForKey(key rune) (Component, bool) {
	c, ok := l.keys[key]
	return c, ok
}

var standardLayout = &Layout{
	name: "Standard",
	keys: map[rune]Component{
		'1': {'ㄅ', Initial}, 'q': {'ㄆ', Initial}, 'a': {'ㄇ', Initial}, 'z': {'ㄈ', Initial},
		'2': {'ㄉ', Initial}, 'w': {'ㄊ', Initial}, 's': {'ㄋ', Initial}, 'x': {'ㄌ', Initial},
		'e': {'ㄍ', Initial}, 'd': {'ㄎ', Initial}, 'c': {'ㄏ', Initial},
		'r': {'ㄐ', Initial}, 'f': {'ㄑ', Initial}, 'v': {'ㄒ', Initial},
		'5': {'ㄓ', Initial}, 't': {'ㄔ', Initial}, 'g': {'ㄕ', Initial}, 'b': {'ㄖ', Initial},
		'y': {'ㄗ', Initial}, 'h': {'ㄘ', Initial}, 'n': {'ㄙ', Initial},
		'u': {'ㄧ', Medial}, 'j': {'ㄨ', Medial}, 'm': {'ㄩ', Medial},
		'8': {'ㄚ', Rime}, 'i': {'ㄛ', Rime}, 'k': {'ㄜ', Rime}, ',': {'ㄝ', Rime},
		'9': {'ㄞ', Rime}, 'o': {'ㄟ', Rime}, 'l': {'ㄠ', Rime}, '.': {'ㄡ', Rime},
		'0': {'ㄢ', Rime}, 'p': {'ㄣ', Rime}, ';': {'ㄤ', Rime}, '/': {'ㄥ', Rime},
		'-': {'ㄦ', Rime},
		'6': {'ˊ', Tone}, '3': {'ˇ', Tone}, '4': {'ˋ', Tone}, '7': {'˙', Tone},
	},
}

var etenLayout = &Layout{
	name: "ETen",
	keys: map[rune]Component{
		'b': {'ㄅ', Initial}, 'p': {'ㄆ', Initial}, 'm': {'ㄇ', Initial}, 'f': {'ㄈ', Initial},
		'd': {'ㄉ', Initial}, 't': {'ㄊ', Initial}, 'n': {'ㄋ', Initial}, 'l': {'ㄌ', Initial},
		'v': {'ㄍ', Initial}, 'k': {'ㄎ', Initial}, 'h': {'ㄏ', Initial},
		'g': {'ㄐ', Initial}, '7': {'ㄑ', Initial}, 'c': {'ㄒ', Initial},
		',': {'ㄓ', Initial}, '.': {'ㄔ', Initial}, '/': {'ㄕ', Initial}, 'j': {'ㄖ', Initial},
		';': {'ㄗ', Initial}, '\'': {'ㄘ', Initial}, 's': {'ㄙ', Initial},
		'e': {'ㄧ', Medial}, 'x': {'ㄨ', Medial}, 'u': {'ㄩ', Medial},
		'a': {'ㄚ', Rime}, 'o': {'ㄛ', Rime}, 'r': {'ㄜ', Rime}, 'w': {'ㄝ', Rime},
		'i': {'ㄞ', Rime}, 'q': {'ㄟ', Rime}, 'z': {'ㄠ', Rime}, 'y': {'ㄡ', Rime},
		'8': {'ㄢ', Rime}, '9': {'ㄣ', Rime}, '0': {'ㄤ', Rime}, '-': {'ㄥ', Rime},
		'=': {'ㄦ', Rime},
		'2': {'ˊ', Tone}, '3': {'ˇ', Tone}, '4': {'ˋ', Tone}, '1': {'˙', Tone},
	},
}

// StandardLayout returns the standard (Daqian) Bopomofo keyboard layout.
func StandardLayout() *Layout { return standardLayout }

// ETenLayout returns the ETen Bopomofo keyboard layout.
func ETenLayout() *Layout { return etenLayout }

// LayoutNamed resolves a layout by its configuration name. Unknown names
// fall back to the standard layout.
func LayoutNamed(name string) *Layout {
	switch name {
	case "ETen", "eten":
		return etenLayout
	default:
		return standardLayout
	}
}
