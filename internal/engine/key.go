package engine

// KeyName identifies a non-printable key.
type KeyName int

const (
	// KeyNone marks a printable key; Key.Char carries the character.
	KeyNone KeyName = iota
	KeyLeft
	KeyRight
	KeyHome
	KeyEnd
	KeyBackspace
	KeyDelete
	KeyEnter
	KeyEsc
)

// Modifiers is the modifier key state attached to a key event.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModControl
	ModAlt
)

// Key is one logical key event: a printable character or a named key,
// plus modifiers. The host adapts its platform events into this type.
type Key struct {
	Char      rune
	Name      KeyName
	Modifiers Modifiers
}

// CharKey creates a printable key event.
func CharKey(c rune) Key { return Key{Char: c} }

// NamedKey creates a non-printable key event.
func NamedKey(name KeyName) Key { return Key{Name: name} }

// WithShift returns the key with the shift modifier set.
func (k Key) WithShift() Key {
	k.Modifiers |= ModShift
	return k
}

// ascii returns the plain printable character of the key, or 0 when the
// key is named or chorded with control or alt.
func (k Key) ascii() rune {
	if k.Name != KeyNone || k.Modifiers&(ModControl|ModAlt) != 0 {
		return 0
	}
	if k.Char < 0x20 || k.Char > 0x7e {
		return 0
	}
	return k.Char
}

func (k Key) isSpace() bool { return k.Name == KeyNone && k.Char == ' ' }

func (k Key) isCursorKey() bool {
	switch k.Name {
	case KeyLeft, KeyRight, KeyHome, KeyEnd:
		return true
	}
	return false
}

func (k Key) isDeleteKey() bool {
	return k.Name == KeyBackspace || k.Name == KeyDelete
}
