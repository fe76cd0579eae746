// Package engine implements the key-driven state machine that turns
// keystrokes into input state transitions, orchestrating the reading
// accumulator, the composing lattice, the walker, and the user override
// model.
package engine

// State is the sealed set of input states. Each keystroke maps the
// current state plus the key to zero or more new states (see Result).
type State interface {
	isInputState()
}

// Empty is the resting state: nothing composed, nothing buffered.
type Empty struct{}

// EmptyIgnoringPrevious is Empty reached by deleting everything; the
// host should clear its previous-state display instead of restoring it.
type EmptyIgnoringPrevious struct{}

// Committing carries the text the host should commit to the client.
type Committing struct {
	Text string
}

// NotEmpty is the shared shape of every state with a composing buffer.
// CursorIndex is a byte offset into ComposingBuffer.
type NotEmpty struct {
	ComposingBuffer string
	CursorIndex     int
	Tooltip         string
}

// Inputting is the ordinary composing state. EvictedText carries any
// text pushed out by the composing buffer cap; the host must flush it.
type Inputting struct {
	NotEmpty
	EvictedText string
}

// ChoosingCandidate presents the candidate list for the nodes around
// the cursor.
type ChoosingCandidate struct {
	NotEmpty
	Candidates []string
}

// Marking is an in-progress selection of a reading range intended to
// become a learned phrase.
type Marking struct {
	NotEmpty
	MarkStartGridCursorIndex int
	Head                     string
	MarkedText               string
	Tail                     string
	Reading                  string
	Acceptable               bool
}

func (Empty) isInputState()                 {}
func (EmptyIgnoringPrevious) isInputState() {}
func (Committing) isInputState()            {}
func (Inputting) isInputState()             {}
func (ChoosingCandidate) isInputState()     {}
func (Marking) isInputState()               {}

// notEmptyOf extracts the NotEmpty core of a state, if it has one.
func notEmptyOf(s State) (NotEmpty, bool) {
	switch v := s.(type) {
	case Inputting:
		return v.NotEmpty, true
	case ChoosingCandidate:
		return v.NotEmpty, true
	case Marking:
		return v.NotEmpty, true
	default:
		return NotEmpty{}, false
	}
}

// Result is the synchronous outcome of handling one key: whether the
// key was absorbed, the state transitions it produced in order, and
// whether the error signal fired. A single key may emit more than one
// state (the punctuation-list flow emits Inputting then
// ChoosingCandidate).
type Result struct {
	Absorbed bool
	States   []State
	Error    bool
}

func absorbed(states ...State) Result {
	return Result{Absorbed: true, States: states}
}

func absorbedError(states ...State) Result {
	return Result{Absorbed: true, States: states, Error: true}
}

func notAbsorbed() Result {
	return Result{}
}
