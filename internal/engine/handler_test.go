package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bopokit/internal/lm"
	"bopokit/internal/mandarin"
	"bopokit/internal/override"
)

// fakePhraseAdder records learned phrases instead of writing files.
type fakePhraseAdder struct {
	phrases [][2]string
}

func (f *fakePhraseAdder) AddUserPhrase(reading, value string) error {
	f.phrases = append(f.phrases, [2]string{reading, value})
	return nil
}

func testFacade() *lm.Facade {
	f := lm.NewFacade()
	f.LoadLanguageModel(lm.NewUnigramTable([]lm.Unigram{
		{Key: "ㄕˋ", Value: "是", Score: -3.0},
		{Key: "ㄕˋ", Value: "事", Score: -4.5},
		{Key: "ㄕˋ", Value: "市", Score: -5.0},
		{Key: "ㄕˋ", Value: "士", Score: -9.0},
		{Key: "ㄋㄧˇ", Value: "你", Score: -3.5},
		{Key: "ㄋㄧˇ", Value: "妳", Score: -4.0},
		{Key: "ㄏㄠˇ", Value: "好", Score: -3.6},
		{Key: "ㄋㄧˇ-ㄏㄠˇ", Value: "你好", Score: -2.0},
		{Key: "ㄇㄚ", Value: "媽", Score: -3.2},
		{Key: "_punctuation_list", Value: "，", Score: -1.0},
		{Key: "_punctuation_list", Value: "。", Score: -1.1},
		{Key: "_punctuation_!", Value: "！", Score: -1.0},
	}))
	return f
}

// session drives a handler the way a host would, tracking the last
// emitted state.
type session struct {
	t         *testing.T
	handler   *Handler
	adder     *fakePhraseAdder
	overrides *override.Model
	state     State
}

func newSession(t *testing.T) *session {
	return newSessionWith(t, testFacade())
}

func newSessionWith(t *testing.T, facade *lm.Facade) *session {
	t.Helper()
	adder := &fakePhraseAdder{}
	overrides := override.NewModel(0, 0)
	h := NewHandler(facade, adder, overrides)
	h.SetClock(func() time.Time { return time.Unix(1700000000, 0) })
	return &session{t: t, handler: h, adder: adder, overrides: overrides, state: Empty{}}
}

func (s *session) press(keys ...Key) Result {
	s.t.Helper()
	var last Result
	for _, key := range keys {
		last = s.handler.Handle(key, s.state)
		s.apply(last)
	}
	return last
}

func (s *session) apply(r Result) {
	if r.Absorbed && len(r.States) > 0 {
		s.state = r.States[len(r.States)-1]
	}
}

// typeChars presses each rune of text as a plain character key.
func (s *session) typeChars(text string) Result {
	s.t.Helper()
	var last Result
	for _, c := range text {
		last = s.press(CharKey(c))
	}
	return last
}

func (s *session) inputting() Inputting {
	s.t.Helper()
	st, ok := s.state.(Inputting)
	require.True(s.t, ok, "expected Inputting, got %T", s.state)
	return st
}

func TestComposeSyllableIntoGrid(t *testing.T) {
	s := newSession(t)

	// g then 4 composes ㄕˋ; the model maps it to 是 with the highest
	// score, so the walk yields a single-node path.
	r := s.typeChars("g4")
	require.True(t, r.Absorbed)
	assert.False(t, r.Error)

	st := s.inputting()
	assert.Equal(t, "是", st.ComposingBuffer)
	assert.Equal(t, len("是"), st.CursorIndex)
	assert.Equal(t, 1, s.handler.GridLength())
}

func TestIncompleteSyllableStaysInputting(t *testing.T) {
	s := newSession(t)
	r := s.typeChars("g")
	require.True(t, r.Absorbed)

	st := s.inputting()
	assert.Equal(t, "ㄕ", st.ComposingBuffer)
	assert.Zero(t, s.handler.GridLength(), "incomplete syllable must not enter the grid")
}

func TestUnknownSyllableRaisesError(t *testing.T) {
	s := newSession(t)

	// ㄆˋ has no entry in the model.
	r := s.typeChars("q4")
	require.True(t, r.Absorbed)
	assert.True(t, r.Error)
	assert.Zero(t, s.handler.GridLength())

	st := s.inputting()
	assert.Empty(t, st.ComposingBuffer, "state republished with the reading rejected")
}

func TestSpaceComposesToneOneSyllable(t *testing.T) {
	s := newSession(t)
	r := s.typeChars("a8 ") // ㄇㄚ then space forces the first tone
	require.True(t, r.Absorbed)
	assert.Equal(t, "媽", s.inputting().ComposingBuffer)
}

func TestInputtingStateIdempotent(t *testing.T) {
	s := newSession(t)
	s.typeChars("g4")

	first := s.handler.CandidatePanelCancelled()
	second := s.handler.CandidatePanelCancelled()
	assert.Equal(t, first.States, second.States)
}

func TestCommit(t *testing.T) {
	s := newSession(t)
	s.typeChars("g4")

	r := s.press(NamedKey(KeyEnter))
	require.Len(t, r.States, 1)
	committing, ok := r.States[0].(Committing)
	require.True(t, ok)
	assert.Equal(t, "是", committing.Text)
	assert.Zero(t, s.handler.GridLength(), "commit resets the grid")
}

func TestEnterWithActiveReadingErrs(t *testing.T) {
	s := newSession(t)
	s.typeChars("g4g") // composed syllable plus an active reading

	r := s.press(NamedKey(KeyEnter))
	assert.True(t, r.Error)
	assert.Equal(t, "是ㄕ", s.inputting().ComposingBuffer)
}

func TestComposingBufferCapEvictsHead(t *testing.T) {
	s := newSession(t)
	for i := 0; i < 10; i++ {
		s.typeChars("g4")
	}
	require.Equal(t, 10, s.handler.GridLength())

	r := s.typeChars("g4")
	st := s.inputting()
	assert.Equal(t, "是", st.EvictedText)
	assert.LessOrEqual(t, s.handler.GridLength(), 10)
	assert.False(t, r.Error)
}

func TestEscapeClearsReading(t *testing.T) {
	s := newSession(t)
	s.typeChars("g")

	r := s.press(NamedKey(KeyEsc))
	require.Len(t, r.States, 1)
	assert.IsType(t, Empty{}, r.States[0], "empty grid plus cleared reading is Empty")
}

func TestEscapeKeepsGrid(t *testing.T) {
	s := newSession(t)
	s.typeChars("g4")
	before := s.inputting()

	r := s.press(NamedKey(KeyEsc))
	require.Len(t, r.States, 1)
	assert.Equal(t, before, r.States[0].(Inputting))
}

func TestEscapeFromEmptyPassesThrough(t *testing.T) {
	s := newSession(t)
	r := s.press(NamedKey(KeyEsc))
	assert.False(t, r.Absorbed)
}

func TestCursorMovesAndBoundaryError(t *testing.T) {
	s := newSession(t)
	s.typeChars("g4")

	r := s.press(NamedKey(KeyLeft))
	assert.False(t, r.Error)
	assert.Zero(t, s.inputting().CursorIndex)

	r = s.press(NamedKey(KeyLeft))
	assert.True(t, r.Error, "moving past the left edge is invalid")

	r = s.press(NamedKey(KeyEnd))
	assert.False(t, r.Error)
	r = s.press(NamedKey(KeyRight))
	assert.True(t, r.Error, "moving past the right edge is invalid")
}

func TestCursorKeyWithActiveReadingErrs(t *testing.T) {
	s := newSession(t)
	s.typeChars("g4g")
	r := s.press(NamedKey(KeyLeft))
	assert.True(t, r.Error)
}

func TestBackspaceTrimsReadingThenGrid(t *testing.T) {
	s := newSession(t)
	s.typeChars("g4su") // one composed syllable, two reading keys

	s.press(NamedKey(KeyBackspace))
	assert.Equal(t, "是ㄋ", s.inputting().ComposingBuffer)

	s.press(NamedKey(KeyBackspace))
	assert.Equal(t, "是", s.inputting().ComposingBuffer)

	r := s.press(NamedKey(KeyBackspace))
	require.Len(t, r.States, 1)
	assert.IsType(t, EmptyIgnoringPrevious{}, r.States[0])
}

func TestForwardDeleteWithActiveReadingErrs(t *testing.T) {
	s := newSession(t)
	s.typeChars("g4g")
	r := s.press(NamedKey(KeyDelete))
	assert.True(t, r.Error)
	assert.Equal(t, "是ㄕ", s.inputting().ComposingBuffer, "reading must survive the invalid delete")
}

func TestDeleteAfterCursor(t *testing.T) {
	s := newSession(t)
	s.typeChars("g4g4")
	s.press(NamedKey(KeyHome))

	s.press(NamedKey(KeyDelete))
	assert.Equal(t, "是", s.inputting().ComposingBuffer)
	assert.Equal(t, 1, s.handler.GridLength())
}

func TestCandidateListOrderedBySpanLength(t *testing.T) {
	s := newSession(t)
	s.typeChars("su3cl3") // ㄋㄧˇ ㄏㄠˇ

	r := s.press(CharKey(' '))
	require.Len(t, r.States, 1)
	choosing, ok := r.States[0].(ChoosingCandidate)
	require.True(t, ok)

	// The 2-reading node's candidates list before the 1-reading node's.
	assert.Equal(t, []string{"你好", "好"}, choosing.Candidates)
}

func TestCandidateSelectionPinsAndLearns(t *testing.T) {
	s := newSession(t)
	s.typeChars("su3") // ㄋㄧˇ, decoder picks 你

	s.press(CharKey(' '))
	r := s.handler.CandidateSelected("妳")
	s.apply(r)
	assert.Equal(t, "妳", s.inputting().ComposingBuffer)

	// A fresh composition of the same context gets the learned bias:
	// the suggestion outscores the other single-syllable candidates.
	s.press(NamedKey(KeyEnter)) // commit, resetting the session
	s.typeChars("su3g4")
	assert.Equal(t, "妳是", s.inputting().ComposingBuffer)
}

func TestPhraseOutweighsLearnedOverride(t *testing.T) {
	s := newSession(t)
	s.typeChars("su3")
	s.press(CharKey(' '))
	s.apply(s.handler.CandidateSelected("妳"))
	s.press(NamedKey(KeyEnter))

	// The suggestion score sits just above zero, so a strong phrase
	// unigram still wins the walk.
	s.typeChars("su3cl3")
	assert.Equal(t, "你好", s.inputting().ComposingBuffer)
}

func TestObserveScoreFloor(t *testing.T) {
	s := newSession(t)
	s.typeChars("g4")
	s.press(CharKey(' '))

	// 士 scores below the learning floor: the pin goes through but no
	// observation is recorded.
	s.apply(s.handler.CandidateSelected("士"))
	assert.Equal(t, "士", s.inputting().ComposingBuffer)
	assert.Zero(t, s.overrides.Len())

	// An ordinary candidate is observed.
	s.press(CharKey(' '))
	s.apply(s.handler.CandidateSelected("事"))
	assert.Equal(t, 1, s.overrides.Len())
}

func TestPunctuationLayoutPrecedence(t *testing.T) {
	facade := lm.NewFacade()
	facade.LoadLanguageModel(lm.NewUnigramTable([]lm.Unigram{
		{Key: "_punctuation_Standard_!", Value: "﹗", Score: -1.0},
		{Key: "_punctuation_!", Value: "！", Score: -1.0},
	}))

	// The standard layout resolves its own punctuation key first.
	s := newSessionWith(t, facade)
	s.typeChars("!")
	assert.Equal(t, "﹗", s.inputting().ComposingBuffer)

	// A layout without its own entry falls back to the generic key.
	s = newSessionWith(t, facade)
	s.handler.SetKeyboardLayout(mandarin.ETenLayout())
	s.typeChars("!")
	assert.Equal(t, "！", s.inputting().ComposingBuffer)
}

func TestMarkingValidity(t *testing.T) {
	s := newSession(t)
	s.typeChars("g4g4")

	// One marked syllable is too short.
	r := s.press(NamedKey(KeyLeft).WithShift())
	require.Len(t, r.States, 1)
	marking, ok := r.States[0].(Marking)
	require.True(t, ok)
	assert.False(t, marking.Acceptable)
	assert.Contains(t, marking.Tooltip, "2 syllables required")

	// Two marked syllables with no identical existing phrase are valid.
	r = s.press(NamedKey(KeyLeft).WithShift())
	marking = r.States[0].(Marking)
	assert.True(t, marking.Acceptable)
	assert.Equal(t, "是是", marking.MarkedText)
	assert.Equal(t, "ㄕˋ-ㄕˋ", marking.Reading)
}

func TestMarkingTooLong(t *testing.T) {
	s := newSession(t)
	for i := 0; i < 7; i++ {
		s.typeChars("g4")
	}

	r := s.press(NamedKey(KeyHome).WithShift())
	marking, ok := r.States[0].(Marking)
	require.True(t, ok)
	assert.False(t, marking.Acceptable)
	assert.Contains(t, marking.Tooltip, "6 syllables maximum")
}

func TestMarkingExistingPhraseInvalid(t *testing.T) {
	s := newSession(t)
	s.typeChars("su3cl3") // composes to the known phrase 你好

	s.press(NamedKey(KeyHome).WithShift())
	marking, ok := s.state.(Marking)
	require.True(t, ok)
	assert.False(t, marking.Acceptable)
	assert.Contains(t, marking.Tooltip, "phrase already exists")
}

func TestMarkingCommitLearnsPhrase(t *testing.T) {
	s := newSession(t)
	s.typeChars("g4g4")
	s.press(NamedKey(KeyHome).WithShift())
	require.IsType(t, Marking{}, s.state)

	r := s.press(NamedKey(KeyEnter))
	assert.False(t, r.Error)
	require.Len(t, s.adder.phrases, 1)
	assert.Equal(t, [2]string{"ㄕˋ-ㄕˋ", "是是"}, s.adder.phrases[0])
	assert.IsType(t, Inputting{}, s.state)
}

func TestInvalidMarkingCommitStaysMarking(t *testing.T) {
	s := newSession(t)
	s.typeChars("g4g4")
	s.press(NamedKey(KeyLeft).WithShift()) // one syllable, invalid

	r := s.press(NamedKey(KeyEnter))
	assert.True(t, r.Error)
	assert.IsType(t, Marking{}, s.state)
	assert.Empty(t, s.adder.phrases)
}

func TestPunctuationKey(t *testing.T) {
	s := newSession(t)
	r := s.typeChars("!")
	require.True(t, r.Absorbed)
	assert.Equal(t, "！", s.inputting().ComposingBuffer)
}

func TestPunctuationWithActiveReadingErrs(t *testing.T) {
	s := newSession(t)
	s.typeChars("g")
	r := s.typeChars("!")
	assert.True(t, r.Error)
}

func TestPunctuationListFlow(t *testing.T) {
	s := newSession(t)
	r := s.press(CharKey('`'))
	require.True(t, r.Absorbed)
	require.Len(t, r.States, 2, "punctuation list emits Inputting then ChoosingCandidate")
	assert.IsType(t, Inputting{}, r.States[0])
	choosing, ok := r.States[1].(ChoosingCandidate)
	require.True(t, ok)
	assert.Equal(t, []string{"，", "。"}, choosing.Candidates)
}

func TestUnrecognizedKey(t *testing.T) {
	s := newSession(t)

	// Over Empty the key passes through.
	r := s.press(CharKey('Z'))
	assert.False(t, r.Absorbed)

	// While composing it is absorbed with an error.
	s.typeChars("g4")
	r = s.press(CharKey('Z'))
	assert.True(t, r.Absorbed)
	assert.True(t, r.Error)
	assert.IsType(t, Inputting{}, r.States[0])
}

func TestMoveCursorAfterSelection(t *testing.T) {
	s := newSession(t)
	s.handler.SetMoveCursorAfterSelection(true)
	s.typeChars("su3cl3")
	s.press(NamedKey(KeyHome))

	// Cursor 0, before-cursor selection anchors at position 1.
	s.press(CharKey(' '))
	r := s.handler.CandidateSelected("你")
	s.apply(r)
	assert.Equal(t, len("你"), s.inputting().CursorIndex, "cursor moved past the selected node")
}

func TestSelectPhraseAfterCursor(t *testing.T) {
	s := newSession(t)
	s.handler.SetSelectPhraseAfterCursorAsCandidate(true)
	s.typeChars("su3cl3")
	s.press(NamedKey(KeyHome))

	r := s.press(CharKey(' '))
	choosing, ok := r.States[0].(ChoosingCandidate)
	require.True(t, ok)
	// Anchored after the cursor: nodes crossing position 1.
	assert.Equal(t, []string{"你好", "你", "妳"}, choosing.Candidates)
}
