package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"bopokit/internal/lattice"
	"bopokit/internal/lm"
	"bopokit/internal/mandarin"
	"bopokit/internal/override"
)

const (
	punctuationListKey   = "_punctuation_list"
	punctuationKeyPrefix = "_punctuation_"

	minValidMarkingReadingCount = 2
	maxValidMarkingReadingCount = 6

	// Unigrams scoring below this are too unreliable to learn from.
	noOverrideThreshold = -8.0
	epsilon             = 0.000001

	// composingBufferSize caps the grid width; the walk is O(W²).
	composingBufferSize = 10
)

// PhraseAdder is the loader collaborator that persists learned user
// phrases.
type PhraseAdder interface {
	AddUserPhrase(reading, value string) error
}

// Handler converts keystrokes into state transitions. It owns the
// reading accumulator, the grid, and the latest walked path for one
// session; the language model facade and the override model may be
// shared across sessions.
type Handler struct {
	model         lm.Model
	phrases       PhraseAdder
	userOverrides *override.Model

	reading *mandarin.ReadingBuffer
	grid    *lattice.Grid
	walked  []lattice.Anchor

	selectPhraseAfterCursor  bool
	moveCursorAfterSelection bool

	now func() time.Time
	log *slog.Logger
}

// NewHandler creates a handler over the given model. phrases may be nil
// if phrase learning is not wired; userOverrides may be nil to disable
// override learning.
func NewHandler(model lm.Model, phrases PhraseAdder, userOverrides *override.Model) *Handler {
	return &Handler{
		model:         model,
		phrases:       phrases,
		userOverrides: userOverrides,
		reading:       mandarin.NewReadingBuffer(mandarin.StandardLayout()),
		grid:          lattice.NewGrid(model),
		now:           time.Now,
		log:           slog.Default(),
	}
}

// SetKeyboardLayout switches the reading accumulator's layout.
func (h *Handler) SetKeyboardLayout(layout *mandarin.Layout) {
	h.reading.SetLayout(layout)
}

// SetSelectPhraseAfterCursorAsCandidate selects whether the candidate
// list anchors after (true) or before (false) the cursor.
func (h *Handler) SetSelectPhraseAfterCursorAsCandidate(flag bool) {
	h.selectPhraseAfterCursor = flag
}

// SetMoveCursorAfterSelection moves the grid cursor past the selected
// candidate's node after an explicit selection.
func (h *Handler) SetMoveCursorAfterSelection(flag bool) {
	h.moveCursorAfterSelection = flag
}

// SetClock overrides the time source used for override observations.
func (h *Handler) SetClock(now func() time.Time) {
	if now != nil {
		h.now = now
	}
}

// SetLogger replaces the handler's logger.
func (h *Handler) SetLogger(log *slog.Logger) {
	if log != nil {
		h.log = log
	}
}

// Reset clears the reading accumulator, the grid, and the walked path.
func (h *Handler) Reset() {
	h.reading.Clear()
	h.grid.Clear()
	h.walked = nil
}

// GridLength returns the current number of reading slots.
func (h *Handler) GridLength() int { return h.grid.Length() }

// Handle processes one key against the current state and returns the
// resulting transitions. An unabsorbed key should be passed through to
// the client unmodified.
func (h *Handler) Handle(key Key, state State) Result {
	ascii := key.ascii()

	// Phonetic keys combine into the reading accumulator first. A key
	// that does not complete the syllable just refreshes the buffer.
	if ascii != 0 && h.reading.IsValidKey(ascii) {
		h.reading.CombineKey(ascii)
		if !h.reading.HasToneMarker() {
			return absorbed(h.buildInputting())
		}
	}

	// Compose the reading on a tone marker, or on space with a
	// non-empty reading (tone 1 has no marker key).
	if h.reading.HasToneMarker() || (!h.reading.IsEmpty() && key.isSpace()) {
		return h.composeReading()
	}

	notEmpty, isNotEmpty := notEmptyOf(state)

	// Space over a non-empty grid opens the candidate list.
	if key.isSpace() && isNotEmpty && h.reading.IsEmpty() {
		return absorbed(h.buildChoosingCandidate(notEmpty))
	}

	if key.Name == KeyEsc {
		if !isNotEmpty {
			return notAbsorbed()
		}
		if !h.reading.IsEmpty() {
			h.reading.Clear()
			if h.grid.Length() == 0 {
				return absorbed(Empty{})
			}
		}
		return absorbed(h.buildInputting())
	}

	if key.isCursorKey() {
		return h.handleCursorKeys(key, state)
	}

	if key.isDeleteKey() {
		return h.handleDeleteKeys(key, state)
	}

	if key.Name == KeyEnter {
		return h.handleEnter(state, isNotEmpty)
	}

	// Backtick opens the punctuation list.
	if ascii == '`' && h.model.HasUnigramsForKey(punctuationListKey) {
		if !h.reading.IsEmpty() {
			// Punctuation is rejected while a reading is active.
			return Result{Absorbed: true, Error: true}
		}
		h.grid.InsertReadingAtCursor(punctuationListKey)
		evicted := h.popEvictedTextAndWalk()
		inputting := h.buildInputting()
		inputting.EvictedText = evicted
		choosing := h.buildChoosingCandidate(inputting.NotEmpty)
		return absorbed(inputting, choosing)
	}

	if ascii != 0 {
		// Layout-specific punctuation first, generic fallback second.
		layoutKey := punctuationKeyPrefix + h.reading.Layout().Name() + "_" + string(ascii)
		if r, handled := h.handlePunctuation(layoutKey); handled {
			return r
		}
		genericKey := punctuationKeyPrefix + string(ascii)
		if r, handled := h.handlePunctuation(genericKey); handled {
			return r
		}
	}

	// Unrecognized key: consume it with an error while composing,
	// pass it through otherwise.
	if isNotEmpty {
		return absorbedError(h.buildInputting())
	}
	return notAbsorbed()
}

// composeReading moves the accumulated syllable into the grid, walks,
// and applies an override suggestion for the next walk.
func (h *Handler) composeReading() Result {
	syllable := h.reading.Syllable()
	h.reading.Clear()

	if !h.model.HasUnigramsForKey(syllable) {
		h.log.Debug("syllable not in model", "syllable", syllable)
		return absorbedError(h.buildInputting())
	}

	h.grid.InsertReadingAtCursor(syllable)
	evicted := h.popEvictedTextAndWalk()

	if h.userOverrides != nil {
		if value := h.userOverrides.Suggest(h.walked, h.grid.Cursor(), h.now()); value != "" {
			cursor := h.actualCandidateCursorIndex()
			score := h.highestCrossingScore(cursor) + epsilon
			h.grid.OverrideNodeScoreForSelectedCandidate(cursor, value, score)
		}
	}

	inputting := h.buildInputting()
	inputting.EvictedText = evicted
	return absorbed(inputting)
}

func (h *Handler) handleCursorKeys(key Key, state State) Result {
	marking, isMarking := state.(Marking)
	if _, isInputting := state.(Inputting); !isInputting && !isMarking {
		return notAbsorbed()
	}
	markBegin := h.grid.Cursor()
	if isMarking {
		markBegin = marking.MarkStartGridCursorIndex
	}

	if !h.reading.IsEmpty() {
		return absorbedError(h.buildInputting())
	}

	validMove := false
	switch key.Name {
	case KeyLeft:
		if h.grid.Cursor() > 0 {
			h.grid.SetCursor(h.grid.Cursor() - 1)
			validMove = true
		}
	case KeyRight:
		if h.grid.Cursor() < h.grid.Length() {
			h.grid.SetCursor(h.grid.Cursor() + 1)
			validMove = true
		}
	case KeyHome:
		h.grid.SetCursor(0)
		validMove = true
	case KeyEnd:
		h.grid.SetCursor(h.grid.Length())
		validMove = true
	}

	var next State
	if key.Modifiers&ModShift != 0 && h.grid.Cursor() != markBegin {
		next = h.buildMarking(markBegin)
	} else {
		next = h.buildInputting()
	}
	if !validMove {
		return absorbedError(next)
	}
	return absorbed(next)
}

func (h *Handler) handleDeleteKeys(key Key, state State) Result {
	if _, isNotEmpty := notEmptyOf(state); !isNotEmpty {
		return notAbsorbed()
	}

	erred := false
	if h.reading.IsEmpty() {
		validDelete := false
		if key.Name == KeyBackspace && h.grid.Cursor() > 0 {
			validDelete = h.grid.DeleteReadingBeforeCursor()
		} else if key.Name == KeyDelete && h.grid.Cursor() < h.grid.Length() {
			validDelete = h.grid.DeleteReadingAfterCursor()
		}
		if !validDelete {
			return absorbedError(h.buildInputting())
		}
		h.walk()
	} else {
		if key.Name == KeyBackspace {
			h.reading.Backspace()
		} else {
			// Forward delete is invalid while a reading is active.
			erred = true
		}
	}

	if h.reading.IsEmpty() && h.grid.Length() == 0 {
		if erred {
			return absorbedError(EmptyIgnoringPrevious{})
		}
		return absorbed(EmptyIgnoringPrevious{})
	}
	if erred {
		return absorbedError(h.buildInputting())
	}
	return absorbed(h.buildInputting())
}

func (h *Handler) handleEnter(state State, isNotEmpty bool) Result {
	if !isNotEmpty {
		return notAbsorbed()
	}
	if !h.reading.IsEmpty() {
		return absorbedError(h.buildInputting())
	}

	if marking, ok := state.(Marking); ok {
		if !marking.Acceptable {
			return absorbedError(h.buildMarking(marking.MarkStartGridCursorIndex))
		}
		if h.phrases != nil {
			if err := h.phrases.AddUserPhrase(marking.Reading, marking.MarkedText); err != nil {
				h.log.Warn("add user phrase", "reading", marking.Reading, "error", err)
			}
		}
		return absorbed(h.buildInputting())
	}

	inputting := h.buildInputting()
	h.Reset()
	return absorbed(Committing{Text: inputting.ComposingBuffer})
}

func (h *Handler) handlePunctuation(unigramKey string) (Result, bool) {
	if !h.model.HasUnigramsForKey(unigramKey) {
		return Result{}, false
	}
	if !h.reading.IsEmpty() {
		return absorbedError(h.buildInputting()), true
	}

	h.grid.InsertReadingAtCursor(unigramKey)
	evicted := h.popEvictedTextAndWalk()
	inputting := h.buildInputting()
	inputting.EvictedText = evicted
	return absorbed(inputting), true
}

// CandidateSelected pins the chosen candidate, records the override
// observation, re-walks, and returns to Inputting. The collaborator
// calls this after the user picks from a ChoosingCandidate list.
func (h *Handler) CandidateSelected(value string) Result {
	h.pinNode(value)
	return absorbed(h.buildInputting())
}

// CandidatePanelCancelled returns to Inputting without a selection.
func (h *Handler) CandidatePanelCancelled() Result {
	return absorbed(h.buildInputting())
}

func (h *Handler) pinNode(value string) {
	cursor := h.actualCandidateCursorIndex()
	anchor, ok := h.grid.FixNodeSelectedCandidate(cursor, value)
	if ok && h.userOverrides != nil {
		if score, has := anchor.Node.ScoreForCandidate(value); has && score > noOverrideThreshold {
			h.userOverrides.Observe(h.walked, cursor, value, h.now())
		}
	}

	h.walk()

	if h.moveCursorAfterSelection {
		next := 0
		for _, a := range h.walked {
			if next >= cursor {
				break
			}
			next += a.Node.SpanningLength()
		}
		if next <= h.grid.Length() {
			h.grid.SetCursor(next)
		}
	}
}

// actualCandidateCursorIndex adjusts the grid cursor to always sit in
// the middle of or right after a node.
func (h *Handler) actualCandidateCursorIndex() int {
	cursor := h.grid.Cursor()
	if h.selectPhraseAfterCursor {
		if cursor < h.grid.Length() {
			cursor++
		}
	} else if cursor == 0 && h.grid.Length() > 0 {
		cursor++
	}
	return cursor
}

func (h *Handler) highestCrossingScore(cursor int) float64 {
	highest := 0.0
	for _, a := range h.grid.NodesCrossingOrEndingAt(cursor) {
		if score := a.Node.HighestUnigramScore(); score > highest {
			highest = score
		}
	}
	return highest
}

// popEvictedTextAndWalk evicts the head node's composed text when the
// grid exceeds the composing buffer cap, then re-walks. The walk is
// quadratic in grid width, so the cap keeps the per-keystroke cost
// bounded; text at the head has lost its influence on the decoding
// anyway.
func (h *Handler) popEvictedTextAndWalk() string {
	evicted := ""
	if h.grid.Length() > composingBufferSize && len(h.walked) > 0 {
		head := h.walked[0]
		evicted = head.Node.CurrentValue()
		h.grid.RemoveHeadReadings(head.Node.SpanningLength())
	}
	h.walk()
	return evicted
}

func (h *Handler) walk() {
	h.walked = lattice.Walk(h.grid)
}

// composedString renders the walked path into text split at the given
// grid cursor. The running cursor counts reading slots; when the cursor
// falls inside a node whose value is shorter than its span, it snaps to
// the node boundary and a tooltip explains the mismatch.
func (h *Handler) composedString(builderCursor int) (head, tail, tooltip string) {
	runningCursor := 0
	composedCursor := 0 // byte offset into composed
	var composed strings.Builder

	for _, a := range h.walked {
		value := a.Node.CurrentValue()
		composed.WriteString(value)

		if runningCursor == builderCursor {
			continue
		}
		span := a.Node.SpanningLength()
		if runningCursor+span <= builderCursor {
			composedCursor += len(value)
			runningCursor += span
			continue
		}

		// The cursor is inside this node.
		distance := builderCursor - runningCursor
		runes := []rune(value)
		partial := distance
		if partial > len(runes) {
			partial = len(runes)
		}
		composedCursor += len(string(runes[:partial]))
		runningCursor += distance

		if len(runes) < span {
			readings := h.grid.Readings()
			tooltip = fmt.Sprintf("Cursor is between syllables %s and %s",
				readings[builderCursor-1], readings[builderCursor])
		}
	}

	s := composed.String()
	return s[:composedCursor], s[composedCursor:], tooltip
}

func (h *Handler) buildInputting() Inputting {
	head, tail, tooltip := h.composedString(h.grid.Cursor())
	reading := h.reading.ComposedString()
	return Inputting{NotEmpty: NotEmpty{
		ComposingBuffer: head + reading + tail,
		CursorIndex:     len(head) + len(reading),
		Tooltip:         tooltip,
	}}
}

func (h *Handler) buildChoosingCandidate(from NotEmpty) ChoosingCandidate {
	anchors := h.grid.NodesCrossingOrEndingAt(h.actualCandidateCursorIndex())

	// Longer nodes carry longer phrases; list them first. The sort is
	// stable so candidates keep the language model's order otherwise.
	sort.SliceStable(anchors, func(i, j int) bool {
		return anchors[i].Node.SpanningLength() > anchors[j].Node.SpanningLength()
	})

	var candidates []string
	for _, a := range anchors {
		candidates = append(candidates, a.Node.Candidates()...)
	}
	return ChoosingCandidate{NotEmpty: from, Candidates: candidates}
}

func (h *Handler) buildMarking(beginCursor int) Marking {
	fromHead, fromTail, _ := h.composedString(beginCursor)
	toHead, toTail, _ := h.composedString(h.grid.Cursor())

	// The buffer and its cursor always reflect the grid cursor side.
	buffer := toHead + toTail
	bufferCursor := len(toHead)

	// Order the two splits so "from" is the shorter head; the marked
	// text is the delta between the heads.
	fromIndex, toIndex := beginCursor, h.grid.Cursor()
	if fromIndex > toIndex {
		fromIndex, toIndex = toIndex, fromIndex
		fromHead, toHead = toHead, fromHead
		fromTail, toTail = toTail, fromTail
	}

	head := fromHead
	marked := toHead[len(fromHead):]
	tail := toTail

	readings := h.grid.Readings()[fromIndex:toIndex]
	readingValue := strings.Join(readings, lattice.JoinSeparator)
	readingUIText := strings.Join(readings, " ")

	valid := false
	var status string
	switch {
	case len(readings) < minValidMarkingReadingCount:
		status = fmt.Sprintf("%d syllables required", minValidMarkingReadingCount)
	case len(readings) > maxValidMarkingReadingCount:
		status = fmt.Sprintf("%d syllables maximum", maxValidMarkingReadingCount)
	case h.markedPhraseExists(readingValue, marked):
		status = "phrase already exists"
	default:
		status = "press Enter to add the phrase"
		valid = true
	}

	tooltip := fmt.Sprintf("Marked: %s, syllables: %s, %s", marked, readingUIText, status)

	return Marking{
		NotEmpty: NotEmpty{
			ComposingBuffer: buffer,
			CursorIndex:     bufferCursor,
			Tooltip:         tooltip,
		},
		MarkStartGridCursorIndex: beginCursor,
		Head:                     head,
		MarkedText:               marked,
		Tail:                     tail,
		Reading:                  readingValue,
		Acceptable:               valid,
	}
}

func (h *Handler) markedPhraseExists(reading, value string) bool {
	if !h.model.HasUnigramsForKey(reading) {
		return false
	}
	for _, u := range h.model.UnigramsForKey(reading) {
		if u.Value == value {
			return true
		}
	}
	return false
}
