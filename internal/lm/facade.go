package lm

import "sync"

// Facade merges the primary dictionary, user phrases, excluded phrases,
// the phrase replacement table, and the external converter into one
// Model.
//
// Loads replace whole tables under the write lock, so an in-flight
// lookup observes either wholly the old or wholly the new table, never a
// mix. Loads are expected to be sequenced between keystrokes by the
// caller; the lock only guards against a load racing a lookup.
type Facade struct {
	mu sync.RWMutex

	primary     *UnigramTable
	userPhrases *PhraseTable
	excluded    *PhraseTable
	replacement *ReplacementTable

	phraseReplacementEnabled bool
	externalConverterEnabled bool
	converter                Converter
}

// NewFacade returns an empty facade; every lookup misses until
// LoadLanguageModel binds a primary table.
func NewFacade() *Facade {
	return &Facade{}
}

// LoadLanguageModel (re)binds the primary dictionary table.
func (f *Facade) LoadLanguageModel(t *UnigramTable) {
	f.mu.Lock()
	f.primary = t
	f.mu.Unlock()
}

// IsLanguageModelLoaded reports whether a primary table is bound.
func (f *Facade) IsLanguageModelLoaded() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.primary != nil
}

// LoadUserPhrases (re)binds the user phrase and excluded phrase tables
// together, as one atomic swap.
func (f *Facade) LoadUserPhrases(user, excluded *PhraseTable) {
	f.mu.Lock()
	f.userPhrases = user
	f.excluded = excluded
	f.mu.Unlock()
}

// LoadPhraseReplacementMap (re)binds the phrase replacement table.
func (f *Facade) LoadPhraseReplacementMap(t *ReplacementTable) {
	f.mu.Lock()
	f.replacement = t
	f.mu.Unlock()
}

// SetPhraseReplacementEnabled toggles step 3 of the lookup pipeline.
func (f *Facade) SetPhraseReplacementEnabled(enabled bool) {
	f.mu.Lock()
	f.phraseReplacementEnabled = enabled
	f.mu.Unlock()
}

// SetExternalConverterEnabled toggles step 4 of the lookup pipeline.
func (f *Facade) SetExternalConverterEnabled(enabled bool) {
	f.mu.Lock()
	f.externalConverterEnabled = enabled
	f.mu.Unlock()
}

// SetExternalConverter installs the converter used when enabled.
func (f *Facade) SetExternalConverter(c Converter) {
	f.mu.Lock()
	f.converter = c
	f.mu.Unlock()
}

// UnigramsForKey returns the filtered unigrams for key. User phrases
// come first (score 0), then the primary dictionary rows in table order;
// duplicates by final value keep the first occurrence.
func (f *Facade) UnigramsForKey(key string) []Unigram {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lookupLocked(key)
}

// HasUnigramsForKey reports whether UnigramsForKey would be non-empty.
func (f *Facade) HasUnigramsForKey(key string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.lookupLocked(key)) > 0
}

// BigramsForKeys is unsupported; phrase cohesion comes only from
// multi-reading entries already present in the tables.
func (f *Facade) BigramsForKeys(precedingKey, key string) []Unigram {
	return nil
}

func (f *Facade) lookupLocked(key string) []Unigram {
	excluded := make(map[string]struct{})
	for _, v := range f.excluded.values(key) {
		excluded[v] = struct{}{}
	}

	var raw []Unigram
	for _, v := range f.userPhrases.values(key) {
		raw = append(raw, Unigram{Key: key, Value: v, Score: userPhraseScore})
	}
	raw = append(raw, f.primary.unigrams(key)...)
	if len(raw) == 0 {
		return nil
	}

	inserted := make(map[string]struct{}, len(raw))
	out := make([]Unigram, 0, len(raw))
	for _, u := range raw {
		if _, drop := excluded[u.Value]; drop {
			continue
		}
		value := u.Value
		if f.phraseReplacementEnabled {
			value = f.replacement.replace(value)
		}
		if f.externalConverterEnabled && f.converter != nil {
			value = f.converter(value)
		}
		if value == "" {
			continue
		}
		if _, dup := inserted[value]; dup {
			continue
		}
		inserted[value] = struct{}{}
		out = append(out, Unigram{Key: u.Key, Value: value, Score: u.Score})
	}
	return out
}
