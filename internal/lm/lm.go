// Package lm provides the language model facade the composing lattice
// looks readings up against.
//
// The facade merges a primary dictionary, user phrases, excluded phrases,
// a phrase replacement table, and an optional external text converter
// into one lookup surface. Every lookup runs the same pipeline:
//
//  1. gather the raw unigrams (user phrases first, then primary),
//  2. drop entries whose value is excluded for the key,
//  3. rewrite surviving values via the replacement table (if enabled),
//  4. rewrite via the external converter (if enabled),
//  5. deduplicate by resulting value, first occurrence wins.
package lm

// Unigram is a single (key, value, score) entry from the language model.
type Unigram struct {
	Key   string
	Value string
	Score float64
}

// Model is the lookup surface the lattice builds nodes from.
type Model interface {
	// UnigramsForKey returns the filtered unigrams for a reading key,
	// in stable order.
	UnigramsForKey(key string) []Unigram

	// HasUnigramsForKey reports whether at least one unigram survives
	// the filter pipeline for the key. There is no shortcut on raw
	// table presence: a key whose every entry is excluded has none.
	HasUnigramsForKey(key string) bool
}

// Converter rewrites a candidate value, e.g. for script conversion.
type Converter func(string) string
