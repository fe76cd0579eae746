package lm

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// userPhraseScore is the score user phrases enter the lattice with. Zero
// beats every dictionary entry (dictionary scores are negative log
// probabilities) without beating an explicit pin.
const userPhraseScore = 0.0

// UnigramTable holds primary dictionary rows keyed by reading.
type UnigramTable struct {
	rows map[string][]Unigram
}

// NewUnigramTable builds a table from rows, preserving per-key order.
func NewUnigramTable(rows []Unigram) *UnigramTable {
	t := &UnigramTable{rows: make(map[string][]Unigram, len(rows))}
	for _, r := range rows {
		t.rows[r.Key] = append(t.rows[r.Key], r)
	}
	return t
}

func (t *UnigramTable) unigrams(key string) []Unigram {
	if t == nil {
		return nil
	}
	return t.rows[key]
}

// PhraseTable holds user or excluded phrase rows: reading to values.
type PhraseTable struct {
	rows map[string][]string
}

// NewPhraseTable builds a phrase table from (reading, value) pairs.
func NewPhraseTable(pairs [][2]string) *PhraseTable {
	t := &PhraseTable{rows: make(map[string][]string, len(pairs))}
	for _, p := range pairs {
		t.rows[p[0]] = append(t.rows[p[0]], p[1])
	}
	return t
}

func (t *PhraseTable) values(key string) []string {
	if t == nil {
		return nil
	}
	return t.rows[key]
}

// ReplacementTable maps candidate values to their replacements.
type ReplacementTable struct {
	rows map[string]string
}

// NewReplacementTable builds a replacement table from (from, to) pairs.
func NewReplacementTable(pairs [][2]string) *ReplacementTable {
	t := &ReplacementTable{rows: make(map[string]string, len(pairs))}
	for _, p := range pairs {
		t.rows[p[0]] = p[1]
	}
	return t
}

func (t *ReplacementTable) replace(value string) string {
	if t == nil {
		return value
	}
	if to, ok := t.rows[value]; ok && to != "" {
		return to
	}
	return value
}

// ParseUnigramTable reads primary dictionary rows from r. Each line is
// "reading value score"; blank lines and lines starting with # are
// skipped.
func ParseUnigramTable(r io.Reader) (*UnigramTable, error) {
	var rows []Unigram
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields, ok := tableFields(scanner.Text())
		if !ok {
			continue
		}
		if len(fields) != 3 {
			return nil, fmt.Errorf("line %d: expected 3 fields, got %d", lineNo, len(fields))
		}
		score, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad score %q: %w", lineNo, fields[2], err)
		}
		rows = append(rows, Unigram{Key: fields[0], Value: fields[1], Score: score})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	return NewUnigramTable(rows), nil
}

// ParsePhraseTable reads user or excluded phrase rows from r. Each line
// is "value reading", the order user phrase files are appended in.
func ParsePhraseTable(r io.Reader) (*PhraseTable, error) {
	var pairs [][2]string
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields, ok := tableFields(scanner.Text())
		if !ok {
			continue
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected 2 fields, got %d", lineNo, len(fields))
		}
		pairs = append(pairs, [2]string{fields[1], fields[0]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read phrases: %w", err)
	}
	return NewPhraseTable(pairs), nil
}

// ParseReplacementTable reads "from to" rows from r.
func ParseReplacementTable(r io.Reader) (*ReplacementTable, error) {
	var pairs [][2]string
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields, ok := tableFields(scanner.Text())
		if !ok {
			continue
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected 2 fields, got %d", lineNo, len(fields))
		}
		pairs = append(pairs, [2]string{fields[0], fields[1]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read replacements: %w", err)
	}
	return NewReplacementTable(pairs), nil
}

func tableFields(line string) ([]string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, false
	}
	return strings.Fields(line), true
}
