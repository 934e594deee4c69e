package ranking

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/lang/es"
)

// StopWords decides which lower-cased tokens are ignored by keyword overlap.
type StopWords interface {
	Contains(word string) bool
}

// StopWordSet is a fixed set of lower-cased stop words.
type StopWordSet map[string]struct{}

// NewStopWordSet builds a set from words, lower-casing each one.
func NewStopWordSet(words ...string) StopWordSet {
	s := make(StopWordSet, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			s[w] = struct{}{}
		}
	}
	return s
}

// Contains reports whether word is in the set.
func (s StopWordSet) Contains(word string) bool {
	_, ok := s[word]
	return ok
}

var defaultStopWords = NewStopWordSet(
	"el", "la", "de", "que", "y", "a", "en", "un", "ser", "se", "no",
	"por", "con", "para", "una", "su", "es", "al", "lo", "del", "las",
	"the", "an", "and", "or", "but", "in", "on", "at", "to", "for",
)

// DefaultStopWords returns the small bilingual (Spanish/English) list used by default.
func DefaultStopWords() StopWords {
	return defaultStopWords
}

// ExtendedStopWords returns the Snowball Spanish and English stop-word lists shipped with
// bleve's language analyzers, merged with the default list.
func ExtendedStopWords() (StopWords, error) {
	tm := analysis.NewTokenMap()
	if err := tm.LoadBytes(en.EnglishStopWords); err != nil {
		return nil, fmt.Errorf("load english stop words: %w", err)
	}
	if err := tm.LoadBytes(es.SpanishStopWords); err != nil {
		return nil, fmt.Errorf("load spanish stop words: %w", err)
	}
	s := make(StopWordSet, len(tm)+len(defaultStopWords))
	for w := range tm {
		s[strings.ToLower(w)] = struct{}{}
	}
	for w := range defaultStopWords {
		s[w] = struct{}{}
	}
	return s, nil
}

// noStopWords disables stop-word filtering.
type noStopWords struct{}

func (noStopWords) Contains(string) bool { return false }

// stopWordsFromConfig resolves the configured list. CustomStopWords wins over StopWords.
func stopWordsFromConfig(c *RankingConfig) (StopWords, error) {
	if len(c.CustomStopWords) > 0 {
		return NewStopWordSet(c.CustomStopWords...), nil
	}
	switch c.StopWords {
	case StopWordsExtended:
		return ExtendedStopWords()
	case StopWordsNone:
		return noStopWords{}, nil
	default:
		return DefaultStopWords(), nil
	}
}
