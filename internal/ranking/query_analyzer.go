package ranking

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// wordPattern matches runs of letters (with combining marks), digits and underscores.
var wordPattern = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]+`)

// QueryAnalyzer tokenizes queries and candidate texts for keyword overlap.
type QueryAnalyzer struct {
	stopWords      StopWords
	minTokenLength int
}

// NewQueryAnalyzer creates a QueryAnalyzer. A nil stopWords uses DefaultStopWords;
// tokens shorter than minTokenLength characters are dropped.
func NewQueryAnalyzer(stopWords StopWords, minTokenLength int) *QueryAnalyzer {
	if stopWords == nil {
		stopWords = DefaultStopWords()
	}
	if minTokenLength < 1 {
		minTokenLength = 1
	}
	return &QueryAnalyzer{stopWords: stopWords, minTokenLength: minTokenLength}
}

// Analyze parses a query string and returns an AnalyzedQuery.
func (qa *QueryAnalyzer) Analyze(query string) *AnalyzedQuery {
	tokens := qa.Tokenize(query)
	terms := make([]string, 0, len(tokens))
	seen := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			terms = append(terms, t)
		}
	}
	return &AnalyzedQuery{Original: query, Terms: terms}
}

// Tokenize returns the lower-cased tokens of text longer than the minimum length, stop words removed.
func (qa *QueryAnalyzer) Tokenize(text string) []string {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	tokens := words[:0]
	for _, w := range words {
		if utf8.RuneCountInString(w) < qa.minTokenLength || qa.stopWords.Contains(w) {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// TokenSet returns the distinct tokens of text.
func (qa *QueryAnalyzer) TokenSet(text string) map[string]struct{} {
	tokens := qa.Tokenize(text)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
