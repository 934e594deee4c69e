// Package indexer cleans extracted document text and splits it into chunks sized for embedding.
package indexer

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/chunkrank/internal/models"
)

// MinChunkLength is the shortest chunk kept; shorter pieces are treated as noise.
const MinChunkLength = 50

var (
	paragraphBreaks = regexp.MustCompile(`\n{3,}`)
	// sentenceBoundary matches terminal punctuation, the whitespace after it, and the
	// uppercase letter opening the next sentence (optionally after an opening mark such as ¿).
	// Group 1 is the whitespace.
	sentenceBoundary = regexp.MustCompile(`[.!?](\s+)[¿¡"“'‘(«]?\p{Lu}`)
)

// Chunker splits cleaned text into overlapping chunks that respect paragraph and
// sentence boundaries. Sizes are measured in characters (runes).
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in characters).
// Returns an error wrapping models.ErrInvalidConfiguration when chunkSize is not positive,
// chunkOverlap is negative, or chunkOverlap is not smaller than chunkSize.
func NewChunker(chunkSize, chunkOverlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk_size must be positive, got %d", models.ErrInvalidConfiguration, chunkSize)
	}
	if chunkOverlap < 0 {
		return nil, fmt.Errorf("%w: chunk_overlap must not be negative, got %d", models.ErrInvalidConfiguration, chunkOverlap)
	}
	if chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk_overlap (%d) must be smaller than chunk_size (%d)",
			models.ErrInvalidConfiguration, chunkOverlap, chunkSize)
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}, nil
}

// Split validates the parameters and splits text in one call.
func Split(text string, chunkSize, chunkOverlap int) ([]*models.Chunk, error) {
	c, err := NewChunker(chunkSize, chunkOverlap)
	if err != nil {
		return nil, err
	}
	return c.Split(text), nil
}

// ChunkSize returns the configured chunk size.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// ChunkOverlap returns the configured overlap.
func (c *Chunker) ChunkOverlap() int { return c.chunkOverlap }

// Split splits text into chunks. Every chunk is at most ChunkSize+ChunkOverlap characters
// and at least MinChunkLength characters long; Index and Total are stamped on each.
// The sentence carried into a new chunk is always the last sentence of the chunk just
// closed, so it is refreshed after each paragraph is packed, not only when a chunk is emitted.
// Empty input returns an empty slice.
func (c *Chunker) Split(text string) []*models.Chunk {
	var pieces []string
	current := ""
	previous := ""
	for _, p := range splitParagraphs(text) {
		pLen := runeLen(p)
		if current != "" && runeLen(current)+pLen+2 <= c.chunkSize {
			current += "\n\n" + p
			previous = lastSentence(current)
			continue
		}
		if current != "" {
			pieces = append(pieces, current)
			current = ""
		}
		if pLen > c.chunkSize {
			split := c.splitOversized(p, c.seed(previous))
			pieces = append(pieces, split...)
			if len(split) > 0 {
				previous = lastSentence(split[len(split)-1])
			}
			continue
		}
		current = c.withCarry(previous, p)
		previous = lastSentence(current)
	}
	if current != "" {
		pieces = append(pieces, current)
	}

	chunks := make([]*models.Chunk, 0, len(pieces))
	for _, piece := range pieces {
		if runeLen(piece) >= MinChunkLength {
			chunks = append(chunks, &models.Chunk{Text: piece})
		}
	}
	for i, ch := range chunks {
		ch.Index = i
		ch.Total = len(chunks)
	}
	return chunks
}

// seed returns the carry-over sentence when it fits in the overlap budget.
func (c *Chunker) seed(previous string) string {
	if previous == "" || runeLen(previous) > c.chunkOverlap {
		return ""
	}
	return previous
}

// withCarry prefixes paragraph p with the previous chunk's last sentence when it is short enough.
func (c *Chunker) withCarry(previous, p string) string {
	s := c.seed(previous)
	if s == "" || runeLen(s)+2+runeLen(p) > c.chunkSize+c.chunkOverlap {
		return p
	}
	return s + "\n\n" + p
}

// splitOversized packs the sentences of a paragraph longer than chunkSize into chunks.
// When a sentence overflows, the closed chunk's tail is carried into the next one.
func (c *Chunker) splitOversized(paragraph, seed string) []string {
	var out []string
	buf := seed
	onlySeed := seed != ""
	for _, s := range splitSentences(paragraph) {
		sLen := runeLen(s)
		switch {
		case buf == "":
			buf = s
		case runeLen(buf)+1+sLen <= c.chunkSize:
			buf += " " + s
		case onlySeed:
			if sLen <= c.chunkSize && runeLen(buf)+1+sLen <= c.chunkSize+c.chunkOverlap {
				buf += " " + s
			} else {
				buf = s
			}
		default:
			out = append(out, buf)
			if sLen > c.chunkSize {
				buf = s
			} else {
				buf = c.carryTail(buf, sLen) + s
			}
		}
		onlySeed = false
		if runeLen(buf) > c.chunkSize+c.chunkOverlap || (buf == s && sLen > c.chunkSize) {
			wrapped := wrapWords(buf, c.chunkSize)
			out = append(out, wrapped[:len(wrapped)-1]...)
			buf = wrapped[len(wrapped)-1]
		}
	}
	if buf != "" {
		out = append(out, buf)
	}
	return out
}

// carryTail returns the trailing overlap of prev, aligned to a word start, followed by a space.
// The tail is shortened so that tail + " " + next sentence stays within chunkSize+chunkOverlap.
func (c *Chunker) carryTail(prev string, nextLen int) string {
	limit := c.chunkOverlap
	if room := c.chunkSize + c.chunkOverlap - 1 - nextLen; room < limit {
		limit = room
	}
	if limit <= 0 {
		return ""
	}
	runes := []rune(prev)
	start := len(runes) - limit
	if start < 0 {
		start = 0
	}
	if start > 0 && !unicode.IsSpace(runes[start-1]) {
		for i := start; i < len(runes); i++ {
			if unicode.IsSpace(runes[i]) {
				start = i + 1
				break
			}
		}
	}
	tail := strings.TrimLeftFunc(string(runes[start:]), unicode.IsSpace)
	if tail == "" {
		return ""
	}
	return tail + " "
}

// splitParagraphs splits on blank lines and drops empty paragraphs.
func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = paragraphBreaks.ReplaceAllString(text, "\n\n")
	parts := strings.Split(text, "\n\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitSentences splits text at sentence boundaries, keeping terminal punctuation.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for _, m := range sentenceBoundary.FindAllStringSubmatchIndex(text, -1) {
		if s := strings.TrimSpace(text[start:m[2]]); s != "" {
			out = append(out, s)
		}
		start = m[3]
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

// lastSentence returns the last complete sentence of fragment, or the whole
// fragment when it has no sentence boundary.
func lastSentence(fragment string) string {
	sentences := splitSentences(fragment)
	if len(sentences) == 0 {
		return strings.TrimSpace(fragment)
	}
	return sentences[len(sentences)-1]
}

// wrapWords breaks text into pieces of at most size characters at word boundaries.
// A single word longer than size is cut.
func wrapWords(text string, size int) []string {
	var out []string
	var b strings.Builder
	n := 0
	flush := func() {
		if n > 0 {
			out = append(out, b.String())
			b.Reset()
			n = 0
		}
	}
	for _, w := range strings.Fields(text) {
		wr := []rune(w)
		for len(wr) > size {
			flush()
			out = append(out, string(wr[:size]))
			wr = wr[size:]
		}
		if len(wr) == 0 {
			continue
		}
		if n > 0 && n+1+len(wr) > size {
			flush()
		}
		if n > 0 {
			b.WriteByte(' ')
			n++
		}
		b.WriteString(string(wr))
		n += len(wr)
	}
	flush()
	if len(out) == 0 {
		out = append(out, "")
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
