package indexer

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/chunkrank/internal/models"
	"golang.org/x/text/unicode/norm"
)

// Cleaning thresholds. Each one can be overridden through CleanerConfig.
const (
	// DefaultGarbageRatio is the maximum share of disallowed characters a line may carry.
	DefaultGarbageRatio = 0.4
	// DefaultArtifactRunLength is the length at which a run of one repeated character is dropped.
	DefaultArtifactRunLength = 10
	// DefaultTableLineMaxLength bounds lines treated as table borders (digits, dashes, pipes, dots).
	DefaultTableLineMaxLength = 15
	// DefaultBareLinkMaxLength bounds lines treated as a bare URL or e-mail address.
	DefaultBareLinkMaxLength = 100
	// DefaultRepeatThreshold is the number of occurrences a line may have before it counts as a header/footer.
	DefaultRepeatThreshold = 3
	// DefaultRepeatMaxLineLength bounds lines considered for header/footer detection.
	DefaultRepeatMaxLineLength = 100
)

var (
	footerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^p[áa]gina\s+\d+(\s+de\s+\d+)?$`),
		regexp.MustCompile(`(?i)^page\s+\d+(\s+of\s+\d+)?$`),
		regexp.MustCompile(`^\d+\s*/\s*\d+$`),
		regexp.MustCompile(`(?i)^\d+\s+de\s+\d+$`),
		regexp.MustCompile(`^\[\d+\]$`),
		regexp.MustCompile(`^-\s*\d+\s*-$`),
	}
	tableBorderLine = regexp.MustCompile(`^[\d\s\-|.]+$`)
	bareURL         = regexp.MustCompile(`(?i)^(https?://|www\.)\S+$`)
	bareEmail       = regexp.MustCompile(`^[\w.+\-]+@[\w\-]+(\.[\w\-]+)+$`)
	multiSpace      = regexp.MustCompile(` {2,}`)
	excessNewlines  = regexp.MustCompile(`\n{4,}`)
)

// allowedPunctuation lists the non-alphanumeric characters that count as legitimate text.
const allowedPunctuation = `.,;:!?¿¡'"()[]{}<>-–—/\%$€£&@#*+=_~^|` + "`" + `“”‘’«»…•·°ºª§`

// CleanerConfig holds the thresholds used by Cleaner.
type CleanerConfig struct {
	GarbageRatio        float64 `yaml:"garbage_ratio"`
	ArtifactRunLength   int     `yaml:"artifact_run_length"`
	TableLineMaxLength  int     `yaml:"table_line_max_length"`
	BareLinkMaxLength   int     `yaml:"bare_link_max_length"`
	RepeatThreshold     int     `yaml:"repeat_threshold"`
	RepeatMaxLineLength int     `yaml:"repeat_max_line_length"`
}

// DefaultCleanerConfig returns the default cleaning thresholds.
func DefaultCleanerConfig() *CleanerConfig {
	return &CleanerConfig{
		GarbageRatio:        DefaultGarbageRatio,
		ArtifactRunLength:   DefaultArtifactRunLength,
		TableLineMaxLength:  DefaultTableLineMaxLength,
		BareLinkMaxLength:   DefaultBareLinkMaxLength,
		RepeatThreshold:     DefaultRepeatThreshold,
		RepeatMaxLineLength: DefaultRepeatMaxLineLength,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *CleanerConfig) ApplyDefaults() {
	defaults := DefaultCleanerConfig()
	if c.GarbageRatio == 0 {
		c.GarbageRatio = defaults.GarbageRatio
	}
	if c.ArtifactRunLength == 0 {
		c.ArtifactRunLength = defaults.ArtifactRunLength
	}
	if c.TableLineMaxLength == 0 {
		c.TableLineMaxLength = defaults.TableLineMaxLength
	}
	if c.BareLinkMaxLength == 0 {
		c.BareLinkMaxLength = defaults.BareLinkMaxLength
	}
	if c.RepeatThreshold == 0 {
		c.RepeatThreshold = defaults.RepeatThreshold
	}
	if c.RepeatMaxLineLength == 0 {
		c.RepeatMaxLineLength = defaults.RepeatMaxLineLength
	}
}

// Validate checks the thresholds after defaults are applied.
// Returns an error wrapping models.ErrInvalidConfiguration.
func (c *CleanerConfig) Validate() error {
	if !(c.GarbageRatio > 0 && c.GarbageRatio <= 1) {
		return fmt.Errorf("%w: garbage_ratio must be in (0, 1], got %v", models.ErrInvalidConfiguration, c.GarbageRatio)
	}
	for _, f := range []struct {
		name  string
		value int
	}{
		{"artifact_run_length", c.ArtifactRunLength},
		{"table_line_max_length", c.TableLineMaxLength},
		{"bare_link_max_length", c.BareLinkMaxLength},
		{"repeat_threshold", c.RepeatThreshold},
		{"repeat_max_line_length", c.RepeatMaxLineLength},
	} {
		if f.value < 1 {
			return fmt.Errorf("%w: %s must be positive, got %d", models.ErrInvalidConfiguration, f.name, f.value)
		}
	}
	return nil
}

// Cleaner removes PDF/OCR extraction noise from raw document text.
// A Cleaner is immutable and safe for concurrent use.
type Cleaner struct {
	config CleanerConfig
}

// NewCleaner creates a Cleaner. A nil config uses the defaults; zero fields are defaulted.
// Returns an error wrapping models.ErrInvalidConfiguration for out-of-range thresholds.
func NewCleaner(config *CleanerConfig) (*Cleaner, error) {
	cfg := DefaultCleanerConfig()
	if config != nil {
		*cfg = *config
		cfg.ApplyDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Cleaner{config: *cfg}, nil
}

var defaultCleaner = &Cleaner{config: *DefaultCleanerConfig()}

// Preprocess cleans text with the default thresholds.
func Preprocess(text string) string {
	return defaultCleaner.Clean(text)
}

// Clean returns raw with extraction artifacts removed. It never fails: empty or
// all-noise input yields an empty string.
func (c *Cleaner) Clean(raw string) string {
	if raw == "" {
		return ""
	}
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = stripControl(text)
	text = norm.NFC.String(text)
	text = c.removeCharacterRuns(text)

	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if c.keepLine(line) {
			kept = append(kept, line)
		}
	}
	kept = c.removeRepeatedLines(kept)

	for i, line := range kept {
		line = multiSpace.ReplaceAllString(line, " ")
		kept[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	text = strings.Join(kept, "\n")
	text = excessNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// stripControl drops C0 controls other than newline and tab, DEL, and C1 controls.
func stripControl(text string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r < 0x20, r == 0x7f, r >= 0x80 && r <= 0x9f:
			return -1
		}
		return r
	}, text)
}

// removeCharacterRuns drops runs of the same non-space character at least ArtifactRunLength long.
// Removal can join two shorter runs into a long one, so it repeats until stable.
func (c *Cleaner) removeCharacterRuns(text string) string {
	for {
		out, changed := c.removeRunsOnce(text)
		if !changed {
			return out
		}
		text = out
	}
}

func (c *Cleaner) removeRunsOnce(text string) (string, bool) {
	runes := []rune(text)
	var b strings.Builder
	b.Grow(len(text))
	changed := false
	for i := 0; i < len(runes); {
		j := i + 1
		for j < len(runes) && runes[j] == runes[i] {
			j++
		}
		if j-i >= c.config.ArtifactRunLength && !unicode.IsSpace(runes[i]) {
			changed = true
		} else {
			for k := i; k < j; k++ {
				b.WriteRune(runes[k])
			}
		}
		i = j
	}
	return b.String(), changed
}

// keepLine reports whether a line survives the per-line noise filters. Blank lines are kept.
func (c *Cleaner) keepLine(line string) bool {
	trimmed := multiSpace.ReplaceAllString(strings.TrimSpace(line), " ")
	if trimmed == "" {
		return true
	}
	length := utf8.RuneCountInString(trimmed)
	if c.garbageRatio(trimmed, length) > c.config.GarbageRatio {
		return false
	}
	if length < c.config.TableLineMaxLength && tableBorderLine.MatchString(trimmed) {
		return false
	}
	for _, p := range footerPatterns {
		if p.MatchString(trimmed) {
			return false
		}
	}
	if length < c.config.BareLinkMaxLength && (bareURL.MatchString(trimmed) || bareEmail.MatchString(trimmed)) {
		return false
	}
	return true
}

func (c *Cleaner) garbageRatio(line string, length int) float64 {
	if length == 0 {
		return 0
	}
	bad := 0
	for _, r := range line {
		if !isAllowedRune(r) {
			bad++
		}
	}
	return float64(bad) / float64(length)
}

func isAllowedRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || unicode.IsMark(r) {
		return true
	}
	return strings.ContainsRune(allowedPunctuation, r)
}

// removeRepeatedLines drops every occurrence of a short line seen more than RepeatThreshold times.
func (c *Cleaner) removeRepeatedLines(lines []string) []string {
	counts := make(map[string]int)
	for _, line := range lines {
		if key, ok := c.repeatKey(line); ok {
			counts[key]++
		}
	}
	out := lines[:0]
	for _, line := range lines {
		if key, ok := c.repeatKey(line); ok && counts[key] > c.config.RepeatThreshold {
			continue
		}
		out = append(out, line)
	}
	return out
}

func (c *Cleaner) repeatKey(line string) (string, bool) {
	key := multiSpace.ReplaceAllString(strings.TrimSpace(line), " ")
	if key == "" || utf8.RuneCountInString(key) >= c.config.RepeatMaxLineLength {
		return "", false
	}
	return key, true
}
