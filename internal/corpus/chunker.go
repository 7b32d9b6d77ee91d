package corpus

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"menu-qa/internal/config"
	"menu-qa/internal/shared"
)

// Section keys with special meaning to retrieval.
const (
	IntroKey     = "intro"
	IntroLabel   = "INTRO"
	FooterKey    = "footer"
	GeneralKey   = "general"
	GeneralLabel = "GENERAL"
)

// Marker is a compiled section boundary.
type Marker struct {
	Key     string
	Label   string
	Pattern *regexp.Regexp
}

// Section is a contiguous, trimmed span of the corpus.
type Section struct {
	Key   string
	Label string
	Text  string
}

// Chunk is a bounded piece of one section.
type Chunk struct {
	ID           string
	SectionKey   string
	SectionLabel string
	Ordinal      int
	Text         string
}

// CompileMarkers compiles marker patterns for per-line, case-insensitive
// matching.
func CompileMarkers(cfgs []config.MarkerConfig) ([]Marker, error) {
	markers := make([]Marker, 0, len(cfgs))
	for _, c := range cfgs {
		if c.Key == "" {
			return nil, fmt.Errorf("marker %q has no key", c.Label)
		}
		re, err := regexp.Compile("(?im)" + c.Pattern)
		if err != nil {
			return nil, fmt.Errorf("marker %s: %w", c.Key, err)
		}
		label := c.Label
		if label == "" {
			label = strings.ToUpper(c.Key)
		}
		markers = append(markers, Marker{Key: c.Key, Label: label, Pattern: re})
	}
	return markers, nil
}

type boundary struct {
	pos    int
	marker Marker
}

// SplitSections cuts text at the first match of each distinct marker, in
// textual order. Text ahead of the first boundary becomes the intro. Without
// any match the corpus degrades to one general section of at most
// unmatchedCap characters.
func SplitSections(text string, markers []Marker, unmatchedCap int) []Section {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	seen := map[string]bool{}
	var bounds []boundary
	for _, m := range markers {
		if seen[m.Key] {
			continue
		}
		loc := m.Pattern.FindStringIndex(text)
		if loc == nil {
			continue
		}
		seen[m.Key] = true
		bounds = append(bounds, boundary{pos: loc[0], marker: m})
	}

	if len(bounds) == 0 {
		body := strings.TrimSpace(shared.Truncate(strings.TrimSpace(text), unmatchedCap))
		if body == "" {
			return nil
		}
		return []Section{{Key: GeneralKey, Label: GeneralLabel, Text: body}}
	}

	sort.SliceStable(bounds, func(i, j int) bool { return bounds[i].pos < bounds[j].pos })

	var sections []Section
	if intro := strings.TrimSpace(text[:bounds[0].pos]); intro != "" {
		sections = append(sections, Section{Key: IntroKey, Label: IntroLabel, Text: intro})
	}
	for i, b := range bounds {
		end := len(text)
		if i+1 < len(bounds) {
			end = bounds[i+1].pos
		}
		body := strings.TrimSpace(text[b.pos:end])
		if body == "" {
			continue
		}
		sections = append(sections, Section{Key: b.marker.Key, Label: b.marker.Label, Text: body})
	}
	return sections
}

// PackSection greedily packs whole lines into chunks of at most charCap
// characters. Lines keep their newline so the chunks concatenate back to the
// section text. A line longer than the cap is cut into cap-sized pieces.
func PackSection(sec Section, charCap int) []Chunk {
	var pieces []string
	for _, line := range strings.SplitAfter(sec.Text, "\n") {
		if line == "" {
			continue
		}
		pieces = append(pieces, splitRunes(line, charCap)...)
	}

	var chunks []Chunk
	var buf strings.Builder
	bufLen := 0
	flush := func() {
		if bufLen == 0 {
			return
		}
		ordinal := len(chunks)
		chunks = append(chunks, Chunk{
			ID:           fmt.Sprintf("%s:%d", sec.Key, ordinal),
			SectionKey:   sec.Key,
			SectionLabel: sec.Label,
			Ordinal:      ordinal,
			Text:         buf.String(),
		})
		buf.Reset()
		bufLen = 0
	}
	for _, p := range pieces {
		n := utf8.RuneCountInString(p)
		if bufLen > 0 && bufLen+n > charCap {
			flush()
		}
		buf.WriteString(p)
		bufLen += n
	}
	flush()
	return chunks
}

// ChunkCorpus splits and packs the whole corpus, preserving section order.
func ChunkCorpus(text string, markers []Marker, charCap, unmatchedCap int) []Chunk {
	var out []Chunk
	for _, sec := range SplitSections(text, markers, unmatchedCap) {
		out = append(out, PackSection(sec, charCap)...)
	}
	return out
}

func splitRunes(s string, n int) []string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return []string{s}
	}
	r := []rune(s)
	var out []string
	for len(r) > n {
		out = append(out, string(r[:n]))
		r = r[n:]
	}
	if len(r) > 0 {
		out = append(out, string(r))
	}
	return out
}
