package retrieval

import (
	"strings"

	"menu-qa/internal/corpus"
	"menu-qa/internal/shared"
)

type ContextAssembler struct {
	maxChars int
}

func NewContextAssembler(maxChars int) *ContextAssembler {
	return &ContextAssembler{maxChars: maxChars}
}

// Assemble renders the retrieved chunks as labelled blocks in the order intro,
// footer, ranked, separated by blank lines and cut to the character cap.
func (a *ContextAssembler) Assemble(res Result) string {
	blocks := make([]string, 0, len(res.Ranked)+2)
	if res.Intro != nil {
		blocks = append(blocks, block(*res.Intro))
	}
	if res.Footer != nil {
		blocks = append(blocks, block(*res.Footer))
	}
	for _, c := range res.Ranked {
		blocks = append(blocks, block(c.Chunk))
	}
	return shared.Truncate(strings.Join(blocks, "\n\n"), a.maxChars)
}

func block(c corpus.Chunk) string {
	return "[" + c.SectionLabel + " | " + c.ID + "]\n" + c.Text
}
