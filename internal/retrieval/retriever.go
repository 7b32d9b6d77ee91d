package retrieval

import (
	"sort"

	"menu-qa/internal/corpus"
)

type ScoredChunk struct {
	corpus.Chunk
	Score float64
}

// Result is what one question retrieved. Intro and Footer are nil when the
// corpus has no such section or the chunk already appears in Ranked.
type Result struct {
	Intro  *corpus.Chunk
	Footer *corpus.Chunk
	Ranked []ScoredChunk
}

type Retriever struct {
	topKNarrow int
	topKWide   int
}

func NewRetriever(topKNarrow, topKWide int) *Retriever {
	return &Retriever{topKNarrow: topKNarrow, topKWide: topKWide}
}

// Retrieve ranks every chunk of idx by cosine similarity to query, keeps the
// top K for the intent and pins the first intro and footer chunks.
func (r *Retriever) Retrieve(idx *corpus.Index, query []float32, intent Intent) Result {
	scored := make([]ScoredChunk, len(idx.Chunks))
	for i, c := range idx.Chunks {
		scored[i] = ScoredChunk{Chunk: c, Score: Cosine(query, idx.Vectors[i])}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	k := r.topKNarrow
	if intent.IsWide() {
		k = r.topKWide
	}
	ranked := scored[:min(k, len(scored))]

	seen := make(map[string]struct{}, len(ranked))
	for _, c := range ranked {
		seen[c.ID] = struct{}{}
	}
	res := Result{Ranked: ranked}
	res.Intro = firstOf(idx.Chunks, corpus.IntroKey, seen)
	res.Footer = firstOf(idx.Chunks, corpus.FooterKey, seen)
	return res
}

func firstOf(chunks []corpus.Chunk, sectionKey string, seen map[string]struct{}) *corpus.Chunk {
	for i := range chunks {
		if chunks[i].SectionKey != sectionKey {
			continue
		}
		if _, dup := seen[chunks[i].ID]; dup {
			return nil
		}
		c := chunks[i]
		return &c
	}
	return nil
}
