package corpus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"menu-qa/internal/llm"
	"menu-qa/internal/metrics"
	"menu-qa/internal/shared"
	"menu-qa/internal/warm"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Index is an immutable snapshot: Vectors[i] is the embedding of Chunks[i].
type Index struct {
	Chunks  []Chunk
	Vectors [][]float32
	Source  string
	BuiltAt time.Time
}

type IndexerConfig struct {
	Markers      []Marker
	ChunkChars   int
	UnmatchedCap int
}

// Indexer builds the corpus index on first use and keeps it for the rest of
// the process lifetime (or until Reset).
type Indexer struct {
	source   Source
	embedder llm.Embedder
	cfg      IndexerConfig
	log      *zap.SugaredLogger
	value    *warm.Value[*Index]
}

func NewIndexer(source Source, embedder llm.Embedder, cfg IndexerConfig, log *zap.SugaredLogger) *Indexer {
	ix := &Indexer{source: source, embedder: embedder, cfg: cfg, log: log}
	ix.value = warm.New("corpus-index", ix.build)
	return ix
}

func (ix *Indexer) Get(ctx context.Context) (*Index, error) {
	return ix.value.Get(ctx)
}

func (ix *Indexer) Ready() bool {
	return ix.value.Ready()
}

// Reset drops the index so the next question re-reads and re-embeds the corpus.
func (ix *Indexer) Reset() {
	ix.value.Reset()
	metrics.IndexedChunks.Set(0)
	ix.log.Infow("Corpus index reset", "source", ix.source.Name())
}

func (ix *Indexer) build(ctx context.Context) (*Index, error) {
	start := time.Now()
	text, err := ix.source.Load(ctx)
	if err != nil {
		metrics.ErrorCount.WithLabelValues(shared.ErrCorpusLoad.Code).Inc()
		return nil, err
	}

	chunks := ChunkCorpus(text, ix.cfg.Markers, ix.cfg.ChunkChars, ix.cfg.UnmatchedCap)
	if len(chunks) == 0 {
		return nil, errors.Join(shared.ErrCorpusEmpty, fmt.Errorf("source %s", ix.source.Name()))
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	timer := prometheus.NewTimer(metrics.EmbeddingDuration.WithLabelValues("corpus"))
	vectors, err := ix.embedder.Embed(ctx, texts)
	timer.ObserveDuration()
	if err != nil {
		metrics.ErrorCount.WithLabelValues(shared.ErrEmbedding.Code).Inc()
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, errors.Join(shared.ErrEmbeddingMismatch, fmt.Errorf("%d chunks, %d vectors", len(chunks), len(vectors)))
	}

	metrics.IndexedChunks.Set(float64(len(chunks)))
	ix.log.Infow("Corpus indexed",
		"source", ix.source.Name(),
		"chunks", len(chunks),
		"duration", time.Since(start).String(),
	)
	return &Index{
		Chunks:  chunks,
		Vectors: vectors,
		Source:  ix.source.Name(),
		BuiltAt: time.Now(),
	}, nil
}
