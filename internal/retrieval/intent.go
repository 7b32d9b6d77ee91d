package retrieval

import (
	"context"
	"errors"
	"fmt"

	"menu-qa/internal/config"
	"menu-qa/internal/llm"
	"menu-qa/internal/metrics"
	"menu-qa/internal/shared"
	"menu-qa/internal/warm"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	IntentRecommendation = "recommendation"
	IntentCheapest       = "cheapest"
	IntentComparison     = "comparison"
	IntentGeneral        = "general"
)

// Intent is the outcome of classification.
type Intent struct {
	Label       string
	Instruction string
	Score       float64
}

// IsWide reports whether the intent needs a broader retrieval.
func (i Intent) IsWide() bool {
	return i.Label == IntentCheapest || i.Label == IntentComparison
}

// IntentClassifier picks the prototype closest to a question embedding.
// Prototype vectors are embedded once, on first use.
type IntentClassifier struct {
	intents    []config.IntentConfig
	prototypes *warm.Value[[][]float32]
}

func NewIntentClassifier(intents []config.IntentConfig, embedder llm.Embedder) *IntentClassifier {
	c := &IntentClassifier{intents: intents}
	c.prototypes = warm.New("intent-prototypes", func(ctx context.Context) ([][]float32, error) {
		descs := make([]string, len(intents))
		for i, in := range intents {
			descs[i] = in.Description
		}
		t := prometheus.NewTimer(metrics.EmbeddingDuration.WithLabelValues("intent"))
		vecs, err := embedder.Embed(ctx, descs)
		t.ObserveDuration()
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(descs) {
			return nil, errors.Join(shared.ErrEmbeddingMismatch, fmt.Errorf("%d intents, %d vectors", len(descs), len(vecs)))
		}
		return vecs, nil
	})
	return c
}

// Classify returns the label with the highest cosine similarity. Ties keep the
// first configured intent. With no intents configured it returns general.
func (c *IntentClassifier) Classify(ctx context.Context, query []float32) (Intent, error) {
	if len(c.intents) == 0 {
		return Intent{Label: IntentGeneral}, nil
	}
	protos, err := c.prototypes.Get(ctx)
	if err != nil {
		return Intent{}, err
	}
	best := -1
	bestScore := 0.0
	for i, p := range protos {
		s := Cosine(query, p)
		if best < 0 || s > bestScore {
			best, bestScore = i, s
		}
	}
	in := c.intents[best]
	return Intent{Label: in.Label, Instruction: in.Instruction, Score: bestScore}, nil
}

func (c *IntentClassifier) Ready() bool {
	return c.prototypes.Ready()
}
