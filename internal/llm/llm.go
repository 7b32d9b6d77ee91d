// Package llm defines the language-model capabilities the pipeline needs and
// an OpenAI-compatible implementation of them.
package llm

import (
	"context"

	"menu-qa/internal/shared"
)

// Embedder turns texts into fixed-length vectors, one per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// DeltaStream yields incremental answer fragments. Recv returns io.EOF after
// the last fragment.
type DeltaStream interface {
	Recv() (string, error)
	Close() error
}

// Generator answers a list of role-tagged messages, either at once or as a
// stream of deltas.
type Generator interface {
	Complete(ctx context.Context, messages []shared.ChatMessage) (string, error)
	Stream(ctx context.Context, messages []shared.ChatMessage) (DeltaStream, error)
}

type Provider interface {
	Embedder
	Generator
}
