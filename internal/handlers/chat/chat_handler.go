// Package chat runs a question through governance, retrieval and generation.
package chat

import (
	"menu-qa/internal/buckets"
	"menu-qa/internal/config"
	"menu-qa/internal/corpus"
	"menu-qa/internal/governance"
	"menu-qa/internal/llm"
	"menu-qa/internal/retrieval"

	"go.uber.org/zap"
)

type ChatHandler struct {
	Log *zap.SugaredLogger

	cfg        *config.AppConfig
	state      *governance.State
	indexer    *corpus.Indexer
	embedder   llm.Embedder
	generator  llm.Generator
	classifier *retrieval.IntentClassifier
	retriever  *retrieval.Retriever
	assembler  *retrieval.ContextAssembler
	questions  *buckets.QuestionLog
}

type Options struct {
	Config    *config.AppConfig
	State     *governance.State
	Indexer   *corpus.Indexer
	Provider  llm.Provider
	Questions *buckets.QuestionLog // optional
	Log       *zap.SugaredLogger
}

func NewChatHandler(opts Options) *ChatHandler {
	cfg := opts.Config
	return &ChatHandler{
		Log:        opts.Log,
		cfg:        cfg,
		state:      opts.State,
		indexer:    opts.Indexer,
		embedder:   opts.Provider,
		generator:  opts.Provider,
		classifier: retrieval.NewIntentClassifier(cfg.Intents, opts.Provider),
		retriever:  retrieval.NewRetriever(cfg.Retrieval.TopKNarrow, cfg.Retrieval.TopKWide),
		assembler:  retrieval.NewContextAssembler(cfg.Retrieval.ContextChars),
		questions:  opts.Questions,
	}
}

// CorpusReady reports whether the corpus index is warm.
func (h *ChatHandler) CorpusReady() bool {
	return h.indexer.Ready()
}

// State exposes the governance state so the owner can reset it.
func (h *ChatHandler) State() *governance.State {
	return h.state
}

func (h *ChatHandler) ShutDown() {
	if h.questions != nil {
		h.questions.Shutdown()
	}
}

// ReindexCorpus drops the corpus index. The next question rebuilds it.
func (h *ChatHandler) ReindexCorpus() {
	h.indexer.Reset()
}
