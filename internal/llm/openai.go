package llm

import (
	"context"
	"errors"
	"fmt"

	"menu-qa/internal/shared"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	MaxTokens      int
	Temperature    float32
	BatchSize      int
}

type OpenAIClient struct {
	client         *openai.Client
	chatModel      string
	embeddingModel string
	maxTokens      int
	temperature    float32
	batchSize      int
	log            *zap.SugaredLogger
}

func NewOpenAIClient(cfg OpenAIConfig, log *zap.SugaredLogger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = shared.DefaultChatModel
		log.Warnw("Chat model not set, using default", "model", cfg.ChatModel)
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = shared.DefaultEmbeddingModel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = shared.EmbeddingBatchSize
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = shared.DefaultMaxTokens
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	log.Infow("Initializing OpenAI client", "chat_model", cfg.ChatModel, "embedding_model", cfg.EmbeddingModel, "base_url", oc.BaseURL)

	return &OpenAIClient{
		client:         openai.NewClientWithConfig(oc),
		chatModel:      cfg.ChatModel,
		embeddingModel: cfg.EmbeddingModel,
		maxTokens:      cfg.MaxTokens,
		temperature:    cfg.Temperature,
		batchSize:      cfg.BatchSize,
		log:            log,
	}, nil
}

// Embed sends texts in batches and reassembles the vectors by index.
func (o *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += o.batchSize {
		end := min(start+o.batchSize, len(texts))
		batch := texts[start:end]

		resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: batch,
			Model: openai.EmbeddingModel(o.embeddingModel),
		})
		if err != nil {
			return nil, errors.Join(shared.ErrEmbedding, err)
		}
		if len(resp.Data) != len(batch) {
			return nil, errors.Join(shared.ErrEmbeddingMismatch, fmt.Errorf("sent %d texts, got %d vectors", len(batch), len(resp.Data)))
		}
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(batch) {
				return nil, errors.Join(shared.ErrEmbeddingMismatch, fmt.Errorf("embedding index %d out of range", d.Index))
			}
			out[start+d.Index] = d.Embedding
		}
		for i := start; i < end; i++ {
			if out[i] == nil {
				return nil, errors.Join(shared.ErrEmbeddingMismatch, fmt.Errorf("no embedding for text %d", i))
			}
		}
	}
	return out, nil
}

func (o *OpenAIClient) request(messages []shared.ChatMessage, stream bool) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return openai.ChatCompletionRequest{
		Model:       o.chatModel,
		Messages:    msgs,
		MaxTokens:   o.maxTokens,
		Temperature: o.temperature,
		Stream:      stream,
	}
}

func (o *OpenAIClient) Complete(ctx context.Context, messages []shared.ChatMessage) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, o.request(messages, false))
	if err != nil {
		return "", errors.Join(shared.ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.Join(shared.ErrGeneration, errors.New("no choices returned"))
	}
	o.log.Debugw("Received completion", "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAIClient) Stream(ctx context.Context, messages []shared.ChatMessage) (DeltaStream, error) {
	s, err := o.client.CreateChatCompletionStream(ctx, o.request(messages, true))
	if err != nil {
		return nil, errors.Join(shared.ErrGeneration, err)
	}
	return &openAIStream{stream: s}, nil
}

type openAIStream struct {
	stream *openai.ChatCompletionStream
}

// Recv skips chunks without choices (usage-only chunks) and passes io.EOF
// through unchanged.
func (s *openAIStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		return resp.Choices[0].Delta.Content, nil
	}
}

func (s *openAIStream) Close() error {
	return s.stream.Close()
}
