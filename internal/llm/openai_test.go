package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"menu-qa/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, batch int) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewOpenAIClient(OpenAIConfig{
		APIKey:    "test-key",
		BaseURL:   srv.URL + "/v1",
		ChatModel: "test-chat",
		BatchSize: batch,
	}, zap.NewNop().Sugar())
	require.NoError(t, err)
	return c
}

func TestNewOpenAIClient_RequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(OpenAIConfig{}, zap.NewNop().Sugar())
	assert.Error(t, err)
}

func TestEmbed_BatchesAndOrdersByIndex(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		calls++
		var req struct {
			Input []string `json:"input"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		// answer in reverse order to prove reassembly uses the index
		data := make([]map[string]any, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float32{float32(len(req.Input[i])), 1},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": "m"})
	}, 2)

	vecs, err := c.Embed(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, vecs, 3)
	assert.Equal(t, []float32{1, 1}, vecs[0])
	assert.Equal(t, []float32{2, 1}, vecs[1])
	assert.Equal(t, []float32{3, 1}, vecs[2])
}

func TestEmbed_ProviderErrorIsTagged(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"boom"}}`)
	}, 8)

	_, err := c.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrEmbedding))
}

func TestEmbed_DuplicateIndexIsMismatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"object":"list","model":"m","data":[`+
			`{"object":"embedding","index":0,"embedding":[1,0]},`+
			`{"object":"embedding","index":0,"embedding":[0,1]}]}`)
	}, 8)

	_, err := c.Embed(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrEmbeddingMismatch))
}

func TestComplete(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Hello"},"finish_reason":"stop"}]}`)
	}, 8)

	out, err := c.Complete(context.Background(), []shared.ChatMessage{{Role: shared.RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "Hello", out)
}

func TestStream_YieldsDeltasThenEOF(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range []string{"Hel", "lo"} {
			_, _ = fmt.Fprintf(w, "data: {\"id\":\"x\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", d)
		}
		_, _ = io.WriteString(w, "data: {\"id\":\"x\",\"object\":\"chat.completion.chunk\",\"choices\":[]}\n\n")
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}, 8)

	s, err := c.Stream(context.Background(), []shared.ChatMessage{{Role: shared.RoleUser, Content: "hi"}})
	require.NoError(t, err)
	defer s.Close()

	var sb strings.Builder
	for {
		d, err := s.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		sb.WriteString(d)
	}
	assert.Equal(t, "Hello", sb.String())
}
