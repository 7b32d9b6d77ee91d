package retrieval

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync/atomic"
	"testing"

	"menu-qa/internal/config"
	"menu-qa/internal/corpus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keywordEmbedder maps text to keyword counts, one dimension per keyword.
type keywordEmbedder struct {
	keywords []string
	calls    atomic.Int32
	err      error
}

func (e *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		lower := strings.ToLower(t)
		v := make([]float32, len(e.keywords))
		for j, k := range e.keywords {
			v[j] = float32(strings.Count(lower, k))
		}
		out[i] = v
	}
	return out, nil
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 1}, []float32{-1, -1}), 1e-9)

	zero := Cosine([]float32{0, 0}, []float32{1, 1})
	assert.False(t, math.IsNaN(zero))
	assert.Equal(t, 0.0, zero)
}

func testIndex() *corpus.Index {
	chunks := []corpus.Chunk{
		{ID: "intro:0", SectionKey: corpus.IntroKey, SectionLabel: corpus.IntroLabel, Text: "Taverna"},
		{ID: "meze:0", SectionKey: "meze", SectionLabel: "MEZE", Text: "Tzatziki"},
		{ID: "meze:1", SectionKey: "meze", SectionLabel: "MEZE", Text: "Hummus"},
		{ID: "drinks:0", SectionKey: "drinks", SectionLabel: "ITALOK / DRINKS", Text: "Ouzo"},
		{ID: "footer:0", SectionKey: corpus.FooterKey, SectionLabel: "INFO / CONTACT", Text: "Open daily"},
		{ID: "footer:1", SectionKey: corpus.FooterKey, SectionLabel: "INFO / CONTACT", Text: "Phone"},
	}
	vectors := [][]float32{
		{0, 0, 1},
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
		{0, 0.2, 0.8},
		{0, 0, 0.5},
	}
	return &corpus.Index{Chunks: chunks, Vectors: vectors}
}

func ids(res Result) []string {
	out := make([]string, len(res.Ranked))
	for i, c := range res.Ranked {
		out[i] = c.ID
	}
	return out
}

func TestRetriever_IdenticalVectorRanksFirst(t *testing.T) {
	idx := testIndex()
	r := NewRetriever(2, 4)

	res := r.Retrieve(idx, []float32{0, 1, 0}, Intent{Label: IntentGeneral})

	require.Len(t, res.Ranked, 2)
	assert.Equal(t, "drinks:0", res.Ranked[0].ID)
	assert.InDelta(t, 1.0, res.Ranked[0].Score, 1e-9)
}

func TestRetriever_TopKByIntent(t *testing.T) {
	idx := testIndex()
	r := NewRetriever(2, 4)
	q := []float32{1, 0, 0}

	assert.Len(t, r.Retrieve(idx, q, Intent{Label: IntentRecommendation}).Ranked, 2)
	assert.Len(t, r.Retrieve(idx, q, Intent{Label: IntentCheapest}).Ranked, 4)
	assert.Len(t, r.Retrieve(idx, q, Intent{Label: IntentComparison}).Ranked, 4)
	assert.Len(t, NewRetriever(10, 20).Retrieve(idx, q, Intent{}).Ranked, len(idx.Chunks))
}

func TestRetriever_PinsIntroAndFirstFooter(t *testing.T) {
	idx := testIndex()
	res := NewRetriever(2, 4).Retrieve(idx, []float32{1, 0, 0}, Intent{Label: IntentGeneral})

	assert.Equal(t, []string{"meze:0", "meze:1"}, ids(res))
	require.NotNil(t, res.Intro)
	require.NotNil(t, res.Footer)
	assert.Equal(t, "intro:0", res.Intro.ID)
	assert.Equal(t, "footer:0", res.Footer.ID, "only the first footer chunk is pinned")
}

func TestRetriever_PinnedChunkNotDuplicated(t *testing.T) {
	idx := testIndex()
	res := NewRetriever(1, 4).Retrieve(idx, []float32{0, 0, 1}, Intent{Label: IntentGeneral})

	assert.Equal(t, []string{"intro:0"}, ids(res))
	assert.Nil(t, res.Intro)
	require.NotNil(t, res.Footer)
	assert.Equal(t, "footer:0", res.Footer.ID)
}

func TestRetriever_StableOnTies(t *testing.T) {
	idx := &corpus.Index{
		Chunks: []corpus.Chunk{
			{ID: "a:0", SectionKey: "a"},
			{ID: "a:1", SectionKey: "a"},
			{ID: "a:2", SectionKey: "a"},
		},
		Vectors: [][]float32{{1, 0}, {1, 0}, {1, 0}},
	}
	res := NewRetriever(3, 3).Retrieve(idx, []float32{1, 0}, Intent{})
	assert.Equal(t, []string{"a:0", "a:1", "a:2"}, ids(res))
}

func TestContextAssembler_OrderAndFormat(t *testing.T) {
	idx := testIndex()
	res := NewRetriever(1, 4).Retrieve(idx, []float32{1, 0, 0}, Intent{Label: IntentGeneral})

	got := NewContextAssembler(10000).Assemble(res)
	want := "[INTRO | intro:0]\nTaverna\n\n" +
		"[INFO / CONTACT | footer:0]\nOpen daily\n\n" +
		"[MEZE | meze:0]\nTzatziki"
	assert.Equal(t, want, got)
}

func TestContextAssembler_Truncates(t *testing.T) {
	res := Result{Ranked: []ScoredChunk{{Chunk: corpus.Chunk{ID: "x:0", SectionLabel: "X", Text: strings.Repeat("é", 50)}}}}
	got := NewContextAssembler(20).Assemble(res)
	assert.Equal(t, 20, len([]rune(got)))
	assert.True(t, strings.HasPrefix(got, "[X | x:0]\n"))
}

func testIntents() []config.IntentConfig {
	return []config.IntentConfig{
		{Label: IntentRecommendation, Description: "recommend suggest", Instruction: "recommend"},
		{Label: IntentCheapest, Description: "cheap cheapest price", Instruction: "cheapest"},
		{Label: IntentComparison, Description: "compare versus", Instruction: "compare"},
		{Label: IntentGeneral, Description: "open hours", Instruction: "answer"},
	}
}

func TestIntentClassifier(t *testing.T) {
	emb := &keywordEmbedder{keywords: []string{"recommend", "cheap", "compare", "open"}}
	c := NewIntentClassifier(testIntents(), emb)
	assert.False(t, c.Ready())

	q, err := emb.Embed(context.Background(), []string{"what is the cheapest wine"})
	require.NoError(t, err)
	in, err := c.Classify(context.Background(), q[0])
	require.NoError(t, err)
	assert.Equal(t, IntentCheapest, in.Label)
	assert.Equal(t, "cheapest", in.Instruction)
	assert.True(t, in.IsWide())
	assert.True(t, c.Ready())

	q, _ = emb.Embed(context.Background(), []string{"can you recommend something"})
	in, err = c.Classify(context.Background(), q[0])
	require.NoError(t, err)
	assert.Equal(t, IntentRecommendation, in.Label)
	assert.False(t, in.IsWide())

	// 3 calls: two queries embedded here plus one prototype build
	assert.Equal(t, int32(3), emb.calls.Load())
}

func TestIntentClassifier_TieKeepsFirst(t *testing.T) {
	emb := &keywordEmbedder{keywords: []string{"recommend", "cheap", "compare", "open"}}
	c := NewIntentClassifier(testIntents(), emb)

	in, err := c.Classify(context.Background(), []float32{0, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, IntentRecommendation, in.Label)
}

func TestIntentClassifier_FailureNotMemoized(t *testing.T) {
	emb := &keywordEmbedder{keywords: []string{"cheap"}, err: errors.New("down")}
	c := NewIntentClassifier([]config.IntentConfig{{Label: IntentCheapest, Description: "cheap"}}, emb)

	_, err := c.Classify(context.Background(), []float32{1})
	require.Error(t, err)

	emb.err = nil
	in, err := c.Classify(context.Background(), []float32{1})
	require.NoError(t, err)
	assert.Equal(t, IntentCheapest, in.Label)
}

func TestPipeline_MezeAndDrinksLandInRightSections(t *testing.T) {
	const menu = `Taverna Kalimera

MEZE
Tzatziki with bread
Grilled halloumi

ITALOK / DRINKS
Ouzo, a strong drink
Retsina, a white wine drink

INFO
Open every day`

	markers, err := corpus.CompileMarkers(config.Default().Corpus.Markers)
	require.NoError(t, err)
	chunks := corpus.ChunkCorpus(menu, markers, 900, 12000)

	emb := &keywordEmbedder{keywords: []string{"meze", "halloumi", "drink", "ouzo", "open"}}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := emb.Embed(context.Background(), texts)
	require.NoError(t, err)
	idx := &corpus.Index{Chunks: chunks, Vectors: vecs}

	r := NewRetriever(1, 3)
	q, _ := emb.Embed(context.Background(), []string{"which meze has halloumi?", "what drink goes with ouzo?"})

	meze := r.Retrieve(idx, q[0], Intent{Label: IntentGeneral})
	require.Len(t, meze.Ranked, 1)
	assert.Equal(t, "meze:0", meze.Ranked[0].ID)
	assert.Equal(t, "MEZE", meze.Ranked[0].SectionLabel)

	drinks := r.Retrieve(idx, q[1], Intent{Label: IntentGeneral})
	require.Len(t, drinks.Ranked, 1)
	assert.Equal(t, "drinks:0", drinks.Ranked[0].ID)
	assert.Equal(t, "ITALOK / DRINKS", drinks.Ranked[0].SectionLabel)

	ctx := NewContextAssembler(7000).Assemble(drinks)
	assert.Contains(t, ctx, "[ITALOK / DRINKS | drinks:0]")
	assert.Contains(t, ctx, "footer:0")
	assert.NotContains(t, ctx, "meze:0")
}
