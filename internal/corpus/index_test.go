package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"menu-qa/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubSource struct {
	text  string
	err   error
	loads atomic.Int32
}

func (s *stubSource) Load(context.Context) (string, error) {
	s.loads.Add(1)
	return s.text, s.err
}

func (s *stubSource) Name() string { return "stub" }

type countingEmbedder struct {
	calls atomic.Int32
	delay time.Duration
	err   error
}

func (e *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	time.Sleep(e.delay)
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), float32(i)}
	}
	return out, nil
}

func newTestIndexer(t *testing.T, src Source, emb *countingEmbedder) *Indexer {
	t.Helper()
	return NewIndexer(src, emb, IndexerConfig{
		Markers:      testMarkers(t),
		ChunkChars:   40,
		UnmatchedCap: 1000,
	}, zap.NewNop().Sugar())
}

func TestIndexer_LazyAlignedAndComputedOnce(t *testing.T) {
	src := &stubSource{text: sampleMenu}
	emb := &countingEmbedder{delay: 20 * time.Millisecond}
	ix := newTestIndexer(t, src, emb)

	assert.False(t, ix.Ready())
	assert.Equal(t, int32(0), src.loads.Load(), "nothing happens before first use")

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ix.Get(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	idx, err := ix.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, ix.Ready())
	assert.Equal(t, int32(1), src.loads.Load())
	assert.Equal(t, int32(1), emb.calls.Load())

	require.Equal(t, len(idx.Chunks), len(idx.Vectors))
	for i, c := range idx.Chunks {
		assert.Equal(t, float32(len(c.Text)), idx.Vectors[i][0], "vector %d belongs to chunk %s", i, c.ID)
		assert.Equal(t, float32(i), idx.Vectors[i][1])
	}
}

func TestIndexer_EmptyCorpus(t *testing.T) {
	ix := newTestIndexer(t, &stubSource{text: "   "}, &countingEmbedder{})

	_, err := ix.Get(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrCorpusEmpty))
	assert.False(t, ix.Ready())
}

func TestIndexer_EmbeddingFailureIsRetried(t *testing.T) {
	emb := &countingEmbedder{err: errors.New("provider down")}
	ix := newTestIndexer(t, &stubSource{text: sampleMenu}, emb)

	_, err := ix.Get(context.Background())
	require.Error(t, err)

	emb.err = nil
	idx, err := ix.Get(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, idx.Chunks)
	assert.Equal(t, int32(2), emb.calls.Load())
}

func TestIndexer_ResetRebuilds(t *testing.T) {
	src := &stubSource{text: sampleMenu}
	ix := newTestIndexer(t, src, &countingEmbedder{})

	first, err := ix.Get(context.Background())
	require.NoError(t, err)

	src.text = "MEZE\nolives only"
	ix.Reset()
	assert.False(t, ix.Ready())

	second, err := ix.Get(context.Background())
	require.NoError(t, err)
	require.Len(t, second.Chunks, 1)
	assert.Equal(t, "meze:0", second.Chunks[0].ID)
	assert.NotEqual(t, len(first.Chunks), len(second.Chunks), "old snapshot is untouched")
}

func TestWatchFile_ResetsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "menu.txt")
	require.NoError(t, os.WriteFile(path, []byte(sampleMenu), 0o644))

	ix := newTestIndexer(t, NewFileSource(path), &countingEmbedder{})
	_, err := ix.Get(context.Background())
	require.NoError(t, err)
	require.True(t, ix.Ready())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- WatchFile(ctx, path, ix, zap.NewNop().Sugar()) }()
	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("MEZE\nfeta"), 0o644))
	assert.Eventually(t, func() bool { return !ix.Ready() }, 2*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "menu.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	text, err := NewFileSource(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	_, err = NewFileSource(filepath.Join(t.TempDir(), "missing")).Load(context.Background())
	assert.True(t, errors.Is(err, shared.ErrCorpusLoad))
}

func TestParseGCSURI(t *testing.T) {
	bucket, object, err := ParseGCSURI("gs://menus/taverna/menu.txt")
	require.NoError(t, err)
	assert.Equal(t, "menus", bucket)
	assert.Equal(t, "taverna/menu.txt", object)

	for _, bad := range []string{"menus/menu.txt", "gs://menus", "gs:///menu.txt", "gs://menus/"} {
		_, _, err := ParseGCSURI(bad)
		assert.Error(t, err, bad)
	}
	assert.True(t, IsGCSURI("gs://a/b"))
	assert.False(t, IsGCSURI("/srv/menu.txt"))
}
