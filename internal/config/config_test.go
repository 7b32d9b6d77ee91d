package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"menu-qa/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, shared.RateWindow, cfg.Rate.Window)
	assert.Equal(t, shared.RateCap, cfg.Rate.Cap)
	assert.Equal(t, shared.SpamTooFastBlock, cfg.Spam.TooFastBlock)
	assert.Len(t, cfg.Intents, 4)
	assert.NotEmpty(t, cfg.Corpus.Markers)
}

func TestLoad_PartialFileKeepsOverridesAndFillsRest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
rate:
  window: 30s
  cap: 5
spam:
  min_interval: 250ms
corpus:
  chunk_chars: 400
  markers:
    - key: drinks
      label: DRINKS
      pattern: '^DRINKS'
prompt:
  restaurant_name: Taverna
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Rate.Window)
	assert.Equal(t, 5, cfg.Rate.Cap)
	assert.Equal(t, 250*time.Millisecond, cfg.Spam.MinInterval)
	assert.Equal(t, shared.SpamBlockDuration, cfg.Spam.Block)
	assert.Equal(t, 400, cfg.Corpus.ChunkChars)
	require.Len(t, cfg.Corpus.Markers, 1)
	assert.Equal(t, "drinks", cfg.Corpus.Markers[0].Key)
	assert.Equal(t, "Taverna", cfg.Prompt.RestaurantName)
	assert.Equal(t, shared.ContextCharCap, cfg.Retrieval.ContextChars)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rate: ["), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
