// Package config loads the service tunables from YAML. Infra settings
// (addresses, keys, DSNs) stay in flags so they can come from the environment.
package config

import (
	"errors"
	"os"
	"time"

	"menu-qa/internal/shared"

	"gopkg.in/yaml.v3"
)

type RateConfig struct {
	Window time.Duration `yaml:"window"`
	Cap    int           `yaml:"cap"`
}

type SpamConfig struct {
	MinInterval  time.Duration `yaml:"min_interval"`
	TooFastBlock time.Duration `yaml:"too_fast_block"`
	Window       time.Duration `yaml:"window"`
	Cap          int           `yaml:"cap"`
	Block        time.Duration `yaml:"block"`
}

type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

type HistoryConfig struct {
	MaxTurns      int `yaml:"max_turns"`
	MaxTurnChars  int `yaml:"max_turn_chars"`
	CacheKeyTurns int `yaml:"cache_key_turns"`
}

// MarkerConfig is one section boundary of the corpus. Pattern is matched per
// line, case-insensitively.
type MarkerConfig struct {
	Key     string `yaml:"key"`
	Label   string `yaml:"label"`
	Pattern string `yaml:"pattern"`
}

type CorpusConfig struct {
	ChunkChars   int            `yaml:"chunk_chars"`
	UnmatchedCap int            `yaml:"unmatched_cap"`
	Markers      []MarkerConfig `yaml:"markers"`
}

type RetrievalConfig struct {
	TopKNarrow   int `yaml:"top_k_narrow"`
	TopKWide     int `yaml:"top_k_wide"`
	ContextChars int `yaml:"context_chars"`
}

type IntentConfig struct {
	Label       string `yaml:"label"`
	Description string `yaml:"description"`
	Instruction string `yaml:"instruction"`
}

type PromptConfig struct {
	System          string            `yaml:"system"`
	CategoryHints   map[string]string `yaml:"category_hints"`
	MaxTokens       int               `yaml:"max_tokens"`
	Temperature     float32           `yaml:"temperature"`
	RestaurantName  string            `yaml:"restaurant_name"`
	FallbackMessage string            `yaml:"fallback_message"`
}

// AppConfig is the root of the YAML file.
type AppConfig struct {
	Rate      RateConfig      `yaml:"rate"`
	Spam      SpamConfig      `yaml:"spam"`
	Cache     CacheConfig     `yaml:"cache"`
	History   HistoryConfig   `yaml:"history"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Intents   []IntentConfig  `yaml:"intents"`
	Prompt    PromptConfig    `yaml:"prompt"`
}

// Load reads a config from path. A missing file (or empty path) yields the
// defaults; zero fields of a present file are filled with defaults.
func Load(path string) (*AppConfig, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns the built-in tunables.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	d := func(v *time.Duration, def time.Duration) {
		if *v <= 0 {
			*v = def
		}
	}
	n := func(v *int, def int) {
		if *v <= 0 {
			*v = def
		}
	}

	d(&cfg.Rate.Window, shared.RateWindow)
	n(&cfg.Rate.Cap, shared.RateCap)

	d(&cfg.Spam.MinInterval, shared.SpamMinInterval)
	d(&cfg.Spam.TooFastBlock, shared.SpamTooFastBlock)
	d(&cfg.Spam.Window, shared.SpamWindow)
	n(&cfg.Spam.Cap, shared.SpamWindowCap)
	d(&cfg.Spam.Block, shared.SpamBlockDuration)

	d(&cfg.Cache.TTL, shared.AnswerCacheTTL)

	n(&cfg.History.MaxTurns, shared.MaxHistoryTurns)
	n(&cfg.History.MaxTurnChars, shared.MaxTurnChars)
	n(&cfg.History.CacheKeyTurns, shared.CacheKeyTailTurns)

	n(&cfg.Corpus.ChunkChars, shared.ChunkCharCap)
	n(&cfg.Corpus.UnmatchedCap, shared.UnmatchedCorpusCap)
	if len(cfg.Corpus.Markers) == 0 {
		cfg.Corpus.Markers = defaultMarkers()
	}

	n(&cfg.Retrieval.TopKNarrow, shared.TopKNarrow)
	n(&cfg.Retrieval.TopKWide, shared.TopKWide)
	n(&cfg.Retrieval.ContextChars, shared.ContextCharCap)

	if len(cfg.Intents) == 0 {
		cfg.Intents = defaultIntents()
	}

	if cfg.Prompt.RestaurantName == "" {
		cfg.Prompt.RestaurantName = "the restaurant"
	}
	if cfg.Prompt.System == "" {
		cfg.Prompt.System = defaultSystemPrompt
	}
	if cfg.Prompt.CategoryHints == nil {
		cfg.Prompt.CategoryHints = defaultCategoryHints()
	}
	n(&cfg.Prompt.MaxTokens, shared.DefaultMaxTokens)
	if cfg.Prompt.Temperature <= 0 {
		cfg.Prompt.Temperature = shared.DefaultTemperature
	}
	if cfg.Prompt.FallbackMessage == "" {
		cfg.Prompt.FallbackMessage = "Sorry, I could not find that in the menu. Please ask the staff."
	}
}

const defaultSystemPrompt = `You are the friendly assistant of %s.
Answer only from the CONTEXT below. If the answer is not in the context, say you do not know and suggest asking the staff.
Quote prices exactly as written. Answer in the language of the question. Keep answers short.`

func defaultMarkers() []MarkerConfig {
	return []MarkerConfig{
		{Key: "meze", Label: "MEZE", Pattern: `^\s*MEZE\b`},
		{Key: "starters", Label: "ELŐÉTELEK / STARTERS", Pattern: `^\s*(ELŐÉTELEK|STARTERS)\b`},
		{Key: "soups", Label: "LEVESEK / SOUPS", Pattern: `^\s*(LEVESEK|SOUPS)\b`},
		{Key: "mains", Label: "FŐÉTELEK / MAINS", Pattern: `^\s*(FŐÉTELEK|MAINS|MAIN COURSES)\b`},
		{Key: "desserts", Label: "DESSZERTEK / DESSERTS", Pattern: `^\s*(DESSZERTEK|DESSERTS)\b`},
		{Key: "drinks", Label: "ITALOK / DRINKS", Pattern: `^\s*(ITALOK|DRINKS)\b`},
		{Key: "footer", Label: "INFO / CONTACT", Pattern: `^\s*(INFO|KAPCSOLAT|CONTACT|NYITVATARTÁS|OPENING HOURS)\b`},
	}
}

func defaultIntents() []IntentConfig {
	return []IntentConfig{
		{
			Label:       "recommendation",
			Description: "The guest asks for a recommendation or suggestion: what should I order, what is good, what do you recommend.",
			Instruction: "Recommend two or three fitting items and say briefly why.",
		},
		{
			Label:       "cheapest",
			Description: "The guest asks for the cheapest or most affordable option, the lowest price, something inexpensive.",
			Instruction: "Compare the prices in the context and name the cheapest matching items with their prices.",
		},
		{
			Label:       "comparison",
			Description: "The guest asks to compare two or more dishes or drinks, which one is better, bigger or different.",
			Instruction: "Compare the items side by side, including prices where available.",
		},
		{
			Label:       "general",
			Description: "The guest asks a general question about the restaurant, opening hours, address, booking, ingredients or allergens.",
			Instruction: "Answer the question directly.",
		},
	}
}

func defaultCategoryHints() map[string]string {
	return map[string]string{
		shared.CategoryFood:     "The guest is browsing the food menu.",
		shared.CategoryDrinks:   "The guest is browsing the drinks menu.",
		shared.CategoryDesserts: "The guest is browsing desserts.",
		shared.CategoryInfo:     "The guest wants practical information about the restaurant.",
	}
}
