package shared

import "time"

// HTTP Server Configuration
const (
	DefaultHTTPTimeout     = 180 * time.Second
	DefaultShutdownTimeout = 2 * time.Minute
	HealthCheckTimeout     = 5 * time.Second
)

// Client identification
const (
	MinClientTokenLength = 8
	ClientTokenHeader    = "X-Client-Id"
	UnknownClientAddress = "unknown"
)

// Rate limiting
const (
	RateWindow = 60 * time.Second
	RateCap    = 20
)

// Spam guard
const (
	SpamMinInterval   = 800 * time.Millisecond
	SpamTooFastBlock  = 3 * time.Second
	SpamWindow        = 5 * time.Minute
	SpamWindowCap     = 40
	SpamBlockDuration = 10 * time.Minute
)

// Cache Configuration
const (
	AnswerCacheTTL       = 10 * time.Minute
	AnswerCacheKeyPrefix = "v1:answer:"
)

// Conversation history
const (
	MaxHistoryTurns   = 8
	MaxTurnChars      = 600
	CacheKeyTailTurns = 4
	MaxQuestionChars  = 1000
)

// Corpus / retrieval
const (
	ChunkCharCap       = 900
	UnmatchedCorpusCap = 12000
	TopKNarrow         = 4
	TopKWide           = 8
	ContextCharCap     = 7000
	EmbeddingBatchSize = 64
)

// Generation
const (
	DefaultChatModel      = "gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultMaxTokens      = 512
	DefaultTemperature    = 0.3
)

// Bucket Configuration
const (
	BucketFlushInterval = 1 * time.Minute
	BucketRetryDelay    = 30 * time.Second
	MaxFlushRetries     = 3
)

// Streaming
const (
	StreamDoneToken = "[DONE]"
)
