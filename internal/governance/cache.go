package governance

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	"menu-qa/internal/shared"

	"go.uber.org/zap"
)

// CacheEntry is one remembered answer.
type CacheEntry struct {
	Key       string
	Timestamp time.Time
	Answer    string
}

// RemoteCache is an optional second tier shared between replicas.
type RemoteCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, answer string, ttl time.Duration) error
}

// ResponseCache remembers answers by their literal request signature.
// Expired entries are invisible to Get and removed by Purge.
type ResponseCache struct {
	mu      sync.Mutex
	entries map[string]CacheEntry
	ttl     time.Duration
	now     Clock
	remote  RemoteCache
	log     *zap.SugaredLogger
}

func NewResponseCache(ttl time.Duration, now Clock, remote RemoteCache, log *zap.SugaredLogger) *ResponseCache {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &ResponseCache{
		entries: map[string]CacheEntry{},
		ttl:     ttl,
		now:     now,
		remote:  remote,
		log:     log,
	}
}

// CacheKey folds the category, the trimmed question and the trimmed tail of
// the conversation into a stable signature. Only byte-identical inputs match.
func CacheKey(category, question string, turns []shared.Turn, tail int) string {
	var sb strings.Builder
	sb.WriteString(category)
	sb.WriteByte(0x1f)
	sb.WriteString(strings.TrimSpace(question))
	if tail > 0 && len(turns) > tail {
		turns = turns[len(turns)-tail:]
	}
	if tail <= 0 {
		turns = nil
	}
	for _, t := range turns {
		sb.WriteByte(0x1e)
		sb.WriteString(t.Role)
		sb.WriteByte(':')
		sb.WriteString(strings.TrimSpace(t.Text))
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

func (c *ResponseCache) Get(ctx context.Context, key string) (CacheEntry, bool) {
	now := c.now()

	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()
	if ok && now.Sub(e.Timestamp) <= c.ttl {
		return e, true
	}

	if c.remote == nil {
		return CacheEntry{}, false
	}
	answer, found, err := c.remote.Get(ctx, key)
	if err != nil {
		c.log.Warnw("Remote cache get failed", "error", errors.Join(shared.ErrCacheRemote, err))
		return CacheEntry{}, false
	}
	if !found {
		return CacheEntry{}, false
	}
	// The remote tier enforces its own TTL; a copied entry gets a fresh local one.
	e = CacheEntry{Key: key, Timestamp: now, Answer: answer}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return e, true
}

func (c *ResponseCache) Put(ctx context.Context, key, answer string) {
	c.mu.Lock()
	c.entries[key] = CacheEntry{Key: key, Timestamp: c.now(), Answer: answer}
	c.mu.Unlock()

	if c.remote == nil {
		return
	}
	if err := c.remote.Set(ctx, key, answer, c.ttl); err != nil {
		c.log.Warnw("Remote cache set failed", "error", errors.Join(shared.ErrCacheRemote, err))
	}
}

// Purge removes expired entries and returns how many were dropped.
func (c *ResponseCache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if now.Sub(e.Timestamp) > c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
