// Package buckets buffers answered questions per client and flushes them to
// the question log on a timer.
package buckets

import (
	"context"
	"sync"
	"time"

	"menu-qa/internal/metrics"
	"menu-qa/internal/shared"

	"go.uber.org/zap"
)

// Store persists one flushed batch.
type Store interface {
	SaveBatch(ctx context.Context, records []*shared.QuestionRecord) error
}

type QuestionLog struct {
	buckets       map[string]*bucket
	killedBuckets map[string]*bucket
	mu            sync.Mutex
	log           *zap.SugaredLogger
	store         Store

	flushInterval time.Duration
	retryDelay    time.Duration
	wg            sync.WaitGroup
}

type bucket struct {
	mu        sync.Mutex
	clientKey string
	records   map[string]*shared.QuestionRecord
	inflight  uint64
	timer     *time.Timer
}

func NewQuestionLog(log *zap.SugaredLogger, store Store) *QuestionLog {
	return &QuestionLog{
		store:         store,
		log:           log,
		buckets:       map[string]*bucket{},
		killedBuckets: map[string]*bucket{},
		flushInterval: shared.BucketFlushInterval,
		retryDelay:    shared.BucketRetryDelay,
	}
}

// Shutdown waits for in-flight questions to land, then flushes every bucket.
func (c *QuestionLog) Shutdown() {
	c.log.Info("Shutting down question log")
	for {
		c.mu.Lock()
		total := uint64(0)
		for _, b := range c.buckets {
			b.mu.Lock()
			total += b.inflight
			b.mu.Unlock()
		}
		c.mu.Unlock()
		if total == 0 {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	c.mu.Lock()
	keys := make([]string, 0, len(c.buckets))
	for k := range c.buckets {
		keys = append(keys, k)
	}
	c.mu.Unlock()

	var wg sync.WaitGroup
	for _, k := range keys {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Flush(k)
		}()
	}
	wg.Wait()
	// timers that fired before Flush could stop them
	c.wg.Wait()
}

func (c *QuestionLog) AddInFlight(clientKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := c.getBucket(clientKey)
	b.mu.Lock()
	b.inflight++
	b.mu.Unlock()
}

func (c *QuestionLog) RemoveInFlight(clientKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := c.getBucket(clientKey)
	b.mu.Lock()
	if b.inflight > 0 {
		b.inflight--
	}
	b.mu.Unlock()
}

// AddQuestion records an answered question and settles one in-flight slot.
func (c *QuestionLog) AddQuestion(q *shared.QuestionRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := c.getBucket(q.ClientKey)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.records[q.RequestID] = q
	if b.inflight > 0 {
		b.inflight--
	}

	// Fresh bucket, register the flush
	if b.timer == nil {
		key := q.ClientKey
		c.wg.Add(1)
		b.timer = time.AfterFunc(c.flushInterval, func() {
			defer c.wg.Done()
			retry := c.Flush(key)
			for retry != 0 {
				c.log.Warnw("Flush requested retry, waiting...", "client_key", key)
				time.Sleep(retry)
				retry = c.Flush(key)
			}
		})
	}
}

// Pending returns the number of buffered records across all buckets.
func (c *QuestionLog) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, b := range c.buckets {
		b.mu.Lock()
		n += len(b.records)
		b.mu.Unlock()
	}
	return n
}

// getBucket must be called with c.mu held.
func (c *QuestionLog) getBucket(clientKey string) *bucket {
	b, ok := c.buckets[clientKey]
	if !ok {
		b = &bucket{records: map[string]*shared.QuestionRecord{}, clientKey: clientKey}
		c.buckets[clientKey] = b
	}
	return b
}

// Flush writes the client's bucket. It returns a delay when another flush of
// the same bucket is still running, zero otherwise.
func (c *QuestionLog) Flush(clientKey string) time.Duration {
	c.mu.Lock()
	b, ok := c.buckets[clientKey]
	if !ok {
		c.mu.Unlock()
		return 0
	}
	if _, ok := c.killedBuckets[clientKey]; ok {
		c.mu.Unlock()
		return c.retryDelay
	}
	c.killedBuckets[clientKey] = b
	delete(c.buckets, clientKey)

	b.mu.Lock()
	if b.timer != nil && b.timer.Stop() {
		// the pending timer will never run its Done
		c.wg.Done()
	}
	if b.inflight != 0 {
		c.buckets[clientKey] = &bucket{
			clientKey: clientKey,
			inflight:  b.inflight,
			records:   map[string]*shared.QuestionRecord{},
		}
	}
	records := make([]*shared.QuestionRecord, 0, len(b.records))
	for _, r := range b.records {
		records = append(records, r)
	}
	b.mu.Unlock()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.killedBuckets, clientKey)
		c.mu.Unlock()
	}()

	if len(records) == 0 {
		return 0
	}

	var err error
	for attempt := range shared.MaxFlushRetries {
		err = c.store.SaveBatch(context.Background(), records)
		if err == nil {
			break
		}
		c.log.Errorw("Failed to save question batch", "error", err, "attempt", attempt+1)
		time.Sleep(c.retryDelay / 6)
	}
	if err != nil {
		c.log.Errorw("Dropping question batch", "error", err, "client_key", clientKey, "questions", len(records))
		metrics.ErrorCount.WithLabelValues("save_questions").Inc()
		return 0
	}
	c.log.Infow("Flushed question bucket", "client_key", clientKey, "questions", len(records))
	return 0
}
