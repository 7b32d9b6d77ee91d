package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"menu-qa/internal/answer"
	"menu-qa/internal/governance"
	"menu-qa/internal/metrics"
	"menu-qa/internal/shared"

	"github.com/prometheus/client_golang/prometheus"
)

type AnswerInput struct {
	Req *RequestInfo
	Ctx context.Context
	// Sink receives the stream in stream mode. It should not commit anything
	// to the client until the first event so an early error can still be
	// answered with a plain status.
	Sink answer.Sink
}

type AnswerOutput struct {
	*answer.Output
	Intent string
}

// Submit only returns errors when nothing reached the sink. Failures after
// delivery started are reported on AnswerOutput.Err.
func (h *ChatHandler) Submit(input AnswerInput) (*AnswerOutput, error) {
	req := input.Req
	if req == nil {
		return nil, &shared.RequestError{StatusCode: 400, Code: shared.CodeBadRequest, Err: errors.New("request info missing")}
	}
	ctx := input.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	release, rerr := h.state.Admit(req.ClientKey)
	if rerr != nil {
		metrics.GovernanceRejections.WithLabelValues(rerr.Code).Inc()
		return nil, rerr
	}
	defer release()
	metrics.InflightRequests.Inc()
	defer metrics.InflightRequests.Dec()
	// logged flips once postProcess has handed the record to the question log,
	// which settles the in-flight slot itself.
	logged := false
	if h.questions != nil {
		h.questions.AddInFlight(req.ClientKey)
		defer func() {
			if !logged {
				h.questions.RemoveInFlight(req.ClientKey)
			}
		}()
	}

	h.state.Sweep()

	streamer := answer.NewStreamer(req.Mode, input.Sink).WithFallback(h.cfg.Prompt.FallbackMessage)
	cache := h.state.Cache()
	cacheKey := governance.CacheKey(req.Category, req.Question, req.History, h.cfg.History.CacheKeyTurns)

	if entry, ok := cache.Get(ctx, cacheKey); ok {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		out := &AnswerOutput{Output: streamer.DeliverCached(entry.Answer)}
		out.TotalTime = time.Since(req.StartTime)
		h.postProcess(req, out)
		logged = true
		return out, nil
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	out, err := h.answer(ctx, req, streamer)
	if err != nil {
		metrics.RequestCount.WithLabelValues(req.Mode, "error").Inc()
		return nil, err
	}

	if out.Completed && out.Err == nil && !out.Fallback && out.Answer != "" {
		cache.Put(ctx, cacheKey, out.Answer)
	}
	h.postProcess(req, out)
	logged = true
	return out, nil
}

func (h *ChatHandler) answer(ctx context.Context, req *RequestInfo, streamer *answer.Streamer) (*AnswerOutput, error) {
	idx, err := h.indexer.Get(ctx)
	if err != nil {
		return nil, errors.Join(shared.ErrInternalServerError, err)
	}

	timer := prometheus.NewTimer(metrics.EmbeddingDuration.WithLabelValues("query"))
	vecs, err := h.embedder.Embed(ctx, []string{req.Question})
	timer.ObserveDuration()
	if err != nil {
		metrics.ErrorCount.WithLabelValues(shared.ErrEmbedding.Code).Inc()
		return nil, errors.Join(shared.ErrInternalServerError, shared.ErrEmbedding, err)
	}
	if len(vecs) != 1 {
		return nil, errors.Join(shared.ErrInternalServerError, shared.ErrEmbeddingMismatch, fmt.Errorf("1 question, %d vectors", len(vecs)))
	}
	query := vecs[0]

	intent, err := h.classifier.Classify(ctx, query)
	if err != nil {
		metrics.ErrorCount.WithLabelValues(shared.ErrEmbedding.Code).Inc()
		return nil, errors.Join(shared.ErrInternalServerError, err)
	}
	metrics.IntentCount.WithLabelValues(intent.Label).Inc()

	res := h.retriever.Retrieve(idx, query, intent)
	grounding := h.assembler.Assemble(res)
	messages := h.buildMessages(req, intent, grounding)

	h.Log.Debugw("Retrieved context",
		"request_id", req.ID,
		"intent", intent.Label,
		"intent_score", intent.Score,
		"ranked", len(res.Ranked),
		"context_chars", len([]rune(grounding)),
	)

	delivered, err := streamer.Deliver(ctx, h.generator, messages)
	if err != nil {
		metrics.ErrorCount.WithLabelValues(shared.ErrGeneration.Code).Inc()
		return nil, errors.Join(shared.ErrInternalServerError, err)
	}
	delivered.TotalTime = time.Since(req.StartTime)
	return &AnswerOutput{Output: delivered, Intent: intent.Label}, nil
}

// postProcess records metrics and the question log entry.
func (h *ChatHandler) postProcess(req *RequestInfo, out *AnswerOutput) {
	status := "success"
	switch {
	case out.Canceled:
		status = "canceled"
	case out.Err != nil:
		status = "error"
		metrics.ErrorCount.WithLabelValues(shared.ErrStreamInterrupted.Code).Inc()
	}
	metrics.RequestCount.WithLabelValues(req.Mode, status).Inc()
	metrics.RequestDuration.WithLabelValues(req.Mode, strconv.FormatBool(out.Cached)).Observe(out.TotalTime.Seconds())
	if out.TimeToFirstDelta != 0 {
		metrics.TimeToFirstDelta.WithLabelValues(out.Intent).Observe(out.TimeToFirstDelta.Seconds())
	}

	if h.questions == nil {
		return
	}
	h.questions.AddQuestion(&shared.QuestionRecord{
		RequestID:        req.ID,
		ClientKey:        req.ClientKey,
		Category:         req.Category,
		Intent:           out.Intent,
		Mode:             req.Mode,
		Cached:           out.Cached,
		Completed:        out.Completed,
		AnswerChars:      len([]rune(out.Answer)),
		TimeToFirstDelta: out.TimeToFirstDelta,
		TotalTime:        out.TotalTime,
		CreatedAt:        time.Now(),
	})
}
