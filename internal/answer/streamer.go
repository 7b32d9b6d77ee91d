// Package answer delivers a generated answer to the caller, either as a
// stream of deltas over a Sink or as one buffered payload.
package answer

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"menu-qa/internal/llm"
	"menu-qa/internal/shared"
)

// Sink receives streamed events. Implementations must not be used after Done.
type Sink interface {
	Delta(text string, cached bool) error
	Error(code string) error
	Done() error
}

type Output struct {
	// Answer is the trimmed concatenation of every fragment received.
	Answer    string
	Completed bool
	Canceled  bool
	Cached    bool
	// Fallback is set when the model produced nothing and the fallback
	// message was delivered instead.
	Fallback         bool
	Deltas           int
	TimeToFirstDelta time.Duration
	TotalTime        time.Duration

	// Err is a failure after delivery started. The sink has already been told.
	Err error
}

type Streamer struct {
	mode     string
	sink     Sink
	fallback string
	now      func() time.Time
}

// NewStreamer returns a streamer for mode. sink may be nil in buffered mode.
func NewStreamer(mode string, sink Sink) *Streamer {
	return &Streamer{mode: mode, sink: sink, now: time.Now}
}

// WithFallback sets the message delivered when a generation completes empty.
func (s *Streamer) WithFallback(msg string) *Streamer {
	s.fallback = strings.TrimSpace(msg)
	return s
}

func (s *Streamer) Streaming() bool {
	return s.mode == shared.ModeStream && s.sink != nil
}

// Deliver runs the generation. An error is returned only when nothing reached
// the sink, so the caller can still answer with a plain status.
func (s *Streamer) Deliver(ctx context.Context, gen llm.Generator, messages []shared.ChatMessage) (*Output, error) {
	start := s.now()
	if !s.Streaming() {
		payload, err := gen.Complete(ctx, messages)
		if err != nil {
			return nil, errors.Join(shared.ErrGeneration, err)
		}
		out := &Output{
			Answer:    strings.TrimSpace(payload),
			Completed: true,
			TotalTime: s.now().Sub(start),
		}
		if out.Answer == "" && s.fallback != "" {
			out.Answer = s.fallback
			out.Fallback = true
		}
		return out, nil
	}

	stream, err := gen.Stream(ctx, messages)
	if err != nil {
		return nil, errors.Join(shared.ErrGeneration, err)
	}
	defer func() {
		_ = stream.Close()
	}()

	out := &Output{}
	var b strings.Builder
	for {
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			out.Completed = true
			break
		}
		if err != nil {
			out.Canceled = ctx.Err() != nil
			out.Err = errors.Join(shared.ErrStreamInterrupted, err)
			_ = s.sink.Error(shared.CodeServerError)
			break
		}
		if delta == "" {
			continue
		}
		if out.Deltas == 0 {
			out.TimeToFirstDelta = s.now().Sub(start)
		}
		b.WriteString(delta)
		out.Deltas++
		if err := s.sink.Delta(delta, false); err != nil {
			out.Canceled = ctx.Err() != nil
			out.Err = errors.Join(shared.ErrSinkWrite, err)
			break
		}
	}
	out.Answer = strings.TrimSpace(b.String())
	if out.Completed && out.Answer == "" && s.fallback != "" {
		out.Answer = s.fallback
		out.Fallback = true
		if err := s.sink.Delta(s.fallback, false); err != nil {
			out.Err = errors.Join(shared.ErrSinkWrite, err)
		}
	}
	if err := s.sink.Done(); err != nil && out.Err == nil {
		out.Err = errors.Join(shared.ErrSinkWrite, err)
	}
	out.TotalTime = s.now().Sub(start)
	return out, nil
}

// DeliverCached replays a stored answer as one delta plus the terminal event.
// In buffered mode it just returns the answer.
func (s *Streamer) DeliverCached(answer string) *Output {
	out := &Output{Answer: answer, Cached: true, Completed: true}
	if !s.Streaming() {
		return out
	}
	out.Deltas = 1
	if err := s.sink.Delta(answer, true); err != nil {
		out.Err = errors.Join(shared.ErrSinkWrite, err)
		out.Completed = false
	}
	if err := s.sink.Done(); err != nil && out.Err == nil {
		out.Err = errors.Join(shared.ErrSinkWrite, err)
	}
	return out
}
