// Package routers
package routers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"menu-qa/internal/ctx"
	"menu-qa/internal/shared"
)

func readRequestBody(c *ctx.Context) ([]byte, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		c.Log.Errorw("Failed to read request body", "error", err.Error())
		return nil, err
	}
	return body, nil
}

func setupSSEHeaders(c *ctx.Context) {
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)
}

func createStreamCallback(c *ctx.Context) func(payload string) error {
	return func(payload string) error {
		if c.Request().Context().Err() != nil {
			return c.Request().Context().Err()
		}
		_, err := fmt.Fprintf(c.Response(), "data: %s\n\n", payload)
		if err != nil {
			return err
		}
		c.Response().Flush()
		return nil
	}
}

// sseSink writes answer events as server-sent events. Headers go out with
// the first event, so a request that fails before then can still get a
// regular status code.
type sseSink struct {
	c       *ctx.Context
	write   func(string) error
	started bool
}

func newSSESink(c *ctx.Context) *sseSink {
	return &sseSink{c: c, write: createStreamCallback(c)}
}

func (s *sseSink) send(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.sendRaw(string(b))
}

func (s *sseSink) sendRaw(payload string) error {
	if !s.started {
		setupSSEHeaders(s.c)
		s.started = true
	}
	return s.write(payload)
}

func (s *sseSink) Delta(text string, cached bool) error {
	return s.send(shared.StreamEvent{Delta: text, Cached: cached})
}

func (s *sseSink) Error(code string) error {
	return s.send(shared.StreamEvent{Error: code})
}

func (s *sseSink) Done() error {
	return s.sendRaw(shared.StreamDoneToken)
}

// writeError answers with the JSON error body and, for throttling, the
// Retry-After header.
func writeError(c *ctx.Context, err error) error {
	rerr := shared.AsRequestError(err)
	body := shared.ErrorResponse{OK: false, Error: rerr.Code}
	if rerr.RetryAfter > 0 {
		body.RetryAfterSeconds = rerr.RetryAfter
		c.Response().Header().Set("Retry-After", strconv.Itoa(rerr.RetryAfter))
	}
	return c.JSON(rerr.StatusCode, body)
}
