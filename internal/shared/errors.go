package shared

import (
	"errors"
	"fmt"
	"time"
)

// Error codes surfaced to clients. Every governance failure carries one of
// these so callers can decide whether and when to retry.
const (
	CodeNoMessage   = "NO_MESSAGE"
	CodeRateLimit   = "RATE_LIMIT"
	CodeCooldown    = "COOLDOWN"
	CodeTooFast     = "TOO_FAST"
	CodeSpamWindow  = "SPAM_WINDOW"
	CodeBusy        = "BUSY"
	CodeServerError = "SERVER_ERROR"
	CodeBadRequest  = "BAD_REQUEST"
)

// RequestError is used when we want a specific error message and StatusCode.
// sane defaults are listed below. RetryAfter is only set for failures the
// caller may retry after a fixed delay (rate limit, spam, cooldown).
//
// Error codes should be bubbled where the RequestError msg is expected to be
// returned to the user. If the user should see a generic error message but
// the error chain should include more detail for logging purposes, then a generic
// error should be joined that provides context
type RequestError struct {
	StatusCode int
	Code       string
	RetryAfter int
	Err        error
}

func (r *RequestError) Error() string {
	return fmt.Sprintf("status %d: code %s: err %v", r.StatusCode, r.Code, r.Err)
}

func (r *RequestError) Unwrap() error {
	return r.Err
}

// Retryable reports whether the caller has to wait RetryAfter seconds before
// resubmitting.
func (r *RequestError) Retryable() bool {
	return r.RetryAfter > 0
}

// NewThrottleError builds a 429 with a retry-after rounded up to whole
// seconds, never less than one.
func NewThrottleError(code string, wait time.Duration) *RequestError {
	return &RequestError{
		StatusCode: 429,
		Code:       code,
		RetryAfter: RetryAfterSeconds(wait),
		Err:        fmt.Errorf("%s: retry after %s", code, wait),
	}
}

// RetryAfterSeconds is ceil(ms/1000) with a floor of 1.
func RetryAfterSeconds(wait time.Duration) int {
	ms := wait.Milliseconds()
	secs := int((ms + 999) / 1000)
	if secs < 1 {
		return 1
	}
	return secs
}

var (
	ErrNoMessage      = &RequestError{Err: errors.New("question is required"), StatusCode: 400, Code: CodeNoMessage}
	ErrInvalidRequest = &RequestError{Err: errors.New("invalid request body"), StatusCode: 400, Code: CodeBadRequest}
	ErrBusy           = &RequestError{Err: errors.New("a request for this client is already in progress"), StatusCode: 409, Code: CodeBusy}
	ErrUnauthorized   = &RequestError{Err: errors.New("unauthorized"), StatusCode: 401, Code: CodeBadRequest}

	ErrInternalServerError = &RequestError{Err: errors.New("internal server error"), StatusCode: 500, Code: CodeServerError}

	ErrCorpusLoad        = &MetricsError{Msg: "failed to load corpus", Code: "corpus_load_err"}
	ErrCorpusEmpty       = &MetricsError{Msg: "corpus produced no chunks", Code: "corpus_empty"}
	ErrEmbedding         = &MetricsError{Msg: "failed to compute embeddings", Code: "embedding_err"}
	ErrEmbeddingMismatch = &MetricsError{Msg: "embedding count does not match input", Code: "embedding_mismatch"}
	ErrGeneration        = &MetricsError{Msg: "failed to generate answer", Code: "generation_err"}
	ErrStreamInterrupted = &MetricsError{Msg: "answer stream interrupted", Code: "stream_interrupted"}
	ErrSinkWrite         = &MetricsError{Msg: "failed writing to client", Code: "sink_write_err"}
	ErrCacheRemote       = &MetricsError{Msg: "remote answer cache failed", Code: "cache_remote_err"}
)

type MetricsError struct {
	Msg  string
	Code string
}

func (m *MetricsError) Error() string {
	return m.String()
}

func (m *MetricsError) String() string {
	return m.Msg
}

// AsRequestError returns the RequestError in err's chain, or the generic
// internal server error when there is none.
func AsRequestError(err error) *RequestError {
	var rerr *RequestError
	if errors.As(err, &rerr) {
		return rerr
	}
	return ErrInternalServerError
}
