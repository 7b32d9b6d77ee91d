// Package ctx
package ctx

import (
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ContextLogValues should only be accessed for logging, and not for
// actual business logic, or any other logic
type ContextLogValues struct {
	// Added in base middleware
	RequestID       string
	StartTime       time.Time
	StatusCode      int
	RequestDuration time.Duration
	Path            string

	// Added in client middleware
	ClientAddress string
	ClientKey     string

	// Added by the chat router
	Category         string
	Intent           string
	Mode             string
	Cached           bool
	Deltas           int
	AnswerChars      int
	TimeToFirstDelta time.Duration
	RejectedCode     string

	// Override log Log Level
	// useful for streaming where status code might be sent before errors from
	// mid-stream or post processing occur
	LogLevel string

	// Added dynamically
	Error error
}

// AddError adds errors to the error chain. Always add errors, even if only warnings.
// Log level is determined by the status code of the reuqest
func (c *ContextLogValues) AddError(err error) {
	if err == nil {
		return
	}
	if c.Error == nil {
		c.Error = err
		return
	}
	c.Error = fmt.Errorf("%w: %w", err, c.Error)
}

func (c *ContextLogValues) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("request_id", c.RequestID)
	enc.AddTime("start_time", c.StartTime)
	enc.AddDuration("request_duration", c.RequestDuration)
	enc.AddInt("status_code", c.StatusCode)
	enc.AddString("path", c.Path)
	if c.ClientKey != "" {
		enc.AddString("client_key", c.ClientKey)
	}
	enc.AddString("client_address", c.ClientAddress)
	if c.Mode != "" {
		enc.AddString("category", c.Category)
		enc.AddString("intent", c.Intent)
		enc.AddString("mode", c.Mode)
		enc.AddBool("cached", c.Cached)
		enc.AddInt("deltas", c.Deltas)
		enc.AddInt("answer_chars", c.AnswerChars)
		enc.AddDuration("time_to_first_delta", c.TimeToFirstDelta)
	}
	if c.RejectedCode != "" {
		enc.AddString("rejected_code", c.RejectedCode)
	}
	if c.Error != nil {
		enc.AddString("error", c.Error.Error())
	}
	return nil
}

type Context struct {
	echo.Context
	Log       *zap.SugaredLogger
	Reqid     string
	LogValues *ContextLogValues
}
