// Package middleware holds the echo middleware shared by every route
package middleware

import (
	"fmt"
	"time"

	"menu-qa/internal/ctx"
	"menu-qa/internal/metrics"
	"menu-qa/internal/shared"

	"github.com/aidarkhanov/nanoid"
	"github.com/labstack/echo/v4"
	emw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func NewTrackMiddleware(log *zap.SugaredLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			reqID, _ := nanoid.Generate("0123456789abcdefghijklmnopqrstuvwxyz", 28)
			reqID = "req_" + reqID
			logger := log.With("request_id", reqID)

			start := time.Now()
			cc := &ctx.Context{
				Context: c,
				Log:     logger,
				Reqid:   reqID,
				LogValues: &ctx.ContextLogValues{
					RequestID:     reqID,
					StartTime:     start,
					Path:          c.Path(),
					ClientAddress: c.RealIP(),
				},
			}
			err := next(cc)

			lv := cc.LogValues
			lv.RequestDuration = time.Since(start)
			lv.StatusCode = cc.Response().Status
			level := levelFor(lv)
			logger.Desugar().Check(level, "end_of_request").Write(zap.Object("request", lv))
			metrics.ResponseCodes.WithLabelValues(cc.Path(), fmt.Sprintf("%d", lv.StatusCode)).Inc()
			return err
		}
	}
}

func levelFor(lv *ctx.ContextLogValues) zapcore.Level {
	switch lv.LogLevel {
	case "ERROR":
		return zapcore.ErrorLevel
	case "WARN":
		return zapcore.WarnLevel
	}
	switch {
	case lv.StatusCode >= 500:
		return zapcore.ErrorLevel
	case lv.StatusCode >= 400 || lv.Error != nil:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

func NewRecoverMiddleware(log *zap.SugaredLogger) echo.MiddlewareFunc {
	return emw.RecoverWithConfig(emw.RecoverConfig{
		StackSize: 1 << 10, // 1 KB
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			defer func() {
				_ = log.Sync()
			}()
			log.Errorw("Api Panic", "error", err.Error(), "stack", string(stack))
			return c.JSON(500, shared.ErrorResponse{OK: false, Error: shared.CodeServerError})
		},
	})
}
