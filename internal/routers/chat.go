package routers

import (
	"errors"
	"net/http"
	"strings"

	"menu-qa/internal/ctx"
	"menu-qa/internal/handlers/chat"
	"menu-qa/internal/middleware"
	"menu-qa/internal/shared"

	"github.com/labstack/echo/v4"
)

type ChatRouter struct {
	ch *chat.ChatHandler
}

// RegisterChatRoutes mounts the question and health endpoints under /api.
func RegisterChatRoutes(e *echo.Group, ch *chat.ChatHandler) {
	chatRouter := ChatRouter{ch: ch}

	api := e.Group("/api")
	api.GET("/health", chatRouter.Health)
	api.POST("/chat", chatRouter.Chat, middleware.ExtractClient)
}

func (cr *ChatRouter) Health(cc echo.Context) error {
	return cc.JSON(http.StatusOK, shared.HealthResponse{OK: true, CorpusReady: cr.ch.CorpusReady()})
}

func (cr *ChatRouter) Chat(cc echo.Context) error {
	c := cc.(*ctx.Context)
	body, err := readRequestBody(c)
	if err != nil {
		c.LogValues.AddError(err)
		return writeError(c, errors.Join(shared.ErrInvalidRequest, err))
	}

	reqInfo, preErr := cr.ch.Preprocess(chat.PreprocessInput{
		Body:          body,
		HeaderToken:   c.Request().Header.Get(shared.ClientTokenHeader),
		ClientAddress: c.LogValues.ClientAddress,
		WantsStream:   strings.Contains(c.Request().Header.Get(echo.HeaderAccept), "text/event-stream"),
		RequestID:     c.Reqid,
	})
	if preErr != nil {
		c.LogValues.AddError(preErr)
		return writeError(c, preErr)
	}
	c.LogValues.ClientKey = reqInfo.ClientKey
	c.LogValues.Category = reqInfo.Category
	c.LogValues.Mode = reqInfo.Mode

	var sink *sseSink
	input := chat.AnswerInput{Req: reqInfo, Ctx: c.Request().Context()}
	if reqInfo.Mode == shared.ModeStream {
		sink = newSSESink(c)
		input.Sink = sink
	}

	out, reqErr := cr.ch.Submit(input)

	// Only reached when nothing has been written to the client yet
	if reqErr != nil {
		c.LogValues.AddError(reqErr)
		rerr := shared.AsRequestError(reqErr)
		if rerr.Retryable() || rerr.StatusCode == http.StatusConflict {
			c.LogValues.RejectedCode = rerr.Code
		}
		if rerr.StatusCode >= 500 {
			c.LogValues.LogLevel = "ERROR"
		}
		return writeError(c, reqErr)
	}

	c.LogValues.Intent = out.Intent
	c.LogValues.Cached = out.Cached
	c.LogValues.Deltas = out.Deltas
	c.LogValues.AnswerChars = len([]rune(out.Answer))
	c.LogValues.TimeToFirstDelta = out.TimeToFirstDelta
	c.LogValues.AddError(out.Err)
	if out.Err != nil && !out.Canceled {
		c.LogValues.LogLevel = "ERROR"
	}

	if sink != nil {
		return nil
	}
	return c.JSON(http.StatusOK, shared.ChatResponse{OK: true, Answer: out.Answer, Cached: out.Cached})
}
