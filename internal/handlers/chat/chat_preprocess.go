package chat

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"menu-qa/internal/governance"
	"menu-qa/internal/shared"
)

type PreprocessInput struct {
	Body          []byte
	HeaderToken   string
	ClientAddress string
	// WantsStream is true when the caller asked for SSE through Accept.
	WantsStream bool
	RequestID   string
}

type RequestInfo struct {
	ID        string
	ClientKey string
	Question  string
	Category  string
	History   []shared.Turn
	Mode      string
	StartTime time.Time
}

// Preprocess validates the body and resolves client key, category, history
// and delivery mode. It never touches governance state.
func (h *ChatHandler) Preprocess(input PreprocessInput) (*RequestInfo, error) {
	start := time.Now()

	var body shared.ChatRequestBody
	if err := json.Unmarshal(input.Body, &body); err != nil {
		return nil, errors.Join(shared.ErrInvalidRequest, err)
	}

	question := strings.TrimSpace(body.Question)
	if question == "" {
		return nil, shared.ErrNoMessage
	}
	question = shared.Truncate(question, shared.MaxQuestionChars)

	token := body.ClientID
	if strings.TrimSpace(token) == "" {
		token = input.HeaderToken
	}

	mode := shared.ModeBuffered
	switch {
	case body.Stream != nil && *body.Stream:
		mode = shared.ModeStream
	case body.Stream == nil && input.WantsStream:
		mode = shared.ModeStream
	}

	return &RequestInfo{
		ID:        input.RequestID,
		ClientKey: governance.ClientKey(token, input.ClientAddress),
		Question:  question,
		Category:  shared.NormalizeCategory(body.Category),
		History:   shared.TrimHistory(body.History, h.cfg.History.MaxTurns, h.cfg.History.MaxTurnChars),
		Mode:      mode,
		StartTime: start,
	}, nil
}
