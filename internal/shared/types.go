package shared

import "time"

// Roles accepted in conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Categories a question can be scoped to. Anything else is treated as
// CategoryAuto.
const (
	CategoryAuto     = "auto"
	CategoryFood     = "food"
	CategoryDrinks   = "drinks"
	CategoryDesserts = "desserts"
	CategoryInfo     = "info"
)

var Categories = []string{CategoryAuto, CategoryFood, CategoryDrinks, CategoryDesserts, CategoryInfo}

// Delivery modes, resolved once by the transport.
const (
	ModeStream   = "stream"
	ModeBuffered = "buffered"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Turn is one prior message of the caller's conversation.
type Turn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// ChatRequestBody is the wire shape of POST /api/chat.
type ChatRequestBody struct {
	Question string `json:"question"`
	History  []Turn `json:"history"`
	Category string `json:"category"`
	ClientID string `json:"clientId"`
	Stream   *bool  `json:"stream,omitempty"`
}

type ChatResponse struct {
	OK     bool   `json:"ok"`
	Answer string `json:"answer"`
	Cached bool   `json:"cached"`
}

type ErrorResponse struct {
	OK                bool   `json:"ok"`
	Error             string `json:"error"`
	RetryAfterSeconds int    `json:"retryAfterSeconds,omitempty"`
}

type HealthResponse struct {
	OK          bool `json:"ok"`
	CorpusReady bool `json:"corpusReady"`
}

// StreamEvent is the payload of one SSE data line.
type StreamEvent struct {
	Delta  string `json:"delta,omitempty"`
	Cached bool   `json:"cached,omitempty"`
	Error  string `json:"error,omitempty"`
}

// QuestionRecord is what the question log persists for each answered question.
type QuestionRecord struct {
	RequestID        string
	ClientKey        string
	Category         string
	Intent           string
	Mode             string
	Cached           bool
	Completed        bool
	AnswerChars      int
	TimeToFirstDelta time.Duration
	TotalTime        time.Duration
	CreatedAt        time.Time
}

// Canceled reports a question whose answer never finished.
func (q *QuestionRecord) Canceled() bool {
	return !q.Completed
}
