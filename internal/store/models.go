package store

import "time"

// Run is one persisted query execution: the question asked, the final
// answer, and the full step trace serialized as JSON.
type Run struct {
	ID        int       `json:"id"`
	ChatID    string    `json:"chat_id"`
	Query     string    `json:"query"`
	Trace     string    `json:"trace"`
	Answer    string    `json:"answer"`
	Partial   bool      `json:"partial"`
	CreatedAt time.Time `json:"created_at"`
}

// Watch is a standing filing watch: the agent re-runs the stored query
// on an interval and pushes the answer to the chat.
type Watch struct {
	ID              int    `json:"id"`
	ChatID          string `json:"chat_id"`
	Query           string `json:"query"`
	IntervalSeconds int    `json:"interval_seconds"`
	OneTime         bool   `json:"one_time"`
}
