// Package history implements durable chat-history storage: sessions and
// messages in SQLite with an FTS5 full-text mirror, plus the search
// coordinator and the engine facade that ties in vector indexing.
package history

import "time"

// TimeFormat is the canonical timestamp representation. RFC3339 UTC strings
// sort lexicographically in chronological order, which keeps range filters
// and the default DESC ordering correct across month/year boundaries.
const TimeFormat = time.RFC3339

// Session groups messages sharing one conversation context. The session_id
// is caller-supplied; counters and end_time are maintained by the store.
type Session struct {
	SessionID    string         `json:"session_id"`
	StartTime    string         `json:"start_time"`
	EndTime      string         `json:"end_time"`
	MessageCount int            `json:"message_count"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Message is a single chat message. ID is assigned by the store and is
// monotonically increasing. Messages are immutable once inserted.
type Message struct {
	ID         int64          `json:"id"`
	SessionID  string         `json:"session_id"`
	Timestamp  string         `json:"timestamp"`
	Sender     string         `json:"sender"`
	Content    string         `json:"content"`
	IsError    bool           `json:"is_error,omitempty"`
	IsProgress bool           `json:"is_progress,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// SearchOptions is a conjunction of optional predicates. Empty fields are
// ignored; all set fields must match (logical AND).
type SearchOptions struct {
	Query     string // FTS5 match over message content
	SessionID string
	Sender    string
	StartDate string // inclusive lower bound on timestamp
	EndDate   string // inclusive upper bound on timestamp
	Limit     int    // result cap, default 100
}

// ScoredMessage is a message paired with a similarity score from the
// vector index.
type ScoredMessage struct {
	Message
	Score float64 `json:"score"`
}

// Now returns the current time formatted in the canonical representation.
func Now() string {
	return time.Now().UTC().Format(TimeFormat)
}
