// Package bundle converts between the engine's store and its two external
// formats: session JSON bundles and human-readable transcript text.
package bundle

import (
	"context"

	"github.com/user/chatvault/internal/history"
)

// Store is the slice of the engine the import/export manager needs.
// Replayed messages go through the normal AddMessage path so full-text and
// vector indexing happen identically to live ingestion.
type Store interface {
	AddSession(sessionID string, metadata map[string]any) bool
	AddMessage(ctx context.Context, m history.Message) (int64, bool)
	GetSession(sessionID string) *history.Session
	GetSessionMessages(sessionID string) []history.Message
}

// File is the JSON bundle shape: one session with its ordered messages.
type File struct {
	SessionID string         `json:"session_id"`
	Messages  []FileMessage  `json:"messages"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// FileMessage is one message inside a bundle.
type FileMessage struct {
	Sender     string `json:"sender"`
	Message    string `json:"message"`
	Timestamp  string `json:"timestamp,omitempty"`
	IsError    bool   `json:"is_error,omitempty"`
	IsProgress bool   `json:"is_progress,omitempty"`
}
