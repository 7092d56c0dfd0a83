package bundle

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Manager implements import and export of session bundles and transcripts.
type Manager struct {
	store     Store
	exportDir string
	log       *slog.Logger
}

// NewManager creates a manager writing exports into exportDir.
func NewManager(store Store, exportDir string, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{store: store, exportDir: exportDir, log: log}
}

// ExportSessionTxt renders a session as a plain-text transcript,
// chronological (oldest-first), one block per message:
//
//	[timestamp] [ERROR|PROGRESS]? sender: content
//
// Returns the written file path, or "" when the session has no messages.
func (m *Manager) ExportSessionTxt(sessionID string) (string, error) {
	msgs := m.store.GetSessionMessages(sessionID)
	if len(msgs) == 0 {
		return "", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\n\n", sessionID)
	// store order is newest-first; transcripts read oldest-first
	for i := len(msgs) - 1; i >= 0; i-- {
		msg := msgs[i]
		tag := ""
		switch {
		case msg.IsError:
			tag = "[ERROR] "
		case msg.IsProgress:
			tag = "[PROGRESS] "
		}
		fmt.Fprintf(&b, "[%s] %s%s: %s\n", msg.Timestamp, tag, msg.Sender, msg.Content)
	}

	path := filepath.Join(m.exportDir, safeFileName(sessionID)+".txt")
	if err := writeFileAtomic(path, []byte(b.String())); err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}

	m.log.Info("session exported", "session", sessionID, "path", path, "messages", len(msgs))
	return path, nil
}

// ExportSessionJSON writes the session in the import-bundle shape, so an
// exported file can be re-imported losslessly. Returns "" for an empty
// session.
func (m *Manager) ExportSessionJSON(sessionID string) (string, error) {
	msgs := m.store.GetSessionMessages(sessionID)
	if len(msgs) == 0 {
		return "", nil
	}

	file := File{SessionID: sessionID}
	if sess := m.store.GetSession(sessionID); sess != nil {
		file.Metadata = sess.Metadata
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		msg := msgs[i]
		file.Messages = append(file.Messages, FileMessage{
			Sender:     msg.Sender,
			Message:    msg.Content,
			Timestamp:  msg.Timestamp,
			IsError:    msg.IsError,
			IsProgress: msg.IsProgress,
		})
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal bundle: %w", err)
	}

	path := filepath.Join(m.exportDir, safeFileName(sessionID)+".json")
	if err := writeFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("write bundle: %w", err)
	}
	return path, nil
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// safeFileName keeps session ids usable as file names.
func safeFileName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
}
