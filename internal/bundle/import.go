package bundle

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/user/chatvault/internal/history"
)

// importConcurrency bounds parallel file imports during directory scans.
const importConcurrency = 4

// ImportJSON reads one session bundle and replays its messages through the
// normal ingestion path. The bundle must carry a session_id. On success a
// TXT transcript is exported as a convenience side effect.
func (m *Manager) ImportJSON(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read bundle: %w", err)
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse bundle %s: %w", filepath.Base(path), err)
	}
	if file.SessionID == "" {
		return fmt.Errorf("bundle %s has no session_id", filepath.Base(path))
	}

	if len(file.Metadata) > 0 {
		if !m.store.AddSession(file.SessionID, file.Metadata) {
			return fmt.Errorf("bundle %s: session not stored", filepath.Base(path))
		}
	}

	for i, fm := range file.Messages {
		msg := history.Message{
			SessionID:  file.SessionID,
			Timestamp:  fm.Timestamp,
			Sender:     fm.Sender,
			Content:    fm.Message,
			IsError:    fm.IsError,
			IsProgress: fm.IsProgress,
		}
		if _, ok := m.store.AddMessage(ctx, msg); !ok {
			return fmt.Errorf("bundle %s: message %d not stored", filepath.Base(path), i)
		}
	}

	if _, err := m.ExportSessionTxt(file.SessionID); err != nil {
		// the import itself succeeded; the transcript is best-effort
		m.log.Warn("post-import transcript export failed", "session", file.SessionID, "error", err)
	}

	m.log.Info("bundle imported", "path", path, "session", file.SessionID, "messages", len(file.Messages))
	return nil
}

// IndexAllJSONFiles imports every *.json bundle found in dir, isolating
// per-file failures. Returns the number of successful imports.
func (m *Manager) IndexAllJSONFiles(ctx context.Context, dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		m.log.Error("scan import directory failed", "dir", dir, "error", err)
		return 0
	}

	var imported atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(importConcurrency)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		g.Go(func() error {
			if err := m.ImportJSON(ctx, path); err != nil {
				// one bad file must not abort the rest
				m.log.Warn("bundle import failed", "path", path, "error", err)
				return nil
			}
			imported.Add(1)
			return nil
		})
	}
	g.Wait()

	return int(imported.Load())
}
