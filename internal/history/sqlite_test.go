package history

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "history.db"), testLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertMessageAutoCreatesSession(t *testing.T) {
	s := openTestStore(t)

	id, err := s.InsertMessage(Message{
		SessionID: "alpha",
		Timestamp: "2026-08-01T10:00:00Z",
		Sender:    "user",
		Content:   "hello there",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected positive id, got %d", id)
	}

	sess, err := s.Session("alpha")
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if sess.MessageCount != 1 {
		t.Errorf("expected message_count 1, got %d", sess.MessageCount)
	}
	if sess.StartTime != "2026-08-01T10:00:00Z" {
		t.Errorf("start_time = %q", sess.StartTime)
	}
	if sess.EndTime != "2026-08-01T10:00:00Z" {
		t.Errorf("end_time = %q", sess.EndTime)
	}
}

func TestInsertMessageKeepsFTSInSync(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 5; i++ {
		if _, err := s.InsertMessage(Message{
			SessionID: "alpha",
			Sender:    "user",
			Content:   "message body",
		}); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	messages, ftsRows, err := s.Counts()
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if messages != 5 || ftsRows != 5 {
		t.Errorf("expected 5/5 rows, got messages=%d fts=%d", messages, ftsRows)
	}
}

func TestUpsertSessionIdempotent(t *testing.T) {
	s := openTestStore(t)

	if err := s.UpsertSession("alpha", map[string]any{"topic": "first"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := s.InsertMessage(Message{SessionID: "alpha", Sender: "user", Content: "hi"}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// re-upsert must update metadata without resetting the counter
	if err := s.UpsertSession("alpha", map[string]any{"topic": "second"}); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}

	sess, err := s.Session("alpha")
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if sess.MessageCount != 1 {
		t.Errorf("message_count reset by upsert: %d", sess.MessageCount)
	}
	if got := sess.Metadata["topic"]; got != "second" {
		t.Errorf("metadata topic = %v", got)
	}
}

func seedSearchFixture(t *testing.T, s *SQLiteStore) {
	t.Helper()
	fixtures := []Message{
		{SessionID: "alpha", Timestamp: "2026-08-01T09:00:00Z", Sender: "user", Content: "deploy failed on cluster"},
		{SessionID: "alpha", Timestamp: "2026-08-01T10:00:00Z", Sender: "agent", Content: "retrying the deploy now"},
		{SessionID: "beta", Timestamp: "2026-08-02T11:00:00Z", Sender: "user", Content: "what about the database"},
		{SessionID: "beta", Timestamp: "2026-08-03T12:00:00Z", Sender: "agent", Content: "database migration finished"},
	}
	for _, m := range fixtures {
		if _, err := s.InsertMessage(m); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestSearchFullText(t *testing.T) {
	s := openTestStore(t)
	seedSearchFixture(t, s)

	msgs, err := s.SearchMessages(SearchOptions{Query: "deploy"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(msgs))
	}
	// newest-first
	if msgs[0].Timestamp != "2026-08-01T10:00:00Z" {
		t.Errorf("expected newest hit first, got %q", msgs[0].Timestamp)
	}
}

func TestSearchPredicatesCompose(t *testing.T) {
	s := openTestStore(t)
	seedSearchFixture(t, s)

	// all set filters must match together
	msgs, err := s.SearchMessages(SearchOptions{
		Query:     "database",
		SessionID: "beta",
		Sender:    "agent",
		StartDate: "2026-08-03T00:00:00Z",
		EndDate:   "2026-08-03T23:59:59Z",
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(msgs))
	}
	if msgs[0].Content != "database migration finished" {
		t.Errorf("wrong hit: %q", msgs[0].Content)
	}

	// same query, contradictory sender: no hits
	msgs, err = s.SearchMessages(SearchOptions{Query: "database", SessionID: "beta", Sender: "user", StartDate: "2026-08-03T00:00:00Z"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected no hits, got %d", len(msgs))
	}
}

func TestSearchLimitAndOrdering(t *testing.T) {
	s := openTestStore(t)
	seedSearchFixture(t, s)

	msgs, err := s.SearchMessages(SearchOptions{Limit: 2})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected limit 2, got %d", len(msgs))
	}
	if msgs[0].Timestamp < msgs[1].Timestamp {
		t.Errorf("results not newest-first: %q then %q", msgs[0].Timestamp, msgs[1].Timestamp)
	}
}

func TestSessionsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	seedSearchFixture(t, s)

	sessions, err := s.Sessions(10)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].SessionID != "beta" {
		t.Errorf("expected beta first (newest start), got %q", sessions[0].SessionID)
	}
	if sessions[1].MessageCount != 2 {
		t.Errorf("alpha message_count = %d", sessions[1].MessageCount)
	}
}

func TestMessagesByIDPreservesOrder(t *testing.T) {
	s := openTestStore(t)
	seedSearchFixture(t, s)

	// reversed order plus an unknown id
	msgs, err := s.MessagesByID([]int64{3, 999, 1})
	if err != nil {
		t.Fatalf("by id: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].ID != 3 || msgs[1].ID != 1 {
		t.Errorf("order not preserved: %d, %d", msgs[0].ID, msgs[1].ID)
	}
}

func TestMessagesBatchPaginates(t *testing.T) {
	s := openTestStore(t)
	seedSearchFixture(t, s)

	first, err := s.MessagesBatch(0, 3)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("expected 3, got %d", len(first))
	}
	if first[0].ID != 1 {
		t.Errorf("batch not ascending, first id = %d", first[0].ID)
	}

	rest, err := s.MessagesBatch(first[len(first)-1].ID, 3)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(rest) != 1 {
		t.Fatalf("expected 1 remaining, got %d", len(rest))
	}
}

func TestErrorAndProgressFlagsRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.InsertMessage(Message{
		SessionID: "alpha", Sender: "agent", Content: "boom", IsError: true,
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := s.InsertMessage(Message{
		SessionID: "alpha", Sender: "agent", Content: "working", IsProgress: true,
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	msgs, err := s.SessionMessages("alpha")
	if err != nil {
		t.Fatalf("session messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2, got %d", len(msgs))
	}
	// newest-first: progress then error
	if !msgs[0].IsProgress || msgs[0].IsError {
		t.Errorf("flags wrong on %q: error=%v progress=%v", msgs[0].Content, msgs[0].IsError, msgs[0].IsProgress)
	}
	if !msgs[1].IsError || msgs[1].IsProgress {
		t.Errorf("flags wrong on %q: error=%v progress=%v", msgs[1].Content, msgs[1].IsError, msgs[1].IsProgress)
	}
}
