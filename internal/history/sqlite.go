package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

func init() {
	// modernc registers as "sqlite", which sqlx does not know about.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// SQLiteStore is the relational store: sessions, messages, and the FTS5
// mirror, kept row-synchronized inside one transaction per write.
type SQLiteStore struct {
	db  *sqlx.DB
	mu  sync.RWMutex
	log *slog.Logger
}

// OpenSQLiteStore opens (or creates) the history database at the given path
// and initializes the schema.
func OpenSQLiteStore(dbPath string, log *slog.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &SQLiteStore{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info("history store opened", "path", dbPath)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL DEFAULT '',
			message_count INTEGER NOT NULL DEFAULT 0,
			metadata TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(session_id),
			timestamp TEXT NOT NULL,
			sender TEXT NOT NULL,
			content TEXT NOT NULL,
			is_error INTEGER NOT NULL DEFAULT 0,
			is_progress INTEGER NOT NULL DEFAULT 0,
			metadata TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_start ON sessions(start_time)`,
		// FTS5 mirror, one row per message, same message_id
		`CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
			content,
			message_id UNINDEXED,
			tokenize='porter unicode61'
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:min(len(stmt), 60)], err)
		}
	}

	return nil
}

// sessionRow and messageRow mirror the table columns for sqlx scanning.
type sessionRow struct {
	SessionID    string `db:"session_id"`
	StartTime    string `db:"start_time"`
	EndTime      string `db:"end_time"`
	MessageCount int    `db:"message_count"`
	Metadata     string `db:"metadata"`
}

func (r sessionRow) toSession() Session {
	return Session{
		SessionID:    r.SessionID,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		MessageCount: r.MessageCount,
		Metadata:     unmarshalMetadata(r.Metadata),
	}
}

type messageRow struct {
	ID         int64  `db:"id"`
	SessionID  string `db:"session_id"`
	Timestamp  string `db:"timestamp"`
	Sender     string `db:"sender"`
	Content    string `db:"content"`
	IsError    int    `db:"is_error"`
	IsProgress int    `db:"is_progress"`
	Metadata   string `db:"metadata"`
}

func (r messageRow) toMessage() Message {
	return Message{
		ID:         r.ID,
		SessionID:  r.SessionID,
		Timestamp:  r.Timestamp,
		Sender:     r.Sender,
		Content:    r.Content,
		IsError:    r.IsError != 0,
		IsProgress: r.IsProgress != 0,
		Metadata:   unmarshalMetadata(r.Metadata),
	}
}

const messageCols = "m.id, m.session_id, m.timestamp, m.sender, m.content, m.is_error, m.is_progress, m.metadata"

// UpsertSession creates the session if absent, or overwrites its metadata if
// it already exists. start_time and message_count are never reset.
func (s *SQLiteStore) UpsertSession(sessionID string, metadata map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	metaJSON, err := marshalMetadata(metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = s.db.Exec(`INSERT INTO sessions (session_id, start_time, end_time, message_count, metadata)
		VALUES (?, ?, '', 0, ?)
		ON CONFLICT(session_id) DO UPDATE SET metadata = excluded.metadata`,
		sessionID, Now(), metaJSON)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// InsertMessage writes the message row, its FTS mirror, and the session
// counter update as one atomic unit. A missing session is created inside the
// same transaction. Returns the assigned message id.
func (s *SQLiteStore) InsertMessage(m Message) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.Timestamp == "" {
		m.Timestamp = Now()
	}
	metaJSON, err := marshalMetadata(m.Metadata)
	if err != nil {
		return 0, fmt.Errorf("marshal metadata: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	// Auto-create the session on first message
	if _, err := tx.Exec(`INSERT INTO sessions (session_id, start_time, end_time, message_count, metadata)
		VALUES (?, ?, '', 0, '{}')
		ON CONFLICT(session_id) DO NOTHING`,
		m.SessionID, m.Timestamp); err != nil {
		return 0, fmt.Errorf("ensure session: %w", err)
	}

	res, err := tx.Exec(`INSERT INTO messages (session_id, timestamp, sender, content, is_error, is_progress, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.SessionID, m.Timestamp, m.Sender, m.Content, boolInt(m.IsError), boolInt(m.IsProgress), metaJSON)
	if err != nil {
		return 0, fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("message id: %w", err)
	}

	if _, err := tx.Exec(`INSERT INTO messages_fts (content, message_id) VALUES (?, ?)`,
		m.Content, id); err != nil {
		return 0, fmt.Errorf("insert fts: %w", err)
	}

	if _, err := tx.Exec(`UPDATE sessions SET message_count = message_count + 1, end_time = ?
		WHERE session_id = ?`, m.Timestamp, m.SessionID); err != nil {
		return 0, fmt.Errorf("bump session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// SearchMessages runs an AND-composed predicate query. A non-empty Query is
// matched through the FTS index; date bounds are inclusive. Results come
// back newest-first (timestamp DESC, id DESC as tiebreak).
func (s *SQLiteStore) SearchMessages(opts SearchOptions) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	var where []string
	var args []any

	from := "messages m"
	if opts.Query != "" {
		from = "messages m JOIN messages_fts ON messages_fts.message_id = m.id"
		where = append(where, "messages_fts MATCH ?")
		args = append(args, opts.Query)
	}
	if opts.SessionID != "" {
		where = append(where, "m.session_id = ?")
		args = append(args, opts.SessionID)
	}
	if opts.Sender != "" {
		where = append(where, "m.sender = ?")
		args = append(args, opts.Sender)
	}
	if opts.StartDate != "" {
		where = append(where, "m.timestamp >= ?")
		args = append(args, opts.StartDate)
	}
	if opts.EndDate != "" {
		where = append(where, "m.timestamp <= ?")
		args = append(args, opts.EndDate)
	}

	q := "SELECT " + messageCols + " FROM " + from
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY m.timestamp DESC, m.id DESC LIMIT ?"
	args = append(args, limit)

	var rows []messageRow
	if err := s.db.Select(&rows, q, args...); err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	return toMessages(rows), nil
}

// Sessions returns up to limit sessions, newest-first by start_time.
func (s *SQLiteStore) Sessions(limit int) ([]Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	var rows []sessionRow
	err := s.db.Select(&rows, `SELECT session_id, start_time, end_time, message_count, metadata
		FROM sessions ORDER BY start_time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sessions query: %w", err)
	}

	out := make([]Session, len(rows))
	for i, r := range rows {
		out[i] = r.toSession()
	}
	return out, nil
}

// Session returns one session by id, or sql.ErrNoRows.
func (s *SQLiteStore) Session(sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var r sessionRow
	err := s.db.Get(&r, `SELECT session_id, start_time, end_time, message_count, metadata
		FROM sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, err
	}
	sess := r.toSession()
	return &sess, nil
}

// SessionMessages returns every message of a session, newest-first.
func (s *SQLiteStore) SessionMessages(sessionID string) ([]Message, error) {
	return s.SearchMessages(SearchOptions{SessionID: sessionID, Limit: 1 << 30})
}

// MessagesBatch returns up to batch messages with id > afterID, ascending by
// id. Used to replay the store when rebuilding the vector index.
func (s *SQLiteStore) MessagesBatch(afterID int64, batch int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if batch <= 0 {
		batch = 500
	}
	var rows []messageRow
	err := s.db.Select(&rows, "SELECT "+messageCols+` FROM messages m
		WHERE m.id > ? ORDER BY m.id ASC LIMIT ?`, afterID, batch)
	if err != nil {
		return nil, fmt.Errorf("messages batch: %w", err)
	}
	return toMessages(rows), nil
}

// MessagesByID resolves a set of message ids, preserving the input order.
// Unknown ids are skipped.
func (s *SQLiteStore) MessagesByID(ids []int64) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(ids) == 0 {
		return nil, nil
	}

	q, args, err := sqlx.In("SELECT "+messageCols+" FROM messages m WHERE m.id IN (?)", ids)
	if err != nil {
		return nil, fmt.Errorf("expand ids: %w", err)
	}

	var rows []messageRow
	if err := s.db.Select(&rows, q, args...); err != nil {
		return nil, fmt.Errorf("messages by id: %w", err)
	}

	byID := make(map[int64]Message, len(rows))
	for _, r := range rows {
		byID[r.ID] = r.toMessage()
	}
	out := make([]Message, 0, len(ids))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// Counts returns the number of message rows and FTS mirror rows. The two
// must always be equal.
func (s *SQLiteStore) Counts() (messages, ftsRows int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err = s.db.Get(&messages, `SELECT COUNT(*) FROM messages`); err != nil {
		return 0, 0, err
	}
	if err = s.db.Get(&ftsRows, `SELECT COUNT(*) FROM messages_fts`); err != nil {
		return 0, 0, err
	}
	return messages, ftsRows, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func toMessages(rows []messageRow) []Message {
	out := make([]Message, len(rows))
	for i, r := range rows {
		out[i] = r.toMessage()
	}
	return out
}

func marshalMetadata(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalMetadata(s string) map[string]any {
	if s == "" || s == "{}" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil
	}
	return m
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
