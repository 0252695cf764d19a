package webchat

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Message is one stored chat transcript entry.
type Message struct {
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Body      string    `json:"body"`
	HTML      string    `json:"html,omitempty"` // rendered form, assistant messages only
	CreatedAt time.Time `json:"created_at"`
}

// Store persists chat transcripts in a SQLite database so a session survives
// page reloads and server restarts.
type Store struct {
	db *sql.DB
}

const storeSchema = `
CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	role       TEXT NOT NULL,
	body       TEXT NOT NULL,
	html       TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, id);
`

// OpenStore opens (and if needed creates) the transcript database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("webchat: failed to open database: %w", err)
	}
	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("webchat: failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Append stores one message at the end of its session transcript.
func (s *Store) Append(ctx context.Context, msg Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (session_id, role, body, html, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.SessionID, msg.Role, msg.Body, msg.HTML, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("webchat: failed to store message: %w", err)
	}
	return nil
}

// History returns the transcript of a session in insertion order. A limit of
// zero or less means the default of 200 messages.
func (s *Store) History(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, role, body, html, created_at FROM messages WHERE session_id = ? ORDER BY id LIMIT ?`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("webchat: failed to query history: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.SessionID, &m.Role, &m.Body, &m.HTML, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("webchat: failed to scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("webchat: failed to read history: %w", err)
	}
	return msgs, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
