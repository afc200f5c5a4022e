package persist

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/GriffinCanCode/AquaChat/backend/internal/shared/types"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Row is one persisted message
type Row struct {
	ID             string
	ConversationID string
	Role           types.Role
	Content        string
	CreatedAt      time.Time
}

// SQLiteStore keeps conversation messages in a SQLite database
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (or creates) the database at path, ensuring that the
// parent directory exists, and creates the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open db at %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db at %s: %w", path, err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}

// SaveExchange inserts the user and assistant rows in one transaction
func (s *SQLiteStore) SaveExchange(ctx context.Context, ex types.Exchange) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	// Microsecond resolution keeps the pair ordered on read
	created := s.now().UnixMicro()
	rows := []struct {
		role    types.Role
		content string
	}{
		{types.RoleUser, ex.User},
		{types.RoleAssistant, ex.Assistant},
	}
	for i, r := range rows {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO messages (id, conversation_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
			uuid.NewString(), ex.ConversationID, string(r.role), r.content, created+int64(i))
		if err != nil {
			return fmt.Errorf("insert %s message: %w", r.role, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Messages returns a conversation's messages in insertion order
func (s *SQLiteStore) Messages(ctx context.Context, conversationID string) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, created_at FROM messages
		 WHERE conversation_id = ? ORDER BY created_at, rowid`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			r       Row
			role    string
			created int64
		)
		if err := rows.Scan(&r.ID, &r.ConversationID, &role, &r.Content, &created); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		r.Role = types.Role(role)
		r.CreatedAt = time.UnixMicro(created)
		out = append(out, r)
	}
	return out, rows.Err()
}

// History returns a conversation as chat messages, ready to seed a session
func (s *SQLiteStore) History(ctx context.Context, conversationID string) ([]types.Message, error) {
	rows, err := s.Messages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	msgs := make([]types.Message, len(rows))
	for i, r := range rows {
		msgs[i] = types.Message{Role: r.Role, Content: r.Content}
	}
	return msgs, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
