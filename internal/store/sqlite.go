package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/gmartinez/chatcli/internal/domain"
)

// SQLiteStore implements Store using SQLite. It keeps the CLI usable without
// a database server and backs the test suite via ":memory:".
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			conversation_id TEXT PRIMARY KEY,
			started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id TEXT,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (conversation_id) REFERENCES conversations(conversation_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_created ON messages(created_at, id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_role ON messages(role)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AppendMessage validates and stores a new message.
func (s *SQLiteStore) AppendMessage(ctx context.Context, role, content string) (*domain.Message, error) {
	if err := validateMessage(role, content); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("append message", err)
	}
	defer tx.Rollback()

	var convID sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT conversation_id FROM conversations ORDER BY started_at DESC, rowid DESC LIMIT 1`,
	).Scan(&convID)
	if err != nil && err != sql.ErrNoRows {
		return nil, storageErr("append message", err)
	}

	msg := &domain.Message{
		Role:      strings.ToLower(role),
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if convID.Valid {
		msg.ConversationID = convID.String
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		convID, msg.Role, msg.Content, msg.CreatedAt)
	if err != nil {
		return nil, storageErr("append message", err)
	}
	msg.ID, err = res.LastInsertId()
	if err != nil {
		return nil, storageErr("append message", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr("append message", err)
	}
	return msg, nil
}

// Messages returns a filtered, paginated view of the history plus the total
// number of matching rows.
func (s *SQLiteStore) Messages(ctx context.Context, filter domain.QueryFilter) ([]domain.Message, int, error) {
	where, args, err := s.buildFilter(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM messages` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, storageErr("count messages", err)
	}

	query := `SELECT id, conversation_id, role, content, created_at FROM messages` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, effectiveLimit(filter.Limit), filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, storageErr("query messages", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var convID sql.NullString
		if err := rows.Scan(&msg.ID, &convID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, 0, storageErr("scan message", err)
		}
		if convID.Valid {
			msg.ConversationID = convID.String
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storageErr("query messages", err)
	}
	return messages, total, nil
}

// buildFilter assembles the WHERE clause shared by the count and page queries.
func (s *SQLiteStore) buildFilter(ctx context.Context, filter domain.QueryFilter) (string, []interface{}, error) {
	var clauses []string
	var args []interface{}

	if filter.CurrentConversationOnly {
		var convID string
		err := s.db.QueryRowContext(ctx,
			`SELECT conversation_id FROM conversations ORDER BY started_at DESC, rowid DESC LIMIT 1`,
		).Scan(&convID)
		switch {
		case err == sql.ErrNoRows:
			// No conversation started yet: the current conversation is the
			// whole history.
		case err != nil:
			return "", nil, storageErr("resolve current conversation", err)
		default:
			clauses = append(clauses, `conversation_id = ?`)
			args = append(args, convID)
		}
	}
	if filter.Search != "" {
		clauses = append(clauses, `instr(lower(content), lower(?)) > 0`)
		args = append(args, filter.Search)
	}
	if filter.Role != "" {
		clauses = append(clauses, `role = ?`)
		args = append(args, strings.ToLower(filter.Role))
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// StartConversation opens a new conversation epoch.
func (s *SQLiteStore) StartConversation(ctx context.Context) (*domain.Conversation, error) {
	conv := &domain.Conversation{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (conversation_id, started_at) VALUES (?, ?)`,
		conv.ID, conv.StartedAt)
	if err != nil {
		return nil, storageErr("start conversation", err)
	}
	return conv, nil
}

// CurrentConversation returns the latest conversation epoch, or nil when
// none has been started.
func (s *SQLiteStore) CurrentConversation(ctx context.Context) (*domain.Conversation, error) {
	conv := &domain.Conversation{}
	err := s.db.QueryRowContext(ctx,
		`SELECT conversation_id, started_at FROM conversations ORDER BY started_at DESC, rowid DESC LIMIT 1`,
	).Scan(&conv.ID, &conv.StartedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("resolve current conversation", err)
	}
	return conv, nil
}

// ClearAll deletes every message and conversation.
func (s *SQLiteStore) ClearAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("clear history", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages`); err != nil {
		return storageErr("clear history", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM conversations`); err != nil {
		return storageErr("clear history", err)
	}
	if err := tx.Commit(); err != nil {
		return storageErr("clear history", err)
	}
	return nil
}

// Summary aggregates statistics over the full history.
func (s *SQLiteStore) Summary(ctx context.Context) (*domain.Summary, error) {
	summary := &domain.Summary{}
	var avg sql.NullFloat64

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN role = 'user' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN role = 'assistant' THEN 1 ELSE 0 END), 0),
		       AVG(LENGTH(content))
		FROM messages`,
	).Scan(&summary.TotalMessages, &summary.UserMessages, &summary.AssistantMessages, &avg)
	if err != nil {
		return nil, storageErr("summarize history", err)
	}
	if avg.Valid {
		summary.AvgContentLength = avg.Float64
	}

	// MIN/MAX lose the DATETIME decltype, so fetch the boundary timestamps
	// through plain column selects instead.
	var first, last time.Time
	err = s.db.QueryRowContext(ctx,
		`SELECT created_at FROM messages ORDER BY created_at ASC, id ASC LIMIT 1`,
	).Scan(&first)
	if err == nil {
		summary.FirstMessage = &first
	} else if err != sql.ErrNoRows {
		return nil, storageErr("summarize history", err)
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT created_at FROM messages ORDER BY created_at DESC, id DESC LIMIT 1`,
	).Scan(&last)
	if err == nil {
		summary.LastMessage = &last
	} else if err != sql.ErrNoRows {
		return nil, storageErr("summarize history", err)
	}
	return summary, nil
}
