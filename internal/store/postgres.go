package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gmartinez/chatcli/internal/domain"
)

// PostgresConfig carries the connection parameters, normally sourced from
// the environment.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

// PostgresStore implements Store using PostgreSQL via pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to PostgreSQL, verifies the connection and runs
// migrations.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		url.QueryEscape(cfg.User), url.QueryEscape(cfg.Password),
		cfg.Host, cfg.Port, cfg.Name)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// migrate runs database migrations.
func (s *PostgresStore) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			conversation_id UUID PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id BIGSERIAL PRIMARY KEY,
			conversation_id UUID REFERENCES conversations(conversation_id),
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_created ON messages(created_at, id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_role ON messages(role)`,
	}

	for _, m := range migrations {
		if _, err := s.pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// currentConversationID resolves the most recently started conversation, or
// "" when none exists.
func currentConversationID(ctx context.Context, q interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}) (string, error) {
	var id string
	err := q.QueryRow(ctx,
		`SELECT conversation_id FROM conversations ORDER BY started_at DESC, conversation_id DESC LIMIT 1`,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// AppendMessage validates and stores a new message inside a scoped
// transaction.
func (s *PostgresStore) AppendMessage(ctx context.Context, role, content string) (*domain.Message, error) {
	if err := validateMessage(role, content); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, storageErr("append message", err)
	}
	defer tx.Rollback(ctx)

	convID, err := currentConversationID(ctx, tx)
	if err != nil {
		return nil, storageErr("append message", err)
	}

	msg := &domain.Message{
		ConversationID: convID,
		Role:           strings.ToLower(role),
		Content:        content,
	}

	var conv any
	if convID != "" {
		conv = convID
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO messages (conversation_id, role, content) VALUES ($1, $2, $3) RETURNING id, created_at`,
		conv, msg.Role, msg.Content,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return nil, storageErr("append message", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storageErr("append message", err)
	}
	return msg, nil
}

// Messages returns a filtered, paginated view of the history plus the total
// number of matching rows.
func (s *PostgresStore) Messages(ctx context.Context, filter domain.QueryFilter) ([]domain.Message, int, error) {
	var clauses []string
	var args []any

	if filter.CurrentConversationOnly {
		convID, err := currentConversationID(ctx, s.pool)
		if err != nil {
			return nil, 0, storageErr("resolve current conversation", err)
		}
		if convID != "" {
			args = append(args, convID)
			clauses = append(clauses, fmt.Sprintf("conversation_id = $%d", len(args)))
		}
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		clauses = append(clauses, fmt.Sprintf("content ILIKE $%d", len(args)))
	}
	if filter.Role != "" {
		args = append(args, strings.ToLower(filter.Role))
		clauses = append(clauses, fmt.Sprintf("role = $%d", len(args)))
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages`+where, args...).Scan(&total); err != nil {
		return nil, 0, storageErr("count messages", err)
	}

	args = append(args, effectiveLimit(filter.Limit), filter.Offset)
	query := fmt.Sprintf(
		`SELECT id, COALESCE(conversation_id::text, ''), role, content, created_at FROM messages%s
		 ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, storageErr("query messages", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, 0, storageErr("scan message", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storageErr("query messages", err)
	}
	return messages, total, nil
}

// StartConversation opens a new conversation epoch.
func (s *PostgresStore) StartConversation(ctx context.Context) (*domain.Conversation, error) {
	conv := &domain.Conversation{ID: uuid.NewString()}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO conversations (conversation_id) VALUES ($1) RETURNING started_at`,
		conv.ID,
	).Scan(&conv.StartedAt)
	if err != nil {
		return nil, storageErr("start conversation", err)
	}
	return conv, nil
}

// CurrentConversation returns the latest conversation epoch, or nil when
// none has been started.
func (s *PostgresStore) CurrentConversation(ctx context.Context) (*domain.Conversation, error) {
	conv := &domain.Conversation{}
	err := s.pool.QueryRow(ctx,
		`SELECT conversation_id, started_at FROM conversations ORDER BY started_at DESC, conversation_id DESC LIMIT 1`,
	).Scan(&conv.ID, &conv.StartedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("resolve current conversation", err)
	}
	return conv, nil
}

// ClearAll deletes every message and conversation.
func (s *PostgresStore) ClearAll(ctx context.Context) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storageErr("clear history", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM messages`); err != nil {
		return storageErr("clear history", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM conversations`); err != nil {
		return storageErr("clear history", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return storageErr("clear history", err)
	}
	return nil
}

// Summary aggregates statistics over the full history.
func (s *PostgresStore) Summary(ctx context.Context) (*domain.Summary, error) {
	summary := &domain.Summary{}
	var first, last *time.Time
	var avg *float64

	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE role = 'user'),
		       COUNT(*) FILTER (WHERE role = 'assistant'),
		       MIN(created_at), MAX(created_at),
		       AVG(LENGTH(content))
		FROM messages`,
	).Scan(&summary.TotalMessages, &summary.UserMessages, &summary.AssistantMessages,
		&first, &last, &avg)
	if err != nil {
		return nil, storageErr("summarize history", err)
	}

	summary.FirstMessage = first
	summary.LastMessage = last
	if avg != nil {
		summary.AvgContentLength = *avg
	}
	return summary, nil
}
