// Package store defines the message persistence interface and its Postgres
// and SQLite implementations.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/gmartinez/chatcli/internal/domain"
)

// ErrInvalidInput marks validation failures (empty role or content). Callers
// must not retry these.
var ErrInvalidInput = errors.New("invalid input")

// ErrStorage marks failures of the underlying database. Distinguished from
// validation failures so callers can react differently.
var ErrStorage = errors.New("storage error")

// DefaultQueryLimit is applied when a query filter carries no positive limit.
const DefaultQueryLimit = 100

// Store is the persistence boundary for conversation history.
type Store interface {
	// AppendMessage validates and persists a new message, attaching it to the
	// current conversation if one exists. Returns the stored record including
	// the assigned id and timestamp.
	AppendMessage(ctx context.Context, role, content string) (*domain.Message, error)

	// Messages returns one page of messages matching the filter, ordered most
	// recent first, plus the total number of matching rows before pagination.
	Messages(ctx context.Context, filter domain.QueryFilter) ([]domain.Message, int, error)

	// StartConversation opens a new conversation epoch. Messages appended
	// afterwards belong to it; earlier history stays untouched.
	StartConversation(ctx context.Context) (*domain.Conversation, error)

	// CurrentConversation returns the most recently started conversation, or
	// nil when none has been started yet.
	CurrentConversation(ctx context.Context) (*domain.Conversation, error)

	// ClearAll irreversibly deletes every message and conversation.
	ClearAll(ctx context.Context) error

	// Summary aggregates statistics over the full history.
	Summary(ctx context.Context) (*domain.Summary, error)

	Close() error
}

// validateMessage enforces the append preconditions shared by all
// implementations.
func validateMessage(role, content string) error {
	if role == "" {
		return fmt.Errorf("%w: role must not be empty", ErrInvalidInput)
	}
	if content == "" {
		return fmt.Errorf("%w: content must not be empty", ErrInvalidInput)
	}
	return nil
}

// storageErr wraps a database failure with its operation name and the
// ErrStorage sentinel.
func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// effectiveLimit normalizes a filter limit.
func effectiveLimit(limit int) int {
	if limit <= 0 {
		return DefaultQueryLimit
	}
	return limit
}
