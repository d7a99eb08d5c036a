package store

import (
	"context"
	"errors"
	"testing"

	"github.com/gmartinez/chatcli/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendMessageValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.AppendMessage(ctx, "", "x"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty role, got %v", err)
	}
	if _, err := s.AppendMessage(ctx, "user", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty content, got %v", err)
	}

	// Nothing may be stored after a validation failure.
	_, total, err := s.Messages(ctx, domain.QueryFilter{})
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected empty store, got %d messages", total)
	}
}

func TestAppendAndQueryOrdering(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.AppendMessage(ctx, "user", "Hi"); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	if _, err := s.AppendMessage(ctx, "assistant", "Hello"); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	messages, total, err := s.Messages(ctx, domain.QueryFilter{Limit: 10})
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if total != 2 || len(messages) != 2 {
		t.Fatalf("expected 2 messages, got page=%d total=%d", len(messages), total)
	}
	// Most recent first; equal timestamps are broken by id.
	if messages[0].Content != "Hello" || messages[1].Content != "Hi" {
		t.Fatalf("unexpected order: %q, %q", messages[0].Content, messages[1].Content)
	}
	if messages[0].ID <= messages[1].ID {
		t.Fatalf("expected descending ids, got %d then %d", messages[0].ID, messages[1].ID)
	}
}

func TestConversationScoping(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.AppendMessage(ctx, "user", "old question"); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	conv, err := s.StartConversation(ctx)
	if err != nil {
		t.Fatalf("StartConversation failed: %v", err)
	}
	if conv.ID == "" {
		t.Fatalf("expected a conversation id")
	}

	if _, err := s.AppendMessage(ctx, "user", "new question"); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	messages, total, err := s.Messages(ctx, domain.QueryFilter{CurrentConversationOnly: true})
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if total != 1 || len(messages) != 1 {
		t.Fatalf("expected only the new message, got page=%d total=%d", len(messages), total)
	}
	if messages[0].Content != "new question" || messages[0].ConversationID != conv.ID {
		t.Fatalf("unexpected message: %+v", messages[0])
	}

	// Without the scope the old message is still there.
	_, total, err = s.Messages(ctx, domain.QueryFilter{})
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 messages overall, got %d", total)
	}
}

func TestCurrentConversationWithoutEpoch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.AppendMessage(ctx, "user", "hello"); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	// No conversation started: the scope covers the whole history.
	messages, total, err := s.Messages(ctx, domain.QueryFilter{CurrentConversationOnly: true})
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if total != 1 || len(messages) != 1 {
		t.Fatalf("expected 1 message, got page=%d total=%d", len(messages), total)
	}
}

func TestCurrentConversation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	conv, err := s.CurrentConversation(ctx)
	if err != nil {
		t.Fatalf("CurrentConversation failed: %v", err)
	}
	if conv != nil {
		t.Fatalf("expected no conversation yet, got %+v", conv)
	}

	started, err := s.StartConversation(ctx)
	if err != nil {
		t.Fatalf("StartConversation failed: %v", err)
	}

	conv, err = s.CurrentConversation(ctx)
	if err != nil {
		t.Fatalf("CurrentConversation failed: %v", err)
	}
	if conv == nil || conv.ID != started.ID {
		t.Fatalf("expected conversation %q, got %+v", started.ID, conv)
	}
}

func TestQueryFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	seed := []struct{ role, content string }{
		{"user", "How do I write a goroutine?"},
		{"assistant", "Use the go keyword."},
		{"user", "What about channels?"},
		{"assistant", "Channels connect Goroutines."},
	}
	for _, m := range seed {
		if _, err := s.AppendMessage(ctx, m.role, m.content); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}

	// Case-insensitive substring search.
	messages, total, err := s.Messages(ctx, domain.QueryFilter{Search: "goroutine"})
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if total != 2 || len(messages) != 2 {
		t.Fatalf("expected 2 matches, got page=%d total=%d", len(messages), total)
	}

	// Role filter combined with search.
	messages, total, err = s.Messages(ctx, domain.QueryFilter{Search: "goroutine", Role: "user"})
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if total != 1 || messages[0].Role != "user" {
		t.Fatalf("unexpected result: total=%d messages=%+v", total, messages)
	}

	// Pagination: total counts matches before limit/offset.
	messages, total, err = s.Messages(ctx, domain.QueryFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if total != 4 || len(messages) != 1 {
		t.Fatalf("expected total=4 page=1, got total=%d page=%d", total, len(messages))
	}
	if messages[0].Content != "What about channels?" {
		t.Fatalf("unexpected offset result: %q", messages[0].Content)
	}
}

func TestClearAll(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.AppendMessage(ctx, "user", "hello"); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	if _, err := s.StartConversation(ctx); err != nil {
		t.Fatalf("StartConversation failed: %v", err)
	}

	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}

	_, total, err := s.Messages(ctx, domain.QueryFilter{})
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected empty store after clear, got %d", total)
	}

	// The conversation epoch is gone too: new appends carry no epoch.
	msg, err := s.AppendMessage(ctx, "user", "fresh start")
	if err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	if msg.ConversationID != "" {
		t.Fatalf("expected no conversation id after clear, got %q", msg.ConversationID)
	}
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	summary, err := s.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if summary.TotalMessages != 0 || summary.FirstMessage != nil || summary.LastMessage != nil {
		t.Fatalf("unexpected empty summary: %+v", summary)
	}

	if _, err := s.AppendMessage(ctx, "user", "ab"); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	if _, err := s.AppendMessage(ctx, "assistant", "abcd"); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	summary, err = s.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if summary.TotalMessages != 2 || summary.UserMessages != 1 || summary.AssistantMessages != 1 {
		t.Fatalf("unexpected counts: %+v", summary)
	}
	if summary.FirstMessage == nil || summary.LastMessage == nil {
		t.Fatalf("expected message timestamps: %+v", summary)
	}
	if summary.AvgContentLength != 3 {
		t.Fatalf("expected avg length 3, got %v", summary.AvgContentLength)
	}
}
