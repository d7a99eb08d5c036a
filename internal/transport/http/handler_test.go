package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/gmartinez/chatcli/internal/domain"
	"github.com/gmartinez/chatcli/internal/store"
)

func newTestHandler(t *testing.T) (*Handler, store.Store) {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewHandler(st), st
}

func TestGetMessages(t *testing.T) {
	e := echo.New()
	h, st := newTestHandler(t)
	ctx := context.Background()

	if _, err := st.AppendMessage(ctx, "user", "Hi"); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	if _, err := st.AppendMessage(ctx, "assistant", "Hello"); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/messages?limit=10", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.GetMessages(c)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Messages []domain.Message `json:"messages"`
		Total    int              `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	assert.Equal(t, 2, resp.Total)
	assert.Len(t, resp.Messages, 2)
	// Most recent first.
	assert.Equal(t, "Hello", resp.Messages[0].Content)
}

func TestGetMessagesFilters(t *testing.T) {
	e := echo.New()
	h, st := newTestHandler(t)
	ctx := context.Background()

	if _, err := st.AppendMessage(ctx, "user", "about goroutines"); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	if _, err := st.AppendMessage(ctx, "assistant", "about channels"); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/messages?search=GOROUTINE&role=user", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.GetMessages(c)
	assert.NoError(t, err)

	var resp struct {
		Messages []domain.Message `json:"messages"`
		Total    int              `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, "about goroutines", resp.Messages[0].Content)
}

func TestGetMessagesCurrentConversation(t *testing.T) {
	e := echo.New()
	h, st := newTestHandler(t)
	ctx := context.Background()

	if _, err := st.AppendMessage(ctx, "user", "old"); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	if _, err := st.StartConversation(ctx); err != nil {
		t.Fatalf("StartConversation failed: %v", err)
	}
	if _, err := st.AppendMessage(ctx, "user", "new"); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/messages?current=true", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.GetMessages(c)
	assert.NoError(t, err)

	var resp struct {
		Messages []domain.Message `json:"messages"`
		Total    int              `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, "new", resp.Messages[0].Content)
}

func TestGetCurrentConversation(t *testing.T) {
	e := echo.New()
	h, st := newTestHandler(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/v1/conversations/current", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.GetCurrentConversation(c)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	started, err := st.StartConversation(ctx)
	if err != nil {
		t.Fatalf("StartConversation failed: %v", err)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	err = h.GetCurrentConversation(c)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var conv domain.Conversation
	if err := json.Unmarshal(rec.Body.Bytes(), &conv); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	assert.Equal(t, started.ID, conv.ID)
}

func TestGetSummary(t *testing.T) {
	e := echo.New()
	h, st := newTestHandler(t)

	if _, err := st.AppendMessage(context.Background(), "user", "Hi"); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/summary", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.GetSummary(c)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var summary domain.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	assert.Equal(t, 1, summary.TotalMessages)
	assert.Equal(t, 1, summary.UserMessages)
}

func TestHealth(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Health(c)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}
