package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gmartinez/chatcli/internal/domain"
)

func sampleMessages() []domain.Message {
	ts := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return []domain.Message{
		{ID: 1, Role: "user", Content: "What is a slice?", CreatedAt: ts},
		{ID: 2, Role: "assistant", Content: "A slice is a view over an array.", CreatedAt: ts.Add(time.Minute)},
	}
}

func TestMarkdownHeadingsInOrder(t *testing.T) {
	doc := Markdown(sampleMessages())

	userIdx := strings.Index(doc, "## User")
	assistantIdx := strings.Index(doc, "## Assistant")
	if userIdx < 0 || assistantIdx < 0 {
		t.Fatalf("missing role headings:\n%s", doc)
	}
	if userIdx > assistantIdx {
		t.Fatalf("user message must precede the assistant reply:\n%s", doc)
	}
	if !strings.Contains(doc, "What is a slice?") || !strings.Contains(doc, "A slice is a view over an array.") {
		t.Fatalf("missing message content:\n%s", doc)
	}
	if !strings.Contains(doc, "2026-03-14 09:30:00") {
		t.Fatalf("missing timestamp:\n%s", doc)
	}
}

func TestWriteMarkdownCreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "exports", "chat.md")

	if err := WriteMarkdown(path, sampleMessages()); err != nil {
		t.Fatalf("WriteMarkdown failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.Contains(string(data), "# Chat history") {
		t.Fatalf("unexpected export content:\n%s", data)
	}
}

func TestConvertToPDFMissingConverter(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	err := ConvertToPDF(context.Background(), "in.md", "out.pdf")
	if err == nil {
		t.Fatalf("expected error when pandoc is unavailable")
	}
	if !strings.Contains(err.Error(), "pandoc") {
		t.Fatalf("unexpected error: %v", err)
	}
}
