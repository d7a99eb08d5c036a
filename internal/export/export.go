// Package export renders stored messages to Markdown and converts the result
// to PDF through an external document converter.
package export

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/gmartinez/chatcli/internal/domain"
)

// pdfConverter is the external tool used for Markdown to PDF conversion.
const pdfConverter = "pandoc"

// Markdown renders messages as a Markdown document, oldest first.
func Markdown(messages []domain.Message) string {
	var b strings.Builder
	b.WriteString("# Chat history\n\n")
	b.WriteString(fmt.Sprintf("Exported: %s\n\n", time.Now().Format("2006-01-02 15:04")))

	for _, msg := range messages {
		heading := "Assistant"
		if msg.Role == domain.RoleUser {
			heading = "User"
		} else if msg.Role == domain.RoleSystem {
			heading = "System"
		}
		b.WriteString(fmt.Sprintf("## %s\n\n%s\n\n", heading, msg.Content))
		b.WriteString(fmt.Sprintf("*%s*\n\n---\n\n", msg.CreatedAt.Format("2006-01-02 15:04:05")))
	}
	return b.String()
}

// WriteMarkdown renders messages and writes the document to path, creating
// parent directories as needed.
func WriteMarkdown(path string, messages []domain.Message) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(Markdown(messages)), 0o644); err != nil {
		return fmt.Errorf("write markdown export: %w", err)
	}
	return nil
}

// ConvertToPDF converts a Markdown file to PDF by shelling out to pandoc.
// The operation fails when the converter is not installed.
func ConvertToPDF(ctx context.Context, mdPath, pdfPath string) error {
	if _, err := exec.LookPath(pdfConverter); err != nil {
		return fmt.Errorf("%s is required for PDF export: %w", pdfConverter, err)
	}
	cmd := exec.CommandContext(ctx, pdfConverter, mdPath, "-o", pdfPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s failed: %w\n%s", pdfConverter, err, out)
	}
	return nil
}
