package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gmartinez/chatcli/internal/config"
	"github.com/gmartinez/chatcli/internal/domain"
	"github.com/gmartinez/chatcli/internal/export"
	"github.com/gmartinez/chatcli/internal/store"
)

const exportDir = "exports"

func newExportCmd() *cobra.Command {
	var (
		format string
		output string
		limit  int
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the conversation history to Markdown or PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			if format != "md" && format != "pdf" {
				return fmt.Errorf("unsupported format %q, use md or pdf", format)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			return runExport(ctx, st, cmd.OutOrStdout(), format, output, limit, !all)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "md", "export format (md or pdf)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file name without extension (default chat_export)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "export only the last N messages")
	cmd.Flags().BoolVar(&all, "all", false, "include messages from earlier conversations")
	return cmd
}

// runExport writes the Markdown document and optionally converts it to PDF.
// Shared with the repl /export command.
func runExport(ctx context.Context, st store.Store, out io.Writer, format, output string, limit int, currentOnly bool) error {
	queryLimit := limit
	if queryLimit <= 0 {
		queryLimit = 1000
	}
	messages, _, err := st.Messages(ctx, domain.QueryFilter{
		Limit:                   queryLimit,
		CurrentConversationOnly: currentOnly,
	})
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		fmt.Fprintln(out, warnStyle.Render("No messages to export."))
		return nil
	}

	// Oldest first reads naturally in a document.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	base := output
	if base == "" {
		base = "chat_export"
	}
	mdPath := filepath.Join(exportDir, base+".md")
	if err := export.WriteMarkdown(mdPath, messages); err != nil {
		return err
	}
	fmt.Fprintf(out, "Exported: %s\n", mdPath)

	if format == "pdf" {
		pdfPath := filepath.Join(exportDir, base+".pdf")
		if err := export.ConvertToPDF(ctx, mdPath, pdfPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "Exported: %s\n", pdfPath)
	}
	return nil
}
