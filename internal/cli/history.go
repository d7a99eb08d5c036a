package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/gmartinez/chatcli/internal/config"
	"github.com/gmartinez/chatcli/internal/domain"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit   int
		full    bool
		reverse bool
		all     bool
		search  string
		role    string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the conversation history",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			filter := domain.QueryFilter{
				Limit:                   limit,
				Search:                  search,
				Role:                    role,
				CurrentConversationOnly: !all,
			}
			if full {
				filter.Limit = 1000
			}

			messages, total, err := st.Messages(ctx, filter)
			if err != nil {
				return err
			}
			if len(messages) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), warnStyle.Render("No messages yet."))
				return nil
			}

			// The store returns most recent first; without --reverse keep
			// that order, with it show oldest first.
			if reverse {
				for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
					messages[i], messages[j] = messages[j], messages[i]
				}
			}

			out := cmd.OutOrStdout()
			printHistory(out, messages)
			fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("%d of %d messages", len(messages), total)))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "maximum number of messages to show")
	cmd.Flags().BoolVarP(&full, "full", "f", false, "show the whole history")
	cmd.Flags().BoolVarP(&reverse, "reverse", "r", false, "show oldest messages first")
	cmd.Flags().BoolVar(&all, "all", false, "include messages from earlier conversations")
	cmd.Flags().StringVar(&search, "search", "", "filter messages containing the given text")
	cmd.Flags().StringVar(&role, "role", "", "filter by role (user or assistant)")
	return cmd
}

// printHistory renders messages with terminal markdown when possible.
func printHistory(out io.Writer, messages []domain.Message) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)

	for _, msg := range messages {
		header := assistantStyle.Render("Assistant")
		if msg.Role == domain.RoleUser {
			header = userStyle.Render("You")
		}
		fmt.Fprintf(out, "%s - %s:\n", dimStyle.Render(msg.CreatedAt.Local().Format("2006-01-02 15:04:05")), header)

		rendered := msg.Content
		if err == nil {
			if md, rerr := renderer.Render(msg.Content); rerr == nil {
				rendered = md
			}
		}
		fmt.Fprintln(out, rendered)
	}
}
