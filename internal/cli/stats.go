package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gmartinez/chatcli/internal/config"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show statistics over the stored history",
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

			summary, err := st.Summary(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total messages:      %d\n", summary.TotalMessages)
			fmt.Fprintf(out, "User messages:       %d\n", summary.UserMessages)
			fmt.Fprintf(out, "Assistant messages:  %d\n", summary.AssistantMessages)
			fmt.Fprintf(out, "Avg message length:  %.0f characters\n", summary.AvgContentLength)
			if summary.FirstMessage != nil {
				fmt.Fprintf(out, "First message:       %s\n", summary.FirstMessage.Local().Format("2006-01-02 15:04:05"))
			}
			if summary.LastMessage != nil {
				fmt.Fprintf(out, "Last message:        %s\n", summary.LastMessage.Local().Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}
