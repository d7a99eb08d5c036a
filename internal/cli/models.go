package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gmartinez/chatcli/internal/config"
)

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models available behind the completion API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			client, err := newCompletionClient(cfg)
			if err != nil {
				return err
			}

			models, err := client.ListModels(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(models) == 0 {
				fmt.Fprintln(out, warnStyle.Render("No models reported."))
				return nil
			}
			for _, m := range models {
				line := m.ID
				if m.OwnedBy != "" {
					line += dimStyle.Render(fmt.Sprintf("  (%s)", m.OwnedBy))
				}
				if m.ID == cfg.Model {
					line += assistantStyle.Render("  <- default")
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}
