// Package cli implements the chatcli command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gmartinez/chatcli/internal/config"
	"github.com/gmartinez/chatcli/internal/llm"
	"github.com/gmartinez/chatcli/internal/store"
)

// NewRootCmd builds the chatcli command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "chatcli",
		Short:         "Terminal chat assistant with persistent history",
		Long:          "chatcli forwards questions to an OpenAI-compatible completion API, streams the answer to the terminal and keeps the conversation in a relational store.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newAskCmd(),
		newHistoryCmd(),
		newExportCmd(),
		newNewCmd(),
		newClearCmd(),
		newStatsCmd(),
		newModelsCmd(),
		newReplCmd(),
		newServeCmd(),
	)
	return root
}

// Execute runs the CLI. All otherwise-unhandled failures are printed here and
// turn into a non-zero exit.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, config.ErrMissingAPIKey) {
			fmt.Fprintln(os.Stderr, "Set API_KEY in your environment or in a .env file.")
		}
		os.Exit(1)
	}
}

// openStore connects the configured storage backend.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("connect message store: %w", err)
	}
	return st, nil
}

// newCompletionClient builds the completion client, enforcing the credential
// unless the offline mock mode is active.
func newCompletionClient(cfg *config.Config) (llm.CompletionClient, error) {
	if os.Getenv(llm.EnvMode) != llm.ModeMock {
		if err := cfg.RequireAPIKey(); err != nil {
			return nil, err
		}
	}
	return llm.NewCompletionClient(cfg.APIBaseURL, cfg.APIKey, cfg.LLMTimeout), nil
}
