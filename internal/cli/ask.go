package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gmartinez/chatcli/internal/chat"
	"github.com/gmartinez/chatcli/internal/config"
	"github.com/gmartinez/chatcli/internal/domain"
	"github.com/gmartinez/chatcli/internal/llm"
	"github.com/gmartinez/chatcli/internal/store"
	"github.com/gmartinez/chatcli/internal/stream"
)

// historyWindow is how many current-conversation messages are sent as
// context; the streamer trims further if needed.
const historyWindow = 20

func newAskCmd() *cobra.Command {
	var (
		model       string
		temperature float64
		maxTokens   int
		noStream    bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the assistant a question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(args[0])
			if question == "" {
				return fmt.Errorf("the question must not be empty")
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

			client, err := newCompletionClient(cfg)
			if err != nil {
				return err
			}

			params := askParams{
				cfg:         cfg,
				store:       st,
				client:      client,
				question:    question,
				model:       model,
				temperature: temperature,
				maxTokens:   maxTokens,
				noStream:    noStream,
				out:         cmd.OutOrStdout(),
				in:          cmd.InOrStdin(),
			}
			return askQuestion(ctx, params)
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "model to use (default from configuration)")
	cmd.Flags().Float64VarP(&temperature, "temperature", "t", -1, "generation temperature, 0.0-1.0 (default from configuration)")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "maximum tokens to generate (default from configuration)")
	cmd.Flags().BoolVar(&noStream, "no-stream", false, "wait for the full response instead of streaming")
	return cmd
}

// askParams bundles everything one question needs; the repl reuses it.
type askParams struct {
	cfg         *config.Config
	store       store.Store
	client      llm.CompletionClient
	question    string
	model       string
	temperature float64
	maxTokens   int
	noStream    bool
	out         io.Writer
	in          io.Reader
}

// askQuestion appends the question, sends the current conversation window to
// the model and persists the assistant reply. Interrupted and errored
// responses are not persisted.
func askQuestion(ctx context.Context, p askParams) error {
	if p.model == "" {
		p.model = p.cfg.Model
	}
	if p.temperature < 0 {
		p.temperature = p.cfg.Temperature
	}
	if p.maxTokens <= 0 {
		p.maxTokens = p.cfg.MaxTokens
	}

	if _, err := p.store.AppendMessage(ctx, domain.RoleUser, p.question); err != nil {
		return err
	}

	history, err := conversationWindow(ctx, p.store)
	if err != nil {
		return err
	}

	fmt.Fprintf(p.out, "\n%s %s\n\n", userStyle.Render("You:"), p.question)
	fmt.Fprintf(p.out, "%s ", assistantStyle.Render("Assistant:"))

	streamer := stream.New(p.client, "")

	if p.noStream {
		return askOnce(ctx, p, streamer, history)
	}

	consumer := chat.NewConsumer(p.out, p.in, chat.Options{
		ChunkSize:       p.cfg.ChunkSize,
		ConfirmContinue: p.cfg.ConfirmContinue,
	})
	result := consumer.Run(ctx, streamer, stream.Request{
		Messages:    history,
		Model:       p.model,
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
		ChunkSize:   p.cfg.ChunkSize,
	})
	fmt.Fprintln(p.out)

	if result.Failed() {
		return fmt.Errorf("generation failed: %s", result.Err)
	}
	if result.Interrupted {
		fmt.Fprintln(p.out, warnStyle.Render("Generation interrupted; the partial response was not saved."))
		return nil
	}
	if p.cfg.ShowUsage {
		consumer.PrintUsage(result)
	}
	if result.Text != "" {
		if _, err := p.store.AppendMessage(ctx, domain.RoleAssistant, result.Text); err != nil {
			return err
		}
	}
	return nil
}

// askOnce is the non-streaming path: one request, one full answer.
func askOnce(ctx context.Context, p askParams, streamer *stream.Streamer, history []llm.ChatMessage) error {
	temperature := p.temperature
	req := &llm.ChatCompletionRequest{
		Model:       p.model,
		Messages:    streamer.Window(history),
		Temperature: &temperature,
	}
	if p.maxTokens > 0 {
		req.MaxTokens = &p.maxTokens
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return fmt.Errorf("generation failed: empty response")
	}

	text := resp.Choices[0].Message.Content
	fmt.Fprintln(p.out, text)

	if p.cfg.ShowUsage && resp.Usage != nil {
		fmt.Fprintln(p.out, dimStyle.Render(fmt.Sprintf("%d tokens", resp.Usage.TotalTokens)))
	}
	if text != "" {
		if _, err := p.store.AppendMessage(ctx, domain.RoleAssistant, text); err != nil {
			return err
		}
	}
	return nil
}

// conversationWindow fetches the current conversation, oldest first, capped
// at historyWindow messages.
func conversationWindow(ctx context.Context, st store.Store) ([]llm.ChatMessage, error) {
	page, _, err := st.Messages(ctx, domain.QueryFilter{
		Limit:                   historyWindow,
		CurrentConversationOnly: true,
	})
	if err != nil {
		return nil, err
	}

	// The store returns most recent first; the API wants chronological order.
	history := make([]llm.ChatMessage, 0, len(page))
	for i := len(page) - 1; i >= 0; i-- {
		history = append(history, llm.ChatMessage{
			Role:    page[i].Role,
			Content: page[i].Content,
		})
	}
	return history, nil
}
