package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gmartinez/chatcli/internal/config"
	"github.com/gmartinez/chatcli/internal/llm"
	"github.com/gmartinez/chatcli/internal/store"
)

const replBanner = `chatcli interactive session

Questions are answered with streaming output and saved automatically.
Type /help for the available commands.`

const replHelp = `Commands:
  /exit, /quit       leave the session
  /clear             start a new conversation (history is kept)
  /info              show the current model settings
  /temp <0.0-1.0>    change the generation temperature
  /tokens <n>        change the maximum response tokens
  /model <id>        change the model
  /export md|pdf     export the conversation
  /help              show this help

Anything else is sent to the assistant as a question.`

// replSession carries the state of one interactive session. The generation
// settings start from the configuration and can be changed with commands.
type replSession struct {
	cfg    *config.Config
	store  store.Store
	client llm.CompletionClient
	out    io.Writer
	in     io.Reader

	model       string
	temperature float64
	maxTokens   int
}

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive chat session",
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

			client, err := newCompletionClient(cfg)
			if err != nil {
				return err
			}

			session := &replSession{
				cfg:         cfg,
				store:       st,
				client:      client,
				out:         cmd.OutOrStdout(),
				in:          cmd.InOrStdin(),
				model:       cfg.Model,
				temperature: cfg.Temperature,
				maxTokens:   cfg.MaxTokens,
			}
			return session.run(ctx)
		},
	}
}

func (s *replSession) run(ctx context.Context) error {
	// A fresh epoch per session keeps earlier context out of the model window.
	if _, err := s.store.StartConversation(ctx); err != nil {
		fmt.Fprintln(s.out, warnStyle.Render(fmt.Sprintf("warning: could not start a new conversation: %v", err)))
	}

	fmt.Fprintln(s.out, bannerStyle.Render(replBanner))

	scanner := bufio.NewScanner(s.in)
	for {
		fmt.Fprintf(s.out, "\n%s ", userStyle.Render("You:"))
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			quit, err := s.handleCommand(ctx, input)
			if err != nil {
				fmt.Fprintln(s.out, warnStyle.Render(err.Error()))
			}
			if quit {
				fmt.Fprintln(s.out, "Bye.")
				return nil
			}
			continue
		}

		err := askQuestion(ctx, askParams{
			cfg:         s.cfg,
			store:       s.store,
			client:      s.client,
			question:    input,
			model:       s.model,
			temperature: s.temperature,
			maxTokens:   s.maxTokens,
			out:         s.out,
			in:          s.in,
		})
		if err != nil {
			fmt.Fprintln(s.out, warnStyle.Render(fmt.Sprintf("error: %v", err)))
		}
	}
}

// handleCommand runs one slash command. It returns true when the session
// should end.
func (s *replSession) handleCommand(ctx context.Context, input string) (bool, error) {
	fields := strings.Fields(input)
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "/exit", "/quit":
		return true, nil

	case "/help":
		fmt.Fprintln(s.out, replHelp)

	case "/clear":
		conv, err := s.store.StartConversation(ctx)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(s.out, "Started conversation %s. Earlier messages stay in the history.\n", conv.ID)

	case "/info":
		fmt.Fprintf(s.out, "Model:        %s\n", s.model)
		fmt.Fprintf(s.out, "Temperature:  %.2f\n", s.temperature)
		fmt.Fprintf(s.out, "Max tokens:   %d\n", s.maxTokens)
		fmt.Fprintf(s.out, "Chunk size:   %d words\n", s.cfg.ChunkSize)
		fmt.Fprintf(s.out, "API base:     %s\n", s.cfg.APIBaseURL)

	case "/temp":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: /temp <0.0-1.0>")
		}
		v, err := strconv.ParseFloat(args[0], 64)
		if err != nil || v < 0 || v > 1 {
			return false, fmt.Errorf("temperature must be a number between 0.0 and 1.0")
		}
		s.temperature = v
		fmt.Fprintf(s.out, "Temperature set to %.2f\n", v)

	case "/tokens":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: /tokens <n>")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return false, fmt.Errorf("max tokens must be a positive integer")
		}
		s.maxTokens = n
		fmt.Fprintf(s.out, "Max tokens set to %d\n", n)

	case "/model":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: /model <id>")
		}
		s.model = args[0]
		fmt.Fprintf(s.out, "Model set to %s\n", s.model)

	case "/export":
		format := "md"
		if len(args) > 0 {
			format = strings.ToLower(args[0])
		}
		if format != "md" && format != "pdf" {
			return false, fmt.Errorf("usage: /export md|pdf")
		}
		return false, runExport(ctx, s.store, s.out, format, "", 0, true)

	default:
		return false, fmt.Errorf("unknown command %s, try /help", name)
	}
	return false, nil
}
