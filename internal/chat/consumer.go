// Package chat drives the response streamer interactively: it renders chunks
// to the terminal as they arrive and pauses long responses for confirmation.
package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/gmartinez/chatcli/internal/stream"
)

// confirmEvery is the confirmation threshold in chunks: the consumer pauses
// once the unconfirmed run exceeds confirmEvery times the chunk size.
const confirmEvery = 3

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

// Options configures the consumer loop.
type Options struct {
	// ChunkSize mirrors the streamer chunk size; it sizes the confirmation
	// threshold. <= 0 means stream.DefaultChunkSize.
	ChunkSize int
	// ConfirmContinue pauses output for confirmation on long responses.
	ConfirmContinue bool
}

// Result is the outcome of one consumed stream.
type Result struct {
	// Text is the reassembled response, or the partial text accumulated up
	// to an interruption or error.
	Text string
	// Interrupted is set when the user chose to stop at a confirmation
	// pause. It is a non-error outcome; callers must not persist the text.
	Interrupted bool
	// Err carries the upstream error surfaced by the streamer, if any.
	Err string
	// Usage is the summed approximate token estimate of all chunks.
	Usage stream.Usage
	// Elapsed is the wall-clock generation time.
	Elapsed time.Duration
}

// Failed reports whether the stream ended in an upstream error.
func (r Result) Failed() bool {
	return r.Err != ""
}

// Consumer renders chunk events and handles confirmation pauses.
type Consumer struct {
	out  io.Writer
	in   *bufio.Reader
	opts Options
}

// NewConsumer creates a consumer writing progressive output to out and
// reading confirmation answers from in.
func NewConsumer(out io.Writer, in io.Reader, opts Options) *Consumer {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = stream.DefaultChunkSize
	}
	return &Consumer{
		out:  out,
		in:   bufio.NewReader(in),
		opts: opts,
	}
}

// Run drives the streamer and returns the assembled result. Progressive text
// is written to the consumer's writer as a side channel; nothing is
// persisted here.
func (c *Consumer) Run(ctx context.Context, s *stream.Streamer, req stream.Request) Result {
	start := time.Now()
	var parts []string
	result := Result{}
	unconfirmed := 0

	s.Stream(ctx, req, func(ev stream.Event) stream.Decision {
		if ev.Err != "" {
			result.Err = ev.Err
			return stream.Continue
		}
		if ev.Text != "" {
			fmt.Fprint(c.out, ev.Text)
			parts = append(parts, ev.Text)
		}
		result.Usage.Tokens += ev.Usage.Tokens
		result.Usage.TotalTokens += ev.Usage.TotalTokens

		if ev.Final {
			return stream.Continue
		}

		unconfirmed += len(strings.Fields(ev.Text))
		if c.opts.ConfirmContinue && unconfirmed > confirmEvery*c.opts.ChunkSize {
			if !c.confirmContinue() {
				result.Interrupted = true
				return stream.Stop
			}
			unconfirmed = 0
		}
		return stream.Continue
	})

	result.Text = strings.Join(parts, "")
	result.Elapsed = time.Since(start)
	return result
}

// confirmContinue blocks on a synchronous prompt. It returns false when the
// user quits.
func (c *Consumer) confirmContinue() bool {
	fmt.Fprintf(c.out, "\n%s ", promptStyle.Render("Long response. [c]ontinue / [q]uit:"))
	line, err := c.in.ReadString('\n')
	if err != nil {
		// No answer available (EOF): stop rather than flood the terminal.
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer != "q" && answer != "quit"
}

// PrintUsage writes the approximate usage summary line.
func (c *Consumer) PrintUsage(result Result) {
	fmt.Fprintf(c.out, "\n%s\n", dimStyle.Render(fmt.Sprintf(
		"~%d tokens (approximate) | %.1fs", result.Usage.TotalTokens, result.Elapsed.Seconds())))
}
