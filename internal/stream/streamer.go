// Package stream turns the raw delta stream of a completion API into
// word-count-bounded chunk events, applying context-window trimming before
// each request.
package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gmartinez/chatcli/internal/domain"
	"github.com/gmartinez/chatcli/internal/llm"
)

const (
	// DefaultChunkSize is the chunk granularity in words.
	DefaultChunkSize = 30

	// recentWindow is how many non-system messages survive trimming.
	recentWindow = 20
	// maxWindow is the total request size that triggers trimming: one system
	// prompt plus recentWindow turns.
	maxWindow = recentWindow + 1
)

// DefaultSystemPrompt is prepended when the outgoing request carries no
// system message.
const DefaultSystemPrompt = "You are a senior software engineering mentor. " +
	"Guide the developer with professional advice on architecture, SOLID principles, " +
	"clean code, CI/CD and testing. Answer clearly, professionally and honestly. " +
	"If you do not know something, say so explicitly instead of inventing an answer. " +
	"Include real code examples and references to official documentation where they help."

// Usage is an approximate token estimate for a chunk. It is derived from a
// fixed bytes-per-token heuristic, not a tokenizer, and is suitable for
// display only.
type Usage struct {
	Tokens      int `json:"tokens"`
	TotalTokens int `json:"total_tokens"`
}

// Event is one chunk of streamed response text. It is consumed once and
// never persisted; only the reassembled full text is stored.
type Event struct {
	// Text is the chunk content. A final event may carry empty text, which
	// signals completion with no trailing content.
	Text string
	// Final marks the last event of the stream. No event follows it.
	Final bool
	// Usage is the approximate token estimate for Text.
	Usage Usage
	// Err is non-empty when the upstream call failed. It only appears on a
	// final event; the streamer never returns transport errors directly.
	Err string
}

// Decision tells the streamer whether to keep emitting events.
type Decision int

const (
	// Continue requests the next chunk.
	Continue Decision = iota
	// Stop ends emission immediately. The underlying request is cancelled;
	// no further events are surfaced.
	Stop
)

// Handler receives each Event, including the final one.
type Handler func(Event) Decision

// Request describes one streamed completion.
type Request struct {
	// Messages is the ordered prior conversation, most recent last.
	Messages []llm.ChatMessage
	// Model is the completion model identifier.
	Model string
	// Temperature is clamped to [0, 1] before sending.
	Temperature float64
	// MaxTokens caps the generated output.
	MaxTokens int
	// ChunkSize is the emission granularity in words; <= 0 means
	// DefaultChunkSize.
	ChunkSize int
}

// Streamer drives streamed completions against a CompletionClient.
type Streamer struct {
	client       llm.CompletionClient
	systemPrompt string
}

// New creates a Streamer. An empty systemPrompt falls back to
// DefaultSystemPrompt.
func New(client llm.CompletionClient, systemPrompt string) *Streamer {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &Streamer{client: client, systemPrompt: systemPrompt}
}

// errStopped aborts the underlying stream after a Stop decision.
var errStopped = errors.New("stream stopped by handler")

// Stream sends the request and emits word-bounded chunk events to emit.
// Failures of the underlying API call are converted into a single final
// event with Err set; Stream never propagates them as errors. After a Stop
// decision no further events are emitted, including the final one.
func (s *Streamer) Stream(ctx context.Context, req Request, emit Handler) {
	chunkSize := req.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	temperature := clampTemperature(req.Temperature)
	wireReq := &llm.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    s.Window(req.Messages),
		Temperature: &temperature,
		TopP:        ptr(1.0),
	}
	if req.MaxTokens > 0 {
		wireReq.MaxTokens = &req.MaxTokens
	}

	var buffer []string
	wordCount := 0
	stopped := false

	err := s.client.CreateChatCompletionStream(ctx, wireReq, func(chunk *llm.StreamChunk) error {
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta == nil {
			return nil
		}
		content := chunk.Choices[0].Delta.Content
		buffer = append(buffer, content)
		wordCount += len(strings.Fields(content))

		if wordCount < chunkSize {
			return nil
		}

		text := strings.Join(buffer, "")
		buffer = buffer[:0]
		wordCount = 0

		if emit(Event{Text: text, Usage: estimateUsage(text)}) == Stop {
			stopped = true
			cancel()
			return errStopped
		}
		return nil
	})

	if stopped {
		return
	}
	if err != nil && !errors.Is(err, errStopped) {
		emit(Event{
			Final: true,
			Err:   fmt.Sprintf("completion stream failed: %v", err),
		})
		return
	}

	text := strings.Join(buffer, "")
	emit(Event{Text: text, Final: true, Usage: estimateUsage(text)})
}

// Window applies the context trimming policy: ensure a system prompt is
// present, and when the total exceeds maxWindow keep all system messages
// plus only the recentWindow most recent others.
func (s *Streamer) Window(messages []llm.ChatMessage) []llm.ChatMessage {
	hasSystem := false
	for _, msg := range messages {
		if msg.Role == domain.RoleSystem {
			hasSystem = true
			break
		}
	}
	if !hasSystem {
		messages = append([]llm.ChatMessage{{Role: domain.RoleSystem, Content: s.systemPrompt}}, messages...)
	}

	if len(messages) <= maxWindow {
		return messages
	}

	var system, rest []llm.ChatMessage
	for _, msg := range messages {
		if msg.Role == domain.RoleSystem {
			system = append(system, msg)
		} else {
			rest = append(rest, msg)
		}
	}
	if len(rest) > recentWindow {
		rest = rest[len(rest)-recentWindow:]
	}
	return append(system, rest...)
}

// estimateUsage approximates the token count of text as len/4. This is a
// display-only heuristic, not an authoritative count.
func estimateUsage(text string) Usage {
	tokens := len(text) / 4
	return Usage{Tokens: tokens, TotalTokens: tokens}
}

func clampTemperature(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

func ptr[T any](v T) *T {
	return &v
}
