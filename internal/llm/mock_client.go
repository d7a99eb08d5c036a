package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MockClient is an offline CompletionClient used by tests and by
// CHATCLI_MODE=MOCK. It echoes a canned answer, streamed word by word.
type MockClient struct {
	// Response overrides the generated answer when non-empty.
	Response string
}

// NewMockClient creates a new mock completion client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

var _ CompletionClient = (*MockClient)(nil)

// CreateChatCompletion returns a canned response.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	content := m.answer(req)
	return &ChatCompletionResponse{
		ID:      fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []Choice{
			{
				Index:        0,
				Message:      &ChatMessage{Role: "assistant", Content: content},
				FinishReason: "stop",
			},
		},
		Usage: &Usage{
			CompletionTokens: len(content) / 4,
			TotalTokens:      len(content) / 4,
		},
	}, nil
}

// CreateChatCompletionStream streams the canned response in word-sized
// deltas.
func (m *MockClient) CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest, callback StreamCallback) error {
	content := m.answer(req)
	id := fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano())
	created := time.Now().Unix()

	words := strings.SplitAfter(content, " ")
	for i, word := range words {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		finishReason := ""
		if i == len(words)-1 {
			finishReason = "stop"
		}
		chunk := &StreamChunk{
			ID:      id,
			Object:  "chat.completion.chunk",
			Created: created,
			Model:   req.Model,
			Choices: []Choice{
				{
					Index:        0,
					Delta:        &ChatMessage{Role: "assistant", Content: word},
					FinishReason: finishReason,
				},
			},
		}
		if err := callback(chunk); err != nil {
			return err
		}
	}
	return nil
}

// ListModels returns a fixed model list.
func (m *MockClient) ListModels(ctx context.Context) ([]Model, error) {
	return []Model{
		{ID: "mock-model", Object: "model", Created: time.Now().Unix(), OwnedBy: "chatcli"},
	}, nil
}

// answer picks the streamed content: the override if set, otherwise a short
// acknowledgement of the last user message.
func (m *MockClient) answer(req *ChatCompletionRequest) string {
	if m.Response != "" {
		return m.Response
	}
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return fmt.Sprintf("Mock answer to: %s", req.Messages[i].Content)
		}
	}
	return "Mock answer."
}
