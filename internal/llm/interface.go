package llm

import "context"

// CompletionClient abstracts the completion API so the streamer and the CLI
// can run against the real endpoint or the mock.
type CompletionClient interface {
	// CreateChatCompletion sends a chat completion request (non-streaming).
	CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error)

	// CreateChatCompletionStream sends a streaming request. The callback is
	// called for each chunk received.
	CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest, callback StreamCallback) error

	// ListModels retrieves the list of available models.
	ListModels(ctx context.Context) ([]Model, error)
}

// Ensure Client implements CompletionClient.
var _ CompletionClient = (*Client)(nil)
