package llm

import (
	"log"
	"os"
	"time"
)

const (
	// EnvMode is the environment variable selecting the client mode.
	EnvMode = "CHATCLI_MODE"
	// ModeMock selects the offline mock client.
	ModeMock = "MOCK"
)

// NewCompletionClient creates a completion client based on CHATCLI_MODE.
// CHATCLI_MODE=MOCK returns the offline mock; anything else returns a real
// client for the given endpoint.
func NewCompletionClient(baseURL, apiKey string, timeout time.Duration) CompletionClient {
	if os.Getenv(EnvMode) == ModeMock {
		log.Println("CHATCLI_MODE=MOCK detected, using mock completion client")
		return NewMockClient()
	}
	return NewClient(baseURL, apiKey, timeout)
}
