// Package llm defines the chat interface used to score news headlines.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/newthinker/quorum/internal/core"
)

// Provider defines the interface for LLM providers
type Provider interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest holds the request parameters
type ChatRequest struct {
	SystemPrompt string
	Messages     []Message
	MaxTokens    int
	Temperature  float64
	JSONMode     bool
}

// Message represents a chat message
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// ChatResponse holds the response from the LLM
type ChatResponse struct {
	Content      string
	Usage        Usage
	FinishReason string
}

// Usage tracks token consumption
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// WrapError tags a provider failure with ErrLLMTimeout or ErrLLMFailed.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return core.WrapError(core.ErrLLMTimeout, fmt.Errorf("%s: %w", provider, err))
	}
	return core.WrapError(core.ErrLLMFailed, fmt.Errorf("%s API error: %w", provider, err))
}
