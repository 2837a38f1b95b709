// Package llm provides the completion client abstraction used by the
// cloud enhancement and categorization tiers, plus the cost controls
// that bound remote spending.
package llm

import (
	"context"
)

// Client defines the interface for completion providers.
type Client interface {
	// Complete sends a prompt and returns the raw completion with token
	// accounting.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	// IsAvailable reports whether the provider can currently serve calls.
	IsAvailable() bool
}

// CompletionRequest is one prompt to a completion provider.
type CompletionRequest struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// CompletionResponse is the provider's answer plus usage accounting.
type CompletionResponse struct {
	Content      string
	Model        string
	FinishReason string
	InputTokens  int
	OutputTokens int
}

// Config holds provider configuration.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}
