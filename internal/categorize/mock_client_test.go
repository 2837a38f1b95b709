package categorize

import (
	"context"
	"sync"

	"github.com/tech1ee/finuts/internal/llm"
)

// mockClient is a scripted completion client recording the prompts it saw.
type mockClient struct {
	mu          sync.Mutex
	response    string
	err         error
	unavailable bool
	prompts     []string
}

func (m *mockClient) Complete(_ context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, req.Prompt)
	m.mu.Unlock()

	if m.err != nil {
		return llm.CompletionResponse{}, m.err
	}
	return llm.CompletionResponse{
		Content:      m.response,
		Model:        "mock",
		InputTokens:  len(req.Prompt) / 4,
		OutputTokens: len(m.response) / 4,
	}, nil
}

func (m *mockClient) IsAvailable() bool {
	return !m.unavailable
}

func (m *mockClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}
