package enhance

import (
	"context"
	"sync"

	"github.com/tech1ee/finuts/internal/llm"
)

// mockClient is a configurable completion client for tests.
type mockClient struct {
	mu          sync.Mutex
	response    string
	err         error
	unavailable bool
	calls       int
}

func (m *mockClient) Complete(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return llm.CompletionResponse{}, m.err
	}
	return llm.CompletionResponse{
		Content:      m.response,
		Model:        "mock-model",
		InputTokens:  100,
		OutputTokens: 50,
	}, nil
}

func (m *mockClient) IsAvailable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.unavailable
}

func (m *mockClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
