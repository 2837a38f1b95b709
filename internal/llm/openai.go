package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/tech1ee/finuts/internal/common"
	"github.com/tech1ee/finuts/internal/service"
)

// openAIClient implements Client over the OpenAI chat completion API.
type openAIClient struct {
	api         *openai.Client
	model       string
	maxTokens   int
	temperature float64

	mu          sync.Mutex
	lastFailure time.Time
}

// unavailableWindow is how long the provider is considered down after a
// failed call, so the pipeline can degrade instead of hammering the API.
const unavailableWindow = 2 * time.Minute

const defaultOpenAIModel = "gpt-4o-mini"

const systemPrompt = "You are a financial document assistant. Respond with ONLY the requested JSON. " +
	"Do not include explanatory text, markdown fences, or commentary."

func newOpenAIClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key", common.ErrMissingConfig)
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.2
	}

	return &openAIClient{
		api:         openai.NewClient(cfg.APIKey),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
	}, nil
}

// Complete sends one chat completion request.
func (c *openAIClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}

	var resp openai.ChatCompletionResponse
	err := common.WithRetry(ctx, func() error {
		var callErr error
		resp, callErr = c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			MaxTokens:   maxTokens,
			Temperature: float32(temperature),
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
			},
		})
		return classifyAPIError(callErr)
	}, service.RetryOptions{MaxAttempts: 3, InitialDelay: time.Second, MaxDelay: 10 * time.Second})
	if err != nil {
		c.markFailure()
		return CompletionResponse{}, fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		c.markFailure()
		return CompletionResponse{}, fmt.Errorf("chat completion returned no choices")
	}

	return CompletionResponse{
		Content:      resp.Choices[0].Message.Content,
		Model:        resp.Model,
		FinishReason: string(resp.Choices[0].FinishReason),
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

// IsAvailable reports whether the provider recently failed.
func (c *openAIClient) IsAvailable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastFailure.IsZero() || time.Since(c.lastFailure) > unavailableWindow
}

// classifyAPIError maps provider errors onto retry semantics: 429 becomes
// a rate limit, other 4xx responses are not retried, everything else is.
func classifyAPIError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", common.ErrRateLimit, err)
		case apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500:
			return &common.RetryableError{Err: err, Retryable: false}
		}
	}
	return err
}

func (c *openAIClient) markFailure() {
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
}
