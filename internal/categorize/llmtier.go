package categorize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tech1ee/finuts/internal/llm"
	"github.com/tech1ee/finuts/internal/model"
	"github.com/tech1ee/finuts/internal/service"
)

// LLMTier asks the remote model to categorize transactions the local
// tiers could not. Tier 2 works in batches; tier 3 retries a single
// transaction with more context. Both degrade to no result on any
// provider, budget, or parse failure.
type LLMTier struct {
	client llm.Client
	costs  service.CostTracker
	logger *slog.Logger
}

// NewLLMTier creates the remote categorization tier.
func NewLLMTier(client llm.Client, costs service.CostTracker) *LLMTier {
	return &LLMTier{
		client: client,
		costs:  costs,
		logger: slog.Default().With("component", "categorize.llm"),
	}
}

type llmCategoryItem struct {
	TransactionID string  `json:"transactionId"`
	CategoryID    string  `json:"categoryId"`
	Confidence    float64 `json:"confidence"`
}

// ClassifyBatch categorizes a batch in one call. Results below the
// confirmation threshold or naming an unknown category are dropped, so
// callers only ever see usable assignments.
func (t *LLMTier) ClassifyBatch(ctx context.Context, txns []model.ImportedTransaction, categories []model.Category) []model.CategorizationResult {
	if len(txns) == 0 || len(categories) == 0 {
		return nil
	}

	prompt := t.buildBatchPrompt(txns, categories)
	items := t.complete(ctx, prompt)
	return t.filter(items, categories, model.SourceLLMTier2)
}

// ClassifyOne categorizes a single transaction with full detail. Used as
// the last resort when the batch pass returned nothing usable for it.
func (t *LLMTier) ClassifyOne(ctx context.Context, txn model.ImportedTransaction, categories []model.Category) (model.CategorizationResult, bool) {
	if len(categories) == 0 {
		return model.CategorizationResult{}, false
	}

	prompt := t.buildSinglePrompt(txn, categories)
	items := t.complete(ctx, prompt)
	results := t.filter(items, categories, model.SourceLLMTier3)
	for _, r := range results {
		if r.TransactionID == txn.ID {
			return r, true
		}
	}
	return model.CategorizationResult{}, false
}

func (t *LLMTier) complete(ctx context.Context, prompt string) []llmCategoryItem {
	if !t.client.IsAvailable() {
		t.logger.Debug("provider unavailable, skipping remote categorization")
		return nil
	}
	estimate := llm.EstimateCost(len(prompt), maxCategoryTokens)
	if !t.costs.CanExecute(estimate) {
		t.logger.Warn("budget exhausted, skipping remote categorization", "estimated_usd", estimate)
		return nil
	}

	resp, err := t.client.Complete(ctx, llm.CompletionRequest{
		Prompt:      prompt,
		MaxTokens:   maxCategoryTokens,
		Temperature: 0.1,
	})
	if err != nil {
		t.logger.Warn("remote categorization failed", "error", err)
		return nil
	}
	t.costs.Record(resp.InputTokens, resp.OutputTokens, resp.Model)

	raw := llm.ExtractJSONArray(resp.Content)
	if raw == "" {
		t.logger.Warn("no JSON array in categorization response")
		return nil
	}
	var items []llmCategoryItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		t.logger.Warn("malformed categorization response", "error", err)
		return nil
	}
	return items
}

func (t *LLMTier) filter(items []llmCategoryItem, categories []model.Category, source model.CategorizationSource) []model.CategorizationResult {
	known := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		known[c.ID] = struct{}{}
	}

	var results []model.CategorizationResult
	for _, item := range items {
		if item.TransactionID == "" {
			continue
		}
		if _, ok := known[item.CategoryID]; !ok {
			continue
		}
		confidence := model.ClampConfidence(item.Confidence)
		if confidence < model.ConfirmationThreshold {
			continue
		}
		results = append(results, model.CategorizationResult{
			TransactionID: item.TransactionID,
			CategoryID:    item.CategoryID,
			Source:        source,
			Confidence:    confidence,
		})
	}
	return results
}

const maxCategoryTokens = 1024

func (t *LLMTier) buildBatchPrompt(txns []model.ImportedTransaction, categories []model.Category) string {
	var b strings.Builder
	b.WriteString("Assign a category to each bank transaction below.\n")
	b.WriteString("Allowed category ids:\n")
	for _, c := range categories {
		fmt.Fprintf(&b, "- %s: %s\n", c.ID, c.Name)
	}
	b.WriteString("\nTransactions:\n")
	for _, txn := range txns {
		fmt.Fprintf(&b, "- id=%s date=%s amount=%s description=%q\n",
			txn.ID, txn.Date.Format("2006-01-02"), formatMinorAmount(txn.AmountMinor, txn.Currency), txn.Description)
	}
	b.WriteString("\nRespond with a JSON array only. Each element: ")
	b.WriteString(`{"transactionId": "...", "categoryId": "...", "confidence": 0.0-1.0}. `)
	b.WriteString("Omit transactions you cannot categorize. Use only the allowed category ids.")
	return b.String()
}

func (t *LLMTier) buildSinglePrompt(txn model.ImportedTransaction, categories []model.Category) string {
	var b strings.Builder
	b.WriteString("Categorize this bank transaction. Consider the merchant, the direction of the amount, and the description language.\n\n")
	fmt.Fprintf(&b, "id: %s\ndate: %s\namount: %s\ndescription: %q\n",
		txn.ID, txn.Date.Format("2006-01-02"), formatMinorAmount(txn.AmountMinor, txn.Currency), txn.Description)
	if txn.Merchant != "" {
		fmt.Fprintf(&b, "merchant: %q\n", txn.Merchant)
	}
	b.WriteString("\nAllowed category ids:\n")
	for _, c := range categories {
		fmt.Fprintf(&b, "- %s: %s", c.ID, c.Name)
		if c.Description != "" {
			fmt.Fprintf(&b, " (%s)", c.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nRespond with a JSON array holding exactly one element: ")
	b.WriteString(`{"transactionId": "...", "categoryId": "...", "confidence": 0.0-1.0}.`)
	return b.String()
}

func formatMinorAmount(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	s := fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
	if currency != "" {
		s += " " + currency
	}
	return s
}
