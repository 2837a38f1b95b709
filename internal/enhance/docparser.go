package enhance

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tech1ee/finuts/internal/anonymize"
	"github.com/tech1ee/finuts/internal/common"
	"github.com/tech1ee/finuts/internal/extract"
	"github.com/tech1ee/finuts/internal/llm"
	"github.com/tech1ee/finuts/internal/model"
	"github.com/tech1ee/finuts/internal/service"
)

// docParserConfidence is the fixed confidence assigned to transactions
// the remote model extracted from free-form text.
const docParserConfidence = 0.85

// DocumentParser is the remote fallback used only when local regex
// extraction yields nothing: it sends the whole (anonymized) cleaned text
// and asks for a transaction list.
type DocumentParser struct {
	client llm.Client
	costs  service.CostTracker
}

// NewDocumentParser creates the remote fallback parser.
func NewDocumentParser(client llm.Client, costs service.CostTracker) *DocumentParser {
	return &DocumentParser{client: client, costs: costs}
}

type documentItem struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Merchant    string `json:"merchant"`
	Currency    string `json:"currency"`
	Amount      int64  `json:"amount"`
}

// Parse extracts transactions from cleaned document text via the remote
// model. PII is masked before the text leaves the device and restored in
// the returned descriptions. Any failure returns an empty slice.
func (p *DocumentParser) Parse(ctx context.Context, cleanedText string) []model.ImportedTransaction {
	if strings.TrimSpace(cleanedText) == "" {
		return nil
	}

	anon := anonymize.New().Anonymize(cleanedText)
	prompt := buildDocumentPrompt(anon.Text)
	maxTokens := 2048

	if !p.client.IsAvailable() {
		slog.Info("Skipping document parsing", "reason", common.ErrProviderUnavailable)
		return nil
	}
	if !p.costs.CanExecute(llm.EstimateCost(len(prompt), maxTokens)) {
		slog.Info("Skipping document parsing", "reason", common.ErrBudgetExceeded)
		return nil
	}

	resp, err := p.client.Complete(ctx, llm.CompletionRequest{Prompt: prompt, MaxTokens: maxTokens})
	if err != nil {
		slog.Warn("Document parsing call failed", "error", err)
		return nil
	}
	p.costs.Record(resp.InputTokens, resp.OutputTokens, resp.Model)

	payload := llm.ExtractJSONArray(resp.Content)
	if payload == "" {
		return nil
	}

	var items []documentItem
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		slog.Warn("Document parsing response is not valid JSON", "error", err)
		return nil
	}

	out := make([]model.ImportedTransaction, 0, len(items))
	for _, item := range items {
		date, err := parseItemDate(item.Date)
		if err != nil {
			continue
		}
		out = append(out, model.ImportedTransaction{
			ID:          uuid.NewString(),
			Date:        date,
			AmountMinor: item.Amount,
			Currency:    strings.ToUpper(strings.TrimSpace(item.Currency)),
			Description: anonymize.Deanonymize(item.Description, anon.Mapping),
			Merchant:    anonymize.Deanonymize(item.Merchant, anon.Mapping),
			Confidence:  docParserConfidence,
			Source:      model.SourceDocumentAI,
		})
	}
	return out
}

func buildDocumentPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Extract every financial transaction from the document text below.\n")
	b.WriteString("Respond with a JSON array of objects:\n")
	b.WriteString(`{"date": "YYYY-MM-DD", "amount": <signed integer in minor units, negative for expenses>, `)
	b.WriteString(`"description": <string>, "merchant": <string or "">, "currency": <ISO code or "">}` + "\n\n")
	b.WriteString("Document:\n")
	b.WriteString(text)
	return b.String()
}

func parseItemDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", strings.TrimSpace(s)); err == nil {
		return t, nil
	}
	return extract.ParseDate(s)
}
