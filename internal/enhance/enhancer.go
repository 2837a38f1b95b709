// Package enhance implements the cloud tiers of the import pipeline: the
// transaction enhancer that fills merchant and type fields, and the
// document parser used when local extraction finds nothing.
//
// Both tiers degrade, never fail: any provider error, budget refusal or
// malformed response yields the unmodified inputs (or no transactions),
// and the caller proceeds without enhancement.
package enhance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tech1ee/finuts/internal/common"
	"github.com/tech1ee/finuts/internal/llm"
	"github.com/tech1ee/finuts/internal/model"
	"github.com/tech1ee/finuts/internal/service"
)

// Enhancer asks the remote model to infer merchant, counterparty,
// category hint and transaction type for locally extracted transactions.
// Inputs must already be anonymized.
type Enhancer struct {
	client llm.Client
	costs  service.CostTracker
}

// NewEnhancer creates an enhancer over the given provider and budget.
func NewEnhancer(client llm.Client, costs service.CostTracker) *Enhancer {
	return &Enhancer{client: client, costs: costs}
}

// enhancementItem is one element of the model's JSON response, matched
// back to its transaction by index.
type enhancementItem struct {
	Merchant         string `json:"merchant"`
	CounterpartyName string `json:"counterpartyName"`
	CategoryHint     string `json:"categoryHint"`
	TransactionType  string `json:"transactionType"`
	Index            int    `json:"index"`
}

// Enhance returns a new slice of the same length and order as txns with
// enhancement fields filled where the model answered. It never returns
// an error: degraded results are the inputs themselves.
func (e *Enhancer) Enhance(ctx context.Context, txns []model.PartialTransaction) []model.PartialTransaction {
	if len(txns) == 0 {
		return txns
	}

	prompt := buildEnhancementPrompt(txns)
	maxTokens := 64 * len(txns)

	if err := e.canCall(prompt, maxTokens); err != nil {
		slog.Info("Skipping enhancement", "reason", err)
		return txns
	}

	resp, err := e.client.Complete(ctx, llm.CompletionRequest{Prompt: prompt, MaxTokens: maxTokens})
	if err != nil {
		slog.Warn("Enhancement call failed, returning unenhanced transactions", "error", err)
		return txns
	}
	e.costs.Record(resp.InputTokens, resp.OutputTokens, resp.Model)

	payload := llm.ExtractJSONArray(resp.Content)
	if payload == "" {
		slog.Warn("Enhancement response contained no JSON array")
		return txns
	}

	var items []enhancementItem
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		slog.Warn("Enhancement response is not valid JSON", "error", err)
		return txns
	}

	out := make([]model.PartialTransaction, len(txns))
	copy(out, txns)
	for _, item := range items {
		if item.Index < 0 || item.Index >= len(out) {
			continue
		}
		out[item.Index] = out[item.Index].WithEnhancement(
			item.Merchant,
			item.CounterpartyName,
			item.CategoryHint,
			parseTransactionType(item.TransactionType),
		)
	}
	return out
}

func (e *Enhancer) canCall(prompt string, maxTokens int) error {
	if !e.client.IsAvailable() {
		return common.ErrProviderUnavailable
	}
	if !e.costs.CanExecute(llm.EstimateCost(len(prompt), maxTokens)) {
		return common.ErrBudgetExceeded
	}
	return nil
}

func buildEnhancementPrompt(txns []model.PartialTransaction) string {
	var b strings.Builder
	b.WriteString("For each bank transaction below, infer the merchant name, the counterparty name ")
	b.WriteString("(for person-to-person transfers), a spending category hint, and the transaction type ")
	b.WriteString("(one of DEBIT, CREDIT, TRANSFER, FEE, INTEREST, REFUND).\n\n")
	b.WriteString("Respond with a JSON array of objects: ")
	b.WriteString(`{"index": <number>, "merchant": <string or "">, "counterpartyName": <string or "">, `)
	b.WriteString(`"categoryHint": <string or "">, "transactionType": <string or "">}` + "\n\n")
	b.WriteString("Transactions:\n")

	for i, txn := range txns {
		fmt.Fprintf(&b, "%d. %s | amount %s\n", i, txn.RawDescription, formatMinor(txn.AmountMinor, txn.Currency))
	}
	return b.String()
}

func parseTransactionType(s string) model.TransactionType {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBIT":
		return model.TypeDebit
	case "CREDIT":
		return model.TypeCredit
	case "TRANSFER":
		return model.TypeTransfer
	case "FEE":
		return model.TypeFee
	case "INTEREST":
		return model.TypeInterest
	case "REFUND":
		return model.TypeRefund
	}
	return ""
}

func formatMinor(minor int64, currency string) string {
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
