package llm

import (
	"log/slog"
	"sync"
)

// Per-token prices in USD used for budget estimation. Close enough for
// budgeting; actual billing differences are absorbed by the margin the
// caller leaves in its budget.
const (
	inputTokenPriceUSD  = 0.15 / 1_000_000
	outputTokenPriceUSD = 0.60 / 1_000_000
)

// BudgetTracker enforces a per-session USD budget over completion calls.
// One mutex serializes CanExecute and Record so a concurrent check can
// never slip past the limit between another goroutine's check and record.
type BudgetTracker struct {
	mu        sync.Mutex
	budgetUSD float64
	spentUSD  float64
}

// NewBudgetTracker creates a tracker with the given budget. A zero or
// negative budget allows nothing.
func NewBudgetTracker(budgetUSD float64) *BudgetTracker {
	return &BudgetTracker{budgetUSD: budgetUSD}
}

// CanExecute reports whether an operation with the given estimated cost
// fits in the remaining budget.
func (t *BudgetTracker) CanExecute(estimatedCostUSD float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.spentUSD+estimatedCostUSD <= t.budgetUSD
}

// Record charges actual token usage against the budget.
func (t *BudgetTracker) Record(inputTokens, outputTokens int, model string) {
	cost := float64(inputTokens)*inputTokenPriceUSD + float64(outputTokens)*outputTokenPriceUSD

	t.mu.Lock()
	t.spentUSD += cost
	spent := t.spentUSD
	t.mu.Unlock()

	slog.Debug("Recorded model usage",
		"model", model,
		"input_tokens", inputTokens,
		"output_tokens", outputTokens,
		"cost_usd", cost,
		"spent_usd", spent)
}

// SpentUSD returns the total recorded spend.
func (t *BudgetTracker) SpentUSD() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.spentUSD
}

// EstimateCost approximates the USD cost of a prompt of promptLen bytes
// with up to maxTokens of output. Used for CanExecute checks before a
// call; Record settles the actual usage afterward.
func EstimateCost(promptLen, maxTokens int) float64 {
	estInputTokens := promptLen / 4 // rough bytes-per-token heuristic
	return float64(estInputTokens)*inputTokenPriceUSD + float64(maxTokens)*outputTokenPriceUSD
}
