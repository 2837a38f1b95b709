package enhance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tech1ee/finuts/internal/llm"
	"github.com/tech1ee/finuts/internal/model"
)

func TestDocumentParser_MapsItems(t *testing.T) {
	client := &mockClient{response: `[
		{"date": "2026-01-15", "amount": -500000, "description": "Payment", "merchant": "ACME", "currency": "kzt"},
		{"date": "2026-01-16", "amount": 120000, "description": "Refund", "currency": ""}
	]`}
	parser := NewDocumentParser(client, llm.NewBudgetTracker(1.0))

	txns := parser.Parse(context.Background(), "15.01.2026 something unparseable locally")

	require.Len(t, txns, 2)
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), txns[0].Date)
	assert.Equal(t, int64(-500000), txns[0].AmountMinor)
	assert.Equal(t, "KZT", txns[0].Currency)
	assert.Equal(t, "ACME", txns[0].Merchant)
	assert.Equal(t, model.SourceDocumentAI, txns[0].Source)
	assert.InDelta(t, 0.85, txns[0].Confidence, 1e-9)
	assert.NotEmpty(t, txns[0].ID)
}

func TestDocumentParser_RestoresPII(t *testing.T) {
	// The model sees placeholders and echoes them back; the parser must
	// substitute the originals into the results.
	client := &mockClient{response: `[
		{"date": "2026-01-16", "amount": -5000, "description": "перевод [PERSON_NAME_1]"}
	]`}
	parser := NewDocumentParser(client, llm.NewBudgetTracker(1.0))

	txns := parser.Parse(context.Background(), "16.01.2026 перевод Иванову А. 50,00")

	require.Len(t, txns, 1)
	assert.Equal(t, "перевод Иванову А.", txns[0].Description)
}

func TestDocumentParser_SkipsUnparseableDates(t *testing.T) {
	client := &mockClient{response: `[
		{"date": "someday", "amount": -100, "description": "bad"},
		{"date": "2026-02-01", "amount": -200, "description": "good"}
	]`}
	parser := NewDocumentParser(client, llm.NewBudgetTracker(1.0))

	txns := parser.Parse(context.Background(), "statement text")

	require.Len(t, txns, 1)
	assert.Equal(t, "good", txns[0].Description)
}

func TestDocumentParser_Degrades(t *testing.T) {
	tests := []struct {
		name   string
		client *mockClient
		costs  *llm.BudgetTracker
	}{
		{"provider error", &mockClient{err: errors.New("boom")}, llm.NewBudgetTracker(1.0)},
		{"unavailable", &mockClient{unavailable: true}, llm.NewBudgetTracker(1.0)},
		{"over budget", &mockClient{response: "[]"}, llm.NewBudgetTracker(0)},
		{"malformed json", &mockClient{response: "[{nope"}, llm.NewBudgetTracker(1.0)},
		{"no array", &mockClient{response: "cannot help"}, llm.NewBudgetTracker(1.0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewDocumentParser(tt.client, tt.costs)
			assert.Empty(t, parser.Parse(context.Background(), "some text"))
		})
	}
}

func TestDocumentParser_EmptyText(t *testing.T) {
	client := &mockClient{response: "[]"}
	parser := NewDocumentParser(client, llm.NewBudgetTracker(1.0))

	assert.Empty(t, parser.Parse(context.Background(), "   "))
	assert.Zero(t, client.callCount())
}
