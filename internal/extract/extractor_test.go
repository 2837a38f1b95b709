package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tech1ee/finuts/internal/model"
)

func TestExtract_StatementLine(t *testing.T) {
	txns := New().Extract([]string{"15.01.2026 -5000 Payment"})

	require.Len(t, txns, 1)
	assert.Equal(t, "15.01.2026", txns[0].RawDate)
	assert.Equal(t, int64(-500000), txns[0].AmountMinor)
	assert.Equal(t, "", txns[0].Currency)
	assert.Equal(t, "Payment", txns[0].RawDescription)
	assert.True(t, txns[0].IsDebit())
}

func TestExtract_ReceiptContextDate(t *testing.T) {
	// One dated header, many unsigned item lines: every item inherits the
	// header date and is treated as an expense.
	lines := []string{
		"12.03.2026 14:32",
		"Хлеб 250 ₸",
		"Молоко 690 ₸",
		"Итого 940 ₸",
	}

	txns := New().Extract(lines)

	require.Len(t, txns, 3)
	for _, txn := range txns {
		assert.Equal(t, "12.03.2026", txn.RawDate)
		assert.Equal(t, "KZT", txn.Currency)
		assert.True(t, txn.IsDebit(), "receipt amounts default to expenses")
	}
	assert.Equal(t, int64(-25000), txns[0].AmountMinor)
	assert.Equal(t, "Хлеб", txns[0].RawDescription)
	assert.Equal(t, int64(-69000), txns[1].AmountMinor)
}

func TestExtract_StatementModeKeepsUnsignedSign(t *testing.T) {
	// A labeled period line must not flip the extractor into receipt mode;
	// unsigned column amounts keep their face value.
	lines := []string{
		"Период: 01.01.2026 - 31.01.2026 по счету клиента банка",
		"05.01.2026 SALARY JANUARY 450 000,00",
	}

	txns := NewWithHints(model.DocumentHints{Type: model.DocBankStatement}).Extract(lines)

	require.Len(t, txns, 1)
	assert.Equal(t, int64(45000000), txns[0].AmountMinor)
	assert.True(t, txns[0].IsCredit())
}

func TestExtract_ReceiptHintNegatesUnsigned(t *testing.T) {
	txns := NewWithHints(model.DocumentHints{Type: model.DocReceipt}).
		Extract([]string{"01.02.2026 Кофе 1200 ₸"})

	require.Len(t, txns, 1)
	assert.Equal(t, int64(-120000), txns[0].AmountMinor)
}

func TestExtract_ExplicitSignWinsInReceiptMode(t *testing.T) {
	lines := []string{
		"12.03.2026 14:32",
		"Возврат +500 ₸",
	}

	txns := New().Extract(lines)

	require.Len(t, txns, 1)
	assert.Equal(t, int64(50000), txns[0].AmountMinor, "explicit + keeps the credit sign")
}

func TestExtract_SkipsAmountOnlyLinesWithoutContext(t *testing.T) {
	txns := New().Extract([]string{"Итого 940 ₸"})
	assert.Empty(t, txns)
}

func TestExtract_EmptyInput(t *testing.T) {
	assert.Empty(t, New().Extract(nil))
	assert.Empty(t, New().Extract([]string{"", "   "}))
}

func TestExtract_MultipleStatementRows(t *testing.T) {
	lines := []string{
		"01.02.2026 MAGNUM ALMATY - 3 700,00 ₸",
		"02.02.2026 KASPI PEREVOD + 15 000,00 ₸",
		"03.02.2026 -$42.00 APP STORE",
	}

	txns := New().Extract(lines)

	require.Len(t, txns, 3)
	assert.Equal(t, int64(-370000), txns[0].AmountMinor)
	assert.Equal(t, "KZT", txns[0].Currency)
	assert.Equal(t, "MAGNUM ALMATY", txns[0].RawDescription)

	assert.Equal(t, int64(1500000), txns[1].AmountMinor)
	assert.True(t, txns[1].IsCredit())

	assert.Equal(t, int64(-4200), txns[2].AmountMinor)
	assert.Equal(t, "USD", txns[2].Currency)
	assert.Equal(t, "APP STORE", txns[2].RawDescription)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"2026-01-15", time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"15.01.2026", time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"15.01.26", time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"15 January 2026", time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"15 января 2026", time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"Jan 15, 2026", time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"01/15/2026", time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, err := ParseDate(tt.raw)
		require.NoError(t, err, "raw %q", tt.raw)
		assert.Equal(t, tt.want, got, "raw %q", tt.raw)
	}
}

func TestParseDate_Invalid(t *testing.T) {
	for _, raw := range []string{"", "not a date", "45.45.2026"} {
		_, err := ParseDate(raw)
		assert.Error(t, err, "raw %q", raw)
	}
}

func TestFindDate_OrderMatters(t *testing.T) {
	// The fully qualified continental form must win over the short slash
	// form when both could match.
	assert.Equal(t, "15.01.2026", FindDate("15.01.2026 01/02 payment"))
}
