package ofx

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tech1ee/finuts/internal/common"
	"github.com/tech1ee/finuts/internal/model"
)

func TestCSVParser_ParsesBankExport(t *testing.T) {
	input := strings.Join([]string{
		"Дата операции;Сумма операции;Валюта;Назначение платежа",
		"15.01.2026;-3 700,00;KZT;МАГНУМ СУПЕР АЛМАТЫ",
		"16.01.2026;15 000,00;KZT;Зарплата",
	}, "\n")

	txns, err := NewCSVParser().ParseFile(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, txns, 2)

	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), txns[0].Date)
	assert.Equal(t, int64(-370000), txns[0].AmountMinor)
	assert.Equal(t, "KZT", txns[0].Currency)
	assert.Equal(t, "МАГНУМ СУПЕР АЛМАТЫ", txns[0].Description)
	assert.Equal(t, model.SourceRuleBased, txns[0].Source)
	assert.InDelta(t, 1.0, txns[0].Confidence, 1e-9)
	assert.Equal(t, int64(1500000), txns[1].AmountMinor)
}

func TestCSVParser_CommaDelimitedEnglishHeaders(t *testing.T) {
	input := strings.Join([]string{
		"Date,Amount,Description",
		"2026-01-15,-1234.56,COFFEE SHOP",
	}, "\n")

	txns, err := NewCSVParser().ParseFile(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, int64(-123456), txns[0].AmountMinor)
}

func TestCSVParser_SkipsBadRows(t *testing.T) {
	input := strings.Join([]string{
		"Date,Amount,Description",
		"not-a-date,-100,BAD",
		"2026-01-15,not-a-number,BAD",
		"2026-01-16,-200,GOOD",
	}, "\n")

	txns, err := NewCSVParser().ParseFile(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "GOOD", txns[0].Description)
}

func TestCSVParser_UnrecognizableHeaderFails(t *testing.T) {
	input := "foo,bar\n1,2\n"
	_, err := NewCSVParser().ParseFile(context.Background(), strings.NewReader(input))
	assert.ErrorIs(t, err, common.ErrNoTransactions)
}

func TestParseCSVAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
	}{
		{"-3 700,00", -370000},
		{"15 000,00", 1500000},
		{"-1234.56", -123456},
		{"1,234.56", 123456},
		{"−500", -50000}, // U+2212 minus
	}
	for _, tt := range tests {
		got, err := parseCSVAmount(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}

	_, err := parseCSVAmount("")
	assert.Error(t, err)
}

func TestOFXPreprocess(t *testing.T) {
	p := NewParser()

	in := "\n\n<SEVERITY>Info</SEVERITY>\n<STMTTRN\n"
	out := p.preprocess(in)
	assert.Contains(t, out, "<SEVERITY>INFO</SEVERITY>")
	assert.Contains(t, out, "<STMTTRN>")
	assert.False(t, strings.HasPrefix(out, "\n"))
}
