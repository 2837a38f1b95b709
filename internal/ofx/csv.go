package ofx

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tech1ee/finuts/internal/common"
	"github.com/tech1ee/finuts/internal/extract"
	"github.com/tech1ee/finuts/internal/model"
)

// CSVParser imports bank CSV exports. Column layout is sniffed from the
// header row, so exports from different banks work without configuration.
type CSVParser struct {
	logger *slog.Logger
}

// NewCSVParser creates a CSV importer.
func NewCSVParser() *CSVParser {
	return &CSVParser{logger: slog.Default().With("component", "csv")}
}

// Column name variants banks actually use, lowercased.
var (
	dateHeaders        = []string{"date", "дата операции", "дата", "transaction date", "operation date", "күні"}
	amountHeaders      = []string{"amount", "сумма операции", "сумма", "sum", "сомасы"}
	descriptionHeaders = []string{"description", "назначение платежа", "назначение", "описание", "details", "merchant", "name"}
	currencyHeaders    = []string{"currency", "валюта", "cur"}
	accountHeaders     = []string{"account", "счет", "счёт", "account id", "iban"}
)

type csvLayout struct {
	date        int
	amount      int
	description int
	currency    int
	account     int
}

// ParseFile reads a CSV export. Rows whose date or amount cannot be
// parsed are skipped with a warning; a file yielding nothing is an error.
func (p *CSVParser) ParseFile(ctx context.Context, reader io.Reader) ([]model.ImportedTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading CSV file: %w", err)
	}

	r := csv.NewReader(strings.NewReader(string(content)))
	r.Comma = sniffDelimiter(string(content))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	layout, err := sniffLayout(header)
	if err != nil {
		return nil, err
	}

	var txns []model.ImportedTransaction
	for line := 2; ; line++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			p.logger.Warn("skipping malformed CSV row", "line", line, "error", err)
			continue
		}
		txn, ok := p.convertRow(record, layout)
		if !ok {
			p.logger.Warn("skipping unparseable CSV row", "line", line)
			continue
		}
		txns = append(txns, txn)
	}

	if len(txns) == 0 {
		return nil, common.ErrNoTransactions
	}
	p.logger.Info("Parsed CSV file", "transactions", len(txns))
	return txns, nil
}

func (p *CSVParser) convertRow(record []string, layout csvLayout) (model.ImportedTransaction, bool) {
	field := func(idx int) string {
		if idx < 0 || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	date, err := extract.ParseDate(field(layout.date))
	if err != nil {
		return model.ImportedTransaction{}, false
	}
	minor, err := parseCSVAmount(field(layout.amount))
	if err != nil {
		return model.ImportedTransaction{}, false
	}

	return model.ImportedTransaction{
		ID:          uuid.NewString(),
		Date:        date,
		AccountID:   field(layout.account),
		Description: field(layout.description),
		Currency:    strings.ToUpper(field(layout.currency)),
		Source:      model.SourceRuleBased,
		Confidence:  1.0,
		AmountMinor: minor,
	}, true
}

// parseCSVAmount converts a human-formatted amount to signed minor units.
func parseCSVAmount(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, errors.New("empty amount")
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u2212", "-")
	// A comma is a decimal separator unless a dot already plays that role.
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	s = strings.ReplaceAll(s, ",", "")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", raw, err)
	}
	return d.Shift(2).Round(0).IntPart(), nil
}

func sniffDelimiter(content string) rune {
	firstLine := content
	if i := strings.IndexByte(content, '\n'); i >= 0 {
		firstLine = content[:i]
	}
	if strings.Count(firstLine, ";") > strings.Count(firstLine, ",") {
		return ';'
	}
	return ','
}

func sniffLayout(header []string) (csvLayout, error) {
	layout := csvLayout{date: -1, amount: -1, description: -1, currency: -1, account: -1}
	for i, name := range header {
		n := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF")))
		switch {
		case layout.date < 0 && matchesHeader(n, dateHeaders):
			layout.date = i
		case layout.amount < 0 && matchesHeader(n, amountHeaders):
			layout.amount = i
		case layout.description < 0 && matchesHeader(n, descriptionHeaders):
			layout.description = i
		case layout.currency < 0 && matchesHeader(n, currencyHeaders):
			layout.currency = i
		case layout.account < 0 && matchesHeader(n, accountHeaders):
			layout.account = i
		}
	}
	if layout.date < 0 || layout.amount < 0 {
		return layout, fmt.Errorf("%w: CSV header has no recognizable date and amount columns", common.ErrNoTransactions)
	}
	return layout, nil
}

func matchesHeader(name string, variants []string) bool {
	for _, v := range variants {
		if name == v {
			return true
		}
	}
	return false
}
