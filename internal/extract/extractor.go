// Package extract implements the local, regex-driven transaction extractor.
//
// The extractor makes a single stateful pass over preprocessed lines. A
// date found on a header line is carried as context to the amount-only
// lines that follow it (the receipt shape: one date, many item lines).
// Pattern tables are data: new locales are added by extending the tables
// in dates.go and amounts.go, not by touching control flow here.
package extract

import (
	"strings"

	"github.com/tech1ee/finuts/internal/model"
)

// Receipt-mode inference limits for date-only header lines.
const maxReceiptHeaderLen = 40

// Extractor converts cleaned statement or receipt text into partial
// transactions. Zero value is usable; hints from preprocessing improve
// sign decisions for receipts.
type Extractor struct {
	docType    model.DocumentType
	hasDocHint bool
}

// New creates an extractor with no document-type hint; the mode is
// inferred from line shape during the pass.
func New() *Extractor {
	return &Extractor{}
}

// NewWithHints creates an extractor that trusts the preprocessor's
// document-type detection instead of inferring receipt mode per line.
func NewWithHints(hints model.DocumentHints) *Extractor {
	if hints.Type == model.DocUnknown {
		return New()
	}
	return &Extractor{docType: hints.Type, hasDocHint: true}
}

// Extract parses lines into partial transactions. Lines with neither a
// date nor an amount are skipped silently; a parse failure is never an
// error.
func (e *Extractor) Extract(lines []string) []model.PartialTransaction {
	var out []model.PartialTransaction

	contextDate := ""
	receiptMode := e.hasDocHint && e.docType == model.DocReceipt

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		dateTok := FindDate(line)
		work := line
		// Strip every date token, not just the first: a period line like
		// "01.01.2026 - 31.01.2026" must not leave "- 31" behind to be
		// misread as a signed amount.
		for tok := dateTok; tok != ""; tok = FindDate(work) {
			work = strings.Replace(work, tok, " ", 1)
		}

		amount, hasAmount := FindAmount(work)

		switch {
		case dateTok != "" && hasAmount:
			// Statement-style row: date and amount on one line.
			contextDate = dateTok
			if !e.hasDocHint {
				receiptMode = false
			}
			out = append(out, e.buildTransaction(line, work, dateTok, amount, receiptMode))

		case dateTok != "":
			contextDate = dateTok
			// A short dateless-amount header, often time-stamped, marks a
			// receipt: the date applies to the item lines below it.
			if !e.hasDocHint && looksLikeReceiptHeader(line, dateTok) {
				receiptMode = true
			}

		case hasAmount && contextDate != "":
			out = append(out, e.buildTransaction(line, work, contextDate, amount, receiptMode))
		}
	}

	return out
}

func (e *Extractor) buildTransaction(line, work, rawDate string, amount AmountMatch, receiptMode bool) model.PartialTransaction {
	minor := amount.Minor
	if receiptMode && !amount.Signed {
		// Receipts list expenses without signs.
		minor = -minor
	}

	return model.PartialTransaction{
		RawDate:        rawDate,
		AmountMinor:    minor,
		Currency:       DetectCurrency(line),
		RawDescription: cleanDescription(work, amount.Raw),
	}
}

// cleanDescription strips the amount token and currency markers from the
// line remainder and tidies whitespace and leading punctuation.
func cleanDescription(work, amountTok string) string {
	s := strings.Replace(work, amountTok, " ", 1)
	s = StripCurrencyTokens(s)
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimLeft(s, ".,;:-—–* ")
	return strings.TrimSpace(s)
}

// looksLikeReceiptHeader reports whether a date-only line reads like the
// header of a receipt rather than a labeled statement field ("Период: ...").
func looksLikeReceiptHeader(line, dateTok string) bool {
	if len(line) >= maxReceiptHeaderLen {
		return false
	}
	idx := strings.Index(line, dateTok)
	if idx < 0 {
		return false
	}
	return !strings.Contains(line[:idx], ":")
}
