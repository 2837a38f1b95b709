// Package preprocess reduces raw document text to its financially
// relevant lines and detects the document type and language.
package preprocess

import (
	"regexp"
	"strings"

	"github.com/tech1ee/finuts/internal/extract"
	"github.com/tech1ee/finuts/internal/model"
)

// Patterns for lines that carry no transaction data.
var (
	pageNumberRes = []*regexp.Regexp{
		regexp.MustCompile(`^\s*-\s*\d+\s*-\s*$`),
		regexp.MustCompile(`(?i)^\s*page\s+\d+\s+of\s+\d+\s*$`),
		regexp.MustCompile(`^\s*\d+\s*/\s*\d+\s*$`),
		regexp.MustCompile(`(?i)^\s*стр\.?\s*\d+`),
	}

	boilerplateRe = regexp.MustCompile(`(?i)(generated|confidential|https?://|www\.|\+7\s?\(?\d{3}|8\s?\(?\d{3}\)?\s?\d{3})`)
)

// transactionKeywords mark lines worth keeping even without a parseable
// date or amount, per supported locale.
var transactionKeywords = []string{
	// Russian
	"оплата", "покупка", "перевод", "платеж", "платёж", "пополнение",
	"списание", "зачисление", "возврат", "комиссия", "снятие", "итого",
	// Kazakh
	"төлем", "аударым", "сатып алу", "түсім", "аудару",
	// English
	"payment", "purchase", "transfer", "deposit", "withdrawal", "refund",
	"fee", "salary", "interest", "total", "pos", "atm",
}

// Document-type markers, in priority order: receipt markers outrank
// invoice markers outrank generic totals outrank statement markers.
var (
	receiptMarkers   = []string{"чек", "касса", "кассир", "фискальный", "фискальді", "receipt", "cash register"}
	invoiceMarkers   = []string{"счёт-фактура", "счет-фактура", "invoice", "bill to", "order confirmation", "шот-фактура"}
	totalMarkers     = []string{"итого", "total", "жиыны"}
	statementMarkers = []string{"statement", "выписка", "account", "period", "период", "үзінді"}
)

var kazakhLetters = "әғқңөұүһі"

// Process filters text down to transaction-bearing lines and attaches
// detection hints. Blank input yields an empty result, never an error.
func Process(text string) model.PreprocessResult {
	if strings.TrimSpace(text) == "" {
		return model.PreprocessResult{Hints: model.DocumentHints{Type: model.DocUnknown, Language: model.LangEnglish}}
	}

	hints := model.DocumentHints{
		Type:     detectType(text),
		Language: detectLanguage(text),
	}

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isNoise(trimmed) {
			continue
		}
		if isRelevant(trimmed) {
			kept = append(kept, trimmed)
		}
	}

	return model.PreprocessResult{
		CleanedText: strings.Join(kept, "\n"),
		Lines:       kept,
		Hints:       hints,
	}
}

func isNoise(line string) bool {
	for _, re := range pageNumberRes {
		if re.MatchString(line) {
			return true
		}
	}
	return boilerplateRe.MatchString(line)
}

func isRelevant(line string) bool {
	if extract.FindDate(line) != "" {
		return true
	}
	if _, ok := extract.FindAmount(line); ok {
		return true
	}
	lower := strings.ToLower(line)
	for _, kw := range transactionKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func detectType(text string) model.DocumentType {
	lower := strings.ToLower(text)

	for _, marker := range receiptMarkers {
		if strings.Contains(lower, marker) {
			return model.DocReceipt
		}
	}
	for _, marker := range invoiceMarkers {
		if strings.Contains(lower, marker) {
			return model.DocInvoice
		}
	}
	for _, marker := range totalMarkers {
		if strings.Contains(lower, marker) {
			return model.DocReceipt
		}
	}
	for _, marker := range statementMarkers {
		if strings.Contains(lower, marker) {
			return model.DocBankStatement
		}
	}
	return model.DocUnknown
}

func detectLanguage(text string) model.Language {
	lower := strings.ToLower(text)

	if strings.ContainsAny(lower, kazakhLetters) {
		return model.LangKazakh
	}

	var cyrillic, latin int
	for _, r := range lower {
		switch {
		case (r >= 'а' && r <= 'я') || r == 'ё':
			cyrillic++
		case r >= 'a' && r <= 'z':
			latin++
		}
	}

	if cyrillic > latin {
		return model.LangRussian
	}
	return model.LangEnglish
}
