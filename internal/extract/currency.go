package extract

import (
	"regexp"
	"strings"
)

// symbolCurrencies maps currency symbols to ISO 4217 codes. Symbols win
// over ISO code substrings when both appear.
var symbolCurrencies = []struct {
	Symbol string
	Code   string
}{
	{"₸", "KZT"},
	{"$", "USD"},
	{"€", "EUR"},
	{"₽", "RUB"},
	{"£", "GBP"},
	{"¥", "JPY"},
}

// isoCodes are the 3-letter codes recognized as substrings. Limited to a
// known set so ordinary words never match.
var isoCodes = []string{"KZT", "USD", "EUR", "RUB", "GBP", "JPY", "KGS", "UZS", "TRY", "CNY", "AED", "CHF"}

var isoCodeRe = regexp.MustCompile(`\b(` + strings.Join(isoCodes, "|") + `)\b`)

// DetectCurrency returns the ISO currency code implied by a line, or ""
// when nothing identifies one. Detection depends only on symbol and code
// presence, never on the amount or its sign.
func DetectCurrency(line string) string {
	for _, sc := range symbolCurrencies {
		if strings.Contains(line, sc.Symbol) {
			return sc.Code
		}
	}
	if m := isoCodeRe.FindString(line); m != "" {
		return m
	}
	return ""
}

// StripCurrencyTokens removes currency symbols and known ISO codes from a
// string. Used when deriving descriptions.
func StripCurrencyTokens(s string) string {
	for _, sc := range symbolCurrencies {
		s = strings.ReplaceAll(s, sc.Symbol, "")
	}
	return isoCodeRe.ReplaceAllString(s, "")
}
