package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountMatch is one amount token found in a line.
type AmountMatch struct {
	Raw    string // the exact matched substring, used for description stripping
	Minor  int64  // signed value in minor units
	Signed bool   // an explicit +/- was present
}

// amountSpec pairs an amount pattern with its conversion function.
// Specs are ordered most-specific first; the first match wins.
type amountSpec struct {
	re   *regexp.Regexp
	conv func(m []string) (AmountMatch, bool)
}

const (
	signClass  = `[+\-−]`
	groupSpace = " \u00A0"
)

var amountSpecs = []amountSpec{
	// Signed, space-grouped, currency-suffixed: "- 3 700,00 ₸"
	{
		re: regexp.MustCompile(signClass + `\s?\d{1,3}(?:[ \x{00A0}]\d{3})*(?:,\d{1,2})?\s*(?:[₸₽€$£¥]|KZT|RUB|EUR|USD|GBP)`),
		conv: func(m []string) (AmountMatch, bool) {
			return convert(m[0], ",", groupSpace)
		},
	},
	// US dollars: "-$1,234.56", "$1234.56"
	{
		re: regexp.MustCompile(signClass + `?\s?\$\s?\d{1,3}(?:,\d{3})*(?:\.\d{1,2})?`),
		conv: func(m []string) (AmountMatch, bool) {
			return convert(m[0], ".", ",")
		},
	},
	// Pounds sterling: "-£1,234.56"
	{
		re: regexp.MustCompile(signClass + `?\s?£\s?\d{1,3}(?:,\d{3})*(?:\.\d{1,2})?`),
		conv: func(m []string) (AmountMatch, bool) {
			return convert(m[0], ".", ",")
		},
	},
	// Continental European: dot thousands, comma decimals: "-1.234,56 €"
	{
		re: regexp.MustCompile(signClass + `?\s?\d{1,3}(?:\.\d{3})+,\d{1,2}\s*(?:€|EUR)?`),
		conv: func(m []string) (AmountMatch, bool) {
			return convert(m[0], ",", ".")
		},
	},
	// RU/CIS: space thousands, comma decimals: "1 234,56 ₽"
	{
		re: regexp.MustCompile(signClass + `?\s?\d{1,3}(?:[ \x{00A0}]\d{3})+(?:,\d{1,2})?\s*(?:[₽₸]|RUB|KZT)?`),
		conv: func(m []string) (AmountMatch, bool) {
			return convert(m[0], ",", groupSpace)
		},
	},
	// Generic signed, no separators: "-5000", "+120.50"
	{
		re: regexp.MustCompile(signClass + `\s?\d+(?:[.,]\d{1,2})?`),
		conv: func(m []string) (AmountMatch, bool) {
			return convert(m[0], "", "")
		},
	},
	// Unsigned but adjacent to a currency symbol: "₸1500", "1500 ₸"
	{
		re: regexp.MustCompile(`(?:[₸₽€$£¥]\s?\d+(?:[.,]\d{1,2})?|\d+(?:[.,]\d{1,2})?\s?[₸₽€$£¥])`),
		conv: func(m []string) (AmountMatch, bool) {
			return convert(m[0], "", "")
		},
	},
	// Unsigned decimal at end of line: last resort for statements that keep
	// amounts in separate debit/credit columns.
	{
		re: regexp.MustCompile(`\d+(?:[ \x{00A0}]\d{3})*[.,]\d{2}\s*$`),
		conv: func(m []string) (AmountMatch, bool) {
			return convert(m[0], "", groupSpace)
		},
	},
}

// FindAmount returns the first amount token in the line. The sign of
// Minor reflects only an explicit +/-; receipt-mode negation is applied by
// the extractor, not here.
func FindAmount(line string) (AmountMatch, bool) {
	for _, spec := range amountSpecs {
		m := spec.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if am, ok := spec.conv(m); ok {
			return am, true
		}
	}
	return AmountMatch{}, false
}

// convert turns a raw amount token into signed minor units.
// decimalSep is the separator that marks decimals for this pattern; group
// characters are removed outright. When decimalSep is empty the separator
// is inferred: a trailing group of 1-2 digits after '.' or ',' is decimal.
func convert(raw, decimalSep, groupChars string) (AmountMatch, bool) {
	s := strings.TrimSpace(raw)

	negative := false
	signed := false
	switch {
	case strings.HasPrefix(s, "-"), strings.HasPrefix(s, "−"):
		negative = true
		signed = true
	case strings.HasPrefix(s, "+"):
		signed = true
	}

	// Keep only digits and separators.
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == ' ' || r == '\u00A0' {
			b.WriteRune(r)
		}
	}
	num := strings.TrimSpace(b.String())

	for _, g := range groupChars {
		num = strings.ReplaceAll(num, string(g), "")
	}

	switch decimalSep {
	case ",":
		num = strings.ReplaceAll(num, ".", "")
		num = strings.Replace(num, ",", ".", 1)
	case ".":
		num = strings.ReplaceAll(num, ",", "")
	default:
		num = inferDecimal(num)
	}
	num = strings.ReplaceAll(num, " ", "")
	num = strings.ReplaceAll(num, "\u00A0", "")

	d, err := decimal.NewFromString(num)
	if err != nil {
		return AmountMatch{}, false
	}

	minor := d.Shift(2).Round(0).IntPart()
	if negative {
		minor = -minor
	}

	return AmountMatch{Raw: raw, Minor: minor, Signed: signed}, true
}

// inferDecimal normalizes a numeric string whose separator convention is
// unknown. A final '.' or ',' followed by 1-2 digits is the decimal mark;
// everything else is grouping.
func inferDecimal(num string) string {
	lastDot := strings.LastIndex(num, ".")
	lastComma := strings.LastIndex(num, ",")
	sep := lastDot
	if lastComma > sep {
		sep = lastComma
	}
	if sep == -1 {
		return num
	}
	frac := num[sep+1:]
	if len(frac) >= 1 && len(frac) <= 2 {
		head := num[:sep]
		head = strings.ReplaceAll(head, ".", "")
		head = strings.ReplaceAll(head, ",", "")
		return head + "." + frac
	}
	num = strings.ReplaceAll(num, ".", "")
	return strings.ReplaceAll(num, ",", "")
}
