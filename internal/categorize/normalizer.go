// Package categorize implements the three-tier categorization cascade:
// user-taught mappings, local rules (static merchant database, user
// history, generic keyword rules), and the remote model.
package categorize

import (
	"regexp"
	"strings"
)

// Normalization strips everything from a merchant string that varies
// between transactions of the same merchant: legal suffixes, branch
// locations, card masks, order numbers, dates and times.
//
// Suffixes and locations are filtered token-wise after uppercasing.
// RE2's \b only knows ASCII word characters, so a regex alternation over
// Cyrillic tokens silently never matches.
var (
	cardMaskRe    = regexp.MustCompile(`\*+\d{2,4}|\d{4}\*+\d{0,4}|X{2,}\d{2,4}`)
	orderNumberRe = regexp.MustCompile(`(?i)(№|#|NO\.?|ORDER)\s*\d+`)
	dateTimeRe    = regexp.MustCompile(`\b\d{1,2}[./-]\d{1,2}(?:[./-]\d{2,4})?\b|\b\d{1,2}:\d{2}(?::\d{2})?\b`)
	longNumberRe  = regexp.MustCompile(`\b\d{5,}\b`)

	businessSuffixes = tokenSet("ТОО", "ИП", "АО", "ООО", "ЗАО", "ПАО", "ЖШС",
		"LLC", "LLP", "LTD", "INC", "GMBH", "OOO", "TOO")

	locationTokens = tokenSet("АЛМАТЫ", "АСТАНА", "ШЫМКЕНТ", "КАРАГАНДА",
		"АКТОБЕ", "ТАРАЗ", "ПАВЛОДАР", "АТЫРАУ", "МОСКВА", "САНКТ-ПЕТЕРБУРГ",
		"ALMATY", "ASTANA", "SHYMKENT", "MOSCOW", "KZ", "RU", "KAZ", "RUS")
)

func tokenSet(tokens ...string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

// NormalizeMerchant canonicalizes a merchant name for matching and
// learning. Returns "" for blank input.
func NormalizeMerchant(name string) string {
	s := strings.ToUpper(strings.TrimSpace(name))
	if s == "" {
		return ""
	}

	s = cardMaskRe.ReplaceAllString(s, " ")
	s = orderNumberRe.ReplaceAllString(s, " ")
	s = dateTimeRe.ReplaceAllString(s, " ")
	s = longNumberRe.ReplaceAllString(s, " ")

	// Collapse separators left behind by the removals.
	s = strings.Map(func(r rune) rune {
		switch r {
		case '"', '«', '»', ',', ';', '/', '\\', '(', ')':
			return ' '
		}
		return r
	}, s)

	fields := strings.Fields(s)
	kept := fields[:0]
	for _, f := range fields {
		token := strings.Trim(f, "-.")
		if token == "" || businessSuffixes[token] || locationTokens[token] {
			continue
		}
		kept = append(kept, f)
	}

	s = strings.Join(kept, " ")
	return strings.Trim(s, "-. ")
}
