// Package anonymize replaces personally identifying text spans with
// reversible placeholders before anything leaves the device.
//
// Each distinct value gets a stable per-document placeholder of the form
// [KIND_N]; Deanonymize substitutes the originals back and is an exact
// left inverse of Anonymize over the produced text and mapping.
package anonymize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tech1ee/finuts/internal/model"
)

// detector binds a PII kind to its pattern. Detectors run in order, so
// broader digit patterns must come after the specific ones that would
// otherwise be consumed piecemeal.
type detector struct {
	kind model.PIIKind
	re   *regexp.Regexp
}

var detectors = []detector{
	// IBAN: KZ86125KZT5004100100 and friends.
	{model.PIIIBAN, regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{10,30}\b`)},
	// Full card numbers, optionally grouped by spaces or dashes.
	{model.PIICardNumber, regexp.MustCompile(`\b\d{4}[ -]?\d{4}[ -]?\d{4}[ -]?\d{4}\b`)},
	// Domestic account numbers: unbroken 20-digit runs.
	{model.PIIAccount, regexp.MustCompile(`\b\d{20}\b`)},
	// CIS phone numbers with +7/8 prefixes, then generic international.
	{model.PIIPhone, regexp.MustCompile(`(?:\+7|\b8)[ (-]*\d{3}[ )-]*\d{3}[ -]*\d{2}[ -]*\d{2}\b`)},
	{model.PIIPhone, regexp.MustCompile(`\+\d{10,15}\b`)},
	// Cyrillic full names with a patronymic suffix (Russian or Kazakh).
	// No \b anchors here: RE2's \b only knows ASCII word characters and
	// never fires next to Cyrillic letters.
	{model.PIIPersonName, regexp.MustCompile(`[А-ЯЁӘҒҚҢӨҰҮҺІ][а-яёәғқңөұүһі]+\s+[А-ЯЁӘҒҚҢӨҰҮҺІ][а-яёәғқңөұүһі]+\s+[А-ЯЁӘҒҚҢӨҰҮҺІ][а-яёәғқңөұүһі]*(?:вич|вна|ич|қызы|ұлы)`)},
	// Surname plus initials: "Иванову А." or "Иванов А.И."
	{model.PIIPersonName, regexp.MustCompile(`[А-ЯЁӘҒҚҢӨҰҮҺІ][а-яёәғқңөұүһі]{2,}\s+[А-ЯЁӘҒҚҢӨҰҮҺІ]\.(?:\s?[А-ЯЁӘҒҚҢӨҰҮҺІ]\.)?`)},
}

// fiscalContextRe matches trailing context that marks the next number as a
// fiscal identifier (receipt number, tax ID), not PII.
var fiscalContextRe = regexp.MustCompile(`(?i)(иин|бин|инн|кбе|чек|№|ref|fiscal)[:\s#]*$`)

// Anonymizer assigns placeholders and remembers the reverse mapping for
// one document.
type Anonymizer struct {
	counters map[model.PIIKind]int
	assigned map[string]string // original value → placeholder
}

// New creates an anonymizer scoped to a single document.
func New() *Anonymizer {
	return &Anonymizer{
		counters: make(map[model.PIIKind]int),
		assigned: make(map[string]string),
	}
}

// Anonymize detects PII in text and replaces every occurrence with a
// stable placeholder. Repeated values reuse their placeholder.
func (a *Anonymizer) Anonymize(text string) model.AnonymizationResult {
	result := model.AnonymizationResult{
		Text:    text,
		Mapping: make(map[string]string),
	}

	for _, d := range detectors {
		result.Text = d.re.ReplaceAllStringFunc(result.Text, func(match string) string {
			if isFiscal(result.Text, match) {
				return match
			}
			placeholder, seen := a.assigned[match]
			if !seen {
				a.counters[d.kind]++
				placeholder = fmt.Sprintf("[%s_%d]", d.kind, a.counters[d.kind])
				a.assigned[match] = placeholder
				result.Detected = append(result.Detected, model.PIISpan{Kind: d.kind, Value: match})
			}
			result.Mapping[placeholder] = match
			result.Modified = true
			return placeholder
		})
	}

	return result
}

// Deanonymize substitutes original values back into text using the
// mapping produced by Anonymize.
func Deanonymize(text string, mapping map[string]string) string {
	for placeholder, original := range mapping {
		text = strings.ReplaceAll(text, placeholder, original)
	}
	return text
}

// isFiscal reports whether the match is introduced by a fiscal-identifier
// label and must be left alone.
func isFiscal(text, match string) bool {
	idx := strings.Index(text, match)
	if idx <= 0 {
		return false
	}
	start := idx - 12
	if start < 0 {
		start = 0
	}
	return fiscalContextRe.MatchString(text[start:idx])
}
