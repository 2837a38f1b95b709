// Package dedup classifies incoming transactions against the stored
// ledger as unique, probable duplicates, or exact duplicates.
package dedup

import (
	"strings"
	"unicode"

	"github.com/tech1ee/finuts/internal/model"
)

// Tunables for probable-duplicate matching. Exact duplicates require a
// same-day, same-amount, same-description match; probable duplicates
// allow a nearby date and similar description at the same amount.
const (
	defaultDateWindowDays      = 3
	defaultSimilarityThreshold = 0.6
)

// Detector classifies candidate transactions against a ledger snapshot.
// Classification is read-only, so re-running it against an unchanged
// ledger always yields the same statuses.
type Detector struct {
	dateWindowDays      int
	similarityThreshold float64
}

// NewDetector creates a detector with default thresholds.
func NewDetector() *Detector {
	return &Detector{
		dateWindowDays:      defaultDateWindowDays,
		similarityThreshold: defaultSimilarityThreshold,
	}
}

// Classify returns the duplicate status of one candidate against the
// ledger. An exact match on all three of date, amount and normalized
// description wins over any probable match.
func (d *Detector) Classify(candidate model.ImportedTransaction, ledger []model.ImportedTransaction) model.DuplicateStatus {
	candDesc := normalizeDescription(candidate.Description)

	var probable *model.ImportedTransaction
	for i := range ledger {
		existing := &ledger[i]
		if existing.AmountMinor != candidate.AmountMinor {
			continue
		}

		sameDay := existing.Date.Format("2006-01-02") == candidate.Date.Format("2006-01-02")
		existingDesc := normalizeDescription(existing.Description)

		if sameDay && existingDesc == candDesc {
			return model.ExactDuplicate{MatchedID: existing.ID}
		}

		if probable == nil && d.withinWindow(candidate, existing) &&
			similarity(candDesc, existingDesc) >= d.similarityThreshold {
			probable = existing
		}
	}

	if probable != nil {
		return model.ProbableDuplicate{MatchedID: probable.ID}
	}
	return model.Unique{}
}

// ClassifyAll classifies each candidate independently against the ledger.
func (d *Detector) ClassifyAll(candidates, ledger []model.ImportedTransaction) []model.DuplicateStatus {
	statuses := make([]model.DuplicateStatus, len(candidates))
	for i, c := range candidates {
		statuses[i] = d.Classify(c, ledger)
	}
	return statuses
}

func (d *Detector) withinWindow(a model.ImportedTransaction, b *model.ImportedTransaction) bool {
	diff := a.Date.Sub(b.Date)
	if diff < 0 {
		diff = -diff
	}
	return diff.Hours() <= float64(d.dateWindowDays)*24
}

// normalizeDescription uppercases, strips punctuation and collapses
// whitespace so formatting differences do not defeat matching.
func normalizeDescription(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// similarity is the Jaccard index over description tokens.
func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	tokensA := strings.Fields(a)
	tokensB := strings.Fields(b)

	setA := make(map[string]struct{}, len(tokensA))
	for _, t := range tokensA {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(tokensB))
	for _, t := range tokensB {
		setB[t] = struct{}{}
	}

	var intersection int
	for t := range setA {
		if _, ok := setB[t]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
