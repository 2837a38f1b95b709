package model

import (
	"regexp"
	"time"
)

// MerchantPattern is one entry of the static merchant database: a compiled
// matcher mapping descriptions to a category. The database is loaded once
// at startup and never mutated.
type MerchantPattern struct {
	Pattern     *regexp.Regexp
	CategoryID  string
	DisplayName string
	Confidence  float64
}

// LearnedSource records how a learned merchant mapping was created.
type LearnedSource string

const (
	// LearnedFromUser means the mapping grew out of user corrections.
	LearnedFromUser LearnedSource = "USER"
	// LearnedFromML means the mapping was promoted from model output.
	LearnedFromML LearnedSource = "ML"
)

// LearnedMerchantConfidenceCap bounds how certain a learned mapping can
// ever become, no matter how many corrections confirm it.
const LearnedMerchantConfidenceCap = 0.98

// LearnedMerchant is a user-taught merchant→category mapping. MerchantPattern
// is the normalized merchant name and acts as the key. Confidence rises
// monotonically with SampleCount and is capped.
type LearnedMerchant struct {
	LastUsedAt      time.Time
	CreatedAt       time.Time
	MerchantPattern string
	CategoryID      string
	Source          LearnedSource
	Confidence      float64
	SampleCount     int
}

// CategoryCorrection is one recorded user correction, keyed by
// (NormalizedMerchant, CategoryID).
type CategoryCorrection struct {
	CorrectedAt        time.Time
	NormalizedMerchant string
	CategoryID         string
}
