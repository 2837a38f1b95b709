package model

import "time"

// CategorizationSource identifies which tier of the cascade produced a
// category, ranked by trust: user-taught mappings first, then local rules,
// then the remote model.
type CategorizationSource string

// Categorization source constants.
const (
	SourceUserLearned      CategorizationSource = "USER_LEARNED"
	SourceMerchantDatabase CategorizationSource = "MERCHANT_DATABASE"
	SourceRuleBasedMatch   CategorizationSource = "RULE_BASED"
	SourceUserHistory      CategorizationSource = "USER_HISTORY"
	SourceLLMTier2         CategorizationSource = "LLM_TIER2"
	SourceLLMTier3         CategorizationSource = "LLM_TIER3"
)

// Confidence thresholds shared across the cascade.
const (
	// HighConfidenceThreshold marks results the UI can apply silently.
	HighConfidenceThreshold = 0.90
	// ConfirmationThreshold marks results that need user review.
	ConfirmationThreshold = 0.70
)

// CategorizationResult is one cascade decision for one transaction.
type CategorizationResult struct {
	TransactionID string
	CategoryID    string
	Source        CategorizationSource
	Confidence    float64
}

// IsHighConfidence reports whether the result clears the silent-apply bar.
func (r CategorizationResult) IsHighConfidence() bool {
	return r.Confidence >= HighConfidenceThreshold
}

// RequiresUserConfirmation reports whether the user must review this
// result, regardless of which tier produced it.
func (r CategorizationResult) RequiresUserConfirmation() bool {
	return r.Confidence < ConfirmationThreshold
}

// ClampConfidence forces a confidence value into [0, 1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// Category is a spending category a transaction can be assigned to.
type Category struct {
	CreatedAt   time.Time
	ID          string
	Name        string
	Description string
	IsActive    bool
}
