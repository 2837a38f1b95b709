// Package learn turns repeated user category corrections into learned
// merchant mappings that dominate the categorization cascade.
package learn

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tech1ee/finuts/internal/categorize"
	"github.com/tech1ee/finuts/internal/common"
	"github.com/tech1ee/finuts/internal/model"
	"github.com/tech1ee/finuts/internal/service"
)

// correctionThreshold is how many times the user must assign the same
// category to the same merchant before a mapping is created. A single
// correction may be a one-off; two is a habit.
const correctionThreshold = 2

const baseLearnedConfidence = 0.90

// Learner records corrections and promotes them to learned mappings once
// they repeat.
type Learner struct {
	corrections service.CorrectionStore
	learned     service.LearnedMerchantStore
	logger      *slog.Logger
	now         func() time.Time
}

// NewLearner creates a correction learner over the given stores.
func NewLearner(corrections service.CorrectionStore, learned service.LearnedMerchantStore) *Learner {
	return &Learner{
		corrections: corrections,
		learned:     learned,
		logger:      slog.Default().With("component", "learn"),
		now:         time.Now,
	}
}

// RecordCorrection registers that the user put merchant under categoryID.
// When the same pair has been corrected enough times, the mapping is
// created (or re-pointed, if the user changed their mind about an existing
// one). A merchant name that normalizes to nothing is rejected before any
// state changes.
func (l *Learner) RecordCorrection(ctx context.Context, merchant, categoryID string) error {
	normalized := categorize.NormalizeMerchant(merchant)
	if normalized == "" {
		return common.NewUserError(
			"This transaction has no usable merchant name to learn from.",
			fmt.Errorf("merchant %q normalizes to empty", merchant),
		)
	}
	if categoryID == "" {
		return common.NewUserError(
			"Pick a category before correcting.",
			fmt.Errorf("empty category for merchant %q", normalized),
		)
	}

	if err := l.corrections.Record(ctx, model.CategoryCorrection{
		CorrectedAt:        l.now(),
		NormalizedMerchant: normalized,
		CategoryID:         categoryID,
	}); err != nil {
		return fmt.Errorf("recording correction: %w", err)
	}

	count, err := l.corrections.CountFor(ctx, normalized, categoryID)
	if err != nil {
		return fmt.Errorf("counting corrections: %w", err)
	}
	if count < correctionThreshold {
		l.logger.Debug("correction recorded, below learning threshold",
			"merchant", normalized, "category", categoryID, "count", count)
		return nil
	}
	return l.promote(ctx, normalized, categoryID, count)
}

func (l *Learner) promote(ctx context.Context, normalized, categoryID string, count int) error {
	confidence := ConfidenceForSamples(count)

	existing, err := l.learned.GetByPattern(ctx, normalized)
	if err != nil {
		return fmt.Errorf("looking up learned merchant: %w", err)
	}

	if existing == nil {
		now := l.now()
		l.logger.Info("learned new merchant mapping",
			"merchant", normalized, "category", categoryID, "samples", count)
		return l.learned.Save(ctx, &model.LearnedMerchant{
			CreatedAt:       now,
			LastUsedAt:      now,
			MerchantPattern: normalized,
			CategoryID:      categoryID,
			Source:          model.LearnedFromUser,
			Confidence:      confidence,
			SampleCount:     count,
		})
	}

	existing.CategoryID = categoryID
	existing.SampleCount = count
	// Confidence only ever rises for a given mapping.
	if confidence > existing.Confidence {
		existing.Confidence = confidence
	}
	existing.LastUsedAt = l.now()
	l.logger.Info("reinforced learned merchant mapping",
		"merchant", normalized, "category", categoryID,
		"samples", count, "confidence", existing.Confidence)
	return l.learned.Update(ctx, existing)
}

// ConfidenceForSamples maps a correction count to mapping confidence:
// the threshold count starts at the base and every further confirmation
// adds a little, up to the cap.
func ConfidenceForSamples(sampleCount int) float64 {
	if sampleCount < correctionThreshold {
		return 0
	}
	c := baseLearnedConfidence + 0.02*float64(sampleCount-correctionThreshold)
	if c > model.LearnedMerchantConfidenceCap {
		return model.LearnedMerchantConfidenceCap
	}
	return c
}
