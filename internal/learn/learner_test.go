package learn

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tech1ee/finuts/internal/model"
)

type memCorrections struct {
	mu      sync.Mutex
	records []model.CategoryCorrection
}

func (m *memCorrections) Record(_ context.Context, c model.CategoryCorrection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, c)
	return nil
}

func (m *memCorrections) CountFor(_ context.Context, merchant, categoryID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.records {
		if c.NormalizedMerchant == merchant && c.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

type memLearned struct {
	mu    sync.Mutex
	byKey map[string]*model.LearnedMerchant
}

func (m *memLearned) Save(_ context.Context, lm *model.LearnedMerchant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byKey == nil {
		m.byKey = make(map[string]*model.LearnedMerchant)
	}
	cp := *lm
	m.byKey[lm.MerchantPattern] = &cp
	return nil
}

func (m *memLearned) Update(ctx context.Context, lm *model.LearnedMerchant) error {
	return m.Save(ctx, lm)
}

func (m *memLearned) FindMatch(ctx context.Context, normalized string) (*model.LearnedMerchant, error) {
	return m.GetByPattern(ctx, normalized)
}

func (m *memLearned) GetByPattern(_ context.Context, pattern string) (*model.LearnedMerchant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if lm, ok := m.byKey[pattern]; ok {
		cp := *lm
		return &cp, nil
	}
	return nil, nil
}

func (m *memLearned) GetHighConfidence(context.Context, float64) ([]model.LearnedMerchant, error) {
	return nil, nil
}

func (m *memLearned) GetBySource(context.Context, model.LearnedSource) ([]model.LearnedMerchant, error) {
	return nil, nil
}

func TestLearner_SingleCorrectionDoesNotLearn(t *testing.T) {
	corrections, learned := &memCorrections{}, &memLearned{}
	learner := NewLearner(corrections, learned)

	require.NoError(t, learner.RecordCorrection(context.Background(), "МАГНУМ СУПЕР АЛМАТЫ", "household"))

	lm, err := learned.GetByPattern(context.Background(), "МАГНУМ СУПЕР")
	require.NoError(t, err)
	assert.Nil(t, lm, "one correction is not enough to learn")
	assert.Len(t, corrections.records, 1)
}

func TestLearner_SecondCorrectionCreatesMapping(t *testing.T) {
	corrections, learned := &memCorrections{}, &memLearned{}
	learner := NewLearner(corrections, learned)
	ctx := context.Background()

	require.NoError(t, learner.RecordCorrection(ctx, "МАГНУМ СУПЕР АЛМАТЫ", "household"))
	require.NoError(t, learner.RecordCorrection(ctx, `ТОО "МАГНУМ СУПЕР"`, "household"))

	lm, err := learned.GetByPattern(ctx, "МАГНУМ СУПЕР")
	require.NoError(t, err)
	require.NotNil(t, lm, "variants normalizing to the same merchant count together")
	assert.Equal(t, "household", lm.CategoryID)
	assert.Equal(t, 2, lm.SampleCount)
	assert.Equal(t, model.LearnedFromUser, lm.Source)
	assert.InDelta(t, 0.90, lm.Confidence, 1e-9)
}

func TestLearner_ConfidenceGrowsMonotonicallyToCap(t *testing.T) {
	corrections, learned := &memCorrections{}, &memLearned{}
	learner := NewLearner(corrections, learned)
	ctx := context.Background()

	prev := 0.0
	for i := 0; i < 10; i++ {
		require.NoError(t, learner.RecordCorrection(ctx, "WOLT", "delivery"))
		lm, err := learned.GetByPattern(ctx, "WOLT")
		require.NoError(t, err)
		if lm == nil {
			continue
		}
		assert.GreaterOrEqual(t, lm.Confidence, prev, "confidence never drops")
		assert.LessOrEqual(t, lm.Confidence, model.LearnedMerchantConfidenceCap)
		prev = lm.Confidence
	}
	assert.InDelta(t, model.LearnedMerchantConfidenceCap, prev, 1e-9,
		"ten corrections reach the cap")
}

func TestLearner_ChangedMindRepointsMapping(t *testing.T) {
	corrections, learned := &memCorrections{}, &memLearned{}
	learner := NewLearner(corrections, learned)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, learner.RecordCorrection(ctx, "PAUL", "coffee"))
	}
	for i := 0; i < 2; i++ {
		require.NoError(t, learner.RecordCorrection(ctx, "PAUL", "dining"))
	}

	lm, err := learned.GetByPattern(ctx, "PAUL")
	require.NoError(t, err)
	require.NotNil(t, lm)
	assert.Equal(t, "dining", lm.CategoryID, "latest repeated correction wins")
}

func TestLearner_BlankMerchantFailsWithoutSideEffects(t *testing.T) {
	corrections, learned := &memCorrections{}, &memLearned{}
	learner := NewLearner(corrections, learned)

	for _, merchant := range []string{"", "   ", `ТОО 15.01.2026 #123`} {
		err := learner.RecordCorrection(context.Background(), merchant, "misc")
		assert.Error(t, err, "merchant %q", merchant)
	}
	assert.Empty(t, corrections.records, "rejected corrections leave no trace")
}

func TestConfidenceForSamples(t *testing.T) {
	assert.Zero(t, ConfidenceForSamples(1))
	assert.InDelta(t, 0.90, ConfidenceForSamples(2), 1e-9)
	assert.InDelta(t, 0.92, ConfidenceForSamples(3), 1e-9)
	assert.InDelta(t, 0.98, ConfidenceForSamples(6), 1e-9)
	assert.InDelta(t, 0.98, ConfidenceForSamples(50), 1e-9, "capped")
}
