package categorize

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tech1ee/finuts/internal/llm"
	"github.com/tech1ee/finuts/internal/model"
)

// mockLearnedStore holds mappings keyed by normalized merchant pattern.
type mockLearnedStore struct {
	mu       sync.Mutex
	byKey    map[string]*model.LearnedMerchant
	updated  []model.LearnedMerchant
	findErrs error
}

func (m *mockLearnedStore) Save(_ context.Context, lm *model.LearnedMerchant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byKey == nil {
		m.byKey = make(map[string]*model.LearnedMerchant)
	}
	cp := *lm
	m.byKey[lm.MerchantPattern] = &cp
	return nil
}

func (m *mockLearnedStore) Update(_ context.Context, lm *model.LearnedMerchant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *lm
	m.byKey[lm.MerchantPattern] = &cp
	m.updated = append(m.updated, cp)
	return nil
}

func (m *mockLearnedStore) FindMatch(_ context.Context, normalized string) (*model.LearnedMerchant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErrs != nil {
		return nil, m.findErrs
	}
	if lm, ok := m.byKey[normalized]; ok {
		cp := *lm
		return &cp, nil
	}
	return nil, nil
}

func (m *mockLearnedStore) GetByPattern(ctx context.Context, pattern string) (*model.LearnedMerchant, error) {
	return m.FindMatch(ctx, pattern)
}

func (m *mockLearnedStore) GetHighConfidence(context.Context, float64) ([]model.LearnedMerchant, error) {
	return nil, nil
}

func (m *mockLearnedStore) GetBySource(context.Context, model.LearnedSource) ([]model.LearnedMerchant, error) {
	return nil, nil
}

func mustDB(t *testing.T) *MerchantDB {
	t.Helper()
	db, err := NewMerchantDB()
	require.NoError(t, err)
	return db
}

func TestCascade_LearnedDominatesMerchantDB(t *testing.T) {
	learned := &mockLearnedStore{}
	require.NoError(t, learned.Save(context.Background(), &model.LearnedMerchant{
		MerchantPattern: "МАГНУМ СУПЕР",
		CategoryID:      "household",
		Confidence:      0.92,
		SampleCount:     3,
	}))
	cascade := NewCascade(learned, mustDB(t), nil, nil)

	result, ok := cascade.CategorizeLocal(context.Background(), model.ImportedTransaction{
		ID:          "t1",
		Description: "МАГНУМ СУПЕР АЛМАТЫ", // the static catalog says groceries
	})

	require.True(t, ok)
	assert.Equal(t, model.SourceUserLearned, result.Source)
	assert.Equal(t, "household", result.CategoryID)
	assert.GreaterOrEqual(t, result.Confidence, learnedDisplayFloor)
	assert.LessOrEqual(t, result.Confidence, model.LearnedMerchantConfidenceCap)
}

func TestCascade_LearnedHitRefreshesLastUsed(t *testing.T) {
	learned := &mockLearnedStore{}
	require.NoError(t, learned.Save(context.Background(), &model.LearnedMerchant{
		MerchantPattern: "WOLT",
		CategoryID:      "delivery",
		Confidence:      0.96,
	}))
	cascade := NewCascade(learned, mustDB(t), nil, nil)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cascade.now = func() time.Time { return fixed }

	_, ok := cascade.CategorizeLocal(context.Background(), model.ImportedTransaction{
		ID:          "t1",
		Description: "WOLT *4521 ALMATY",
	})

	require.True(t, ok)
	require.Len(t, learned.updated, 1)
	assert.Equal(t, fixed, learned.updated[0].LastUsedAt)
	assert.Zero(t, learned.updated[0].SampleCount,
		"sample count moves only through recorded corrections")
}

func TestCascade_MerchantDBBeatsUserHistory(t *testing.T) {
	// The user once put Magnum under dining; the static catalog still wins.
	history := NewHistoryIndex([]model.ImportedTransaction{
		{Description: "МАГНУМ СУПЕР АЛМАТЫ", Category: "dining"},
	})
	cascade := NewCascade(nil, mustDB(t), history, nil)

	result, ok := cascade.CategorizeLocal(context.Background(), model.ImportedTransaction{
		ID:          "t1",
		Description: "МАГНУМ СУПЕР АЛМАТЫ",
	})

	require.True(t, ok)
	assert.Equal(t, model.SourceMerchantDatabase, result.Source)
	assert.Equal(t, "groceries", result.CategoryID)
	assert.GreaterOrEqual(t, result.Confidence, model.HighConfidenceThreshold)
}

func TestCascade_UserHistoryBeatsRules(t *testing.T) {
	// "перевод" would hit the transfer rule, but the user's own history for
	// this counterparty takes precedence.
	history := NewHistoryIndex([]model.ImportedTransaction{
		{Description: "ПЕРЕВОД АРЕНДА КВАРТИРЫ", Category: "rent"},
		{Description: "ПЕРЕВОД АРЕНДА КВАРТИРЫ", Category: "rent"},
		{Description: "ПЕРЕВОД АРЕНДА КВАРТИРЫ", Category: "transfer"},
	})
	cascade := NewCascade(nil, mustDB(t), history, nil)

	result, ok := cascade.CategorizeLocal(context.Background(), model.ImportedTransaction{
		ID:          "t1",
		Description: "Перевод аренда квартиры",
	})

	require.True(t, ok)
	assert.Equal(t, model.SourceUserHistory, result.Source)
	assert.Equal(t, "rent", result.CategoryID, "majority category wins")
}

func TestCascade_RulesCatchGenericPhrases(t *testing.T) {
	cascade := NewCascade(nil, mustDB(t), nil, nil)

	tests := []struct {
		description  string
		wantCategory string
	}{
		{"Зарплата за январь 2026", "salary"},
		{"Зейнетақы төлемі", "pension"},
		{"ATM CASH WITHDRAWAL", "cash"},
		{"Кэшбэк за покупки", "cashback"},
		{"Возврат средств по операции", "refund"},
		{"Вознаграждение по депозиту", "interest"},
		{"Перевод клиенту банка", "transfer"},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			result, ok := cascade.CategorizeLocal(context.Background(), model.ImportedTransaction{
				ID:          "t1",
				Description: tt.description,
			})
			require.True(t, ok)
			assert.Equal(t, model.SourceRuleBasedMatch, result.Source)
			assert.Equal(t, tt.wantCategory, result.CategoryID)
		})
	}
}

func TestCascade_BlankDescriptionNeverMatches(t *testing.T) {
	learned := &mockLearnedStore{}
	require.NoError(t, learned.Save(context.Background(), &model.LearnedMerchant{
		MerchantPattern: "", CategoryID: "ghost", Confidence: 0.99,
	}))
	history := NewHistoryIndex([]model.ImportedTransaction{{Description: "X", Category: "misc"}})
	cascade := NewCascade(learned, mustDB(t), history, nil)

	for _, description := range []string{"", "   ", "\t"} {
		_, ok := cascade.CategorizeLocal(context.Background(), model.ImportedTransaction{
			ID:          "t1",
			Description: description,
		})
		assert.False(t, ok, "description %q", description)
	}
}

func TestCascade_CategorizeAllSendsOnlyUnresolvedToModel(t *testing.T) {
	client := &mockClient{response: `[
		{"transactionId": "t2", "categoryId": "dining", "confidence": 0.8}
	]`}
	remote := NewLLMTier(client, llm.NewBudgetTracker(1.0))
	cascade := NewCascade(nil, mustDB(t), nil, remote)

	results := cascade.CategorizeAll(context.Background(), []model.ImportedTransaction{
		{ID: "t1", Description: "МАГНУМ СУПЕР АЛМАТЫ"},
		{ID: "t2", Description: "НЕИЗВЕСТНОЕ КАФЕ У ДОМА"},
		{ID: "t3", Description: "   "},
	}, testCategories())

	require.Len(t, results, 2)
	byID := make(map[string]model.CategorizationResult)
	for _, r := range results {
		byID[r.TransactionID] = r
	}
	assert.Equal(t, model.SourceMerchantDatabase, byID["t1"].Source)
	assert.Equal(t, model.SourceLLMTier2, byID["t2"].Source)
	assert.Equal(t, "dining", byID["t2"].CategoryID)

	require.Len(t, client.prompts, 1, "locally resolved transactions never reach the model")
	assert.NotContains(t, client.prompts[0], "МАГНУМ")
	assert.Contains(t, client.prompts[0], "НЕИЗВЕСТНОЕ КАФЕ")
}
