package categorize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tech1ee/finuts/internal/model"
)

func TestMerchantDB_Load(t *testing.T) {
	db, err := NewMerchantDB()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, db.Size(), 100, "catalog should cover at least a hundred merchants")
}

func TestMerchantDB_Match(t *testing.T) {
	db, err := NewMerchantDB()
	require.NoError(t, err)

	tests := []struct {
		name         string
		description  string
		wantCategory string
	}{
		{"cyrillic grocery chain with branch", "МАГНУМ СУПЕР АЛМАТЫ", "groceries"},
		{"latin transliteration", "MAGNUM SUPER", "groceries"},
		{"case-insensitive", "magnum cash carry", "groceries"},
		{"taxi", "YANDEX GO ALMATY", "taxi"},
		{"delivery", "WOLT KAZAKHSTAN", "delivery"},
		{"subscription", "NETFLIX.COM", "subscriptions"},
		{"fuel", "АЗС ГЕЛИОС 112", "fuel"},
		{"telecom", "BEELINE KZ", "telecom"},
		{"pharmacy generic", "АПТЕКА №5", "pharmacy"},
		{"airline survives normalization", "AIR ASTANA ALMATY", "travel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := db.Match(tt.description)
			require.True(t, ok, "expected a match for %q", tt.description)
			assert.Equal(t, tt.wantCategory, p.CategoryID)
			assert.GreaterOrEqual(t, p.Confidence, 0.85)
		})
	}
}

func TestMerchantDB_HighConfidenceEntries(t *testing.T) {
	db, err := NewMerchantDB()
	require.NoError(t, err)

	p, ok := db.Match("МАГНУМ СУПЕР АЛМАТЫ")
	require.True(t, ok)
	assert.GreaterOrEqual(t, p.Confidence, model.HighConfidenceThreshold,
		"known chains apply without confirmation")
}

func TestMerchantDB_NoMatch(t *testing.T) {
	db, err := NewMerchantDB()
	require.NoError(t, err)

	for _, description := range []string{"СОВЕРШЕННО НЕИЗВЕСТНЫЙ ПРОДАВЕЦ", ""} {
		_, ok := db.Match(description)
		assert.False(t, ok, "description %q", description)
	}
}
