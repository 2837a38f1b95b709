package categorize

import (
	_ "embed"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/tech1ee/finuts/internal/model"
)

//go:embed merchants.yaml
var merchantsYAML []byte

type merchantEntry struct {
	Pattern    string  `yaml:"pattern"`
	Name       string  `yaml:"name"`
	Category   string  `yaml:"category"`
	Confidence float64 `yaml:"confidence"`
}

type merchantFile struct {
	Merchants []merchantEntry `yaml:"merchants"`
}

// MerchantDB is the static merchant database, loaded from the embedded
// catalog at startup. First matching entry wins, so broader patterns
// belong later in the file.
type MerchantDB struct {
	patterns []model.MerchantPattern
}

// NewMerchantDB parses and compiles the embedded merchant catalog.
func NewMerchantDB() (*MerchantDB, error) {
	var file merchantFile
	if err := yaml.Unmarshal(merchantsYAML, &file); err != nil {
		return nil, fmt.Errorf("parsing merchant catalog: %w", err)
	}

	patterns := make([]model.MerchantPattern, 0, len(file.Merchants))
	for _, e := range file.Merchants {
		re, err := regexp.Compile("(?i)" + e.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compiling merchant pattern %q: %w", e.Pattern, err)
		}
		patterns = append(patterns, model.MerchantPattern{
			Pattern:     re,
			CategoryID:  e.Category,
			DisplayName: e.Name,
			Confidence:  model.ClampConfidence(e.Confidence),
		})
	}
	return &MerchantDB{patterns: patterns}, nil
}

// Match looks a description up in the catalog. It tries the normalized
// form first and falls back to the raw text, so branch suffixes stripped
// by normalization cannot hide a match and patterns anchored on words
// the normalizer removes still work.
func (db *MerchantDB) Match(description string) (model.MerchantPattern, bool) {
	normalized := NormalizeMerchant(description)
	for _, p := range db.patterns {
		if normalized != "" && p.Pattern.MatchString(normalized) {
			return p, true
		}
		if p.Pattern.MatchString(description) {
			return p, true
		}
	}
	return model.MerchantPattern{}, false
}

// Size returns the number of catalog entries.
func (db *MerchantDB) Size() int {
	return len(db.patterns)
}
