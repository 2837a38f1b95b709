package categorize

import (
	"regexp"

	"github.com/tech1ee/finuts/internal/model"
)

// keywordRule maps a description pattern to a category when no merchant
// entry applies. Rules are ordered: the first match wins, so the most
// specific phrases come first.
type keywordRule struct {
	re         *regexp.Regexp
	categoryID string
	confidence float64
}

var keywordRules = []keywordRule{
	{regexp.MustCompile(`(?i)зарплат|заработн|жалақы|salary|payroll|wages`), "salary", 0.90},
	{regexp.MustCompile(`(?i)пенси|зейнетақы|pension`), "pension", 0.90},
	{regexp.MustCompile(`(?i)стипенди|шәкіртақы|stipend|scholarship`), "salary", 0.85},
	{regexp.MustCompile(`(?i)кэшб[эе]к|кешбэк|cashback|cash back`), "cashback", 0.88},
	{regexp.MustCompile(`(?i)возврат|қайтару|refund|reversal|chargeback`), "refund", 0.85},
	{regexp.MustCompile(`(?i)вознаграждени|процент|сыйақы|пайыз|interest`), "interest", 0.85},
	{regexp.MustCompile(`(?i)банкомат|atm|cash withdrawal|снятие налич|қолма-қол`), "cash", 0.88},
	{regexp.MustCompile(`(?i)перевод|аударым|transfer|p2p|c2c`), "transfer", 0.80},
	{regexp.MustCompile(`(?i)комисси|комиссия банка|fee\b|service charge`), "fees", 0.82},
	{regexp.MustCompile(`(?i)погашение кредита|кредит төлемі|loan payment|ипотек|mortgage`), "loan", 0.85},
	{regexp.MustCompile(`(?i)коммунал|комуслуг|utility|электроэнерг|водоснабжен`), "utilities", 0.82},
	{regexp.MustCompile(`(?i)пополнение счета мобильн|пополнение баланса|mobile top ?up`), "telecom", 0.80},
}

// matchRule returns the first rule the description matches.
func matchRule(description string) (keywordRule, bool) {
	for _, r := range keywordRules {
		if r.re.MatchString(description) {
			return r, true
		}
	}
	return keywordRule{}, false
}

// resultFromRule builds a categorization result from a rule hit.
func resultFromRule(txnID string, r keywordRule) model.CategorizationResult {
	return model.CategorizationResult{
		TransactionID: txnID,
		CategoryID:    r.categoryID,
		Source:        model.SourceRuleBasedMatch,
		Confidence:    r.confidence,
	}
}
