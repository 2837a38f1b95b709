package categorize

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/tech1ee/finuts/internal/model"
	"github.com/tech1ee/finuts/internal/service"
)

// Confidence assigned by tiers that have no per-entry value of their own.
const (
	userHistoryConfidence = 0.78
	learnedDisplayFloor   = 0.95
)

// HistoryIndex answers "what category did the user give this merchant
// before" from a snapshot of already-categorized ledger transactions.
type HistoryIndex struct {
	byMerchant map[string]string
}

// NewHistoryIndex builds an index over past transactions. When a merchant
// maps to several categories, the most frequent one wins.
func NewHistoryIndex(txns []model.ImportedTransaction) *HistoryIndex {
	counts := make(map[string]map[string]int)
	for _, txn := range txns {
		if txn.Category == "" {
			continue
		}
		key := NormalizeMerchant(txn.Description)
		if key == "" {
			continue
		}
		if counts[key] == nil {
			counts[key] = make(map[string]int)
		}
		counts[key][txn.Category]++
	}

	byMerchant := make(map[string]string, len(counts))
	for key, perCategory := range counts {
		best, bestCount := "", 0
		for categoryID, n := range perCategory {
			if n > bestCount || (n == bestCount && categoryID < best) {
				best, bestCount = categoryID, n
			}
		}
		byMerchant[key] = best
	}
	return &HistoryIndex{byMerchant: byMerchant}
}

// Lookup returns the remembered category for a normalized merchant.
func (h *HistoryIndex) Lookup(normalizedMerchant string) (string, bool) {
	if h == nil || normalizedMerchant == "" {
		return "", false
	}
	categoryID, ok := h.byMerchant[normalizedMerchant]
	return categoryID, ok
}

// Cascade runs the categorization tiers in trust order: user-taught
// mappings, then the static merchant database, then the user's own
// history, then generic keyword rules, and only then the remote model.
// The first tier that answers wins; later tiers are never consulted.
type Cascade struct {
	learned service.LearnedMerchantStore
	db      *MerchantDB
	history *HistoryIndex
	remote  *LLMTier
	logger  *slog.Logger
	now     func() time.Time
}

// NewCascade wires the cascade. learned, history, and remote may be nil;
// the corresponding tiers are skipped.
func NewCascade(learned service.LearnedMerchantStore, db *MerchantDB, history *HistoryIndex, remote *LLMTier) *Cascade {
	return &Cascade{
		learned: learned,
		db:      db,
		history: history,
		remote:  remote,
		logger:  slog.Default().With("component", "categorize.cascade"),
		now:     time.Now,
	}
}

// CategorizeLocal runs the local tiers only. Returns false when no local
// tier can answer; such transactions are candidates for the remote tier.
// A blank description never matches anything.
func (c *Cascade) CategorizeLocal(ctx context.Context, txn model.ImportedTransaction) (model.CategorizationResult, bool) {
	if strings.TrimSpace(txn.Description) == "" {
		return model.CategorizationResult{}, false
	}
	normalized := NormalizeMerchant(txn.Description)

	if result, ok := c.fromLearned(ctx, txn.ID, normalized); ok {
		return result, true
	}
	if c.db != nil {
		if p, ok := c.db.Match(txn.Description); ok {
			return model.CategorizationResult{
				TransactionID: txn.ID,
				CategoryID:    p.CategoryID,
				Source:        model.SourceMerchantDatabase,
				Confidence:    p.Confidence,
			}, true
		}
	}
	if categoryID, ok := c.history.Lookup(normalized); ok {
		return model.CategorizationResult{
			TransactionID: txn.ID,
			CategoryID:    categoryID,
			Source:        model.SourceUserHistory,
			Confidence:    userHistoryConfidence,
		}, true
	}
	if r, ok := matchRule(txn.Description); ok {
		return resultFromRule(txn.ID, r), true
	}
	return model.CategorizationResult{}, false
}

// CategorizeAll categorizes a batch. Local tiers run first; whatever they
// leave unresolved goes to the remote model in one batch call, then one
// last per-transaction attempt for stragglers. Transactions no tier can
// place are simply absent from the result.
func (c *Cascade) CategorizeAll(ctx context.Context, txns []model.ImportedTransaction, categories []model.Category) []model.CategorizationResult {
	results := make([]model.CategorizationResult, 0, len(txns))
	var unresolved []model.ImportedTransaction

	for _, txn := range txns {
		if result, ok := c.CategorizeLocal(ctx, txn); ok {
			results = append(results, result)
		} else if strings.TrimSpace(txn.Description) != "" {
			unresolved = append(unresolved, txn)
		}
	}

	if c.remote == nil || len(unresolved) == 0 {
		return results
	}

	remote := c.remote.ClassifyBatch(ctx, unresolved, categories)
	answered := make(map[string]struct{}, len(remote))
	for _, r := range remote {
		answered[r.TransactionID] = struct{}{}
		results = append(results, r)
	}

	for _, txn := range unresolved {
		if _, ok := answered[txn.ID]; ok {
			continue
		}
		if result, ok := c.remote.ClassifyOne(ctx, txn, categories); ok {
			results = append(results, result)
		}
	}
	return results
}

// fromLearned consults the user-taught mappings. A hit refreshes the
// mapping's last-used timestamp; display confidence gets a floor so a
// mapping the user taught never looks tentative in the preview.
func (c *Cascade) fromLearned(ctx context.Context, txnID, normalized string) (model.CategorizationResult, bool) {
	if c.learned == nil || normalized == "" {
		return model.CategorizationResult{}, false
	}
	m, err := c.learned.FindMatch(ctx, normalized)
	if err != nil {
		c.logger.Warn("learned merchant lookup failed", "error", err)
		return model.CategorizationResult{}, false
	}
	if m == nil {
		return model.CategorizationResult{}, false
	}

	m.LastUsedAt = c.now()
	if err := c.learned.Update(ctx, m); err != nil {
		c.logger.Warn("updating learned merchant last-used failed", "error", err)
	}

	confidence := m.Confidence
	if confidence < learnedDisplayFloor {
		confidence = learnedDisplayFloor
	}
	if confidence > model.LearnedMerchantConfidenceCap {
		confidence = model.LearnedMerchantConfidenceCap
	}
	return model.CategorizationResult{
		TransactionID: txnID,
		CategoryID:    m.CategoryID,
		Source:        model.SourceUserLearned,
		Confidence:    confidence,
	}, true
}
