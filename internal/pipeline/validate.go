package pipeline

import (
	"fmt"
	"time"

	"github.com/tech1ee/finuts/internal/model"
)

// validateTransactions collects non-fatal findings about parsed
// transactions. Warnings surface in the preview; they never block a save.
func validateTransactions(txns []model.ImportedTransaction, now time.Time) []string {
	var warnings []string
	today := now.Truncate(24 * time.Hour)

	for i, txn := range txns {
		if txn.Date.After(today.Add(24 * time.Hour)) {
			warnings = append(warnings, fmt.Sprintf(
				"transaction %d (%s) is dated in the future: %s",
				i+1, txn.Description, txn.Date.Format("2006-01-02")))
		}
		if txn.AmountMinor == 0 {
			warnings = append(warnings, fmt.Sprintf(
				"transaction %d (%s) has a zero amount", i+1, txn.Description))
		}
	}
	return warnings
}
