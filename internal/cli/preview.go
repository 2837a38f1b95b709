package cli

import (
	"fmt"
	"strings"

	"github.com/tech1ee/finuts/internal/model"
)

// RenderPreview formats an import preview for the terminal. Exact
// duplicates are dimmed and marked excluded; probable duplicates carry a
// warning marker but stay selected.
func RenderPreview(preview *model.ImportPreview) string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(fmt.Sprintf("Import preview: %d transactions", len(preview.Transactions))))
	b.WriteString("\n")

	for i, txn := range preview.Transactions {
		line := fmt.Sprintf("%s  %12s  %-12s  %s",
			txn.Date.Format("2006-01-02"),
			FormatAmount(txn.AmountMinor, txn.Currency),
			orDash(txn.Category),
			txn.Description)

		status := preview.Statuses[i]
		switch status.(type) {
		case model.ExactDuplicate:
			line = SubtleStyle.Render("[skip] " + line + "  (already in ledger)")
		case model.ProbableDuplicate:
			line = WarningStyle.Render("[dup?] ") + line
		default:
			line = "       " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if len(preview.Warnings) > 0 {
		b.WriteString("\n")
		b.WriteString(WarningStyle.Render(fmt.Sprintf("%d warnings:", len(preview.Warnings))))
		b.WriteString("\n")
		for _, w := range preview.Warnings {
			b.WriteString(WarningStyle.Render("  ! " + w))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// RenderCompletion formats the post-save summary.
func RenderCompletion(saved, previewed int) string {
	msg := fmt.Sprintf("Saved %d of %d transactions.", saved, previewed)
	return SuccessStyle.Render(msg)
}

// FormatAmount renders signed minor units as a human amount.
func FormatAmount(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	s := fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
	if currency != "" {
		s += " " + currency
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
