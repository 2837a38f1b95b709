package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/tech1ee/finuts/internal/model"
)

// Record appends one category correction.
func (s *SQLiteStorage) Record(ctx context.Context, c model.CategoryCorrection) error {
	if c.NormalizedMerchant == "" {
		return errors.New("correction has empty merchant")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO category_corrections (normalized_merchant, category_id, corrected_at)
		VALUES (?, ?, ?)
	`, c.NormalizedMerchant, c.CategoryID, c.CorrectedAt)
	if err != nil {
		return fmt.Errorf("recording correction for %q: %w", c.NormalizedMerchant, err)
	}
	return nil
}

// CountFor returns how many times this merchant has been corrected to
// this category.
func (s *SQLiteStorage) CountFor(ctx context.Context, normalizedMerchant, categoryID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM category_corrections
		WHERE normalized_merchant = ? AND category_id = ?
	`, normalizedMerchant, categoryID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting corrections for %q: %w", normalizedMerchant, err)
	}
	return n, nil
}
