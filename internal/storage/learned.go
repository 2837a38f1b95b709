package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/tech1ee/finuts/internal/common"
	"github.com/tech1ee/finuts/internal/model"
)

const learnedColumns = `merchant_pattern, category_id, source, confidence, sample_count, created_at, last_used_at`

// Save inserts a learned merchant mapping.
func (s *SQLiteStorage) Save(ctx context.Context, m *model.LearnedMerchant) error {
	if m.MerchantPattern == "" {
		return errors.New("learned merchant has empty pattern")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO learned_merchants (`+learnedColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, m.MerchantPattern, m.CategoryID, string(m.Source), m.Confidence,
		m.SampleCount, m.CreatedAt, m.LastUsedAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("%w: learned merchant %q", common.ErrDuplicateEntry, m.MerchantPattern)
		}
		return fmt.Errorf("saving learned merchant %q: %w", m.MerchantPattern, err)
	}
	return nil
}

// Update rewrites an existing mapping, keyed by pattern.
func (s *SQLiteStorage) Update(ctx context.Context, m *model.LearnedMerchant) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE learned_merchants
		SET category_id = ?, source = ?, confidence = ?, sample_count = ?, last_used_at = ?
		WHERE merchant_pattern = ?
	`, m.CategoryID, string(m.Source), m.Confidence, m.SampleCount, m.LastUsedAt, m.MerchantPattern)
	if err != nil {
		return fmt.Errorf("updating learned merchant %q: %w", m.MerchantPattern, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("learned merchant %q does not exist", m.MerchantPattern)
	}
	return nil
}

// FindMatch returns the mapping whose pattern equals the normalized
// description or is contained in it, preferring the longest pattern.
func (s *SQLiteStorage) FindMatch(ctx context.Context, normalizedDescription string) (*model.LearnedMerchant, error) {
	if normalizedDescription == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+learnedColumns+`
		FROM learned_merchants
		WHERE ? = merchant_pattern OR instr(?, merchant_pattern) > 0
		ORDER BY length(merchant_pattern) DESC
		LIMIT 1
	`, normalizedDescription, normalizedDescription)
	return scanLearned(row)
}

// GetByPattern returns the mapping with exactly this pattern, or nil.
func (s *SQLiteStorage) GetByPattern(ctx context.Context, pattern string) (*model.LearnedMerchant, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+learnedColumns+`
		FROM learned_merchants
		WHERE merchant_pattern = ?
	`, pattern)
	return scanLearned(row)
}

// GetHighConfidence returns mappings at or above minConfidence.
func (s *SQLiteStorage) GetHighConfidence(ctx context.Context, minConfidence float64) ([]model.LearnedMerchant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+learnedColumns+`
		FROM learned_merchants
		WHERE confidence >= ?
		ORDER BY confidence DESC, merchant_pattern ASC
	`, minConfidence)
	if err != nil {
		return nil, fmt.Errorf("querying high-confidence merchants: %w", err)
	}
	return collectLearned(rows)
}

// GetBySource returns mappings created by the given source.
func (s *SQLiteStorage) GetBySource(ctx context.Context, source model.LearnedSource) ([]model.LearnedMerchant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+learnedColumns+`
		FROM learned_merchants
		WHERE source = ?
		ORDER BY merchant_pattern ASC
	`, string(source))
	if err != nil {
		return nil, fmt.Errorf("querying merchants by source: %w", err)
	}
	return collectLearned(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLearnedInto(sc rowScanner, m *model.LearnedMerchant) error {
	var source string
	if err := sc.Scan(&m.MerchantPattern, &m.CategoryID, &source,
		&m.Confidence, &m.SampleCount, &m.CreatedAt, &m.LastUsedAt); err != nil {
		return err
	}
	m.Source = model.LearnedSource(source)
	return nil
}

func scanLearned(row *sql.Row) (*model.LearnedMerchant, error) {
	var m model.LearnedMerchant
	err := scanLearnedInto(row, &m)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning learned merchant: %w", err)
	}
	return &m, nil
}

func collectLearned(rows *sql.Rows) ([]model.LearnedMerchant, error) {
	defer func() { _ = rows.Close() }()

	var out []model.LearnedMerchant
	for rows.Next() {
		var m model.LearnedMerchant
		if err := scanLearnedInto(rows, &m); err != nil {
			return nil, fmt.Errorf("scanning learned merchant: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating learned merchants: %w", err)
	}
	return out, nil
}
