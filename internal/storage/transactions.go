package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tech1ee/finuts/internal/model"
)

// SaveTransactions inserts transactions in one database transaction.
// Rows whose hash already exists are skipped, so re-saving an import
// cannot create duplicates.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, txns []model.ImportedTransaction) error {
	if len(txns) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO transactions (
			id, hash, date, account_id, description, merchant,
			category, currency, amount_minor, source, confidence
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range txns {
		t := &txns[i]
		if _, err := stmt.ExecContext(ctx,
			t.ID, t.Hash(), t.Date, t.AccountID, t.Description, t.Merchant,
			t.Category, t.Currency, t.AmountMinor, string(t.Source), t.Confidence,
		); err != nil {
			return fmt.Errorf("inserting transaction %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

// GetByDateRange returns transactions with start <= date <= end, oldest first.
func (s *SQLiteStorage) GetByDateRange(ctx context.Context, start, end time.Time) ([]model.ImportedTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, account_id, description, merchant, category,
		       currency, amount_minor, source, confidence
		FROM transactions
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying by date range: %w", err)
	}
	return collectTransactions(rows)
}

// GetByAccount returns all transactions of one account, oldest first.
func (s *SQLiteStorage) GetByAccount(ctx context.Context, accountID string) ([]model.ImportedTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, account_id, description, merchant, category,
		       currency, amount_minor, source, confidence
		FROM transactions
		WHERE account_id = ?
		ORDER BY date ASC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("querying by account: %w", err)
	}
	return collectTransactions(rows)
}

func collectTransactions(rows *sql.Rows) ([]model.ImportedTransaction, error) {
	defer func() { _ = rows.Close() }()

	var txns []model.ImportedTransaction
	for rows.Next() {
		var (
			t         model.ImportedTransaction
			accountID sql.NullString
			merchant  sql.NullString
			category  sql.NullString
			currency  sql.NullString
			source    string
		)
		if err := rows.Scan(&t.ID, &t.Date, &accountID, &t.Description, &merchant,
			&category, &currency, &t.AmountMinor, &source, &t.Confidence); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		t.AccountID = accountID.String
		t.Merchant = merchant.String
		t.Category = category.String
		t.Currency = currency.String
		t.Source = model.ImportSource(source)
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}
	return txns, nil
}
