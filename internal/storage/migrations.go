package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// expectedSchemaVersion is the latest schema version the application
// expects. Failing to reach it is fatal.
const expectedSchemaVersion = 3

type migration struct {
	up          func(*sql.Tx) error
	description string
	version     int
}

var migrations = []migration{
	{
		version:     1,
		description: "Initial schema",
		up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					hash TEXT UNIQUE NOT NULL,
					date DATETIME NOT NULL,
					account_id TEXT,
					description TEXT NOT NULL,
					merchant TEXT,
					category TEXT,
					currency TEXT,
					amount_minor INTEGER NOT NULL,
					source TEXT NOT NULL,
					confidence REAL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_date ON transactions(date)`,
				`CREATE INDEX idx_transactions_account ON transactions(account_id)`,

				`CREATE TABLE IF NOT EXISTS categories (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					description TEXT,
					is_active INTEGER DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
			}
			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("executing %q: %w", query[:40], err)
				}
			}
			return nil
		},
	},
	{
		version:     2,
		description: "Learned merchants and corrections",
		up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS learned_merchants (
					merchant_pattern TEXT PRIMARY KEY,
					category_id TEXT NOT NULL,
					source TEXT NOT NULL DEFAULT 'USER',
					confidence REAL NOT NULL DEFAULT 0,
					sample_count INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL,
					last_used_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_learned_confidence ON learned_merchants(confidence)`,

				`CREATE TABLE IF NOT EXISTS category_corrections (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					normalized_merchant TEXT NOT NULL,
					category_id TEXT NOT NULL,
					corrected_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_corrections_pair ON category_corrections(normalized_merchant, category_id)`,
			}
			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("executing %q: %w", query[:40], err)
				}
			}
			return nil
		},
	},
	{
		version:     3,
		description: "Seed default categories",
		up: func(tx *sql.Tx) error {
			stmt, err := tx.Prepare(`INSERT OR IGNORE INTO categories (id, name, description) VALUES (?, ?, ?)`)
			if err != nil {
				return fmt.Errorf("preparing seed statement: %w", err)
			}
			defer func() { _ = stmt.Close() }()

			for _, c := range defaultCategories {
				if _, err := stmt.Exec(c.id, c.name, c.description); err != nil {
					return fmt.Errorf("seeding category %s: %w", c.id, err)
				}
			}
			return nil
		},
	},
}

var defaultCategories = []struct {
	id, name, description string
}{
	{"groceries", "Groceries", "Supermarkets and food stores"},
	{"dining", "Dining out", "Restaurants and fast food"},
	{"coffee", "Coffee", "Coffee shops and bakeries"},
	{"delivery", "Delivery", "Food and grocery delivery"},
	{"taxi", "Taxi", "Ride hailing"},
	{"transport", "Transport", "Public transport and rail"},
	{"fuel", "Fuel", "Gas stations"},
	{"marketplace", "Marketplaces", "Online marketplaces"},
	{"shopping", "Shopping", "Clothing and general retail"},
	{"electronics", "Electronics", "Electronics and appliances"},
	{"pharmacy", "Pharmacy", "Pharmacies"},
	{"health", "Health", "Clinics and labs"},
	{"beauty", "Beauty", "Cosmetics and salons"},
	{"entertainment", "Entertainment", "Cinema, games, events"},
	{"subscriptions", "Subscriptions", "Recurring digital services"},
	{"telecom", "Telecom", "Mobile and internet"},
	{"utilities", "Utilities", "Housing and utility bills"},
	{"travel", "Travel", "Airlines and long-distance travel"},
	{"hotels", "Hotels", "Hotels and short-term rentals"},
	{"finance", "Finance", "Financial services"},
	{"education", "Education", "Courses and learning"},
	{"kids", "Kids", "Children's goods"},
	{"pets", "Pets", "Pet stores and vets"},
	{"home", "Home", "Furniture and home improvement"},
	{"sport", "Sport", "Sporting goods and fitness"},
	{"household", "Household", "Household supplies"},
	{"rent", "Rent", "Housing rent"},
	{"salary", "Salary", "Salary and stipends"},
	{"pension", "Pension", "Pension payments"},
	{"cashback", "Cashback", "Cashback and rewards"},
	{"refund", "Refunds", "Returned payments"},
	{"interest", "Interest", "Deposit interest"},
	{"cash", "Cash", "ATM withdrawals"},
	{"transfer", "Transfers", "Person-to-person transfers"},
	{"fees", "Fees", "Bank fees and commissions"},
	{"loan", "Loans", "Loan and mortgage payments"},
	{"misc", "Miscellaneous", "Everything else"},
}

// runMigrations applies pending migrations inside transactions, recording
// each applied version in schema_migrations.
func runMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		description TEXT,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning migration %d: %w", m.version, err)
		}
		if err := m.up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.version, m.description, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version, description) VALUES (?, ?)`,
			m.version, m.description); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", m.version, err)
		}
		slog.Info("Applied migration", "version", m.version, "description", m.description)
	}

	var final int
	if err := db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&final); err != nil {
		return fmt.Errorf("reading final schema version: %w", err)
	}
	if final != expectedSchemaVersion {
		return fmt.Errorf("schema at version %d, expected %d", final, expectedSchemaVersion)
	}
	return nil
}
