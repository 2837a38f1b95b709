// Package model defines the core domain models used throughout the application.
package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// TransactionType describes what kind of money movement a transaction is,
// as inferred by the cloud enhancer. Empty means unknown.
type TransactionType string

// Transaction type constants.
const (
	TypeDebit    TransactionType = "DEBIT"
	TypeCredit   TransactionType = "CREDIT"
	TypeTransfer TransactionType = "TRANSFER"
	TypeFee      TransactionType = "FEE"
	TypeInterest TransactionType = "INTEREST"
	TypeRefund   TransactionType = "REFUND"
)

// PartialTransaction is the output of local extraction: a transaction whose
// date is still the raw matched string and whose enhancement fields may be
// empty. Amounts are always signed integer minor units (cents/kopecks/tiyn);
// the extractor never produces floats.
type PartialTransaction struct {
	RawDate          string
	RawDescription   string
	Currency         string // ISO 4217 code, empty when undetected
	Merchant         string
	CounterpartyName string
	CategoryHint     string
	Type             TransactionType
	AmountMinor      int64
}

// IsDebit reports whether the transaction is an expense.
func (p PartialTransaction) IsDebit() bool {
	return p.AmountMinor < 0
}

// IsCredit reports whether the transaction is income.
func (p PartialTransaction) IsCredit() bool {
	return p.AmountMinor > 0
}

// WithEnhancement returns a copy with the enhancement fields replaced.
// Extraction results are treated as immutable; the enhancer builds new
// values instead of mutating instances shared across goroutines.
func (p PartialTransaction) WithEnhancement(merchant, counterparty, categoryHint string, txType TransactionType) PartialTransaction {
	out := p
	out.Merchant = merchant
	out.CounterpartyName = counterparty
	out.CategoryHint = categoryHint
	out.Type = txType
	return out
}

// ImportSource records which part of the pipeline produced a transaction.
type ImportSource string

// Import source constants.
const (
	SourceRuleBased   ImportSource = "RULE_BASED"
	SourceDocumentAI  ImportSource = "DOCUMENT_AI"
	SourceLLMEnhanced ImportSource = "LLM_ENHANCED"
)

// ImportedTransaction is the final normalized form of an extracted
// transaction, ready for preview and persistence.
type ImportedTransaction struct {
	Date        time.Time
	ID          string
	AccountID   string
	Description string
	Merchant    string
	Category    string
	Currency    string
	Source      ImportSource
	Confidence  float64
	AmountMinor int64
}

// Hash returns a stable digest over the fields that identify a transaction
// for duplicate detection.
func (t *ImportedTransaction) Hash() string {
	data := fmt.Sprintf("%s:%d:%s:%s",
		t.Date.Format("2006-01-02"),
		t.AmountMinor,
		t.Description,
		t.AccountID)
	sum := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", sum)
}

// IsDebit reports whether the transaction is an expense.
func (t *ImportedTransaction) IsDebit() bool {
	return t.AmountMinor < 0
}
