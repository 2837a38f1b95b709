// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/tech1ee/finuts/internal/model"
)

// OCRResult is the output of text recognition over one image.
type OCRResult struct {
	FullText   string
	Confidence float64
}

// OCRClient converts an image to text. Implementations are platform
// services injected by the application; the core never references a
// concrete engine.
type OCRClient interface {
	RecognizeText(ctx context.Context, image []byte) (*OCRResult, error)
}

// Page is one rasterized page of a document, ready for OCR.
type Page struct {
	Image []byte
	Index int
}

// PageExtractor splits a document into pages.
type PageExtractor interface {
	ExtractPages(ctx context.Context, document []byte) ([]Page, error)
}

// TextExtractor pulls an embedded text layer out of a document, if one
// exists. Documents with a usable text layer skip OCR entirely.
type TextExtractor interface {
	ExtractText(ctx context.Context, document []byte) (string, error)
}

// CostTracker bounds spending on remote model calls. CanExecute and Record
// must be safe for concurrent use: implementations serialize both so a
// budget check and the following record cannot race past the limit.
type CostTracker interface {
	CanExecute(estimatedCostUSD float64) bool
	Record(inputTokens, outputTokens int, model string)
}

// LedgerStore is the persisted transaction ledger, used for duplicate
// detection and for saving confirmed imports.
type LedgerStore interface {
	SaveTransactions(ctx context.Context, txns []model.ImportedTransaction) error
	GetByDateRange(ctx context.Context, start, end time.Time) ([]model.ImportedTransaction, error)
	GetByAccount(ctx context.Context, accountID string) ([]model.ImportedTransaction, error)
}

// LearnedMerchantStore persists user-taught merchant→category mappings.
type LearnedMerchantStore interface {
	Save(ctx context.Context, m *model.LearnedMerchant) error
	Update(ctx context.Context, m *model.LearnedMerchant) error
	// FindMatch returns the mapping whose pattern equals or is contained in
	// the normalized description, or nil when nothing matches.
	FindMatch(ctx context.Context, normalizedDescription string) (*model.LearnedMerchant, error)
	GetByPattern(ctx context.Context, pattern string) (*model.LearnedMerchant, error)
	GetHighConfidence(ctx context.Context, minConfidence float64) ([]model.LearnedMerchant, error)
	GetBySource(ctx context.Context, source model.LearnedSource) ([]model.LearnedMerchant, error)
}

// CorrectionStore records user category corrections.
type CorrectionStore interface {
	Record(ctx context.Context, c model.CategoryCorrection) error
	CountFor(ctx context.Context, normalizedMerchant, categoryID string) (int, error)
}

// CategoryStore exposes the category taxonomy.
type CategoryStore interface {
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByID(ctx context.Context, id string) (*model.Category, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
