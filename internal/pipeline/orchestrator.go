package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tech1ee/finuts/internal/anonymize"
	"github.com/tech1ee/finuts/internal/categorize"
	"github.com/tech1ee/finuts/internal/common"
	"github.com/tech1ee/finuts/internal/dedup"
	"github.com/tech1ee/finuts/internal/enhance"
	"github.com/tech1ee/finuts/internal/extract"
	"github.com/tech1ee/finuts/internal/model"
	"github.com/tech1ee/finuts/internal/preprocess"
	"github.com/tech1ee/finuts/internal/service"
)

const (
	// ocrConcurrency bounds parallel page recognition.
	ocrConcurrency = 4
	// localExtractionConfidence is the base confidence of the regex
	// extractor; it is scaled down by OCR confidence when the text came
	// from recognition rather than an embedded text layer.
	localExtractionConfidence = 0.9
	// minAverageConfidence is the floor below which the import refuses to
	// build a preview and asks for manual entry instead.
	minAverageConfidence = 0.5
	// dedupLookaroundDays widens the ledger query window beyond the
	// imported date span so near-boundary duplicates are still visible.
	dedupLookaroundDays = 7
)

// Deps wires the orchestrator. TextExtractor, PageExtractor/OCRClient,
// Enhancer, DocumentParser, and Cascade are optional; missing pieces
// degrade the pipeline rather than break it.
type Deps struct {
	Text       service.TextExtractor
	Pages      service.PageExtractor
	OCR        service.OCRClient
	Enhancer   *enhance.Enhancer
	DocParser  *enhance.DocumentParser
	Cascade    *categorize.Cascade
	Ledger     service.LedgerStore
	Categories service.CategoryStore
}

// Orchestrator drives one import session at a time.
type Orchestrator struct {
	deps     Deps
	detector *dedup.Detector
	tracker  *Tracker
	logger   *slog.Logger
	now      func() time.Time
}

// NewOrchestrator creates an orchestrator with an Idle progress tracker.
func NewOrchestrator(deps Deps) *Orchestrator {
	return &Orchestrator{
		deps:     deps,
		detector: dedup.NewDetector(),
		tracker:  NewTracker(),
		logger:   slog.Default().With("component", "pipeline"),
		now:      time.Now,
	}
}

// Progress exposes the state machine for subscribers (CLI progress bars).
func (o *Orchestrator) Progress() *Tracker {
	return o.tracker
}

// Import runs the pipeline up to the confirmation point and returns the
// preview. The session then sits in AwaitingConfirmation until Confirm or
// Cancel. A cancelled context stops the pipeline before any further
// remote calls.
func (o *Orchestrator) Import(ctx context.Context, doc model.Document, accountID string) (*model.ImportPreview, error) {
	if err := o.tracker.Transition(model.DetectingFormat{}); err != nil {
		return nil, err
	}

	text, textConfidence, err := o.acquireText(ctx, doc)
	if err != nil {
		return nil, o.fail(err, "Could not read any text from this document.",
			"Try exporting the statement as CSV or OFX instead.")
	}
	if err := o.checkCancelled(ctx); err != nil {
		return nil, err
	}

	if err := o.tracker.Transition(model.Parsing{}); err != nil {
		return nil, err
	}
	pre := preprocess.Process(text)

	txns, err := o.parseTransactions(ctx, pre, textConfidence, accountID)
	if err != nil {
		return nil, err
	}

	if err := o.tracker.Transition(model.Validating{}); err != nil {
		return nil, err
	}
	warnings := validateTransactions(txns, o.now())

	if err := o.tracker.Transition(model.Deduplicating{}); err != nil {
		return nil, err
	}
	statuses, err := o.deduplicate(ctx, txns)
	if err != nil {
		return nil, o.fail(err, "Could not check the ledger for duplicates.", "")
	}

	if err := o.checkCancelled(ctx); err != nil {
		return nil, err
	}
	if err := o.tracker.Transition(model.Categorizing{}); err != nil {
		return nil, err
	}
	o.categorize(ctx, txns)

	preview := &model.ImportPreview{Transactions: txns, Statuses: statuses, Warnings: warnings}
	if err := o.tracker.Transition(model.AwaitingConfirmation{Preview: preview}); err != nil {
		return nil, err
	}
	return preview, nil
}

// ImportParsed runs the pipeline tail over transactions that arrived in
// machine-readable form (OFX, CSV): validation, dedup, categorization,
// and the same confirmation handshake. Extraction and enhancement are
// skipped; the data is already exact.
func (o *Orchestrator) ImportParsed(ctx context.Context, txns []model.ImportedTransaction) (*model.ImportPreview, error) {
	for _, step := range []model.ImportProgress{model.DetectingFormat{}, model.Parsing{}} {
		if err := o.tracker.Transition(step); err != nil {
			return nil, err
		}
	}
	if len(txns) == 0 {
		return nil, o.fail(common.ErrNoTransactions, "The file contains no transactions.", "")
	}
	if err := o.checkCancelled(ctx); err != nil {
		return nil, err
	}

	if err := o.tracker.Transition(model.Validating{}); err != nil {
		return nil, err
	}
	warnings := validateTransactions(txns, o.now())

	if err := o.tracker.Transition(model.Deduplicating{}); err != nil {
		return nil, err
	}
	statuses, err := o.deduplicate(ctx, txns)
	if err != nil {
		return nil, o.fail(err, "Could not check the ledger for duplicates.", "")
	}

	if err := o.tracker.Transition(model.Categorizing{}); err != nil {
		return nil, err
	}
	o.categorize(ctx, txns)

	preview := &model.ImportPreview{Transactions: txns, Statuses: statuses, Warnings: warnings}
	if err := o.tracker.Transition(model.AwaitingConfirmation{Preview: preview}); err != nil {
		return nil, err
	}
	return preview, nil
}

// Confirm saves the selected subset of the preview. selected is parallel
// to preview.Transactions; nil means "default selection", which includes
// everything except exact duplicates.
func (o *Orchestrator) Confirm(ctx context.Context, preview *model.ImportPreview, selected []bool) (int, error) {
	if err := o.tracker.Transition(model.Saving{}); err != nil {
		return 0, err
	}

	var toSave []model.ImportedTransaction
	for i, txn := range preview.Transactions {
		keep := model.SelectedByDefault(preview.Statuses[i])
		if selected != nil && i < len(selected) {
			keep = selected[i]
		}
		if keep {
			toSave = append(toSave, txn)
		}
	}

	if err := o.deps.Ledger.SaveTransactions(ctx, toSave); err != nil {
		return 0, o.fail(err, "Saving the import failed.", "")
	}
	if err := o.tracker.Transition(model.Completed{SavedCount: len(toSave)}); err != nil {
		return 0, err
	}
	o.logger.Info("Import completed", "saved", len(toSave), "previewed", len(preview.Transactions))
	return len(toSave), nil
}

// Cancel aborts the session.
func (o *Orchestrator) Cancel() {
	if err := o.tracker.Transition(model.Cancelled{}); err != nil {
		o.logger.Debug("cancel ignored", "error", err)
	}
}

// Reset prepares the orchestrator for a new session.
func (o *Orchestrator) Reset() {
	o.tracker.Reset()
}

// acquireText obtains document text. Plain text documents pass through
// as-is, PDFs prefer the embedded text layer, images and scans fall back
// to per-page OCR. The returned confidence is 1.0 for exact text and the
// mean OCR confidence otherwise.
func (o *Orchestrator) acquireText(ctx context.Context, doc model.Document) (string, float64, error) {
	if doc.Kind == model.KindText {
		return string(doc.Data), 1.0, nil
	}

	if doc.Kind != model.KindImage && o.deps.Text != nil {
		text, err := o.deps.Text.ExtractText(ctx, doc.Data)
		switch {
		case err == nil:
			return text, 1.0, nil
		case errors.Is(err, common.ErrNoTextLayer):
			o.logger.Info("no text layer, falling back to recognition")
		default:
			return "", 0, err
		}
	}

	if o.deps.Pages == nil || o.deps.OCR == nil {
		return "", 0, common.ErrNoTextLayer
	}
	pages, err := o.deps.Pages.ExtractPages(ctx, doc.Data)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", common.ErrPageExtraction, err)
	}
	if len(pages) == 0 {
		return "", 0, common.ErrNoPages
	}
	return o.recognizePages(ctx, pages)
}

// recognizePages runs OCR over pages concurrently, preserving page order
// in the output. Individual page failures are tolerated; only a fully
// failed document is an error.
func (o *Orchestrator) recognizePages(ctx context.Context, pages []service.Page) (string, float64, error) {
	results := make([]*service.OCRResult, len(pages))
	sem := make(chan struct{}, ocrConcurrency)
	var wg sync.WaitGroup

	for i, page := range pages {
		wg.Add(1)
		go func(i int, page service.Page) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}
			result, err := o.deps.OCR.RecognizeText(ctx, page.Image)
			if err != nil {
				o.logger.Warn("page recognition failed", "page", page.Index, "error", err)
				return
			}
			results[i] = result
		}(i, page)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	var (
		text            string
		confidenceSum   float64
		recognizedPages int
	)
	for _, r := range results {
		if r == nil {
			continue
		}
		text += r.FullText + "\n"
		confidenceSum += r.Confidence
		recognizedPages++
	}
	if recognizedPages == 0 {
		return "", 0, common.ErrOCRFailed
	}
	return text, confidenceSum / float64(recognizedPages), nil
}

// parseTransactions runs extraction and enhancement over preprocessed
// text. PII is replaced with placeholders before anything leaves the
// process and restored afterward. When local extraction finds nothing,
// the whole (anonymized) document goes to the remote parser.
func (o *Orchestrator) parseTransactions(ctx context.Context, pre model.PreprocessResult, textConfidence float64, accountID string) ([]model.ImportedTransaction, error) {
	extractor := extract.NewWithHints(pre.Hints)
	partials := extractor.Extract(pre.Lines)

	anonymizer := anonymize.New()
	mapping := make(map[string]string)

	if len(partials) == 0 {
		txns := o.parseRemotely(ctx, pre.CleanedText, accountID)
		if len(txns) == 0 {
			return nil, o.fail(common.ErrNoTransactions,
				"No transactions were found in this document.",
				"Check that this is a bank statement or receipt, or import CSV/OFX.")
		}
		return txns, nil
	}

	for i := range partials {
		result := anonymizer.Anonymize(partials[i].RawDescription)
		partials[i].RawDescription = result.Text
		for placeholder, original := range result.Mapping {
			mapping[placeholder] = original
		}
	}

	if err := o.checkCancelled(ctx); err != nil {
		return nil, err
	}
	if o.deps.Enhancer != nil {
		partials = o.deps.Enhancer.Enhance(ctx, partials)
	}

	txns := make([]model.ImportedTransaction, 0, len(partials))
	var confidenceSum float64
	for _, p := range partials {
		date, err := extract.ParseDate(p.RawDate)
		if err != nil {
			o.logger.Warn("dropping transaction with unparseable date", "raw_date", p.RawDate)
			continue
		}
		source := model.SourceRuleBased
		if p.Merchant != "" || p.CategoryHint != "" || p.Type != "" {
			source = model.SourceLLMEnhanced
		}
		confidence := localExtractionConfidence * textConfidence
		confidenceSum += confidence

		description := anonymize.Deanonymize(p.RawDescription, mapping)
		merchant := anonymize.Deanonymize(p.Merchant, mapping)
		if p.CounterpartyName != "" && merchant == "" {
			merchant = anonymize.Deanonymize(p.CounterpartyName, mapping)
		}

		txns = append(txns, model.ImportedTransaction{
			ID:          uuid.NewString(),
			Date:        date,
			AccountID:   accountID,
			Description: description,
			Merchant:    merchant,
			Currency:    p.Currency,
			Source:      source,
			Confidence:  confidence,
			AmountMinor: p.AmountMinor,
		})
	}

	if len(txns) == 0 {
		return nil, o.fail(common.ErrNoTransactions,
			"No transactions were found in this document.",
			"Check that this is a bank statement or receipt, or import CSV/OFX.")
	}
	if avg := confidenceSum / float64(len(txns)); avg < minAverageConfidence {
		return nil, o.fail(
			fmt.Errorf("average extraction confidence %.2f below %.2f", avg, minAverageConfidence),
			"The document was too unclear to import automatically.",
			"Enter these transactions manually or re-scan the document.")
	}
	return txns, nil
}

// parseRemotely sends the document text to the remote parser, which
// anonymizes it internally before any network call.
func (o *Orchestrator) parseRemotely(ctx context.Context, cleanedText string, accountID string) []model.ImportedTransaction {
	if o.deps.DocParser == nil || ctx.Err() != nil {
		return nil
	}
	txns := o.deps.DocParser.Parse(ctx, cleanedText)
	for i := range txns {
		txns[i].AccountID = accountID
	}
	return txns
}

// deduplicate classifies candidates against the stored ledger around the
// imported date span.
func (o *Orchestrator) deduplicate(ctx context.Context, txns []model.ImportedTransaction) ([]model.DuplicateStatus, error) {
	if len(txns) == 0 || o.deps.Ledger == nil {
		return o.detector.ClassifyAll(txns, nil), nil
	}

	start, end := txns[0].Date, txns[0].Date
	for _, txn := range txns[1:] {
		if txn.Date.Before(start) {
			start = txn.Date
		}
		if txn.Date.After(end) {
			end = txn.Date
		}
	}
	lookaround := dedupLookaroundDays * 24 * time.Hour
	ledger, err := o.deps.Ledger.GetByDateRange(ctx, start.Add(-lookaround), end.Add(lookaround))
	if err != nil {
		return nil, err
	}
	return o.detector.ClassifyAll(txns, ledger), nil
}

// categorize fills Category on each transaction the cascade can place.
func (o *Orchestrator) categorize(ctx context.Context, txns []model.ImportedTransaction) {
	if o.deps.Cascade == nil {
		return
	}
	var categories []model.Category
	if o.deps.Categories != nil {
		var err error
		categories, err = o.deps.Categories.GetCategories(ctx)
		if err != nil {
			o.logger.Warn("loading categories failed", "error", err)
		}
	}

	results := o.deps.Cascade.CategorizeAll(ctx, txns, categories)
	byID := make(map[string]model.CategorizationResult, len(results))
	for _, r := range results {
		byID[r.TransactionID] = r
	}
	for i := range txns {
		if r, ok := byID[txns[i].ID]; ok {
			txns[i].Category = r.CategoryID
		}
	}
}

// checkCancelled turns context cancellation into the Cancelled state.
func (o *Orchestrator) checkCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		if terr := o.tracker.Transition(model.Cancelled{}); terr != nil {
			o.logger.Debug("cancel transition rejected", "error", terr)
		}
		return err
	}
	return nil
}

// fail moves the session to Failed and wraps the cause for the user.
func (o *Orchestrator) fail(err error, userMessage, suggestion string) error {
	if terr := o.tracker.Transition(model.Failed{Message: userMessage}); terr != nil {
		o.logger.Debug("fail transition rejected", "error", terr)
	}
	return &common.UserError{Err: err, UserMessage: userMessage, Suggestion: suggestion}
}
