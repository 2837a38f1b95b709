package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tech1ee/finuts/internal/categorize"
	"github.com/tech1ee/finuts/internal/common"
	"github.com/tech1ee/finuts/internal/model"
	"github.com/tech1ee/finuts/internal/service"
)

func pdfDoc(data string) model.Document {
	return model.Document{Kind: model.KindPDF, Name: "statement.pdf", Data: []byte(data)}
}

func newTestCascade(t *testing.T) *categorize.Cascade {
	t.Helper()
	db, err := categorize.NewMerchantDB()
	require.NoError(t, err)
	return categorize.NewCascade(nil, db, nil, nil)
}

const statementText = `Выписка по счету
Период: 01.01.2026 - 31.01.2026
15.01.2026 Покупка MAGNUM SUPER -3 700,00 ₸
16.01.2026 Пополнение +15 000,00 ₸
17.01.2026 Оплата WOLT KAZAKHSTAN -4 500,00 ₸`

type fakeText struct {
	text string
	err  error
}

func (f *fakeText) ExtractText(context.Context, []byte) (string, error) {
	return f.text, f.err
}

type fakePages struct {
	pages []service.Page
	err   error
}

func (f *fakePages) ExtractPages(context.Context, []byte) ([]service.Page, error) {
	return f.pages, f.err
}

// fakeOCR keys scripted results by the page image content.
type fakeOCR struct {
	mu      sync.Mutex
	results map[string]*service.OCRResult
	errs    map[string]error
	calls   int
}

func (f *fakeOCR) RecognizeText(_ context.Context, image []byte) (*service.OCRResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if err := f.errs[string(image)]; err != nil {
		return nil, err
	}
	if r := f.results[string(image)]; r != nil {
		return r, nil
	}
	return nil, errors.New("unscripted page")
}

type fakeLedger struct {
	mu       sync.Mutex
	existing []model.ImportedTransaction
	saved    []model.ImportedTransaction
	rangeErr error
}

func (f *fakeLedger) SaveTransactions(_ context.Context, txns []model.ImportedTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, txns...)
	return nil
}

func (f *fakeLedger) GetByDateRange(context.Context, time.Time, time.Time) ([]model.ImportedTransaction, error) {
	if f.rangeErr != nil {
		return nil, f.rangeErr
	}
	return f.existing, nil
}

func (f *fakeLedger) GetByAccount(context.Context, string) ([]model.ImportedTransaction, error) {
	return f.existing, nil
}

func newOrchestrator(deps Deps) *Orchestrator {
	o := NewOrchestrator(deps)
	o.now = func() time.Time { return time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC) }
	return o
}

func TestImport_TextLayerHappyPath(t *testing.T) {
	ledger := &fakeLedger{}
	o := newOrchestrator(Deps{
		Text:   &fakeText{text: statementText},
		Ledger: ledger,
	})
	var states []string
	o.Progress().Subscribe(func(p model.ImportProgress) { states = append(states, progressKind(p)) })

	preview, err := o.Import(context.Background(), pdfDoc("%PDF"), "acc-1")
	require.NoError(t, err)
	require.Len(t, preview.Transactions, 3)
	require.Len(t, preview.Statuses, 3)

	first := preview.Transactions[0]
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, int64(-370000), first.AmountMinor)
	assert.Equal(t, "KZT", first.Currency)
	assert.Equal(t, "acc-1", first.AccountID)
	assert.Equal(t, model.SourceRuleBased, first.Source)
	assert.InDelta(t, 0.9, first.Confidence, 1e-9, "text layer keeps full extraction confidence")
	for _, status := range preview.Statuses {
		assert.IsType(t, model.Unique{}, status)
	}

	assert.Equal(t, []string{
		"detecting_format", "parsing", "validating", "deduplicating",
		"categorizing", "awaiting_confirmation",
	}, states)

	saved, err := o.Confirm(context.Background(), preview, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, saved)
	assert.Len(t, ledger.saved, 3)
	assert.IsType(t, model.Completed{}, o.Progress().Current())
}

func TestImport_PlainTextBypassesExtraction(t *testing.T) {
	o := newOrchestrator(Deps{Ledger: &fakeLedger{}})

	doc := model.Document{Kind: model.KindText, Name: "statement.txt", Data: []byte(statementText)}
	preview, err := o.Import(context.Background(), doc, "acc-1")
	require.NoError(t, err, "text documents need no extractor at all")
	require.Len(t, preview.Transactions, 3)
	assert.InDelta(t, 0.9, preview.Transactions[0].Confidence, 1e-9)
}

func TestImport_ImageSkipsTextLayer(t *testing.T) {
	ocr := &fakeOCR{results: map[string]*service.OCRResult{
		"photo": {FullText: "15.01.2026 Покупка MAGNUM -1 000,00 ₸", Confidence: 0.95},
	}}
	o := newOrchestrator(Deps{
		Text:   &fakeText{text: "must not be consulted"},
		Pages:  &fakePages{pages: []service.Page{{Image: []byte("photo")}}},
		OCR:    ocr,
		Ledger: &fakeLedger{},
	})

	doc := model.Document{Kind: model.KindImage, Name: "receipt.jpg", Data: []byte("photo")}
	preview, err := o.Import(context.Background(), doc, "acc-1")
	require.NoError(t, err)
	require.Len(t, preview.Transactions, 1)
	assert.Equal(t, 1, ocr.calls, "images go straight to recognition")
}

func TestImport_OCRFallbackPreservesPageOrder(t *testing.T) {
	pages := []service.Page{
		{Image: []byte("p1"), Index: 0},
		{Image: []byte("p2"), Index: 1},
		{Image: []byte("p3"), Index: 2},
	}
	ocr := &fakeOCR{
		results: map[string]*service.OCRResult{
			"p1": {FullText: "15.01.2026 Покупка MAGNUM -1 000,00 ₸", Confidence: 0.95},
			"p3": {FullText: "17.01.2026 Оплата WOLT -2 000,00 ₸", Confidence: 0.95},
		},
		errs: map[string]error{"p2": errors.New("blurry page")},
	}
	o := newOrchestrator(Deps{
		Text:   &fakeText{err: common.ErrNoTextLayer},
		Pages:  &fakePages{pages: pages},
		OCR:    ocr,
		Ledger: &fakeLedger{},
	})

	preview, err := o.Import(context.Background(), pdfDoc("scan"), "acc-1")
	require.NoError(t, err, "one failed page must not kill the import")
	require.Len(t, preview.Transactions, 2)
	assert.True(t, preview.Transactions[0].Date.Before(preview.Transactions[1].Date),
		"page order survives concurrent recognition")
	assert.Equal(t, 3, ocr.calls)
}

func TestImport_AllPagesFailingFails(t *testing.T) {
	pages := []service.Page{{Image: []byte("p1")}, {Image: []byte("p2")}}
	o := newOrchestrator(Deps{
		Text:  &fakeText{err: common.ErrNoTextLayer},
		Pages: &fakePages{pages: pages},
		OCR: &fakeOCR{errs: map[string]error{
			"p1": errors.New("bad"), "p2": errors.New("bad"),
		}},
		Ledger: &fakeLedger{},
	})

	_, err := o.Import(context.Background(), pdfDoc("scan"), "acc-1")
	require.Error(t, err)

	var userErr *common.UserError
	require.ErrorAs(t, err, &userErr)
	assert.NotEmpty(t, userErr.Suggestion, "failure suggests the CSV/OFX path")
	assert.IsType(t, model.Failed{}, o.Progress().Current())
}

func TestImport_LowOCRConfidenceAsksForManualEntry(t *testing.T) {
	pages := []service.Page{{Image: []byte("p1")}}
	o := newOrchestrator(Deps{
		Text:  &fakeText{err: common.ErrNoTextLayer},
		Pages: &fakePages{pages: pages},
		OCR: &fakeOCR{results: map[string]*service.OCRResult{
			"p1": {FullText: "15.01.2026 Покупка MAGNUM -1 000,00 ₸", Confidence: 0.4},
		}},
		Ledger: &fakeLedger{},
	})

	_, err := o.Import(context.Background(), pdfDoc("scan"), "acc-1")
	require.Error(t, err)
	assert.IsType(t, model.Failed{}, o.Progress().Current())
}

func TestImport_NoTransactionsFails(t *testing.T) {
	o := newOrchestrator(Deps{
		Text:   &fakeText{text: "Ничего финансового здесь нет"},
		Ledger: &fakeLedger{},
	})

	_, err := o.Import(context.Background(), pdfDoc("doc"), "acc-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNoTransactions)
	assert.IsType(t, model.Failed{}, o.Progress().Current())
}

func TestImport_CancelledContextStopsPipeline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := newOrchestrator(Deps{
		Text:   &fakeText{text: statementText},
		Ledger: &fakeLedger{},
	})

	_, err := o.Import(ctx, pdfDoc("doc"), "acc-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.IsType(t, model.Cancelled{}, o.Progress().Current())
}

func TestImport_ExactDuplicatesDeselectedByDefault(t *testing.T) {
	ledger := &fakeLedger{existing: []model.ImportedTransaction{{
		ID:          "old-1",
		Date:        time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		AmountMinor: -370000,
		Description: "Покупка MAGNUM SUPER",
	}}}
	o := newOrchestrator(Deps{
		Text:   &fakeText{text: statementText},
		Ledger: ledger,
	})

	preview, err := o.Import(context.Background(), pdfDoc("doc"), "acc-1")
	require.NoError(t, err)

	exactCount := 0
	for _, status := range preview.Statuses {
		if _, ok := status.(model.ExactDuplicate); ok {
			exactCount++
		}
	}
	require.Equal(t, 1, exactCount)

	saved, err := o.Confirm(context.Background(), preview, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, saved, "the exact duplicate is excluded from the default selection")
}

func TestImport_CategorizesWithCascade(t *testing.T) {
	o := newOrchestrator(Deps{
		Text:    &fakeText{text: statementText},
		Ledger:  &fakeLedger{},
		Cascade: newTestCascade(t),
	})

	preview, err := o.Import(context.Background(), pdfDoc("doc"), "acc-1")
	require.NoError(t, err)

	byDesc := map[string]string{}
	for _, txn := range preview.Transactions {
		byDesc[txn.Description] = txn.Category
	}
	assert.Equal(t, "groceries", byDesc["Покупка MAGNUM SUPER"])
	assert.Equal(t, "delivery", byDesc["Оплата WOLT KAZAKHSTAN"])
}

func TestImportParsed_SkipsExtraction(t *testing.T) {
	ledger := &fakeLedger{}
	o := newOrchestrator(Deps{Ledger: ledger, Cascade: newTestCascade(t)})

	txns := []model.ImportedTransaction{
		{ID: "t1", Date: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), AmountMinor: -370000, Currency: "KZT", Description: "MAGNUM SUPER", Source: model.SourceRuleBased, Confidence: 1.0},
	}

	preview, err := o.ImportParsed(context.Background(), txns)
	require.NoError(t, err)
	require.Len(t, preview.Transactions, 1)
	assert.Equal(t, "groceries", preview.Transactions[0].Category)

	saved, err := o.Confirm(context.Background(), preview, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, saved)
}

func TestImportParsed_EmptyInputFails(t *testing.T) {
	o := newOrchestrator(Deps{Ledger: &fakeLedger{}})
	_, err := o.ImportParsed(context.Background(), nil)
	assert.ErrorIs(t, err, common.ErrNoTransactions)
	assert.IsType(t, model.Failed{}, o.Progress().Current())
}

func TestValidateTransactions(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	warnings := validateTransactions([]model.ImportedTransaction{
		{Description: "ok", Date: now.AddDate(0, 0, -3), AmountMinor: -100},
		{Description: "future", Date: now.AddDate(0, 1, 0), AmountMinor: -100},
		{Description: "zero", Date: now.AddDate(0, 0, -1), AmountMinor: 0},
	}, now)

	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "future")
	assert.Contains(t, warnings[1], "zero amount")
}

func TestImport_SecondSessionNeedsReset(t *testing.T) {
	o := newOrchestrator(Deps{
		Text:   &fakeText{text: statementText},
		Ledger: &fakeLedger{},
	})

	preview, err := o.Import(context.Background(), pdfDoc("doc"), "acc-1")
	require.NoError(t, err)
	_, err = o.Confirm(context.Background(), preview, nil)
	require.NoError(t, err)

	_, err = o.Import(context.Background(), pdfDoc("doc"), "acc-1")
	assert.Error(t, err, "terminal session rejects a new import until Reset")

	o.Reset()
	_, err = o.Import(context.Background(), pdfDoc("doc"), "acc-1")
	assert.NoError(t, err)
}
