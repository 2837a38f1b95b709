// Package document reads transaction documents. PDFs with an embedded
// text layer are read directly; everything else goes through OCR upstream.
package document

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/tech1ee/finuts/internal/common"
)

// PDFExtractor pulls the embedded text layer out of a PDF.
type PDFExtractor struct {
	logger *slog.Logger
}

// NewPDFExtractor creates a PDF text-layer extractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{logger: slog.Default().With("component", "document.pdf")}
}

// ExtractText concatenates the text of every page. Pages that fail to
// decode are skipped; the import should not die because one page has a
// broken font table. Returns common.ErrNoTextLayer when the document
// decodes but yields no text (a scanned PDF).
func (e *PDFExtractor) ExtractText(ctx context.Context, document []byte) (string, error) {
	if len(document) == 0 {
		return "", fmt.Errorf("%w: empty document", common.ErrPageExtraction)
	}

	reader, err := pdf.NewReader(bytes.NewReader(document), int64(len(document)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrPageExtraction, err)
	}

	var b strings.Builder
	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Warn("skipping undecodable page", "page", i, "error", err)
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	out := b.String()
	if strings.TrimSpace(out) == "" {
		return "", common.ErrNoTextLayer
	}
	return out, nil
}
