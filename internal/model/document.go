package model

// DocumentKind declares how the raw bytes of a document should be decoded.
type DocumentKind string

// Document kind constants.
const (
	KindText  DocumentKind = "text"
	KindPDF   DocumentKind = "pdf"
	KindImage DocumentKind = "image"
)

// Document is a raw input document. It is consumed once by the pipeline
// and never stored.
type Document struct {
	Kind DocumentKind
	Name string
	Data []byte
}

// DocumentType classifies what sort of financial document the text came from.
type DocumentType string

// Document type constants.
const (
	DocBankStatement DocumentType = "BANK_STATEMENT"
	DocReceipt       DocumentType = "RECEIPT"
	DocInvoice       DocumentType = "INVOICE"
	DocUnknown       DocumentType = "UNKNOWN"
)

// Language is the dominant language detected in a document.
type Language string

// Supported languages.
const (
	LangRussian Language = "ru"
	LangKazakh  Language = "kk"
	LangEnglish Language = "en"
)

// DocumentHints carries what preprocessing could tell about a document
// without parsing it.
type DocumentHints struct {
	Type     DocumentType
	Language Language
}

// PreprocessResult is the output of text preprocessing: the retained lines
// plus detection hints.
type PreprocessResult struct {
	CleanedText string
	Lines       []string
	Hints       DocumentHints
}
