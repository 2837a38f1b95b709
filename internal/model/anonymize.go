package model

// PIIKind identifies the kind of sensitive value a placeholder stands for.
type PIIKind string

// PII kind constants. The kind name is embedded in placeholders, e.g. [PHONE_1].
const (
	PIIPhone      PIIKind = "PHONE"
	PIIIBAN       PIIKind = "IBAN"
	PIIAccount    PIIKind = "ACCOUNT"
	PIICardNumber PIIKind = "CARD_NUMBER"
	PIIPersonName PIIKind = "PERSON_NAME"
)

// PIISpan is one detected sensitive value.
type PIISpan struct {
	Kind  PIIKind
	Value string
}

// AnonymizationResult is the outcome of replacing PII with placeholders.
// Mapping is keyed by placeholder so deanonymization is a plain substitution.
type AnonymizationResult struct {
	Text     string
	Mapping  map[string]string
	Detected []PIISpan
	Modified bool
}
