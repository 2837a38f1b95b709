package model

// DuplicateStatus classifies an incoming transaction against the stored
// ledger. It is a sealed sum type: the only implementations live in this
// package, and callers switch exhaustively over the three variants.
// The status only gates default selection in the preview; it is never
// persisted.
type DuplicateStatus interface {
	duplicateStatus()
}

// Unique means no stored transaction resembles this one.
type Unique struct{}

// ProbableDuplicate means amount and date match a stored transaction and the
// descriptions are similar, but not identical.
type ProbableDuplicate struct {
	MatchedID string
}

// ExactDuplicate means date, amount and normalized description all match a
// stored transaction.
type ExactDuplicate struct {
	MatchedID string
}

func (Unique) duplicateStatus()            {}
func (ProbableDuplicate) duplicateStatus() {}
func (ExactDuplicate) duplicateStatus()    {}

// SelectedByDefault reports whether a transaction with this status should be
// pre-selected in the import preview. Exact duplicates are deselected;
// probable duplicates stay selected but flagged.
func SelectedByDefault(s DuplicateStatus) bool {
	_, exact := s.(ExactDuplicate)
	return !exact
}
