package model

import "fmt"

// ImportProgress is the state of one import session. It is a sealed sum
// type; each transition replaces the previous value wholesale. Cancelled,
// Completed and Failed are terminal for a session, but Reset returns the
// machine to Idle so a new session can start.
type ImportProgress interface {
	importProgress()
	fmt.Stringer
}

// Progress states, in pipeline order.
type (
	// Idle is the initial state and the target of Reset.
	Idle struct{}
	// DetectingFormat means the document kind is being determined.
	DetectingFormat struct{}
	// Parsing means text extraction and transaction parsing are running.
	Parsing struct{}
	// Validating means parsed transactions are being checked for warnings.
	Validating struct{}
	// Deduplicating means candidates are being matched against the ledger.
	Deduplicating struct{}
	// Categorizing means the categorization cascade is running.
	Categorizing struct{}
	// AwaitingConfirmation means a preview is ready for user review.
	AwaitingConfirmation struct {
		Preview *ImportPreview
	}
	// Saving means confirmed transactions are being persisted.
	Saving struct{}
	// Completed is terminal: the import finished and saved SavedCount rows.
	Completed struct {
		SavedCount int
	}
	// Failed is terminal: the import stopped with a user-facing message.
	Failed struct {
		Message string
	}
	// Cancelled is terminal: the user aborted the session.
	Cancelled struct{}
)

func (Idle) importProgress()                 {}
func (DetectingFormat) importProgress()      {}
func (Parsing) importProgress()              {}
func (Validating) importProgress()           {}
func (Deduplicating) importProgress()        {}
func (Categorizing) importProgress()         {}
func (AwaitingConfirmation) importProgress() {}
func (Saving) importProgress()               {}
func (Completed) importProgress()            {}
func (Failed) importProgress()               {}
func (Cancelled) importProgress()            {}

func (Idle) String() string                 { return "idle" }
func (DetectingFormat) String() string      { return "detecting_format" }
func (Parsing) String() string              { return "parsing" }
func (Validating) String() string           { return "validating" }
func (Deduplicating) String() string        { return "deduplicating" }
func (Categorizing) String() string         { return "categorizing" }
func (AwaitingConfirmation) String() string { return "awaiting_confirmation" }
func (Saving) String() string               { return "saving" }
func (c Completed) String() string          { return fmt.Sprintf("completed(%d)", c.SavedCount) }
func (f Failed) String() string             { return fmt.Sprintf("failed(%s)", f.Message) }
func (Cancelled) String() string            { return "cancelled" }

// IsTerminal reports whether a state ends the current session.
func IsTerminal(p ImportProgress) bool {
	switch p.(type) {
	case Completed, Failed, Cancelled:
		return true
	}
	return false
}

// ImportPreview is what the user reviews before confirming a save.
// Statuses is parallel to Transactions. Warnings carry non-fatal validation
// findings (future dates, zero amounts); they never block the import.
type ImportPreview struct {
	Transactions []ImportedTransaction
	Statuses     []DuplicateStatus
	Warnings     []string
}
