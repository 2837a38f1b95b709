// Package pipeline orchestrates a document import end to end: text
// acquisition, extraction, anonymized enhancement, validation, duplicate
// detection, categorization, and the confirm-then-save handshake.
package pipeline

import (
	"fmt"
	"sync"

	"github.com/tech1ee/finuts/internal/model"
)

// progressKind collapses a progress state to its transition identity,
// ignoring payloads.
func progressKind(p model.ImportProgress) string {
	switch p.(type) {
	case model.Idle:
		return "idle"
	case model.DetectingFormat:
		return "detecting_format"
	case model.Parsing:
		return "parsing"
	case model.Validating:
		return "validating"
	case model.Deduplicating:
		return "deduplicating"
	case model.Categorizing:
		return "categorizing"
	case model.AwaitingConfirmation:
		return "awaiting_confirmation"
	case model.Saving:
		return "saving"
	case model.Completed:
		return "completed"
	case model.Failed:
		return "failed"
	case model.Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Legal forward transitions. Failed and Cancelled are reachable from any
// non-terminal state and are handled separately.
var nextStates = map[string]string{
	"idle":                  "detecting_format",
	"detecting_format":      "parsing",
	"parsing":               "validating",
	"validating":            "deduplicating",
	"deduplicating":         "categorizing",
	"categorizing":          "awaiting_confirmation",
	"awaiting_confirmation": "saving",
	"saving":                "completed",
}

// Tracker is the import progress state machine. Transitions that skip
// stages or leave a terminal state are rejected; Reset is the only way
// out of a terminal state. Safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	current   model.ImportProgress
	listeners []func(model.ImportProgress)
}

// NewTracker creates a tracker in the Idle state.
func NewTracker() *Tracker {
	return &Tracker{current: model.Idle{}}
}

// Current returns the present state.
func (t *Tracker) Current() model.ImportProgress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Subscribe registers a callback invoked on every state change, including
// Reset. Callbacks run synchronously under the transition.
func (t *Tracker) Subscribe(fn func(model.ImportProgress)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, fn)
}

// Transition moves the machine to the next state. Failed and Cancelled
// are accepted from any non-terminal state; everything else must follow
// pipeline order.
func (t *Tracker) Transition(to model.ImportProgress) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	fromKind, toKind := progressKind(t.current), progressKind(to)
	if model.IsTerminal(t.current) {
		return fmt.Errorf("illegal transition %s -> %s: session already ended", fromKind, toKind)
	}
	if toKind != "failed" && toKind != "cancelled" && nextStates[fromKind] != toKind {
		return fmt.Errorf("illegal transition %s -> %s", fromKind, toKind)
	}

	t.current = to
	for _, fn := range t.listeners {
		fn(to)
	}
	return nil
}

// Reset returns the machine to Idle so a new session can start.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = model.Idle{}
	for _, fn := range t.listeners {
		fn(t.current)
	}
}
