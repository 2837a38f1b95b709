package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tech1ee/finuts/internal/model"
)

func TestTracker_HappyPathOrder(t *testing.T) {
	tracker := NewTracker()
	var seen []string
	tracker.Subscribe(func(p model.ImportProgress) { seen = append(seen, progressKind(p)) })

	steps := []model.ImportProgress{
		model.DetectingFormat{},
		model.Parsing{},
		model.Validating{},
		model.Deduplicating{},
		model.Categorizing{},
		model.AwaitingConfirmation{Preview: &model.ImportPreview{}},
		model.Saving{},
		model.Completed{SavedCount: 3},
	}
	for _, step := range steps {
		require.NoError(t, tracker.Transition(step))
	}

	assert.Equal(t, []string{
		"detecting_format", "parsing", "validating", "deduplicating",
		"categorizing", "awaiting_confirmation", "saving", "completed",
	}, seen)
	assert.True(t, model.IsTerminal(tracker.Current()))
}

func TestTracker_RejectsSkippedStages(t *testing.T) {
	tracker := NewTracker()
	assert.Error(t, tracker.Transition(model.Saving{}), "cannot jump from idle to saving")

	require.NoError(t, tracker.Transition(model.DetectingFormat{}))
	assert.Error(t, tracker.Transition(model.Categorizing{}))
}

func TestTracker_FailAndCancelFromAnywhere(t *testing.T) {
	tracker := NewTracker()
	require.NoError(t, tracker.Transition(model.DetectingFormat{}))
	require.NoError(t, tracker.Transition(model.Parsing{}))
	assert.NoError(t, tracker.Transition(model.Failed{Message: "boom"}))

	tracker = NewTracker()
	require.NoError(t, tracker.Transition(model.DetectingFormat{}))
	assert.NoError(t, tracker.Transition(model.Cancelled{}))
}

func TestTracker_TerminalStatesAreSticky(t *testing.T) {
	tracker := NewTracker()
	require.NoError(t, tracker.Transition(model.DetectingFormat{}))
	require.NoError(t, tracker.Transition(model.Cancelled{}))

	assert.Error(t, tracker.Transition(model.Parsing{}))
	assert.Error(t, tracker.Transition(model.Failed{Message: "late"}))

	tracker.Reset()
	assert.IsType(t, model.Idle{}, tracker.Current())
	assert.NoError(t, tracker.Transition(model.DetectingFormat{}))
}
