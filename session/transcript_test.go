package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sculptai/posecoach/stream"
)

func TestTranscriptFlushOrdering(t *testing.T) {
	tr := NewTranscript()
	tr.AddDelta(stream.SpeakerUser, "a")
	tr.AddDelta(stream.SpeakerCoach, "b")
	tr.AddDelta(stream.SpeakerUser, "c")

	turns := tr.CompleteTurn()
	require.Len(t, turns, 2)

	// User turn first, fragments concatenated in arrival order.
	assert.Equal(t, stream.SpeakerUser, turns[0].Speaker)
	assert.Equal(t, "ac", turns[0].Text)
	assert.Equal(t, stream.SpeakerCoach, turns[1].Speaker)
	assert.Equal(t, "b", turns[1].Text)

	assert.Equal(t, turns, tr.Log())
}

func TestTranscriptEmptyCompleteAppendsNothing(t *testing.T) {
	tr := NewTranscript()
	turns := tr.CompleteTurn()
	assert.Empty(t, turns)
	assert.Empty(t, tr.Log())
}

func TestTranscriptSingleSpeakerTurn(t *testing.T) {
	tr := NewTranscript()
	tr.AddDelta(stream.SpeakerCoach, "chin up, ")
	tr.AddDelta(stream.SpeakerCoach, "open the lats")

	turns := tr.CompleteTurn()
	require.Len(t, turns, 1)
	assert.Equal(t, stream.SpeakerCoach, turns[0].Speaker)
	assert.Equal(t, "chin up, open the lats", turns[0].Text)
}

func TestTranscriptBuffersResetAfterFlush(t *testing.T) {
	tr := NewTranscript()
	tr.AddDelta(stream.SpeakerUser, "first")
	tr.CompleteTurn()

	// A completion with nothing accumulated adds no turns.
	assert.Empty(t, tr.CompleteTurn())

	tr.AddDelta(stream.SpeakerUser, "second")
	turns := tr.CompleteTurn()
	require.Len(t, turns, 1)
	assert.Equal(t, "second", turns[0].Text)

	log := tr.Log()
	require.Len(t, log, 2)
	assert.Equal(t, "first", log[0].Text)
	assert.Equal(t, "second", log[1].Text)
}

func TestTranscriptInProgress(t *testing.T) {
	tr := NewTranscript()
	tr.AddDelta(stream.SpeakerUser, "hold")
	assert.Equal(t, "hold", tr.InProgress(stream.SpeakerUser))
	assert.Equal(t, "", tr.InProgress(stream.SpeakerCoach))

	tr.CompleteTurn()
	assert.Equal(t, "", tr.InProgress(stream.SpeakerUser))
}
