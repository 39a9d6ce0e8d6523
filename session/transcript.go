package session

import (
	"strings"
	"sync"

	"github.com/sculptai/posecoach/stream"
)

// Turn is one finalized span of speech from a single speaker.
type Turn struct {
	Speaker stream.Speaker `json:"speaker"`
	Text    string         `json:"text"`
}

// Transcript accumulates partial transcript text per speaker and flushes
// completed turns into an append-only log on turn completion. At most one
// in-progress turn exists per speaker at a time.
type Transcript struct {
	mu    sync.Mutex
	user  strings.Builder
	coach strings.Builder
	log   []Turn
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// AddDelta appends a partial fragment to the speaker's in-progress turn.
func (t *Transcript) AddDelta(speaker stream.Speaker, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch speaker {
	case stream.SpeakerCoach:
		t.coach.WriteString(text)
	default:
		t.user.WriteString(text)
	}
}

// CompleteTurn flushes non-empty in-progress turns to the log and returns
// them, user turn before coach turn when both accumulated text since the
// last flush. A speaker with an empty buffer gets no turn appended.
func (t *Transcript) CompleteTurn() []Turn {
	t.mu.Lock()
	defer t.mu.Unlock()

	var turns []Turn
	if t.user.Len() > 0 {
		turns = append(turns, Turn{Speaker: stream.SpeakerUser, Text: t.user.String()})
		t.user.Reset()
	}
	if t.coach.Len() > 0 {
		turns = append(turns, Turn{Speaker: stream.SpeakerCoach, Text: t.coach.String()})
		t.coach.Reset()
	}
	t.log = append(t.log, turns...)
	return turns
}

// InProgress returns the unflushed text for a speaker.
func (t *Transcript) InProgress(speaker stream.Speaker) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if speaker == stream.SpeakerCoach {
		return t.coach.String()
	}
	return t.user.String()
}

// Log returns a copy of the finalized turn log.
func (t *Transcript) Log() []Turn {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Turn, len(t.log))
	copy(out, t.log)
	return out
}
