package session

import (
	"context"
	"time"

	"github.com/talentspotify/tara-review/internal/interview"
	"github.com/talentspotify/tara-review/internal/transcript"
)

type Store interface {
	CreateSession(id string, startedAt time.Time) error
	EndSession(id string, endedAt time.Time) error
	AppendUtterance(sessionID string, u transcript.Utterance) error
	UpdateLastUtterance(sessionID string, u transcript.Utterance) error
	SetParticipants(sessionID string, participants []interview.Participant) error
	UpdateSummary(sessionID, summary, status string) error
}

// Synthesizer vocalizes facilitator replies. Speak is fire-and-forget: it
// supersedes any in-flight request and reports failures through its own
// logging, never to the caller. Stop cancels the current request (mute).
type Synthesizer interface {
	Speak(text string)
	Stop()
}

type Summarizer interface {
	Summarize(ctx context.Context, sessionID, transcript string) (string, error)
}

type EventBroadcaster interface {
	BroadcastSessionStarted(sessionID string)
	BroadcastSessionEnded(sessionID string, duration time.Duration)
	BroadcastUtterance(u transcript.Utterance)
	BroadcastLiveCaption(text string)
	BroadcastStateChanged(state interview.State)
	BroadcastSummaryReady(sessionID, summary, status string)
	BroadcastWarning(message string)
}
