package server

import "time"

const EventVersion = 1

type Event struct {
	Type      string `json:"type"`
	Version   int    `json:"version"`
	Timestamp string `json:"timestamp"`
}

// UtteranceEvent carries one committed (possibly merged) transcript entry.
type UtteranceEvent struct {
	Event
	Role      string `json:"role"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

// LiveCaptionEvent carries the in-progress partial transcript for display.
type LiveCaptionEvent struct {
	Event
	Text string `json:"text"`
}

type StateChangedEvent struct {
	Event
	SetupStep   string `json:"setup_step"`
	ReviewStage string `json:"review_stage"`
}

type SessionStartedEvent struct {
	Event
	SessionID string `json:"session_id"`
}

type SessionEndedEvent struct {
	Event
	SessionID string  `json:"session_id"`
	Duration  float64 `json:"duration"`
}

type SummaryReadyEvent struct {
	Event
	SessionID string `json:"session_id"`
	Summary   string `json:"summary"`
	Status    string `json:"status"`
}

type SpeakingChangedEvent struct {
	Event
	Speaking bool `json:"speaking"`
}

type WarningEvent struct {
	Event
	Message string `json:"message"`
}

// ConnectionEvent is the hello frame sent on WS connect, carrying the active
// session id (empty when none) so clients can join mid-session.
type ConnectionEvent struct {
	Event
	Connected bool   `json:"connected"`
	SessionID string `json:"session_id,omitempty"`
}

func newEvent(eventType string, now time.Time) Event {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return Event{
		Type:      eventType,
		Version:   EventVersion,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
}
