package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/talentspotify/tara-review/internal/interview"
	"github.com/talentspotify/tara-review/internal/transcript"
)

type Hub struct {
	mu      sync.RWMutex
	clients map[chan []byte]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan []byte]struct{})}
}

func (h *Hub) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (h *Hub) BroadcastUtterance(u transcript.Utterance) {
	h.broadcastEvent(UtteranceEvent{
		Event:     newEvent("utterance", u.CreatedAt),
		Role:      string(u.Role),
		Text:      u.Text,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
}

func (h *Hub) BroadcastLiveCaption(text string) {
	h.broadcastEvent(LiveCaptionEvent{
		Event: newEvent("live_caption", time.Now().UTC()),
		Text:  text,
	})
}

func (h *Hub) BroadcastStateChanged(state interview.State) {
	h.broadcastEvent(StateChangedEvent{
		Event:       newEvent("state_changed", time.Now().UTC()),
		SetupStep:   string(state.Step),
		ReviewStage: string(state.Stage),
	})
}

func (h *Hub) BroadcastSessionStarted(sessionID string) {
	h.broadcastEvent(SessionStartedEvent{
		Event:     newEvent("session_started", time.Now().UTC()),
		SessionID: sessionID,
	})
}

func (h *Hub) BroadcastSessionEnded(sessionID string, duration time.Duration) {
	h.broadcastEvent(SessionEndedEvent{
		Event:     newEvent("session_ended", time.Now().UTC()),
		SessionID: sessionID,
		Duration:  duration.Seconds(),
	})
}

func (h *Hub) BroadcastSummaryReady(sessionID, summary, status string) {
	h.broadcastEvent(SummaryReadyEvent{
		Event:     newEvent("summary_ready", time.Now().UTC()),
		SessionID: sessionID,
		Summary:   summary,
		Status:    status,
	})
}

func (h *Hub) BroadcastSpeakingChanged(speaking bool) {
	h.broadcastEvent(SpeakingChangedEvent{
		Event:    newEvent("speaking_changed", time.Now().UTC()),
		Speaking: speaking,
	})
}

func (h *Hub) BroadcastWarning(message string) {
	h.broadcastEvent(WarningEvent{
		Event:   newEvent("warning", time.Now().UTC()),
		Message: message,
	})
}

func (h *Hub) broadcastEvent(event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("event marshal error: %v", err)
		return
	}
	h.Broadcast(payload)
}
