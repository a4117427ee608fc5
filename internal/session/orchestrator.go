package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/talentspotify/tara-review/internal/interview"
	"github.com/talentspotify/tara-review/internal/speaker"
	"github.com/talentspotify/tara-review/internal/storage"
	"github.com/talentspotify/tara-review/internal/transcript"
)

// Orchestrator composes the consolidator, attributor, and state machine into
// the single-turn conversation loop. One logical turn runs at a time; new
// recordings or typed input are refused while a turn is pending. All session
// state lives here and is reset by StartSession.
type Orchestrator struct {
	store      Store
	synth      Synthesizer
	summarizer Summarizer
	hub        EventBroadcaster

	grace []time.Duration
	wait  func(time.Duration)

	mu          sync.Mutex
	sessionID   string
	startedAt   time.Time
	state       interview.State
	entries     []transcript.Utterance
	attributor  *speaker.Attributor
	rec         *transcript.Consolidator
	turnPending bool
}

func NewOrchestrator(store Store, synth Synthesizer, summarizer Summarizer, hub EventBroadcaster, grace []time.Duration) *Orchestrator {
	if len(grace) == 0 {
		grace = transcript.DefaultGrace
	}
	return &Orchestrator{
		store:      store,
		synth:      synth,
		summarizer: summarizer,
		hub:        hub,
		grace:      grace,
		wait:       time.Sleep,
		state:      interview.NewState(),
		attributor: speaker.NewAttributor(),
	}
}

// StartSession resets all per-session state and opens a new session. Any
// previous session is ended first. The facilitator greeting is appended and
// vocalized before the first user turn.
func (o *Orchestrator) StartSession(now time.Time) error {
	_ = o.EndSession()

	o.mu.Lock()
	sessionID := now.UTC().Format("20060102150405")
	o.sessionID = sessionID
	o.startedAt = now.UTC()
	o.state = interview.NewState()
	o.entries = nil
	o.attributor.Reset()
	o.rec = nil
	o.turnPending = false
	o.mu.Unlock()

	if err := o.store.CreateSession(sessionID, now.UTC()); err != nil {
		o.mu.Lock()
		o.sessionID = ""
		o.mu.Unlock()
		return fmt.Errorf("create session: %w", err)
	}

	if o.hub != nil {
		o.hub.BroadcastSessionStarted(sessionID)
	}

	o.mu.Lock()
	o.appendFacilitatorLocked(interview.Greeting(), now.UTC())
	o.mu.Unlock()

	if o.synth != nil {
		o.synth.Speak(interview.Greeting())
	}
	return nil
}

// EndSession closes the current session. It is a no-op when none is active.
func (o *Orchestrator) EndSession() error {
	o.mu.Lock()
	sessionID := o.sessionID
	startedAt := o.startedAt
	if sessionID == "" {
		o.mu.Unlock()
		return nil
	}
	o.sessionID = ""
	o.rec = nil
	o.mu.Unlock()

	if o.synth != nil {
		o.synth.Stop()
	}

	endedAt := time.Now().UTC()
	if err := o.store.EndSession(sessionID, endedAt); err != nil {
		return fmt.Errorf("end session: %w", err)
	}

	if o.hub != nil {
		o.hub.BroadcastSessionEnded(sessionID, endedAt.Sub(startedAt))
	}
	return nil
}

// StartRecording opens a fresh recording session. Starting a new recording
// invalidates any consolidation state left from a previous one.
func (o *Orchestrator) StartRecording() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sessionID == "" {
		return ErrNoActiveSession
	}
	if o.turnPending {
		return ErrTurnInProgress
	}

	o.rec = transcript.NewConsolidator()
	return nil
}

// HandleTranscriptEvent folds one provider event into the active recording.
// Events arriving with no recording open are dropped. Partial fragments are
// also broadcast as the live caption.
func (o *Orchestrator) HandleTranscriptEvent(ev transcript.Event) {
	o.mu.Lock()
	rec := o.rec
	o.mu.Unlock()

	if rec == nil {
		return
	}
	rec.Observe(ev)

	if !ev.IsFinal && o.hub != nil && !transcript.IsPlaceholder(ev.Fragment) {
		o.hub.BroadcastLiveCaption(rec.Current())
	}
}

// StopRecording finalizes the active recording and runs one turn. It blocks
// for at most the grace window (~1.5s) waiting for late final fragments; a
// silent recording still yields the fallback sentinel so the interview
// always advances.
func (o *Orchestrator) StopRecording() error {
	o.mu.Lock()
	if o.sessionID == "" {
		o.mu.Unlock()
		return ErrNoActiveSession
	}
	if o.turnPending {
		o.mu.Unlock()
		return ErrTurnInProgress
	}
	rec := o.rec
	if rec == nil {
		o.mu.Unlock()
		return ErrNoActiveRecording
	}
	o.turnPending = true
	o.mu.Unlock()

	// Grace waits happen outside the lock; the turnPending flag keeps
	// competing submissions out meanwhile. o.rec stays attached so final
	// fragments arriving after the stop signal still reach the consolidator.
	result := rec.Finalize(o.wait, o.grace)
	if result.Fallback {
		slog.Warn("no usable transcript after grace window, using fallback",
			"session_id", o.SessionID())
		if o.hub != nil {
			o.hub.BroadcastWarning("No speech was captured; continuing with a placeholder turn.")
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	defer func() { o.turnPending = false }()
	o.rec = nil

	role := o.attributor.Resolve(result.SpeakerID, o.state.DefaultRole())
	return o.runTurnLocked(role, result.Text, time.Now().UTC())
}

// SubmitText runs one turn from the typed-input channel. Typed input skips
// consolidation and attribution and lands on the current default role.
func (o *Orchestrator) SubmitText(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sessionID == "" {
		return ErrNoActiveSession
	}
	if o.turnPending {
		return ErrTurnInProgress
	}

	return o.runTurnLocked(o.state.DefaultRole(), text, time.Now().UTC())
}

// IngestAssistantMessage accepts a pre-attributed final message from the
// hosted assistant backend. It bypasses consolidation but still passes the
// merge rule; it does not drive the state machine, since the backend
// produces its own facilitator turns.
func (o *Orchestrator) IngestAssistantMessage(fromFacilitator bool, speakerID, text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sessionID == "" {
		return ErrNoActiveSession
	}

	role := transcript.RoleFacilitator
	if !fromFacilitator {
		role = o.attributor.Resolve(speakerID, o.state.DefaultRole())
	}

	o.recordLocked(transcript.Utterance{Role: role, Text: text, CreatedAt: time.Now().UTC()})
	return nil
}

// StopSpeaking cancels any in-flight synthesis (mute).
func (o *Orchestrator) StopSpeaking() {
	if o.synth != nil {
		o.synth.Stop()
	}
}

// SessionID returns the active session id, empty when none.
func (o *Orchestrator) SessionID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sessionID
}

// Snapshot returns the current state and an ordered copy of the transcript
// for export.
func (o *Orchestrator) Snapshot() (string, interview.State, []transcript.Utterance) {
	o.mu.Lock()
	defer o.mu.Unlock()

	entries := make([]transcript.Utterance, len(o.entries))
	copy(entries, o.entries)
	return o.sessionID, o.state, entries
}

// runTurnLocked is the single place session state mutates: append the user
// utterance, transition the state machine, append and vocalize the reply.
func (o *Orchestrator) runTurnLocked(role transcript.Role, text string, now time.Time) error {
	o.recordLocked(transcript.Utterance{Role: role, Text: text, CreatedAt: now})

	hadParticipants := len(o.state.Participants) > 0
	newState, reply := interview.Transition(o.state, text)
	o.state = newState

	if !hadParticipants && len(newState.Participants) > 0 {
		if err := o.store.SetParticipants(o.sessionID, newState.Participants); err != nil {
			return fmt.Errorf("store participants: %w", err)
		}
	}

	if o.hub != nil {
		o.hub.BroadcastStateChanged(newState)
	}

	o.appendFacilitatorLocked(reply, now)

	if o.synth != nil {
		o.synth.Speak(reply)
	}

	if newState.Terminal() && o.summarizer != nil {
		go o.generateSummary(context.Background(), o.sessionID)
	}
	return nil
}

func (o *Orchestrator) appendFacilitatorLocked(text string, now time.Time) {
	o.recordLocked(transcript.Utterance{
		Role:      transcript.RoleFacilitator,
		Text:      text,
		CreatedAt: now,
	})
}

// recordLocked applies the merge rule, persists the result, and broadcasts
// it. Persistence failures are logged, not fatal: the in-memory transcript
// stays authoritative for the running session.
func (o *Orchestrator) recordLocked(u transcript.Utterance) {
	entries, op := speaker.Merge(o.entries, u)
	o.entries = entries
	if op == speaker.OpDropped {
		return
	}

	newest := entries[len(entries)-1]
	var err error
	switch op {
	case speaker.OpAppended:
		err = o.store.AppendUtterance(o.sessionID, newest)
	case speaker.OpMerged:
		err = o.store.UpdateLastUtterance(o.sessionID, newest)
	}
	if err != nil {
		slog.Warn("persist utterance failed", "session_id", o.sessionID, "error", err)
	}

	if o.hub != nil {
		o.hub.BroadcastUtterance(newest)
	}
}

func (o *Orchestrator) generateSummary(ctx context.Context, sessionID string) {
	_ = o.store.UpdateSummary(sessionID, "", storage.SummaryRunning)

	_, _, entries := o.Snapshot()
	var b strings.Builder
	for _, u := range entries {
		if strings.TrimSpace(u.Text) == "" {
			continue
		}
		b.WriteString(string(u.Role))
		b.WriteString(": ")
		b.WriteString(u.Text)
		b.WriteString("\n")
	}

	summaryText, err := o.summarizer.Summarize(ctx, sessionID, b.String())
	if err != nil {
		_ = o.store.UpdateSummary(sessionID, "", storage.SummaryFailed)
		o.broadcastSummary(sessionID, "", storage.SummaryFailed)
		return
	}

	if err := o.store.UpdateSummary(sessionID, summaryText, storage.SummaryCompleted); err != nil {
		o.broadcastSummary(sessionID, "", storage.SummaryFailed)
		return
	}

	o.broadcastSummary(sessionID, summaryText, storage.SummaryCompleted)
}

func (o *Orchestrator) broadcastSummary(sessionID, summary, status string) {
	if o.hub != nil {
		o.hub.BroadcastSummaryReady(sessionID, summary, status)
	}
}
