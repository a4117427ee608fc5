package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/talentspotify/tara-review/internal/interview"
	"github.com/talentspotify/tara-review/internal/report"
	"github.com/talentspotify/tara-review/internal/session"
	"github.com/talentspotify/tara-review/internal/storage"
	"github.com/talentspotify/tara-review/internal/transcript"
)

var sessionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Conversation is the orchestrator surface the API drives.
type Conversation interface {
	StartRecording() error
	StopRecording() error
	SubmitText(text string) error
	IngestAssistantMessage(fromFacilitator bool, speakerID, text string) error
	StopSpeaking()
	Snapshot() (string, interview.State, []transcript.Utterance)
}

type SessionStore interface {
	GetSession(id string) (storage.Session, error)
	GetSessionsByDate(date string) ([]storage.Session, error)
	GetUtterances(sessionID string) ([]transcript.Utterance, error)
	GetParticipants(sessionID string) ([]interview.Participant, error)
	GetDates() ([]string, error)
}

type textRequest struct {
	Text string `json:"text"`
}

type assistantMessageRequest struct {
	Role      string `json:"role"`
	SpeakerID string `json:"speaker_id"`
	Text      string `json:"text"`
}

func registerAPIRoutes(mux *http.ServeMux, conv Conversation, store SessionStore) {
	mux.HandleFunc("GET /api/session", func(w http.ResponseWriter, r *http.Request) {
		sessionID, state, entries := conv.Snapshot()
		writeJSON(w, http.StatusOK, map[string]any{
			"session_id": sessionID,
			"state":      state,
			"transcript": entries,
		})
	})

	mux.HandleFunc("POST /api/input", func(w http.ResponseWriter, r *http.Request) {
		var req textRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := conv.SubmitText(req.Text); err != nil {
			writeJSONError(w, conflictStatus(err), fmt.Sprintf("submit text: %v", err))
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /api/recording/start", func(w http.ResponseWriter, r *http.Request) {
		if err := conv.StartRecording(); err != nil {
			writeJSONError(w, conflictStatus(err), fmt.Sprintf("start recording: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "recording"})
	})

	mux.HandleFunc("POST /api/recording/stop", func(w http.ResponseWriter, r *http.Request) {
		// Blocks for up to the grace window while late finals settle.
		if err := conv.StopRecording(); err != nil {
			writeJSONError(w, conflictStatus(err), fmt.Sprintf("stop recording: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
	})

	mux.HandleFunc("POST /api/voice/stop", func(w http.ResponseWriter, r *http.Request) {
		conv.StopSpeaking()
		writeJSON(w, http.StatusOK, map[string]string{"status": "muted"})
	})

	mux.HandleFunc("POST /api/assistant/messages", func(w http.ResponseWriter, r *http.Request) {
		var req assistantMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		fromFacilitator := req.Role == "assistant"
		if err := conv.IngestAssistantMessage(fromFacilitator, req.SpeakerID, req.Text); err != nil {
			writeJSONError(w, conflictStatus(err), fmt.Sprintf("ingest assistant message: %v", err))
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /api/sessions", func(w http.ResponseWriter, r *http.Request) {
		date := r.URL.Query().Get("date")
		if date == "" {
			date = time.Now().UTC().Format("2006-01-02")
		}

		sessions, err := store.GetSessionsByDate(date)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("list sessions: %v", err))
			return
		}

		writeJSON(w, http.StatusOK, sessions)
	})

	mux.HandleFunc("GET /api/dates", func(w http.ResponseWriter, r *http.Request) {
		dates, err := store.GetDates()
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("list dates: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, dates)
	})

	mux.HandleFunc("GET /api/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("id")
		if !validSessionID(sessionID) {
			writeJSONError(w, http.StatusForbidden, "invalid session id")
			return
		}

		sessionData, err := store.GetSession(sessionID)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, sql.ErrNoRows) {
				status = http.StatusNotFound
			}
			writeJSONError(w, status, fmt.Sprintf("get session: %v", err))
			return
		}

		utterances, err := store.GetUtterances(sessionID)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("get session transcript: %v", err))
			return
		}

		participants, err := store.GetParticipants(sessionID)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("get session participants: %v", err))
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"session":      sessionData,
			"participants": participants,
			"transcript":   utterances,
		})
	})

	mux.HandleFunc("GET /api/sessions/{id}/report", func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("id")
		if !validSessionID(sessionID) {
			writeJSONError(w, http.StatusForbidden, "invalid session id")
			return
		}

		if _, err := store.GetSession(sessionID); err != nil {
			writeJSONError(w, http.StatusNotFound, "session not found")
			return
		}

		utterances, err := store.GetUtterances(sessionID)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("get session transcript: %v", err))
			return
		}

		participants, err := store.GetParticipants(sessionID)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("get session participants: %v", err))
			return
		}

		stage := interview.StageSetup
		if len(participants) > 0 {
			stage = interview.StageEmployee
		}
		if activeID, state, _ := conv.Snapshot(); activeID == sessionID {
			stage = state.Stage
		}

		content := report.Render(time.Now().UTC(), stage, participants, utterances)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", "talentspotify-review-"+sessionID+".txt"))
		_, _ = w.Write([]byte(content))
	})
}

func conflictStatus(err error) int {
	if errors.Is(err, session.ErrTurnInProgress) ||
		errors.Is(err, session.ErrNoActiveSession) ||
		errors.Is(err, session.ErrNoActiveRecording) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func validSessionID(id string) bool {
	return id != "" && sessionIDPattern.MatchString(id)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
