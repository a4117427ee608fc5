package transcript

import (
	"fmt"
	"strings"
	"time"
)

// Role identifies who produced an utterance. Participant roles carry the
// raw speaker id so unexpected extra speakers stay distinguishable.
type Role string

const (
	RoleEmployee    Role = "Employee"
	RoleManager     Role = "Manager"
	RoleFacilitator Role = "Facilitator"
)

// ParticipantRole returns the numbered fallback role for a speaker id that
// arrived after both Employee and Manager were already assigned.
func ParticipantRole(speakerID string) Role {
	return Role("Participant " + speakerID)
}

// IsParticipant reports whether r is a numbered fallback role.
func (r Role) IsParticipant() bool {
	return strings.HasPrefix(string(r), "Participant")
}

// Utterance is one attributed block of spoken or typed text. Once appended
// to the session transcript it is immutable, except that consecutive text
// from the same role may be merged into the newest entry.
type Utterance struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Event is one partial or final recognition result for the active recording
// session. SequenceIndex increases monotonically within a session and resets
// to zero when a new recording starts.
type Event struct {
	SequenceIndex int
	IsFinal       bool
	SpeakerID     string
	Fragment      string
}

// FallbackText is appended when a recording yields nothing usable after the
// grace window, so the interview always receives an input.
const FallbackText = "Participant spoke"

// placeholderCaptions are UI status strings the recognizer layer may echo
// back as if they were speech. They are never treated as real content.
var placeholderCaptions = []string{
	"tara is listening",
	"processing your input",
	"transcribing speech",
	"audio captured",
	"listening",
}

// IsPlaceholder reports whether text is empty or one of the internal status
// captions rather than actual speech.
func IsPlaceholder(text string) bool {
	trimmed := strings.TrimSpace(strings.ToLower(text))
	if trimmed == "" {
		return true
	}
	for _, caption := range placeholderCaptions {
		if strings.Contains(trimmed, caption) {
			return true
		}
	}
	return false
}

// FormatLine renders the utterance as one report line.
func (u Utterance) FormatLine(speakerLabel string) string {
	ts := u.CreatedAt.Format("15:04:05")
	return fmt.Sprintf("[%s] %s: %s", ts, speakerLabel, strings.TrimSpace(u.Text))
}
