// Package speaker maps anonymous per-utterance speaker ids to stable role
// labels and deduplicates overlapping restatements from the same speaker.
package speaker

import (
	"strings"
	"sync"

	"github.com/talentspotify/tara-review/internal/transcript"
)

// rolePriority is the fixed assignment order for newly seen speaker ids.
var rolePriority = []transcript.Role{transcript.RoleEmployee, transcript.RoleManager}

// Attributor assigns roles first-seen-wins for one session. Assignments are
// append-only: an id never moves to a different role. Reset on session start.
type Attributor struct {
	mu       sync.Mutex
	roles    map[string]transcript.Role
	assigned map[transcript.Role]bool
}

// NewAttributor returns an attributor with no assignments.
func NewAttributor() *Attributor {
	return &Attributor{
		roles:    make(map[string]transcript.Role),
		assigned: make(map[transcript.Role]bool),
	}
}

// Reset clears all assignments for a new call.
func (a *Attributor) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.roles = make(map[string]transcript.Role)
	a.assigned = make(map[transcript.Role]bool)
}

// Resolve returns the role for speakerID, assigning the next unused priority
// role on first sight. An empty id resolves to the caller-supplied default
// without creating an assignment.
func (a *Attributor) Resolve(speakerID string, fallback transcript.Role) transcript.Role {
	if speakerID == "" {
		return fallback
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if role, ok := a.roles[speakerID]; ok {
		return role
	}

	role := transcript.ParticipantRole(speakerID)
	for _, candidate := range rolePriority {
		if !a.assigned[candidate] {
			role = candidate
			break
		}
	}

	a.roles[speakerID] = role
	a.assigned[role] = true
	return role
}

// Roles returns a copy of the current speaker-id to role map.
func (a *Attributor) Roles() map[string]transcript.Role {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]transcript.Role, len(a.roles))
	for id, role := range a.roles {
		out[id] = role
	}
	return out
}

// MergeOp reports what Merge did with the incoming utterance.
type MergeOp int

const (
	// OpDropped means the text was empty, an exact duplicate, or a
	// trailing-substring repeat of the newest same-role entry.
	OpDropped MergeOp = iota
	// OpAppended means a new transcript entry was added.
	OpAppended
	// OpMerged means the text was folded into the newest entry.
	OpMerged
)

// Merge appends u to entries, folding it into the newest entry when that
// entry has the same role. Exact duplicates and trailing-substring repeats
// (overlapping final/partial artifacts) are dropped; otherwise the texts are
// joined with a single space and the timestamp is refreshed.
func Merge(entries []transcript.Utterance, u transcript.Utterance) ([]transcript.Utterance, MergeOp) {
	text := strings.TrimSpace(u.Text)
	if text == "" {
		return entries, OpDropped
	}
	u.Text = text

	if len(entries) == 0 {
		return append(entries, u), OpAppended
	}

	last := entries[len(entries)-1]
	if last.Role != u.Role {
		return append(entries, u), OpAppended
	}

	prev := strings.TrimSpace(last.Text)
	if prev == text || strings.HasSuffix(prev, text) {
		return entries, OpDropped
	}

	entries[len(entries)-1] = transcript.Utterance{
		Role:      last.Role,
		Text:      prev + " " + text,
		CreatedAt: u.CreatedAt,
	}
	return entries, OpMerged
}
