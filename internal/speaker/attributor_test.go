package speaker

import (
	"testing"
	"time"

	"github.com/talentspotify/tara-review/internal/transcript"
)

func TestAttributorAssignsInPriorityOrder(t *testing.T) {
	a := NewAttributor()

	if got := a.Resolve("7", transcript.RoleManager); got != transcript.RoleEmployee {
		t.Fatalf("expected first speaker to become Employee, got %q", got)
	}
	if got := a.Resolve("3", transcript.RoleEmployee); got != transcript.RoleManager {
		t.Fatalf("expected second speaker to become Manager, got %q", got)
	}
	if got := a.Resolve("9", transcript.RoleEmployee); got != transcript.ParticipantRole("9") {
		t.Fatalf("expected third speaker to become Participant 9, got %q", got)
	}
}

func TestAttributorIsIdempotent(t *testing.T) {
	a := NewAttributor()

	first := a.Resolve("1", transcript.RoleEmployee)
	for i := 0; i < 3; i++ {
		if got := a.Resolve("1", transcript.RoleManager); got != first {
			t.Fatalf("expected stable role %q, got %q", first, got)
		}
	}
}

func TestAttributorEmptyIDUsesFallback(t *testing.T) {
	a := NewAttributor()

	if got := a.Resolve("", transcript.RoleManager); got != transcript.RoleManager {
		t.Fatalf("expected fallback role, got %q", got)
	}
	if len(a.Roles()) != 0 {
		t.Fatal("empty id must not create an assignment")
	}
}

func TestAttributorReset(t *testing.T) {
	a := NewAttributor()
	a.Resolve("1", transcript.RoleEmployee)
	a.Resolve("2", transcript.RoleEmployee)
	a.Reset()

	if got := a.Resolve("2", transcript.RoleEmployee); got != transcript.RoleEmployee {
		t.Fatalf("expected priority restart after reset, got %q", got)
	}
}

func utter(role transcript.Role, text string) transcript.Utterance {
	return transcript.Utterance{Role: role, Text: text, CreatedAt: time.Now().UTC()}
}

func TestMergeAppendsDifferentRole(t *testing.T) {
	entries := []transcript.Utterance{utter(transcript.RoleEmployee, "I did well")}

	entries, op := Merge(entries, utter(transcript.RoleManager, "I agree"))
	if op != OpAppended {
		t.Fatalf("expected OpAppended, got %v", op)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}

func TestMergeDropsExactDuplicate(t *testing.T) {
	entries := []transcript.Utterance{utter(transcript.RoleEmployee, "I did well")}

	entries, op := Merge(entries, utter(transcript.RoleEmployee, "I did well"))
	if op != OpDropped {
		t.Fatalf("expected OpDropped, got %v", op)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
}

func TestMergeDropsTrailingSuffix(t *testing.T) {
	entries := []transcript.Utterance{utter(transcript.RoleEmployee, "I led the migration and mentored juniors")}

	entries, op := Merge(entries, utter(transcript.RoleEmployee, "mentored juniors"))
	if op != OpDropped {
		t.Fatalf("expected trailing repeat to be dropped, got %v", op)
	}
	if entries[0].Text != "I led the migration and mentored juniors" {
		t.Fatalf("expected text unchanged, got %q", entries[0].Text)
	}
}

func TestMergeConcatenatesSameRole(t *testing.T) {
	first := utter(transcript.RoleEmployee, "I led the migration")
	entries := []transcript.Utterance{first}

	followup := utter(transcript.RoleEmployee, "and mentored juniors")
	followup.CreatedAt = first.CreatedAt.Add(5 * time.Second)

	entries, op := Merge(entries, followup)
	if op != OpMerged {
		t.Fatalf("expected OpMerged, got %v", op)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Text != "I led the migration and mentored juniors" {
		t.Fatalf("unexpected merged text %q", entries[0].Text)
	}
	if !entries[0].CreatedAt.Equal(followup.CreatedAt) {
		t.Fatal("expected merged entry timestamp refreshed")
	}
}

func TestMergeDropsEmptyText(t *testing.T) {
	entries, op := Merge(nil, utter(transcript.RoleEmployee, "   "))
	if op != OpDropped {
		t.Fatalf("expected OpDropped, got %v", op)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}
