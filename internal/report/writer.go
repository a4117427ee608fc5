// Package report renders and stores the human-readable review export.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/talentspotify/tara-review/internal/interview"
	"github.com/talentspotify/tara-review/internal/transcript"
)

// Render produces the TalentSpotify review report: a header identifying the
// session and participants, then one line per transcript entry in
// conversational order. Facilitator lines are labeled TARA; participant
// lines use the confirmed name when one exists, else the role label.
func Render(generatedAt time.Time, stage interview.Stage, participants []interview.Participant, utterances []transcript.Utterance) string {
	var b strings.Builder

	b.WriteString("TalentSpotify Performance Review Report\n")
	b.WriteString("Generated by Tara, HR Assistant\n")
	fmt.Fprintf(&b, "Date: %s\n", generatedAt.Format("2006-01-02"))
	fmt.Fprintf(&b, "Time: %s\n", generatedAt.Format("15:04:05"))
	fmt.Fprintf(&b, "Review Stage: %s\n", stage)

	names := make(map[transcript.Role]string, len(participants))
	for _, p := range participants {
		names[p.Role] = p.Name
		label := strings.ToLower(string(p.Role))
		if p.ID != "" {
			fmt.Fprintf(&b, "%s: %s (ID %s)\n", extractTitle(label), p.Name, p.ID)
		} else {
			fmt.Fprintf(&b, "%s: %s\n", extractTitle(label), p.Name)
		}
	}

	b.WriteString(strings.Repeat("=", 60))
	b.WriteString("\n\n")

	for i, u := range utterances {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(u.FormatLine(speakerLabel(u.Role, names)))
	}
	b.WriteString("\n")

	return b.String()
}

func speakerLabel(role transcript.Role, names map[transcript.Role]string) string {
	if role == transcript.RoleFacilitator {
		return "TARA"
	}
	if name, ok := names[role]; ok && name != "" {
		return name
	}
	return string(role)
}

func extractTitle(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Writer stores rendered reports on disk, one file per session.
type Writer struct {
	dir string
	mu  sync.Mutex
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Write saves the report for sessionID, overwriting any previous export of
// the same session.
func (w *Writer) Write(sessionID, content string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", w.dir, err)
	}

	path := w.Path(sessionID)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	return path, nil
}

// Path returns the on-disk location for a session's report.
func (w *Writer) Path(sessionID string) string {
	return filepath.Join(w.dir, "talentspotify-review-"+sessionID+".txt")
}
