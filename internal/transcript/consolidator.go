package transcript

import (
	"strings"
	"sync"
	"time"
)

// Consolidated is the best-effort reconstruction of what was said during one
// recording session. Fallback is true when no usable speech was captured and
// Text holds the sentinel instead.
type Consolidated struct {
	Text      string
	SpeakerID string
	Fallback  bool
}

// Consolidator merges the partial/final event stream of a single recording
// session into one utterance string. One consolidator serves exactly one
// recording; starting a new recording means starting a new consolidator.
type Consolidator struct {
	mu           sync.Mutex
	finalParts   []string
	lastNonEmpty string
	lastPartial  string
	lastSeq      int
	speakerID    string
}

// NewConsolidator returns a consolidator with no observed events.
func NewConsolidator() *Consolidator {
	return &Consolidator{lastSeq: -1}
}

// Observe folds one recognition event into the accumulators. Events whose
// sequence index is below the highest already seen are replays from a stale
// provider subscription and are dropped.
func (c *Consolidator) Observe(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ev.SequenceIndex < c.lastSeq {
		return
	}
	c.lastSeq = ev.SequenceIndex

	if ev.SpeakerID != "" {
		c.speakerID = ev.SpeakerID
	}

	fragment := strings.TrimSpace(ev.Fragment)
	if IsPlaceholder(fragment) {
		return
	}

	if ev.IsFinal {
		c.finalParts = append(c.finalParts, fragment)
	} else {
		c.lastPartial = fragment
	}

	combined := strings.TrimSpace(strings.Join(c.finalParts, " ") + " " + c.lastPartial)
	if combined != "" {
		c.lastNonEmpty = combined
	}
}

// Current returns the best available text right now, without waiting:
// finals first, then the last non-empty combination, then the latest raw
// partial. Empty means nothing usable has arrived yet.
func (c *Consolidator) Current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current()
}

func (c *Consolidator) current() string {
	if finals := strings.TrimSpace(strings.Join(c.finalParts, " ")); finals != "" {
		return finals
	}
	if c.lastNonEmpty != "" {
		return c.lastNonEmpty
	}
	if !IsPlaceholder(c.lastPartial) {
		return c.lastPartial
	}
	return ""
}

// Finalize resolves the recording into a single utterance. The provider may
// deliver its last final fragment slightly after the stop signal, so the
// first grace interval is always waited out; later intervals are only waited
// when nothing usable has arrived yet. wait is injectable for tests; pass
// nil for time.Sleep.
func (c *Consolidator) Finalize(wait func(time.Duration), grace []time.Duration) Consolidated {
	if wait == nil {
		wait = time.Sleep
	}

	for i, d := range grace {
		if i > 0 {
			if text := c.Current(); text != "" {
				return c.resolved(text)
			}
		}
		wait(d)
	}

	if text := c.Current(); text != "" {
		return c.resolved(text)
	}

	c.mu.Lock()
	speaker := c.speakerID
	c.mu.Unlock()
	return Consolidated{Text: FallbackText, SpeakerID: speaker, Fallback: true}
}

func (c *Consolidator) resolved(text string) Consolidated {
	c.mu.Lock()
	speaker := c.speakerID
	c.mu.Unlock()
	return Consolidated{Text: text, SpeakerID: speaker}
}

// DefaultGrace is the bounded wait schedule applied before giving up on a
// silent recording: one initial wait, then a shorter recheck.
var DefaultGrace = []time.Duration{time.Second, 500 * time.Millisecond}
