// Package stt adapts the Deepgram live-transcription stream into the
// transcript event model consumed by the orchestrator.
package stt

import (
	"context"
	"log"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"

	"github.com/talentspotify/tara-review/internal/transcript"
)

// EventSink receives converted recognition events.
type EventSink interface {
	HandleTranscriptEvent(ev transcript.Event)
}

// transientErrCodes are provider errors that mean "nothing was said"; they
// are ignored and the recording continues.
var transientErrCodes = []string{"no-speech", "aborted"}

// Callback implements the Deepgram websocket callback surface, converting
// each message into a transcript.Event. Sequence indexes are monotonic for
// the life of the callback.
type Callback struct {
	sink EventSink
	warn func(message string)
	seq  atomic.Int64
}

// NewCallback wires a sink and an optional warn function for recoverable
// provider errors.
func NewCallback(sink EventSink, warn func(string)) *Callback {
	return &Callback{sink: sink, warn: warn}
}

func (c *Callback) Message(mr *api.MessageResponse) error {
	if c.sink == nil || len(mr.Channel.Alternatives) == 0 {
		return nil
	}

	alt := mr.Channel.Alternatives[0]
	sentence := strings.TrimSpace(alt.Transcript)
	if sentence == "" {
		return nil
	}

	speakerID := ""
	if len(alt.Words) > 0 && alt.Words[0].Speaker != nil {
		speakerID = strconv.Itoa(*alt.Words[0].Speaker)
	}

	c.sink.HandleTranscriptEvent(transcript.Event{
		SequenceIndex: int(c.seq.Add(1)) - 1,
		IsFinal:       mr.IsFinal,
		SpeakerID:     speakerID,
		Fragment:      sentence,
	})
	return nil
}

func (c *Callback) Open(*api.OpenResponse) error {
	log.Println("connected to Deepgram")
	return nil
}

func (c *Callback) Metadata(*api.MetadataResponse) error { return nil }

func (c *Callback) SpeechStarted(*api.SpeechStartedResponse) error { return nil }

func (c *Callback) UtteranceEnd(*api.UtteranceEndResponse) error { return nil }

func (c *Callback) Close(*api.CloseResponse) error {
	log.Println("disconnected from Deepgram")
	return nil
}

// Error ignores transient no-speech/aborted conditions; anything else is a
// recoverable warning surfaced to the caller, never a stop.
func (c *Callback) Error(er *api.ErrorResponse) error {
	code := strings.ToLower(er.ErrCode)
	for _, transient := range transientErrCodes {
		if strings.Contains(code, transient) {
			return nil
		}
	}

	log.Printf("deepgram error %s: %s", er.ErrCode, er.Description)
	if c.warn != nil {
		c.warn("Transcription provider reported an error; recording continues.")
	}
	return nil
}

func (c *Callback) UnhandledEvent([]byte) error { return nil }

// Supervise keeps the provider subscription alive while active() holds.
// connect blocks until the subscription ends; a clean end while still active
// triggers a restart, repeated failures give up with a log line rather than
// retrying forever.
func Supervise(
	ctx context.Context,
	connect func() error,
	active func() bool,
	wait func(time.Duration),
	logf func(string, ...any),
) {
	const maxConsecutiveFailures = 3

	failures := 0
	for {
		if ctx.Err() != nil || !active() {
			return
		}

		err := connect()
		if ctx.Err() != nil || !active() {
			return
		}

		if err != nil {
			failures++
			if failures >= maxConsecutiveFailures {
				logf("transcription subscription failed %d times, giving up: %v", failures, err)
				return
			}
			logf("transcription subscription error, restarting: %v", err)
		} else {
			failures = 0
			logf("transcription subscription ended while session active, restarting")
		}

		wait(time.Second)
	}
}
