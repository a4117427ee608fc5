// Package tts vocalizes facilitator replies through the Deepgram speak API.
// Synthesis is fire-and-forget: a new request supersedes the one in flight,
// failures are logged and never block the next turn.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"
)

const speakEndpoint = "https://api.deepgram.com/v1/speak"

// Speaker streams synthesized audio into sink. Playback of those bytes is an
// external concern; sink is typically an audio-out pipe.
type Speaker struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
	sink     io.Writer
	onStatus func(speaking bool)

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewSpeaker builds a speaker. onStatus, when non-nil, is told when speech
// starts and ends (including cancellation).
func NewSpeaker(apiKey, model string, sink io.Writer, onStatus func(bool)) *Speaker {
	if model == "" {
		model = "aura-2-thalia-en"
	}
	return &Speaker{
		apiKey:   apiKey,
		model:    model,
		endpoint: speakEndpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		sink:     sink,
		onStatus: onStatus,
	}
}

// Speak requests synthesis of text, cancelling any in-flight request first.
// It returns immediately; failures are logged, never surfaced.
func (s *Speaker) Speak(text string) {
	if text == "" {
		return
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	go s.run(ctx, cancel, text)
}

// Stop cancels the current synthesis, if any. Cancellation is cooperative;
// no further audio is written once it takes effect.
func (s *Speaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Speaker) run(ctx context.Context, cancel context.CancelFunc, text string) {
	defer cancel()

	if s.onStatus != nil {
		s.onStatus(true)
		defer s.onStatus(false)
	}

	if err := s.synthesize(ctx, text); err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Printf("tts: synthesis failed: %v", err)
	}
}

func (s *Speaker) synthesize(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s?model=%s&encoding=linear16&sample_rate=24000", s.endpoint, s.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("speak request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("speak request status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	if s.sink == nil {
		_, err = io.Copy(io.Discard, resp.Body)
	} else {
		_, err = io.Copy(s.sink, resp.Body)
	}
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("stream audio: %w", err)
	}
	return nil
}
