package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	microphone "github.com/deepgram/deepgram-go-sdk/v3/pkg/audio/microphone"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"

	"github.com/talentspotify/tara-review/internal/config"
	"github.com/talentspotify/tara-review/internal/gdrive"
	"github.com/talentspotify/tara-review/internal/interview"
	"github.com/talentspotify/tara-review/internal/report"
	"github.com/talentspotify/tara-review/internal/server"
	"github.com/talentspotify/tara-review/internal/session"
	"github.com/talentspotify/tara-review/internal/storage"
	"github.com/talentspotify/tara-review/internal/stt"
	"github.com/talentspotify/tara-review/internal/summary"
	"github.com/talentspotify/tara-review/internal/transcript"
	"github.com/talentspotify/tara-review/internal/tts"
)

func main() {
	log.Println("tara-review: starting")

	configPath := os.Getenv(config.EnvPrefix + "CONFIG")
	if configPath == "" {
		configPath = "tara-review.yaml"
	}

	cfg, warnings, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	for _, w := range warnings {
		log.Printf("warning: %s", w)
	}

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("storage init failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	hub := server.NewHub()

	var synth session.Synthesizer
	if cfg.DeepgramAPIKey != "" {
		synth = tts.NewSpeaker(cfg.DeepgramAPIKey, cfg.TTSModel, io.Discard, hub.BroadcastSpeakingChanged)
	}

	var summarizer session.Summarizer
	if cfg.OpenAIAPIKey != "" {
		summarizer = summary.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, store)
	}

	orchestrator := session.NewOrchestrator(store, synth, summarizer, hub, cfg.GraceSchedule())

	if err := orchestrator.StartSession(time.Now()); err != nil {
		log.Fatalf("start session failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.Handler(hub, orchestrator, store),
	}
	go func() {
		log.Printf("api listening on http://%s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http server error: %v", err)
		}
	}()

	reportWriter := report.NewWriter(cfg.ReportDir)

	var syncer *gdrive.Syncer
	if cfg.GDriveFolderID != "" {
		s, syncErr := gdrive.NewSyncer(ctx, cfg.GoogleCredentialsFile, cfg.GDriveFolderID)
		if syncErr != nil {
			log.Printf("warning: gdrive upload disabled: %v", syncErr)
		} else {
			syncer = s
		}
	}

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				exportReport(orchestrator, store, reportWriter, syncer)
			}
		}
	}()

	var mic *microphone.Microphone
	var dgStop func()
	selectedSampleRate := 16000

	if cfg.DeepgramAPIKey != "" {
		microphone.Initialize()
		defer microphone.Teardown()

		client.Init(client.InitLib{LogLevel: client.LogLevelDefault})

		for _, rate := range cfg.SampleRateCandidates() {
			mic, err = microphone.New(microphone.AudioConfig{InputChannels: 1, SamplingRate: float32(rate)})
			if err != nil {
				log.Printf("warning: microphone open failed at %d Hz: %v", rate, err)
				continue
			}
			selectedSampleRate = rate
			break
		}

		if mic == nil {
			log.Printf("warning: microphone unavailable, running typed input only")
		} else if err := mic.Start(); err != nil {
			log.Printf("warning: microphone start failed at %d Hz, running typed input only: %v", selectedSampleRate, err)
			mic = nil
		} else {
			log.Printf("microphone started at %d Hz", selectedSampleRate)
		}
	}

	if mic != nil {
		cOptions := &interfaces.ClientOptions{EnableKeepAlive: true}
		tOptions := &interfaces.LiveTranscriptionOptions{
			Model:       cfg.DeepgramModel,
			Language:    cfg.DeepgramLanguage,
			Diarize:     true,
			Punctuate:   true,
			SmartFormat: true,
			Encoding:    "linear16",
			SampleRate:  selectedSampleRate,
			Channels:    1,
		}

		callback := stt.NewCallback(orchestrator, hub.BroadcastWarning)
		dgClient, err := client.NewWSUsingCallback(ctx, cfg.DeepgramAPIKey, cOptions, tOptions, callback)
		if err != nil {
			log.Printf("warning: deepgram client unavailable, running typed input only: %v", err)
		} else if ok := dgClient.Connect(); !ok {
			log.Printf("warning: deepgram connect failed, running typed input only")
		} else {
			dgStop = func() {
				dgClient.Stop()
			}
			go stt.Supervise(
				ctx,
				func() error { return mic.Stream(dgClient) },
				func() bool { return orchestrator.SessionID() != "" },
				time.Sleep,
				log.Printf,
			)
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("tara-review: shutting down")
	cancel()

	// EndSession clears the active snapshot, so capture it first for the
	// final export.
	sessionID, state, entries := orchestrator.Snapshot()
	if err := orchestrator.EndSession(); err != nil {
		log.Printf("warning: end session failed: %v", err)
	}
	writeSessionReport(store, reportWriter, syncer, sessionID, state, entries)

	if dgStop != nil {
		dgStop()
	}
	if mic != nil {
		_ = mic.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("warning: http shutdown failed: %v", err)
	}
}

// exportReport renders the newest known state of the active session to disk,
// and mirrors it to Drive when configured.
func exportReport(orchestrator *session.Orchestrator, store *storage.SQLiteStore, w *report.Writer, syncer *gdrive.Syncer) {
	sessionID, state, entries := orchestrator.Snapshot()
	writeSessionReport(store, w, syncer, sessionID, state, entries)
}

func writeSessionReport(store *storage.SQLiteStore, w *report.Writer, syncer *gdrive.Syncer, sessionID string, state interview.State, entries []transcript.Utterance) {
	if sessionID == "" || len(entries) == 0 {
		return
	}

	participants := state.Participants
	if len(participants) == 0 {
		if stored, err := store.GetParticipants(sessionID); err == nil {
			participants = stored
		}
	}

	content := report.Render(time.Now().UTC(), state.Stage, participants, entries)
	path, err := w.Write(sessionID, content)
	if err != nil {
		log.Printf("warning: report export failed: %v", err)
		return
	}

	if syncer != nil {
		if err := syncer.Upload(path, sessionID); err != nil {
			log.Printf("warning: gdrive upload failed: %v", err)
		}
	}
}
