package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, warnings, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ListenAddr != "127.0.0.1:8080" {
		t.Fatalf("unexpected listen_addr %q", cfg.ListenAddr)
	}
	if cfg.DeepgramModel != "nova-2" {
		t.Fatalf("unexpected deepgram_model %q", cfg.DeepgramModel)
	}
	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Fatalf("unexpected openai_model %q", cfg.OpenAIModel)
	}

	// Missing API keys produce warnings, not errors.
	if len(warnings) < 2 {
		t.Fatalf("expected warnings for missing API keys, got %v", warnings)
	}
}

func TestLoadFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `listen_addr: "0.0.0.0:9999"
grace_window: "2s"
deepgram_model: "nova-3"
mic_sample_rates: [8000, 16000]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ListenAddr != "0.0.0.0:9999" {
		t.Fatalf("unexpected listen_addr %q", cfg.ListenAddr)
	}
	if cfg.GraceWindow != "2s" {
		t.Fatalf("unexpected grace_window %q", cfg.GraceWindow)
	}
	if cfg.DeepgramModel != "nova-3" {
		t.Fatalf("unexpected deepgram_model %q", cfg.DeepgramModel)
	}
	if !reflect.DeepEqual(cfg.MicSampleRates, []int{8000, 16000}) {
		t.Fatalf("unexpected mic_sample_rates %v", cfg.MicSampleRates)
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("listen_addr: [unclosed"), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	if _, _, err := Load(path); err == nil {
		t.Fatal("expected parse error for malformed YAML")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvPrefix+"LISTEN_ADDR", "127.0.0.1:7777")
	t.Setenv(EnvPrefix+"GRACE_WINDOW", "3s")
	t.Setenv(EnvPrefix+"GRACE_RECHECK", "250ms")
	t.Setenv(EnvPrefix+"MIC_SAMPLE_RATE", "48000")
	t.Setenv(EnvPrefix+"MIC_SAMPLE_RATES", "44100, 32000, 44100, bogus")
	t.Setenv(EnvPrefix+"DEEPGRAM_API_KEY", "dg-test-key")
	t.Setenv(EnvPrefix+"OPENAI_API_KEY", "oa-test-key")

	cfg, warnings, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ListenAddr != "127.0.0.1:7777" {
		t.Fatalf("unexpected listen_addr %q", cfg.ListenAddr)
	}
	if cfg.MicSampleRate != 48000 {
		t.Fatalf("unexpected mic_sample_rate %d", cfg.MicSampleRate)
	}
	if !reflect.DeepEqual(cfg.MicSampleRates, []int{44100, 32000}) {
		t.Fatalf("unexpected mic_sample_rates %v", cfg.MicSampleRates)
	}
	if cfg.DeepgramAPIKey != "dg-test-key" || cfg.OpenAIAPIKey != "oa-test-key" {
		t.Fatal("expected secrets loaded from environment")
	}

	want := []time.Duration{3 * time.Second, 250 * time.Millisecond}
	if !reflect.DeepEqual(cfg.GraceSchedule(), want) {
		t.Fatalf("unexpected grace schedule %v", cfg.GraceSchedule())
	}

	for _, w := range warnings {
		t.Errorf("unexpected warning with keys set: %s", w)
	}
}

func TestGraceScheduleFallsBackOnInvalid(t *testing.T) {
	cfg := defaults()
	cfg.GraceWindow = "not-a-duration"
	cfg.GraceRecheck = "-2s"

	want := []time.Duration{time.Second, 500 * time.Millisecond}
	if !reflect.DeepEqual(cfg.GraceSchedule(), want) {
		t.Fatalf("expected fallback schedule, got %v", cfg.GraceSchedule())
	}
}

func TestSampleRateCandidates(t *testing.T) {
	cfg := defaults()
	cfg.MicSampleRate = 48000
	cfg.MicSampleRates = []int{48000, 8000, -1}

	got := cfg.SampleRateCandidates()
	if got[0] != 48000 {
		t.Fatalf("expected preferred rate first, got %v", got)
	}

	seen := map[int]bool{}
	for _, rate := range got {
		if rate <= 0 {
			t.Fatalf("expected invalid rates dropped, got %v", got)
		}
		if seen[rate] {
			t.Fatalf("expected deduplicated rates, got %v", got)
		}
		seen[rate] = true
	}
	if !seen[8000] || !seen[16000] {
		t.Fatalf("expected configured and default rates present, got %v", got)
	}
}
