package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/votsa/ssr/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(config.FileEnv, "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Mode != config.ModeMock || cfg.Addr() != ":8080" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.AnchorPageLoadIterations != 1 || cfg.AnchorRefineIterations != 3 || cfg.PollMaxIterations != 5 {
		t.Fatalf("unexpected iteration defaults %+v", cfg)
	}
	if cfg.PollDelay != 0 {
		t.Fatalf("expected no poll delay by default, got %v", cfg.PollDelay)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hotelsearch.yaml")
	yaml := strings.Join([]string{
		"mode: live",
		"searchApiUrl: https://search.example.com",
		"availabilityApiUrl: https://offers.example.com",
		"currency: USD",
		"pollDelay: 250ms",
		"pollMaxIterations: 7",
	}, "\n")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.FileEnv, path)
	t.Setenv("CURRENCY", "GBP")
	t.Setenv("SESSION_TTL", "1h")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Mode != config.ModeLive || cfg.SearchAPIURL != "https://search.example.com" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.PollDelay != 250*time.Millisecond || cfg.PollMaxIterations != 7 {
		t.Fatalf("unexpected poll settings %v / %d", cfg.PollDelay, cfg.PollMaxIterations)
	}
	if cfg.Currency != "GBP" {
		t.Fatalf("environment should override the file, got %s", cfg.Currency)
	}
	if cfg.SessionTTL != time.Hour {
		t.Fatalf("unexpected session ttl %v", cfg.SessionTTL)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad duration", "COMPUTE_TIMEOUT", "soon"},
		{"bad int", "POLL_MAX_ITERATIONS", "many"},
		{"zero iterations", "ANCHOR_REFINE_ITERATIONS", "0"},
		{"unknown mode", "MODE", "hybrid"},
		{"live without urls", "MODE", "live"},
		{"negative delay", "POLL_DELAY", "-1s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(config.FileEnv, "")
			t.Setenv(tt.key, tt.val)
			if _, err := config.Load(); err == nil {
				t.Fatalf("expected error for %s=%s", tt.key, tt.val)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv(config.FileEnv, filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := config.Load(); err == nil {
		t.Fatal("expected error for a missing config file")
	}
}
