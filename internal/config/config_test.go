package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"influxcal/internal/model"
)

const sampleYAML = `
timezone: America/Chicago
horizon_end: "2026-12-31"
files:
  specials: specials_worldcup.ics
http:
  timeout: 5s
  retries: 2
sources:
  - kind: ics
    url: https://example.com/a.ics
    category: sports
    venue: AT&T Stadium
  - kind: generic
    url: https://example.com/events
    category: arts
    selectors:
      container: .card
      title: h3
      datetime: time
      attr: datetime
      default_time: "20:00"
events:
  specials:
    - summary: Fan Fest
      start: "2026-06-11"
      all_day: true
`

func TestLoadParsesAndNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(cfg.Sources))
	}
	if cfg.Sources[1].Selectors == nil || cfg.Sources[1].Selectors.DefaultTime != "20:00" {
		t.Fatalf("expected generic selectors, got %+v", cfg.Sources[1].Selectors)
	}
	if cfg.HTTP.Timeout != 5*time.Second || cfg.HTTP.Retries != 2 {
		t.Fatalf("unexpected http config %+v", cfg.HTTP)
	}
	if cfg.HTTP.Backoff != time.Second {
		t.Fatalf("expected default backoff, got %s", cfg.HTTP.Backoff)
	}
	if got := cfg.FileName(model.Specials); got != "specials_worldcup.ics" {
		t.Fatalf("FileName(specials) = %q", got)
	}
	if got := cfg.FileName(model.Music); got != "music.ics" {
		t.Fatalf("FileName(music) = %q", got)
	}
	if len(cfg.Events["specials"]) != 1 || !cfg.Events["specials"][0].AllDay {
		t.Fatalf("unexpected curated events %+v", cfg.Events)
	}
}

func TestLoadMissingFileReturnsEmptyConfig(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error")
	}
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *config.Error, got %T", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected wrapped not-exist error, got %v", err)
	}
	if cfg == nil || len(cfg.Sources) != 0 || len(cfg.Events) != 0 {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
	if cfg.Timezone != DefaultTimezone {
		t.Fatalf("expected default timezone, got %q", cfg.Timezone)
	}
}

func TestLoadInvalidYAMLReturnsEmptyConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("sources: [unterminated"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err == nil {
		t.Fatal("expected error")
	}
	if cfg == nil || len(cfg.Sources) != 0 {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := Sample().Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600, got %v", info.Mode().Perm())
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Sources) != 2 || cfg.Sources[1].Selectors == nil {
		t.Fatalf("sources did not survive round trip: %+v", cfg.Sources)
	}
	if cfg.HTTP.Timeout != 20*time.Second {
		t.Fatalf("timeout did not survive round trip: %s", cfg.HTTP.Timeout)
	}
}

func TestLocationFallsBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "Mars/Olympus_Mons"
	loc, err := cfg.Location()
	if err == nil {
		t.Fatal("expected error for unknown zone")
	}
	if loc == nil || loc.String() != DefaultTimezone {
		t.Fatalf("expected fallback to %s, got %v", DefaultTimezone, loc)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("INFLUXCAL_TIMEZONE", "America/New_York")
	t.Setenv("INFLUXCAL_OUTPUT_DIR", "/srv/feeds")
	t.Setenv("INFLUXCAL_HORIZON_END", "2027-01-31")

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.Timezone != "America/New_York" || cfg.OutputDir != "/srv/feeds" || cfg.HorizonEnd != "2027-01-31" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Listen != "" {
		t.Fatalf("unset override must not change listen, got %q", cfg.Listen)
	}
}
