package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"influxcal/internal/model"
)

const (
	DefaultTimezone       = "America/Chicago"
	DefaultUIDDomain      = "dfw-influx"
	DefaultCalendarPrefix = "DFW"
	DefaultMasterName     = "DFW Influx Events (Master)"
	DefaultBackfillDays   = 7
	DefaultHorizonDays    = 400
	DefaultOutputDir      = "site"
	DefaultRefreshCron    = "0 */6 * * *"
	DefaultUserAgent      = "influxcal/1.0 (+https://github.com/influxcal)"
)

// Selectors configures the generic HTML extractor.
type Selectors struct {
	// Container matches one element per event card.
	Container string `yaml:"container" json:"container"`
	// Title is matched inside the container.
	Title string `yaml:"title" json:"title"`
	// Datetime is matched inside the container.
	Datetime string `yaml:"datetime" json:"datetime"`
	// Attr, if set, names the attribute on the datetime element that holds a
	// machine-readable instant (e.g. "datetime" or "content").
	Attr string `yaml:"attr,omitempty" json:"attr,omitempty"`
	// DefaultTime is the HH:MM used when only a date could be found.
	DefaultTime string `yaml:"default_time,omitempty" json:"default_time,omitempty"`
}

// Source describes one origin to extract events from.
type Source struct {
	Kind     string `yaml:"kind" json:"kind"`
	URL      string `yaml:"url" json:"url"`
	Category string `yaml:"category" json:"category"`
	// Venue is used as the location when the source does not carry one.
	Venue string `yaml:"venue,omitempty" json:"venue,omitempty"`
	// Render fetches the page through a headless browser when enabled.
	Render    bool       `yaml:"render,omitempty" json:"render,omitempty"`
	Selectors *Selectors `yaml:"selectors,omitempty" json:"selectors,omitempty"`
}

// CuratedEvent is a hand-maintained event literal.
type CuratedEvent struct {
	Summary     string `yaml:"summary" json:"summary"`
	Start       string `yaml:"start" json:"start"`
	End         string `yaml:"end,omitempty" json:"end,omitempty"`
	AllDay      bool   `yaml:"all_day,omitempty" json:"all_day,omitempty"`
	Location    string `yaml:"location,omitempty" json:"location,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// HTTPConfig configures the outbound transport.
type HTTPConfig struct {
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	Retries     int           `yaml:"retries" json:"retries"`
	Backoff     time.Duration `yaml:"backoff" json:"backoff"`
	MaxBackoff  time.Duration `yaml:"max_backoff" json:"max_backoff"`
	RetryStatus []int         `yaml:"retry_status" json:"retry_status"`
	UserAgent   string        `yaml:"user_agent" json:"user_agent"`
}

// BrowserConfig configures the headless browser used for sources with
// render: true.
type BrowserConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
	WaitSelector string        `yaml:"wait_selector" json:"wait_selector"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the feed server.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Timezone is the IANA zone every event is normalized into.
	Timezone string `yaml:"timezone" json:"timezone"`

	// UIDDomain is appended to generated event UIDs.
	UIDDomain string `yaml:"uid_domain" json:"uid_domain"`

	// CalendarPrefix and MasterName label the generated calendars.
	CalendarPrefix string `yaml:"calendar_prefix" json:"calendar_prefix"`
	MasterName     string `yaml:"master_name" json:"master_name"`

	// BackfillDays is how far into the past events are still published.
	BackfillDays int `yaml:"backfill_days" json:"backfill_days"`

	// HorizonDays is the publication horizon relative to now. HorizonEnd,
	// when set (YYYY-MM-DD), fixes the horizon to the end of that day.
	HorizonDays int    `yaml:"horizon_days" json:"horizon_days"`
	HorizonEnd  string `yaml:"horizon_end,omitempty" json:"horizon_end,omitempty"`

	// OutputDir receives one .ics file per category plus master.ics.
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	// Files overrides output file names per category, e.g.
	// {specials: specials_worldcup.ics}.
	Files map[string]string `yaml:"files,omitempty" json:"files,omitempty"`

	// RefreshCron is the rebuild schedule when running as a service.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// Listen, if non-empty, serves the feeds over HTTP.
	Listen string `yaml:"listen" json:"listen"`

	HTTP    HTTPConfig    `yaml:"http" json:"http"`
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	Sources []Source `yaml:"sources" json:"sources"`

	// Events holds curated events keyed by category name.
	Events map[string][]CuratedEvent `yaml:"events" json:"events"`

	// BasicAuth, if non-nil, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// Error reports a missing or invalid configuration file. Load returns it
// together with an empty configuration so a build can still run.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// DefaultConfig returns an in-memory default configuration with no sources
// and no curated events.
func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Empty is the configuration substituted when the file cannot be used.
func Empty() *Config {
	return DefaultConfig()
}

// Sample returns a commented-by-example configuration for first-time setup.
func Sample() *Config {
	c := DefaultConfig()
	c.Files = map[string]string{string(model.Specials): "specials_worldcup.ics"}
	c.Sources = []Source{
		{
			Kind:     "ics",
			URL:      "https://example.com/team-schedule.ics",
			Category: string(model.Sports),
			Venue:    "AT&T Stadium, Arlington, TX",
		},
		{
			Kind:     "generic",
			URL:      "https://example.com/events",
			Category: string(model.Arts),
			Venue:    "Dallas Arts District",
			Selectors: &Selectors{
				Container:   ".event-card",
				Title:       ".event-title",
				Datetime:    "time",
				Attr:        "datetime",
				DefaultTime: "19:00",
			},
		},
	}
	c.Events = map[string][]CuratedEvent{
		string(model.Specials): {
			{
				Summary:  "Fan Festival Opening Day",
				Start:    "2026-06-11",
				AllDay:   true,
				Location: "Fair Park, Dallas, TX",
			},
		},
	}
	return c
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if strings.TrimSpace(c.Timezone) == "" {
		c.Timezone = DefaultTimezone
	}
	if c.UIDDomain == "" {
		c.UIDDomain = DefaultUIDDomain
	}
	if c.CalendarPrefix == "" {
		c.CalendarPrefix = DefaultCalendarPrefix
	}
	if c.MasterName == "" {
		c.MasterName = DefaultMasterName
	}
	if c.BackfillDays <= 0 {
		c.BackfillDays = DefaultBackfillDays
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = DefaultHorizonDays
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.RefreshCron == "" {
		c.RefreshCron = DefaultRefreshCron
	}

	if c.HTTP.Timeout <= 0 {
		c.HTTP.Timeout = 20 * time.Second
	}
	if c.HTTP.Retries <= 0 {
		c.HTTP.Retries = 3
	}
	if c.HTTP.Backoff <= 0 {
		c.HTTP.Backoff = time.Second
	}
	if c.HTTP.MaxBackoff <= 0 {
		c.HTTP.MaxBackoff = 10 * time.Second
	}
	if len(c.HTTP.RetryStatus) == 0 {
		c.HTTP.RetryStatus = []int{429, 500, 502, 503, 504}
	}
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = DefaultUserAgent
	}

	if c.Browser.Timeout <= 0 {
		c.Browser.Timeout = 30 * time.Second
	}
	if c.Browser.WaitSelector == "" {
		c.Browser.WaitSelector = "body"
	}

	if c.Sources == nil {
		c.Sources = []Source{}
	}
	if c.Events == nil {
		c.Events = map[string][]CuratedEvent{}
	}
}

// Location loads the configured zone. An invalid name falls back to the
// default zone and is reported through the error.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err == nil {
		return loc, nil
	}
	fallback, ferr := time.LoadLocation(DefaultTimezone)
	if ferr != nil {
		return time.UTC, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return fallback, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
}

// FileName returns the output file name for a category.
func (c *Config) FileName(cat model.Category) string {
	if name := strings.TrimSpace(c.Files[string(cat)]); name != "" {
		return name
	}
	return string(cat) + ".ics"
}

// Load loads configuration from the given YAML path.
//
// A missing, unreadable or invalid file never aborts a run: Load returns
// the empty configuration together with an *Error describing the problem.
func Load(path string) (*Config, error) {
	if path == "" {
		return Empty(), &Error{Path: path, Err: errors.New("config path is empty")}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Empty(), &Error{Path: path, Err: err}
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Empty(), &Error{Path: path, Err: err}
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".influxcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
