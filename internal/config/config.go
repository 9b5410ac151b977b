package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"evcal/internal/layout"
	"evcal/internal/model"
)

// NOTE: This file provides the configuration model and full load/save
// behavior, including first-run config creation and 0600 permissions.
// Files ending in ".toml" use TOML; everything else is YAML.

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" toml:"url" json:"url"`
	// ID is the source id stamped on imported events (model.Event.SourceID).
	ID string `yaml:"id" toml:"id" json:"id"`
	// Name is a human-friendly label shown in the UI.
	Name string `yaml:"name" toml:"name" json:"name"`
	// Color is applied to every event imported from this source.
	Color model.Color `yaml:"color" toml:"color" json:"color"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" toml:"username" json:"username"`
	Password string `yaml:"password" toml:"password" json:"password"`
}

// LayoutConfig controls the time grid and the overlap engine.
type LayoutConfig struct {
	// RowHeight is the pixel height of one hour row.
	RowHeight float64 `yaml:"row_height" toml:"row_height" json:"row_height"`
	// Gutter is the pixel gap between side-by-side events.
	Gutter float64 `yaml:"gutter" toml:"gutter" json:"gutter"`
	// Clustering is "greedy" (default) or "connected".
	Clustering string `yaml:"clustering" toml:"clustering" json:"clustering"`
	// Sizing is "cluster" (default) or "local".
	Sizing string `yaml:"sizing" toml:"sizing" json:"sizing"`
}

// SnapshotConfig controls PNG capture of the calendar page.
type SnapshotConfig struct {
	// URL is the page to capture. Empty means the local /calendar page.
	URL            string `yaml:"url" toml:"url" json:"url"`
	Output         string `yaml:"output" toml:"output" json:"output"`
	Width          int    `yaml:"width" toml:"width" json:"width"`
	Height         int    `yaml:"height" toml:"height" json:"height"`
	TimeoutSeconds int    `yaml:"timeout_seconds" toml:"timeout_seconds" json:"timeout_seconds"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" toml:"listen" json:"listen"`

	// Timezone is the IANA timezone used as canonical display zone (e.g. "Asia/Jakarta").
	Timezone string `yaml:"timezone" toml:"timezone" json:"timezone"`

	// Locale is the default UI language tag ("en", "id").
	Locale string `yaml:"locale" toml:"locale" json:"locale"`

	// LogLevel is one of "debug", "info", "error". --verbose overrides it.
	LogLevel string `yaml:"log_level" toml:"log_level" json:"log_level"`

	// WeekStart controls which weekday is treated as the first day of the week
	// in calendar views. Supported values:
	//   - "monday" (default)
	//   - "sunday"
	WeekStart string `yaml:"week_start" toml:"week_start" json:"week_start"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// used for periodic subscription refresh.
	RefreshCron string `yaml:"refresh" toml:"refresh" json:"refresh"`

	// ScheduleMonths is how far ahead the schedule view reaches.
	ScheduleMonths int `yaml:"schedule_months" toml:"schedule_months" json:"schedule_months"`

	// SeedSamples loads the demo events into an empty store on startup.
	SeedSamples bool `yaml:"seed_samples" toml:"seed_samples" json:"seed_samples"`

	Layout LayoutConfig `yaml:"layout" toml:"layout" json:"layout"`

	// ICS is the list of subscribed ICS sources.
	ICS []ICSConfig `yaml:"ics" toml:"ics" json:"ics"`

	// CacheDir holds fetched ICS bodies and the last snapshot.
	CacheDir string `yaml:"cache_dir" toml:"cache_dir" json:"cache_dir"`

	Snapshot SnapshotConfig `yaml:"snapshot" toml:"snapshot" json:"snapshot"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" toml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen   = "127.0.0.1:8080"
	defaultTimezone = "Asia/Jakarta"
	defaultRefresh  = "*/15 * * * *"
	defaultCacheDir = "cache"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         defaultListen,
		Timezone:       defaultTimezone,
		Locale:         "en",
		LogLevel:       "info",
		WeekStart:      "monday",
		RefreshCron:    defaultRefresh,
		ScheduleMonths: 12,
		SeedSamples:    true,
		Layout: LayoutConfig{
			RowHeight:  layout.DefaultRowHeight,
			Gutter:     layout.DefaultGutter,
			Clustering: "greedy",
			Sizing:     "cluster",
		},
		ICS:      []ICSConfig{},
		CacheDir: defaultCacheDir,
		Snapshot: SnapshotConfig{
			Output:         "calendar.png",
			Width:          1304,
			Height:         984,
			TimeoutSeconds: 30,
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.Locale == "" {
		c.Locale = def.Locale
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	// Unknown week starts fall back to monday.
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		c.WeekStart = "monday"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.ScheduleMonths <= 0 {
		c.ScheduleMonths = def.ScheduleMonths
	}

	if c.Layout.RowHeight <= 0 {
		c.Layout.RowHeight = def.Layout.RowHeight
	}
	if c.Layout.Gutter < 0 {
		c.Layout.Gutter = 0
	}
	switch c.Layout.Clustering {
	case "greedy", "connected":
	default:
		c.Layout.Clustering = def.Layout.Clustering
	}
	switch c.Layout.Sizing {
	case "cluster", "local":
	default:
		c.Layout.Sizing = def.Layout.Sizing
	}

	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	for i := range c.ICS {
		if c.ICS[i].ID == "" {
			c.ICS[i].ID = fmt.Sprintf("ics-%d", i+1)
		}
		if !c.ICS[i].Color.Valid() {
			c.ICS[i].Color = model.DefaultColor
		}
	}
	if c.CacheDir == "" {
		c.CacheDir = def.CacheDir
	}

	if c.Snapshot.Output == "" {
		c.Snapshot.Output = def.Snapshot.Output
	}
	if c.Snapshot.Width <= 0 {
		c.Snapshot.Width = def.Snapshot.Width
	}
	if c.Snapshot.Height <= 0 {
		c.Snapshot.Height = def.Snapshot.Height
	}
	if c.Snapshot.TimeoutSeconds <= 0 {
		c.Snapshot.TimeoutSeconds = def.Snapshot.TimeoutSeconds
	}
}

// Location resolves Timezone, falling back to time.Local when it is unknown.
func (c *Config) Location() *time.Location {
	if loc, err := time.LoadLocation(c.Timezone); err == nil {
		return loc
	}
	return time.Local
}

// LayoutOptions maps the layout section onto engine options.
func (c *Config) LayoutOptions() layout.Options {
	var opts layout.Options
	if c.Layout.Clustering == "connected" {
		opts.Clustering = layout.Connected
	}
	if c.Layout.Sizing == "local" {
		opts.Sizing = layout.LocalWidth
	}
	return opts
}

// Grid returns the time grid geometry.
func (c *Config) Grid() layout.Grid {
	return layout.Grid{RowHeight: c.Layout.RowHeight, Gutter: c.Layout.Gutter}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load loads configuration from the given path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - decode YAML or TOML (by extension) into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if isTOML(path) {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("config: decode toml %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode yaml %s: %w", path, err)
		}
	}
	cfg.Normalize()

	return &cfg, nil
}

func encode(path string, cfg *Config) ([]byte, error) {
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return yaml.Marshal(cfg)
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Encodes cfg as YAML or TOML.
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

	data, err := encode(path, cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".evcal-config-*.tmp")
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
