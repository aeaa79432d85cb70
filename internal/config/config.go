package config

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"weekgrid/internal/timegrid"
)

// ICSConfig describes a single ICS timetable feed.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" toml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" toml:"id" json:"id"`
	// Name is a human-friendly label shown in the UI.
	Name string `yaml:"name" toml:"name" json:"name"`
	// Entity binds the feed to a timetable owner, e.g. "group:cs-101" or
	// "room:B-204". Feeds without an entity are shown for every entity.
	Entity string `yaml:"entity" toml:"entity" json:"entity"`
}

// APIConfig points at the scheduling REST API.
type APIConfig struct {
	// BaseURL is the API root, e.g. "https://sched.example.edu/api/v1".
	// Empty disables the API source.
	BaseURL string `yaml:"base_url" toml:"base_url" json:"base_url"`
	// Token is sent as a bearer token.
	Token          string `yaml:"token" toml:"token" json:"-"`
	TimeoutSeconds int    `yaml:"timeout_seconds" toml:"timeout_seconds" json:"timeout_seconds"`
}

// LayoutConfig mirrors timegrid.Options with human-readable times.
type LayoutConfig struct {
	PaddingMinutes int `yaml:"padding_minutes" toml:"padding_minutes" json:"padding_minutes"`
	// DefaultAxisMin / DefaultAxisMax are "HH:MM" strings for the empty
	// week window.
	DefaultAxisMin string  `yaml:"default_axis_min" toml:"default_axis_min" json:"default_axis_min"`
	DefaultAxisMax string  `yaml:"default_axis_max" toml:"default_axis_max" json:"default_axis_max"`
	BodySize       int     `yaml:"body_size" toml:"body_size" json:"body_size"`
	LaneGapPct     float64 `yaml:"lane_gap_pct" toml:"lane_gap_pct" json:"lane_gap_pct"`
}

// CacheConfig bounds the computed layout cache.
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries" toml:"max_entries" json:"max_entries"`
	TTLSeconds int `yaml:"ttl_seconds" toml:"ttl_seconds" json:"ttl_seconds"`
	// RedisAddr, if set, shares the cache through Redis instead of keeping
	// it in process.
	RedisAddr string `yaml:"redis_addr" toml:"redis_addr" json:"redis_addr"`
	// Dir holds HTTP conditional-request caches for upstream fetches.
	Dir string `yaml:"dir" toml:"dir" json:"dir"`
}

// CaptureConfig controls the PNG preview.
type CaptureConfig struct {
	// URL of the /calendar page to capture. Empty disables capture.
	URL        string `yaml:"url" toml:"url" json:"url"`
	OutputPath string `yaml:"output_path" toml:"output_path" json:"output_path"`
	Width      int    `yaml:"width" toml:"width" json:"width"`
	Height     int    `yaml:"height" toml:"height" json:"height"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" toml:"username" json:"username"`
	Password string `yaml:"password" toml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" toml:"listen" json:"listen"`

	// Timezone is the IANA timezone lessons are displayed in.
	Timezone string `yaml:"timezone" toml:"timezone" json:"timezone"`

	// WeekStart only changes the column order of rendered grids
	// ("monday" or "sunday"). Day numbers are always ISO, 1 = Monday.
	WeekStart string `yaml:"week_start" toml:"week_start" json:"week_start"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// used for periodic cache refresh and preview capture.
	RefreshCron string `yaml:"refresh" toml:"refresh" json:"refresh"`

	// DefaultEntity is the timetable shown when a request names none.
	DefaultEntity string `yaml:"default_entity" toml:"default_entity" json:"default_entity"`

	LogLevel string `yaml:"log_level" toml:"log_level" json:"log_level"`

	Layout  LayoutConfig  `yaml:"layout" toml:"layout" json:"layout"`
	API     APIConfig     `yaml:"api" toml:"api" json:"api"`
	ICS     []ICSConfig   `yaml:"ics" toml:"ics" json:"ics"`
	Cache   CacheConfig   `yaml:"cache" toml:"cache" json:"cache"`
	Capture CaptureConfig `yaml:"capture" toml:"capture" json:"capture"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" toml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	cfg := seed()
	cfg.Normalize()
	return cfg
}

// seed returns the values that Normalize cannot tell apart from an explicit
// zero. Files are decoded on top of it so absent keys keep these defaults.
func seed() *Config {
	return &Config{
		Layout: LayoutConfig{PaddingMinutes: 30},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/Berlin"
	}
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		// Unknown value; fall back to monday to avoid surprising layouts.
		c.WeekStart = "monday"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/15 * * * *"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	// Padding stays as configured: 0 is a valid "no padding" setting, only
	// negative values are reset.
	if c.Layout.PaddingMinutes < 0 {
		c.Layout.PaddingMinutes = 30
	}
	if c.Layout.DefaultAxisMin == "" {
		c.Layout.DefaultAxisMin = timegrid.FormatTime(timegrid.DefaultAxisMin)
	}
	if c.Layout.DefaultAxisMax == "" {
		c.Layout.DefaultAxisMax = timegrid.FormatTime(timegrid.DefaultAxisMax)
	}
	if c.Layout.BodySize <= 0 {
		c.Layout.BodySize = timegrid.DefaultBodySize
	}
	if c.Layout.LaneGapPct < 0 || c.Layout.LaneGapPct >= 100 {
		c.Layout.LaneGapPct = 0
	}

	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = 15
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}

	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = 256
	}
	if c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = 15 * 60
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = "/var/lib/weekgrid/http-cache"
	}

	if c.Capture.OutputPath == "" {
		c.Capture.OutputPath = "/var/lib/weekgrid/preview.png"
	}
}

// LayoutOptions converts the layout section into engine options.
func (c *Config) LayoutOptions() timegrid.Options {
	return timegrid.Options{
		PaddingMinutes: c.Layout.PaddingMinutes,
		DefaultAxisMin: timegrid.ParseTime(c.Layout.DefaultAxisMin),
		DefaultAxisMax: axisEnd(c.Layout.DefaultAxisMax),
		BodySize:       c.Layout.BodySize,
		LaneGapPct:     c.Layout.LaneGapPct,
	}
}

// axisEnd lets "24:00" express the end of the day, which ParseTime rejects.
func axisEnd(s string) int {
	if strings.TrimSpace(s) == "24:00" {
		return timegrid.MinutesPerDay
	}
	return timegrid.ParseTime(s)
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Validate checks the pieces Normalize cannot repair.
func (c *Config) Validate() error {
	if err := c.LayoutOptions().Validate(); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return err
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load loads configuration from the given YAML (or .toml) path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read and unmarshal into Config
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

	cfg := seed()
	if isTOML(path) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML, or TOML for a .toml path.
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

	data, err := marshal(path, cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".weekgrid-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
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

func marshal(path string, cfg *Config) ([]byte, error) {
	if !isTOML(path) {
		return yaml.Marshal(cfg)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
