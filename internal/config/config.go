package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid config")

// Fetcher kinds
const (
	FetcherBrowser = "browser"
	FetcherHTTP    = "http"
)

// Store backends
const (
	StoreSheets = "sheets"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config holds all application configuration
type Config struct {
	Version  int            `toml:"version"`
	Source   SourceConfig   `toml:"source"`
	Sync     SyncConfig     `toml:"sync"`
	Store    StoreConfig    `toml:"store"`
	Mirror   MirrorConfig   `toml:"mirror"`
	Schedule ScheduleConfig `toml:"schedule"`
	Log      LogConfig      `toml:"log"`
}

type SourceConfig struct {
	BaseURL  string `toml:"base_url"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	Fetcher  string `toml:"fetcher"`
	Headless bool   `toml:"headless"`
	// PageTimeout is in seconds
	PageTimeout float64 `toml:"page_timeout"`
}

type SyncConfig struct {
	StartPage      int `toml:"start_page"`
	MaxPages       int `toml:"max_pages"`
	BatchSize      int `toml:"batch_size"`
	SyncEveryPages int `toml:"sync_every_pages"`
	// delays between store and source operations, in seconds
	MinDelay   float64 `toml:"min_delay"`
	MaxDelay   float64 `toml:"max_delay"`
	MaxRetries int     `toml:"max_retries"`
}

type StoreConfig struct {
	Backend string `toml:"backend"`
	// SheetURL is the spreadsheet URL or bare id
	SheetURL string `toml:"sheet_url"`
	// ServiceJSON is the service account key, raw or base64 encoded
	ServiceJSON    string `toml:"service_json"`
	SQLitePath     string `toml:"sqlite_path"`
	PostsSheet     string `toml:"posts_sheet"`
	ProfilesSheet  string `toml:"profiles_sheet"`
	TagsSheet      string `toml:"tags_sheet"`
	AnalyticsSheet string `toml:"analytics_sheet"`
}

type MirrorConfig struct {
	CSVPath string `toml:"csv_path"`
	// SaveSteps keeps a JSON copy of each run's records and analytics in the cache dir
	SaveSteps bool `toml:"save_steps"`
}

type ScheduleConfig struct {
	Spec     string `toml:"spec"`
	Timezone string `toml:"timezone"`
}

type LogConfig struct {
	Level   string `toml:"level"`
	NoColor bool   `toml:"no_color"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Source: SourceConfig{
			BaseURL:     "https://damadam.pk",
			Fetcher:     FetcherBrowser,
			Headless:    true,
			PageTimeout: 5,
		},
		Sync: SyncConfig{
			StartPage:      1,
			MaxPages:       5,
			BatchSize:      20,
			SyncEveryPages: 1,
			MinDelay:       1.2,
			MaxDelay:       1.6,
			MaxRetries:     3,
		},
		Store: StoreConfig{
			Backend:        StoreSheets,
			PostsSheet:     "Text-Post2",
			ProfilesSheet:  "Profiles",
			TagsSheet:      "TagList",
			AnalyticsSheet: "User-Analytics",
		},
		Mirror: MirrorConfig{
			CSVPath: "posts_backup_new.csv",
		},
		Schedule: ScheduleConfig{
			Spec:     "@every 8m",
			Timezone: "Asia/Karachi",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// EndPage is the last page of a run, inclusive
func (c *Config) EndPage() int {
	return c.Sync.StartPage + c.Sync.MaxPages - 1
}

// PageTimeout returns Source.PageTimeout as a duration
func (c *Config) PageTimeout() time.Duration {
	return seconds(c.Source.PageTimeout)
}

// Delays returns the configured min and max delay between operations
func (c *Config) Delays() (time.Duration, time.Duration) {
	return seconds(c.Sync.MinDelay), seconds(c.Sync.MaxDelay)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "feedsync"), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// CacheDir returns the platform-appropriate cache directory. It holds the
// browser cookies, the SQLite store and cached step outputs.
func CacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "feedsync"), nil
}

// Load reads config from disk
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads config from path. Settings missing from the file keep
// their defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrCreate reads the config file, writing one with defaults first if
// it does not exist yet.
func LoadOrCreate() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
		return cfg, nil
	}
	return LoadFile(path)
}

// Save writes config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes config to path
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}

// Validate checks the configuration and reports every problem at once
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Source.Fetcher == FetcherBrowser || c.Source.Fetcher == FetcherHTTP,
		"source.fetcher must be %q or %q, got %q", FetcherBrowser, FetcherHTTP, c.Source.Fetcher)
	check(c.Source.PageTimeout >= 0, "source.page_timeout must not be negative")
	check(c.Sync.StartPage >= 1, "sync.start_page must be at least 1")
	check(c.Sync.MaxPages >= 1, "sync.max_pages must be at least 1")
	check(c.Sync.BatchSize >= 1, "sync.batch_size must be at least 1")
	check(c.Sync.SyncEveryPages >= 1, "sync.sync_every_pages must be at least 1")
	check(c.Sync.MinDelay >= 0 && c.Sync.MaxDelay >= 0, "sync delays must not be negative")
	check(c.Sync.MinDelay <= c.Sync.MaxDelay, "sync.min_delay (%g) exceeds sync.max_delay (%g)", c.Sync.MinDelay, c.Sync.MaxDelay)
	check(c.Sync.MaxRetries >= 0, "sync.max_retries must not be negative")
	check(c.Store.PostsSheet != "", "store.posts_sheet is required")

	switch c.Store.Backend {
	case StoreSheets:
		check(c.Store.SheetURL != "", "store.sheet_url is required for the sheets backend")
		check(c.Store.ServiceJSON != "", "store.service_json is required for the sheets backend")
	case StoreSQLite, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("store.backend must be one of %q, %q, %q, got %q",
			StoreSheets, StoreSQLite, StoreMemory, c.Store.Backend))
	}

	if c.Schedule.Timezone != "" {
		_, err := time.LoadLocation(c.Schedule.Timezone)
		check(err == nil, "schedule.timezone %q: %v", c.Schedule.Timezone, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
