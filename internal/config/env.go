package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "FEEDSYNC_"

// ApplyEnv overrides config fields from FEEDSYNC_* environment variables.
// Unset or empty variables leave the field alone; unparsable values are
// reported together.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.Getenv)
}

func (c *Config) applyEnv(getenv func(string) string) error {
	e := envReader{getenv: getenv}

	e.str("USERNAME", &c.Source.Username)
	e.str("PASSWORD", &c.Source.Password)
	e.str("BASE_URL", &c.Source.BaseURL)
	e.str("FETCHER", &c.Source.Fetcher)
	e.boolean("HEADLESS", &c.Source.Headless)
	e.float("PAGE_TIMEOUT", &c.Source.PageTimeout)

	e.integer("START_PAGE", &c.Sync.StartPage)
	e.integer("MAX_PAGES", &c.Sync.MaxPages)
	e.integer("BATCH_SIZE", &c.Sync.BatchSize)
	e.integer("SYNC_EVERY_PAGES", &c.Sync.SyncEveryPages)
	e.float("MIN_DELAY", &c.Sync.MinDelay)
	e.float("MAX_DELAY", &c.Sync.MaxDelay)
	e.integer("MAX_RETRIES", &c.Sync.MaxRetries)

	e.str("STORE", &c.Store.Backend)
	e.str("SHEET_URL", &c.Store.SheetURL)
	e.str("SERVICE_JSON", &c.Store.ServiceJSON)
	e.str("SQLITE_PATH", &c.Store.SQLitePath)
	e.str("POSTS_SHEET", &c.Store.PostsSheet)

	e.str("CSV_PATH", &c.Mirror.CSVPath)
	e.boolean("SAVE_STEPS", &c.Mirror.SaveSteps)

	e.str("SCHEDULE", &c.Schedule.Spec)
	e.str("TIMEZONE", &c.Schedule.Timezone)

	e.str("LOG_LEVEL", &c.Log.Level)
	e.boolean("NO_COLOR", &c.Log.NoColor)

	if len(e.errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(e.errs...))
	}
	return nil
}

type envReader struct {
	getenv func(string) string
	errs   []error
}

func (e *envReader) lookup(key string) (string, bool) {
	v := strings.TrimSpace(e.getenv(EnvPrefix + key))
	return v, v != ""
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *envReader) integer(key string, dst *int) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
		return
	}
	*dst = i
}

func (e *envReader) float(key string, dst *float64) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
		return
	}
	*dst = f
}

func (e *envReader) boolean(key string, dst *bool) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
		return
	}
	*dst = b
}
