package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"

	"github.com/ibeckermayer/feedsync/internal/auth"
	"github.com/ibeckermayer/feedsync/internal/config"
	"github.com/ibeckermayer/feedsync/internal/scraper"
	"github.com/ibeckermayer/feedsync/internal/sheet"
	"github.com/ibeckermayer/feedsync/internal/store"
)

// OpenWorkbook connects to the configured store backend. The returned
// close function releases it and is never nil.
func OpenWorkbook(ctx context.Context, cfg *config.Config) (sheet.Workbook, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store.Backend {
	case config.StoreSheets:
		creds, err := sheet.DecodeServiceAccount(cfg.Store.ServiceJSON)
		if err != nil {
			return nil, noop, err
		}
		wb, err := sheet.OpenGoogle(ctx, cfg.Store.SheetURL, creds)
		if err != nil {
			return nil, noop, err
		}
		return wb, noop, nil

	case config.StoreSQLite:
		path := cfg.Store.SQLitePath
		if path == "" {
			dir, err := config.CacheDir()
			if err != nil {
				return nil, noop, err
			}
			path = filepath.Join(dir, "feedsync.db")
		}
		s, err := store.New(path)
		if err != nil {
			return nil, noop, fmt.Errorf("open %s: %w", path, err)
		}
		return s, s.Close, nil

	case config.StoreMemory:
		return sheet.NewMemory(), noop, nil
	}
	return nil, noop, fmt.Errorf("%w: unknown store backend %q", config.ErrInvalidConfig, cfg.Store.Backend)
}

// NewFetcher starts the configured page fetcher and logs it in when
// credentials are set. A failed login is logged; the fetcher still works
// for public pages.
func NewFetcher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (scraper.Fetcher, error) {
	opts := scraper.Options{
		BaseURL:     cfg.Source.BaseURL,
		Username:    cfg.Source.Username,
		Password:    cfg.Source.Password,
		Headless:    cfg.Source.Headless,
		PageTimeout: cfg.PageTimeout(),
	}
	logger = logger.With("component", "fetcher", "fetcher", cfg.Source.Fetcher)

	cookiePath, err := auth.DefaultCookieStorePath()
	if err != nil {
		return nil, err
	}
	cookies := auth.NewCookieStore(cookiePath)

	switch cfg.Source.Fetcher {
	case config.FetcherBrowser:
		manager := auth.NewManager(cookies, opts.BaseURL, opts.Username, opts.Password, logger)
		s, err := scraper.New(ctx, opts, manager, logger)
		if err != nil {
			return nil, err
		}
		return s, nil

	case config.FetcherHTTP:
		f, err := scraper.NewHTTPFetcher(opts, logger)
		if err != nil {
			return nil, err
		}
		if cookies.IsValid() {
			if u, err := url.Parse(opts.BaseURL); err == nil {
				if site, err := cookies.SiteCookies(u.Hostname()); err == nil && len(site) > 0 {
					f.SetCookies(auth.HTTPCookies(site))
					logger.InfoContext(ctx, "reusing saved session", "cookies", len(site))
					return f, nil
				}
			}
		}
		if opts.Username != "" && opts.Password != "" {
			if err := f.Login(ctx); err != nil {
				logger.WarnContext(ctx, "login failed, continuing with limited access", "error", err)
			}
		}
		return f, nil
	}
	return nil, fmt.Errorf("%w: unknown fetcher %q", config.ErrInvalidConfig, cfg.Source.Fetcher)
}
