package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/ibeckermayer/feedsync/internal/auth"
	"github.com/ibeckermayer/feedsync/internal/browser"
	"github.com/ibeckermayer/feedsync/internal/types"
)

// Scraper fetches feed pages in a headless Chrome. One browser is started
// per Scraper and reused for every page.
type Scraper struct {
	opts   Options
	auth   *auth.Manager
	logger *slog.Logger

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// New starts the browser. authManager may be nil to browse logged out.
func New(ctx context.Context, opts Options, authManager *auth.Manager, logger *slog.Logger) (*Scraper, error) {
	if logger == nil {
		logger = slog.Default()
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), browser.Options(opts.Headless)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the browser now so launch failures surface here
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	s := &Scraper{
		opts:          opts,
		auth:          authManager,
		logger:        logger,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}

	if authManager != nil {
		if err := authManager.EnsureSession(browserCtx); err != nil {
			logger.WarnContext(ctx, "login failed, continuing with limited access", "error", err)
		}
	}
	return s, nil
}

// FetchPage implements Fetcher
func (s *Scraper) FetchPage(ctx context.Context, page int) ([]types.RawPageRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pageURL := PageURL(s.opts.BaseURL, page)
	s.logger.InfoContext(ctx, "fetching page", "page", page, "url", pageURL)

	// Tie the browser tab to ctx so an interrupt aborts the load
	tabCtx, cancel := context.WithCancel(s.browserCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(tabCtx, chromedp.Navigate(pageURL)); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.WarnContext(ctx, "failed to load page", "page", page, "error", err)
		return nil, nil
	}

	waitCtx, waitCancel := context.WithTimeout(tabCtx, s.pageTimeout())
	defer waitCancel()
	if err := chromedp.Run(waitCtx, chromedp.WaitReady(WaitForPosts, chromedp.ByQuery)); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var location, title string
		chromedp.Run(tabCtx, chromedp.Location(&location), chromedp.Title(&title))
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.WarnContext(ctx, "timed out waiting for posts", "page", page, "url", location, "title", title)
		} else {
			s.logger.WarnContext(ctx, "no posts found", "page", page, "url", location, "error", err)
		}
		return nil, nil
	}

	// Wait for lazy loaded content
	time.Sleep(time.Second)

	var html string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.WarnContext(ctx, "failed to read page", "page", page, "error", err)
		return nil, nil
	}

	records, err := ParseHTML(strings.NewReader(html))
	if err != nil {
		s.logger.WarnContext(ctx, "failed to parse page", "page", page, "error", err)
		return nil, nil
	}
	s.logger.InfoContext(ctx, "found posts", "page", page, "count", len(records))
	return records, nil
}

func (s *Scraper) pageTimeout() time.Duration {
	if s.opts.PageTimeout <= 0 {
		return 5 * time.Second
	}
	return s.opts.PageTimeout
}

// Close shuts the browser down
func (s *Scraper) Close() error {
	s.browserCancel()
	s.allocCancel()
	return nil
}
