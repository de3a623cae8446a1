package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
	"golang.org/x/net/publicsuffix"

	"github.com/ibeckermayer/feedsync/internal/browser"
	"github.com/ibeckermayer/feedsync/internal/types"
)

// HTTPFetcher fetches feed pages with plain HTTP requests. It does not run
// page scripts, so it only sees server-rendered posts.
type HTTPFetcher struct {
	opts   Options
	client *http.Client
	logger *slog.Logger
}

// NewHTTPFetcher returns a fetcher with its own cookie jar
func NewHTTPFetcher(opts Options, logger *slog.Logger) (*HTTPFetcher, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPFetcher{
		opts:   opts,
		client: &http.Client{Jar: jar, Timeout: opts.PageTimeout * 4},
		logger: logger,
	}, nil
}

// SetCookies seeds the jar, e.g. with cookies saved by a browser login
func (f *HTTPFetcher) SetCookies(cookies []*http.Cookie) error {
	u, err := url.Parse(f.opts.BaseURL)
	if err != nil {
		return err
	}
	f.client.Jar.SetCookies(u, cookies)
	return nil
}

// Login posts the login form. The form's CSRF token is read from the login page first.
func (f *HTTPFetcher) Login(ctx context.Context) error {
	loginURL := strings.TrimRight(f.opts.BaseURL, "/") + LoginPath
	doc, _, err := f.get(ctx, loginURL)
	if err != nil {
		return fmt.Errorf("failed to load login page: %w", err)
	}

	form := url.Values{}
	form.Set("nick", f.opts.Username)
	form.Set("pass", f.opts.Password)
	if token, ok := doc.Find(LoginCSRF).First().Attr("value"); ok {
		form.Set("csrfmiddlewaretoken", token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", loginURL)
	req.Header.Set("User-Agent", browser.DefaultUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to submit login form: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if strings.Contains(strings.ToLower(resp.Request.URL.Path), "login") {
		return ErrLoginFailed
	}
	return nil
}

// FetchPage implements Fetcher
func (f *HTTPFetcher) FetchPage(ctx context.Context, page int) ([]types.RawPageRecord, error) {
	pageURL := PageURL(f.opts.BaseURL, page)
	f.logger.InfoContext(ctx, "fetching page", "page", page, "url", pageURL)

	doc, status, err := f.get(ctx, pageURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		f.logger.WarnContext(ctx, "failed to load page", "page", page, "status", status, "error", err)
		return nil, nil
	}

	records := ParseArticles(doc)
	if len(records) == 0 {
		f.logger.WarnContext(ctx, "no posts found", "page", page, "title", strings.TrimSpace(doc.Find("title").Text()))
	}
	return records, nil
}

// get fetches rawURL and parses it, decoding the body per its declared charset
func (f *HTTPFetcher) get(ctx context.Context, rawURL string) (*goquery.Document, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", browser.DefaultUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to decode body: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return doc, resp.StatusCode, nil
}

// Close implements Fetcher
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}
