package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
)

// ErrNoCredentials is returned by Login when no username or password is configured
var ErrNoCredentials = errors.New("no credentials configured")

// Login form selectors
const (
	nickField   = `#nick`
	passField   = `#pass`
	submitField = `form button, form input[type='submit']`
)

// Manager handles the site session of the browser fetcher
type Manager struct {
	cookieStore *CookieStore
	baseURL     string
	username    string
	password    string
	logger      *slog.Logger
}

// NewManager creates a new auth manager
func NewManager(cookieStore *CookieStore, baseURL, username, password string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cookieStore: cookieStore,
		baseURL:     strings.TrimRight(baseURL, "/"),
		username:    username,
		password:    password,
		logger:      logger,
	}
}

// IsAuthenticated checks if we have valid stored credentials
func (m *Manager) IsAuthenticated() bool {
	return m.cookieStore.IsValid()
}

// EnsureSession makes the browser in ctx logged in. Saved cookies are
// reused while they are valid; otherwise the login form is submitted and
// the new cookies saved.
func (m *Manager) EnsureSession(ctx context.Context) error {
	if m.IsAuthenticated() {
		cookies, err := m.GetCookies()
		if err == nil && len(cookies) > 0 {
			if err := InjectCookies(ctx, cookies); err == nil {
				m.logger.InfoContext(ctx, "reusing saved session")
				return nil
			}
		}
	}
	return m.Login(ctx)
}

// Login fills in the login form in the browser in ctx
func (m *Manager) Login(ctx context.Context) error {
	if m.username == "" || m.password == "" {
		return ErrNoCredentials
	}

	loginCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var location string
	err := chromedp.Run(loginCtx,
		chromedp.Navigate(m.baseURL+"/login/"),
		chromedp.WaitVisible(nickField, chromedp.ByQuery),
		chromedp.SendKeys(nickField, m.username, chromedp.ByQuery),
		chromedp.SendKeys(passField, m.password, chromedp.ByQuery),
		chromedp.Click(submitField, chromedp.ByQuery),
		chromedp.Sleep(3*time.Second),
		chromedp.Location(&location),
	)
	if err != nil {
		return fmt.Errorf("login form: %w", err)
	}
	if strings.Contains(strings.ToLower(location), "login") {
		return fmt.Errorf("login rejected, still at %s", location)
	}

	cookies, err := m.extractCookies(loginCtx)
	if err != nil {
		return fmt.Errorf("failed to extract cookies: %w", err)
	}
	if err := m.cookieStore.Save(cookies); err != nil {
		return fmt.Errorf("failed to save cookies: %w", err)
	}
	m.logger.InfoContext(ctx, "login successful")
	return nil
}

// extractCookies gets all cookies from the browser
func (m *Manager) extractCookies(ctx context.Context) ([]*network.Cookie, error) {
	var cookies []*network.Cookie

	err := chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = storage.GetCookies().Do(ctx)
			return err
		}),
	)

	return cookies, err
}

// Logout clears stored credentials
func (m *Manager) Logout() error {
	return m.cookieStore.Clear()
}

// GetCookies returns the stored cookies of the site
func (m *Manager) GetCookies() ([]*network.Cookie, error) {
	u, err := url.Parse(m.baseURL)
	if err != nil {
		return nil, err
	}
	return m.cookieStore.SiteCookies(u.Hostname())
}

// InjectCookies sets cookies in the browser context
func InjectCookies(ctx context.Context, cookies []*network.Cookie) error {
	return chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, c := range cookies {
				err := network.SetCookie(c.Name, c.Value).
					WithDomain(c.Domain).
					WithPath(c.Path).
					WithSecure(c.Secure).
					WithHTTPOnly(c.HTTPOnly).
					WithSameSite(c.SameSite).
					Do(ctx)

				if err != nil {
					return err
				}
			}
			return nil
		}),
	)
}
