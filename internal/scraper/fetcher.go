package scraper

import (
	"context"
	"errors"
	"time"

	"github.com/ibeckermayer/feedsync/internal/types"
)

// ErrLoginFailed is returned when the site rejects the credentials
var ErrLoginFailed = errors.New("login failed")

// Fetcher returns the raw posts of one feed page. A page that times out or
// has no posts yields an empty result, not an error.
type Fetcher interface {
	FetchPage(ctx context.Context, page int) ([]types.RawPageRecord, error)
	Close() error
}

// Options configures both fetchers
type Options struct {
	BaseURL  string
	Username string
	Password string
	Headless bool
	// PageTimeout bounds the wait for a page's posts
	PageTimeout time.Duration
}
