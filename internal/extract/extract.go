// Package extract turns raw page records into normalized Records. Every
// field is extracted independently: a field that cannot be read falls back
// to its default and never aborts the rest of the record.
package extract

import (
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/ibeckermayer/feedsync/internal/analytics"
	"github.com/ibeckermayer/feedsync/internal/fingerprint"
	"github.com/ibeckermayer/feedsync/internal/resolver"
	"github.com/ibeckermayer/feedsync/internal/types"
)

// Site defaults
const (
	DefaultBaseURL    = "https://damadam.pk"
	DefaultAvatarPath = "/static/img/default-avatar-min.jpg"
	PostLinkPath      = "/comments/text/"
)

// Extractor builds Records for one run. Analytics is updated as a side
// effect of every record that has both an author and text.
type Extractor struct {
	BaseURL   string
	Resolver  *resolver.Resolver
	Analytics *analytics.Aggregator
	Logger    *slog.Logger

	// Now defaults to time.Now
	Now func() time.Time
}

// New returns an Extractor for the given base URL. An empty base uses DefaultBaseURL.
func New(baseURL string, res *resolver.Resolver, agg *analytics.Aggregator, logger *slog.Logger) *Extractor {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Resolver:  res,
		Analytics: agg,
		Logger:    logger,
		Now:       time.Now,
	}
}

// ExtractPage extracts every raw record of a page in order. Records without
// text are dropped and counted in discarded.
func (e *Extractor) ExtractPage(raws []types.RawPageRecord, page int) (records []types.Record, discarded int) {
	for i, raw := range raws {
		rec, ok := e.Extract(raw, page)
		if !ok {
			discarded++
			e.Logger.Debug("discarding record without text", "page", page, "index", i, "author", raw.AuthorName)
			continue
		}
		records = append(records, rec)
	}
	return records, discarded
}

// Extract builds one Record. ok is false when the record has no text; such
// a record has no identity and must not go further down the pipeline.
func (e *Extractor) Extract(raw types.RawPageRecord, page int) (types.Record, bool) {
	now := e.now()
	rec := types.Record{
		ScrapedAt:   now,
		Page:        page,
		ReplyStatus: types.ReplyOn,
	}

	if v, ok := e.author(raw); ok {
		rec.Author = v
	}
	if v, ok := e.link(raw.AuthorLink); ok {
		rec.ProfileLink = v
	}
	if rec.Author != "" && e.Resolver != nil {
		if p, ok := e.Resolver.ResolveProfile(rec.Author); ok {
			rec.Gender = p.Gender
			rec.City = p.City
		}
		rec.Tags = e.Resolver.ResolveTags(rec.Author)
	}

	if v, ok := e.image(raw); ok {
		rec.ImageLink = v
	} else {
		rec.ImageLink = e.BaseURL + DefaultAvatarPath
	}

	rec.Text = fingerprint.Normalize(raw.Text)
	rec.Expiring = raw.Expiring

	if v, ok := replyCount(raw); ok {
		rec.ReplyCount = v
	}
	if v, ok := replyStatus(raw); ok {
		rec.ReplyStatus = v
	}

	for i, c := range raw.Comments {
		if i == types.MaxComments {
			break
		}
		rec.Comments[i] = e.comment(c)
	}

	if rec.Text == "" {
		return rec, false
	}
	rec.Fingerprint = fingerprint.Sum(rec.Text)
	rec.PostLink = e.BaseURL + PostLinkPath + rec.Fingerprint

	if rec.Author != "" && e.Analytics != nil {
		e.Analytics.RecordPost(rec.Author, rec.Gender, rec.City, now.Format(analytics.DateLayout))
		for _, name := range rec.Commenters() {
			e.Analytics.RecordComment(rec.Author, name)
		}
		e.Analytics.RecordPostLink(rec.Author, rec.PostLink)
	}
	return rec, true
}

func (e *Extractor) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *Extractor) author(raw types.RawPageRecord) (string, bool) {
	name := fingerprint.Normalize(raw.AuthorName)
	return name, name != ""
}

func (e *Extractor) image(raw types.RawPageRecord) (string, bool) {
	return e.link(raw.ImageSrc)
}

// link resolves a site-relative path against the base URL
func (e *Extractor) link(path string) (string, bool) {
	path = strings.TrimSpace(path)
	switch {
	case path == "":
		return "", false
	case strings.HasPrefix(path, "http"):
		return path, true
	case strings.HasPrefix(path, "/"):
		return e.BaseURL + path, true
	default:
		return e.BaseURL + "/" + path, true
	}
}

func (e *Extractor) comment(c types.RawComment) types.Comment {
	var out types.Comment
	out.Text = fingerprint.Normalize(c.Text)
	out.AuthorName = fingerprint.Normalize(c.AuthorName)
	if v, ok := e.link(c.AuthorLink); ok {
		out.AuthorLink = v
	}
	return out
}

// replyCount reads the first run of digits from the counter text, falling
// back to the number of comment elements on the page.
func replyCount(raw types.RawPageRecord) (int, bool) {
	if digits := firstDigits(raw.ReplyCount); digits != "" {
		if n, err := strconv.Atoi(digits); err == nil {
			return n, true
		}
	}
	if raw.CommentNodes > 0 {
		return raw.CommentNodes, true
	}
	return 0, false
}

func firstDigits(s string) string {
	start := strings.IndexFunc(s, unicode.IsDigit)
	if start < 0 {
		return ""
	}
	end := strings.IndexFunc(s[start:], func(r rune) bool { return !unicode.IsDigit(r) })
	if end < 0 {
		return s[start:]
	}
	return s[start : start+end]
}

func replyStatus(raw types.RawPageRecord) (string, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw.ReplyStatus)) {
	case types.ReplyOff:
		return types.ReplyOff, true
	case types.ReplyFollow:
		return types.ReplyFollow, true
	case types.ReplyOn:
		return types.ReplyOn, true
	}
	return "", false
}
