package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MaxComments is the number of comment slots kept per post
const MaxComments = 3

// ScrapeTimeLayout is the layout of the SCRAPE_TIME column
const ScrapeTimeLayout = "2006-01-02 15:04:05"

// Reply status values
const (
	ReplyOn     = "ON"
	ReplyOff    = "OFF"
	ReplyFollow = "FOLLOW"
)

// ExpiryMarker is written to G_EXPIRY for posts about to expire
const ExpiryMarker = "⏳"

// RawComment is one comment snippet as found on the page
type RawComment struct {
	Text       string `json:"text"`
	AuthorName string `json:"author_name"`
	AuthorLink string `json:"author_link"`
}

// RawPageRecord is one post as returned by a page fetcher. Any field may be
// empty when the page did not carry it.
type RawPageRecord struct {
	AuthorName   string       `json:"author_name"`
	AuthorLink   string       `json:"author_link"`
	Text         string       `json:"text"`
	ImageSrc     string       `json:"image_src"`
	Expiring     bool         `json:"expiring"`
	ReplyCount   string       `json:"reply_count"`
	CommentNodes int          `json:"comment_nodes"`
	ReplyStatus  string       `json:"reply_status"`
	Comments     []RawComment `json:"comments"`
}

// Comment is one of the comment slots of a Record
type Comment struct {
	Text       string `json:"text"`
	AuthorLink string `json:"author_link"`
	AuthorName string `json:"author_name"`
}

// Record is a normalized scraped post
type Record struct {
	ScrapedAt   time.Time            `json:"scraped_at"`
	Author      string               `json:"author"`
	Page        int                  `json:"page"`
	Text        string               `json:"text"`
	Gender      string               `json:"gender"`
	City        string               `json:"city"`
	Expiring    bool                 `json:"expiring"`
	ReplyCount  int                  `json:"reply_count"`
	ReplyStatus string               `json:"reply_status"`
	Comments    [MaxComments]Comment `json:"comments"`
	ProfileLink string               `json:"profile_link"`
	PostLink    string               `json:"post_link"`
	ImageLink   string               `json:"image_link"`
	Tags        string               `json:"tags"`
	Fingerprint string               `json:"fingerprint"`
}

// Commenters returns the non-empty commenter names in slot order
func (r Record) Commenters() []string {
	var names []string
	for _, c := range r.Comments {
		if c.AuthorName != "" {
			names = append(names, c.AuthorName)
		}
	}
	return names
}

// Validate checks the invariants a Record must hold before it is persisted.
func (r Record) Validate() error {
	if r.Text == "" {
		return fmt.Errorf("record has empty text")
	}
	if r.Fingerprint == "" {
		return fmt.Errorf("record has empty fingerprint")
	}
	if r.Page < 1 {
		return fmt.Errorf("record has invalid page %d", r.Page)
	}
	if r.ReplyCount < 0 {
		return fmt.Errorf("record has negative reply count %d", r.ReplyCount)
	}
	return nil
}

// Row renders the record in PostHeaders order with the given seen-count
func (r Record) Row(seen int) []string {
	row := make([]string, len(PostHeaders))
	row[ColScrapeTime] = r.ScrapedAt.Format(ScrapeTimeLayout)
	if r.ImageLink != "" {
		row[ColImage] = fmt.Sprintf(`=IMAGE("%s",4,35,35)`, r.ImageLink)
	}
	row[ColNickname] = r.Author
	row[ColPage] = fmt.Sprintf("Page %d", r.Page)
	row[ColText] = r.Text
	row[ColGender] = r.Gender
	row[ColCity] = r.City
	if r.Expiring {
		row[ColExpiry] = ExpiryMarker
	}
	row[ColReply] = strconv.Itoa(r.ReplyCount)
	row[ColReplyStatus] = r.ReplyStatus
	for i, c := range r.Comments {
		row[ColComment1+i] = c.Text
		row[ColComment1Link+i] = c.AuthorLink
	}
	row[ColProfileLink] = r.ProfileLink
	row[ColPostLink] = r.PostLink
	row[ColImageLink] = r.ImageLink
	row[ColTags] = r.Tags
	row[ColSeen] = strconv.Itoa(seen)
	return row
}

// Profile holds cross-referenced profile data for a nickname
type Profile struct {
	Nickname string `json:"nickname"`
	Gender   string `json:"gender"`
	City     string `json:"city"`
}

// AnalyticsRow is one finalized per-author analytics line
type AnalyticsRow struct {
	Nickname            string   `json:"nickname"`
	TotalPosts          int      `json:"total_posts"`
	TotalComments       int      `json:"total_comments"`
	MostActiveCommenter string   `json:"most_active_commenter"`
	CommentDiversity    int      `json:"comment_diversity"`
	Gender              string   `json:"gender"`
	City                string   `json:"city"`
	TodayActivity       int      `json:"today_activity"`
	PostLinks           []string `json:"post_links"`
}

// Values renders the row in AnalyticsHeaders order
func (a AnalyticsRow) Values() []string {
	return []string{
		a.Nickname,
		strconv.Itoa(a.TotalPosts),
		strconv.Itoa(a.TotalComments),
		a.MostActiveCommenter,
		strconv.Itoa(a.CommentDiversity),
		a.Gender,
		a.City,
		strconv.Itoa(a.TodayActivity),
		strings.Join(a.PostLinks, " | "),
	}
}
