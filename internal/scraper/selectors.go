package scraper

// Feed DOM selectors
// These are isolated here because the site changes its markup from time to time
// Update these when scraping breaks

const (
	// Page selectors
	PostArticle = `article.mbl`

	// Post content selectors
	PostAuthor       = `[itemprop='author'] a`
	PostText         = `[itemprop='text']`
	PostImage        = `img`
	PostCommentCount = `[itemprop='commentCount']`
	PostComment      = `[itemprop='comment']`

	// Expiry indicators
	ExpiryClock   = `img[src*='clock.svg']`
	ExpiryTooltip = `span.tooltiptext`

	// Reply status indicators
	RepliesOffBlock = `div`
	FollowMark      = `mark`
	ReplyForm       = `form[action*='direct-response']`

	// Login form
	LoginCSRF = `input[name='csrfmiddlewaretoken']`
)

// Marker texts matched inside the indicator elements
const (
	ExpiringText   = "Expiring"
	RepliesOffText = "REPLIES OFF"
	FollowText     = "FOLLOW TO REPLY"
)

// Common wait conditions
const (
	WaitForPosts = PostArticle
)

// Site paths
const (
	LoginPath    = "/login/"
	FeedPagePath = "/text/fresh-list/?page=%d"
)
