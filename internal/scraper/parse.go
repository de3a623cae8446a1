package scraper

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ibeckermayer/feedsync/internal/types"
)

// PageURL returns the feed URL of page n
func PageURL(baseURL string, n int) string {
	return strings.TrimRight(baseURL, "/") + fmt.Sprintf(FeedPagePath, n)
}

// ParseHTML reads a feed page and returns its posts in page order
func ParseHTML(r io.Reader) ([]types.RawPageRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return ParseArticles(doc), nil
}

// ParseArticles extracts one raw record per post article. Elements missing
// from an article leave the matching fields empty.
func ParseArticles(doc *goquery.Document) []types.RawPageRecord {
	var records []types.RawPageRecord
	doc.Find(PostArticle).Each(func(_ int, article *goquery.Selection) {
		records = append(records, parseArticle(article))
	})
	return records
}

func parseArticle(article *goquery.Selection) types.RawPageRecord {
	var rec types.RawPageRecord

	if author := postField(article, PostAuthor); author.Length() > 0 {
		rec.AuthorName = author.Text()
		rec.AuthorLink, _ = author.Attr("href")
	}

	rec.Text = postField(article, PostText).Text()

	if img := article.Find(PostImage).First(); img.Length() > 0 {
		if src, ok := img.Attr("data-src"); ok && src != "" {
			rec.ImageSrc = src
		} else {
			rec.ImageSrc, _ = img.Attr("src")
		}
	}

	rec.Expiring = article.Find(ExpiryClock).Length() > 0 ||
		containsText(article.Find(ExpiryTooltip), ExpiringText)

	if counter := article.Find(PostCommentCount).First(); counter.Length() > 0 {
		rec.ReplyCount = strings.TrimSpace(counter.Text())
	}

	comments := article.Find(PostComment)
	rec.CommentNodes = comments.Length()
	comments.EachWithBreak(func(i int, c *goquery.Selection) bool {
		if i == types.MaxComments {
			return false
		}
		rec.Comments = append(rec.Comments, parseComment(c))
		return true
	})

	rec.ReplyStatus = replyStatus(article)
	return rec
}

// postField returns the first match of sel that is not part of a comment
func postField(article *goquery.Selection, sel string) *goquery.Selection {
	return article.Find(sel).Not(PostComment + " " + sel).First()
}

// parseComment returns an empty comment unless both author and text are present
func parseComment(c *goquery.Selection) types.RawComment {
	author := c.Find(PostAuthor).First()
	text := c.Find(PostText).First()
	if author.Length() == 0 || text.Length() == 0 {
		return types.RawComment{}
	}
	link, _ := author.Attr("href")
	return types.RawComment{
		Text:       text.Text(),
		AuthorName: author.Text(),
		AuthorLink: link,
	}
}

func replyStatus(article *goquery.Selection) string {
	switch {
	case containsText(article.Find(RepliesOffBlock), RepliesOffText):
		return types.ReplyOff
	case containsText(article.Find(FollowMark), FollowText):
		return types.ReplyFollow
	case article.Find(ReplyForm).Length() > 0:
		return types.ReplyOn
	}
	return ""
}

func containsText(sel *goquery.Selection, text string) bool {
	found := false
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		found = strings.Contains(s.Text(), text)
		return !found
	})
	return found
}
