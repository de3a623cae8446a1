package scraper

import (
	"os"
	"strings"
	"testing"

	"github.com/ibeckermayer/feedsync/internal/types"
)

func loadPage(t *testing.T) []types.RawPageRecord {
	t.Helper()
	f, err := os.Open("testdata/page.html")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := ParseHTML(f)
	if err != nil {
		t.Fatalf("ParseHTML: %v", err)
	}
	return records
}

func TestParseArticles(t *testing.T) {
	records := loadPage(t)
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}

	first := records[0]
	if first.AuthorName != "alice" || first.AuthorLink != "/users/alice/" {
		t.Errorf("author = %q %q", first.AuthorName, first.AuthorLink)
	}
	if !strings.HasPrefix(first.Text, "First   line") || !strings.Contains(first.Text, "second line") {
		t.Errorf("text = %q", first.Text)
	}
	if first.ImageSrc != "/media/alice.jpg" {
		t.Errorf("image = %q, want data-src", first.ImageSrc)
	}
	if !first.Expiring {
		t.Error("clock icon should mark the post as expiring")
	}
	if first.ReplyCount != "12 REPLIES" || first.CommentNodes != 4 {
		t.Errorf("reply count = %q nodes = %d", first.ReplyCount, first.CommentNodes)
	}
	if first.ReplyStatus != types.ReplyOn {
		t.Errorf("reply status = %q", first.ReplyStatus)
	}
	if len(first.Comments) != types.MaxComments {
		t.Fatalf("got %d comments, want %d", len(first.Comments), types.MaxComments)
	}
	if first.Comments[0] != (types.RawComment{Text: "nice one", AuthorName: "bob", AuthorLink: "/users/bob/"}) {
		t.Errorf("comment 0 = %+v", first.Comments[0])
	}
	if first.Comments[1] != (types.RawComment{}) {
		t.Errorf("comment without author should be empty, got %+v", first.Comments[1])
	}
	if first.Comments[2].AuthorName != "carol" {
		t.Errorf("comment 2 = %+v", first.Comments[2])
	}

	second := records[1]
	if !second.Expiring || second.ReplyStatus != types.ReplyOff || second.ImageSrc != "" {
		t.Errorf("second = %+v", second)
	}

	third := records[2]
	if third.AuthorName != "" || third.ReplyStatus != types.ReplyFollow || third.Expiring {
		t.Errorf("third = %+v", third)
	}
	if third.CommentNodes != 1 || third.Comments[0].AuthorName != "frank" {
		t.Errorf("third comments = %+v", third.Comments)
	}
}

func TestParseHTML_NoArticles(t *testing.T) {
	records, err := ParseHTML(strings.NewReader("<html><body><p>login required</p></body></html>"))
	if err != nil || len(records) != 0 {
		t.Errorf("records = %v, err = %v", records, err)
	}
}

func TestPageURL(t *testing.T) {
	if got := PageURL("https://damadam.pk/", 3); got != "https://damadam.pk/text/fresh-list/?page=3" {
		t.Errorf("PageURL = %q", got)
	}
}
