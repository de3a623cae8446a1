package analytics

import (
	"testing"
)

const day = "2026-10-18"

func TestCommenterFrequency(t *testing.T) {
	a := New()
	a.RecordPost("alice", "Female", "Lahore", day)
	a.RecordComment("alice", "bob")
	a.RecordComment("alice", "carol")
	a.RecordComment("alice", "bob")

	alice := a.Entry("alice")
	if alice.TotalPosts != 1 {
		t.Errorf("alice.TotalPosts = %d, want 1", alice.TotalPosts)
	}
	if alice.CommenterCount("bob") != 2 || alice.CommenterCount("carol") != 1 {
		t.Errorf("commenters = bob:%d carol:%d, want bob:2 carol:1",
			alice.CommenterCount("bob"), alice.CommenterCount("carol"))
	}
	if alice.CommentDiversity() != 2 {
		t.Errorf("CommentDiversity = %d, want 2", alice.CommentDiversity())
	}
	if alice.MostActiveCommenter() != "bob" {
		t.Errorf("MostActiveCommenter = %q, want bob", alice.MostActiveCommenter())
	}

	bob := a.Entry("bob")
	if bob.TotalComments != 2 {
		t.Errorf("bob.TotalComments = %d, want 2", bob.TotalComments)
	}
	if !bob.CommentedOn("alice") {
		t.Error("bob should have commented on alice")
	}
	if bob.TotalPosts != 0 {
		t.Errorf("bob.TotalPosts = %d, want 0", bob.TotalPosts)
	}
}

func TestMostActiveCommenter_TieFirstSeen(t *testing.T) {
	a := New()
	a.RecordComment("alice", "zed")
	a.RecordComment("alice", "amy")
	a.RecordComment("alice", "amy")
	a.RecordComment("alice", "zed")

	if got := a.Entry("alice").MostActiveCommenter(); got != "zed" {
		t.Errorf("MostActiveCommenter = %q, want zed", got)
	}
}

func TestRecordPost_LastWriteWins(t *testing.T) {
	a := New()
	a.RecordPost("alice", "Female", "Lahore", day)
	a.RecordPost("alice", "", "Karachi", "2026-10-17")

	e := a.Entry("alice")
	if e.TotalPosts != 2 {
		t.Errorf("TotalPosts = %d, want 2", e.TotalPosts)
	}
	if e.Gender != "" || e.City != "Karachi" {
		t.Errorf("gender/city = %q/%q, want \"\"/Karachi", e.Gender, e.City)
	}
	if e.Activity(day) != 1 || e.Activity("2026-10-17") != 1 {
		t.Errorf("daily activity = %d/%d, want 1/1", e.Activity(day), e.Activity("2026-10-17"))
	}
}

func TestRecordPostLink_Cap(t *testing.T) {
	a := New()
	for _, link := range []string{"l1", "l2", "l3", "l4", "l5"} {
		a.RecordPostLink("alice", link)
	}
	links := a.Entry("alice").PostLinks
	if len(links) != MaxPostLinks {
		t.Fatalf("got %d links, want %d", len(links), MaxPostLinks)
	}
	for i, want := range []string{"l1", "l2", "l3"} {
		if links[i] != want {
			t.Errorf("links[%d] = %q, want %q", i, links[i], want)
		}
	}
}

func TestIgnoresEmptyNames(t *testing.T) {
	a := New()
	a.RecordPost("", "Male", "", day)
	a.RecordComment("alice", "")
	a.RecordComment("", "bob")
	a.RecordPostLink("", "l1")
	if a.Len() != 0 {
		t.Errorf("Len = %d, want 0", a.Len())
	}
}

func TestSummarize(t *testing.T) {
	a := New()
	// dave is referenced first but never posts or comments
	a.RecordPostLink("dave", "d1")
	a.RecordPost("carol", "Female", "Multan", day)
	a.RecordPost("alice", "Female", "Lahore", day)
	a.RecordPost("alice", "Female", "Lahore", "2026-10-17")
	a.RecordComment("alice", "bob")
	a.RecordComment("carol", "bob")
	a.RecordPostLink("alice", "a1")

	rows := a.Summarize(day)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3: %+v", len(rows), rows)
	}
	// alice 2+0, bob 0+2 (tie, alice seen first), carol 1+0
	wantOrder := []string{"alice", "bob", "carol"}
	for i, want := range wantOrder {
		if rows[i].Nickname != want {
			t.Errorf("rows[%d] = %q, want %q", i, rows[i].Nickname, want)
		}
	}

	alice := rows[0]
	if alice.TotalPosts != 2 || alice.TodayActivity != 1 || alice.MostActiveCommenter != "bob" ||
		alice.CommentDiversity != 1 || alice.City != "Lahore" {
		t.Errorf("alice row = %+v", alice)
	}
	if len(alice.PostLinks) != 1 || alice.PostLinks[0] != "a1" {
		t.Errorf("alice links = %v", alice.PostLinks)
	}
	if v := alice.Values(); len(v) != 9 || v[8] != "a1" {
		t.Errorf("alice values = %v", v)
	}

	bob := rows[1]
	if bob.TotalComments != 2 || bob.TotalPosts != 0 || bob.TodayActivity != 0 {
		t.Errorf("bob row = %+v", bob)
	}
}

func TestSummarize_Empty(t *testing.T) {
	if rows := New().Summarize(day); len(rows) != 0 {
		t.Errorf("expected no rows, got %+v", rows)
	}
}
