package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ibeckermayer/feedsync/internal/diff"
	"github.com/ibeckermayer/feedsync/internal/fingerprint"
	"github.com/ibeckermayer/feedsync/internal/pacer"
	"github.com/ibeckermayer/feedsync/internal/sheet"
	"github.com/ibeckermayer/feedsync/internal/types"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func record(text string) types.Record {
	return types.Record{
		ScrapedAt:   time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC),
		Author:      "alice",
		Page:        1,
		Text:        text,
		ReplyStatus: types.ReplyOn,
		Fingerprint: fingerprint.Sum(text),
	}
}

func storedRow(text, seen string) []string {
	r := make([]string, len(types.PostHeaders))
	r[types.ColText] = text
	r[types.ColSeen] = seen
	return r
}

// newSyncer returns a synchronizer over a posts sheet holding the header
// followed by rows.
func newSyncer(rows ...[]string) (*Synchronizer, *sheet.MemorySheet) {
	ws := sheet.NewMemory().Sheet("Posts")
	ws.SetRows(append([][]string{types.PostHeaders}, rows...))
	p := pacer.New(0, 0, sheet.IsRetryable, discard)
	p.BaseBackoff = 0
	return New(ws, diff.LoadIndex(rows), p, discard), ws
}

func texts(ws *sheet.MemorySheet) []string {
	var out []string
	for _, r := range ws.Rows()[1:] {
		out = append(out, r[types.ColText]+":"+r[types.ColSeen])
	}
	return out
}

func assertTexts(t *testing.T, ws *sheet.MemorySheet, want ...string) {
	t.Helper()
	got := texts(ws)
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("rows = %v, want %v", got, want)
	}
}

func TestSync_BumpExistingRow(t *testing.T) {
	s, ws := newSyncer(
		storedRow("a", "1"),
		storedRow("b", "1"),
		storedRow("c", "1"),
		storedRow("x", "3"), // row 5
	)
	res := s.Sync(context.Background(), []types.Record{record("x")})
	if res.Inserted != 0 || res.Bumped != 1 || res.Failed != 0 {
		t.Errorf("result = %+v", res)
	}
	if v, _ := ws.ReadCell(context.Background(), 5, types.ColSeen+1); v != "4" {
		t.Errorf("row 5 seen = %q, want 4", v)
	}
	if e, _ := s.Index().Lookup(fingerprint.Sum("x")); e.Seen != 4 {
		t.Errorf("index seen = %d, want 4", e.Seen)
	}
}

func TestSync_InBatchDuplicate(t *testing.T) {
	s, ws := newSyncer()
	res := s.Sync(context.Background(), []types.Record{record("same"), record("same")})
	if res.Inserted != 1 || res.Bumped != 1 || res.Failed != 0 {
		t.Errorf("result = %+v", res)
	}
	assertTexts(t, ws, "same:2")
}

func TestSync_InsertOrderAndPositions(t *testing.T) {
	s, ws := newSyncer(storedRow("old", "1"))
	ctx := context.Background()

	res := s.Sync(ctx, []types.Record{record("a"), record("b"), record("c")})
	if res.Inserted != 3 || len(res.Synced) != 3 {
		t.Fatalf("result = %+v", res)
	}
	assertTexts(t, ws, "a:1", "b:1", "c:1", "old:1")

	// bumps must land on the shifted rows
	res = s.Sync(ctx, []types.Record{record("old"), record("b")})
	if res.Bumped != 2 {
		t.Fatalf("result = %+v", res)
	}
	assertTexts(t, ws, "a:1", "b:2", "c:1", "old:2")

	// a second insert shifts everything again
	s.Sync(ctx, []types.Record{record("d"), record("c")})
	assertTexts(t, ws, "d:1", "a:1", "b:2", "c:2", "old:2")
}

func TestSync_RowShape(t *testing.T) {
	s, ws := newSyncer()
	rec := record("hello")
	rec.ImageLink = "https://damadam.pk/a.jpg"
	s.Sync(context.Background(), []types.Record{rec})

	row := ws.Rows()[1]
	if len(row) != len(types.PostHeaders) {
		t.Fatalf("row has %d cells, want %d", len(row), len(types.PostHeaders))
	}
	if row[types.ColScrapeTime] != "2026-10-18 12:00:00" || row[types.ColPage] != "Page 1" {
		t.Errorf("time/page = %q/%q", row[types.ColScrapeTime], row[types.ColPage])
	}
	if row[types.ColImage] != `=IMAGE("https://damadam.pk/a.jpg",4,35,35)` {
		t.Errorf("image = %q", row[types.ColImage])
	}
}

func TestBumpSeen_NonNumeric(t *testing.T) {
	for _, prior := range []string{"", "abc"} {
		s, ws := newSyncer(storedRow("x", prior))
		seen, err := s.BumpSeen(context.Background(), fingerprint.Sum("x"))
		if err != nil || seen != 1 {
			t.Errorf("prior %q: seen=%d err=%v", prior, seen, err)
		}
		assertTexts(t, ws, "x:1")
	}
}

func TestBumpSeen_NotIndexed(t *testing.T) {
	s, _ := newSyncer()
	if _, err := s.BumpSeen(context.Background(), "deadbeef0000"); err == nil {
		t.Error("expected error")
	}
}

func TestInsertNew_RetriesRateLimit(t *testing.T) {
	s, ws := newSyncer()
	calls := 0
	ws.InsertHook = func(int, [][]string) error {
		calls++
		if calls == 1 {
			return sheet.ErrRateLimited
		}
		return nil
	}
	inserted, failed := s.InsertNew(context.Background(), []types.Record{record("a"), record("b")})
	if len(inserted) != 2 || failed != 0 || calls != 2 {
		t.Errorf("inserted=%d failed=%d calls=%d", len(inserted), failed, calls)
	}
	assertTexts(t, ws, "a:1", "b:1")
}

func TestInsertNew_FallbackRowByRow(t *testing.T) {
	s, ws := newSyncer(storedRow("old", "1"))
	ws.InsertHook = func(_ int, rows [][]string) error {
		if len(rows) > 1 {
			return errors.New("bulk insert rejected")
		}
		if rows[0][types.ColText] == "b" {
			return errors.New("bad row")
		}
		return nil
	}
	ctx := context.Background()

	res := s.Sync(ctx, []types.Record{record("a"), record("b"), record("c"), record("b")})
	if res.Inserted != 2 || res.Failed != 2 || res.Bumped != 0 {
		t.Errorf("result = %+v", res)
	}
	if len(res.Synced) != 2 || res.Synced[0].Text != "a" || res.Synced[1].Text != "c" {
		t.Errorf("synced = %+v", res.Synced)
	}
	assertTexts(t, ws, "a:1", "c:1", "old:1")

	if _, ok := s.Index().Lookup(fingerprint.Sum("b")); ok {
		t.Error("failed row must not be indexed")
	}
	// positions are still right after a partial fallback
	ws.InsertHook = nil
	s.Sync(ctx, []types.Record{record("old"), record("c")})
	assertTexts(t, ws, "a:1", "c:2", "old:2")
}

func TestSync_Empty(t *testing.T) {
	s, ws := newSyncer()
	if res := s.Sync(context.Background(), nil); res.Inserted+res.Bumped+res.Failed != 0 {
		t.Errorf("result = %+v", res)
	}
	if len(ws.Rows()) != 1 {
		t.Errorf("rows = %v", ws.Rows())
	}
}

func TestResultAdd(t *testing.T) {
	var total Result
	total.Add(Result{Inserted: 2, Failed: 1, Synced: []types.Record{record("a")}})
	total.Add(Result{Bumped: 3})
	if total.Inserted != 2 || total.Bumped != 3 || total.Failed != 1 || len(total.Synced) != 1 {
		t.Errorf("total = %+v", total)
	}
}
