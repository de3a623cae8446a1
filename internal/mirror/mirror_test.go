package mirror

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ibeckermayer/feedsync/internal/types"
)

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "posts.csv")
	entries := []Entry{
		{Record: types.Record{Text: "hello, \"world\"", Page: 1, ScrapedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}, Seen: 1},
		{Record: types.Record{Text: "multi\nline?", Page: 2}, Seen: 4},
	}
	if err := Write(path, entries); err != nil {
		t.Fatalf("Write: %v", err)
	}

	rows, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0][0] != "SCRAPE_TIME" || rows[0][len(rows[0])-1] != "T_SEEN" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][types.ColText] != "hello, \"world\"" || rows[1][types.ColScrapeTime] != "2026-01-02 03:04:05" {
		t.Errorf("row 1 = %v", rows[1])
	}
	if rows[2][types.ColSeen] != "4" || rows[2][types.ColPage] != "Page 2" {
		t.Errorf("row 2 = %v", rows[2])
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind: %v", err)
	}
}

func TestWrite_ReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posts.csv")
	if err := os.WriteFile(path, []byte("stale\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Write(path, nil); err != nil {
		t.Fatal(err)
	}
	rows, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || len(rows[0]) != len(types.PostHeaders) {
		t.Errorf("rows = %v", rows)
	}
}
