package store

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestStepOutputRoundTrip(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("cache dir override uses XDG_CACHE_HOME")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", dir)

	if _, err := LatestStepFile(StepAnalytics); err == nil {
		t.Fatal("expected error before anything is cached")
	}

	if _, err := SaveStepOutput(StepAnalytics, []sample{{"first", 1}}); err != nil {
		t.Fatal(err)
	}
	path, err := SaveStepOutput(StepAnalytics, []sample{{"second", 2}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(path, filepath.Join(dir, "feedsync", string(StepAnalytics))) {
		t.Errorf("path = %q", path)
	}

	got, loadedFrom, err := LoadLatestStepOutput[[]sample](StepAnalytics)
	if err != nil {
		t.Fatal(err)
	}
	if loadedFrom != path || len(got) != 1 || got[0].Name != "second" {
		t.Errorf("loaded %v from %q", got, loadedFrom)
	}
}

func TestPruneStepOutputs(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("cache dir override uses XDG_CACHE_HOME")
	}
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	if n, err := PruneStepOutputs(StepRecords, 2); err != nil || n != 0 {
		t.Fatalf("prune on empty cache = %d, %v", n, err)
	}

	var last string
	for i := 0; i < 4; i++ {
		path, err := SaveStepOutput(StepRecords, []sample{{"run", i}})
		if err != nil {
			t.Fatal(err)
		}
		last = path
	}

	n, err := PruneStepOutputs(StepRecords, 2)
	if err != nil || n != 2 {
		t.Fatalf("PruneStepOutputs = %d, %v", n, err)
	}
	files, err := stepFiles(StepRecords)
	if err != nil || len(files) != 2 {
		t.Fatalf("files after prune = %v, %v", files, err)
	}
	if latest, _ := LatestStepFile(StepRecords); latest != last {
		t.Errorf("latest = %q, want %q", latest, last)
	}
}
