// Package mirror writes the local CSV copy of the rows synchronized in a run.
package mirror

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ibeckermayer/feedsync/internal/types"
)

// Entry is one mirrored record with its seen-count at the end of the run
type Entry struct {
	Record types.Record
	Seen   int
}

// Write replaces the file at path with a CSV of entries under the posts
// header. The file is written to a temporary name and renamed into place,
// so readers never see a partial mirror.
func Write(path string, entries []Entry) error {
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = e.Record.Row(e.Seen)
	}
	return WriteRows(path, types.PostHeaders, rows)
}

// WriteRows writes header and rows to path atomically
func WriteRows(path string, header []string, rows [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("mirror: encode header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("mirror: encode rows: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mirror: mkdir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("mirror: write tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("mirror: rename: %w", err)
	}
	return nil
}

// Read loads a mirror file, header included
func Read(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}
