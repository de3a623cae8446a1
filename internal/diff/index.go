// Package diff keeps the per-run index of stored rows and splits incoming
// records into rows to insert and seen-counts to bump.
package diff

import (
	"strconv"
	"strings"

	"github.com/ibeckermayer/feedsync/internal/fingerprint"
	"github.com/ibeckermayer/feedsync/internal/types"
)

// FirstDataRow is the 1-based row directly below the header. New rows are
// always inserted here.
const FirstDataRow = 2

// RowHandle identifies a stored row independently of its physical position.
// It is the row's ordinal counted from the bottom of the table, so inserts
// above it never change it.
type RowHandle int

// Entry is the index state of one stored row
type Entry struct {
	Handle RowHandle
	Seen   int
}

// Index maps fingerprints to stored rows. It is built once per run and
// updated in memory as rows are written.
type Index struct {
	entries map[string]*Entry
	rows    int
}

// NewIndex returns an empty index over an empty table
func NewIndex() *Index {
	return &Index{entries: make(map[string]*Entry)}
}

// LoadIndex builds an index from the data rows of the posts worksheet,
// topmost first, header excluded. When a text is stored more than once the
// topmost row wins.
func LoadIndex(rows [][]string) *Index {
	ix := &Index{
		entries: make(map[string]*Entry, len(rows)),
		rows:    len(rows),
	}
	for i, row := range rows {
		fp := fingerprint.Sum(cell(row, types.ColText))
		if fp == "" {
			continue
		}
		if _, ok := ix.entries[fp]; ok {
			continue
		}
		ix.entries[fp] = &Entry{
			Handle: RowHandle(len(rows) - i),
			Seen:   ParseSeen(cell(row, types.ColSeen)),
		}
	}
	return ix
}

// ParseSeen reads a seen-count cell. Anything that is not a non-negative
// number counts as zero.
func ParseSeen(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Lookup returns the entry for fingerprint fp
func (ix *Index) Lookup(fp string) (*Entry, bool) {
	e, ok := ix.entries[fp]
	return e, ok
}

// Position resolves a handle to its current 1-based physical row
func (ix *Index) Position(h RowHandle) int {
	return FirstDataRow + ix.rows - int(h)
}

// Add registers a row just inserted at FirstDataRow and returns its handle.
// Rows inserted as one block must be added bottom-most first.
func (ix *Index) Add(fp string, seen int) RowHandle {
	ix.rows++
	h := RowHandle(ix.rows)
	if fp != "" {
		ix.entries[fp] = &Entry{Handle: h, Seen: seen}
	}
	return h
}

// SetSeen records a new seen-count for fp
func (ix *Index) SetSeen(fp string, seen int) {
	if e, ok := ix.entries[fp]; ok {
		e.Seen = seen
	}
}

// Len returns the number of indexed fingerprints
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Rows returns the number of data rows in the table
func (ix *Index) Rows() int {
	return ix.rows
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return row[i]
}
