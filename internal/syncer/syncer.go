// Package syncer writes batches of records to the posts worksheet: new
// texts are inserted below the header and known texts get their seen-count
// bumped.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/ibeckermayer/feedsync/internal/diff"
	"github.com/ibeckermayer/feedsync/internal/pacer"
	"github.com/ibeckermayer/feedsync/internal/sheet"
	"github.com/ibeckermayer/feedsync/internal/types"
)

// seenColumn is the 1-based column of T_SEEN
const seenColumn = types.ColSeen + 1

// Result counts the outcome of one Sync
type Result struct {
	Inserted int
	Bumped   int
	Failed   int

	// Synced holds every record that reached the store, in batch order
	Synced []types.Record
}

// Add accumulates r into res
func (res *Result) Add(r Result) {
	res.Inserted += r.Inserted
	res.Bumped += r.Bumped
	res.Failed += r.Failed
	res.Synced = append(res.Synced, r.Synced...)
}

// Synchronizer owns the write path to the posts worksheet for one run. It
// keeps the index in step with every row it writes.
type Synchronizer struct {
	sheet  sheet.Worksheet
	index  *diff.Index
	pacer  *pacer.Pacer
	logger *slog.Logger
}

// New returns a Synchronizer writing to ws
func New(ws sheet.Worksheet, index *diff.Index, p *pacer.Pacer, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{sheet: ws, index: index, pacer: p, logger: logger}
}

// Index returns the index the synchronizer maintains
func (s *Synchronizer) Index() *diff.Index {
	return s.index
}

// Sync partitions records against the index, inserts the new ones and bumps
// the rest. Failures of individual rows are logged and counted, never returned.
func (s *Synchronizer) Sync(ctx context.Context, records []types.Record) Result {
	var res Result
	if len(records) == 0 {
		return res
	}
	plan := diff.Partition(s.index, records)
	s.logger.InfoContext(ctx, "syncing batch",
		"records", len(records),
		"new", len(plan.Insert),
		"seen_again", len(plan.Bump))

	inserted, failed := s.InsertNew(ctx, plan.Insert)
	res.Inserted = len(inserted)
	res.Failed += failed
	res.Synced = append(res.Synced, inserted...)

	for _, b := range plan.Bump {
		fp := b.Record.Fingerprint
		if _, ok := s.index.Lookup(fp); !ok {
			// the row this repeat refers to failed to insert
			s.logger.WarnContext(ctx, "skipping seen-count bump for unsaved row", "fingerprint", fp)
			res.Failed++
			continue
		}
		if _, err := s.BumpSeen(ctx, fp); err != nil {
			s.logger.ErrorContext(ctx, "failed to bump seen-count", "fingerprint", fp, "error", err)
			res.Failed++
			continue
		}
		res.Bumped++
		res.Synced = append(res.Synced, b.Record)
	}
	return res
}

// InsertNew writes records directly below the header in one bulk insert,
// so the first record ends up in row 2. If the bulk insert fails, the
// records are inserted one at a time; a row that still fails is skipped.
// It returns the records that were written, in their original order.
func (s *Synchronizer) InsertNew(ctx context.Context, records []types.Record) (inserted []types.Record, failed int) {
	if len(records) == 0 {
		return nil, 0
	}
	rows := make([][]string, len(records))
	for i, rec := range records {
		rows[i] = rec.Row(1)
	}

	s.wait(ctx)
	err := s.pacer.Retry(ctx, "insert rows", func() error {
		return s.sheet.InsertRowsAt(ctx, diff.FirstDataRow, rows)
	})
	if err == nil {
		for i := len(records) - 1; i >= 0; i-- {
			s.index.Add(records[i].Fingerprint, 1)
		}
		s.logger.InfoContext(ctx, "inserted rows", "count", len(records))
		return records, 0
	}

	s.logger.WarnContext(ctx, "bulk insert failed, inserting row by row", "count", len(records), "error", err)

	// Inserting bottom-most first leaves the rows in their original order.
	ok := make([]bool, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		s.wait(ctx)
		err := s.pacer.Retry(ctx, "insert row", func() error {
			return s.sheet.InsertRowsAt(ctx, diff.FirstDataRow, rows[i:i+1])
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to insert row",
				"fingerprint", records[i].Fingerprint,
				"author", records[i].Author,
				"error", err)
			failed++
			continue
		}
		s.index.Add(records[i].Fingerprint, 1)
		ok[i] = true
	}
	for i, rec := range records {
		if ok[i] {
			inserted = append(inserted, rec)
		}
	}
	s.logger.InfoContext(ctx, "inserted rows", "count", len(inserted), "failed", failed)
	return inserted, failed
}

// BumpSeen increments the stored seen-count of the row holding fingerprint
// fp. A missing or non-numeric stored value counts as zero. It returns the
// new count.
func (s *Synchronizer) BumpSeen(ctx context.Context, fp string) (int, error) {
	e, ok := s.index.Lookup(fp)
	if !ok {
		return 0, fmt.Errorf("fingerprint %s is not indexed", fp)
	}
	row := s.index.Position(e.Handle)

	var cur string
	s.wait(ctx)
	err := s.pacer.Retry(ctx, "read seen-count", func() error {
		var err error
		cur, err = s.sheet.ReadCell(ctx, row, seenColumn)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("read seen-count at row %d: %w", row, err)
	}

	seen := diff.ParseSeen(cur) + 1
	s.wait(ctx)
	err = s.pacer.Retry(ctx, "write seen-count", func() error {
		return s.sheet.WriteCell(ctx, row, seenColumn, strconv.Itoa(seen))
	})
	if err != nil {
		return 0, fmt.Errorf("write seen-count at row %d: %w", row, err)
	}
	s.index.SetSeen(fp, seen)
	s.logger.DebugContext(ctx, "bumped seen-count", "fingerprint", fp, "row", row, "seen", seen)
	return seen, nil
}

// wait is a best-effort delay; writes go ahead even if ctx ends early
func (s *Synchronizer) wait(ctx context.Context) {
	_ = s.pacer.Wait(ctx)
}
