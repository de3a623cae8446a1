// Package sheet defines the tabular store the synchronizer writes to: a
// workbook of named worksheets addressed by 1-based rows and columns.
package sheet

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a worksheet does not exist
	ErrNotFound = errors.New("worksheet not found")
	// ErrRateLimited marks a failure the store expects to succeed on retry
	ErrRateLimited = errors.New("rate limited")
)

// Workbook is a collection of named worksheets
type Workbook interface {
	// Worksheet opens an existing worksheet or returns ErrNotFound
	Worksheet(ctx context.Context, name string) (Worksheet, error)
	// FindOrCreateWorksheet opens name, creating it with cols columns if missing
	FindOrCreateWorksheet(ctx context.Context, name string, cols int) (Worksheet, error)
}

// Worksheet is one table. Rows and columns are 1-based; row 1 is the header.
type Worksheet interface {
	Name() string
	// ReadAllRows returns every row, header included
	ReadAllRows(ctx context.Context) ([][]string, error)
	AppendRow(ctx context.Context, row []string) error
	// InsertRowsAt inserts rows so that rows[0] lands at row pos, shifting
	// existing rows down.
	InsertRowsAt(ctx context.Context, pos int, rows [][]string) error
	// ReadCell returns "" for a cell that was never written
	ReadCell(ctx context.Context, row, col int) (string, error)
	WriteCell(ctx context.Context, row, col int, value string) error
	Clear(ctx context.Context) error
}

// IsRetryable reports whether err is worth retrying
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// EnsureHeader makes row 1 of ws equal header. A worksheet whose first row
// differs is cleared before the header is written, so its data rows are
// discarded. reset reports whether that happened.
func EnsureHeader(ctx context.Context, ws Worksheet, header []string) (reset bool, err error) {
	rows, err := ws.ReadAllRows(ctx)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", ws.Name(), err)
	}
	if len(rows) > 0 && HeaderMatches(rows[0], header) {
		return false, nil
	}
	if len(rows) > 0 {
		if err := ws.Clear(ctx); err != nil {
			return false, fmt.Errorf("clear %s: %w", ws.Name(), err)
		}
		reset = true
	}
	if err := ws.AppendRow(ctx, header); err != nil {
		return reset, fmt.Errorf("write header to %s: %w", ws.Name(), err)
	}
	return reset, nil
}

// HeaderMatches compares a stored header row with the expected one.
// Trailing empty cells in the stored row are ignored.
func HeaderMatches(got, want []string) bool {
	for len(got) > len(want) && strings.TrimSpace(got[len(got)-1]) == "" {
		got = got[:len(got)-1]
	}
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if strings.TrimSpace(got[i]) != want[i] {
			return false
		}
	}
	return true
}

// ReplaceAll clears ws and writes header followed by rows
func ReplaceAll(ctx context.Context, ws Worksheet, header []string, rows [][]string) error {
	if err := ws.Clear(ctx); err != nil {
		return fmt.Errorf("clear %s: %w", ws.Name(), err)
	}
	if err := ws.AppendRow(ctx, header); err != nil {
		return fmt.Errorf("write header to %s: %w", ws.Name(), err)
	}
	if len(rows) == 0 {
		return nil
	}
	if err := ws.InsertRowsAt(ctx, 2, rows); err != nil {
		return fmt.Errorf("write rows to %s: %w", ws.Name(), err)
	}
	return nil
}

// ReadOptional reads every row of the named worksheet. A missing worksheet
// yields no rows and no error.
func ReadOptional(ctx context.Context, wb Workbook, name string) ([][]string, bool, error) {
	ws, err := wb.Worksheet(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	rows, err := ws.ReadAllRows(ctx)
	if err != nil {
		return nil, true, fmt.Errorf("read %s: %w", name, err)
	}
	return rows, true, nil
}

// ColumnName returns the A1 letters of a 1-based column
func ColumnName(col int) string {
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}
