package sheet

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process Workbook for dry runs and tests
type Memory struct {
	mu     sync.Mutex
	sheets map[string]*MemorySheet
}

// NewMemory returns an empty workbook
func NewMemory() *Memory {
	return &Memory{sheets: make(map[string]*MemorySheet)}
}

// Worksheet implements Workbook
func (m *Memory) Worksheet(_ context.Context, name string) (Worksheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, ok := m.sheets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return ws, nil
}

// FindOrCreateWorksheet implements Workbook
func (m *Memory) FindOrCreateWorksheet(_ context.Context, name string, _ int) (Worksheet, error) {
	return m.Sheet(name), nil
}

// Sheet returns the named sheet, creating it if needed
func (m *Memory) Sheet(name string) *MemorySheet {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, ok := m.sheets[name]
	if !ok {
		ws = &MemorySheet{name: name}
		m.sheets[name] = ws
	}
	return ws
}

// MemorySheet is a Worksheet held in memory
type MemorySheet struct {
	mu   sync.Mutex
	name string
	rows [][]string

	// InsertHook, if set, runs before every insert and fails it with its error
	InsertHook func(pos int, rows [][]string) error
	// WriteHook, if set, runs before every cell write and fails it with its error
	WriteHook func(row, col int, value string) error
}

// Name implements Worksheet
func (s *MemorySheet) Name() string { return s.name }

// Rows returns a copy of all rows
func (s *MemorySheet) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyRows(s.rows)
}

// SetRows replaces the sheet contents
func (s *MemorySheet) SetRows(rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = copyRows(rows)
}

// ReadAllRows implements Worksheet
func (s *MemorySheet) ReadAllRows(context.Context) ([][]string, error) {
	return s.Rows(), nil
}

// AppendRow implements Worksheet
func (s *MemorySheet) AppendRow(_ context.Context, row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, append([]string(nil), row...))
	return nil
}

// InsertRowsAt implements Worksheet
func (s *MemorySheet) InsertRowsAt(_ context.Context, pos int, rows [][]string) error {
	if s.InsertHook != nil {
		if err := s.InsertHook(pos, rows); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if pos < 1 {
		return fmt.Errorf("invalid row %d", pos)
	}
	for len(s.rows) < pos-1 {
		s.rows = append(s.rows, nil)
	}
	idx := pos - 1
	out := make([][]string, 0, len(s.rows)+len(rows))
	out = append(out, s.rows[:idx]...)
	out = append(out, copyRows(rows)...)
	out = append(out, s.rows[idx:]...)
	s.rows = out
	return nil
}

// ReadCell implements Worksheet
func (s *MemorySheet) ReadCell(_ context.Context, row, col int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row < 1 || col < 1 {
		return "", fmt.Errorf("invalid cell %d,%d", row, col)
	}
	if row > len(s.rows) || col > len(s.rows[row-1]) {
		return "", nil
	}
	return s.rows[row-1][col-1], nil
}

// WriteCell implements Worksheet
func (s *MemorySheet) WriteCell(_ context.Context, row, col int, value string) error {
	if s.WriteHook != nil {
		if err := s.WriteHook(row, col, value); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if row < 1 || col < 1 {
		return fmt.Errorf("invalid cell %d,%d", row, col)
	}
	for len(s.rows) < row {
		s.rows = append(s.rows, nil)
	}
	r := s.rows[row-1]
	for len(r) < col {
		r = append(r, "")
	}
	r[col-1] = value
	s.rows[row-1] = r
	return nil
}

// Clear implements Worksheet
func (s *MemorySheet) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = nil
	return nil
}

func copyRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
