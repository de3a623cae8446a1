package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ibeckermayer/feedsync/internal/sheet"

	_ "modernc.org/sqlite"
)

// Store is a local workbook kept in SQLite. Each worksheet is a list of rows
// ordered by position.
type Store struct {
	db *sql.DB
}

// New creates a new Store with SQLite backend
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// row shifting relies on a single writer
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS worksheets (
		name TEXT PRIMARY KEY,
		cols INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS rows (
		worksheet TEXT NOT NULL REFERENCES worksheets(name),
		pos INTEGER NOT NULL,
		cells TEXT NOT NULL,
		PRIMARY KEY (worksheet, pos)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Worksheet implements sheet.Workbook
func (s *Store) Worksheet(ctx context.Context, name string) (sheet.Worksheet, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM worksheets WHERE name = ?)`, name).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", sheet.ErrNotFound, name)
	}
	return &worksheet{db: s.db, name: name}, nil
}

// FindOrCreateWorksheet implements sheet.Workbook
func (s *Store) FindOrCreateWorksheet(ctx context.Context, name string, cols int) (sheet.Worksheet, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO worksheets (name, cols) VALUES (?, ?)
		ON CONFLICT(name) DO NOTHING
	`, name, cols)
	if err != nil {
		return nil, err
	}
	return &worksheet{db: s.db, name: name}, nil
}

type worksheet struct {
	db   *sql.DB
	name string
}

func (w *worksheet) Name() string { return w.name }

func (w *worksheet) ReadAllRows(ctx context.Context) ([][]string, error) {
	rows, err := w.db.QueryContext(ctx, `
		SELECT cells FROM rows WHERE worksheet = ? ORDER BY pos
	`, w.name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		var cellsJSON string
		if err := rows.Scan(&cellsJSON); err != nil {
			return nil, err
		}
		cells, err := decodeCells(cellsJSON)
		if err != nil {
			return nil, err
		}
		out = append(out, cells)
	}
	return out, rows.Err()
}

func (w *worksheet) AppendRow(ctx context.Context, row []string) error {
	return w.inTx(ctx, func(tx *sql.Tx) error {
		n, err := count(ctx, tx, w.name)
		if err != nil {
			return err
		}
		return insertRow(ctx, tx, w.name, n+1, row)
	})
}

func (w *worksheet) InsertRowsAt(ctx context.Context, pos int, rows [][]string) error {
	if pos < 1 {
		return fmt.Errorf("invalid row %d", pos)
	}
	if len(rows) == 0 {
		return nil
	}
	return w.inTx(ctx, func(tx *sql.Tx) error {
		n, err := count(ctx, tx, w.name)
		if err != nil {
			return err
		}
		if err := pad(ctx, tx, w.name, n, pos-1); err != nil {
			return err
		}
		// shift through negative positions to keep (worksheet, pos) unique mid-update
		if _, err := tx.ExecContext(ctx, `
			UPDATE rows SET pos = -(pos + ?) WHERE worksheet = ? AND pos >= ?
		`, len(rows), w.name, pos); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE rows SET pos = -pos WHERE worksheet = ? AND pos < 0
		`, w.name); err != nil {
			return err
		}
		for i, row := range rows {
			if err := insertRow(ctx, tx, w.name, pos+i, row); err != nil {
				return err
			}
		}
		return nil
	})
}

func (w *worksheet) ReadCell(ctx context.Context, row, col int) (string, error) {
	if row < 1 || col < 1 {
		return "", fmt.Errorf("invalid cell %d,%d", row, col)
	}
	var cellsJSON string
	err := w.db.QueryRowContext(ctx, `
		SELECT cells FROM rows WHERE worksheet = ? AND pos = ?
	`, w.name, row).Scan(&cellsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	cells, err := decodeCells(cellsJSON)
	if err != nil {
		return "", err
	}
	if col > len(cells) {
		return "", nil
	}
	return cells[col-1], nil
}

func (w *worksheet) WriteCell(ctx context.Context, row, col int, value string) error {
	if row < 1 || col < 1 {
		return fmt.Errorf("invalid cell %d,%d", row, col)
	}
	return w.inTx(ctx, func(tx *sql.Tx) error {
		n, err := count(ctx, tx, w.name)
		if err != nil {
			return err
		}
		if err := pad(ctx, tx, w.name, n, row); err != nil {
			return err
		}

		var cellsJSON string
		if err := tx.QueryRowContext(ctx, `
			SELECT cells FROM rows WHERE worksheet = ? AND pos = ?
		`, w.name, row).Scan(&cellsJSON); err != nil {
			return err
		}
		cells, err := decodeCells(cellsJSON)
		if err != nil {
			return err
		}
		for len(cells) < col {
			cells = append(cells, "")
		}
		cells[col-1] = value

		data, err := json.Marshal(cells)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE rows SET cells = ? WHERE worksheet = ? AND pos = ?
		`, string(data), w.name, row)
		return err
	})
}

func (w *worksheet) Clear(ctx context.Context) error {
	_, err := w.db.ExecContext(ctx, `DELETE FROM rows WHERE worksheet = ?`, w.name)
	return err
}

func (w *worksheet) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func count(ctx context.Context, tx *sql.Tx, name string) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM rows WHERE worksheet = ?`, name).Scan(&n)
	return n, err
}

// pad appends empty rows until the worksheet has at least want rows
func pad(ctx context.Context, tx *sql.Tx, name string, have, want int) error {
	for p := have + 1; p <= want; p++ {
		if err := insertRow(ctx, tx, name, p, nil); err != nil {
			return err
		}
	}
	return nil
}

func insertRow(ctx context.Context, tx *sql.Tx, name string, pos int, cells []string) error {
	if cells == nil {
		cells = []string{}
	}
	data, err := json.Marshal(cells)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO rows (worksheet, pos, cells) VALUES (?, ?, ?)
	`, name, pos, string(data))
	return err
}

func decodeCells(s string) ([]string, error) {
	var cells []string
	if err := json.Unmarshal([]byte(s), &cells); err != nil {
		return nil, fmt.Errorf("corrupt row: %w", err)
	}
	return cells, nil
}
