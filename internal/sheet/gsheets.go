package sheet

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	newRows = 2000
	// cellFields is the field mask of every cell write
	cellFields = "userEnteredValue"
)

var (
	spreadsheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)
	imageFormula         = regexp.MustCompile(`^=IMAGE\("[^"]*"(,\d+)*\)$`)
)

// SpreadsheetID extracts the spreadsheet id from a Google Sheets URL. A bare
// id is returned unchanged.
func SpreadsheetID(url string) (string, error) {
	url = strings.TrimSpace(url)
	if m := spreadsheetIDPattern.FindStringSubmatch(url); m != nil {
		return m[1], nil
	}
	if url != "" && !strings.Contains(url, "/") {
		return url, nil
	}
	return "", fmt.Errorf("no spreadsheet id in %q", url)
}

// DecodeServiceAccount accepts a service account key either as raw JSON or
// base64 encoded JSON.
func DecodeServiceAccount(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") {
		return []byte(s), nil
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode service account: %w", err)
	}
	return data, nil
}

// Google is a Workbook backed by a Google Sheets spreadsheet
type Google struct {
	srv *sheets.Service
	id  string

	mu  sync.Mutex
	ids map[string]int64 // worksheet title -> sheet id
}

// OpenGoogle authenticates with a service account key and opens the
// spreadsheet at url.
func OpenGoogle(ctx context.Context, url string, serviceAccountJSON []byte) (*Google, error) {
	id, err := SpreadsheetID(url)
	if err != nil {
		return nil, err
	}
	conf, err := google.JWTConfigFromJSON(serviceAccountJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account: %w", err)
	}
	return NewGoogle(ctx, id, conf.Client(ctx))
}

// NewGoogle opens spreadsheet id using an already authorized client
func NewGoogle(ctx context.Context, id string, client *http.Client) (*Google, error) {
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	g := &Google{srv: srv, id: id}
	if err := g.refresh(ctx); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Google) refresh(ctx context.Context) error {
	ss, err := g.srv.Spreadsheets.Get(g.id).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("open spreadsheet: %w", classify(err))
	}
	ids := make(map[string]int64, len(ss.Sheets))
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			ids[s.Properties.Title] = s.Properties.SheetId
		}
	}
	g.mu.Lock()
	g.ids = ids
	g.mu.Unlock()
	return nil
}

// Worksheet implements Workbook
func (g *Google) Worksheet(_ context.Context, name string) (Worksheet, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	sid, ok := g.ids[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return &googleSheet{g: g, title: name, sheetID: sid}, nil
}

// FindOrCreateWorksheet implements Workbook
func (g *Google) FindOrCreateWorksheet(ctx context.Context, name string, cols int) (Worksheet, error) {
	ws, err := g.Worksheet(ctx, name)
	if !errors.Is(err, ErrNotFound) {
		return ws, err
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: name,
					GridProperties: &sheets.GridProperties{
						RowCount:    newRows,
						ColumnCount: int64(cols),
					},
				},
			},
		}},
	}
	resp, err := g.srv.Spreadsheets.BatchUpdate(g.id, req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("add worksheet %s: %w", name, classify(err))
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil {
		return nil, fmt.Errorf("add worksheet %s: empty reply", name)
	}
	sid := resp.Replies[0].AddSheet.Properties.SheetId

	g.mu.Lock()
	g.ids[name] = sid
	g.mu.Unlock()
	return &googleSheet{g: g, title: name, sheetID: sid}, nil
}

type googleSheet struct {
	g       *Google
	title   string
	sheetID int64
}

func (s *googleSheet) Name() string { return s.title }

func (s *googleSheet) a1(rng string) string {
	t := "'" + strings.ReplaceAll(s.title, "'", "''") + "'"
	if rng == "" {
		return t
	}
	return t + "!" + rng
}

func (s *googleSheet) ReadAllRows(ctx context.Context) ([][]string, error) {
	resp, err := s.g.srv.Spreadsheets.Values.Get(s.g.id, s.a1("")).Context(ctx).Do()
	if err != nil {
		return nil, classify(err)
	}
	rows := make([][]string, len(resp.Values))
	for i, r := range resp.Values {
		rows[i] = make([]string, len(r))
		for j, v := range r {
			rows[i][j] = fmt.Sprint(v)
		}
	}
	return rows, nil
}

func (s *googleSheet) AppendRow(ctx context.Context, row []string) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AppendCells: &sheets.AppendCellsRequest{
				SheetId:         s.sheetID,
				Rows:            rowData([][]string{row}),
				Fields:          cellFields,
				ForceSendFields: []string{"SheetId"},
			},
		}},
	}
	_, err := s.g.srv.Spreadsheets.BatchUpdate(s.g.id, req).Context(ctx).Do()
	return classify(err)
}

// InsertRowsAt inserts the blank rows and fills them in one batch, so the
// sheet never keeps blank rows from a half-done insert.
func (s *googleSheet) InsertRowsAt(ctx context.Context, pos int, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				InsertDimension: &sheets.InsertDimensionRequest{
					Range: &sheets.DimensionRange{
						SheetId:         s.sheetID,
						Dimension:       "ROWS",
						StartIndex:      int64(pos - 1),
						EndIndex:        int64(pos - 1 + len(rows)),
						ForceSendFields: []string{"SheetId", "StartIndex"},
					},
				},
			},
			{
				UpdateCells: &sheets.UpdateCellsRequest{
					Start:  s.coordinate(pos, 1),
					Rows:   rowData(rows),
					Fields: cellFields,
				},
			},
		},
	}
	if _, err := s.g.srv.Spreadsheets.BatchUpdate(s.g.id, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("insert rows: %w", classify(err))
	}
	return nil
}

func (s *googleSheet) coordinate(row, col int) *sheets.GridCoordinate {
	return &sheets.GridCoordinate{
		SheetId:         s.sheetID,
		RowIndex:        int64(row - 1),
		ColumnIndex:     int64(col - 1),
		ForceSendFields: []string{"SheetId", "RowIndex", "ColumnIndex"},
	}
}

func (s *googleSheet) ReadCell(ctx context.Context, row, col int) (string, error) {
	rng := fmt.Sprintf("%s%d", ColumnName(col), row)
	resp, err := s.g.srv.Spreadsheets.Values.Get(s.g.id, s.a1(rng)).Context(ctx).Do()
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		return "", nil
	}
	return fmt.Sprint(resp.Values[0][0]), nil
}

func (s *googleSheet) WriteCell(ctx context.Context, row, col int, value string) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			UpdateCells: &sheets.UpdateCellsRequest{
				Start:  s.coordinate(row, col),
				Rows:   rowData([][]string{{value}}),
				Fields: cellFields,
			},
		}},
	}
	_, err := s.g.srv.Spreadsheets.BatchUpdate(s.g.id, req).Context(ctx).Do()
	return classify(err)
}

func (s *googleSheet) Clear(ctx context.Context) error {
	_, err := s.g.srv.Spreadsheets.Values.Clear(s.g.id, s.a1(""), &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return classify(err)
}

// rowData converts rows to cell data. Cells are stored as literal strings,
// so text that looks like a number, date or formula reads back unchanged.
// Only image formulas are evaluated.
func rowData(rows [][]string) []*sheets.RowData {
	out := make([]*sheets.RowData, len(rows))
	for i, r := range rows {
		cells := make([]*sheets.CellData, len(r))
		for j, v := range r {
			cells[j] = cellData(v)
		}
		out[i] = &sheets.RowData{Values: cells}
	}
	return out
}

func cellData(v string) *sheets.CellData {
	if imageFormula.MatchString(v) {
		return &sheets.CellData{UserEnteredValue: &sheets.ExtendedValue{FormulaValue: &v}}
	}
	return &sheets.CellData{UserEnteredValue: &sheets.ExtendedValue{StringValue: &v}}
}

// classify marks quota and transient server errors as ErrRateLimited
func classify(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		}
	}
	return err
}
