package sheet

import (
	"testing"
	"time"

	"github.com/ibeckermayer/feedsync/internal/types"
)

func TestCellData(t *testing.T) {
	tests := []struct {
		value   string
		formula bool
	}{
		{"100", false},
		{"1/2", false},
		{"+923001234567", false},
		{"=)", false},
		{"'quoted", false},
		{"", false},
		{"=SUM(A1:A3)", false},
		{`=IMAGE("https://damadam.pk/a.jpg",4,35,35)`, true},
		{`=IMAGE("https://damadam.pk/a.jpg")`, true},
		{`=IMAGE("x") and more`, false},
	}
	for _, tt := range tests {
		cell := cellData(tt.value)
		ev := cell.UserEnteredValue
		switch {
		case tt.formula:
			if ev.FormulaValue == nil || *ev.FormulaValue != tt.value || ev.StringValue != nil {
				t.Errorf("cellData(%q) should be a formula, got %+v", tt.value, ev)
			}
		default:
			if ev.StringValue == nil || *ev.StringValue != tt.value || ev.FormulaValue != nil {
				t.Errorf("cellData(%q) should be a literal string, got %+v", tt.value, ev)
			}
		}
	}
}

func TestRowData_PostRowKeepsTextLiteral(t *testing.T) {
	rec := types.Record{
		ScrapedAt:   time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
		Page:        1,
		Text:        "100",
		ImageLink:   "https://damadam.pk/media/a.jpg",
		Fingerprint: "abcdef123456",
	}
	rows := rowData([][]string{rec.Row(3)})
	if len(rows) != 1 || len(rows[0].Values) != len(types.PostHeaders) {
		t.Fatalf("unexpected shape: %d rows", len(rows))
	}
	cells := rows[0].Values

	if cells[types.ColImage].UserEnteredValue.FormulaValue == nil {
		t.Error("image cell should be written as a formula")
	}
	for i, c := range cells {
		if i == types.ColImage {
			continue
		}
		if c.UserEnteredValue.StringValue == nil {
			t.Errorf("column %s should be a literal string", types.PostHeaders[i])
		}
	}
	if got := *cells[types.ColText].UserEnteredValue.StringValue; got != "100" {
		t.Errorf("text cell = %q", got)
	}
	if got := *cells[types.ColSeen].UserEnteredValue.StringValue; got != "3" {
		t.Errorf("seen cell = %q", got)
	}
}
