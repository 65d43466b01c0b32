package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"reflect"
	"testing"

	"github.com/marcus/sheetdash/internal/models"
	"github.com/xuri/excelize/v2"
)

func leads() *models.TableData {
	return &models.TableData{
		Table: &models.Table{ID: 7, Name: "Q3 Leads / West"},
		SheetData: &models.SheetData{
			Headers: []string{"Name", "City"},
			Rows:    [][]string{{"Alice", "NYC"}, {"Bob"}, {"Carol", "nyc", "extra"}},
		},
		CustomColumns: []models.CustomColumn{{ID: 1, Name: "Status"}, {ID: 2, Name: "Due", Type: models.ColumnDate}},
	}
}

func TestHeaders(t *testing.T) {
	want := []string{"Name", "City", "Status (Added)", "Due (Added)"}
	if got := Headers(leads()); !reflect.DeepEqual(got, want) {
		t.Errorf("Headers = %v, want %v", got, want)
	}
	if Headers(nil) != nil {
		t.Errorf("Headers(nil) should be nil")
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, leads(), ""); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	recs, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	want := [][]string{
		{"Name", "City", "Status (Added)", "Due (Added)"},
		{"Alice", "NYC", "", ""},
		{"Bob", "", "", ""},
		{"Carol", "nyc", "", ""},
	}
	if !reflect.DeepEqual(recs, want) {
		t.Errorf("csv = %v, want %v", recs, want)
	}
}

func TestWriteCSVFiltered(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, CSV, leads(), "NYC"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	recs, _ := csv.NewReader(&buf).ReadAll()
	if len(recs) != 3 {
		t.Errorf("filtered export has %d records, want header + 2", len(recs))
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, leads(), ""); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 1 || sheets[0] != "Q3 Leads  West" {
		t.Fatalf("sheets = %v", sheets)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if !reflect.DeepEqual(rows[0], []string{"Name", "City", "Status (Added)", "Due (Added)"}) {
		t.Errorf("header row = %v", rows[0])
	}
	if len(rows) != 4 || rows[2][0] != "Bob" {
		t.Errorf("rows = %v", rows)
	}
}

func TestWriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, &models.TableData{}, ""); !errors.Is(err, ErrNoData) {
		t.Errorf("WriteCSV empty err = %v", err)
	}
	if err := WriteXLSX(&buf, nil, ""); !errors.Is(err, ErrNoData) {
		t.Errorf("WriteXLSX nil err = %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"csv", CSV, false},
		{" XLSX ", XLSX, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestFileName(t *testing.T) {
	if got := FileName(&models.Table{ID: 7, Name: "Q3 Leads / West"}, CSV); got != "q3-leads-west.csv" {
		t.Errorf("FileName = %q", got)
	}
	if got := FileName(&models.Table{ID: 7, Name: "!!!"}, XLSX); got != "table-7.xlsx" {
		t.Errorf("FileName = %q", got)
	}
	if got := FileName(nil, CSV); got != "table.csv" {
		t.Errorf("FileName(nil) = %q", got)
	}
}

func TestSheetNameTruncates(t *testing.T) {
	long := "abcdefghijklmnopqrstuvwxyz0123456789"
	if got := SheetName(long); len([]rune(got)) != 31 {
		t.Errorf("SheetName length = %d", len([]rune(got)))
	}
}
