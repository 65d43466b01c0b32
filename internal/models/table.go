package models

import (
	"fmt"
	"time"
)

// ColumnType is the declared type of a custom column.
type ColumnType string

const (
	ColumnText ColumnType = "text"
	ColumnDate ColumnType = "date"
)

// IsValid reports whether t is one of the supported column types.
func (t ColumnType) IsValid() bool {
	return t == ColumnText || t == ColumnDate
}

// ParseColumnType converts user input into a ColumnType.
func ParseColumnType(s string) (ColumnType, error) {
	t := ColumnType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid column type %q (want text or date)", s)
	}
	return t, nil
}

// Table is a Google Sheet connected to the dashboard.
type Table struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"userId,omitempty"`
	Name           string     `json:"name"`
	GoogleSheetURL string     `json:"googleSheetUrl"`
	CreatedAt      *time.Time `json:"createdAt,omitempty"`
	LastUpdatedAt  *time.Time `json:"lastUpdatedAt,omitempty"`
}

// SheetData is the header row and data rows of the source sheet.
// Rows are aligned positionally to Headers.
type SheetData struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Clone returns a deep copy.
func (s *SheetData) Clone() *SheetData {
	if s == nil {
		return nil
	}
	out := &SheetData{Headers: append([]string(nil), s.Headers...)}
	if s.Rows != nil {
		out.Rows = make([][]string, len(s.Rows))
		for i, row := range s.Rows {
			out.Rows[i] = append([]string(nil), row...)
		}
	}
	return out
}

// CustomColumn is a dashboard-only column. It is never written back to the sheet.
type CustomColumn struct {
	ID      int64      `json:"id"`
	TableID int64      `json:"tableId"`
	Name    string     `json:"name"`
	Type    ColumnType `json:"type"`
}

// CellValue is the value of one custom column at one row.
// RowIndex is a position in the filtered row array the client rendered,
// not a stable row identity.
type CellValue struct {
	ID       *int64 `json:"id,omitempty"`
	ColumnID int64  `json:"columnId"`
	RowIndex int    `json:"rowIndex"`
	Value    string `json:"value"`
}

// TableData is the combined state of one table as served by
// GET /api/tables/{id}/data.
type TableData struct {
	Table         *Table         `json:"table,omitempty"`
	CustomColumns []CustomColumn `json:"customColumns"`
	SheetData     *SheetData     `json:"sheetData"`
}

// Clone returns a deep copy.
func (d *TableData) Clone() *TableData {
	if d == nil {
		return nil
	}
	out := &TableData{
		CustomColumns: append([]CustomColumn(nil), d.CustomColumns...),
		SheetData:     d.SheetData.Clone(),
	}
	if d.Table != nil {
		t := *d.Table
		out.Table = &t
	}
	return out
}

// RowCount returns the number of sheet rows, tolerating missing sheet data.
func (d *TableData) RowCount() int {
	if d == nil || d.SheetData == nil {
		return 0
	}
	return len(d.SheetData.Rows)
}

// User is the authenticated dashboard account.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Token     string `json:"token,omitempty"`
}
