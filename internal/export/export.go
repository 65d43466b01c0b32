// Package export writes a table's merged view (sheet columns followed by
// custom columns) as CSV or XLSX.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/marcus/sheetdash/internal/models"
	"github.com/marcus/sheetdash/internal/viewmodel"
	"github.com/xuri/excelize/v2"
)

// Format is an export file format.
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

// AddedSuffix marks custom columns in exported headers.
const AddedSuffix = " (Added)"

const defaultSheetName = "Sheet1"

var ErrNoData = errors.New("table has no data to export")

// ParseFormat accepts "csv" or "xlsx" in any case.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case CSV:
		return CSV, nil
	case XLSX:
		return XLSX, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want csv or xlsx)", s)
	}
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string { return "." + string(f) }

// Headers returns sheet headers followed by each custom column name with
// AddedSuffix.
func Headers(data *models.TableData) []string {
	if data == nil {
		return nil
	}
	var out []string
	if data.SheetData != nil {
		out = append(out, data.SheetData.Headers...)
	}
	for _, c := range data.CustomColumns {
		out = append(out, c.Name+AddedSuffix)
	}
	return out
}

// Records returns the data rows matching search. Sheet cells are aligned to
// the header count and custom cells are left empty.
func Records(data *models.TableData, search string) [][]string {
	if data == nil || data.SheetData == nil {
		return nil
	}
	width := len(data.SheetData.Headers)
	custom := len(data.CustomColumns)
	rows := viewmodel.Filter(data.SheetData.Rows, search)
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		rec := make([]string, width+custom)
		copy(rec[:width], r)
		out = append(out, rec)
	}
	return out
}

// Write encodes data in the given format.
func Write(w io.Writer, format Format, data *models.TableData, search string) error {
	switch format {
	case CSV:
		return WriteCSV(w, data, search)
	case XLSX:
		return WriteXLSX(w, data, search)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// WriteCSV writes a header line and one record per row.
func WriteCSV(w io.Writer, data *models.TableData, search string) error {
	headers := Headers(data)
	if len(headers) == 0 {
		return ErrNoData
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return err
	}
	if err := cw.WriteAll(Records(data, search)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteXLSX writes a single-sheet workbook named after the table with a
// bold, frozen header row.
func WriteXLSX(w io.Writer, data *models.TableData, search string) error {
	headers := Headers(data)
	if len(headers) == 0 {
		return ErrNoData
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := defaultSheetName
	if data.Table != nil {
		if name := SheetName(data.Table.Name); name != "" && name != defaultSheetName {
			if err := f.SetSheetName(defaultSheetName, name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
			sheet = name
		}
	}

	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return err
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}

	for i, rec := range Records(data, search) {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &rec); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// SheetName strips characters Excel rejects in sheet names and truncates
// to 31 runes.
func SheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return -1
		}
		return r
	}, name)
	name = strings.Trim(strings.TrimSpace(name), "'")
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	return name
}

// FileName suggests an output file name for a table.
func FileName(t *models.Table, format Format) string {
	base := "table"
	if t != nil {
		if s := strings.Join(strings.FieldsFunc(strings.ToLower(t.Name), func(r rune) bool {
			return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
		}), "-"); s != "" {
			base = s
		} else {
			base = fmt.Sprintf("table-%d", t.ID)
		}
	}
	return base + format.Ext()
}
