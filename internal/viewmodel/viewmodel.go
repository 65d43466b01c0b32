// Package viewmodel derives what the table viewer shows: a filtered, paged
// slice of the cached table. Everything here is a pure function of its
// inputs (data, search state, viewport).
package viewmodel

import (
	"strings"

	"github.com/marcus/sheetdash/internal/models"
)

const (
	// DefaultPageSize is the number of rows per page.
	DefaultPageSize = 10
	// WindowSize is the most page numbers shown at once.
	WindowSize = 5
	// compactWindowSize is used when the viewport is narrow.
	compactWindowSize = 3
	// CompactWidth is the viewport width below which the layout compacts.
	CompactWidth = 60
	// PlaceholderHeader is shown when a table has custom columns but no sheet headers.
	PlaceholderHeader = "Data"
)

// State is the transient search/paging state of one open viewer.
type State struct {
	Search   string
	Page     int // 1-based
	PageSize int
}

// NewState returns page 1 with no search term.
func NewState(pageSize int) State {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return State{Page: 1, PageSize: pageSize}
}

// SetSearch changes the term and always returns to page 1.
func (s *State) SetSearch(term string) {
	s.Search = term
	s.Page = 1
}

// SetPage moves to page p. Build clamps out-of-range pages.
func (s *State) SetPage(p int) {
	s.Page = p
}

// Viewport is the rendering surface the caller has. It replaces any
// reading of terminal size from inside the view model.
type Viewport struct {
	Width  int
	Height int
}

// Compact reports whether the viewport is narrow. A zero width is treated
// as unknown, not narrow.
func (v Viewport) Compact() bool {
	return v.Width > 0 && v.Width < CompactWidth
}

// Matches reports whether any cell contains term, case-insensitively.
// An empty term matches every row.
func Matches(row []string, term string) bool {
	if term == "" {
		return true
	}
	needle := strings.ToLower(term)
	for _, cell := range row {
		if strings.Contains(strings.ToLower(cell), needle) {
			return true
		}
	}
	return false
}

// Filter returns the rows matching term, in their original order.
func Filter(rows [][]string, term string) [][]string {
	if term == "" {
		return rows
	}
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		if Matches(row, term) {
			out = append(out, row)
		}
	}
	return out
}

// PageCount is ceil(n/size).
func PageCount(n, size int) int {
	if size <= 0 || n <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// ClampPage keeps page within [1, max(1,total)].
func ClampPage(page, total int) int {
	if page > total {
		page = total
	}
	if page < 1 {
		page = 1
	}
	return page
}

// PageWindow returns at most size consecutive page numbers centred on
// current and clamped to [1,total].
func PageWindow(current, total, size int) []int {
	if total <= 0 || size <= 0 {
		return nil
	}
	if size > total {
		size = total
	}
	current = ClampPage(current, total)
	start := current - size/2
	if start < 1 {
		start = 1
	}
	if start+size-1 > total {
		start = total - size + 1
	}
	out := make([]int, size)
	for i := range out {
		out[i] = start + i
	}
	return out
}

// RowIndex converts a row's position on the displayed page into the index
// that keys its custom cell values. The index points into the filtered
// rows, not the sheet: the same logical row can have different indexes
// with and without a search term.
func RowIndex(page, pageSize, displayed int) int {
	return (page-1)*pageSize + displayed
}

// Header is one rendered column heading.
type Header struct {
	Name     string
	Custom   bool // dashboard-only column, rendered with a CUSTOM marker
	ColumnID int64
	Type     models.ColumnType
}

// CellKey identifies one custom cell.
type CellKey struct {
	ColumnID int64
	RowIndex int
}

// Row is one rendered row.
type Row struct {
	Index  int       // position in the filtered rows
	Cells  []string  // sheet cells, aligned to the sheet headers
	Custom []CellKey // one per custom column, in header order
}

// Page is everything the viewer renders for one frame.
type Page struct {
	SheetHeaders  []Header
	CustomHeaders []Header
	Rows          []Row
	Page          int
	PageCount     int
	Window        []int
	Matches       int // rows matching the search
	Total         int // rows in the sheet
	Compact       bool
}

// Headers returns sheet headers followed by custom headers.
func (p Page) Headers() []Header {
	out := make([]Header, 0, len(p.SheetHeaders)+len(p.CustomHeaders))
	out = append(out, p.SheetHeaders...)
	return append(out, p.CustomHeaders...)
}

// Empty reports whether there is nothing to draw a grid for.
func (p Page) Empty() bool {
	return len(p.SheetHeaders) == 0 && len(p.CustomHeaders) == 0
}

// Build derives the page for data under st and vp. A nil data yields an
// empty page.
func Build(data *models.TableData, st State, vp Viewport) Page {
	pageSize := st.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	p := Page{Compact: vp.Compact()}
	if data == nil {
		p.Page = 1
		return p
	}

	var headers []string
	var rows [][]string
	if data.SheetData != nil {
		headers = data.SheetData.Headers
		rows = data.SheetData.Rows
	}
	for _, h := range headers {
		p.SheetHeaders = append(p.SheetHeaders, Header{Name: h})
	}
	if len(headers) == 0 && len(data.CustomColumns) > 0 {
		p.SheetHeaders = append(p.SheetHeaders, Header{Name: PlaceholderHeader})
	}
	for _, col := range data.CustomColumns {
		p.CustomHeaders = append(p.CustomHeaders, Header{Name: col.Name, Custom: true, ColumnID: col.ID, Type: col.Type})
	}

	filtered := Filter(rows, st.Search)
	p.Total = len(rows)
	p.Matches = len(filtered)
	p.PageCount = PageCount(len(filtered), pageSize)
	p.Page = ClampPage(st.Page, p.PageCount)

	window := WindowSize
	if p.Compact {
		window = compactWindowSize
	}
	p.Window = PageWindow(p.Page, p.PageCount, window)

	start := (p.Page - 1) * pageSize
	end := start + pageSize
	if end > len(filtered) {
		end = len(filtered)
	}
	for i := start; i < end; i++ {
		displayed := i - start
		row := Row{
			Index: RowIndex(p.Page, pageSize, displayed),
			Cells: align(filtered[i], len(headers)),
		}
		for _, col := range data.CustomColumns {
			row.Custom = append(row.Custom, CellKey{ColumnID: col.ID, RowIndex: row.Index})
		}
		p.Rows = append(p.Rows, row)
	}
	return p
}

// align pads short rows with empty cells and truncates long ones so every
// rendered row matches the header count. width 0 leaves the row unchanged.
func align(row []string, width int) []string {
	if width == 0 {
		return append([]string(nil), row...)
	}
	out := make([]string, width)
	copy(out, row)
	return out
}
