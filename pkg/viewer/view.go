package viewer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/marcus/sheetdash/internal/celledit"
	"github.com/marcus/sheetdash/internal/output"
	"github.com/marcus/sheetdash/internal/viewmodel"
)

const (
	maxCellWidth        = 28
	compactMaxCellWidth = 14
	minCellWidth        = 3
	cellGap             = "  "
	customTag           = "CUSTOM"
	loadingCell         = "…"
)

func (m Model) renderView() string {
	if m.HelpOpen {
		return helpBoxStyle.Render(m.keys.GenerateHelp())
	}
	if m.Loading {
		return fmt.Sprintf("\n  %s Loading table %d...\n", m.spin.View(), m.opts.TableID)
	}
	if m.LoadErr != nil && m.Data == nil {
		return m.renderError()
	}

	var sections []string
	sections = append(sections, m.renderHeader())
	if m.Searching || m.State.Search != "" {
		sections = append(sections, m.renderSearch())
	}

	if m.ColumnForm != nil {
		sections = append(sections, "", m.ColumnForm.Form.View())
	} else {
		sections = append(sections, "", m.renderGrid())
		if p := m.renderPagination(); p != "" {
			sections = append(sections, "", p)
		}
	}

	if m.StatusMessage != "" {
		style := statusOKStyle
		if m.StatusIsError {
			style = statusErrStyle
		}
		sections = append(sections, "", style.Render(m.StatusMessage))
	}
	sections = append(sections, "", m.help.ShortHelpView(m.keys.ShortHelp(m.currentContext())))

	out := strings.Join(sections, "\n")
	if m.Width > 0 {
		lines := strings.Split(out, "\n")
		for i, l := range lines {
			lines[i] = ansi.Truncate(l, m.Width, "")
		}
		out = strings.Join(lines, "\n")
	}
	return out
}

func (m Model) renderError() string {
	body := fmt.Sprintf("%s\n\n%s\n\n%s",
		titleStyle.Render("Failed to load table"),
		m.LoadErr.Error(),
		subtleStyle.Render("r retry • q quit"))
	return "\n" + errorBoxStyle.Render(body) + "\n"
}

func (m Model) renderHeader() string {
	name := fmt.Sprintf("Table %d", m.opts.TableID)
	updated := "never"
	if m.Data != nil && m.Data.Table != nil {
		if m.Data.Table.Name != "" {
			name = m.Data.Table.Name
		}
		updated = output.FormatLastUpdated(m.Data.Table.LastUpdatedAt)
	}

	badge := pollingBadge.Render("● POLLING")
	if m.Live {
		badge = liveBadge.Render("● LIVE")
	}

	parts := []string{titleStyle.Render(name), badge}
	if !m.LastSync.IsZero() {
		parts = append(parts, subtleStyle.Render("synced "+output.FormatTimeAgo(m.LastSync)))
	}
	if !m.Page.Compact {
		parts = append(parts, subtleStyle.Render("sheet updated "+updated))
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderSearch() string {
	counts := subtleStyle.Render(fmt.Sprintf("%d of %d rows", m.Page.Matches, m.Page.Total))
	if m.Searching {
		return m.SearchInput.View() + "  " + counts
	}
	return subtleStyle.Render("/ "+m.State.Search) + "  " + counts
}

func (m Model) renderGrid() string {
	p := m.Page
	if p.Empty() {
		return subtleStyle.Render("No data available")
	}

	headers := p.Headers()
	nSheet := len(p.SheetHeaders)
	cells := make([][]string, len(p.Rows))
	for i, row := range p.Rows {
		line := make([]string, 0, len(headers))
		for j := 0; j < nSheet; j++ {
			v := ""
			if j < len(row.Cells) {
				v = row.Cells[j]
			}
			line = append(line, v)
		}
		for _, k := range row.Custom {
			line = append(line, m.customCellText(k))
		}
		cells[i] = line
	}

	widths := columnWidths(headers, cells, p.Compact)

	var b strings.Builder
	var head []string
	for j, h := range headers {
		if h.Custom {
			head = append(head, renderCustomHeader(h.Name, widths[j]))
			continue
		}
		head = append(head, headerCellStyle.Render(pad(h.Name, widths[j])))
	}
	b.WriteString(strings.Join(head, cellGap))
	b.WriteString("\n")

	var rule []string
	for _, w := range widths {
		rule = append(rule, strings.Repeat("─", w))
	}
	b.WriteString(subtleStyle.Render(strings.Join(rule, cellGap)))

	if len(p.Rows) == 0 {
		b.WriteString("\n")
		if m.State.Search != "" {
			b.WriteString(subtleStyle.Render(fmt.Sprintf("No rows match %q", m.State.Search)))
		} else {
			b.WriteString(subtleStyle.Render("No rows"))
		}
		return b.String()
	}

	for i, line := range cells {
		b.WriteString("\n")
		var rendered []string
		for j, v := range line {
			text := pad(v, widths[j])
			custom := j >= nSheet
			switch {
			case i == m.Cursor && custom && j-nSheet == m.CustomCursor:
				text = m.renderSelectedCell(p.Rows[i].Custom[j-nSheet], text, widths[j])
			case i == m.Cursor:
				text = selectedRowStyle.Render(text)
			case custom:
				text = customCellStyle.Render(text)
			}
			rendered = append(rendered, text)
		}
		sep := cellGap
		if i == m.Cursor {
			sep = selectedRowStyle.Render(cellGap)
		}
		b.WriteString(strings.Join(rendered, sep))
	}
	return b.String()
}

// renderCustomHeader draws the column name followed by a green CUSTOM tag,
// falling back to one plain truncated label when the column is too narrow.
func renderCustomHeader(name string, width int) string {
	label := name + " " + customTag
	lw := ansi.StringWidth(label)
	if lw > width {
		return headerCellStyle.Render(pad(label, width))
	}
	return headerCellStyle.Render(name) + " " + customTagStyle.Render(customTag) + strings.Repeat(" ", width-lw)
}

// renderSelectedCell shows the edit input in place while a cell is edited.
func (m Model) renderSelectedCell(k viewmodel.CellKey, text string, width int) string {
	if m.Editor != nil && m.Editor.Key() == k {
		switch {
		case m.saving || m.Editor.State() == celledit.Saving:
			return selectedCellStyle.Render(pad("saving…", width))
		case m.Editor.State() == celledit.Editing:
			return m.EditInput.View()
		}
	}
	return selectedCellStyle.Render(text)
}

func (m Model) customCellText(k viewmodel.CellKey) string {
	if v, ok := m.valueCache.Peek(k); ok {
		return v
	}
	if m.pending[k] {
		return loadingCell
	}
	return ""
}

func columnWidths(headers []viewmodel.Header, rows [][]string, compact bool) []int {
	limit := maxCellWidth
	if compact {
		limit = compactMaxCellWidth
	}
	widths := make([]int, len(headers))
	for j, h := range headers {
		w := ansi.StringWidth(h.Name)
		if h.Custom {
			w += 1 + len(customTag)
		}
		for _, row := range rows {
			if j < len(row) {
				if cw := ansi.StringWidth(row[j]); cw > w {
					w = cw
				}
			}
		}
		if w > limit {
			w = limit
		}
		if w < minCellWidth {
			w = minCellWidth
		}
		widths[j] = w
	}
	return widths
}

// pad truncates s to width with an ellipsis and right-pads it with spaces.
func pad(s string, width int) string {
	s = ansi.Truncate(s, width, "…")
	if w := ansi.StringWidth(s); w < width {
		s += strings.Repeat(" ", width-w)
	}
	return s
}

func (m Model) renderPagination() string {
	p := m.Page
	if p.PageCount == 0 {
		return ""
	}
	size := m.State.PageSize
	first := (p.Page-1)*size + 1
	last := first + len(p.Rows) - 1
	summary := subtleStyle.Render(fmt.Sprintf("showing %d-%d of %d", first, last, p.Matches))

	if p.PageCount == 1 {
		return summary
	}
	if p.Compact {
		return fmt.Sprintf("‹ %s/%d ›  %s", currentPageStyle.Render(strconv.Itoa(p.Page)), p.PageCount, summary)
	}

	var nums []string
	if len(p.Window) > 0 && p.Window[0] > 1 {
		nums = append(nums, subtleStyle.Render("…"))
	}
	for _, n := range p.Window {
		if n == p.Page {
			nums = append(nums, currentPageStyle.Render("["+strconv.Itoa(n)+"]"))
		} else {
			nums = append(nums, strconv.Itoa(n))
		}
	}
	if len(p.Window) > 0 && p.Window[len(p.Window)-1] < p.PageCount {
		nums = append(nums, subtleStyle.Render("…"))
	}

	prev, next := "‹ prev", "next ›"
	if p.Page == 1 {
		prev = subtleStyle.Render(prev)
	}
	if p.Page == p.PageCount {
		next = subtleStyle.Render(next)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, prev, "  ", strings.Join(nums, " "), "  ", next, "   ", summary)
}
