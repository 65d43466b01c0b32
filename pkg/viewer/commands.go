package viewer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/marcus/sheetdash/internal/celledit"
	"github.com/marcus/sheetdash/internal/dateparse"
	"github.com/marcus/sheetdash/internal/export"
	"github.com/marcus/sheetdash/internal/models"
	"github.com/marcus/sheetdash/internal/tablesync"
	"github.com/marcus/sheetdash/internal/viewmodel"
	"github.com/marcus/sheetdash/pkg/viewer/keymap"
	"golang.org/x/sync/errgroup"
)

// valueFetchLimit bounds concurrent custom-value requests per page.
const valueFetchLimit = 4

type openedMsg struct{ err error }

type noticeMsg tablesync.Notice

type refreshedMsg struct{ err error }

type valuesLoadedMsg struct{ keys []viewmodel.CellKey }

type editStartedMsg struct {
	key viewmodel.CellKey
	err error
}

type cellSavedMsg struct {
	key viewmodel.CellKey
	err error
}

type columnAddedMsg struct {
	col *models.CustomColumn
	err error
}

type exportedMsg struct {
	path string
	err  error
}

// ClearStatusMsg clears the toast it was scheduled for.
type ClearStatusMsg struct{ Seq int }

func (m Model) openCmd() tea.Cmd {
	ctrl, ctx, id := m.sync, m.ctx, m.opts.TableID
	return func() tea.Msg {
		return openedMsg{err: ctrl.Open(ctx, id)}
	}
}

// listenNotices waits for the next controller notice. It is re-armed after
// every delivery.
func (m Model) listenNotices() tea.Cmd {
	ch := m.sync.Notices()
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return noticeMsg(n)
	}
}

func (m Model) refreshCmd() tea.Cmd {
	ctrl, ctx := m.sync, m.ctx
	return func() tea.Msg {
		return refreshedMsg{err: ctrl.Refresh(ctx)}
	}
}

// loadVisibleValues fetches the custom cell values shown on the current page
// that are neither cached nor already in flight.
func (m Model) loadVisibleValues() tea.Cmd {
	if m.opts.Values == nil {
		return nil
	}
	var keys []viewmodel.CellKey
	for _, row := range m.Page.Rows {
		for _, k := range row.Custom {
			if _, ok := m.valueCache.Peek(k); ok || m.pending[k] {
				continue
			}
			m.pending[k] = true
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil
	}

	ctx, store, cache, log := m.ctx, m.opts.Values, m.valueCache, m.log
	return func() tea.Msg {
		var g errgroup.Group
		g.SetLimit(valueFetchLimit)
		for _, k := range keys {
			g.Go(func() error {
				if _, err := cache.Get(ctx, store, k); err != nil {
					log.Debug("viewer: load cell value", "column", k.ColumnID, "row", k.RowIndex, "err", err)
				}
				return nil
			})
		}
		g.Wait()
		return valuesLoadedMsg{keys: keys}
	}
}

func (m Model) handleOpened(msg openedMsg) (tea.Model, tea.Cmd) {
	m.Loading = false
	if msg.err != nil {
		m.LoadErr = msg.err
		m.log.Warn("viewer: open table", "err", msg.err)
		return m, nil
	}
	m.LoadErr = nil
	m.LastSync = time.Now()
	m.syncSnapshot()
	return m, m.loadVisibleValues()
}

// handleNotice refreshes from the cache and toasts anything the user did not
// trigger implicitly. Poll ticks only update the status bar.
func (m Model) handleNotice(n tablesync.Notice) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{m.listenNotices()}

	switch n.Kind {
	case tablesync.NoticeConnected:
		m.Live = true
	case tablesync.NoticeChannelError, tablesync.NoticeChannelClosed:
		m.Live = false
	case tablesync.NoticeValueUpdated:
		if n.Source == tablesync.SourcePush {
			m.valueCache.Reset()
		}
	}
	if !n.At.IsZero() && n.Kind != tablesync.NoticeChannelError && n.Kind != tablesync.NoticeChannelClosed {
		m.LastSync = n.At
	}

	if toastable(n) {
		text := n.Title
		if n.Message != "" {
			text += ": " + n.Message
		}
		cmds = append(cmds, m.setStatus(text, n.IsError))
	}

	m.syncSnapshot()
	cmds = append(cmds, m.loadVisibleValues())
	return m, tea.Batch(cmds...)
}

func toastable(n tablesync.Notice) bool {
	switch n.Source {
	case tablesync.SourcePush, tablesync.SourceManual:
		return true
	}
	return n.IsError || n.Kind == tablesync.NoticeChannelClosed
}

// handleKey processes key input using the keymap registry
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctx := m.currentContext()

	if cmd, found := m.keys.Lookup(msg, ctx); found {
		return m.executeCommand(cmd)
	}

	switch ctx {
	case keymap.ContextSearch:
		var cmd tea.Cmd
		m.SearchInput, cmd = m.SearchInput.Update(msg)
		if v := m.SearchInput.Value(); v != m.State.Search {
			m.State.SetSearch(v)
			m.Cursor = 0
			m.rebuild()
			return m, tea.Batch(cmd, m.loadVisibleValues())
		}
		return m, cmd
	case keymap.ContextEdit:
		if m.Editor.State() != celledit.Editing || m.saving {
			return m, nil
		}
		var cmd tea.Cmd
		m.EditInput, cmd = m.EditInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

// executeCommand runs a keymap command
func (m Model) executeCommand(cmd keymap.Command) (tea.Model, tea.Cmd) {
	switch cmd {
	case keymap.CmdQuit:
		m.sync.Close()
		return m, tea.Quit

	case keymap.CmdToggleHelp:
		m.HelpOpen = true
		return m, nil
	case keymap.CmdCloseHelp:
		m.HelpOpen = false
		return m, nil

	case keymap.CmdRetry:
		m.Loading = true
		m.LoadErr = nil
		return m, tea.Batch(m.openCmd(), m.spin.Tick)

	case keymap.CmdCursorDown:
		if m.Cursor < len(m.Page.Rows)-1 {
			m.Cursor++
		}
		return m, nil
	case keymap.CmdCursorUp:
		if m.Cursor > 0 {
			m.Cursor--
		}
		return m, nil
	case keymap.CmdCursorRight:
		if m.CustomCursor < len(m.Page.CustomHeaders)-1 {
			m.CustomCursor++
		}
		return m, nil
	case keymap.CmdCursorLeft:
		if m.CustomCursor > 0 {
			m.CustomCursor--
		}
		return m, nil

	case keymap.CmdNextPage:
		return m.goToPage(m.Page.Page + 1)
	case keymap.CmdPrevPage:
		return m.goToPage(m.Page.Page - 1)
	case keymap.CmdFirstPage:
		return m.goToPage(1)
	case keymap.CmdLastPage:
		return m.goToPage(m.Page.PageCount)

	case keymap.CmdRefresh:
		return m, m.refreshCmd()

	case keymap.CmdSearch:
		m.Searching = true
		m.SearchInput.SetValue(m.State.Search)
		m.SearchInput.CursorEnd()
		return m, m.SearchInput.Focus()
	case keymap.CmdSearchConfirm:
		m.Searching = false
		m.SearchInput.Blur()
		return m, nil
	case keymap.CmdSearchCancel, keymap.CmdSearchClear:
		m.Searching = false
		m.SearchInput.Blur()
		m.SearchInput.SetValue("")
		if m.State.Search == "" {
			return m, nil
		}
		m.State.SetSearch("")
		m.Cursor = 0
		m.rebuild()
		return m, m.loadVisibleValues()

	case keymap.CmdEditCell:
		return m.startEdit()
	case keymap.CmdSaveCell:
		return m.saveEdit()
	case keymap.CmdCancelEdit:
		if m.saving {
			return m, nil
		}
		m.Editor.Cancel()
		m.Editor = nil
		m.EditInput.Blur()
		return m, nil

	case keymap.CmdAddColumn:
		if m.opts.Columns == nil {
			return m, nil
		}
		m.ColumnForm = NewColumnForm(m.Width)
		return m, m.ColumnForm.Form.Init()
	case keymap.CmdFormCancel:
		m.ColumnForm = nil
		return m, nil

	case keymap.CmdExportCSV, keymap.CmdExportXLSX:
		if m.Data == nil {
			return m, m.setStatus("Nothing to export yet", true)
		}
		format := export.CSV
		if cmd == keymap.CmdExportXLSX {
			format = export.XLSX
		}
		return m, m.exportCmd(format)
	}
	return m, nil
}

func (m Model) goToPage(p int) (tea.Model, tea.Cmd) {
	if p < 1 || p > m.Page.PageCount || p == m.Page.Page {
		return m, nil
	}
	m.State.SetPage(p)
	m.Cursor = 0
	m.rebuild()
	return m, m.loadVisibleValues()
}

func (m Model) startEdit() (tea.Model, tea.Cmd) {
	key, _, ok := m.selectedCell()
	if !ok || m.opts.Values == nil {
		return m, m.setStatus("No custom column to edit. Press a to add one", false)
	}
	ed := celledit.NewEditor(key, m.opts.Values, m.valueCache, m.sync, m.log)
	m.Editor = ed
	ctx := m.ctx
	return m, func() tea.Msg {
		return editStartedMsg{key: key, err: ed.StartEdit(ctx)}
	}
}

func (m Model) handleEditStarted(msg editStartedMsg) (tea.Model, tea.Cmd) {
	if m.Editor == nil || m.Editor.Key() != msg.key {
		return m, nil
	}
	if msg.err != nil {
		m.Editor = nil
		return m, m.setStatus("Failed to load value: "+msg.err.Error(), true)
	}
	m.EditInput.Placeholder = ""
	if m.editingHeader().Type == models.ColumnDate {
		m.EditInput.Placeholder = "YYYY-MM-DD, today, +3d"
	}
	m.EditInput.SetValue(m.Editor.Buffer())
	m.EditInput.CursorEnd()
	return m, tea.Batch(m.EditInput.Focus(), textinput.Blink)
}

func (m Model) saveEdit() (tea.Model, tea.Cmd) {
	if m.Editor == nil || m.saving || m.Editor.State() != celledit.Editing {
		return m, nil
	}
	value := m.EditInput.Value()
	if m.editingHeader().Type == models.ColumnDate && value != "" {
		day, err := dateparse.Normalize(value)
		if err != nil {
			return m, m.setStatus("Dates use YYYY-MM-DD (or today, +3d, friday)", true)
		}
		value = day
		m.EditInput.SetValue(value)
	}
	m.Editor.SetBuffer(value)
	m.saving = true
	ed, ctx := m.Editor, m.ctx
	return m, func() tea.Msg {
		return cellSavedMsg{key: ed.Key(), err: ed.Save(ctx)}
	}
}

func (m Model) handleCellSaved(msg cellSavedMsg) (tea.Model, tea.Cmd) {
	m.saving = false
	if msg.err != nil {
		// The editor is back in Editing with the draft intact.
		return m, m.setStatus("Failed to save value: "+msg.err.Error(), true)
	}
	if m.Editor != nil && m.Editor.Key() == msg.key {
		m.Editor = nil
		m.EditInput.Blur()
	}
	status := m.setStatus("Value saved", false)
	return m, tea.Batch(status, m.loadVisibleValues())
}

// handleFormUpdate routes messages while the add-column form is open
func (m Model) handleFormUpdate(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if cmd, found := m.keys.Lookup(keyMsg, keymap.ContextForm); found {
			return m.executeCommand(cmd)
		}
	}

	form, cmd := m.ColumnForm.Form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.ColumnForm.Form = f
	}

	switch m.ColumnForm.Form.State {
	case huh.StateAborted:
		m.ColumnForm = nil
		return m, nil
	case huh.StateCompleted:
		spec, err := m.ColumnForm.Spec()
		m.ColumnForm = nil
		if err != nil {
			return m, m.setStatus(err.Error(), true)
		}
		adder, ctx, id := m.opts.Columns, m.ctx, m.opts.TableID
		return m, func() tea.Msg {
			col, err := adder.AddColumn(ctx, id, spec)
			return columnAddedMsg{col: col, err: err}
		}
	}
	return m, cmd
}

func (m Model) handleColumnAdded(msg columnAddedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m, m.setStatus("Failed to add column: "+msg.err.Error(), true)
	}
	return m, tea.Batch(m.setStatus(fmt.Sprintf("Column %q added", msg.col.Name), false), m.invalidateCmd())
}

// invalidateCmd refetches table data so a change made here shows up even
// before the push channel reports it.
func (m Model) invalidateCmd() tea.Cmd {
	ctrl, ctx := m.sync, m.ctx
	return func() tea.Msg {
		if err := ctrl.Invalidate(ctx); err != nil && !errors.Is(err, tablesync.ErrNotOpen) {
			return refreshedMsg{err: err}
		}
		return nil
	}
}

func (m Model) exportCmd(format export.Format) tea.Cmd {
	data, search, dir := m.Data.Clone(), m.State.Search, m.opts.ExportDir
	return func() tea.Msg {
		path := filepath.Join(dir, export.FileName(data.Table, format))
		f, err := os.Create(path)
		if err != nil {
			return exportedMsg{err: err}
		}
		werr := export.Write(f, format, data, search)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		return exportedMsg{path: path, err: werr}
	}
}
