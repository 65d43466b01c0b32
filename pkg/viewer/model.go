// Package viewer is the interactive table view: a live grid over one
// table's synced data with search, pagination and custom-cell editing.
package viewer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/sheetdash/internal/apiclient"
	"github.com/marcus/sheetdash/internal/celledit"
	"github.com/marcus/sheetdash/internal/models"
	"github.com/marcus/sheetdash/internal/tablesync"
	"github.com/marcus/sheetdash/internal/version"
	"github.com/marcus/sheetdash/internal/viewmodel"
	"github.com/marcus/sheetdash/pkg/viewer/keymap"
)

// statusDuration is how long a toast stays in the status bar.
const statusDuration = 3 * time.Second

// ColumnAdder creates custom columns.
type ColumnAdder interface {
	AddColumn(ctx context.Context, tableID int64, spec apiclient.ColumnSpec) (*models.CustomColumn, error)
}

// Options configures a viewer Model.
type Options struct {
	Context   context.Context
	TableID   int64
	Sync      *tablesync.Controller
	Values    celledit.ValueStore
	Columns   ColumnAdder
	PageSize  int
	ExportDir string
	Keymap    *keymap.Registry // nil uses the defaults
	Logger    *slog.Logger
	Version   string // checked for updates when set
}

// Model is the Bubble Tea model for the table viewer
type Model struct {
	ctx        context.Context
	opts       Options
	log        *slog.Logger
	sync       *tablesync.Controller
	valueCache *celledit.ValueCache
	keys       *keymap.Registry
	help       help.Model
	spin       spinner.Model

	// Window dimensions
	Width  int
	Height int

	// Load state
	Loading bool
	LoadErr error

	// Synced data and the page derived from it
	Data  *models.TableData
	Rev   uint64
	State viewmodel.State
	Page  viewmodel.Page

	// Selection: row on the current page and custom column index
	Cursor       int
	CustomCursor int

	// Search state
	Searching   bool
	SearchInput textinput.Model

	// Cell edit state
	Editor    *celledit.Editor
	EditInput textinput.Model
	saving    bool
	pending   map[viewmodel.CellKey]bool // custom cell values being fetched

	// Add-column form
	ColumnForm *ColumnForm

	HelpOpen bool
	Live     bool // push channel subscribed
	LastSync time.Time

	// Status message (toast)
	StatusMessage string
	StatusIsError bool
	statusSeq     int
}

// New creates a viewer for opts.TableID. The session is opened by Init.
func New(opts Options) Model {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	keys := opts.Keymap
	if keys == nil {
		keys = keymap.NewRegistry()
		keymap.RegisterDefaults(keys)
	}

	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "Search rows..."
	search.CharLimit = 200

	edit := textinput.New()
	edit.Prompt = ""
	edit.CharLimit = 500

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return Model{
		ctx:         opts.Context,
		opts:        opts,
		log:         opts.Logger.With("table", opts.TableID),
		sync:        opts.Sync,
		valueCache:  celledit.NewValueCache(),
		keys:        keys,
		help:        help.New(),
		spin:        spin,
		Loading:     true,
		State:       viewmodel.NewState(opts.PageSize),
		SearchInput: search,
		EditInput:   edit,
		pending:     make(map[viewmodel.CellKey]bool),
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.openCmd(), m.listenNotices(), m.spin.Tick}
	if m.opts.Version != "" {
		cmds = append(cmds, version.CheckAsync(m.ctx, m.opts.Version))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.help.Width = msg.Width
		m.rebuild()
		if m.ColumnForm != nil {
			m.ColumnForm.Form.WithWidth(formWidth(msg.Width))
		}
		return m, nil

	case openedMsg:
		return m.handleOpened(msg)

	case noticeMsg:
		return m.handleNotice(tablesync.Notice(msg))

	case refreshedMsg:
		if msg.err != nil {
			return m, m.setStatus("Refresh failed: "+msg.err.Error(), true)
		}
		return m, nil

	case valuesLoadedMsg:
		for _, k := range msg.keys {
			delete(m.pending, k)
		}
		return m, nil

	case editStartedMsg:
		return m.handleEditStarted(msg)

	case cellSavedMsg:
		return m.handleCellSaved(msg)

	case columnAddedMsg:
		return m.handleColumnAdded(msg)

	case exportedMsg:
		if msg.err != nil {
			return m, m.setStatus("Export failed: "+msg.err.Error(), true)
		}
		return m, m.setStatus("Exported to "+msg.path, false)

	case version.UpdateAvailableMsg:
		text := fmt.Sprintf("Update available: %s (you have %s)", msg.LatestVersion, msg.CurrentVersion)
		if msg.UpdateCommand != "" {
			text += " · " + msg.UpdateCommand
		}
		return m, m.setStatus(text, false)

	case ClearStatusMsg:
		if msg.Seq == m.statusSeq {
			m.StatusMessage = ""
			m.StatusIsError = false
		}
		return m, nil

	case spinner.TickMsg:
		if !m.Loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	if m.ColumnForm != nil {
		return m.handleFormUpdate(msg)
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		return m.handleKey(keyMsg)
	}

	// Cursor blink and other input-internal messages
	var cmd tea.Cmd
	switch {
	case m.Searching:
		m.SearchInput, cmd = m.SearchInput.Update(msg)
	case m.Editor != nil:
		m.EditInput, cmd = m.EditInput.Update(msg)
	}
	return m, cmd
}

// View implements tea.Model
func (m Model) View() string {
	return m.renderView()
}

// currentContext returns the keymap context for the current UI state
func (m Model) currentContext() keymap.Context {
	switch {
	case m.HelpOpen:
		return keymap.ContextHelp
	case m.ColumnForm != nil:
		return keymap.ContextForm
	case m.Editor != nil:
		return keymap.ContextEdit
	case m.Searching:
		return keymap.ContextSearch
	case m.LoadErr != nil && m.Data == nil:
		return keymap.ContextError
	default:
		return keymap.ContextTable
	}
}

// rebuild recomputes the page after data, search, page or size changes and
// keeps the selection inside it.
func (m *Model) rebuild() {
	m.Page = viewmodel.Build(m.Data, m.State, viewmodel.Viewport{Width: m.Width, Height: m.Height})
	m.State.Page = m.Page.Page
	if m.Cursor >= len(m.Page.Rows) {
		m.Cursor = len(m.Page.Rows) - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
	if m.CustomCursor >= len(m.Page.CustomHeaders) {
		m.CustomCursor = len(m.Page.CustomHeaders) - 1
	}
	if m.CustomCursor < 0 {
		m.CustomCursor = 0
	}
}

// syncSnapshot pulls the controller's cache when its revision moved.
func (m *Model) syncSnapshot() bool {
	data, rev := m.sync.Snapshot()
	if data == nil || rev == m.Rev {
		return false
	}
	m.Data = data
	m.Rev = rev
	m.rebuild()
	return true
}

// setStatus shows a toast and schedules its removal.
func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	m.statusSeq++
	m.StatusMessage = text
	m.StatusIsError = isErr
	seq := m.statusSeq
	return tea.Tick(statusDuration, func(time.Time) tea.Msg {
		return ClearStatusMsg{Seq: seq}
	})
}

// selectedCell returns the custom cell under the cursor.
func (m Model) selectedCell() (viewmodel.CellKey, viewmodel.Header, bool) {
	if m.Cursor >= len(m.Page.Rows) || m.CustomCursor >= len(m.Page.CustomHeaders) {
		return viewmodel.CellKey{}, viewmodel.Header{}, false
	}
	row := m.Page.Rows[m.Cursor]
	if m.CustomCursor >= len(row.Custom) {
		return viewmodel.CellKey{}, viewmodel.Header{}, false
	}
	return row.Custom[m.CustomCursor], m.Page.CustomHeaders[m.CustomCursor], true
}

// editingHeader returns the header of the column being edited.
func (m Model) editingHeader() viewmodel.Header {
	if m.Editor == nil {
		return viewmodel.Header{}
	}
	for _, h := range m.Page.CustomHeaders {
		if h.ColumnID == m.Editor.Key().ColumnID {
			return h
		}
	}
	return viewmodel.Header{}
}
