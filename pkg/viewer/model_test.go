package viewer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/sheetdash/internal/apiclient"
	"github.com/marcus/sheetdash/internal/celledit"
	"github.com/marcus/sheetdash/internal/models"
	"github.com/marcus/sheetdash/internal/tablesync"
	"github.com/marcus/sheetdash/internal/version"
	"github.com/marcus/sheetdash/internal/viewmodel"
	"github.com/marcus/sheetdash/pkg/viewer/keymap"
)

type stubFetcher struct {
	mu    sync.Mutex
	data  *models.TableData
	err   error
	calls atomic.Int32
}

func (f *stubFetcher) set(d *models.TableData, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data, f.err = d, err
}

func (f *stubFetcher) GetTableData(ctx context.Context, id int64) (*models.TableData, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.data.Clone(), nil
}

type stubValues struct {
	mu      sync.Mutex
	values  map[viewmodel.CellKey]string
	saveErr error
}

func (s *stubValues) GetCellValue(ctx context.Context, columnID int64, rowIndex int) (*models.CellValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[viewmodel.CellKey{ColumnID: columnID, RowIndex: rowIndex}]
	if !ok {
		return nil, &apiclient.FetchError{Op: "GET", Status: 404, Err: apiclient.ErrNotFound}
	}
	return &models.CellValue{ColumnID: columnID, RowIndex: rowIndex, Value: v}, nil
}

func (s *stubValues) SaveCellValue(ctx context.Context, v models.CellValue) (*models.CellValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return nil, s.saveErr
	}
	s.values[viewmodel.CellKey{ColumnID: v.ColumnID, RowIndex: v.RowIndex}] = v.Value
	return &v, nil
}

type stubColumns struct{ specs []apiclient.ColumnSpec }

func (s *stubColumns) AddColumn(ctx context.Context, tableID int64, spec apiclient.ColumnSpec) (*models.CustomColumn, error) {
	s.specs = append(s.specs, spec)
	return &models.CustomColumn{ID: 9, TableID: tableID, Name: spec.Name, Type: spec.Type}, nil
}

func leads(rows int, cols ...models.CustomColumn) *models.TableData {
	r := make([][]string, rows)
	for i := range r {
		r[i] = []string{fmt.Sprintf("row%02d", i+1), "x"}
	}
	return &models.TableData{
		Table:         &models.Table{ID: 42, Name: "Leads"},
		SheetData:     &models.SheetData{Headers: []string{"Name", "Flag"}, Rows: r},
		CustomColumns: cols,
	}
}

type harness struct {
	fetcher *stubFetcher
	values  *stubValues
	columns *stubColumns
	ctrl    *tablesync.Controller
	dir     string
}

func newHarness(t *testing.T, data *models.TableData) (*harness, Model) {
	t.Helper()
	h := &harness{
		fetcher: &stubFetcher{data: data},
		values:  &stubValues{values: make(map[viewmodel.CellKey]string)},
		columns: &stubColumns{},
		dir:     t.TempDir(),
	}
	h.ctrl = tablesync.New(h.fetcher, tablesync.Options{PollInterval: time.Hour})
	t.Cleanup(h.ctrl.Close)
	m := New(Options{
		TableID:   42,
		Sync:      h.ctrl,
		Values:    h.values,
		Columns:   h.columns,
		PageSize:  10,
		ExportDir: h.dir,
	})
	return h, m
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func opened(t *testing.T, m Model) Model {
	t.Helper()
	m, _ = update(t, m, m.openCmd()())
	return m
}

func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m, cmd = update(t, m, msg)
	}
	return m, cmd
}

func TestOpenFailureShowsErrorThenRetry(t *testing.T) {
	h, m := newHarness(t, nil)
	h.fetcher.set(nil, &apiclient.FetchError{Op: "GET /api/tables/42/data", Status: 500, Err: errors.New("boom")})

	m = opened(t, m)
	if m.LoadErr == nil || m.Loading {
		t.Fatalf("LoadErr=%v Loading=%v", m.LoadErr, m.Loading)
	}
	if m.currentContext() != keymap.ContextError {
		t.Errorf("context = %s", m.currentContext())
	}
	if !strings.Contains(m.View(), "Failed to load table") {
		t.Errorf("error view missing:\n%s", m.View())
	}

	h.fetcher.set(leads(3), nil)
	m, _ = press(t, m, "r")
	if !m.Loading {
		t.Fatal("retry should return to loading")
	}
	m = opened(t, m)
	if m.LoadErr != nil || m.Data == nil || len(m.Page.Rows) != 3 {
		t.Fatalf("after retry: err=%v rows=%d", m.LoadErr, len(m.Page.Rows))
	}
	if !strings.Contains(m.View(), "Leads") {
		t.Errorf("table view missing title:\n%s", m.View())
	}
}

func TestSearchFiltersAndResetsPage(t *testing.T) {
	_, m := newHarness(t, leads(23))
	m = opened(t, m)

	m, _ = press(t, m, "n", "n")
	if m.Page.Page != 3 {
		t.Fatalf("page = %d, want 3", m.Page.Page)
	}
	m, _ = press(t, m, "n")
	if m.Page.Page != 3 {
		t.Errorf("next past last page moved to %d", m.Page.Page)
	}

	m, _ = press(t, m, "/")
	if !m.Searching || m.currentContext() != keymap.ContextSearch {
		t.Fatal("search mode not entered")
	}
	m, _ = press(t, m, "r", "o", "w", "2")
	if m.State.Search != "row2" || m.Page.Page != 1 || m.Page.Matches != 4 {
		t.Errorf("search=%q page=%d matches=%d", m.State.Search, m.Page.Page, m.Page.Matches)
	}
	if m.Page.Rows[0].Cells[0] != "row20" || m.Page.Rows[0].Index != 0 {
		t.Errorf("first row = %+v", m.Page.Rows[0])
	}

	m, _ = press(t, m, "enter")
	if m.Searching || m.State.Search != "row2" {
		t.Errorf("confirm: searching=%v term=%q", m.Searching, m.State.Search)
	}
	m, _ = press(t, m, "esc")
	if m.State.Search != "" || m.Page.Matches != 23 {
		t.Errorf("clear: term=%q matches=%d", m.State.Search, m.Page.Matches)
	}
}

func TestPollNoticesDoNotToast(t *testing.T) {
	h, m := newHarness(t, leads(3))
	m = opened(t, m)

	h.fetcher.set(leads(5), nil)
	if err := h.ctrl.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	m, _ = update(t, m, noticeMsg{Kind: tablesync.NoticeDataRefreshed, Source: tablesync.SourcePoll, Title: "Data refreshed", At: time.Now()})
	if m.StatusMessage != "" {
		t.Errorf("poll notice toasted %q", m.StatusMessage)
	}
	if len(m.Page.Rows) != 5 {
		t.Errorf("rows after notice = %d, want 5", len(m.Page.Rows))
	}

	m, _ = update(t, m, noticeMsg{Kind: tablesync.NoticeColumnAdded, Source: tablesync.SourcePush, Title: "Column added", Message: "Status"})
	if m.StatusMessage != "Column added: Status" || m.StatusIsError {
		t.Errorf("push toast = %q (err=%v)", m.StatusMessage, m.StatusIsError)
	}
}

func TestChannelNoticesToggleLiveBadge(t *testing.T) {
	_, m := newHarness(t, leads(1))
	m = opened(t, m)

	m, _ = update(t, m, noticeMsg{Kind: tablesync.NoticeConnected, Source: tablesync.SourcePush})
	if !m.Live || !strings.Contains(m.View(), "LIVE") {
		t.Error("expected live badge after subscribe")
	}
	m, _ = update(t, m, noticeMsg{Kind: tablesync.NoticeChannelClosed, Source: tablesync.SourcePush, Title: "Live updates stopped", IsError: true})
	if m.Live || !strings.Contains(m.View(), "POLLING") {
		t.Error("expected polling badge after channel close")
	}
	if !m.StatusIsError {
		t.Error("channel close should toast as error")
	}
}

func TestStaleClearKeepsNewerToast(t *testing.T) {
	_, m := newHarness(t, leads(1))
	m.setStatus("first", false)
	m.setStatus("second", false)

	m, _ = update(t, m, ClearStatusMsg{Seq: 1})
	if m.StatusMessage != "second" {
		t.Errorf("stale clear removed newer toast: %q", m.StatusMessage)
	}
	m, _ = update(t, m, ClearStatusMsg{Seq: 2})
	if m.StatusMessage != "" {
		t.Errorf("current clear ignored: %q", m.StatusMessage)
	}
}

func editCell(t *testing.T, m Model) Model {
	t.Helper()
	m, cmd := press(t, m, "e")
	if m.Editor == nil || cmd == nil {
		t.Fatal("edit not started")
	}
	m, _ = update(t, m, cmd())
	if m.Editor == nil || m.Editor.State() != celledit.Editing {
		t.Fatalf("editor state after start = %v", m.Editor)
	}
	return m
}

func TestFailedSaveKeepsDraft(t *testing.T) {
	h, m := newHarness(t, leads(3, models.CustomColumn{ID: 3, Name: "Status", Type: models.ColumnText}))
	h.values.saveErr = errors.New("connection reset")
	m = opened(t, m)
	m = editCell(t, m)

	m, _ = press(t, m, "draft")
	m, cmd := press(t, m, "enter")
	if cmd == nil {
		t.Fatal("enter did not save")
	}
	m, _ = update(t, m, cmd())

	if m.Editor == nil || m.Editor.State() != celledit.Editing {
		t.Fatalf("editor left editing after failed save")
	}
	if m.EditInput.Value() != "draft" || m.Editor.Buffer() != "draft" {
		t.Errorf("draft lost: input=%q buffer=%q", m.EditInput.Value(), m.Editor.Buffer())
	}
	if !m.StatusIsError || !strings.Contains(m.StatusMessage, "Failed to save value") {
		t.Errorf("status = %q", m.StatusMessage)
	}
}

func TestEscCancelsEditWithoutSaving(t *testing.T) {
	h, m := newHarness(t, leads(3, models.CustomColumn{ID: 3, Name: "Status", Type: models.ColumnText}))
	m = opened(t, m)
	m = editCell(t, m)

	m, _ = press(t, m, "typo")
	m, _ = press(t, m, "esc")
	if m.Editor != nil {
		t.Fatalf("editor still open after esc: %v", m.Editor.State())
	}
	h.values.mu.Lock()
	defer h.values.mu.Unlock()
	if len(h.values.values) != 0 {
		t.Errorf("esc saved a value: %+v", h.values.values)
	}
}

func TestSaveRefreshesTable(t *testing.T) {
	h, m := newHarness(t, leads(3, models.CustomColumn{ID: 3, Name: "Status"}))
	m = opened(t, m)
	m, _ = press(t, m, "j")
	m = editCell(t, m)

	m, _ = press(t, m, "won")
	before := h.fetcher.calls.Load()
	m, cmd := press(t, m, "enter")
	m, _ = update(t, m, cmd())

	if m.Editor != nil {
		t.Error("editor still open after save")
	}
	if m.StatusMessage != "Value saved" {
		t.Errorf("status = %q", m.StatusMessage)
	}
	if got := h.values.values[viewmodel.CellKey{ColumnID: 3, RowIndex: 1}]; got != "won" {
		t.Errorf("saved value = %q", got)
	}
	if h.fetcher.calls.Load() <= before {
		t.Error("save did not refetch table data")
	}
}

func TestDateColumnRejectsBadValue(t *testing.T) {
	h, m := newHarness(t, leads(1, models.CustomColumn{ID: 4, Name: "Due", Type: models.ColumnDate}))
	m = opened(t, m)
	m = editCell(t, m)

	m, _ = press(t, m, "someday")
	m, _ = press(t, m, "enter")
	if m.Editor == nil || m.Editor.State() != celledit.Editing || m.saving {
		t.Fatal("invalid date left editing")
	}
	if !m.StatusIsError {
		t.Error("expected date format error")
	}
	if len(h.values.values) != 0 {
		t.Errorf("values written: %v", h.values.values)
	}
}

func TestDateColumnNormalizesRelativeDate(t *testing.T) {
	h, m := newHarness(t, leads(1, models.CustomColumn{ID: 4, Name: "Due", Type: models.ColumnDate}))
	m = opened(t, m)
	m = editCell(t, m)

	m, _ = press(t, m, "today")
	m, cmd := press(t, m, "enter")
	if cmd == nil {
		t.Fatal("relative date was not saved")
	}
	m, _ = update(t, m, cmd())

	want := time.Now().Format(time.DateOnly)
	if got := h.values.values[viewmodel.CellKey{ColumnID: 4, RowIndex: 0}]; got != want {
		t.Errorf("saved value = %q, want %q", got, want)
	}
}

func TestEditWithoutCustomColumns(t *testing.T) {
	_, m := newHarness(t, leads(2))
	m = opened(t, m)
	m, _ = press(t, m, "e")
	if m.Editor != nil {
		t.Error("editor opened with no custom columns")
	}
	if !strings.Contains(m.StatusMessage, "No custom column") {
		t.Errorf("status = %q", m.StatusMessage)
	}
}

func TestExportWritesFile(t *testing.T) {
	h, m := newHarness(t, leads(2, models.CustomColumn{ID: 3, Name: "Status"}))
	m = opened(t, m)

	m, cmd := press(t, m, "x")
	if cmd == nil {
		t.Fatal("export returned no command")
	}
	m, _ = update(t, m, cmd())
	if m.StatusIsError {
		t.Fatalf("export failed: %s", m.StatusMessage)
	}

	data, err := os.ReadFile(filepath.Join(h.dir, "leads.csv"))
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.HasPrefix(string(data), "Name,Flag,Status (Added)\n") {
		t.Errorf("csv = %q", data)
	}
}

func TestViewShowsCustomMarkerAndPages(t *testing.T) {
	_, m := newHarness(t, leads(23, models.CustomColumn{ID: 3, Name: "Status"}))
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m = opened(t, m)

	view := m.View()
	for _, want := range []string{"Leads", "CUSTOM", "[1]", "showing 1-10 of 23", "row01"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if strings.Contains(view, "row11") {
		t.Error("second page row rendered on page 1")
	}
}

func TestEmptyTableView(t *testing.T) {
	_, m := newHarness(t, &models.TableData{Table: &models.Table{ID: 42, Name: "Empty"}, SheetData: &models.SheetData{}})
	m = opened(t, m)
	if !strings.Contains(m.View(), "No data available") {
		t.Errorf("empty view:\n%s", m.View())
	}
}

func TestAddColumnFormOpensAndCancels(t *testing.T) {
	_, m := newHarness(t, leads(1))
	m = opened(t, m)

	m, _ = press(t, m, "a")
	if m.ColumnForm == nil || m.currentContext() != keymap.ContextForm {
		t.Fatal("form not opened")
	}
	m, _ = press(t, m, "esc")
	if m.ColumnForm != nil {
		t.Error("esc did not close form")
	}
}

func TestColumnAddedInvalidates(t *testing.T) {
	h, m := newHarness(t, leads(1))
	m = opened(t, m)

	before := h.fetcher.calls.Load()
	m, cmd := update(t, m, columnAddedMsg{col: &models.CustomColumn{ID: 9, Name: "Owner"}})
	if m.StatusMessage != `Column "Owner" added` {
		t.Errorf("status = %q", m.StatusMessage)
	}
	if cmd == nil {
		t.Fatal("no follow-up command")
	}
	if msg := m.invalidateCmd()(); msg != nil {
		t.Errorf("invalidate reported %v", msg)
	}
	if h.fetcher.calls.Load() <= before {
		t.Error("column add did not refetch")
	}
}

func TestQuitClosesSession(t *testing.T) {
	h, m := newHarness(t, leads(1))
	m = opened(t, m)
	if !h.ctrl.Active() {
		t.Fatal("session not active after open")
	}
	_, cmd := press(t, m, "q")
	if cmd == nil {
		t.Fatal("quit returned no command")
	}
	if h.ctrl.Active() {
		t.Error("session still active after quit")
	}
}

func TestUpdateAvailableToast(t *testing.T) {
	_, m := newHarness(t, leads(3))
	m = opened(t, m)

	m, _ = update(t, m, version.UpdateAvailableMsg{CurrentVersion: "v0.3.0", LatestVersion: "v0.4.0", UpdateCommand: "go install x"})
	if !strings.Contains(m.StatusMessage, "v0.4.0") || m.StatusIsError {
		t.Errorf("status = %q (err=%v)", m.StatusMessage, m.StatusIsError)
	}
}
