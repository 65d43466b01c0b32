// Package celledit implements editing of one custom cell: a
// Viewing -> Editing -> Saving -> Viewing state machine backed by the
// custom-column-value endpoints.
package celledit

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/marcus/sheetdash/internal/apiclient"
	"github.com/marcus/sheetdash/internal/models"
	"github.com/marcus/sheetdash/internal/viewmodel"
)

// State of an Editor.
type State int

const (
	Viewing State = iota
	Editing
	Saving
)

func (s State) String() string {
	switch s {
	case Viewing:
		return "viewing"
	case Editing:
		return "editing"
	case Saving:
		return "saving"
	default:
		return "unknown"
	}
}

var (
	ErrNotEditing = errors.New("cell is not being edited")
	ErrBusy       = errors.New("cell is already editing or saving")
)

// ValueStore reads and writes custom cell values.
type ValueStore interface {
	GetCellValue(ctx context.Context, columnID int64, rowIndex int) (*models.CellValue, error)
	SaveCellValue(ctx context.Context, v models.CellValue) (*models.CellValue, error)
}

// Invalidator refreshes table-wide state after a successful write.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// ValueCache memoizes per-cell fetches for the lifetime of a viewer.
type ValueCache struct {
	mu     sync.Mutex
	values map[viewmodel.CellKey]string
}

// NewValueCache returns an empty cache.
func NewValueCache() *ValueCache {
	return &ValueCache{values: make(map[viewmodel.CellKey]string)}
}

// Peek returns a cached value without fetching.
func (c *ValueCache) Peek(key viewmodel.CellKey) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok
}

// Get returns the cached value or fetches it. A cell that was never
// written reads as "".
func (c *ValueCache) Get(ctx context.Context, store ValueStore, key viewmodel.CellKey) (string, error) {
	if v, ok := c.Peek(key); ok {
		return v, nil
	}
	cv, err := store.GetCellValue(ctx, key.ColumnID, key.RowIndex)
	var value string
	switch {
	case err == nil:
		value = cv.Value
	case apiclient.IsNotFound(err):
	default:
		return "", err
	}
	c.mu.Lock()
	c.values[key] = value
	c.mu.Unlock()
	return value, nil
}

// Invalidate drops one entry so the next Get refetches it.
func (c *ValueCache) Invalidate(key viewmodel.CellKey) {
	c.mu.Lock()
	delete(c.values, key)
	c.mu.Unlock()
}

// Reset drops every entry.
func (c *ValueCache) Reset() {
	c.mu.Lock()
	c.values = make(map[viewmodel.CellKey]string)
	c.mu.Unlock()
}

// Editor edits the cell at Key. Methods are safe for concurrent use so a
// save can run off the UI goroutine while the UI reads State.
type Editor struct {
	key   viewmodel.CellKey
	store ValueStore
	cache *ValueCache
	inv   Invalidator
	log   *slog.Logger

	mu        sync.Mutex
	state     State
	buffer    string
	lastKnown string
}

// NewEditor creates an editor in the Viewing state. inv may be nil.
func NewEditor(key viewmodel.CellKey, store ValueStore, cache *ValueCache, inv Invalidator, logger *slog.Logger) *Editor {
	if cache == nil {
		cache = NewValueCache()
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Editor{
		key:   key,
		store: store,
		cache: cache,
		inv:   inv,
		log:   logger.With("column", key.ColumnID, "row", key.RowIndex),
	}
	if v, ok := cache.Peek(key); ok {
		e.lastKnown = v
		e.buffer = v
	}
	return e
}

// Key returns the cell being edited.
func (e *Editor) Key() viewmodel.CellKey { return e.key }

// State returns the current state.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Buffer returns the edit buffer.
func (e *Editor) Buffer() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buffer
}

// LastKnown returns the last value read from or saved to the server.
func (e *Editor) LastKnown() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastKnown
}

// SetBuffer replaces the edit buffer. Ignored unless Editing.
func (e *Editor) SetBuffer(v string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Editing {
		e.buffer = v
	}
}

// StartEdit loads the last known value into the buffer and enters Editing.
// On a fetch failure it stays in Viewing and returns the error.
func (e *Editor) StartEdit(ctx context.Context) error {
	e.mu.Lock()
	if e.state != Viewing {
		e.mu.Unlock()
		return ErrBusy
	}
	e.mu.Unlock()

	value, err := e.cache.Get(ctx, e.store, e.key)
	if err != nil {
		e.log.Debug("celledit: load value", "err", err)
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Viewing {
		return ErrBusy
	}
	e.lastKnown = value
	e.buffer = value
	e.state = Editing
	return nil
}

// Cancel discards the buffer and returns to Viewing.
func (e *Editor) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Editing {
		return
	}
	e.buffer = e.lastKnown
	e.state = Viewing
}

// Save submits the buffer. On success the per-cell cache entry and the
// table-wide cache are invalidated and the editor returns to Viewing. On
// failure it returns to Editing with the buffer intact and the error is a
// *apiclient.SaveError.
func (e *Editor) Save(ctx context.Context) error {
	e.mu.Lock()
	if e.state != Editing {
		e.mu.Unlock()
		return ErrNotEditing
	}
	e.state = Saving
	value := e.buffer
	e.mu.Unlock()

	_, err := e.store.SaveCellValue(ctx, models.CellValue{ColumnID: e.key.ColumnID, RowIndex: e.key.RowIndex, Value: value})
	if err != nil {
		var se *apiclient.SaveError
		if !errors.As(err, &se) {
			err = &apiclient.SaveError{Op: "POST /api/columns/values", Err: err}
		}
		e.mu.Lock()
		e.state = Editing
		e.mu.Unlock()
		e.log.Warn("celledit: save failed", "err", err)
		return err
	}

	e.cache.Invalidate(e.key)
	if e.inv != nil {
		if err := e.inv.Invalidate(ctx); err != nil {
			e.log.Debug("celledit: invalidate table", "err", err)
		}
	}

	e.mu.Lock()
	e.lastKnown = value
	e.buffer = value
	e.state = Viewing
	e.mu.Unlock()
	return nil
}
