// Package tablesync keeps one table's data current while a viewer is open.
//
// Three producers feed one reducer: the initial REST fetch, the push channel
// and a polling timer. The reducer applies whatever arrives last
// (last-writer-wins by arrival, no sequence numbers). Push and poll run
// independently for the whole session; polling is the backstop when the
// channel is down or silently drops messages.
package tablesync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marcus/sheetdash/internal/apiclient"
	"github.com/marcus/sheetdash/internal/channel"
	"github.com/marcus/sheetdash/internal/models"
	"golang.org/x/sync/singleflight"
)

// DefaultPollInterval is the fallback refetch period.
const DefaultPollInterval = 15 * time.Second

var (
	// ErrNotOpen is returned by Refresh and Invalidate without a session.
	ErrNotOpen = errors.New("no open table session")
	// ErrSessionClosed is returned when a fetch completes after Close.
	ErrSessionClosed = errors.New("table session closed")
)

// Fetcher loads a table's combined data.
type Fetcher interface {
	GetTableData(ctx context.Context, id int64) (*models.TableData, error)
}

// Dialer opens a push subscription for tableID delivering to h.
type Dialer func(ctx context.Context, tableID int64, h channel.Handler) (io.Closer, error)

// Options configures a Controller.
type Options struct {
	PollInterval time.Duration // zero means DefaultPollInterval
	Dial         Dialer        // nil runs on polling alone
	NoticeBuffer int           // zero means 32
	Logger       *slog.Logger
}

// Controller owns at most one open table session.
type Controller struct {
	fetcher Fetcher
	opts    Options
	log     *slog.Logger
	flight  singleflight.Group
	notices chan Notice

	mu    sync.Mutex
	sess  *session
	cache Cache
}

// session is one Open..Close span. Everything a session produces is checked
// against its own closed flag, never global state.
type session struct {
	id       string
	tableID  int64
	ctx      context.Context
	cancel   context.CancelFunc
	log      *slog.Logger
	closed   bool      // guarded by Controller.mu
	conn     io.Closer // guarded by Controller.mu
	pollDone chan struct{}
}

// New creates a Controller.
func New(f Fetcher, opts Options) *Controller {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.NoticeBuffer <= 0 {
		opts.NoticeBuffer = 32
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Controller{
		fetcher: f,
		opts:    opts,
		log:     opts.Logger,
		notices: make(chan Notice, opts.NoticeBuffer),
	}
}

// Notices delivers advisory notifications. Notices are dropped when the
// buffer is full.
func (c *Controller) Notices() <-chan Notice {
	return c.notices
}

// Open starts a session for tableID. It performs the initial fetch and
// returns its *apiclient.FetchError on failure, leaving nothing running.
// On success the push subscription and the poll timer start in the
// background. An already open session is closed first.
func (c *Controller) Open(ctx context.Context, tableID int64) error {
	c.Close()

	sctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	s := &session{
		id:       id,
		tableID:  tableID,
		ctx:      sctx,
		cancel:   cancel,
		log:      c.log.With("session", id[:8], "table", tableID),
		pollDone: make(chan struct{}),
	}

	c.mu.Lock()
	c.sess = s
	c.cache.Reset()
	c.mu.Unlock()

	// The initial fetch is abandoned by either the caller or Close.
	fctx, stop := context.WithCancel(ctx)
	unlink := context.AfterFunc(sctx, stop)
	data, err := c.fetch(fctx, s)
	unlink()
	stop()
	if err != nil {
		close(s.pollDone)
		c.Close()
		return err
	}
	if !c.apply(s, func(cache *Cache) bool { cache.Replace(data); return true }) {
		close(s.pollDone)
		return ErrSessionClosed
	}
	c.notify(s, Notice{Kind: NoticeDataRefreshed, Source: SourceInitial, Title: "Loaded", Message: "Table data loaded"})
	s.log.Debug("tablesync: opened", "rows", data.RowCount(), "columns", len(data.CustomColumns))

	if c.opts.Dial != nil {
		go c.connect(s)
	}
	go c.poll(s)
	return nil
}

// Close ends the session: stops the poll timer, unsubscribes and closes the
// push channel (errors are logged, never returned) and drops the cache.
// Idempotent. Results that arrive afterwards are discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	s := c.sess
	if s == nil || s.closed {
		c.mu.Unlock()
		return
	}
	s.closed = true
	conn := s.conn
	s.conn = nil
	c.sess = nil
	c.cache.Reset()
	c.mu.Unlock()

	s.cancel()
	if conn != nil {
		if err := conn.Close(); err != nil {
			s.log.Debug("tablesync: close channel", "err", err)
		}
	}
	<-s.pollDone
	s.log.Debug("tablesync: closed")
}

// Active reports whether a session is open.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess != nil
}

// Snapshot returns a copy of the cached data and its revision. data is nil
// before the first successful fetch and after Close.
func (c *Controller) Snapshot() (data *models.TableData, rev uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Snapshot(), c.cache.Revision()
}

// Refresh refetches and applies the table data. Unlike poll ticks, a
// failure is returned to the caller.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.refetchNow(ctx, SourceManual)
}

// Invalidate marks the table-wide cache stale after a write and refetches.
func (c *Controller) Invalidate(ctx context.Context) error {
	return c.refetchNow(ctx, SourceEdit)
}

func (c *Controller) current() *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

func (c *Controller) refetchNow(ctx context.Context, src Source) error {
	s := c.current()
	if s == nil {
		return ErrNotOpen
	}
	data, err := c.fetch(ctx, s)
	if err != nil {
		return err
	}
	if !c.apply(s, func(cache *Cache) bool { cache.Replace(data); return true }) {
		return ErrSessionClosed
	}
	c.notify(s, Notice{Kind: NoticeDataRefreshed, Source: src, Title: "Success", Message: "Table data refreshed successfully"})
	return nil
}

// fetch coalesces concurrent fetches within one session, so an overlapping
// poll tick, manual refresh or invalidation shares one request. The shared
// request runs under the context of whoever started it, so a joiner stops
// waiting as soon as its own ctx or the session ends.
func (c *Controller) fetch(ctx context.Context, s *session) (*models.TableData, error) {
	key := s.id + " " + apiclient.TableDataPath(s.tableID)
	ch := c.flight.DoChan(key, func() (any, error) {
		return c.fetcher.GetTableData(ctx, s.tableID)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.ctx.Done():
		return nil, ErrSessionClosed
	}
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Shared {
		s.log.Debug("tablesync: fetch coalesced")
	}
	data, ok := res.Val.(*models.TableData)
	if !ok || data == nil {
		return nil, &apiclient.FetchError{Op: "GET " + apiclient.TableDataPath(s.tableID), Err: fmt.Errorf("empty response")}
	}
	return data, nil
}

// apply runs fn against the cache if s is still the live session. It
// reports whether fn ran.
func (c *Controller) apply(s *session, fn func(*Cache) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.closed || c.sess != s {
		s.log.Debug("tablesync: discarding result for closed session")
		return false
	}
	return fn(&c.cache)
}

func (c *Controller) notify(s *session, n Notice) {
	c.mu.Lock()
	live := !s.closed && c.sess == s
	c.mu.Unlock()
	if !live {
		return
	}
	if n.At.IsZero() {
		n.At = time.Now()
	}
	select {
	case c.notices <- n:
	default:
		s.log.Debug("tablesync: notice dropped", "kind", n.Kind)
	}
}

// refetchInBackground is the fallback when an event cannot be applied
// incrementally.
func (c *Controller) refetchInBackground(s *session, src Source) {
	go func() {
		data, err := c.fetch(s.ctx, s)
		if err != nil {
			s.log.Debug("tablesync: refetch", "source", src, "err", err)
			return
		}
		c.apply(s, func(cache *Cache) bool { cache.Replace(data); return true })
	}()
}

func (c *Controller) poll(s *session) {
	defer close(s.pollDone)
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			data, err := c.fetch(s.ctx, s)
			if err != nil {
				// Not surfaced; the next tick retries.
				s.log.Debug("tablesync: poll", "err", err)
				continue
			}
			if c.apply(s, func(cache *Cache) bool { cache.Replace(data); return true }) {
				c.notify(s, Notice{Kind: NoticeDataRefreshed, Source: SourcePoll, Title: "Data Refreshed", Message: "Latest data loaded"})
			}
		}
	}
}

func (c *Controller) connect(s *session) {
	conn, err := c.opts.Dial(s.ctx, s.tableID, &sessionHandler{c: c, s: s})
	if err != nil {
		s.log.Warn("tablesync: push channel unavailable, polling only", "err", err)
		c.notify(s, Notice{
			Kind:    NoticeChannelError,
			Source:  SourcePush,
			Title:   "Connection Error",
			Message: "Could not establish real-time connection. Falling back to polling.",
			IsError: true,
		})
		return
	}

	c.mu.Lock()
	if s.closed {
		c.mu.Unlock()
		conn.Close()
		return
	}
	s.conn = conn
	c.mu.Unlock()
}

// sessionHandler binds channel callbacks to one session.
type sessionHandler struct {
	c *Controller
	s *session
}

func (h *sessionHandler) ChannelError(err error) {
	h.s.log.Warn("tablesync: push channel lost, polling only", "err", err)
	h.c.notify(h.s, Notice{
		Kind:    NoticeChannelClosed,
		Source:  SourcePush,
		Title:   "Connection Closed",
		Message: "Real-time updates disabled, using polling instead",
	})
}

func (h *sessionHandler) HandleEvent(ev channel.Event) {
	c, s := h.c, h.s
	switch ev := ev.(type) {
	case channel.Subscribed:
		c.notify(s, Notice{Kind: NoticeConnected, Source: SourcePush, Title: "Connected", Message: "Real-time updates enabled"})

	case channel.TableUpdate:
		h.replaceOrRefetch(ev.HasSnapshot(), &models.TableData{Table: ev.Info, SheetData: ev.SheetData, CustomColumns: ev.CustomColumns})
		c.notify(s, Notice{Kind: NoticeTableUpdated, Source: SourcePush, Title: "Table Updated", Message: "New data received from Google Sheets"})

	case channel.DataRefreshed:
		h.replaceOrRefetch(ev.HasSnapshot(), &models.TableData{Table: ev.Info, SheetData: ev.SheetData, CustomColumns: ev.CustomColumns})
		c.notify(s, Notice{Kind: NoticeDataRefreshed, Source: SourcePush, Title: "Data Refreshed", Message: "Latest data from Google Sheets loaded"})

	case channel.ColumnAdded:
		applied := ev.HasSnapshot() && c.apply(s, func(cache *Cache) bool {
			return cache.AppendColumn(*ev.Column, ev.SheetData)
		})
		if !applied {
			c.refetchInBackground(s, SourcePush)
		}
		name := "new column"
		if ev.Column != nil {
			name = ev.Column.Name
		}
		c.notify(s, Notice{Kind: NoticeColumnAdded, Source: SourcePush, Title: "Column Added", Message: fmt.Sprintf("Column %q added successfully", name)})

	case channel.ColumnValueUpdated:
		applied := ev.HasSnapshot() && c.apply(s, func(cache *Cache) bool {
			return cache.ReplaceColumnsAndSheet(ev.CustomColumns, ev.SheetData)
		})
		if !applied {
			c.refetchInBackground(s, SourcePush)
		}
		c.notify(s, Notice{Kind: NoticeValueUpdated, Source: SourcePush, Title: "Value Updated", Message: "Cell value has been updated successfully"})

	default:
		s.log.Debug("tablesync: unhandled event", "kind", ev.Kind())
	}
}

func (h *sessionHandler) replaceOrRefetch(hasSnapshot bool, data *models.TableData) {
	if !hasSnapshot {
		h.c.refetchInBackground(h.s, SourcePush)
		return
	}
	h.c.apply(h.s, func(cache *Cache) bool { cache.Replace(data); return true })
}
