// Package channel speaks the push protocol of the dashboard server: one
// websocket per open table, a subscribe frame on connect, typed update
// events inbound, and a best-effort unsubscribe on close.
//
// There is no reconnect. When the connection fails the handler is told once
// and the session relies on polling for the rest of its life.
package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// closeWriteWait bounds the best-effort unsubscribe and close frame writes.
const closeWriteWait = time.Second

// Handler receives decoded events and connection failures. Calls come from
// the connection's read goroutine, one at a time.
type Handler interface {
	HandleEvent(Event)
	ChannelError(error)
}

// Error is a failure to establish or keep the push connection.
type Error struct {
	Op  string // "dial", "subscribe" or "read"
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("channel %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Conn is one subscription for one table.
type Conn struct {
	ws      *websocket.Conn
	tableID int64
	handler Handler
	log     *slog.Logger

	writeMu    sync.Mutex // gorilla allows one concurrent writer
	dispatchMu sync.Mutex // held while a handler call is in flight
	closed     atomic.Bool
	broken     atomic.Bool
	done       chan struct{}
}

// Dial connects to url, subscribes to tableID and starts dispatching events
// to h. header carries auth (bearer token, session cookie) for the handshake.
func Dial(ctx context.Context, url string, tableID int64, header http.Header, h Handler, logger *slog.Logger) (*Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, &Error{Op: "dial", Err: err}
	}

	c := &Conn{
		ws:      ws,
		tableID: tableID,
		handler: h,
		log:     logger.With("table", tableID),
		done:    make(chan struct{}),
	}

	if err := c.send("subscribe"); err != nil {
		ws.Close()
		return nil, &Error{Op: "subscribe", Err: err}
	}
	c.log.Debug("channel: subscribed", "url", url)

	go c.readLoop()
	return c, nil
}

func (c *Conn) send(kind string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(controlMessage{Type: kind, TableID: c.tableID})
}

func (c *Conn) readLoop() {
	defer close(c.done)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.broken.Store(true)
			if c.closed.Load() {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				err = fmt.Errorf("closed by server: %w", err)
			}
			c.dispatch(func() { c.handler.ChannelError(&Error{Op: "read", Err: err}) })
			return
		}

		ev, err := Decode(data)
		if err != nil {
			if errors.Is(err, ErrUnknownEvent) {
				c.log.Debug("channel: dropping unknown event", "err", err)
			} else {
				c.log.Warn("channel: dropping malformed message", "err", err)
			}
			continue
		}
		if ev.Table() != c.tableID {
			continue
		}
		c.dispatch(func() { c.handler.HandleEvent(ev) })
	}
}

// dispatch runs fn unless Close has been called. Close waits for an
// in-flight dispatch to finish, so nothing is delivered after it returns.
func (c *Conn) dispatch(fn func()) {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()
	if c.closed.Load() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("channel: handler panic", "panic", r)
		}
	}()
	fn()
}

// Close unsubscribes (best effort), closes the socket and waits for the read
// goroutine to exit. Safe to call more than once.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.dispatchMu.Lock()
	c.dispatchMu.Unlock()

	if !c.broken.Load() {
		c.writeMu.Lock()
		deadline := time.Now().Add(closeWriteWait)
		c.ws.SetWriteDeadline(deadline)
		if err := c.ws.WriteJSON(controlMessage{Type: "unsubscribe", TableID: c.tableID}); err != nil {
			c.log.Debug("channel: unsubscribe", "err", err)
		}
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := c.ws.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
			c.log.Debug("channel: close frame", "err", err)
		}
		c.writeMu.Unlock()
	}

	err := c.ws.Close()
	<-c.done
	return err
}
