package channel

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
	errs   []error
	got    chan struct{}
}

func newRecorder() *recorder {
	return &recorder{got: make(chan struct{}, 16)}
}

func (r *recorder) HandleEvent(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	r.got <- struct{}{}
}

func (r *recorder) ChannelError(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
	r.got <- struct{}{}
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.got:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatch")
	}
}

func (r *recorder) snapshot() ([]Event, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...), append([]error(nil), r.errs...)
}

// pushServer is a websocket endpoint that records control frames and lets
// the test push frames to the client.
type pushServer struct {
	srv     *httptest.Server
	control chan controlMessage
	outbox  chan string
	header  chan http.Header
}

func newPushServer(t *testing.T) *pushServer {
	t.Helper()
	ps := &pushServer{
		control: make(chan controlMessage, 8),
		outbox:  make(chan string, 8),
		header:  make(chan http.Header, 1),
	}
	upgrader := websocket.Upgrader{}
	ps.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ps.header <- r.Header.Clone()
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		go func() {
			for frame := range ps.outbox {
				if frame == "" {
					ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"))
					return
				}
				if err := ws.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
					return
				}
			}
		}()
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			var msg controlMessage
			if json.Unmarshal(data, &msg) == nil {
				ps.control <- msg
			}
		}
	}))
	t.Cleanup(ps.srv.Close)
	return ps
}

func (ps *pushServer) url() string {
	return "ws" + strings.TrimPrefix(ps.srv.URL, "http")
}

func (ps *pushServer) expectControl(t *testing.T, typ string, tableID int64) {
	t.Helper()
	select {
	case msg := <-ps.control:
		if msg.Type != typ || msg.TableID != tableID {
			t.Fatalf("control frame = %+v, want %s/%d", msg, typ, tableID)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s frame", typ)
	}
}

func TestDialSubscribesAndDispatches(t *testing.T) {
	ps := newPushServer(t)
	rec := newRecorder()

	hdr := http.Header{}
	hdr.Set("Authorization", "Bearer tok")
	conn, err := Dial(context.Background(), ps.url(), 42, hdr, rec, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if got := (<-ps.header).Get("Authorization"); got != "Bearer tok" {
		t.Errorf("handshake auth = %q", got)
	}
	ps.expectControl(t, "subscribe", 42)

	ps.outbox <- `{"type":"subscribed","tableId":42}`
	rec.wait(t)
	ps.outbox <- `{"type":"columnAdded","tableId":42,"column":{"id":3,"tableId":42,"name":"Owner","type":"text"},"sheetData":{"headers":["A"],"rows":[["1"]]}}`
	rec.wait(t)

	events, _ := rec.snapshot()
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if _, ok := events[0].(Subscribed); !ok {
		t.Errorf("event[0] = %T", events[0])
	}
	added, ok := events[1].(ColumnAdded)
	if !ok || added.Column.Name != "Owner" || !added.HasSnapshot() {
		t.Errorf("event[1] = %+v", events[1])
	}
}

func TestBadFramesAndOtherTablesAreDropped(t *testing.T) {
	ps := newPushServer(t)
	rec := newRecorder()
	conn, err := Dial(context.Background(), ps.url(), 42, nil, rec, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	ps.expectControl(t, "subscribe", 42)

	ps.outbox <- `not json`
	ps.outbox <- `{"type":"mystery","tableId":42}`
	ps.outbox <- `{"type":"tableUpdate","tableId":7,"sheetData":{"headers":[],"rows":[]},"customColumns":[]}`
	ps.outbox <- `{"type":"dataRefreshed","tableId":42,"sheetData":{"headers":["A"],"rows":[]},"customColumns":[]}`
	rec.wait(t)

	events, errs := rec.snapshot()
	if len(errs) != 0 {
		t.Errorf("unexpected channel errors: %v", errs)
	}
	if len(events) != 1 {
		t.Fatalf("events = %+v, want only the dataRefreshed for table 42", events)
	}
	if ev, ok := events[0].(DataRefreshed); !ok || !ev.HasSnapshot() {
		t.Errorf("event = %+v", events[0])
	}
}

func TestCloseUnsubscribesAndStopsDispatch(t *testing.T) {
	ps := newPushServer(t)
	rec := newRecorder()
	conn, err := Dial(context.Background(), ps.url(), 42, nil, rec, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	ps.expectControl(t, "subscribe", 42)

	if err := conn.Close(); err != nil {
		t.Logf("close: %v", err)
	}
	ps.expectControl(t, "unsubscribe", 42)

	if err := conn.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}

	ps.outbox <- `{"type":"subscribed","tableId":42}`
	time.Sleep(50 * time.Millisecond)
	events, errs := rec.snapshot()
	if len(events) != 0 || len(errs) != 0 {
		t.Errorf("dispatch after close: events=%v errs=%v", events, errs)
	}
}

func TestServerCloseReportsChannelError(t *testing.T) {
	ps := newPushServer(t)
	rec := newRecorder()
	conn, err := Dial(context.Background(), ps.url(), 42, nil, rec, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	ps.expectControl(t, "subscribe", 42)

	ps.outbox <- ""
	rec.wait(t)

	_, errs := rec.snapshot()
	if len(errs) != 1 {
		t.Fatalf("errs = %v", errs)
	}
	var ce *Error
	if !errors.As(errs[0], &ce) || ce.Op != "read" {
		t.Errorf("err = %v", errs[0])
	}
}

func TestDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	_, err := Dial(context.Background(), url, 1, nil, newRecorder(), nil)
	var ce *Error
	if !errors.As(err, &ce) || ce.Op != "dial" {
		t.Fatalf("err = %v", err)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		in       string
		kind     Kind
		snapshot bool
		wantErr  bool
	}{
		{`{"type":"tableUpdate","tableId":1}`, KindTableUpdate, false, false},
		{`{"type":"tableUpdate","tableId":1,"sheetData":{"headers":[],"rows":[]},"customColumns":[]}`, KindTableUpdate, true, false},
		{`{"type":"columnValueUpdated","tableId":1,"sheetData":{"headers":[],"rows":[]},"customColumns":[{"id":1}]}`, KindColumnValueUpdated, true, false},
		{`{"type":"columnAdded","tableId":1,"sheetData":{"headers":[],"rows":[]}}`, KindColumnAdded, false, false},
		{`{"type":"nope"}`, "", false, true},
		{`{`, "", false, true},
	}
	for _, tt := range tests {
		ev, err := Decode([]byte(tt.in))
		if (err != nil) != tt.wantErr {
			t.Errorf("Decode(%s) err = %v", tt.in, err)
			continue
		}
		if err != nil {
			continue
		}
		if ev.Kind() != tt.kind {
			t.Errorf("Decode(%s) kind = %s", tt.in, ev.Kind())
		}
		type snap interface{ HasSnapshot() bool }
		if s, ok := ev.(snap); ok && s.HasSnapshot() != tt.snapshot {
			t.Errorf("Decode(%s) HasSnapshot = %v", tt.in, s.HasSnapshot())
		}
	}
}
