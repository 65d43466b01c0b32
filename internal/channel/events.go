package channel

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/marcus/sheetdash/internal/models"
)

// Kind is the wire "type" of a push event.
type Kind string

const (
	KindSubscribed         Kind = "subscribed"
	KindTableUpdate        Kind = "tableUpdate"
	KindDataRefreshed      Kind = "dataRefreshed"
	KindColumnAdded        Kind = "columnAdded"
	KindColumnValueUpdated Kind = "columnValueUpdated"
)

// ErrUnknownEvent is returned by Decode for a type outside the protocol.
var ErrUnknownEvent = errors.New("unknown event type")

// Event is one decoded server message. The set of implementations is closed:
// Subscribed, TableUpdate, DataRefreshed, ColumnAdded, ColumnValueUpdated.
type Event interface {
	Kind() Kind
	Table() int64
	event()
}

// Subscribed confirms the subscription.
type Subscribed struct {
	TableID int64
}

// TableUpdate carries a full snapshot pushed after the sheet changed.
// SheetData or CustomColumns are nil when the server omitted them.
type TableUpdate struct {
	TableID       int64
	Info          *models.Table
	SheetData     *models.SheetData
	CustomColumns []models.CustomColumn
}

// DataRefreshed carries a full snapshot pushed after a server-side resync.
type DataRefreshed struct {
	TableID       int64
	Info          *models.Table
	SheetData     *models.SheetData
	CustomColumns []models.CustomColumn
}

// ColumnAdded announces a new custom column along with the current sheet data.
type ColumnAdded struct {
	TableID   int64
	Column    *models.CustomColumn
	SheetData *models.SheetData
}

// ColumnValueUpdated carries the column list and sheet data after a cell write.
type ColumnValueUpdated struct {
	TableID       int64
	CustomColumns []models.CustomColumn
	SheetData     *models.SheetData
}

func (e Subscribed) Kind() Kind         { return KindSubscribed }
func (e TableUpdate) Kind() Kind        { return KindTableUpdate }
func (e DataRefreshed) Kind() Kind      { return KindDataRefreshed }
func (e ColumnAdded) Kind() Kind        { return KindColumnAdded }
func (e ColumnValueUpdated) Kind() Kind { return KindColumnValueUpdated }

func (e Subscribed) Table() int64         { return e.TableID }
func (e TableUpdate) Table() int64        { return e.TableID }
func (e DataRefreshed) Table() int64      { return e.TableID }
func (e ColumnAdded) Table() int64        { return e.TableID }
func (e ColumnValueUpdated) Table() int64 { return e.TableID }

func (Subscribed) event()         {}
func (TableUpdate) event()        {}
func (DataRefreshed) event()      {}
func (ColumnAdded) event()        {}
func (ColumnValueUpdated) event() {}

// HasSnapshot reports whether the update carries both halves of the data.
func (e TableUpdate) HasSnapshot() bool {
	return e.SheetData != nil && e.CustomColumns != nil
}

// HasSnapshot reports whether the refresh carries both halves of the data.
func (e DataRefreshed) HasSnapshot() bool {
	return e.SheetData != nil && e.CustomColumns != nil
}

// HasSnapshot reports whether the event carries the column and sheet data.
func (e ColumnAdded) HasSnapshot() bool {
	return e.Column != nil && e.SheetData != nil
}

// HasSnapshot reports whether the event carries both halves of the data.
func (e ColumnValueUpdated) HasSnapshot() bool {
	return e.SheetData != nil && e.CustomColumns != nil
}

// wireMessage is the union of every server message's fields.
type wireMessage struct {
	Type          Kind                  `json:"type"`
	TableID       int64                 `json:"tableId"`
	Table         *models.Table         `json:"table"`
	SheetData     *models.SheetData     `json:"sheetData"`
	CustomColumns []models.CustomColumn `json:"customColumns"`
	Column        *models.CustomColumn  `json:"column"`
}

// Decode parses one JSON text frame into an Event.
func Decode(data []byte) (Event, error) {
	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	switch msg.Type {
	case KindSubscribed:
		return Subscribed{TableID: msg.TableID}, nil
	case KindTableUpdate:
		return TableUpdate{TableID: msg.TableID, Info: msg.Table, SheetData: msg.SheetData, CustomColumns: msg.CustomColumns}, nil
	case KindDataRefreshed:
		return DataRefreshed{TableID: msg.TableID, Info: msg.Table, SheetData: msg.SheetData, CustomColumns: msg.CustomColumns}, nil
	case KindColumnAdded:
		return ColumnAdded{TableID: msg.TableID, Column: msg.Column, SheetData: msg.SheetData}, nil
	case KindColumnValueUpdated:
		return ColumnValueUpdated{TableID: msg.TableID, CustomColumns: msg.CustomColumns, SheetData: msg.SheetData}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, msg.Type)
	}
}

// controlMessage is a client->server frame.
type controlMessage struct {
	Type    string `json:"type"`
	TableID int64  `json:"tableId"`
}
