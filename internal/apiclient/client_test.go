package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/marcus/sheetdash/internal/models"
)

func newTestServer(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return New(srv.URL, "")
}

func TestGetTableData(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tables/42/data", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"table": {"id": 42, "name": "Leads", "googleSheetUrl": "https://docs.google.com/x"},
			"customColumns": [{"id": 1, "tableId": 42, "name": "Owner", "type": "text"}],
			"sheetData": {"headers": ["Name", "City"], "rows": [["Alice", "NYC"]]}
		}`))
	})
	c := newTestServer(t, mux)

	data, err := c.GetTableData(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetTableData: %v", err)
	}
	if data.Table.Name != "Leads" {
		t.Errorf("table name = %q", data.Table.Name)
	}
	if len(data.CustomColumns) != 1 || data.CustomColumns[0].Type != models.ColumnText {
		t.Errorf("custom columns = %+v", data.CustomColumns)
	}
	if data.RowCount() != 1 || data.SheetData.Rows[0][1] != "NYC" {
		t.Errorf("sheet data = %+v", data.SheetData)
	}
}

func TestFetchErrorOnServerFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tables/7/data", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"sheet unreachable"}`))
	})
	c := newTestServer(t, mux)

	_, err := c.GetTableData(context.Background(), 7)
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	if fe.Status != http.StatusInternalServerError {
		t.Errorf("status = %d", fe.Status)
	}
	if fe.Op != "GET /api/tables/7/data" {
		t.Errorf("op = %q", fe.Op)
	}
}

func TestFetchErrorOnNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NewServeMux())
	srv.Close()
	c := New(srv.URL, "")

	_, err := c.ListTables(context.Background())
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T", err)
	}
	if fe.Status != 0 {
		t.Errorf("status = %d, want 0", fe.Status)
	}
}

func TestGetCellValueNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/columns/3/values/5", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"no value"}`, http.StatusNotFound)
	})
	c := newTestServer(t, mux)

	_, err := c.GetCellValue(context.Background(), 3, 5)
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSaveCellValue(t *testing.T) {
	var got map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/columns/values", func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q", ct)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"id": 11, "columnId": 3, "rowIndex": 5, "value": "done"}`))
	})
	c := newTestServer(t, mux)

	v, err := c.SaveCellValue(context.Background(), models.CellValue{ColumnID: 3, RowIndex: 5, Value: "done"})
	if err != nil {
		t.Fatalf("SaveCellValue: %v", err)
	}
	if v.ID == nil || *v.ID != 11 {
		t.Errorf("id = %v", v.ID)
	}
	if got["columnId"] != float64(3) || got["rowIndex"] != float64(5) || got["value"] != "done" {
		t.Errorf("request body = %v", got)
	}
	if _, ok := got["id"]; ok {
		t.Errorf("request body should not carry id")
	}
}

func TestSaveErrorOnReject(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/tables/1/columns", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"name taken"}`))
	})
	c := newTestServer(t, mux)

	_, err := c.AddColumn(context.Background(), 1, ColumnSpec{Name: "Owner", Type: models.ColumnText})
	var se *SaveError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SaveError, got %T", err)
	}
	if se.Status != http.StatusBadRequest {
		t.Errorf("status = %d", se.Status)
	}
}

func TestUnauthorizedSentinel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/user", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	c := newTestServer(t, mux)

	_, err := c.CurrentUser(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestLoginStoresTokenAndCookie(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "connect.sid", Value: "abc", Path: "/"})
		w.Write([]byte(`{"id": 1, "username": "alice", "token": "tok"}`))
	})
	mux.HandleFunc("GET /api/tables", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if _, err := r.Cookie("connect.sid"); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`[{"id": 1, "name": "Leads"}]`))
	})
	c := newTestServer(t, mux)

	user, err := c.Login(context.Background(), LoginRequest{Username: "alice", Password: "secret"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.Username != "alice" || c.Token != "tok" {
		t.Errorf("user = %+v token = %q", user, c.Token)
	}
	if len(c.Cookies()) != 1 {
		t.Errorf("cookies = %v", c.Cookies())
	}

	tables, err := c.ListTables(context.Background())
	if err != nil {
		t.Fatalf("ListTables: %v", err)
	}
	if len(tables) != 1 || tables[0].Name != "Leads" {
		t.Errorf("tables = %+v", tables)
	}

	h := c.AuthHeader()
	if h.Get("Authorization") != "Bearer tok" || h.Get("Cookie") != "connect.sid=abc" {
		t.Errorf("auth header = %v", h)
	}
}

func TestDeleteAndSyncTable(t *testing.T) {
	var calls []string
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/tables/9", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "delete")
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/tables/9/sync", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "sync")
	})
	c := newTestServer(t, mux)

	if err := c.SyncTable(context.Background(), 9); err != nil {
		t.Fatalf("SyncTable: %v", err)
	}
	if err := c.DeleteTable(context.Background(), 9); err != nil {
		t.Fatalf("DeleteTable: %v", err)
	}
	if len(calls) != 2 || calls[0] != "sync" || calls[1] != "delete" {
		t.Errorf("calls = %v", calls)
	}
}

func TestFetchErrorOnNon2xx(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tables/5/data", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	})
	c := newTestServer(t, mux)

	_, err := c.GetTableData(context.Background(), 5)
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError for 304, got %T: %v", err, err)
	}
	if fe.Status != http.StatusNotModified {
		t.Errorf("status = %d", fe.Status)
	}
}

func TestAuthHeaderJoinsCookies(t *testing.T) {
	c := New("http://dash.example.com", "")
	c.SetCookies([]*http.Cookie{
		{Name: "connect.sid", Value: "abc", Path: "/"},
		{Name: "theme", Value: "dark", Path: "/"},
	})

	h := c.AuthHeader()
	if got := h.Values("Cookie"); len(got) != 1 {
		t.Fatalf("Cookie headers = %q, want one", got)
	}
	if got := h.Get("Cookie"); got != "connect.sid=abc; theme=dark" {
		t.Errorf("Cookie = %q", got)
	}
	if h.Get("Authorization") != "" {
		t.Errorf("unexpected Authorization without token")
	}
}
