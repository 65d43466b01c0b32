// Package apiclient is the HTTP client for the sheetdash dashboard API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/marcus/sheetdash/internal/models"
)

// Client is an HTTP client for the dashboard server. Authentication is a
// session cookie held in the jar, plus an optional bearer token for
// non-cookie flows.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// New creates a new API client with its own cookie jar.
func New(baseURL, token string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: 30 * time.Second, Jar: jar},
	}
}

// --- Request types ---

// LoginRequest is the body for POST /api/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the body for POST /api/register.
type RegisterRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
	Email           string `json:"email"`
	FirstName       string `json:"firstName,omitempty"`
	LastName        string `json:"lastName,omitempty"`
}

// ColumnSpec is a custom column definition sent on table or column creation.
type ColumnSpec struct {
	Name string            `json:"name"`
	Type models.ColumnType `json:"type"`
}

// CreateTableRequest is the body for POST /api/tables.
type CreateTableRequest struct {
	Name           string       `json:"name"`
	GoogleSheetURL string       `json:"googleSheetUrl"`
	Columns        []ColumnSpec `json:"columns"`
}

// UpdateTableRequest is the body for PATCH /api/tables/{id}.
type UpdateTableRequest struct {
	Name           string `json:"name"`
	GoogleSheetURL string `json:"googleSheetUrl"`
}

// --- Auth methods ---

// Login starts a session. The returned user may carry a bearer token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*models.User, error) {
	var user models.User
	if err := c.save(ctx, http.MethodPost, "/api/login", req, &user); err != nil {
		return nil, err
	}
	if user.Token != "" {
		c.Token = user.Token
	}
	return &user, nil
}

// Register creates an account and starts a session.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	var user models.User
	if err := c.save(ctx, http.MethodPost, "/api/register", req, &user); err != nil {
		return nil, err
	}
	if user.Token != "" {
		c.Token = user.Token
	}
	return &user, nil
}

// Logout ends the session.
func (c *Client) Logout(ctx context.Context) error {
	return c.save(ctx, http.MethodPost, "/api/logout", nil, nil)
}

// CurrentUser returns the user owning the session.
func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.fetch(ctx, "/api/user", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// --- Table methods ---

// ListTables lists the user's tables.
func (c *Client) ListTables(ctx context.Context) ([]models.Table, error) {
	var resp []models.Table
	if err := c.fetch(ctx, "/api/tables", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// CreateTable connects a sheet as a new table.
func (c *Client) CreateTable(ctx context.Context, req CreateTableRequest) (*models.Table, error) {
	var resp models.Table
	if err := c.save(ctx, http.MethodPost, "/api/tables", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateTable renames a table or points it at another sheet.
func (c *Client) UpdateTable(ctx context.Context, id int64, req UpdateTableRequest) (*models.Table, error) {
	var resp models.Table
	if err := c.save(ctx, http.MethodPatch, fmt.Sprintf("/api/tables/%d", id), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteTable removes a table.
func (c *Client) DeleteTable(ctx context.Context, id int64) error {
	return c.save(ctx, http.MethodDelete, fmt.Sprintf("/api/tables/%d", id), nil, nil)
}

// SyncTable asks the server to re-read the backing sheet.
func (c *Client) SyncTable(ctx context.Context, id int64) error {
	return c.save(ctx, http.MethodPost, fmt.Sprintf("/api/tables/%d/sync", id), nil, nil)
}

// TableDataPath is the resource path of a table's combined data. It doubles
// as the key for request coalescing.
func TableDataPath(id int64) string {
	return fmt.Sprintf("/api/tables/%d/data", id)
}

// GetTableData fetches table metadata, custom columns and sheet data.
func (c *Client) GetTableData(ctx context.Context, id int64) (*models.TableData, error) {
	var resp models.TableData
	if err := c.fetch(ctx, TableDataPath(id), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Column methods ---

// AddColumn creates a custom column on a table.
func (c *Client) AddColumn(ctx context.Context, tableID int64, spec ColumnSpec) (*models.CustomColumn, error) {
	var resp models.CustomColumn
	if err := c.save(ctx, http.MethodPost, fmt.Sprintf("/api/tables/%d/columns", tableID), spec, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetCellValue fetches one custom cell. A cell that was never written
// yields a *FetchError wrapping ErrNotFound.
func (c *Client) GetCellValue(ctx context.Context, columnID int64, rowIndex int) (*models.CellValue, error) {
	var resp models.CellValue
	if err := c.fetch(ctx, fmt.Sprintf("/api/columns/%d/values/%d", columnID, rowIndex), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SaveCellValue creates or overwrites one custom cell.
func (c *Client) SaveCellValue(ctx context.Context, v models.CellValue) (*models.CellValue, error) {
	body := struct {
		ColumnID int64  `json:"columnId"`
		RowIndex int    `json:"rowIndex"`
		Value    string `json:"value"`
	}{v.ColumnID, v.RowIndex, v.Value}
	var resp models.CellValue
	if err := c.save(ctx, http.MethodPost, "/api/columns/values", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Session cookies ---

// Cookies returns the cookies the jar holds for the server.
func (c *Client) Cookies() []*http.Cookie {
	u, err := url.Parse(c.BaseURL)
	if err != nil || c.HTTP.Jar == nil {
		return nil
	}
	return c.HTTP.Jar.Cookies(u)
}

// SetCookies seeds the jar, e.g. with a session restored from disk.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	u, err := url.Parse(c.BaseURL)
	if err != nil || c.HTTP.Jar == nil {
		return
	}
	c.HTTP.Jar.SetCookies(u, cookies)
}

// AuthHeader returns the headers a side channel (the push connection)
// should send to authenticate as this client.
func (c *Client) AuthHeader() http.Header {
	h := http.Header{}
	if c.Token != "" {
		h.Set("Authorization", "Bearer "+c.Token)
	}
	cookies := c.Cookies()
	if len(cookies) > 0 {
		pairs := make([]string, len(cookies))
		for i, ck := range cookies {
			pairs[i] = ck.String()
		}
		h.Set("Cookie", strings.Join(pairs, "; "))
	}
	return h
}

// --- HTTP helpers ---

// fetch executes a GET and wraps failures in *FetchError.
func (c *Client) fetch(ctx context.Context, path string, result any) error {
	status, err := c.doRequest(ctx, http.MethodGet, path, nil, result)
	if err != nil {
		return &FetchError{Op: "GET " + path, Status: status, Err: err}
	}
	return nil
}

// save executes a mutation and wraps failures in *SaveError.
func (c *Client) save(ctx context.Context, method, path string, body, result any) error {
	status, err := c.doRequest(ctx, method, path, body, result)
	if err != nil {
		return &SaveError{Op: method + " " + path, Status: status, Err: err}
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) (int, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &apiError{Status: resp.StatusCode}
		if json.Unmarshal(respBody, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(respBody))
		}
		return resp.StatusCode, statusError(resp.StatusCode, apiErr)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return resp.StatusCode, fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return resp.StatusCode, nil
}
