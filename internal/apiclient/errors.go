package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common HTTP error classes.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

// FetchError is returned when a read (GET) fails, either at the network
// level or with a non-2xx status.
type FetchError struct {
	Op     string // e.g. "GET /api/tables/42/data"
	Status int    // 0 when the request never got a response
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SaveError is returned when a mutation is rejected or fails.
type SaveError struct {
	Op     string
	Status int
	Err    error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save %s: %v", e.Op, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// IsNotFound reports whether err carries a 404.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// apiError is the error body the server sends on failures.
type apiError struct {
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

// statusError maps an HTTP status and decoded body onto the sentinel errors.
func statusError(status int, apiErr *apiError) error {
	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrForbidden, apiErr.Message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Message)
	default:
		return apiErr
	}
}
