// Package validate checks form input before it reaches the network.
// Field checks return *ValidationError so huh inputs can show them inline.
package validate

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"

	"github.com/marcus/sheetdash/internal/models"
)

// ValidationError annotates one offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Errors collects every failing field of a form.
type Errors []*ValidationError

func (es Errors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Err returns nil for an empty set so callers can `return errs.Err()`.
func (es Errors) Err() error {
	if len(es) == 0 {
		return nil
	}
	return es
}

func (es *Errors) add(err error) {
	if err == nil {
		return
	}
	if ve, ok := err.(*ValidationError); ok {
		*es = append(*es, ve)
		return
	}
	*es = append(*es, &ValidationError{Message: err.Error()})
}

// Required rejects blank input.
func Required(field, msg string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return &ValidationError{Field: field, Message: msg}
		}
		return nil
	}
}

// MinLen rejects input shorter than n runes.
func MinLen(field string, n int, msg string) func(string) error {
	return func(s string) error {
		if len([]rune(s)) < n {
			return &ValidationError{Field: field, Message: msg}
		}
		return nil
	}
}

// URL requires an absolute http(s) URL.
func URL(field, msg string) func(string) error {
	return func(s string) error {
		u, err := url.ParseRequestURI(strings.TrimSpace(s))
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return &ValidationError{Field: field, Message: msg}
		}
		return nil
	}
}

// Email requires a bare address (no display name).
func Email(field, msg string) func(string) error {
	return func(s string) error {
		addr, err := mail.ParseAddress(s)
		if err != nil || addr.Address != s {
			return &ValidationError{Field: field, Message: msg}
		}
		return nil
	}
}

// ColumnType requires text or date.
func ColumnType(field string) func(string) error {
	return func(s string) error {
		if !models.ColumnType(s).IsValid() {
			return &ValidationError{Field: field, Message: "Type must be text or date"}
		}
		return nil
	}
}

// Column is the add-column form.
type Column struct {
	Name string
	Type string
}

// Validate checks the add-column form.
func (c Column) Validate() error {
	var errs Errors
	errs.add(Required("name", "Column name is required")(c.Name))
	errs.add(ColumnType("type")(c.Type))
	return errs.Err()
}

// Table is the create-table form.
type Table struct {
	Name           string
	GoogleSheetURL string
	Columns        []Column
}

// Validate checks the create-table form; at least one column is required.
func (t Table) Validate() error {
	var errs Errors
	errs.add(Required("name", "Table name is required")(t.Name))
	errs.add(URL("googleSheetUrl", "Please enter a valid Google Sheet URL")(t.GoogleSheetURL))
	if len(t.Columns) == 0 {
		errs.add(&ValidationError{Field: "columns", Message: "At least one column is required"})
	}
	for i, c := range t.Columns {
		if err := c.Validate(); err != nil {
			for _, ve := range err.(Errors) {
				errs.add(&ValidationError{Field: fmt.Sprintf("columns[%d].%s", i, ve.Field), Message: ve.Message})
			}
		}
	}
	return errs.Err()
}

// TableEdit is the edit-table form.
type TableEdit struct {
	Name           string
	GoogleSheetURL string
}

// Validate checks the edit-table form.
func (t TableEdit) Validate() error {
	var errs Errors
	errs.add(Required("name", "Name is required")(t.Name))
	errs.add(URL("googleSheetUrl", "Must be a valid URL")(t.GoogleSheetURL))
	return errs.Err()
}

// Login is the login form.
type Login struct {
	Username string
	Password string
}

// Validate checks the login form.
func (l Login) Validate() error {
	var errs Errors
	errs.add(Required("username", "Username is required")(l.Username))
	errs.add(Required("password", "Password is required")(l.Password))
	return errs.Err()
}

// Register is the sign-up form.
type Register struct {
	Username        string
	Password        string
	PasswordConfirm string
	Email           string
	TermsAccepted   bool
}

// Validate checks the sign-up form.
func (r Register) Validate() error {
	var errs Errors
	errs.add(MinLen("username", 3, "Username must be at least 3 characters")(r.Username))
	errs.add(MinLen("password", 8, "Password must be at least 8 characters")(r.Password))
	errs.add(Email("email", "Please enter a valid email")(r.Email))
	if r.Password != r.PasswordConfirm {
		errs.add(&ValidationError{Field: "passwordConfirm", Message: "Passwords do not match"})
	}
	if !r.TermsAccepted {
		errs.add(&ValidationError{Field: "terms", Message: "You must accept the terms and conditions"})
	}
	return errs.Err()
}
