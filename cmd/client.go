package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/marcus/sheetdash/internal/apiclient"
	"github.com/marcus/sheetdash/internal/config"
	"github.com/marcus/sheetdash/internal/models"
	"github.com/marcus/sheetdash/internal/output"
	"github.com/marcus/sheetdash/internal/validate"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

// newClient builds an API client for the configured server and restores the
// saved session cookie when it belongs to that server.
func newClient() (*apiclient.Client, error) {
	c := apiclient.New(config.GetServerURL(), config.GetToken())
	creds, err := config.LoadAuth()
	if err != nil {
		return nil, fmt.Errorf("load auth: %w", err)
	}
	if creds != nil && creds.ServerURL == c.BaseURL && len(creds.Cookies) > 0 {
		cookies := make([]*http.Cookie, 0, len(creds.Cookies))
		for _, ck := range creds.Cookies {
			cookies = append(cookies, &http.Cookie{Name: ck.Name, Value: ck.Value, Path: "/"})
		}
		c.SetCookies(cookies)
	}
	return c, nil
}

// saveSession persists the client's token and cookies for later commands.
func saveSession(c *apiclient.Client, user *models.User) error {
	creds := &config.AuthCredentials{
		Token:     c.Token,
		UserID:    user.ID,
		Username:  user.Username,
		ServerURL: c.BaseURL,
	}
	for _, ck := range c.Cookies() {
		creds.Cookies = append(creds.Cookies, config.SavedCookie{Name: ck.Name, Value: ck.Value})
	}
	return config.SaveAuth(creds)
}

// reportedError marks an error that was already printed.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

func errorReported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}

// fail prints err in the command's output mode and returns it marked as
// reported so Execute does not print it again.
func fail(cmd *cobra.Command, err error) error {
	code, msg := classify(err)
	if jsonOutput(cmd) {
		output.JSONError(code, msg)
	} else {
		output.Error("%s", msg)
	}
	return reportedError{err}
}

// classify maps an error onto a structured error code and a user message.
func classify(err error) (code, msg string) {
	var verrs validate.Errors
	var verr *validate.ValidationError
	var fetchErr *apiclient.FetchError
	var saveErr *apiclient.SaveError
	switch {
	case errors.As(err, &verrs), errors.As(err, &verr):
		return output.ErrCodeInvalidInput, err.Error()
	case errors.Is(err, apiclient.ErrUnauthorized):
		return output.ErrCodeUnauthorized, "not logged in (run `sheetdash login`)"
	case errors.Is(err, apiclient.ErrForbidden):
		return output.ErrCodeUnauthorized, err.Error()
	case errors.Is(err, apiclient.ErrNotFound):
		return output.ErrCodeNotFound, err.Error()
	case errors.As(err, &fetchErr) && fetchErr.Status == 0,
		errors.As(err, &saveErr) && saveErr.Status == 0:
		return output.ErrCodeNetworkError, err.Error()
	default:
		return output.ErrCodeServerError, err.Error()
	}
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

// interactive reports whether prompts can be shown.
func interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// parseID parses a positive numeric id argument.
func parseID(field, s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &validate.ValidationError{Field: field, Message: fmt.Sprintf("invalid %s %q", field, s)}
	}
	return id, nil
}

// parseRowIndex parses a zero-based row index argument.
func parseRowIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, &validate.ValidationError{Field: "rowIndex", Message: fmt.Sprintf("invalid row index %q", s)}
	}
	return n, nil
}

// columnTypeValue is a pflag.Value accepting text or date.
type columnTypeValue models.ColumnType

var _ pflag.Value = (*columnTypeValue)(nil)

func (v *columnTypeValue) String() string { return string(*v) }

func (v *columnTypeValue) Set(s string) error {
	t, err := models.ParseColumnType(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return err
	}
	*v = columnTypeValue(t)
	return nil
}

func (v *columnTypeValue) Type() string { return "text|date" }

// columnSpecsValue collects repeated --column name[:type] flags.
type columnSpecsValue struct {
	specs []apiclient.ColumnSpec
}

var _ pflag.Value = (*columnSpecsValue)(nil)

func (v *columnSpecsValue) String() string {
	parts := make([]string, len(v.specs))
	for i, s := range v.specs {
		parts[i] = s.Name + ":" + string(s.Type)
	}
	return strings.Join(parts, ",")
}

func (v *columnSpecsValue) Set(s string) error {
	name, typ := s, string(models.ColumnText)
	if i := strings.LastIndex(s, ":"); i >= 0 {
		name, typ = s[:i], s[i+1:]
	}
	t, err := models.ParseColumnType(strings.ToLower(strings.TrimSpace(typ)))
	if err != nil {
		return err
	}
	v.specs = append(v.specs, apiclient.ColumnSpec{Name: strings.TrimSpace(name), Type: t})
	return nil
}

func (v *columnSpecsValue) Type() string { return "name[:type]" }
