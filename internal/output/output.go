// Package output provides styled terminal output helpers (success, error,
// warning, table formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/marcus/sheetdash/internal/models"
)

var (
	// Styles
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	typeStyles   = map[models.ColumnType]lipgloss.Style{
		models.ColumnText: lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		models.ColumnDate: lipgloss.NewStyle().Foreground(lipgloss.Color("141")),
	}
)

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// JSON outputs data as JSON
func JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// Error codes for structured JSON output
const (
	ErrCodeNotFound     = "not_found"
	ErrCodeInvalidInput = "invalid_input"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeServerError  = "server_error"
	ErrCodeNetworkError = "network_error"
)

// JSONError outputs an error as JSON
func JSONError(code, message string) {
	JSONErrorWithDetails(code, message, nil)
}

// JSONErrorWithDetails outputs an error as JSON with additional context
func JSONErrorWithDetails(code, message string, details map[string]interface{}) {
	errObj := map[string]interface{}{
		"code":    code,
		"message": message,
	}
	if len(details) > 0 {
		errObj["details"] = details
	}
	result := map[string]interface{}{
		"error": errObj,
	}
	data, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(data))
}

// FormatColumnType formats a custom column type with color
func FormatColumnType(t models.ColumnType) string {
	style, ok := typeStyles[t]
	if !ok {
		return fmt.Sprintf("[%s]", t)
	}
	return style.Render(fmt.Sprintf("[%s]", t))
}

// FormatLastUpdated renders a table's last sync time, or "never".
func FormatLastUpdated(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	return humanize.Time(*t)
}

// FormatTableShort formats a table in one line
func FormatTableShort(t *models.Table) string {
	parts := []string{
		titleStyle.Render(fmt.Sprintf("#%d", t.ID)),
		t.Name,
		subtleStyle.Render("updated " + FormatLastUpdated(t.LastUpdatedAt)),
	}
	return strings.Join(parts, "  ")
}

// FormatTableLong formats a table with its sheet URL and custom columns
func FormatTableLong(t *models.Table, columns []models.CustomColumn, rows int) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(fmt.Sprintf("#%d: %s", t.ID, t.Name)))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Sheet: %s\n", t.GoogleSheetURL))
	sb.WriteString(fmt.Sprintf("Rows: %s | Last updated: %s\n", humanize.Comma(int64(rows)), FormatLastUpdated(t.LastUpdatedAt)))
	if t.CreatedAt != nil && !t.CreatedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Created: %s\n", t.CreatedAt.Local().Format("2006-01-02 15:04")))
	}

	if len(columns) > 0 {
		sb.WriteString(SectionHeader("Custom columns"))
		for _, c := range columns {
			sb.WriteString(fmt.Sprintf("  %s %s %s\n", subtleStyle.Render(fmt.Sprintf("%d", c.ID)), c.Name, FormatColumnType(c.Type)))
		}
	}

	return sb.String()
}

// FormatTimeAgo formats a time as a compact "ago" string for status bars
func FormatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}

// SectionHeader returns a formatted section header for CLI output
// e.g., "\nCUSTOM COLUMNS:\n"
func SectionHeader(title string) string {
	return fmt.Sprintf("\n%s:\n", strings.ToUpper(title))
}

// IndentString indents each line in a string by the specified number of spaces
func IndentString(s string, spaces int) string {
	if s == "" {
		return ""
	}
	indent := strings.Repeat(" ", spaces)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = indent + line
	}
	return strings.Join(lines, "\n")
}
