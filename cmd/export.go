package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/marcus/sheetdash/internal/export"
	"github.com/marcus/sheetdash/internal/output"
	"github.com/marcus/sheetdash/internal/validate"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <table-id>",
	Short: "Export a table as CSV or XLSX",
	Long: `Export sheet columns followed by custom columns. Custom headers are
suffixed with "(Added)". Custom cell values are left empty.

Use -o - to write to stdout.`,
	GroupID: "tables",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("tableId", args[0])
		if err != nil {
			return fail(cmd, err)
		}
		formatStr, _ := cmd.Flags().GetString("format")
		format, err := export.ParseFormat(formatStr)
		if err != nil {
			return fail(cmd, &validate.ValidationError{Field: "format", Message: err.Error()})
		}
		search, _ := cmd.Flags().GetString("search")
		path, _ := cmd.Flags().GetString("output")

		client, err := newClient()
		if err != nil {
			return fail(cmd, err)
		}
		data, err := client.GetTableData(cmd.Context(), id)
		if err != nil {
			return fail(cmd, err)
		}

		var buf bytes.Buffer
		if err := export.Write(&buf, format, data, search); err != nil {
			return fail(cmd, err)
		}

		if path == "-" {
			_, err := os.Stdout.Write(buf.Bytes())
			return err
		}
		if path == "" {
			path = export.FileName(data.Table, format)
		}
		if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return fail(cmd, fmt.Errorf("write %s: %w", path, err))
		}
		abs, _ := filepath.Abs(path)
		output.Success("Exported %d rows to %s", len(export.Records(data, search)), abs)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("format", "f", string(export.CSV), "Output format: csv or xlsx")
	exportCmd.Flags().StringP("output", "o", "", "Output file (default derived from the table name)")
	exportCmd.Flags().StringP("search", "s", "", "Only export rows matching this search")
	rootCmd.AddCommand(exportCmd)
}
