package cmd

import (
	"fmt"

	"github.com/marcus/sheetdash/internal/apiclient"
	"github.com/marcus/sheetdash/internal/dateparse"
	"github.com/marcus/sheetdash/internal/input"
	"github.com/marcus/sheetdash/internal/models"
	"github.com/marcus/sheetdash/internal/output"
	"github.com/marcus/sheetdash/internal/validate"
	"github.com/spf13/cobra"
)

var valuesCmd = &cobra.Command{
	Use:     "values",
	Short:   "Read and write custom cell values",
	GroupID: "tables",
	Long: `Custom cell values are addressed by column id and row index.

The row index is the position of the row in the list the dashboard showed
when the value was written, so a value follows that position rather than a
particular sheet row.`,
}

var valuesGetCmd = &cobra.Command{
	Use:   "get <column-id> <row-index>",
	Short: "Print one custom cell",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		colID, err := parseID("columnId", args[0])
		if err != nil {
			return fail(cmd, err)
		}
		row, err := parseRowIndex(args[1])
		if err != nil {
			return fail(cmd, err)
		}
		client, err := newClient()
		if err != nil {
			return fail(cmd, err)
		}

		v, err := client.GetCellValue(cmd.Context(), colID, row)
		if apiclient.IsNotFound(err) {
			v, err = &models.CellValue{ColumnID: colID, RowIndex: row}, nil
		}
		if err != nil {
			return fail(cmd, err)
		}
		if jsonOutput(cmd) {
			return output.JSON(v)
		}
		fmt.Println(v.Value)
		return nil
	},
}

var valuesSetCmd = &cobra.Command{
	Use:   "set <column-id> <row-index> <value>",
	Short: "Write one custom cell",
	Long: `Write one custom cell. Pass - as the value to read it from stdin,
or @path to read it from a file.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		colID, err := parseID("columnId", args[0])
		if err != nil {
			return fail(cmd, err)
		}
		row, err := parseRowIndex(args[1])
		if err != nil {
			return fail(cmd, err)
		}
		value, err := input.ExpandValue(args[2], cmd.InOrStdin())
		if err != nil {
			return fail(cmd, &validate.ValidationError{Field: "value", Message: err.Error()})
		}
		if isDate, _ := cmd.Flags().GetBool("date"); isDate && value != "" {
			day, err := dateparse.Normalize(value)
			if err != nil {
				return fail(cmd, &validate.ValidationError{Field: "value", Message: err.Error()})
			}
			value = day
		}

		client, err := newClient()
		if err != nil {
			return fail(cmd, err)
		}
		saved, err := client.SaveCellValue(cmd.Context(), models.CellValue{ColumnID: colID, RowIndex: row, Value: value})
		if err != nil {
			return fail(cmd, err)
		}
		if jsonOutput(cmd) {
			return output.JSON(saved)
		}
		output.Success("Value saved")
		return nil
	},
}

func init() {
	valuesGetCmd.Flags().Bool("json", false, "JSON output")
	valuesSetCmd.Flags().Bool("json", false, "JSON output")
	valuesSetCmd.Flags().Bool("date", false, "Treat the value as a date (YYYY-MM-DD, today, +3d, friday)")

	valuesCmd.AddCommand(valuesGetCmd, valuesSetCmd)
	rootCmd.AddCommand(valuesCmd)
}
