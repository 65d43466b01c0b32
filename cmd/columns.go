package cmd

import (
	"fmt"
	"strings"

	"github.com/marcus/sheetdash/internal/apiclient"
	"github.com/marcus/sheetdash/internal/models"
	"github.com/marcus/sheetdash/internal/output"
	"github.com/marcus/sheetdash/internal/validate"
	"github.com/spf13/cobra"
)

var columnsCmd = &cobra.Command{
	Use:     "columns",
	Aliases: []string{"cols"},
	Short:   "Manage dashboard-only custom columns",
	GroupID: "tables",
}

var columnsListCmd = &cobra.Command{
	Use:   "list <table-id>",
	Short: "List a table's custom columns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("tableId", args[0])
		if err != nil {
			return fail(cmd, err)
		}
		client, err := newClient()
		if err != nil {
			return fail(cmd, err)
		}
		data, err := client.GetTableData(cmd.Context(), id)
		if err != nil {
			return fail(cmd, err)
		}
		if jsonOutput(cmd) {
			return output.JSON(data.CustomColumns)
		}
		if len(data.CustomColumns) == 0 {
			fmt.Println("No custom columns.")
			return nil
		}
		for _, c := range data.CustomColumns {
			fmt.Printf("%-6d %s %s\n", c.ID, c.Name, output.FormatColumnType(c.Type))
		}
		return nil
	},
}

var columnsAddCmd = &cobra.Command{
	Use:   "add <table-id>",
	Short: "Add a custom column to a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("tableId", args[0])
		if err != nil {
			return fail(cmd, err)
		}
		name, _ := cmd.Flags().GetString("name")
		typ := cmd.Flags().Lookup("type").Value.String()

		in := validate.Column{Name: strings.TrimSpace(name), Type: typ}
		if err := in.Validate(); err != nil {
			return fail(cmd, err)
		}

		client, err := newClient()
		if err != nil {
			return fail(cmd, err)
		}
		col, err := client.AddColumn(cmd.Context(), id, apiclient.ColumnSpec{Name: in.Name, Type: models.ColumnType(in.Type)})
		if err != nil {
			return fail(cmd, err)
		}
		if jsonOutput(cmd) {
			return output.JSON(col)
		}
		output.Success("ADDED column %d %q %s to #%d", col.ID, col.Name, output.FormatColumnType(col.Type), id)
		return nil
	},
}

func init() {
	columnsListCmd.Flags().Bool("json", false, "JSON output")

	colType := columnTypeValue(models.ColumnText)
	columnsAddCmd.Flags().StringP("name", "n", "", "Column name")
	columnsAddCmd.Flags().VarP(&colType, "type", "t", "Column type")
	columnsAddCmd.Flags().Bool("json", false, "JSON output")

	columnsCmd.AddCommand(columnsListCmd, columnsAddCmd)
	rootCmd.AddCommand(columnsCmd)
}
