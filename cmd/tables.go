package cmd

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/marcus/sheetdash/internal/apiclient"
	"github.com/marcus/sheetdash/internal/models"
	"github.com/marcus/sheetdash/internal/output"
	"github.com/marcus/sheetdash/internal/validate"
	"github.com/spf13/cobra"
)

var tablesCmd = &cobra.Command{
	Use:     "tables",
	Aliases: []string{"t"},
	Short:   "Manage connected sheets",
	GroupID: "tables",
}

var tablesListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List your tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return fail(cmd, err)
		}
		tables, err := client.ListTables(cmd.Context())
		if err != nil {
			return fail(cmd, err)
		}
		if jsonOutput(cmd) {
			return output.JSON(tables)
		}
		if len(tables) == 0 {
			fmt.Println("No tables yet. Connect a sheet with `sheetdash tables create`.")
			return nil
		}
		for i := range tables {
			fmt.Println(output.FormatTableShort(&tables[i]))
		}
		return nil
	},
}

var tablesShowCmd = &cobra.Command{
	Use:   "show <table-id>",
	Short: "Show a table with its custom columns",
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
			return output.JSON(data)
		}
		t := data.Table
		if t == nil {
			t = &models.Table{ID: id}
		}
		fmt.Print(output.FormatTableLong(t, data.CustomColumns, data.RowCount()))
		return nil
	},
}

var tablesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Connect a Google Sheet as a new table",
	Example: `  sheetdash tables create --name Leads \
    --sheet-url https://docs.google.com/spreadsheets/d/abc \
    --column Status --column "Follow up:date"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		sheetURL, _ := cmd.Flags().GetString("sheet-url")
		specs := cmd.Flags().Lookup("column").Value.(*columnSpecsValue).specs

		if (name == "" || sheetURL == "" || len(specs) == 0) && interactive() {
			var firstCol string
			firstType := string(models.ColumnText)
			fields := []huh.Field{
				huh.NewInput().Title("Table name").Value(&name).
					Validate(validate.Required("name", "Table name is required")),
				huh.NewInput().Title("Google Sheet URL").Value(&sheetURL).
					Validate(validate.URL("googleSheetUrl", "Please enter a valid Google Sheet URL")),
			}
			if len(specs) == 0 {
				fields = append(fields,
					huh.NewInput().Title("First custom column").Placeholder("e.g. Status").Value(&firstCol).
						Validate(validate.Required("name", "Column name is required")),
					huh.NewSelect[string]().Title("Column type").
						Options(
							huh.NewOption("Text", string(models.ColumnText)),
							huh.NewOption("Date", string(models.ColumnDate)),
						).
						Value(&firstType),
				)
			}
			if err := huh.NewForm(huh.NewGroup(fields...).Title("Create table")).Run(); err != nil {
				return err
			}
			if len(specs) == 0 {
				specs = append(specs, apiclient.ColumnSpec{Name: firstCol, Type: models.ColumnType(firstType)})
			}
		}

		in := validate.Table{Name: name, GoogleSheetURL: sheetURL}
		for _, s := range specs {
			in.Columns = append(in.Columns, validate.Column{Name: s.Name, Type: string(s.Type)})
		}
		if err := in.Validate(); err != nil {
			return fail(cmd, err)
		}

		client, err := newClient()
		if err != nil {
			return fail(cmd, err)
		}
		t, err := client.CreateTable(cmd.Context(), apiclient.CreateTableRequest{
			Name:           name,
			GoogleSheetURL: sheetURL,
			Columns:        specs,
		})
		if err != nil {
			return fail(cmd, err)
		}
		if jsonOutput(cmd) {
			return output.JSON(t)
		}
		output.Success("CREATED #%d %s", t.ID, t.Name)
		return nil
	},
}

var tablesEditCmd = &cobra.Command{
	Use:   "edit <table-id>",
	Short: "Rename a table or point it at another sheet",
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

		in := validate.TableEdit{}
		if data.Table != nil {
			in.Name, in.GoogleSheetURL = data.Table.Name, data.Table.GoogleSheetURL
		}
		if cmd.Flags().Changed("name") {
			in.Name, _ = cmd.Flags().GetString("name")
		}
		if cmd.Flags().Changed("sheet-url") {
			in.GoogleSheetURL, _ = cmd.Flags().GetString("sheet-url")
		}
		if !cmd.Flags().Changed("name") && !cmd.Flags().Changed("sheet-url") && interactive() {
			form := huh.NewForm(huh.NewGroup(
				huh.NewInput().Title("Name").Value(&in.Name).
					Validate(validate.Required("name", "Name is required")),
				huh.NewInput().Title("Google Sheet URL").Value(&in.GoogleSheetURL).
					Validate(validate.URL("googleSheetUrl", "Must be a valid URL")),
			).Title(fmt.Sprintf("Edit table #%d", id)))
			if err := form.Run(); err != nil {
				return err
			}
		}
		if err := in.Validate(); err != nil {
			return fail(cmd, err)
		}

		t, err := client.UpdateTable(cmd.Context(), id, apiclient.UpdateTableRequest{
			Name:           in.Name,
			GoogleSheetURL: in.GoogleSheetURL,
		})
		if err != nil {
			return fail(cmd, err)
		}
		output.Success("UPDATED #%d %s", t.ID, t.Name)
		return nil
	},
}

var tablesDeleteCmd = &cobra.Command{
	Use:     "delete <table-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a table",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("tableId", args[0])
		if err != nil {
			return fail(cmd, err)
		}
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			if !interactive() {
				return fail(cmd, &validate.ValidationError{Field: "yes", Message: "refusing to delete without --yes"})
			}
			confirm := huh.NewConfirm().
				Title(fmt.Sprintf("Delete table #%d?", id)).
				Description("Custom columns and their values are removed too.").
				Value(&yes)
			if err := confirm.Run(); err != nil {
				return err
			}
			if !yes {
				return nil
			}
		}

		client, err := newClient()
		if err != nil {
			return fail(cmd, err)
		}
		if err := client.DeleteTable(cmd.Context(), id); err != nil {
			return fail(cmd, err)
		}
		fmt.Printf("DELETED #%d\n", id)
		return nil
	},
}

var tablesSyncCmd = &cobra.Command{
	Use:   "sync <table-id>",
	Short: "Ask the server to re-read the backing sheet",
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
		if err := client.SyncTable(cmd.Context(), id); err != nil {
			return fail(cmd, err)
		}
		output.Success("Sync requested for #%d", id)
		return nil
	},
}

func init() {
	tablesListCmd.Flags().Bool("json", false, "JSON output")
	tablesShowCmd.Flags().Bool("json", false, "JSON output")

	tablesCreateCmd.Flags().String("name", "", "Table name")
	tablesCreateCmd.Flags().String("sheet-url", "", "Google Sheet URL")
	tablesCreateCmd.Flags().Var(&columnSpecsValue{}, "column", "Custom column as name[:text|date] (repeatable, at least one)")
	tablesCreateCmd.Flags().Bool("json", false, "JSON output")

	tablesEditCmd.Flags().String("name", "", "New table name")
	tablesEditCmd.Flags().String("sheet-url", "", "New Google Sheet URL")

	tablesDeleteCmd.Flags().BoolP("yes", "y", false, "Skip confirmation")

	tablesCmd.AddCommand(tablesListCmd, tablesShowCmd, tablesCreateCmd, tablesEditCmd, tablesDeleteCmd, tablesSyncCmd)
	rootCmd.AddCommand(tablesCmd)
}
