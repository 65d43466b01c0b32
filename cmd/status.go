package cmd

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/marcus/sheetdash/internal/models"
	"github.com/marcus/sheetdash/internal/output"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// statusFetchLimit bounds concurrent table data requests.
const statusFetchLimit = 4

// tableStats summarizes one table for the dashboard overview.
type tableStats struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Rows          int        `json:"rows"`
	CustomColumns int        `json:"custom_columns"`
	LastUpdatedAt *time.Time `json:"last_updated_at,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// dashboardStats is the overview printed by status.
type dashboardStats struct {
	Tables        int          `json:"tables"`
	Rows          int          `json:"rows"`
	CustomColumns int          `json:"custom_columns"`
	LastSync      *time.Time   `json:"last_sync,omitempty"`
	PerTable      []tableStats `json:"per_table"`
}

// collectStats folds per-table results into totals. Tables that failed to
// load still count toward the table total.
func collectStats(tables []models.Table, per []tableStats) dashboardStats {
	s := dashboardStats{Tables: len(tables), PerTable: per}
	for _, t := range per {
		s.Rows += t.Rows
		s.CustomColumns += t.CustomColumns
		if t.LastUpdatedAt != nil && (s.LastSync == nil || t.LastUpdatedAt.After(*s.LastSync)) {
			s.LastSync = t.LastUpdatedAt
		}
	}
	return s
}

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show dashboard statistics across your tables",
	GroupID: "tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return fail(cmd, err)
		}
		ctx := cmd.Context()
		tables, err := client.ListTables(ctx)
		if err != nil {
			return fail(cmd, err)
		}

		per := make([]tableStats, len(tables))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(statusFetchLimit)
		for i, t := range tables {
			per[i] = tableStats{ID: t.ID, Name: t.Name, LastUpdatedAt: t.LastUpdatedAt}
			g.Go(func() error {
				data, err := client.GetTableData(gctx, t.ID)
				if err != nil {
					// Reported per table below.
					per[i].Error = err.Error()
					return nil
				}
				per[i].Rows = data.RowCount()
				per[i].CustomColumns = len(data.CustomColumns)
				if data.Table != nil && data.Table.LastUpdatedAt != nil {
					per[i].LastUpdatedAt = data.Table.LastUpdatedAt
				}
				return nil
			})
		}
		g.Wait()

		stats := collectStats(tables, per)
		if jsonOutput(cmd) {
			return output.JSON(stats)
		}

		fmt.Printf("Tables:          %d\n", stats.Tables)
		fmt.Printf("Rows:            %s\n", humanize.Comma(int64(stats.Rows)))
		fmt.Printf("Custom columns:  %d\n", stats.CustomColumns)
		fmt.Printf("Last sync:       %s\n", output.FormatLastUpdated(stats.LastSync))
		if len(per) == 0 {
			return nil
		}
		fmt.Print(output.SectionHeader("Tables"))
		for _, t := range per {
			if t.Error != "" {
				output.Warning("#%d %s: %s", t.ID, t.Name, t.Error)
				continue
			}
			fmt.Printf("  #%-4d %-30s %8s rows  %2d custom  updated %s\n",
				t.ID, t.Name, humanize.Comma(int64(t.Rows)), t.CustomColumns, output.FormatLastUpdated(t.LastUpdatedAt))
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().Bool("json", false, "JSON output")
	rootCmd.AddCommand(statusCmd)
}
