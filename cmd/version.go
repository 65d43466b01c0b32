package cmd

import (
	"fmt"

	"github.com/marcus/sheetdash/internal/output"
	"github.com/marcus/sheetdash/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Print the version and check for updates",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("sheetdash %s\n", versionStr)
		if skip, _ := cmd.Flags().GetBool("no-check"); skip || version.IsDevelopmentVersion(versionStr) {
			return nil
		}
		result := version.CheckCached(cmd.Context(), versionStr)
		switch {
		case result.Error != nil:
			output.Warning("update check failed: %v", result.Error)
		case result.HasUpdate:
			output.Info("Update available: %s", result.LatestVersion)
			if c := version.UpdateCommand(result.LatestVersion); c != "" {
				output.Info("  %s", c)
			}
		default:
			output.Success("Up to date")
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().Bool("no-check", false, "Skip the update check")
	rootCmd.AddCommand(versionCmd)
}
