package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/sheetdash/internal/apiclient"
	"github.com/marcus/sheetdash/internal/channel"
	"github.com/marcus/sheetdash/internal/config"
	"github.com/marcus/sheetdash/internal/tablesync"
	"github.com/marcus/sheetdash/pkg/viewer"
	"github.com/marcus/sheetdash/pkg/viewer/keymap"
	"github.com/spf13/cobra"
)

var viewCmd = &cobra.Command{
	Use:   "view <table-id>",
	Short: "Open a live view of a table",
	Long: `Open a live-updating table view. Updates arrive over the server's push
channel; when it is unavailable the view falls back to polling.

Key bindings:
  j/k, ↑/↓       Move between rows
  h/l, ←/→       Move between custom columns
  n/p            Next/previous page (g g first, G last)
  /              Search rows
  enter, e       Edit the selected custom cell
  a              Add a custom column
  x / X          Export CSV / XLSX
  r              Refresh now
  ?              Toggle help
  q              Quit

Bindings can be overridden in keymap.json in the config directory.`,
	GroupID:     "live",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{tuiAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("tableId", args[0])
		if err != nil {
			return fail(cmd, err)
		}
		client, err := newClient()
		if err != nil {
			return fail(cmd, err)
		}

		poll, _ := cmd.Flags().GetDuration("poll")
		if !cmd.Flags().Changed("poll") {
			poll = config.GetPollInterval()
		}
		opts := tablesync.Options{PollInterval: poll, Logger: slog.Default()}
		if noLive, _ := cmd.Flags().GetBool("no-live"); !noLive {
			dial, err := channelDialer(client, slog.Default())
			if err != nil {
				return fail(cmd, err)
			}
			opts.Dial = dial
		}
		ctrl := tablesync.New(client, opts)
		defer ctrl.Close()

		dir, err := config.ConfigDir()
		if err != nil {
			return fail(cmd, err)
		}
		keys, err := keymap.Load(dir)
		if err != nil {
			slog.Warn("view: keymap overrides ignored", "path", keymap.ConfigPath(dir), "err", err)
		}

		exportDir, _ := cmd.Flags().GetString("export-dir")
		if exportDir == "" {
			if exportDir, err = os.Getwd(); err != nil {
				return fail(cmd, err)
			}
		}
		pageSize, _ := cmd.Flags().GetInt("page-size")
		if pageSize <= 0 {
			pageSize = config.GetPageSize()
		}

		model := viewer.New(viewer.Options{
			Context:   cmd.Context(),
			TableID:   id,
			Sync:      ctrl,
			Values:    client,
			Columns:   client,
			PageSize:  pageSize,
			ExportDir: exportDir,
			Keymap:    keys,
			Logger:    slog.Default(),
			Version:   versionStr,
		})

		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
		if _, err := p.Run(); err != nil && cmd.Context().Err() == nil {
			return fmt.Errorf("error running viewer: %w", err)
		}
		return nil
	},
}

// channelDialer subscribes to the push channel authenticated as client.
func channelDialer(client *apiclient.Client, logger *slog.Logger) (tablesync.Dialer, error) {
	url, err := config.GetChannelURL()
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, tableID int64, h channel.Handler) (io.Closer, error) {
		conn, err := channel.Dial(ctx, url, tableID, client.AuthHeader(), h, logger)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}, nil
}

func init() {
	viewCmd.Flags().Duration("poll", 15*time.Second, "Polling interval (default from config)")
	viewCmd.Flags().Bool("no-live", false, "Disable the push channel and rely on polling")
	viewCmd.Flags().Int("page-size", 0, "Rows per page (default from config)")
	viewCmd.Flags().String("export-dir", "", "Directory for x/X exports (default: current directory)")
	rootCmd.AddCommand(viewCmd)
}
