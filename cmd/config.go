package cmd

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/marcus/sheetdash/internal/config"
	"github.com/marcus/sheetdash/internal/output"
	"github.com/marcus/sheetdash/internal/suggest"
	"github.com/marcus/sheetdash/internal/validate"
	"github.com/spf13/cobra"
)

// validConfigKeys lists the supported config keys for set/get.
var validConfigKeys = []string{
	"server.url",
	"server.channel_url",
	"sync.poll_interval",
	"view.page_size",
	"log.level",
	"log.format",
}

func isValidConfigKey(key string) bool {
	for _, k := range validConfigKeys {
		if k == key {
			return true
		}
	}
	return false
}

func unknownKey(key string) error {
	msg := fmt.Sprintf("unknown config key %q", key)
	if hints := suggest.Closest(key, validConfigKeys); len(hints) > 0 {
		msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(hints, ", "))
	} else {
		msg += fmt.Sprintf(" (valid: %s)", strings.Join(validConfigKeys, ", "))
	}
	return &validate.ValidationError{Field: "key", Message: msg}
}

// setConfigValue validates val and stores it under key.
func setConfigValue(cfg *config.Config, key, val string) error {
	switch key {
	case "server.url":
		if err := validate.URL(key, "must be a valid http(s) URL")(val); err != nil {
			return err
		}
		cfg.Server.URL = val
	case "server.channel_url":
		u, err := url.Parse(val)
		if err != nil || u.Host == "" || (u.Scheme != "ws" && u.Scheme != "wss") {
			return &validate.ValidationError{Field: key, Message: "must be a ws:// or wss:// URL"}
		}
		cfg.Server.ChannelURL = val
	case "sync.poll_interval":
		d, err := time.ParseDuration(val)
		if err != nil || d <= 0 {
			return &validate.ValidationError{Field: key, Message: fmt.Sprintf("invalid duration %q (e.g. 15s, 1m)", val)}
		}
		cfg.Sync.PollInterval = val
	case "view.page_size":
		n, err := strconv.Atoi(val)
		if err != nil || n <= 0 {
			return &validate.ValidationError{Field: key, Message: fmt.Sprintf("invalid page size %q", val)}
		}
		cfg.View.PageSize = &n
	case "log.level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "error":
			cfg.Log.Level = strings.ToLower(val)
		default:
			return &validate.ValidationError{Field: key, Message: "level must be debug, info, warn or error"}
		}
	case "log.format":
		switch strings.ToLower(val) {
		case "text", "json":
			cfg.Log.Format = strings.ToLower(val)
		default:
			return &validate.ValidationError{Field: key, Message: "format must be text or json"}
		}
	default:
		return unknownKey(key)
	}
	return nil
}

// effectiveConfigValue returns the value in use for key after env and
// defaults are applied.
func effectiveConfigValue(key string) string {
	switch key {
	case "server.url":
		return config.GetServerURL()
	case "server.channel_url":
		u, err := config.GetChannelURL()
		if err != nil {
			return "(invalid: " + err.Error() + ")"
		}
		return u
	case "sync.poll_interval":
		return config.GetPollInterval().String()
	case "view.page_size":
		return strconv.Itoa(config.GetPageSize())
	case "log.level":
		return config.GetLogLevel()
	case "log.format":
		return config.GetLogFormat()
	}
	return ""
}

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Manage sheetdash configuration",
	GroupID: "system",
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if !isValidConfigKey(key) {
			return fail(cmd, unknownKey(key))
		}
		cfg, err := config.LoadConfig()
		if err != nil {
			return fail(cmd, fmt.Errorf("load config: %w", err))
		}
		if err := setConfigValue(cfg, key, val); err != nil {
			return fail(cmd, err)
		}
		if err := config.SaveConfig(cfg); err != nil {
			return fail(cmd, fmt.Errorf("save config: %w", err))
		}
		output.Success("set %s = %s", key, val)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get the effective value of a config key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !isValidConfigKey(args[0]) {
			return fail(cmd, unknownKey(args[0]))
		}
		fmt.Println(effectiveConfigValue(args[0]))
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List effective config values",
	RunE: func(cmd *cobra.Command, args []string) error {
		if jsonOutput(cmd) {
			vals := make(map[string]string, len(validConfigKeys))
			for _, k := range validConfigKeys {
				vals[k] = effectiveConfigValue(k)
			}
			return output.JSON(vals)
		}
		for _, k := range validConfigKeys {
			fmt.Printf("%-20s %s\n", k, effectiveConfigValue(k))
		}
		return nil
	},
}

func init() {
	configListCmd.Flags().Bool("json", false, "JSON output")
	configCmd.AddCommand(configSetCmd, configGetCmd, configListCmd)
	rootCmd.AddCommand(configCmd)
}
