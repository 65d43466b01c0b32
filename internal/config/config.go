// Package config loads sheetdash settings and stored credentials.
// Every getter resolves env var > config.json > built-in default.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ServerConfig points at the dashboard backend.
type ServerConfig struct {
	URL        string `json:"url,omitempty"`
	ChannelURL string `json:"channel_url,omitempty"` // push channel; derived from URL when empty
}

// SyncConfig tunes the live table session.
type SyncConfig struct {
	PollInterval string `json:"poll_interval,omitempty"` // duration string, default "15s"
}

// ViewConfig tunes the table viewer.
type ViewConfig struct {
	PageSize *int `json:"page_size,omitempty"` // nil = default 10
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `json:"level,omitempty"`  // debug, info (default), warn, error
	Format string `json:"format,omitempty"` // text (default) or json
}

// Config is the global config stored at ~/.config/sheetdash/config.json.
type Config struct {
	Server ServerConfig `json:"server"`
	Sync   SyncConfig   `json:"sync"`
	View   ViewConfig   `json:"view"`
	Log    LogConfig    `json:"log"`
}

// SavedCookie is a session cookie persisted between invocations.
type SavedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AuthCredentials stores authentication state at ~/.config/sheetdash/auth.json.
type AuthCredentials struct {
	Token     string        `json:"token,omitempty"`
	UserID    int64         `json:"user_id"`
	Username  string        `json:"username"`
	ServerURL string        `json:"server_url"`
	Cookies   []SavedCookie `json:"cookies,omitempty"`
}

const (
	defaultServerURL    = "http://localhost:5000"
	defaultPollInterval = 15 * time.Second
	defaultPageSize     = 10
	channelPath         = "/ws-api"
)

// ConfigDir returns the sheetdash config directory, creating it if necessary.
// SHEETDASH_CONFIG_DIR overrides ~/.config/sheetdash.
func ConfigDir() (string, error) {
	dir := os.Getenv("SHEETDASH_CONFIG_DIR")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home dir: %w", err)
		}
		dir = filepath.Join(home, ".config", "sheetdash")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// LoadConfig reads config.json. A missing file yields an empty config.
func LoadConfig() (*Config, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config.json: %w", err)
	}
	return &cfg, nil
}

// SaveConfig writes config.json.
func SaveConfig(cfg *Config) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(dir, "config.json"), data, 0644)
}

// LoadAuth reads auth.json. Returns nil, nil when no credentials are stored.
func LoadAuth() (*AuthCredentials, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "auth.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var creds AuthCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parse auth.json: %w", err)
	}
	return &creds, nil
}

// SaveAuth writes auth.json with 0600 permissions.
func SaveAuth(creds *AuthCredentials) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(dir, "auth.json"), data, 0600)
}

// ClearAuth removes auth.json.
func ClearAuth() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(dir, "auth.json"))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// writeAtomic writes via temp file + rename in the same directory.
func writeAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// GetServerURL returns the backend base URL without a trailing slash.
// Priority: SHEETDASH_URL env > config.json > default.
func GetServerURL() string {
	if v := os.Getenv("SHEETDASH_URL"); v != "" {
		return strings.TrimRight(v, "/")
	}
	cfg, err := LoadConfig()
	if err == nil && cfg.Server.URL != "" {
		return strings.TrimRight(cfg.Server.URL, "/")
	}
	return defaultServerURL
}

// GetChannelURL returns the push channel URL.
// Priority: SHEETDASH_WS_URL env > config.json > derived from the server URL.
func GetChannelURL() (string, error) {
	if v := os.Getenv("SHEETDASH_WS_URL"); v != "" {
		return v, nil
	}
	cfg, err := LoadConfig()
	if err == nil && cfg.Server.ChannelURL != "" {
		return cfg.Server.ChannelURL, nil
	}
	return ChannelURLFor(GetServerURL())
}

// ChannelURLFor derives ws(s)://host/ws-api from an http(s) base URL.
func ChannelURLFor(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path = channelPath
	u.RawQuery = ""
	return u.String(), nil
}

// GetPollInterval returns the polling fallback interval.
// Priority: SHEETDASH_POLL_INTERVAL env > config.json sync.poll_interval > 15s
func GetPollInterval() time.Duration {
	if v := os.Getenv("SHEETDASH_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	cfg, err := LoadConfig()
	if err == nil && cfg.Sync.PollInterval != "" {
		if d, err := time.ParseDuration(cfg.Sync.PollInterval); err == nil && d > 0 {
			return d
		}
	}
	return defaultPollInterval
}

// GetPageSize returns the number of rows per viewer page.
// Priority: SHEETDASH_PAGE_SIZE env > config.json view.page_size > 10
func GetPageSize() int {
	if v := os.Getenv("SHEETDASH_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	cfg, err := LoadConfig()
	if err == nil && cfg.View.PageSize != nil && *cfg.View.PageSize > 0 {
		return *cfg.View.PageSize
	}
	return defaultPageSize
}

// GetToken returns the bearer token.
// Priority: SHEETDASH_TOKEN env > auth.json.
func GetToken() string {
	if v := os.Getenv("SHEETDASH_TOKEN"); v != "" {
		return v
	}
	creds, err := LoadAuth()
	if err == nil && creds != nil {
		return creds.Token
	}
	return ""
}

// GetLogLevel returns the configured slog level name.
// Priority: SHEETDASH_LOG_LEVEL env > config.json log.level > "info"
func GetLogLevel() string {
	if v := os.Getenv("SHEETDASH_LOG_LEVEL"); v != "" {
		return strings.ToLower(v)
	}
	cfg, err := LoadConfig()
	if err == nil && cfg.Log.Level != "" {
		return strings.ToLower(cfg.Log.Level)
	}
	return "info"
}

// GetLogFormat returns "text" or "json".
// Priority: SHEETDASH_LOG_FORMAT env > config.json log.format > "text"
func GetLogFormat() string {
	if v := os.Getenv("SHEETDASH_LOG_FORMAT"); v != "" {
		return strings.ToLower(v)
	}
	cfg, err := LoadConfig()
	if err == nil && cfg.Log.Format != "" {
		return strings.ToLower(cfg.Log.Format)
	}
	return "text"
}
