// Package config handles loading the todos TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/cirocosta/todos/internal/service"
)

// Config represents the config.toml file.
type Config struct {
	Server  Server  `toml:"server"`
	Storage Storage `toml:"storage"`
	Client  Client  `toml:"client"`
	Log     Log     `toml:"log"`
	UI      UI      `toml:"ui"`
}

// Server configures `todos serve`.
type Server struct {
	// Addr is the address the HTTP server listens on.
	Addr string `toml:"addr"`
	// Token, when set, is required as a bearer credential on /todos routes.
	Token string `toml:"token"`
}

// Storage selects where the server keeps todos.
type Storage struct {
	// Driver is either "memory" or "sqlite".
	Driver string `toml:"driver"`
	// Path is the sqlite database file. Ignored by the memory driver.
	Path string `toml:"path"`
}

// Client configures the commands that talk to a running server.
type Client struct {
	URL   string   `toml:"url"`
	Token string   `toml:"token"`
	Grace Duration `toml:"grace"`
	Sort  string   `toml:"sort"`
}

// Log configures structured logging.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// UI configures terminal rendering.
type UI struct {
	// Theme is "auto", "light" or "dark".
	Theme string `toml:"theme"`
}

// Duration is a time.Duration written as a string such as "1500ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"

	FormatText = "text"
	FormatJSON = "json"

	ThemeAuto  = "auto"
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Server: Server{
			Addr: ":8080",
		},
		Storage: Storage{
			Driver: DriverMemory,
			Path:   "todos.db",
		},
		Client: Client{
			URL:   "http://localhost:8080",
			Grace: Duration{1500 * time.Millisecond},
			Sort:  string(service.SortByOrder),
		},
		Log: Log{
			Level:  "info",
			Format: FormatText,
		},
		UI: UI{
			Theme: ThemeAuto,
		},
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get config directory: %w", err)
	}
	return filepath.Join(dir, "todos", "config.toml"), nil
}

// Load reads the file at path over the defaults. A missing file yields the
// defaults; keys the file doesn't define keep their default value.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	meta, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("config file %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	// an explicitly empty sort means the server default
	if meta.IsDefined("client", "sort") && strings.TrimSpace(cfg.Client.Sort) == "" {
		cfg.Client.Sort = string(service.SortByCreated)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks enumerated values and ranges.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Driver {
	case DriverMemory, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver))
	}
	if c.Storage.Driver == DriverSQLite && strings.TrimSpace(c.Storage.Path) == "" {
		errs = append(errs, errors.New("storage.path: required by the sqlite driver"))
	}

	if c.Client.Grace.Duration < 0 {
		errs = append(errs, fmt.Errorf("client.grace: must not be negative, got %s", c.Client.Grace))
	}
	if _, err := service.ParseSortOrder(c.Client.Sort); err != nil {
		errs = append(errs, fmt.Errorf("client.sort: %w", err))
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case FormatText, FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}

	switch c.UI.Theme {
	case ThemeAuto, ThemeLight, ThemeDark:
	default:
		errs = append(errs, fmt.Errorf("ui.theme: unknown theme %q", c.UI.Theme))
	}

	return errors.Join(errs...)
}

// SlogLevel parses the configured level.
func (l Log) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}
