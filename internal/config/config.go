package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the ash configuration.
type Config struct {
	Shell      ShellConfig              `yaml:"shell"`
	History    HistoryConfig            `yaml:"history"`
	Completion CompletionConfig         `yaml:"completion"`
	Commands   map[string]CommandConfig `yaml:"commands"`
	Log        LogConfig                `yaml:"log"`
	CommandLog CommandLogConfig         `yaml:"commandlog"`
}

// ShellConfig holds REPL settings.
type ShellConfig struct {
	PollIntervalMs int    `yaml:"poll_interval_ms"` // Bounded wait for a key event
	PromptSymbol   string `yaml:"prompt_symbol"`    // Appended after the directory name
	Color          bool   `yaml:"color"`            // Dim suggestions and style the prompt
}

// HistoryConfig holds history store settings.
type HistoryConfig struct {
	Path           string `yaml:"path"`            // History file (empty = ~/.ash_history)
	BatchSize      int    `yaml:"batch_size"`      // Lines loaded per fetch
	Dedup          string `yaml:"dedup"`           // consecutive, none, or all
	MaxSuggestions int    `yaml:"max_suggestions"` // Inline suggestions kept per keystroke
	PickerHeight   int    `yaml:"picker_height"`   // Rows shown by the Ctrl-R picker
}

// CompletionConfig holds tab completion settings.
type CompletionConfig struct {
	Padding    int  `yaml:"padding"`     // Spaces between listing columns
	ShowHidden bool `yaml:"show_hidden"` // List dot files for an empty fragment
}

// CommandConfig describes how the parser and completer treat a command.
type CommandConfig struct {
	ExpectsPath     bool `yaml:"expects_path"`
	DirectoriesOnly bool `yaml:"directories_only"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // Log file path (empty = data dir)
}

// CommandLogConfig holds the SQLite command log settings.
type CommandLogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`   // Database path (empty = data dir)
	Redact  bool   `yaml:"redact"` // Mask tokens and passwords before writing
}

// Dedup policies accepted by history.dedup.
const (
	DedupConsecutive = "consecutive"
	DedupNone        = "none"
	DedupAll         = "all"
)

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Shell: ShellConfig{
			PollIntervalMs: 500,
			PromptSymbol:   "",
			Color:          true,
		},
		History: HistoryConfig{
			Path:           "",
			BatchSize:      10,
			Dedup:          DedupConsecutive,
			MaxSuggestions: 10,
			PickerHeight:   10,
		},
		Completion: CompletionConfig{
			Padding:    2,
			ShowHidden: true,
		},
		Commands: DefaultCommands(),
		Log: LogConfig{
			Level: "info",
		},
		CommandLog: CommandLogConfig{
			Enabled: true,
			Redact:  true,
		},
	}
}

// DefaultCommands returns the built-in command metadata table.
func DefaultCommands() map[string]CommandConfig {
	return map[string]CommandConfig{
		"cd":    {ExpectsPath: true, DirectoriesOnly: true},
		"ls":    {ExpectsPath: true},
		"cat":   {ExpectsPath: true},
		"rmdir": {ExpectsPath: true, DirectoriesOnly: true},
	}
}

// Load loads the configuration from the default path.
func Load() (*Config, error) {
	paths := DefaultPaths()
	return LoadFromFile(paths.ConfigFile())
}

// LoadFromFile loads the configuration from a specific file.
// A missing file yields the defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnvOverrides()
			return cfg, nil // Return defaults if file doesn't exist
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Save saves the configuration to the default path.
func (c *Config) Save() error {
	paths := DefaultPaths()
	return c.SaveToFile(paths.ConfigFile())
}

// SaveToFile saves the configuration to a specific file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// HistoryPath returns the effective history file path.
func (c *Config) HistoryPath() string {
	if c.History.Path != "" {
		return expandHome(c.History.Path)
	}
	return DefaultPaths().HistoryFile()
}

// LogPath returns the effective log file path.
func (c *Config) LogPath() string {
	if c.Log.File != "" {
		return expandHome(c.Log.File)
	}
	return DefaultPaths().LogFile()
}

// CommandLogPath returns the effective command log database path.
func (c *Config) CommandLogPath() string {
	if c.CommandLog.Path != "" {
		return expandHome(c.CommandLog.Path)
	}
	return DefaultPaths().DatabaseFile()
}

// Get retrieves a configuration value by dotted key (e.g., "history.dedup").
func (c *Config) Get(key string) (string, error) {
	section, field, err := splitKey(key)
	if err != nil {
		return "", err
	}

	switch section {
	case "shell":
		return c.getShellField(field)
	case "history":
		return c.getHistoryField(field)
	case "completion":
		return c.getCompletionField(field)
	case "log":
		return c.getLogField(field)
	case "commandlog":
		return c.getCommandLogField(field)
	default:
		return "", fmt.Errorf("unknown section: %s", section)
	}
}

// Set sets a configuration value by dotted key.
func (c *Config) Set(key, value string) error {
	section, field, err := splitKey(key)
	if err != nil {
		return err
	}

	switch section {
	case "shell":
		return c.setShellField(field, value)
	case "history":
		return c.setHistoryField(field, value)
	case "completion":
		return c.setCompletionField(field, value)
	case "log":
		return c.setLogField(field, value)
	case "commandlog":
		return c.setCommandLogField(field, value)
	default:
		return fmt.Errorf("unknown section: %s", section)
	}
}

func splitKey(key string) (string, string, error) {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return "", "", errors.New("key must be in format 'section.key'")
	}
	return parts[0], parts[1], nil
}

func (c *Config) getShellField(field string) (string, error) {
	switch field {
	case "poll_interval_ms":
		return strconv.Itoa(c.Shell.PollIntervalMs), nil
	case "prompt_symbol":
		return c.Shell.PromptSymbol, nil
	case "color":
		return strconv.FormatBool(c.Shell.Color), nil
	default:
		return "", fmt.Errorf("unknown field: shell.%s", field)
	}
}

func (c *Config) setShellField(field, value string) error {
	switch field {
	case "poll_interval_ms":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for poll_interval_ms: %w", err)
		}
		if v <= 0 {
			return errors.New("poll_interval_ms must be > 0")
		}
		c.Shell.PollIntervalMs = v
	case "prompt_symbol":
		c.Shell.PromptSymbol = value
	case "color":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for color: %w", err)
		}
		c.Shell.Color = v
	default:
		return fmt.Errorf("unknown field: shell.%s", field)
	}
	return nil
}

func (c *Config) getHistoryField(field string) (string, error) {
	switch field {
	case "path":
		return c.History.Path, nil
	case "batch_size":
		return strconv.Itoa(c.History.BatchSize), nil
	case "dedup":
		return c.History.Dedup, nil
	case "max_suggestions":
		return strconv.Itoa(c.History.MaxSuggestions), nil
	case "picker_height":
		return strconv.Itoa(c.History.PickerHeight), nil
	default:
		return "", fmt.Errorf("unknown field: history.%s", field)
	}
}

func (c *Config) setHistoryField(field, value string) error {
	switch field {
	case "path":
		c.History.Path = value
	case "batch_size":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for batch_size: %w", err)
		}
		if v < 1 {
			return errors.New("batch_size must be >= 1")
		}
		c.History.BatchSize = v
	case "dedup":
		if !isValidDedup(value) {
			return fmt.Errorf("invalid dedup: %s (must be consecutive, none, or all)", value)
		}
		c.History.Dedup = value
	case "max_suggestions":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_suggestions: %w", err)
		}
		if v < 0 {
			v = 0
		}
		c.History.MaxSuggestions = v
	case "picker_height":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for picker_height: %w", err)
		}
		c.History.PickerHeight = clamp(v, 3, 100)
	default:
		return fmt.Errorf("unknown field: history.%s", field)
	}
	return nil
}

func (c *Config) getCompletionField(field string) (string, error) {
	switch field {
	case "padding":
		return strconv.Itoa(c.Completion.Padding), nil
	case "show_hidden":
		return strconv.FormatBool(c.Completion.ShowHidden), nil
	default:
		return "", fmt.Errorf("unknown field: completion.%s", field)
	}
}

func (c *Config) setCompletionField(field, value string) error {
	switch field {
	case "padding":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for padding: %w", err)
		}
		if v < 1 {
			return errors.New("padding must be >= 1")
		}
		c.Completion.Padding = v
	case "show_hidden":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for show_hidden: %w", err)
		}
		c.Completion.ShowHidden = v
	default:
		return fmt.Errorf("unknown field: completion.%s", field)
	}
	return nil
}

func (c *Config) getLogField(field string) (string, error) {
	switch field {
	case "level":
		return c.Log.Level, nil
	case "file":
		return c.Log.File, nil
	default:
		return "", fmt.Errorf("unknown field: log.%s", field)
	}
}

func (c *Config) setLogField(field, value string) error {
	switch field {
	case "level":
		if !isValidLogLevel(value) {
			return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", value)
		}
		c.Log.Level = value
	case "file":
		c.Log.File = value
	default:
		return fmt.Errorf("unknown field: log.%s", field)
	}
	return nil
}

func (c *Config) getCommandLogField(field string) (string, error) {
	switch field {
	case "enabled":
		return strconv.FormatBool(c.CommandLog.Enabled), nil
	case "path":
		return c.CommandLog.Path, nil
	case "redact":
		return strconv.FormatBool(c.CommandLog.Redact), nil
	default:
		return "", fmt.Errorf("unknown field: commandlog.%s", field)
	}
}

func (c *Config) setCommandLogField(field, value string) error {
	switch field {
	case "enabled":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for enabled: %w", err)
		}
		c.CommandLog.Enabled = v
	case "path":
		c.CommandLog.Path = value
	case "redact":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for redact: %w", err)
		}
		c.CommandLog.Redact = v
	default:
		return fmt.Errorf("unknown field: commandlog.%s", field)
	}
	return nil
}

// Validate checks the configuration for errors.
// Out-of-range sizes are clamped rather than rejected.
func (c *Config) Validate() error {
	if c.Shell.PollIntervalMs <= 0 {
		return errors.New("shell.poll_interval_ms must be > 0")
	}

	if !isValidLogLevel(c.Log.Level) {
		return fmt.Errorf("log.level must be debug, info, warn, or error (got: %s)", c.Log.Level)
	}

	if !isValidDedup(c.History.Dedup) {
		return fmt.Errorf("history.dedup must be consecutive, none, or all (got: %s)", c.History.Dedup)
	}

	if c.History.BatchSize < 1 {
		c.History.BatchSize = 10
	}
	if c.History.MaxSuggestions < 0 {
		c.History.MaxSuggestions = 0
	}
	c.History.PickerHeight = clamp(c.History.PickerHeight, 3, 100)

	if c.Completion.Padding < 1 {
		c.Completion.Padding = 2
	}

	for name := range c.Commands {
		if strings.TrimSpace(name) == "" {
			return errors.New("commands: empty command name")
		}
	}

	return nil
}

// ApplyEnvOverrides applies environment variable overrides to the config.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("ASH_HISTFILE"); v != "" {
		c.History.Path = v
	}
	if v := os.Getenv("ASH_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil && b {
			c.Log.Level = "debug"
		}
	}
	if v := os.Getenv("ASH_LOG_LEVEL"); v != "" {
		if isValidLogLevel(v) {
			c.Log.Level = v
		}
	}
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		c.Shell.Color = false
	}
}

// ListKeys returns all available configuration keys.
func ListKeys() []string {
	keys := []string{
		"shell.poll_interval_ms",
		"shell.prompt_symbol",
		"shell.color",
		"history.path",
		"history.batch_size",
		"history.dedup",
		"history.max_suggestions",
		"history.picker_height",
		"completion.padding",
		"completion.show_hidden",
		"log.level",
		"log.file",
		"commandlog.enabled",
		"commandlog.path",
		"commandlog.redact",
	}
	sort.Strings(keys)
	return keys
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func isValidDedup(policy string) bool {
	switch policy {
	case DedupConsecutive, DedupNone, DedupAll:
		return true
	default:
		return false
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func expandHome(path string) string {
	if path == "~" {
		return HomeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(HomeDir(), path[2:])
	}
	return path
}
