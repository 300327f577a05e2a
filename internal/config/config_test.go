package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Shell.PollIntervalMs != 500 {
		t.Errorf("Expected poll_interval_ms=500, got %d", cfg.Shell.PollIntervalMs)
	}
	if cfg.History.BatchSize != 10 {
		t.Errorf("Expected batch_size=10, got %d", cfg.History.BatchSize)
	}
	if cfg.History.Dedup != DedupConsecutive {
		t.Errorf("Expected dedup=consecutive, got %s", cfg.History.Dedup)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Expected log level=info, got %s", cfg.Log.Level)
	}
	if !cfg.CommandLog.Enabled {
		t.Error("Expected commandlog.enabled=true")
	}
	cd, ok := cfg.Commands["cd"]
	if !ok {
		t.Fatal("Expected cd in default commands")
	}
	if !cd.ExpectsPath || !cd.DirectoriesOnly {
		t.Errorf("Expected cd to expect a directory path, got %+v", cd)
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestConfigGet(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		key      string
		expected string
	}{
		{"shell.poll_interval_ms", "500"},
		{"shell.prompt_symbol", ""},
		{"shell.color", "true"},
		{"history.path", ""},
		{"history.batch_size", "10"},
		{"history.dedup", "consecutive"},
		{"history.max_suggestions", "10"},
		{"history.picker_height", "10"},
		{"completion.padding", "2"},
		{"completion.show_hidden", "true"},
		{"log.level", "info"},
		{"log.file", ""},
		{"commandlog.enabled", "true"},
		{"commandlog.path", ""},
		{"commandlog.redact", "true"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := cfg.Get(tt.key)
			if err != nil {
				t.Errorf("Get(%q) error: %v", tt.key, err)
				return
			}
			if got != tt.expected {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.expected)
			}
		})
	}
}

func TestConfigSet(t *testing.T) {
	tests := []struct {
		key      string
		value    string
		expected string
	}{
		{"shell.poll_interval_ms", "250", "250"},
		{"shell.prompt_symbol", "$", "$"},
		{"shell.color", "false", "false"},
		{"history.path", "/tmp/hist", "/tmp/hist"},
		{"history.batch_size", "50", "50"},
		{"history.dedup", "all", "all"},
		{"history.dedup", "none", "none"},
		{"history.max_suggestions", "-3", "0"},
		{"history.picker_height", "1", "3"},
		{"history.picker_height", "500", "100"},
		{"completion.padding", "4", "4"},
		{"completion.show_hidden", "false", "false"},
		{"log.level", "debug", "debug"},
		{"log.file", "/tmp/ash.log", "/tmp/ash.log"},
		{"commandlog.enabled", "false", "false"},
		{"commandlog.path", "/tmp/c.db", "/tmp/c.db"},
		{"commandlog.redact", "false", "false"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cfg := DefaultConfig()
			if err := cfg.Set(tt.key, tt.value); err != nil {
				t.Fatalf("Set(%q, %q) error: %v", tt.key, tt.value, err)
			}
			got, err := cfg.Get(tt.key)
			if err != nil {
				t.Fatalf("Get(%q) error: %v", tt.key, err)
			}
			if got != tt.expected {
				t.Errorf("after Set(%q, %q), Get = %q, want %q", tt.key, tt.value, got, tt.expected)
			}
		})
	}
}

func TestConfigGetInvalidKey(t *testing.T) {
	cfg := DefaultConfig()

	tests := []string{
		"invalid",
		"a.b.c",
		"unknown.field",
		"shell.unknown",
		"history.unknown",
		"completion.unknown",
		"log.unknown",
		"commandlog.unknown",
	}

	for _, key := range tests {
		t.Run(key, func(t *testing.T) {
			if _, err := cfg.Get(key); err == nil {
				t.Errorf("Get(%q) expected error", key)
			}
		})
	}
}

func TestConfigSetInvalidValue(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"shell.poll_interval_ms", "abc"},
		{"shell.poll_interval_ms", "0"},
		{"shell.color", "maybe"},
		{"history.batch_size", "0"},
		{"history.batch_size", "x"},
		{"history.dedup", "sometimes"},
		{"history.picker_height", "tall"},
		{"completion.padding", "0"},
		{"completion.show_hidden", "perhaps"},
		{"log.level", "verbose"},
		{"commandlog.enabled", "yes please"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cfg := DefaultConfig()
			if err := cfg.Set(tt.key, tt.value); err == nil {
				t.Errorf("Set(%q, %q) expected error", tt.key, tt.value)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:    "bad log level",
			modify:  func(c *Config) { c.Log.Level = "loud" },
			wantErr: "log.level",
		},
		{
			name:    "bad dedup",
			modify:  func(c *Config) { c.History.Dedup = "twice" },
			wantErr: "history.dedup",
		},
		{
			name:    "zero poll interval",
			modify:  func(c *Config) { c.Shell.PollIntervalMs = 0 },
			wantErr: "poll_interval_ms",
		},
		{
			name:    "blank command name",
			modify:  func(c *Config) { c.Commands[" "] = CommandConfig{} },
			wantErr: "empty command name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateClampsSizes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.History.BatchSize = 0
	cfg.History.MaxSuggestions = -1
	cfg.History.PickerHeight = 1000
	cfg.Completion.Padding = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if cfg.History.BatchSize != 10 {
		t.Errorf("BatchSize = %d, want 10", cfg.History.BatchSize)
	}
	if cfg.History.MaxSuggestions != 0 {
		t.Errorf("MaxSuggestions = %d, want 0", cfg.History.MaxSuggestions)
	}
	if cfg.History.PickerHeight != 100 {
		t.Errorf("PickerHeight = %d, want 100", cfg.History.PickerHeight)
	}
	if cfg.Completion.Padding != 2 {
		t.Errorf("Padding = %d, want 2", cfg.Completion.Padding)
	}
}

func TestLoadFromFile_NonExistent(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.History.BatchSize != 10 {
		t.Errorf("expected defaults, got batch_size=%d", cfg.History.BatchSize)
	}
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("shell: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadFromFile_PartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `history:
  dedup: all
commands:
  pushd:
    expects_path: true
    directories_only: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.History.Dedup != DedupAll {
		t.Errorf("Dedup = %s, want all", cfg.History.Dedup)
	}
	if cfg.History.BatchSize != 10 {
		t.Errorf("BatchSize should keep default, got %d", cfg.History.BatchSize)
	}
	if !cfg.Commands["pushd"].DirectoriesOnly {
		t.Error("pushd should be directories-only")
	}
	if _, ok := cfg.Commands["cd"]; !ok {
		t.Error("cd should survive a partial commands table")
	}
}

func TestLoadFromFile_InvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: chatty\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFromFile(path)
	if err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("expected invalid config error, got %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.History.Dedup = DedupNone
	cfg.Shell.PromptSymbol = ">"
	cfg.Commands["mkdir"] = CommandConfig{ExpectsPath: true}

	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile() error: %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if loaded.History.Dedup != DedupNone {
		t.Errorf("Dedup = %s, want none", loaded.History.Dedup)
	}
	if loaded.Shell.PromptSymbol != ">" {
		t.Errorf("PromptSymbol = %q, want >", loaded.Shell.PromptSymbol)
	}
	if !loaded.Commands["mkdir"].ExpectsPath {
		t.Error("mkdir command metadata was not persisted")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("ASH_HISTFILE", "/tmp/other_history")
	t.Setenv("ASH_DEBUG", "1")
	t.Setenv("ASH_LOG_LEVEL", "")
	t.Setenv("NO_COLOR", "1")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	if cfg.History.Path != "/tmp/other_history" {
		t.Errorf("History.Path = %q", cfg.History.Path)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Shell.Color {
		t.Error("NO_COLOR should disable color")
	}
}

func TestApplyEnvOverrides_LogLevelWins(t *testing.T) {
	t.Setenv("ASH_DEBUG", "true")
	t.Setenv("ASH_LOG_LEVEL", "warn")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn", cfg.Log.Level)
	}
}

func TestHistoryPath(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.HistoryPath(); filepath.Base(got) != ".ash_history" {
		t.Errorf("default HistoryPath = %q", got)
	}

	cfg.History.Path = "~/custom_hist"
	want := filepath.Join(HomeDir(), "custom_hist")
	if got := cfg.HistoryPath(); got != want {
		t.Errorf("HistoryPath = %q, want %q", got, want)
	}
}

func TestListKeysAllGettable(t *testing.T) {
	cfg := DefaultConfig()
	for _, key := range ListKeys() {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("ListKeys returned %q but Get failed: %v", key, err)
		}
	}
}
