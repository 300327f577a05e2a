// Package config provides configuration management for ash.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Paths holds all the path configurations for ash.
type Paths struct {
	// ConfigDir is the directory for configuration files (~/.config/ash)
	ConfigDir string

	// DataDir is the directory for data files (~/.local/share/ash)
	DataDir string

	// CacheDir is the directory for cache files (~/.cache/ash)
	CacheDir string
}

// DefaultPaths returns the default paths based on XDG Base Directory spec.
// On Windows, it uses %APPDATA% instead.
func DefaultPaths() *Paths {
	home := HomeDir()

	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			localAppData = filepath.Join(home, "AppData", "Local")
		}

		return &Paths{
			ConfigDir: filepath.Join(appData, "ash"),
			DataDir:   filepath.Join(localAppData, "ash"),
			CacheDir:  filepath.Join(localAppData, "ash", "cache"),
		}
	}

	// Unix-like systems follow XDG Base Directory spec
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		configHome = filepath.Join(home, ".config")
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		dataHome = filepath.Join(home, ".local", "share")
	}

	cacheHome := os.Getenv("XDG_CACHE_HOME")
	if cacheHome == "" {
		cacheHome = filepath.Join(home, ".cache")
	}

	return &Paths{
		ConfigDir: filepath.Join(configHome, "ash"),
		DataDir:   filepath.Join(dataHome, "ash"),
		CacheDir:  filepath.Join(cacheHome, "ash"),
	}
}

// ConfigFile returns the path to the main configuration file.
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.ConfigDir, "config.yaml")
}

// DatabaseFile returns the path to the SQLite command log.
func (p *Paths) DatabaseFile() string {
	return filepath.Join(p.DataDir, "commands.db")
}

// LogDir returns the path to the log directory.
func (p *Paths) LogDir() string {
	return filepath.Join(p.DataDir, "logs")
}

// LogFile returns the path to the shell log file.
func (p *Paths) LogFile() string {
	return filepath.Join(p.LogDir(), "ash.log")
}

// HistoryFile returns the default history file (~/.ash_history).
func (p *Paths) HistoryFile() string {
	return filepath.Join(HomeDir(), ".ash_history")
}

// EnsureDirectories creates all necessary directories.
func (p *Paths) EnsureDirectories() error {
	dirs := []string{
		p.ConfigDir,
		p.DataDir,
		p.CacheDir,
		p.LogDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return nil
}

// HomeDir returns the invoking user's home directory.
// When the platform lookup fails it falls back to /home/$USER.
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return home
	}
	if runtime.GOOS == "windows" {
		return os.Getenv("USERPROFILE")
	}
	user := os.Getenv("USER")
	if user == "" {
		user = "unknown"
	}
	return filepath.Join("/home", user)
}
