package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/runger/ash/internal/config"
	"github.com/runger/ash/internal/logging"
	"github.com/runger/ash/internal/shell"
	"github.com/runger/ash/internal/storage"
)

// Command groups shown in help output.
const (
	groupCore  = "core"
	groupSetup = "setup"
)

var (
	cfgFile     string
	historyFile string
	debugFlag   bool
	noColorFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "ash",
	Short: "a small interactive shell",
	Long: `ash - a small interactive shell
  - pipes (|) and conditional chains (&&)
  - inline history suggestions, Ctrl-R history search
  - path completion on Tab`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runShell,
}

// Execute runs the root command
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ash: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: groupCore, Title: "Commands:"},
		&cobra.Group{ID: groupSetup, Title: "Setup:"},
	)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $XDG_CONFIG_HOME/ash/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&historyFile, "history-file", "", "history file (default ~/.ash_history)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "write debug records to the log file")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "disable colored output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(logsCmd)
}

// configPath returns the config file selected by --config or the default.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultPaths().ConfigFile()
}

// commandContext returns the context of cmd, or Background when it was
// invoked without Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFromFile(configPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if historyFile != "" {
		cfg.History.Path = historyFile
	}
	if debugFlag {
		cfg.Log.Level = "debug"
	}
	if noColorFlag {
		cfg.Shell.Color = false
		disableColors()
	}
	return cfg, nil
}

func runShell(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, closer, err := logging.OpenFile(cfg.LogPath(), cfg.Log.Level, debugFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ash: logging disabled: %v\n", err)
		logger = logging.Discard()
	} else {
		defer closer.Close()
	}

	var store storage.Store
	if cfg.CommandLog.Enabled {
		s, err := storage.NewSQLiteStore(cfg.CommandLogPath(), storage.WithLogger(logger))
		if err != nil {
			logger.Warn("command log disabled", "path", cfg.CommandLogPath(), "error", err)
		} else {
			defer s.Close()
			store = s
		}
	}

	sh, err := shell.New(shell.Options{
		Config:     cfg,
		ConfigPath: configPath(),
		Version:    Version,
		Logger:     logger,
		In:         os.Stdin,
		Out:        os.Stdout,
		Err:        os.Stderr,
		Store:      store,
	})
	if err != nil {
		return err
	}

	return sh.Run(commandContext(cmd))
}
