package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runger/ash/internal/config"
)

var configCmd = &cobra.Command{
	Use:     "config [key] [value]",
	Short:   "Get or set configuration values",
	GroupID: groupSetup,
	Long: `Get or set ash configuration values.

Without arguments, lists all configuration keys.
With one argument, shows the value of that key.
With two arguments, sets the key to the value.

Configuration is stored in ~/.config/ash/config.yaml (XDG compliant).

Keys are in the format: section.key
Sections: shell, history, completion, log, commandlog

Examples:
  ash config                          # List all keys
  ash config history.dedup            # Get history.dedup value
  ash config history.dedup all        # Never record a repeated command
  ash config commandlog.enabled false # Stop writing the command log`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	path := configPath()
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	out := cmd.OutOrStdout()
	switch len(args) {
	case 0:
		return listConfig(out, cfg, path)
	case 1:
		return getConfig(out, cfg, args[0])
	default:
		return setConfig(out, cfg, path, args[0], args[1])
	}
}

func listConfig(w io.Writer, cfg *config.Config, path string) error {
	fmt.Fprintf(w, "%sConfiguration Keys%s\n", colorBold, colorReset)
	fmt.Fprintln(w, strings.Repeat("-", 40))
	fmt.Fprintln(w)

	var failedKeys []string
	for _, key := range config.ListKeys() {
		value, err := cfg.Get(key)
		if err != nil {
			failedKeys = append(failedKeys, key)
			continue
		}

		if value == "" {
			value = colorDim + "(not set)" + colorReset
		}
		fmt.Fprintf(w, "  %s%s%s = %s\n", colorCyan, key, colorReset, value)
	}

	if len(failedKeys) > 0 {
		fmt.Fprintf(w, "\n%sWarning:%s Failed to retrieve keys: %s\n", colorYellow, colorReset, strings.Join(failedKeys, ", "))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Config file: %s\n", path)
	return nil
}

func getConfig(w io.Writer, cfg *config.Config, key string) error {
	value, err := cfg.Get(key)
	if err != nil {
		return err
	}

	if value == "" {
		fmt.Fprintf(w, "%s(not set)%s\n", colorDim, colorReset)
	} else {
		fmt.Fprintln(w, value)
	}
	return nil
}

func setConfig(w io.Writer, cfg *config.Config, path, key, value string) error {
	if err := cfg.Set(key, value); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.SaveToFile(path); err != nil {
		return err
	}

	fmt.Fprintf(w, "%s%s%s = %s\n", colorCyan, key, colorReset, value)
	fmt.Fprintf(w, "Saved to: %s\n", path)
	return nil
}
