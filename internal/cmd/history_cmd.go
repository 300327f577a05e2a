package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runger/ash/internal/history"
)

var (
	historyLimit      int
	historyImportFrom string
	historyImportFile string
)

var historyCmd = &cobra.Command{
	Use:     "history [prefix]",
	Short:   "Show the shell history",
	GroupID: groupCore,
	Long: `Show entries from the ash history file.

Without arguments, shows the most recent entries.
With a prefix argument, shows only entries starting with it.

Examples:
  ash history                 # Show last 20 entries
  ash history -n 100          # Show last 100 entries
  ash history git             # Show entries starting with "git"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

var historyImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import history from bash, zsh or fish",
	Long: `Append the history of another shell to the ash history file.

Repeated entries are filtered with the configured dedup policy.
Multi-line entries are skipped.

Examples:
  ash history import                      # Detect the shell from $SHELL
  ash history import --shell zsh
  ash history import --shell bash --file ~/old_bash_history`,
	Args: cobra.NoArgs,
	RunE: runHistoryImport,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of entries to show (0 for all)")

	historyImportCmd.Flags().StringVar(&historyImportFrom, "shell", "auto", "Shell to import from: auto, bash, zsh, fish")
	historyImportCmd.Flags().StringVar(&historyImportFile, "file", "", "History file to read (default: the shell's own)")
	historyCmd.AddCommand(historyImportCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.LoadAll(); err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	prefix := ""
	if len(args) > 0 {
		prefix = args[0]
	}

	out := cmd.OutOrStdout()
	if n := printHistory(out, store.Entries(), prefix, historyLimit); n == 0 {
		if prefix != "" {
			fmt.Fprintf(out, "No history entries starting with '%s'\n", prefix)
		} else {
			fmt.Fprintln(out, "No history yet.")
		}
	}
	return nil
}

// printHistory writes the last limit entries starting with prefix, each
// numbered by its position in the whole file. It returns how many were
// written.
func printHistory(w io.Writer, entries []string, prefix string, limit int) int {
	type numbered struct {
		n    int
		line string
	}

	var matches []numbered
	for i, e := range entries {
		if strings.HasPrefix(e, prefix) {
			matches = append(matches, numbered{i + 1, e})
		}
	}
	if limit > 0 && len(matches) > limit {
		matches = matches[len(matches)-limit:]
	}

	for _, m := range matches {
		fmt.Fprintf(w, "%5d  %s\n", m.n, m.line)
	}
	return len(matches)
}

func runHistoryImport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	shellName := historyImportFrom
	if shellName == "auto" {
		shellName = history.DetectShell()
		if shellName == "" {
			return fmt.Errorf("cannot detect shell from $SHELL, use --shell")
		}
	}

	cmds, err := history.ReadForeign(shellName, historyImportFile)
	if err != nil {
		return fmt.Errorf("failed to read %s history: %w", shellName, err)
	}

	store, err := history.Open(cfg.HistoryPath(), history.WithDedup(history.Dedup(cfg.History.Dedup)))
	if err != nil {
		return err
	}
	// Dedup against everything already on disk, not just the last batch.
	if err := store.LoadAll(); err != nil {
		store.Close()
		return fmt.Errorf("failed to read history: %w", err)
	}

	n := store.Import(cmds)
	if err := store.Close(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %s%d%s of %d %s entries into %s\n",
		colorBold, n, colorReset, len(cmds), shellName, cfg.HistoryPath())
	return nil
}
