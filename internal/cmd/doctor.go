package cmd

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/runger/ash/internal/config"
	"github.com/runger/ash/internal/history"
	"github.com/runger/ash/internal/storage"
)

var doctorCmd = &cobra.Command{
	Use:     "doctor",
	Short:   "Check the ash installation",
	GroupID: groupSetup,
	Long: `Run diagnostic checks on your ash installation.

This command checks:
- Binary installation
- Data directory
- Configuration validity
- History file
- Command log database
- Terminal

Examples:
  ash doctor`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

type checkStatus string

const (
	statusOK    checkStatus = "ok"
	statusWarn  checkStatus = "warn"
	statusError checkStatus = "error"
)

type checkResult struct {
	name    string
	status  checkStatus
	message string
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%sash Doctor%s\n", colorBold, colorReset)
	fmt.Fprintln(out, strings.Repeat("-", 40))
	fmt.Fprintln(out)

	results := []checkResult{
		checkBinary(),
		checkDataDir(config.DefaultPaths()),
	}

	cfgResult, cfg := checkConfiguration(configPath())
	results = append(results, cfgResult)
	if cfg != nil {
		results = append(results, checkHistoryFile(cfg.HistoryPath()))
		results = append(results, checkCommandLog(cfg))
	}
	results = append(results, checkTerminal(os.Stdin.Fd()))

	if !printResults(out, results) {
		return fmt.Errorf("doctor found errors")
	}
	return nil
}

// printResults writes the report and reports whether no check failed.
func printResults(w io.Writer, results []checkResult) bool {
	hasErrors := false
	hasWarnings := false

	for _, r := range results {
		var icon string
		switch r.status {
		case statusOK:
			icon = colorGreen + "[OK]" + colorReset
		case statusWarn:
			icon = colorYellow + "[WARN]" + colorReset
			hasWarnings = true
		case statusError:
			icon = colorRed + "[ERROR]" + colorReset
			hasErrors = true
		}

		fmt.Fprintf(w, "  %s %s\n", icon, r.name)
		if r.message != "" {
			fmt.Fprintf(w, "       %s%s%s\n", colorDim, r.message, colorReset)
		}
	}

	fmt.Fprintln(w)
	switch {
	case hasErrors:
		fmt.Fprintf(w, "%sSome checks failed. Please fix the errors above.%s\n", colorRed, colorReset)
	case hasWarnings:
		fmt.Fprintf(w, "%sAll critical checks passed, but there are warnings.%s\n", colorYellow, colorReset)
	default:
		fmt.Fprintf(w, "%sAll checks passed!%s\n", colorGreen, colorReset)
	}
	return !hasErrors
}

func checkBinary() checkResult {
	path, err := exec.LookPath("ash")
	if err != nil {
		return checkResult{name: "ash binary", status: statusWarn, message: "ash not found in PATH"}
	}
	return checkResult{name: "ash binary", status: statusOK, message: path}
}

func checkDataDir(paths *config.Paths) checkResult {
	const name = "Data directory"

	info, err := os.Stat(paths.DataDir)
	switch {
	case os.IsNotExist(err):
		return checkResult{name: name, status: statusWarn,
			message: fmt.Sprintf("Missing: %s (will be created when needed)", paths.DataDir)}
	case err != nil:
		return checkResult{name: name, status: statusError, message: fmt.Sprintf("Error accessing: %v", err)}
	case !info.IsDir():
		return checkResult{name: name, status: statusError, message: fmt.Sprintf("Not a directory: %s", paths.DataDir)}
	}
	return checkResult{name: name, status: statusOK, message: paths.DataDir}
}

func checkConfiguration(path string) (checkResult, *config.Config) {
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return checkResult{name: "Configuration", status: statusError, message: fmt.Sprintf("Failed to load: %v", err)}, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return checkResult{name: "Configuration", status: statusOK, message: "Using defaults (no config file)"}, cfg
	}
	return checkResult{name: "Configuration", status: statusOK, message: path}, cfg
}

func checkHistoryFile(path string) checkResult {
	store, err := history.Open(path)
	if err != nil {
		return checkResult{name: "History file", status: statusError, message: err.Error()}
	}
	defer store.Close()

	if err := store.LoadAll(); err != nil {
		return checkResult{name: "History file", status: statusError, message: err.Error()}
	}
	return checkResult{name: "History file", status: statusOK,
		message: fmt.Sprintf("%s (%d entries)", path, store.Count())}
}

func checkCommandLog(cfg *config.Config) checkResult {
	if !cfg.CommandLog.Enabled {
		return checkResult{name: "Command log", status: statusOK, message: "Disabled"}
	}

	path := cfg.CommandLogPath()
	store, err := storage.NewSQLiteStore(path)
	if err != nil {
		return checkResult{name: "Command log", status: statusError, message: err.Error()}
	}
	store.Close()
	return checkResult{name: "Command log", status: statusOK, message: path}
}

func checkTerminal(fd uintptr) checkResult {
	if isatty.IsTerminal(fd) {
		return checkResult{name: "Terminal", status: statusOK, message: os.Getenv("TERM")}
	}
	return checkResult{name: "Terminal", status: statusWarn,
		message: "stdin is not a terminal; the interactive shell will refuse to start"}
}
