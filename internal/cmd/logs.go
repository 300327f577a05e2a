package cmd

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	logsFollow bool
	logsLines  int
)

var logsCmd = &cobra.Command{
	Use:     "logs",
	Short:   "View the diagnostic log",
	GroupID: groupSetup,
	Long: `View the ash diagnostic log file.

By default, shows the last 50 lines of the log file.
Use --follow to keep printing new records, e.g. while another
terminal runs "ash --debug".

Examples:
  ash logs              # Show last 50 lines
  ash logs -f           # Follow log output
  ash logs --lines=100  # Show last 100 lines`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 50, "Number of lines to show")
}

func runLogs(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	logFile := cfg.LogPath()
	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		fmt.Fprintf(out, "No log file found at: %s\n", logFile)
		return nil
	}

	if logsFollow {
		return followLogs(commandContext(cmd), out, logFile)
	}
	return tailLogs(out, logFile, logsLines)
}

// tailLogs writes the last n lines of filename, reading backwards in chunks.
func tailLogs(w io.Writer, filename string, n int) error {
	if n <= 0 {
		return nil
	}

	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	if stat.Size() == 0 {
		fmt.Fprintln(w, "Log file is empty.")
		return nil
	}

	const chunk = 4096
	var data []byte
	pos := stat.Size()

	// Read until data holds more than n newlines or the whole file.
	for pos > 0 && bytes.Count(data, []byte{'\n'}) <= n {
		size := int64(chunk)
		if size > pos {
			size = pos
		}
		pos -= size

		buf := make([]byte, size)
		if _, err := f.ReadAt(buf, pos); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read log file: %w", err)
		}
		data = append(buf, data...)
	}

	lines := bytes.Split(bytes.TrimSuffix(data, []byte{'\n'}), []byte{'\n'})
	if pos > 0 {
		// The first line may be partial.
		lines = lines[1:]
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}

	for _, line := range lines {
		fmt.Fprintf(w, "%s\n", line)
	}
	return nil
}

func followLogs(ctx context.Context, w io.Writer, filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}

	fmt.Fprintf(w, "Following %s (Ctrl+C to stop)...\n\n", filename)

	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			fmt.Fprint(w, line)
		}
		if err == nil {
			continue
		}
		if !errors.Is(err, io.EOF) {
			return fmt.Errorf("error reading log: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(100 * time.Millisecond):
		}
	}
}
