// Package about prints the system-information banner shown by the about
// built-in.
package about

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const unknown = "Unknown"

const art = `   __ _ ___| |__
  / _' / __| '_ \
 | (_| \__ \ | | |
  \__,_|___/_| |_|`

// Info is the data shown next to the banner art.
type Info struct {
	User   string
	Host   string
	OS     string
	Kernel string
	Uptime string
	RAM    string
	CPU    string
	Shell  string
}

// Lines returns the labelled info rows in display order.
func (i Info) Lines() []string {
	return []string{
		"User:    " + i.User,
		"Host:    " + i.Host,
		"OS:      " + i.OS,
		"Kernel:  " + i.Kernel,
		"Uptime:  " + i.Uptime,
		"RAM:     " + i.RAM,
		"CPU:     " + i.CPU,
		"Shell:   " + i.Shell,
	}
}

// Collect gathers Info from the running system.
func Collect() Info {
	return collect(os.DirFS("/"), os.Getenv)
}

// collect reads system files from root; missing values become "Unknown".
func collect(root fs.FS, getenv func(string) string) Info {
	info := Info{
		User:   orUnknown(getenv("USER")),
		Host:   orUnknown(getenv("HOSTNAME")),
		OS:     unknown,
		Kernel: unknown,
		Uptime: unknown,
		RAM:    unknown,
		CPU:    unknown,
		Shell:  "ash",
	}

	if info.Host == unknown {
		if h, err := os.Hostname(); err == nil && h != "" {
			info.Host = h
		} else if b, err := fs.ReadFile(root, "etc/hostname"); err == nil {
			info.Host = orUnknown(strings.TrimSpace(string(b)))
		}
	}

	if v, ok := findField(root, "etc/os-release", "PRETTY_NAME="); ok {
		info.OS = orUnknown(strings.Trim(v, `"`))
	}

	if b, err := fs.ReadFile(root, "proc/version"); err == nil {
		if f := strings.Fields(string(b)); len(f) > 2 {
			info.Kernel = f[2]
		}
	}

	if b, err := fs.ReadFile(root, "proc/uptime"); err == nil {
		if f := strings.Fields(string(b)); len(f) > 0 {
			if secs, err := strconv.ParseFloat(f[0], 64); err == nil {
				info.Uptime = fmt.Sprintf("%.2f hours", secs/3600)
			}
		}
	}

	if v, ok := findField(root, "proc/meminfo", "MemTotal:"); ok {
		if f := strings.Fields(v); len(f) > 0 {
			if kb, err := strconv.ParseUint(f[0], 10, 64); err == nil {
				info.RAM = fmt.Sprintf("%.2f GB", float64(kb)/(1024*1024))
			}
		}
	}

	if v, ok := findField(root, "proc/cpuinfo", "model name"); ok {
		if _, model, found := strings.Cut(v, ":"); found {
			info.CPU = orUnknown(strings.TrimSpace(model))
		}
	}

	return info
}

// findField returns the rest of the first line of name starting with prefix.
func findField(root fs.FS, name, prefix string) (string, bool) {
	f, err := root.Open(name)
	if err != nil {
		return "", false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := scanner.Text(); strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix)), true
		}
	}
	return "", false
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}

var (
	artStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true).MarginRight(5)
	infoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
)

// Render places the banner art and info side by side.
func Render(info Info) string {
	return lipgloss.JoinHorizontal(lipgloss.Top,
		artStyle.Render(art),
		infoStyle.Render(strings.Join(info.Lines(), "\n")),
	)
}

// Print writes the banner for the running system to w.
func Print(w io.Writer) error {
	_, err := fmt.Fprintln(w, Render(Collect()))
	return err
}
