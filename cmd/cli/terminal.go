package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/yourusername/bitswitch/internal/app"
	"github.com/yourusername/bitswitch/internal/progress"
)

// terminalDisplay renders acquisition progress on a single terminal line
type terminalDisplay struct {
	mu sync.Mutex
	w  io.Writer
}

func newTerminalDisplay(w io.Writer) *terminalDisplay {
	return &terminalDisplay{w: w}
}

var _ progress.Display = (*terminalDisplay)(nil)

func (d *terminalDisplay) Render(percent int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.w, "\rLoading... %d %%", percent)
}

func (d *terminalDisplay) Complete() {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprint(d.w, "\rLoading... 100 %\n")
}

func (d *terminalDisplay) Fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.w, "\nERROR: %v\n", err)
}

// printWarning writes an advisory line
func printWarning(w io.Writer, msg string) {
	fmt.Fprintf(w, "⚠️  %s\n", msg)
}

// formatKiB renders a byte count as KiB with one decimal
func formatKiB(bytes int64) string {
	return fmt.Sprintf("%.1f KiB", float64(bytes)/1024)
}

// printVariants writes the selection table, numbered from 1
func printVariants(w io.Writer, variants []app.VariantStatus) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tBITRATE\tSIZE")
	for _, v := range variants {
		fmt.Fprintf(tw, "%d\t%s kbit/s\t%s\n", v.Index+1, v.Bitrate, formatKiB(v.Size))
	}
	tw.Flush()
	fmt.Fprintln(w, "Type a key to play, p to pause, r to resume, f <folder> to load another, q to quit.")
}

type commandKind int

const (
	cmdPlay commandKind = iota
	cmdPause
	cmdResume
	cmdFolder
	cmdQuit
)

type command struct {
	kind   commandKind
	index  int
	folder string
}

var errEmptyCommand = errors.New("empty command")

// parseCommand reads one terminal line. Variant keys are 1-based.
func parseCommand(line string) (command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return command{}, errEmptyCommand
	}

	switch line {
	case "p":
		return command{kind: cmdPause}, nil
	case "r":
		return command{kind: cmdResume}, nil
	case "q":
		return command{kind: cmdQuit}, nil
	}

	if rest, ok := strings.CutPrefix(line, "f "); ok {
		folder := strings.TrimSpace(rest)
		if folder == "" {
			return command{}, errors.New("usage: f <folder>")
		}
		return command{kind: cmdFolder, folder: folder}, nil
	}

	n, err := strconv.Atoi(line)
	if err != nil {
		return command{}, fmt.Errorf("unknown command %q", line)
	}
	return command{kind: cmdPlay, index: n - 1}, nil
}
