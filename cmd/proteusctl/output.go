package main

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

// stdoutIsTTY reports whether stdout is an interactive terminal. Timestamps
// render as relative ages on a TTY and stay machine-parsable when piped.
func stdoutIsTTY() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func displayTime(value string) string {
	if !stdoutIsTTY() {
		return value
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return value
	}
	return humanize.Time(t)
}

func displayCount(n int) string {
	return humanize.Comma(int64(n))
}

func displayBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// dirSize sums regular file sizes under root. Unreadable entries are
// skipped rather than failing the listing.
func dirSize(root string) int64 {
	var total int64
	_ = filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		total += info.Size()
		return nil
	})
	return total
}
