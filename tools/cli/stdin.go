package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	f "github.com/gentoo/pr-assign/pkg/functional"
)

// isStdinPiped checks if stdin is being piped to the program
func isStdinPiped() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

func scanStdin() ([]string, error) {
	return scanTargets(os.Stdin)
}

// scanTargets reads one path or package per line. Blank lines and # comments are
// skipped, and repeated entries are listed once.
func scanTargets(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	lines := make([]string, 0)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading targets: %w", err)
	}
	return f.RemoveDuplicates(lines), nil
}
