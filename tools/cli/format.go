package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
)

type OutputFormat string

const (
	FormatDefault OutputFormat = "default"
	FormatOneLine OutputFormat = "one-line"
	FormatJSON    OutputFormat = "json"
)

var allowedFormats = []string{string(FormatDefault), string(FormatOneLine), string(FormatJSON)}

func validateFormat(format string) (OutputFormat, error) {
	if !slices.Contains(allowedFormats, format) {
		return "", fmt.Errorf("invalid format %s. Must be one of %s", format, strings.Join(allowedFormats, ", "))
	}
	return OutputFormat(format), nil
}

// Classification is the printable form of a classified change set
type Classification struct {
	Areas    []string `json:"areas"`
	Packages []string `json:"packages"`
}

func (c Classification) Render(w io.Writer, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, c)
	case FormatOneLine:
		_, _ = fmt.Fprintf(w, "areas: %s\n", strings.Join(c.Areas, ", "))
		_, _ = fmt.Fprintf(w, "packages: %s\n", strings.Join(c.Packages, ", "))
	default:
		_, _ = fmt.Fprintln(w, "Areas:")
		for _, area := range c.Areas {
			_, _ = fmt.Fprintf(w, "  %s\n", area)
		}
		_, _ = fmt.Fprintln(w, "Packages:")
		for _, pkg := range c.Packages {
			_, _ = fmt.Fprintf(w, "  %s\n", pkg)
		}
	}
	return nil
}

// MaintainerListing holds the rendered maintainer group of each requested package,
// printed in request order
type MaintainerListing struct {
	Targets     []string
	Maintainers map[string][]string
}

func (l MaintainerListing) Render(w io.Writer, format OutputFormat) error {
	switch format {
	case FormatJSON:
		targetMap := make(map[string][]string, len(l.Targets))
		for _, target := range l.Targets {
			targetMap[target] = l.Maintainers[target]
		}
		return writeJSON(w, targetMap)
	case FormatOneLine:
		l.print(w, ", ", false)
	default:
		l.print(w, "\n", true)
	}
	return nil
}

func (l MaintainerListing) print(w io.Writer, sep string, blockPerTarget bool) {
	for i, target := range l.Targets {
		if i > 0 && blockPerTarget {
			_, _ = fmt.Fprintln(w)
		}
		if len(l.Targets) > 1 {
			_, _ = fmt.Fprintf(w, "%s: ", target)
			if blockPerTarget {
				_, _ = fmt.Fprintln(w)
			}
		}
		_, _ = fmt.Fprintln(w, strings.Join(l.Maintainers[target], sep))
	}
}

func writeJSON(w io.Writer, v any) error {
	jsonString, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error encoding json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(jsonString))
	return err
}
