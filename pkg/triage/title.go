package triage

import (
	"regexp"
	"strings"
)

const (
	ReassignMarker = "[please reassign]"
	NoCIMarker     = "[noci]"
)

var reassignRe = regexp.MustCompile(`(?i)\s*\[please reassign\]\s*`)

// WantsReassign reports whether the title asks for a fresh triage
func WantsReassign(title string) bool {
	return strings.Contains(strings.ToLower(title), ReassignMarker)
}

// WantsNoCI reports whether the title opts out of CI
func WantsNoCI(title string) bool {
	return strings.Contains(strings.ToLower(title), NoCIMarker)
}

// StripReassign removes the reassign marker and the whitespace around it
func StripReassign(title string) string {
	return reassignRe.ReplaceAllString(title, "")
}
