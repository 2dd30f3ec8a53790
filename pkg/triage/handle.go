package triage

import "strings"

// Handle is a GitHub user or team mention ("@login", "@org/team") with
// case-insensitive semantics. The original form is kept for display.
type Handle struct {
	original   string
	normalized string
}

// NewHandle builds a Handle from a login or mention, adding the leading @ when missing.
func NewHandle(name string) Handle {
	if !strings.HasPrefix(name, "@") {
		name = "@" + name
	}
	return Handle{
		original:   name,
		normalized: strings.ToLower(name),
	}
}

// Equals performs case-insensitive comparison with another Handle.
func (h Handle) Equals(other Handle) bool {
	return h.normalized == other.normalized
}

// EqualsString performs case-insensitive comparison with a mention string.
func (h Handle) EqualsString(str string) bool {
	return h.normalized == strings.ToLower(str)
}

func (h Handle) String() string {
	return h.original
}

// ContainsHandle checks if a mention in names matches target (case-insensitive).
func ContainsHandle(names []string, target Handle) bool {
	for _, name := range names {
		if target.EqualsString(name) {
			return true
		}
	}
	return false
}
