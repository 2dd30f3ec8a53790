package triage

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	f "github.com/gentoo/pr-assign/pkg/functional"
)

const DefaultBugzillaURL = "https://bugs.gentoo.org"

var bugTags = []string{"Bug:", "Closes:"}

const signoffTag = "Signed-off-by:"

// BugMatcher recognises references to one Bugzilla instance in commit messages
type BugMatcher struct {
	long  *regexp.Regexp
	short *regexp.Regexp
}

// NewBugMatcher builds the URL grammars for the Bugzilla host of bugzillaURL
func NewBugMatcher(bugzillaURL string) (*BugMatcher, error) {
	u, err := url.Parse(bugzillaURL)
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, fmt.Errorf("bugzilla URL without host: %q", bugzillaURL)
	}
	host := regexp.QuoteMeta(u.Host)
	return &BugMatcher{
		long:  regexp.MustCompile(`^https?://` + host + `/show_bug\.cgi\?id=(\d+)(?:[&#].*)?$`),
		short: regexp.MustCompile(`^https?://` + host + `/(\d+)(?:[?#].*)?$`),
	}, nil
}

// MatchURL returns the bug id referenced by a long or short bug URL
func (m *BugMatcher) MatchURL(bugURL string) (int, bool) {
	match := m.long.FindStringSubmatch(bugURL)
	if match == nil {
		match = m.short.FindStringSubmatch(bugURL)
	}
	if match == nil {
		return 0, false
	}
	id, err := strconv.Atoi(match[1])
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Extract collects the bugs referenced by Bug: and Closes: tags of commit messages
func (m *BugMatcher) Extract(messages []string) f.Set[int] {
	bugs := f.NewSet[int]()
	for _, message := range messages {
		for _, line := range messageLines(message) {
			if !f.Any(bugTags, func(tag string) bool { return strings.HasPrefix(line, tag) }) {
				continue
			}
			_, value, _ := strings.Cut(line, ":")
			if id, ok := m.MatchURL(strings.TrimSpace(value)); ok {
				bugs.Add(id)
			}
		}
	}
	return bugs
}

// HasSignoff reports whether a commit message carries a Signed-off-by line
func HasSignoff(message string) bool {
	return f.Any(messageLines(message), func(line string) bool {
		return strings.HasPrefix(line, signoffTag)
	})
}

// MissingSignoff reports whether any commit lacks a sign-off
func MissingSignoff(messages []string) bool {
	return !f.All(messages, HasSignoff)
}

func messageLines(message string) []string {
	return strings.Split(strings.ReplaceAll(message, "\r\n", "\n"), "\n")
}
