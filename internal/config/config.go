package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/gentoo/pr-assign/pkg/triage"
	"github.com/pelletier/go-toml/v2"
)

// FileName is the policy file looked up in the configuration directory
const FileName = "pr-assign.toml"

const (
	DefaultBugLimit         = 5
	DefaultLinkedBugKeyword = "PullRequest"
)

// DefaultSecurityAssignees are the Bugzilla account ids of the security team
var DefaultSecurityAssignees = []int{2546, 23358, 25934}

type Config struct {
	AssigneeLimit       int      `toml:"assignee_limit"`
	BugLimit            int      `toml:"bug_limit"`
	ProxyMaintTeam      string   `toml:"proxy_maint_team"`
	GitHubTeam          string   `toml:"github_team"`
	MailSuffix          string   `toml:"mail_suffix"`
	BugzillaURL         string   `toml:"bugzilla_url"`
	SecurityAssignees   []int    `toml:"security_assignees"`
	SkipLabels          []string `toml:"skip_labels"`
	Ignore              []string `toml:"ignore"`
	DescribeMaintainers bool     `toml:"describe_maintainers"`
	LinkedBugKeyword    string   `toml:"linked_bug_keyword"`
}

// ConfigReader reads the policy file, either from disk or from a git ref
type ConfigReader interface {
	ReadFile(path string) ([]byte, error)
	PathExists(path string) bool
}

type fsReader struct{}

func (fsReader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (fsReader) PathExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

func Default() *Config {
	return &Config{
		AssigneeLimit:     triage.DefaultAssigneeLimit,
		BugLimit:          DefaultBugLimit,
		ProxyMaintTeam:    triage.DefaultProxyMaintTeam,
		GitHubTeam:        triage.DefaultGitHubTeam,
		MailSuffix:        triage.DefaultMailSuffix,
		BugzillaURL:       triage.DefaultBugzillaURL,
		SecurityAssignees: append([]int{}, DefaultSecurityAssignees...),
		SkipLabels:        []string{triage.LabelAssigned, triage.LabelNeedAssignment, triage.LabelDoNotMerge},
		Ignore:            []string{},
		LinkedBugKeyword:  DefaultLinkedBugKeyword,
	}
}

// ReadConfig reads pr-assign.toml from path. A nil reader reads from the filesystem.
// A missing file yields the defaults.
func ReadConfig(path string, reader ConfigReader) (*Config, error) {
	if reader == nil {
		reader = fsReader{}
	}
	if path != "" && !strings.HasSuffix(path, "/") {
		path += "/"
	}

	defaultConfig := Default()
	fileName := path + FileName
	if !reader.PathExists(fileName) {
		return defaultConfig, nil
	}
	file, err := reader.ReadFile(fileName)
	if err != nil {
		return defaultConfig, err
	}
	config := Default()
	if err := toml.Unmarshal(file, config); err != nil {
		return defaultConfig, fmt.Errorf("failed to parse %s: %w", fileName, err)
	}
	if config.AssigneeLimit <= 0 {
		config.AssigneeLimit = defaultConfig.AssigneeLimit
	}
	if config.BugLimit <= 0 {
		config.BugLimit = defaultConfig.BugLimit
	}
	if config.LinkedBugKeyword == "" {
		config.LinkedBugKeyword = defaultConfig.LinkedBugKeyword
	}
	return config, nil
}
