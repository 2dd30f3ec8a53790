package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

type mockConfigFileReader struct {
	files map[string]string
}

func (m *mockConfigFileReader) ReadFile(path string) ([]byte, error) {
	content, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	return []byte(content), nil
}

func (m *mockConfigFileReader) PathExists(path string) bool {
	_, ok := m.files[path]
	return ok
}

func TestReadConfig(t *testing.T) {
	tt := []struct {
		name          string
		configContent string
		expected      *Config
		expectedErr   bool
	}{
		{
			name:     "default config when no file exists",
			expected: Default(),
		},
		{
			name: "valid config with all fields",
			configContent: `
assignee_limit = 3
bug_limit = 10
proxy_maint_team = "@org/proxy"
github_team = "@org/github"
mail_suffix = "@example.org"
bugzilla_url = "https://bugs.example.org"
security_assignees = [1, 2]
skip_labels = ["do not merge"]
ignore = ["metadata/md5-cache/**"]
describe_maintainers = true
linked_bug_keyword = "GitHubPR"
`,
			expected: &Config{
				AssigneeLimit:       3,
				BugLimit:            10,
				ProxyMaintTeam:      "@org/proxy",
				GitHubTeam:          "@org/github",
				MailSuffix:          "@example.org",
				BugzillaURL:         "https://bugs.example.org",
				SecurityAssignees:   []int{1, 2},
				SkipLabels:          []string{"do not merge"},
				Ignore:              []string{"metadata/md5-cache/**"},
				DescribeMaintainers: true,
				LinkedBugKeyword:    "GitHubPR",
			},
		},
		{
			name: "partial config with defaults",
			configContent: `
assignee_limit = 2
ignore = ["*.md"]
`,
			expected: func() *Config {
				c := Default()
				c.AssigneeLimit = 2
				c.Ignore = []string{"*.md"}
				return c
			}(),
		},
		{
			name: "non positive limits fall back to defaults",
			configContent: `
assignee_limit = 0
bug_limit = -1
linked_bug_keyword = ""
`,
			expected: Default(),
		},
		{
			name:          "invalid toml",
			configContent: "assignee_limit = [[[",
			expectedErr:   true,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			if tc.configContent != "" {
				if err := os.WriteFile(filepath.Join(dir, FileName), []byte(tc.configContent), 0644); err != nil {
					t.Fatalf("failed to write config: %v", err)
				}
			}

			got, err := ReadConfig(dir, nil)
			if tc.expectedErr {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			assertConfig(t, got, tc.expected)
		})
	}
}

func assertConfig(t *testing.T, got *Config, expected *Config) {
	t.Helper()
	if got.AssigneeLimit != expected.AssigneeLimit {
		t.Errorf("AssigneeLimit: expected %d, got %d", expected.AssigneeLimit, got.AssigneeLimit)
	}
	if got.BugLimit != expected.BugLimit {
		t.Errorf("BugLimit: expected %d, got %d", expected.BugLimit, got.BugLimit)
	}
	if got.ProxyMaintTeam != expected.ProxyMaintTeam {
		t.Errorf("ProxyMaintTeam: expected %s, got %s", expected.ProxyMaintTeam, got.ProxyMaintTeam)
	}
	if got.GitHubTeam != expected.GitHubTeam {
		t.Errorf("GitHubTeam: expected %s, got %s", expected.GitHubTeam, got.GitHubTeam)
	}
	if got.MailSuffix != expected.MailSuffix {
		t.Errorf("MailSuffix: expected %s, got %s", expected.MailSuffix, got.MailSuffix)
	}
	if got.BugzillaURL != expected.BugzillaURL {
		t.Errorf("BugzillaURL: expected %s, got %s", expected.BugzillaURL, got.BugzillaURL)
	}
	if !slices.Equal(got.SecurityAssignees, expected.SecurityAssignees) {
		t.Errorf("SecurityAssignees: expected %v, got %v", expected.SecurityAssignees, got.SecurityAssignees)
	}
	if !slices.Equal(got.SkipLabels, expected.SkipLabels) {
		t.Errorf("SkipLabels: expected %v, got %v", expected.SkipLabels, got.SkipLabels)
	}
	if !slices.Equal(got.Ignore, expected.Ignore) {
		t.Errorf("Ignore: expected %v, got %v", expected.Ignore, got.Ignore)
	}
	if got.DescribeMaintainers != expected.DescribeMaintainers {
		t.Errorf("DescribeMaintainers: expected %v, got %v", expected.DescribeMaintainers, got.DescribeMaintainers)
	}
	if got.LinkedBugKeyword != expected.LinkedBugKeyword {
		t.Errorf("LinkedBugKeyword: expected %s, got %s", expected.LinkedBugKeyword, got.LinkedBugKeyword)
	}
}

func TestReadConfigFromGitRef(t *testing.T) {
	mockReader := &mockConfigFileReader{
		files: map[string]string{
			"test/repo/pr-assign.toml": "assignee_limit = 7\nskip_labels = []\n",
		},
	}

	config, err := ReadConfig("test/repo", mockReader)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.AssigneeLimit != 7 {
		t.Errorf("expected assignee_limit = 7, got %d", config.AssigneeLimit)
	}
	if len(config.SkipLabels) != 0 {
		t.Errorf("expected skip_labels to be cleared, got %v", config.SkipLabels)
	}
	if config.BugLimit != DefaultBugLimit {
		t.Errorf("expected default bug_limit, got %d", config.BugLimit)
	}
}

func TestReadConfigFromGitRefNotFound(t *testing.T) {
	config, err := ReadConfig("test/repo", &mockConfigFileReader{files: map[string]string{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertConfig(t, config, Default())
}

func TestReadConfigInvalidToml(t *testing.T) {
	mockReader := &mockConfigFileReader{
		files: map[string]string{
			"pr-assign.toml": "invalid toml [[[",
		},
	}

	_, err := ReadConfig("", mockReader)
	if err == nil {
		t.Fatal("expected error for invalid TOML")
	}
	if !strings.Contains(err.Error(), FileName) {
		t.Errorf("expected error to name the config file, got: %v", err)
	}
}

func TestDefaultIsolation(t *testing.T) {
	c := Default()
	c.SecurityAssignees[0] = 1
	if DefaultSecurityAssignees[0] != 2546 {
		t.Error("modifying a config must not modify the package defaults")
	}
}
