package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	f "github.com/gentoo/pr-assign/pkg/functional"
	"github.com/gentoo/pr-assign/pkg/triage"
)

func setupTestRepo(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()

	files := map[string]string{
		"profiles/categories":  "app-foo\ndev-lang\n",
		"app-foo/metadata.xml": `<catmetadata></catmetadata>`,
		"app-foo/bar/metadata.xml": `<pkgmetadata>
	<maintainer type="person">
		<email>alice@gentoo.org</email>
		<name>Alice</name>
		<description>Primary maintainer</description>
	</maintainer>
</pkgmetadata>`,
		"app-foo/bar/bar-1.0.ebuild":  "EAPI=8",
		"app-foo/orphan/metadata.xml": `<pkgmetadata></pkgmetadata>`,
		"dev-lang/py/metadata.xml": `<pkgmetadata>
	<maintainer type="project">
		<email>python@gentoo.org</email>
	</maintainer>
	<maintainer type="person">
		<email>jane@example.com</email>
	</maintainer>
</pkgmetadata>`,
		"dev-lang/broken/metadata.xml": `<pkgmetadata><maintainer><name>No Mail</name></maintainer></pkgmetadata>`,
		"dev-lang/empty/metadata.xml":  `<pkgmetadata><longdescription>none</longdescription></pkgmetadata>`,
		"pr-assign.toml": `proxy_maint_team = "@gentoo/proxy-maint"
describe_maintainers = true`,
	}

	for path, content := range files {
		fullPath := filepath.Join(tmpDir, path)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			t.Fatalf("Failed to create directory %s: %v", filepath.Dir(fullPath), err)
		}
		if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write file %s: %v", fullPath, err)
		}
	}
	return tmpDir
}

func TestClassifyPaths(t *testing.T) {
	testRepo := setupTestRepo(t)
	paths := f.Map([]string{
		"app-foo/bar/bar-1.0.ebuild",
		"dev-lang/py/metadata.xml",
		"eclass/python-r1.eclass",
		"profiles/use.local.desc",
	}, func(name string) triage.ChangedPath { return triage.NewChangedPath(name, name) })

	tt := []struct {
		name   string
		format OutputFormat
		want   string
	}{
		{
			name:   "default",
			format: FormatDefault,
			want:   "Areas:\n  ebuilds\n  eclasses\nPackages:\n  app-foo/bar\n  dev-lang/py\n",
		},
		{
			name:   "one-line",
			format: FormatOneLine,
			want:   "areas: ebuilds, eclasses\npackages: app-foo/bar, dev-lang/py\n",
		},
		{
			name:   "json",
			format: FormatJSON,
			want:   `{"areas":["ebuilds","eclasses"],"packages":["app-foo/bar","dev-lang/py"]}` + "\n",
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := classifyPaths(&buf, triage.DirTree(testRepo), paths, tc.format); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if buf.String() != tc.want {
				t.Errorf("classifyPaths() = %q, want %q", buf.String(), tc.want)
			}
		})
	}

	t.Run("missing categories", func(t *testing.T) {
		var buf bytes.Buffer
		if err := classifyPaths(&buf, triage.DirTree(t.TempDir()), paths, FormatDefault); err == nil {
			t.Error("expected error without profiles/categories")
		}
	})
}

func TestChangedPaths(t *testing.T) {
	got, err := changedPaths(".", []string{"app-foo/bar/metadata.xml", "eclass/foo.eclass"}, "", "HEAD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	names := f.Map(got, func(p triage.ChangedPath) string { return p.String() })
	if !reflect.DeepEqual(names, []string{"app-foo/bar/metadata.xml", "eclass/foo.eclass"}) {
		t.Errorf("changedPaths() = %v", names)
	}
}

func TestPackageMaintainers(t *testing.T) {
	testRepo := setupTestRepo(t)
	mappings := triage.Mappings{
		Developers: map[string]string{"alice@gentoo.org": "alice"},
		Projects:   map[string]string{"python@gentoo.org": "gentoo/Python"},
	}

	tt := []struct {
		name     string
		targets  []string
		mappings triage.Mappings
		format   OutputFormat
		want     string
		wantErr  bool
	}{
		{
			name:     "single package",
			targets:  []string{"app-foo/bar"},
			mappings: mappings,
			format:   FormatDefault,
			want:     "@alice (Primary maintainer)\n",
		},
		{
			name:    "unmapped maintainer",
			targets: []string{"app-foo/bar"},
			format:  FormatDefault,
			want:    "~~alice~~ (Primary maintainer)\n",
		},
		{
			name:     "multiple packages",
			targets:  []string{"dev-lang/py", "app-foo/orphan"},
			mappings: mappings,
			format:   FormatDefault,
			want:     "dev-lang/py: \n@gentoo/python\n~~jane[at]example.com~~\n\napp-foo/orphan: \n@gentoo/proxy-maint (maintainer needed)\n",
		},
		{
			name:     "one-line",
			targets:  []string{"dev-lang/py", "app-foo/new"},
			mappings: mappings,
			format:   FormatOneLine,
			want:     "dev-lang/py: @gentoo/python, ~~jane[at]example.com~~\napp-foo/new: @gentoo/proxy-maint (new package)\n",
		},
		{
			name:    "invalid reference",
			targets: []string{"app-foo"},
			format:  FormatDefault,
			wantErr: true,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := packageMaintainers(&buf, testRepo, "", tc.targets, tc.mappings, tc.format)
			if (err != nil) != tc.wantErr {
				t.Fatalf("packageMaintainers() error = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.wantErr {
				return
			}
			if buf.String() != tc.want {
				t.Errorf("packageMaintainers() = %q, want %q", buf.String(), tc.want)
			}
		})
	}
}

func TestPackageMaintainersJSON(t *testing.T) {
	testRepo := setupTestRepo(t)
	var buf bytes.Buffer
	err := packageMaintainers(&buf, testRepo, "", []string{"app-foo/bar", "app-foo/orphan"}, triage.Mappings{}, FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got map[string][]string
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json %q: %v", buf.String(), err)
	}
	want := map[string][]string{
		"app-foo/bar":    {"~~alice~~ (Primary maintainer)"},
		"app-foo/orphan": {"@gentoo/proxy-maint (maintainer needed)"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("packageMaintainers() = %v, want %v", got, want)
	}
}

func TestUnmaintainedPackages(t *testing.T) {
	testRepo := setupTestRepo(t)

	tt := []struct {
		name       string
		categories []string
		want       []string
		wantErr    bool
	}{
		{
			name:    "all categories",
			want:    []string{"app-foo/orphan", "dev-lang/empty"},
			wantErr: true,
		},
		{
			name:       "single category",
			categories: []string{"app-foo"},
			want:       []string{"app-foo/orphan"},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := unmaintainedPackages(&buf, testRepo, tc.categories)
			if (err != nil) != tc.wantErr {
				t.Fatalf("unmaintainedPackages() error = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), "dev-lang/broken") {
				t.Errorf("expected broken package in error, got %v", err)
			}
			got := strings.Split(strings.TrimSpace(buf.String()), "\n")
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("unmaintainedPackages() = %v, want %v", got, tc.want)
			}
		})
	}

	t.Run("relative roots", func(t *testing.T) {
		t.Chdir(filepath.Dir(testRepo))
		base := filepath.Base(testRepo)
		for _, root := range []string{base, "./" + base, base + "/", "./" + base + "/"} {
			var buf bytes.Buffer
			if err := unmaintainedPackages(&buf, root, []string{"app-foo"}); err != nil {
				t.Fatalf("root %q: unexpected error: %v", root, err)
			}
			if got := strings.TrimSpace(buf.String()); got != "app-foo/orphan" {
				t.Errorf("root %q: unmaintainedPackages() = %q, want %q", root, got, "app-foo/orphan")
			}
		}
	})

	t.Run("not a directory", func(t *testing.T) {
		var buf bytes.Buffer
		if err := unmaintainedPackages(&buf, filepath.Join(testRepo, "pr-assign.toml"), nil); err == nil {
			t.Error("expected error for a file root")
		}
	})
}

func TestLoadMappings(t *testing.T) {
	m, err := loadMappings("", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Developers) != 0 || len(m.Projects) != 0 {
		t.Errorf("expected empty mappings, got %+v", m)
	}
	if _, err := loadMappings("/nonexistent/dev.json", "", ""); err == nil {
		t.Error("expected error for a partial mapping set")
	}
}

func TestStripRoot(t *testing.T) {
	tt := []struct {
		name string
		root string
		path string
		want string
	}{
		{
			name: "current directory",
			root: ".",
			path: "app-foo/bar/metadata.xml",
			want: "app-foo/bar/metadata.xml",
		},
		{
			name: "absolute root",
			root: "/var/db/repos/gentoo",
			path: "/var/db/repos/gentoo/app-foo/bar/metadata.xml",
			want: "app-foo/bar/metadata.xml",
		},
		{
			name: "dot-prefixed relative root",
			root: "./gentoo",
			path: "gentoo/app-foo/bar/metadata.xml",
			want: "app-foo/bar/metadata.xml",
		},
		{
			name: "dot-slash root",
			root: "./",
			path: "app-foo/bar/metadata.xml",
			want: "app-foo/bar/metadata.xml",
		},
		{
			name: "outside root",
			root: "/var/db/repos/gentoo",
			path: "/tmp/metadata.xml",
			want: "/tmp/metadata.xml",
		},
		{
			name: "trailing slash",
			root: "/var/db/repos/gentoo/",
			path: "/var/db/repos/gentoo/profiles/categories",
			want: "profiles/categories",
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got := stripRoot(tc.root, tc.path)
			if got != tc.want {
				t.Errorf("stripRoot() = %v, want %v", got, tc.want)
			}
		})
	}
}
