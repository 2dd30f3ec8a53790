package main

import (
	"bytes"
	"testing"
)

func TestValidateFormat(t *testing.T) {
	tt := []struct {
		input   string
		want    OutputFormat
		wantErr bool
	}{
		{"default", FormatDefault, false},
		{"one-line", FormatOneLine, false},
		{"json", FormatJSON, false},
		{"yaml", "", true},
		{"", "", true},
	}

	for _, tc := range tt {
		got, err := validateFormat(tc.input)
		if (err != nil) != tc.wantErr {
			t.Errorf("validateFormat(%q) error = %v, wantErr %v", tc.input, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("validateFormat(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestClassificationRender(t *testing.T) {
	c := Classification{
		Areas:    []string{"ebuilds", "eclasses"},
		Packages: []string{"dev-lang/python", "dev-python/pip"},
	}
	empty := Classification{Areas: []string{}, Packages: []string{}}

	tt := []struct {
		name   string
		c      Classification
		format OutputFormat
		want   string
	}{
		{
			name:   "default",
			c:      c,
			format: FormatDefault,
			want:   "Areas:\n  ebuilds\n  eclasses\nPackages:\n  dev-lang/python\n  dev-python/pip\n",
		},
		{
			name:   "one-line",
			c:      c,
			format: FormatOneLine,
			want:   "areas: ebuilds, eclasses\npackages: dev-lang/python, dev-python/pip\n",
		},
		{
			name:   "json",
			c:      c,
			format: FormatJSON,
			want:   `{"areas":["ebuilds","eclasses"],"packages":["dev-lang/python","dev-python/pip"]}` + "\n",
		},
		{
			name:   "json without packages",
			c:      empty,
			format: FormatJSON,
			want:   `{"areas":[],"packages":[]}` + "\n",
		},
		{
			name:   "default without packages",
			c:      empty,
			format: FormatDefault,
			want:   "Areas:\nPackages:\n",
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tc.c.Render(&buf, tc.format); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if buf.String() != tc.want {
				t.Errorf("Render() = %q, want %q", buf.String(), tc.want)
			}
		})
	}
}

func TestMaintainerListingRender(t *testing.T) {
	maintainers := map[string][]string{
		"dev-lang/python":  {"@gentoo/python", "~~jane[at]example.com~~"},
		"app-misc/orphan":  {"@gentoo/proxy-maint (maintainer needed)"},
		"app-misc/ignored": {"@nobody"},
	}

	tt := []struct {
		name    string
		targets []string
		format  OutputFormat
		want    string
	}{
		{
			name:    "single package",
			targets: []string{"dev-lang/python"},
			format:  FormatDefault,
			want:    "@gentoo/python\n~~jane[at]example.com~~\n",
		},
		{
			name:    "packages in request order",
			targets: []string{"dev-lang/python", "app-misc/orphan"},
			format:  FormatDefault,
			want:    "dev-lang/python: \n@gentoo/python\n~~jane[at]example.com~~\n\napp-misc/orphan: \n@gentoo/proxy-maint (maintainer needed)\n",
		},
		{
			name:    "one-line",
			targets: []string{"app-misc/orphan", "dev-lang/python"},
			format:  FormatOneLine,
			want:    "app-misc/orphan: @gentoo/proxy-maint (maintainer needed)\ndev-lang/python: @gentoo/python, ~~jane[at]example.com~~\n",
		},
		{
			name:    "json only lists requested packages",
			targets: []string{"app-misc/orphan"},
			format:  FormatJSON,
			want:    `{"app-misc/orphan":["@gentoo/proxy-maint (maintainer needed)"]}` + "\n",
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			listing := MaintainerListing{Targets: tc.targets, Maintainers: maintainers}
			if err := listing.Render(&buf, tc.format); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if buf.String() != tc.want {
				t.Errorf("Render() = %q, want %q", buf.String(), tc.want)
			}
		})
	}
}
