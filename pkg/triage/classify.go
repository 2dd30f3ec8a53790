package triage

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	f "github.com/gentoo/pr-assign/pkg/functional"
)

// Area is a coarse part of the tree touched by a pull request
type Area string

const (
	AreaEbuilds          Area = "ebuilds"
	AreaCategoryMetadata Area = "category-metadata"
	AreaEclasses         Area = "eclasses"
	AreaProfiles         Area = "profiles"
	AreaOther            Area = "other files"
)

const metadataFile = "metadata.xml"

// ChangedPath is a single file entry of a pull request diff
type ChangedPath struct {
	Segments []string
	// RawURL points at the new file contents; empty for removed files
	RawURL string
}

func NewChangedPath(filename string, rawURL string) ChangedPath {
	return ChangedPath{
		Segments: strings.Split(strings.TrimPrefix(filename, "/"), "/"),
		RawURL:   rawURL,
	}
}

func (p ChangedPath) String() string {
	return strings.Join(p.Segments, "/")
}

func (p ChangedPath) segment(i int) string {
	if i < len(p.Segments) {
		return p.Segments[i]
	}
	return ""
}

// Classification is the union of the contributions of every changed path
type Classification struct {
	Areas    f.Set[Area]
	Packages f.Set[string]
	// MetadataFiles holds raw URLs of changed package metadata.xml files
	MetadataFiles f.Set[string]
}

func NewClassification() Classification {
	return Classification{
		Areas:         f.NewSet[Area](),
		Packages:      f.NewSet[string](),
		MetadataFiles: f.NewSet[string](),
	}
}

// SortedAreas returns the area names in display order
func (c Classification) SortedAreas() []string {
	areas := f.Map(c.Areas.Items(), func(a Area) string { return string(a) })
	slices.Sort(areas)
	return areas
}

// Classify sorts changed paths into areas and package references
func Classify(paths []ChangedPath, categories f.Set[string]) Classification {
	c := NewClassification()
	for _, path := range paths {
		c.add(path, categories)
	}
	return c
}

func (c Classification) add(path ChangedPath, categories f.Set[string]) {
	first, second := path.segment(0), path.segment(1)
	switch {
	case categories.Contains(first):
		c.Areas.Add(AreaEbuilds)
		if second == metadataFile {
			c.Areas.Add(AreaCategoryMetadata)
		} else if len(path.Segments) <= 2 {
			c.Areas.Add(AreaOther)
		} else {
			if path.segment(2) == metadataFile && path.RawURL != "" {
				c.MetadataFiles.Add(path.RawURL)
			}
			c.Packages.Add(first + "/" + second)
		}
	case first == "eclass":
		c.Areas.Add(AreaEclasses)
	case first == "profiles":
		if second != "use.local.desc" {
			c.Areas.Add(AreaProfiles)
		}
	case first == "metadata":
		if second != "md5-cache" && second != "pkg_desc_index" {
			c.Areas.Add(AreaOther)
		}
	default:
		c.Areas.Add(AreaOther)
	}
}

// PathFilter drops changed paths matching any of a set of doublestar globs
type PathFilter struct {
	patterns []string
}

func NewPathFilter(patterns []string) (*PathFilter, error) {
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid ignore pattern: %q", pattern)
		}
	}
	return &PathFilter{patterns: patterns}, nil
}

func (pf *PathFilter) Ignored(path ChangedPath) bool {
	if pf == nil {
		return false
	}
	name := path.String()
	for _, pattern := range pf.patterns {
		if match, err := doublestar.Match(pattern, name); err == nil && match {
			return true
		}
	}
	return false
}

func (pf *PathFilter) Apply(paths []ChangedPath) []ChangedPath {
	return f.Filtered(paths, func(p ChangedPath) bool { return !pf.Ignored(p) })
}
