package triage

import (
	"fmt"
	"slices"
	"strings"

	f "github.com/gentoo/pr-assign/pkg/functional"
)

const (
	DefaultProxyMaintTeam = "@gentoo/proxy-maint"
	DefaultAssigneeLimit  = 5
	// UnlimitedAssignees replaces the assignee and bug limits when the bypass label is set
	UnlimitedAssignees = 9999
)

// Resolver maps package references to their maintainers using the reference tree
type Resolver struct {
	Tree   TreeReader
	Mapper IdentityMapper
	// ProxyMaintTeam is mentioned in place of maintainers for new and orphaned packages
	ProxyMaintTeam string
	// AssigneeLimit is the number of distinct maintainer groups above which
	// auto-assignment is disabled
	AssigneeLimit int
	// DescribeMaintainers appends the default-language maintainer description
	DescribeMaintainers bool
}

// Resolution is the result of resolving all packages of one pull request
type Resolution struct {
	// Maintainers maps each package to its rendered maintainer group
	Maintainers map[string][]string
	// Addresses collects every maintainer address seen, for account verification
	Addresses f.Set[string]
	// UniqueGroups is the number of distinct maintainer groups
	UniqueGroups int

	NewPackage        bool
	ExistingPackage   bool
	MaintainerNeeded  bool
	CannotAssign      bool
	NotSelfMaintained bool
	TooManyGroups     bool
}

func (r *Resolver) NewPackageGroup() []string {
	return []string{fmt.Sprintf("%s (new package)", r.proxyMaintTeam())}
}

func (r *Resolver) MaintainerNeededGroup() []string {
	return []string{fmt.Sprintf("%s (maintainer needed)", r.proxyMaintTeam())}
}

// Resolve resolves the maintainers of every package. Packages are visited in sorted
// order so the result does not depend on set iteration order.
func (r *Resolver) Resolve(packages f.Set[string], submitter string) Resolution {
	res := Resolution{
		Maintainers: make(map[string][]string, len(packages)),
		Addresses:   f.NewSet[string](),
	}
	if len(packages) == 0 {
		res.CannotAssign = true
		return res
	}

	author := NewHandle(submitter)
	limit := r.assigneeLimit()
	groups := f.NewSet[string]()
	for _, pkg := range f.Sorted(packages) {
		maintainers, err := r.Load(pkg)
		if err != nil {
			// most likely a new package
			res.Maintainers[pkg] = r.NewPackageGroup()
			res.NewPackage = true
			continue
		}
		res.ExistingPackage = true
		if len(maintainers) == 0 {
			res.Maintainers[pkg] = r.MaintainerNeededGroup()
			res.MaintainerNeeded = true
			continue
		}

		displays := make([]string, 0, len(maintainers))
		handles := make([]string, 0, len(maintainers))
		for _, m := range maintainers {
			res.Addresses.Add(m.Email)
			handle := r.Handle(m)
			handles = append(handles, handle)
			displays = append(displays, r.display(m, handle))
		}
		if !f.Any(handles, func(h string) bool { return strings.Contains(h, "@") }) {
			// not a single GitHub account among the maintainers
			res.CannotAssign = true
		}
		res.Maintainers[pkg] = displays
		if !ContainsHandle(handles, author) {
			res.NotSelfMaintained = true
		}
		groups.Add(GroupKey(displays))
		if len(groups) > limit {
			break
		}
	}

	res.UniqueGroups = len(groups)
	if res.UniqueGroups > limit {
		res.TooManyGroups = true
		res.CannotAssign = true
		// no auto-assignment means no mass notification via account checks either
		res.Addresses = f.NewSet[string]()
	}
	return res
}

// Load parses the metadata.xml of a package from the tree
func (r *Resolver) Load(pkg string) ([]Maintainer, error) {
	data, err := r.Tree.ReadFile(MetadataPath(pkg))
	if err != nil {
		return nil, err
	}
	return ParseMetadata(data)
}

// Handle renders the mention (or struck-through address) of a maintainer
func (r *Resolver) Handle(m Maintainer) string {
	if m.Kind == KindProject {
		return r.Mapper.Project(m.Email)
	}
	return r.Mapper.Developer(m.Email)
}

func (r *Resolver) display(m Maintainer, handle string) string {
	if !r.DescribeMaintainers {
		return handle
	}
	if desc, ok := m.Description(DefaultLang); ok && desc != "" {
		return fmt.Sprintf("%s (%s)", handle, desc)
	}
	return handle
}

func (r *Resolver) proxyMaintTeam() string {
	if r.ProxyMaintTeam == "" {
		return DefaultProxyMaintTeam
	}
	return r.ProxyMaintTeam
}

func (r *Resolver) assigneeLimit() int {
	if r.AssigneeLimit <= 0 {
		return DefaultAssigneeLimit
	}
	return r.AssigneeLimit
}

// GroupKey identifies a maintainer group independent of maintainer order
func GroupKey(displays []string) string {
	sorted := slices.Clone(displays)
	slices.Sort(sorted)
	return strings.Join(sorted, "\x00")
}
