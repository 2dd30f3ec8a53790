package triage

import (
	"slices"

	f "github.com/gentoo/pr-assign/pkg/functional"
)

const (
	LabelAssigned         = "assigned"
	LabelNeedAssignment   = "need assignment"
	LabelSelfMaintained   = "self-maintained"
	LabelMaintainerNeeded = "maintainer-needed"
	LabelNewPackage       = "new package"
	LabelNoSignoff        = "no signoff"
	LabelBugLinked        = "bug linked"
	LabelNoBugFound       = "no bug found"
	LabelInvalidEmail     = "invalid email"
	LabelInvalidBugLinked = "invalid bug linked"
	LabelSecurity         = "security"
	LabelNoCI             = "noci"

	// LabelNoAssigneeLimit lifts the assignee and bug limits
	LabelNoAssigneeLimit = "no assignee limit"
	LabelDoNotMerge      = "do not merge"
)

// ManagedLabels are replaced on every run. security and noci are only ever added.
var ManagedLabels = []string{
	LabelAssigned,
	LabelNeedAssignment,
	LabelSelfMaintained,
	LabelMaintainerNeeded,
	LabelNewPackage,
	LabelNoSignoff,
	LabelBugLinked,
	LabelNoBugFound,
	LabelInvalidEmail,
	LabelInvalidBugLinked,
}

// Flags are the per pull request facts the labels are derived from
type Flags struct {
	NewPackage        bool
	ExistingPackage   bool
	MaintainerNeeded  bool
	CannotAssign      bool
	NotSelfMaintained bool
	InvalidEmail      bool
	InvalidBugLinked  bool
	MissingSignoff    bool
	Security          bool
	NoCI              bool
}

// Decision is the immutable outcome of triaging one pull request
type Decision struct {
	flags Flags
	bugs  []int
}

func NewDecision(flags Flags, bugs f.Set[int]) Decision {
	return Decision{flags: flags, bugs: f.Sorted(bugs)}
}

func (d Decision) Flags() Flags {
	return d.flags
}

// Bugs returns the linked bug ids in ascending order
func (d Decision) Bugs() []int {
	return slices.Clone(d.bugs)
}

// SelfMaintained is false for packages needing a maintainer even if the submitter
// maintains everything else.
func (d Decision) SelfMaintained() bool {
	return !d.flags.NotSelfMaintained && !d.flags.MaintainerNeeded
}

// Labels computes the labels to apply, in a stable order
func (d Decision) Labels() []string {
	labels := make([]string, 0, 8)
	if d.flags.MaintainerNeeded {
		labels = append(labels, LabelMaintainerNeeded)
	}
	if d.flags.NewPackage {
		labels = append(labels, LabelNewPackage)
	}
	if d.flags.CannotAssign {
		labels = append(labels, LabelNeedAssignment)
	} else {
		if d.SelfMaintained() {
			labels = append(labels, LabelSelfMaintained)
		}
		labels = append(labels, LabelAssigned)
	}
	if len(d.bugs) > 0 {
		labels = append(labels, LabelBugLinked)
		if d.flags.Security {
			labels = append(labels, LabelSecurity)
		}
	} else if !d.SelfMaintained() {
		labels = append(labels, LabelNoBugFound)
	}
	if d.flags.InvalidBugLinked {
		labels = append(labels, LabelInvalidBugLinked)
	}
	if d.flags.InvalidEmail {
		labels = append(labels, LabelInvalidEmail)
	}
	if d.flags.MissingSignoff {
		labels = append(labels, LabelNoSignoff)
	}
	if d.flags.NoCI {
		labels = append(labels, LabelNoCI)
	}
	return labels
}

// LabelChanges computes the managed labels to drop from current and the labels
// to add so that the issue ends up carrying want.
func LabelChanges(current []string, want []string) (remove []string, add []string) {
	wanted := f.NewSet(want...)
	present := f.NewSet(current...)
	for _, label := range current {
		if slices.Contains(ManagedLabels, label) && !wanted.Contains(label) {
			remove = append(remove, label)
		}
	}
	for _, label := range want {
		if !present.Contains(label) {
			add = append(add, label)
		}
	}
	return remove, add
}
