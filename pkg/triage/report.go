package triage

import (
	"fmt"
	"strings"

	f "github.com/gentoo/pr-assign/pkg/functional"
)

// CommentMarker identifies report comments posted by the bot
const CommentMarker = "Pull Request assignment"

const (
	DefaultGitHubTeam = "@gentoo/github"
	// reportedPackages is the number of packages named in the report header
	reportedPackages = 5
)

const (
	noBugsText = "No bugs to link found. If your pull request references any of the Gentoo bug reports, please add appropriate [GLEP 66](https://www.gentoo.org/glep/glep-0066.html#commit-messages) tags to the commit message and request reassignment."

	linkBugText = "**If you do not receive any reply to this pull request, please open or link a bug to attract the attention of maintainers.**"

	newPackagesText = "## New packages\nThis Pull Request appears to be introducing new packages only. Due to limited manpower, adding new packages is considered low priority. This does not mean that your Pull Request will not receive any attention, however, it might take quite some time for it to be reviewed. In the meantime, your new ebuild might find a home in the [GURU project repository](https://wiki.gentoo.org/wiki/Project:GURU): the ebuild repository maintained collaboratively by Gentoo users. GURU offers your ebuild a place to be reviewed and improved by other Gentoo users, while making it easy for Gentoo users to install it and enjoy the software it adds."

	signoffText = "## Missing GCO sign-off\n\nPlease read the terms of [Gentoo Certificate of Origin](https://www.gentoo.org/glep/glep-0076.html#certificate-of-origin) and acknowledge them by adding a sign-off to *all* your commits."

	footerText = "---\nIn order to force reassignment and/or bug reference scan, please append `[please reassign]` to the pull request title.\n\n*Docs*: [Code of Conduct](https://wiki.gentoo.org/wiki/Project:Council/Code_of_conduct) ● [Copyright policy](https://www.gentoo.org/glep/glep-0076.html) ([expl.](https://dev.gentoo.org/~mgorny/articles/new-gentoo-copyright-policy-explained.html)) ● [Devmanual](https://devmanual.gentoo.org/) ● [GitHub PRs](https://wiki.gentoo.org/wiki/Project:GitHub/Pull_requests) ● [Proxy-maint guide](https://wiki.gentoo.org/wiki/Project:Proxy_Maintainers/User_Guide)"
)

// Report holds everything rendered into the assignment comment
type Report struct {
	Submitter      string
	Classification Classification
	Resolution     Resolution
	Decision       Decision
	// BugzillaURL is the base used for bug links
	BugzillaURL string
	// GitHubTeam is pinged when the bot cannot assign anyone
	GitHubTeam string
	// BugLimitExceeded is set when cross-linking was skipped
	BugLimitExceeded bool
	InvalidEmails    []string
}

func (r Report) String() string {
	var b strings.Builder
	flags := r.Decision.Flags()
	bugs := r.Decision.Bugs()
	team := r.GitHubTeam
	if team == "" {
		team = DefaultGitHubTeam
	}

	packages := f.Sorted(r.Classification.Packages)
	areas := strings.Join(r.Classification.SortedAreas(), ", ")
	if areas == "" {
		areas = "(none, wtf?!)"
	}
	shown := strings.Join(packages[:min(len(packages), reportedPackages)], ", ")
	if shown == "" {
		shown = "(none)"
	}
	more := ""
	if len(packages) > reportedPackages {
		more = "..."
	}
	fmt.Fprintf(&b, "## %s\n\n*Submitter*: %s\n*Areas affected*: %s\n*Packages affected*: %s%s\n",
		CommentMarker, NewHandle(r.Submitter), areas, shown, more)

	switch {
	case len(packages) == 0:
		fmt.Fprintf(&b, "\n%s", team)
	case r.Resolution.TooManyGroups:
		fmt.Fprintf(&b, "\n%s: Too many disjoint maintainers, disabling auto-assignment.", team)
	default:
		for _, pkg := range packages {
			fmt.Fprintf(&b, "\n**%s**: %s", pkg, strings.Join(r.Resolution.Maintainers[pkg], ", "))
		}
		if flags.CannotAssign {
			b.WriteString("\n\nAt least one of the listed packages is maintained entirely by non-GitHub developers!")
		}
	}

	b.WriteString("\n\n## Linked bugs")
	if len(bugs) > 0 {
		base := strings.TrimSuffix(r.BugzillaURL, "/")
		links := f.Map(bugs, func(id int) string { return fmt.Sprintf("[%d](%s/%d)", id, base, id) })
		fmt.Fprintf(&b, "\nBugs linked: %s", strings.Join(links, ", "))
		if r.BugLimitExceeded {
			b.WriteString("\nCross-linking bugs disabled due to large number of bugs linked.")
		} else if flags.InvalidBugLinked {
			b.WriteString("\n\n**One of the linked bugs does not exist!**")
		}
	} else {
		b.WriteString("\n\n" + noBugsText)
	}

	if flags.ExistingPackage && flags.NotSelfMaintained && len(bugs) == 0 {
		b.WriteString("\n\n" + linkBugText)
	}
	// PRs touching no package at all get no GURU pointer
	if flags.NewPackage && !flags.ExistingPackage {
		b.WriteString("\n\n" + newPackagesText)
	}

	if len(r.InvalidEmails) > 0 {
		b.WriteString("\n\n## Missing Bugzilla accounts\n\n**WARNING**: The following maintainers do not match any Bugzilla accounts:")
		for _, mail := range r.InvalidEmails {
			fmt.Fprintf(&b, "\n- %s", mail)
		}
		b.WriteString("\n\nPlease either fix the e-mail addresses in metadata.xml or create a Bugzilla account, and request reassignment afterwards.")
	}

	if flags.MissingSignoff {
		b.WriteString("\n\n" + signoffText)
	}

	b.WriteString("\n\n" + footerText)
	return b.String()
}
