package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/gentoo/pr-assign/internal/bugzilla"
	"github.com/gentoo/pr-assign/internal/config"
	"github.com/gentoo/pr-assign/internal/git"
	gh "github.com/gentoo/pr-assign/internal/github"
	f "github.com/gentoo/pr-assign/pkg/functional"
	"github.com/gentoo/pr-assign/pkg/triage"
	"github.com/google/go-github/v63/github"
)

// Outcome is what happened to a single pull request
type Outcome struct {
	Number        int      `json:"number"`
	Skipped       bool     `json:"skipped"`
	Reason        string   `json:"reason,omitempty"`
	Labels        []string `json:"labels,omitempty"`
	AddedLabels   []string `json:"added_labels,omitempty"`
	RemovedLabels []string `json:"removed_labels,omitempty"`
	Comment       string   `json:"comment,omitempty"`
}

func (o *Outcome) String() string {
	if o.Skipped {
		return fmt.Sprintf("PR#%d: skipped (%s)", o.Number, o.Reason)
	}
	return fmt.Sprintf("PR#%d: labels %v (+%v -%v)", o.Number, o.Labels, o.AddedLabels, o.RemovedLabels)
}

// Config holds the application configuration
type Config struct {
	Token    string
	Username string
	Repo     string
	RepoDir  string
	// Ref reads the reference tree at a git ref of RepoDir instead of its working copy
	Ref            string
	ConfigDir      string
	PR             int
	DryRun         bool
	Verbose        bool
	Timeout        time.Duration
	BugzillaURL    string
	BugzillaAPIKey string
	Mappings       triage.Mappings
	InfoBuffer     io.Writer
	WarningBuffer  io.Writer
}

// BugTracker is the part of the bug tracker the triage run needs
type BugTracker interface {
	triage.AccountLookup
	LinkPullRequest(ctx context.Context, ids []int, prURL string, keyword string) error
	Assignees(ctx context.Context, ids []int) ([]int, error)
}

// App represents the application with its dependencies
type App struct {
	Conf       *config.Config
	ctx        context.Context
	config     *Config
	client     gh.Client
	tracker    BugTracker
	tree       triage.TreeReader
	filter     *triage.PathFilter
	bugs       *triage.BugMatcher
	categories f.Set[string]
}

// New creates a new App instance with the given configuration
func New(ctx context.Context, cfg Config) (*App, error) {
	repoSplit := strings.Split(cfg.Repo, "/")
	if len(repoSplit) != 2 || repoSplit[0] == "" || repoSplit[1] == "" {
		return nil, fmt.Errorf("invalid repo name: %s", cfg.Repo)
	}
	if cfg.InfoBuffer == nil {
		cfg.InfoBuffer = io.Discard
	}
	if cfg.WarningBuffer == nil {
		cfg.WarningBuffer = io.Discard
	}

	app := &App{
		ctx:    ctx,
		config: &cfg,
		tree:   triage.DirTree(cfg.RepoDir),
	}
	if cfg.Ref != "" {
		app.tree = git.NewGitRefFileReader(cfg.Ref, cfg.RepoDir)
	}

	conf, err := config.ReadConfig(cfg.ConfigDir, nil)
	if err != nil {
		app.printWarn("Error reading %s - using default config: %v\n", config.FileName, err)
	}
	if cfg.BugzillaURL != "" {
		conf.BugzillaURL = cfg.BugzillaURL
	}
	if err := app.setPolicy(conf); err != nil {
		return nil, err
	}

	client := gh.NewClient(ctx, repoSplit[0], repoSplit[1], cfg.Token, cfg.Timeout)
	client.SetInfoBuffer(cfg.InfoBuffer)
	client.SetWarningBuffer(cfg.WarningBuffer)
	app.client = client

	tracker, err := bugzilla.NewClient(conf.BugzillaURL, cfg.BugzillaAPIKey, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	app.tracker = tracker
	return app, nil
}

func (a *App) setPolicy(conf *config.Config) error {
	filter, err := triage.NewPathFilter(conf.Ignore)
	if err != nil {
		return err
	}
	bugs, err := triage.NewBugMatcher(conf.BugzillaURL)
	if err != nil {
		return err
	}
	a.Conf = conf
	a.filter = filter
	a.bugs = bugs
	return nil
}

func (a *App) printDebug(format string, args ...interface{}) {
	if a.config.Verbose {
		_, _ = fmt.Fprintf(a.config.InfoBuffer, format, args...)
	}
}

func (a *App) printWarn(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(a.config.WarningBuffer, format, args...)
}

// Run triages the configured pull request, or every open one. A timeout aborts the
// whole run; other failures only abort the pull request they occurred in.
func (a *App) Run() ([]*Outcome, error) {
	if a.config.Username == "" {
		user, err := a.client.GetTokenUser()
		if err != nil {
			return nil, fmt.Errorf("GetTokenUser Error: %w", err)
		}
		a.config.Username = user
	}

	categories, err := triage.ReadCategories(a.tree)
	if err != nil {
		return nil, fmt.Errorf("ReadCategories Error: %w", err)
	}
	a.categories = categories

	var issues []*github.Issue
	if a.config.PR != 0 {
		issue, err := a.client.GetIssue(a.config.PR)
		if err != nil {
			return nil, fmt.Errorf("GetIssue Error: %w", err)
		}
		issues = []*github.Issue{issue}
	} else {
		issues, err = a.client.ListOpenPullRequests()
		if err != nil {
			return nil, fmt.Errorf("ListOpenPullRequests Error: %w", err)
		}
	}
	a.printDebug("Found %d open pull requests\n", len(issues))

	outcomes := make([]*Outcome, 0, len(issues))
	var errs []error
	for _, issue := range issues {
		outcome, err := a.assignOne(issue)
		if err != nil {
			if IsTimeout(err) {
				return outcomes, err
			}
			a.printWarn("PR#%d: %v\n", issue.GetNumber(), err)
			errs = append(errs, fmt.Errorf("PR#%d: %w", issue.GetNumber(), err))
			continue
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, errors.Join(errs...)
}

func labelNames(labels []*github.Label) []string {
	return f.Map(labels, func(l *github.Label) string { return l.GetName() })
}

// skipReason reports why an already triaged pull request is left alone
func (a *App) skipReason(issue *github.Issue, labels []string) (string, bool) {
	if issue.GetAssignee() != nil || len(issue.Assignees) > 0 {
		return "assignee found", true
	}
	for _, label := range labels {
		if slices.Contains(a.Conf.SkipLabels, label) {
			return fmt.Sprintf("%s label found", label), true
		}
	}
	return "", false
}

func (a *App) assignOne(issue *github.Issue) (*Outcome, error) {
	number := issue.GetNumber()
	title := issue.GetTitle()
	labels := labelNames(issue.Labels)
	outcome := &Outcome{Number: number}

	reassign := triage.WantsReassign(title)
	if reassign {
		a.printDebug("PR#%d: [please reassign] found\n", number)
	} else if reason, skip := a.skipReason(issue, labels); skip {
		a.printDebug("PR#%d: %s\n", number, reason)
		outcome.Skipped = true
		outcome.Reason = reason
		return outcome, nil
	}

	assigneeLimit, bugLimit := a.Conf.AssigneeLimit, a.Conf.BugLimit
	if slices.Contains(labels, triage.LabelNoAssigneeLimit) {
		assigneeLimit, bugLimit = triage.UnlimitedAssignees, triage.UnlimitedAssignees
	}

	if err := a.client.InitPR(number); err != nil {
		return nil, fmt.Errorf("InitPR Error: %w", err)
	}
	pr := a.client.PR()

	if reassign && !a.config.DryRun {
		if err := a.client.EditTitle(triage.StripReassign(title)); err != nil {
			return nil, fmt.Errorf("EditTitle Error: %w", err)
		}
	}
	if !a.config.DryRun {
		deleted, err := a.client.DeleteComments(a.config.Username, triage.CommentMarker)
		if err != nil {
			return nil, fmt.Errorf("DeleteComments Error: %w", err)
		}
		a.printDebug("PR#%d: deleted %d old comments\n", number, deleted)
	}

	files, err := a.client.ListFiles()
	if err != nil {
		return nil, fmt.Errorf("ListFiles Error: %w", err)
	}
	classification := triage.Classify(a.filter.Apply(files), a.categories)

	resolver := &triage.Resolver{
		Tree:                a.tree,
		Mapper:              triage.NewIdentityMapper(a.config.Mappings, a.Conf.MailSuffix),
		ProxyMaintTeam:      a.Conf.ProxyMaintTeam,
		AssigneeLimit:       assigneeLimit,
		DescribeMaintainers: a.Conf.DescribeMaintainers,
	}
	resolution := resolver.Resolve(classification.Packages, pr.GetUser().GetLogin())
	addresses := f.NewSet(resolution.Addresses.Items()...)
	if err := a.addChangedMaintainers(number, classification, addresses); err != nil {
		return nil, err
	}

	messages, err := a.client.CommitMessages()
	if err != nil {
		return nil, fmt.Errorf("CommitMessages Error: %w", err)
	}
	bugs := a.bugs.Extract(messages)

	flags := triage.Flags{
		NewPackage:        resolution.NewPackage,
		ExistingPackage:   resolution.ExistingPackage,
		MaintainerNeeded:  resolution.MaintainerNeeded,
		CannotAssign:      resolution.CannotAssign,
		NotSelfMaintained: resolution.NotSelfMaintained,
		MissingSignoff:    triage.MissingSignoff(messages),
		NoCI:              triage.WantsNoCI(title),
	}

	bugLimitExceeded := len(bugs) > bugLimit
	if len(bugs) > 0 {
		ids := f.Sorted(bugs)
		if bugLimitExceeded {
			a.printDebug("PR#%d: %d bugs linked, not cross-linking\n", number, len(bugs))
		} else if !a.config.DryRun {
			err := a.tracker.LinkPullRequest(a.ctx, ids, pr.GetHTMLURL(), a.Conf.LinkedBugKeyword)
			switch {
			case errors.Is(err, triage.ErrInvalidBug):
				flags.InvalidBugLinked = true
			case err != nil:
				return nil, fmt.Errorf("LinkPullRequest Error: %w", err)
			}
		}
		assignees, err := a.tracker.Assignees(a.ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("Assignees Error: %w", err)
		}
		flags.Security = f.Any(assignees, func(id int) bool { return slices.Contains(a.Conf.SecurityAssignees, id) })
	}

	invalidEmails := []string{}
	if len(addresses) > 0 {
		invalidEmails, err = triage.VerifyEmails(a.ctx, a.tracker, addresses)
		if err != nil {
			return nil, fmt.Errorf("VerifyEmails Error: %w", err)
		}
		flags.InvalidEmail = len(invalidEmails) > 0
	}

	decision := triage.NewDecision(flags, bugs)
	report := triage.Report{
		Submitter:        pr.GetUser().GetLogin(),
		Classification:   classification,
		Resolution:       resolution,
		Decision:         decision,
		BugzillaURL:      a.Conf.BugzillaURL,
		GitHubTeam:       a.Conf.GitHubTeam,
		BugLimitExceeded: bugLimitExceeded,
		InvalidEmails:    invalidEmails,
	}
	outcome.Comment = report.String()
	outcome.Labels = decision.Labels()
	outcome.RemovedLabels, outcome.AddedLabels = triage.LabelChanges(labels, outcome.Labels)

	if a.config.DryRun {
		a.printDebug("PR#%d: dry run, not applying\n", number)
		return outcome, nil
	}
	if err := a.client.AddComment(outcome.Comment); err != nil {
		return nil, fmt.Errorf("AddComment Error: %w", err)
	}
	for _, label := range outcome.RemovedLabels {
		if err := a.client.RemoveLabel(label); err != nil {
			return nil, fmt.Errorf("RemoveLabel Error: %w", err)
		}
	}
	if err := a.client.AddLabels(outcome.AddedLabels); err != nil {
		return nil, fmt.Errorf("AddLabels Error: %w", err)
	}
	a.printDebug("PR#%d: assigned\n", number)
	return outcome, nil
}

// addChangedMaintainers adds the maintainers of changed metadata.xml files to
// addresses. Files that do not parse are skipped.
func (a *App) addChangedMaintainers(number int, classification triage.Classification, addresses f.Set[string]) error {
	for _, rawURL := range f.Sorted(classification.MetadataFiles) {
		data, err := a.client.DownloadRaw(rawURL)
		if err != nil {
			return fmt.Errorf("DownloadRaw Error: %w", err)
		}
		maintainers, err := triage.ParseMetadata(data)
		if err != nil {
			a.printDebug("PR#%d: ignoring unparseable %s: %v\n", number, rawURL, err)
			continue
		}
		for _, m := range maintainers {
			addresses.Add(m.Email)
		}
	}
	return nil
}

// IsTimeout reports whether err was caused by a transport timeout
func IsTimeout(err error) bool {
	return triage.IsTimeout(err)
}
