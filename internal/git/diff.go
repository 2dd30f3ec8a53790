package git

import (
	"fmt"
	"strings"

	"github.com/gentoo/pr-assign/pkg/triage"
	"github.com/sourcegraph/go-diff/diff"
)

const devNull = "/dev/null"

type Diff interface {
	AllChanges() []triage.ChangedPath
	Context() DiffContext
}

type GitDiff struct {
	context DiffContext
	files   []triage.ChangedPath
}

type DiffContext struct {
	Base string
	Head string
	Dir  string
}

// NewDiff lists the paths changed between the merge base of Base and Head
func NewDiff(context DiffContext) (Diff, error) {
	return NewDiffWithExecutor(context, newRealGitExecutor(context.Dir))
}

func NewDiffWithExecutor(context DiffContext, executor gitCommandExecutor) (Diff, error) {
	gitDiff, err := getGitDiff(context, executor)
	if err != nil {
		return nil, err
	}
	return &GitDiff{
		context: context,
		files:   toChangedPaths(gitDiff),
	}, nil
}

func (gd *GitDiff) AllChanges() []triage.ChangedPath {
	return gd.files
}

func (gd *GitDiff) Context() DiffContext {
	return gd.context
}

// Removed files only carry their original name
func toChangedPaths(fileDiffs []*diff.FileDiff) []triage.ChangedPath {
	paths := make([]triage.ChangedPath, 0, len(fileDiffs))
	for _, d := range fileDiffs {
		name := strings.TrimPrefix(d.NewName, "b/")
		if d.NewName == devNull || d.NewName == "" {
			name = strings.TrimPrefix(d.OrigName, "a/")
		}
		if name == "" || name == devNull {
			continue
		}
		paths = append(paths, triage.NewChangedPath(name, ""))
	}
	return paths
}

func getGitDiff(data DiffContext, executor gitCommandExecutor) ([]*diff.FileDiff, error) {
	output, err := executor.execute("git", "diff", "--no-renames", "-U0", fmt.Sprintf("%s...%s", data.Base, data.Head))
	if err != nil {
		return nil, fmt.Errorf("Diff Error: %s\n%s\n", err, output)
	}
	gitDiff, err := diff.ParseMultiFileDiff(output)
	if err != nil {
		return nil, err
	}
	return gitDiff, nil
}
